package engine

import "regexp"

func (e *Environment) registerRegex() {
	e.funcs["regex_match"] = regexMatch
	e.funcs["regex_fullmatch"] = regexFullmatch
	e.funcs["regex_search"] = regexSearch
	e.funcs["regex_sub"] = regexSub
	e.funcs["regex_subn"] = regexSubn
	e.funcs["regex_split"] = regexSplit
	e.funcs["regex_findall"] = regexFindall
	e.funcs["regex_finditer"] = regexFindall // iteration is a range over the same slice in Go templates.
}

// regexMatch anchors at the start of input (Python re.match semantics).
func regexMatch(pattern, input string) (string, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)`)
	if err != nil {
		return "", err
	}
	loc := re.FindString(input)
	return loc, nil
}

func regexFullmatch(pattern, input string) (bool, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return false, err
	}
	return re.MatchString(input), nil
}

func regexSearch(pattern, input string) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", err
	}
	return re.FindString(input), nil
}

func regexSub(pattern, repl, input string) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", err
	}
	return re.ReplaceAllString(input, repl), nil
}

type subnResult struct {
	Text  string
	Count int
}

func regexSubn(pattern, repl, input string) (subnResult, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return subnResult{}, err
	}
	count := len(re.FindAllString(input, -1))
	return subnResult{Text: re.ReplaceAllString(input, repl), Count: count}, nil
}

func regexSplit(pattern, input string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return re.Split(input, -1), nil
}

func regexFindall(pattern, input string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return re.FindAllString(input, -1), nil
}
