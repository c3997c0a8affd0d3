package crawl

import (
	"bufio"
	"context"
	"encoding/json"
	"strings"

	"github.com/Azure/microsoft-planetary-computer-pro/internal/engine"
)

// IndexCrawlerInput points at a newline-delimited JSON or plain-text index
// file, optionally filtering it by a per-line comment prefix.
type IndexCrawlerInput struct {
	IndexURL      string
	CommentPrefix string // empty disables comment filtering
	IsNDJSON      bool   // when true, each surviving line is JSON-decoded
}

// IndexCrawl fetches the index document named by input.IndexURL and
// returns one scene reference per surviving line. When input.IsNDJSON is
// false, each scene is the raw line text (a blob URL or path). When true,
// each line is JSON-decoded and the decoded value — a structured record,
// opaque to the orchestrator — is passed through verbatim; it is never
// narrowed to a single field, since spec.md §3 requires the whole record
// reach the template as scene_info.
//
// A line is dropped iff CommentPrefix is non-empty and the line, after
// trimming leading whitespace, starts with it. An empty CommentPrefix
// disables filtering entirely (every non-blank line is kept), matching
// the source's "falsy prefix means no filtering" behavior rather than
// treating "" as "every line is a comment".
func IndexCrawl(ctx context.Context, fetcher engine.Fetcher, input IndexCrawlerInput) ([]interface{}, error) {
	text, err := fetcher.FetchText(ctx, input.IndexURL)
	if err != nil {
		return nil, &Error{Message: "Error crawling index", Cause: err}
	}

	var out []interface{}
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if input.CommentPrefix != "" && strings.HasPrefix(trimmed, input.CommentPrefix) {
			continue
		}
		if input.IsNDJSON {
			var doc interface{}
			if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
				return nil, &Error{Message: "Error crawling index", Cause: err}
			}
			out = append(out, doc)
			continue
		}
		out = append(out, trimmed)
	}
	if err := scanner.Err(); err != nil {
		return nil, &Error{Message: "Error crawling index", Cause: err}
	}
	return out, nil
}
