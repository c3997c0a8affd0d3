// Package crawl implements the two scene-discovery strategies: listing
// blobs under a glob pattern, and reading a (possibly NDJSON) index file.
package crawl

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/Azure/microsoft-planetary-computer-pro/go/gcs"
)

// Error is the single CrawlingError kind both crawlers raise; the source
// conflates NDJSON parse failures with I/O failures under one error kind,
// preserved here per the Open Questions resolution (see DESIGN.md) with
// the underlying cause retained for richer telemetry.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("crawl: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("crawl: %s", e.Message)
}
func (e *Error) Unwrap() error { return e.Cause }

// FileCrawlerInput names the container and optional glob pattern to list.
type FileCrawlerInput struct {
	Account   string
	Container string
	Pattern   string // empty means no filter
}

// FileCrawl lists every blob in input.Container whose name matches
// input.Pattern (a glob, translated to a regex and applied after the
// gateway's own prefix filtering), returning canonical URLs.
func FileCrawl(ctx context.Context, client gcs.GCSClient, input FileCrawlerInput) ([]string, error) {
	names, err := client.ListFiles(ctx, "")
	if err != nil {
		return nil, &Error{Message: "Error crawling files", Cause: err}
	}
	var re *regexp.Regexp
	if input.Pattern != "" {
		re, err = regexp.Compile("^" + globToRegex(input.Pattern) + "$")
		if err != nil {
			return nil, &Error{Message: "Error crawling files", Cause: err}
		}
	}
	var out []string
	for _, name := range names {
		if re != nil && !re.MatchString(name) {
			continue
		}
		out = append(out, canonicalBlobURL(input.Account, input.Container, name))
	}
	return out, nil
}

// globToRegex translates a shell glob (supporting "**", "*", "?") into an
// equivalent regex body (without anchors). "**/" translates to an
// *optional* "any number of path segments" group rather than a mandatory
// one, so a zero-directory-depth name still matches "**/*.tif" the way
// Testable Property 5 requires — a bare "**" crossing a slash must not
// force at least one "/" to appear in the matched name.
func globToRegex(pattern string) string {
	var sb strings.Builder
	i := 0
	for i < len(pattern) {
		c := pattern[i]
		switch c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				if i+2 < len(pattern) && pattern[i+2] == '/' {
					sb.WriteString("(?:.*/)?")
					i += 3
					continue
				}
				sb.WriteString(".*")
				i += 2
				continue
			}
			sb.WriteString("[^/]*")
		case '?':
			sb.WriteString("[^/]")
		case '.', '+', '(', ')', '|', '^', '$', '[', ']', '{', '}', '\\':
			sb.WriteString("\\")
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
		i++
	}
	return sb.String()
}

func canonicalBlobURL(account, container, blob string) string {
	return fmt.Sprintf("https://%s.blob.core.windows.net/%s/%s", account, container, path.Clean("/"+blob)[1:])
}
