package crawl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeFetcher struct{ text string }

func (f *fakeFetcher) FetchText(ctx context.Context, url string) (string, error) {
	return f.text, nil
}
func (f *fakeFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	return []byte(f.text), nil
}

func TestIndexCrawlDropsCommentLines(t *testing.T) {
	fetcher := &fakeFetcher{text: "# a comment\nhttps://example.com/a.json\n\n#another\nhttps://example.com/b.json\n"}
	out, err := IndexCrawl(context.Background(), fetcher, IndexCrawlerInput{IndexURL: "idx", CommentPrefix: "#"})
	require.NoError(t, err)
	require.Equal(t, []interface{}{"https://example.com/a.json", "https://example.com/b.json"}, out)
}

func TestIndexCrawlEmptyPrefixKeepsEverything(t *testing.T) {
	fetcher := &fakeFetcher{text: "#not-a-comment\nhttps://example.com/a.json\n"}
	out, err := IndexCrawl(context.Background(), fetcher, IndexCrawlerInput{IndexURL: "idx"})
	require.NoError(t, err)
	require.Len(t, out, 2)
}

// TestIndexCrawlNDJSONPassesRecordsVerbatim asserts the whole decoded
// record reaches the caller rather than being narrowed to one field:
// scene_info is opaque to the crawler (spec.md §3).
func TestIndexCrawlNDJSONPassesRecordsVerbatim(t *testing.T) {
	fetcher := &fakeFetcher{text: "# header\n" + `{"id":"a"}` + "\n" + `{"id":"b"}` + "\n"}
	out, err := IndexCrawl(context.Background(), fetcher, IndexCrawlerInput{IndexURL: "idx", CommentPrefix: "#", IsNDJSON: true})
	require.NoError(t, err)
	require.Equal(t, []interface{}{
		map[string]interface{}{"id": "a"},
		map[string]interface{}{"id": "b"},
	}, out)
}
