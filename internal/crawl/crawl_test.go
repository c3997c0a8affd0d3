package crawl

import (
	"context"
	"strings"
	"testing"

	"github.com/Azure/microsoft-planetary-computer-pro/go/gcs"
	"github.com/Azure/microsoft-planetary-computer-pro/go/gcs/mem_gcsclient"
	"github.com/stretchr/testify/require"
)

func TestFileCrawlFiltersByGlob(t *testing.T) {
	client := mem_gcsclient.New("container")
	ctx := context.Background()
	for _, name := range []string{"2021/01/scene1.tif", "2021/01/scene2.json", "2021/02/scene3.tif"} {
		w := client.FileWriter(ctx, name, gcs.FileWriteOptionsDefaults)
		_, err := w.Write([]byte("x"))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}

	urls, err := FileCrawl(ctx, client, FileCrawlerInput{
		Account:   "myaccount",
		Container: "container",
		Pattern:   "**/*.tif",
	})
	require.NoError(t, err)
	require.Len(t, urls, 2)
}

// TestFileCrawlGlobMatchesRootLevelBlob asserts a blob with no directory
// prefix still matches "**/*.tif": the "**/" segment must be optional,
// not a mandatory path separator.
func TestFileCrawlGlobMatchesRootLevelBlob(t *testing.T) {
	client := mem_gcsclient.New("container")
	ctx := context.Background()
	for _, name := range []string{"scene.tif", "2021/01/scene1.tif", "2021/01/scene2.json"} {
		w := client.FileWriter(ctx, name, gcs.FileWriteOptionsDefaults)
		_, err := w.Write([]byte("x"))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}

	urls, err := FileCrawl(ctx, client, FileCrawlerInput{
		Account:   "myaccount",
		Container: "container",
		Pattern:   "**/*.tif",
	})
	require.NoError(t, err)
	require.Len(t, urls, 2)
	var sawRootLevel bool
	for _, u := range urls {
		if strings.HasSuffix(u, "/scene.tif") {
			sawRootLevel = true
		}
	}
	require.True(t, sawRootLevel, "expected root-level scene.tif to match **/*.tif, got %v", urls)
}

func TestFileCrawlNoPatternReturnsAll(t *testing.T) {
	client := mem_gcsclient.New("container")
	ctx := context.Background()
	w := client.FileWriter(ctx, "a.json", gcs.FileWriteOptionsDefaults)
	_, _ = w.Write([]byte("x"))
	require.NoError(t, w.Close())

	urls, err := FileCrawl(ctx, client, FileCrawlerInput{Account: "acct", Container: "container"})
	require.NoError(t, err)
	require.Len(t, urls, 1)
}

func TestGlobToRegexDoubleStarCrossesSlash(t *testing.T) {
	re := globToRegex("**/*.tif")
	require.Equal(t, "(?:.*/)?[^/]*\\.tif", re)
}
