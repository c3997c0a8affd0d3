package activities

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/Azure/microsoft-planetary-computer-pro/go/gcs"
	"github.com/Azure/microsoft-planetary-computer-pro/go/gcs/mem_gcsclient"
	"github.com/Azure/microsoft-planetary-computer-pro/internal/catalog"
	"github.com/Azure/microsoft-planetary-computer-pro/internal/engine"
	"github.com/Azure/microsoft-planetary-computer-pro/internal/stac"
)

type fakeFetcher struct{ sources map[string]string }

func (f *fakeFetcher) FetchText(ctx context.Context, url string) (string, error) {
	return f.sources[url], nil
}
func (f *fakeFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	return []byte(f.sources[url]), nil
}

type fakeLoader struct{ sources map[string]string }

func (l *fakeLoader) Load(ctx context.Context, url string) (string, error) {
	src, ok := l.sources[url]
	if !ok {
		return "", engine.ErrTemplateNotFound
	}
	return src, nil
}

func TestFileCrawlActivity(t *testing.T) {
	client := mem_gcsclient.New("container")
	ctx := context.Background()
	w := client.FileWriter(ctx, "scene1.tif", gcs.FileWriteOptionsDefaults)
	_, _ = w.Write([]byte("x"))
	require.NoError(t, w.Close())

	a := &Activities{GCSClient: client}
	urls, err := a.FileCrawl(ctx, FileCrawlInput{
		Correlation: Correlation{OrchestrationID: "o1", OrchestrationName: "BulkTransform"},
		Account:     "acct",
		Container:   "container",
		Pattern:     "*.tif",
	})
	require.NoError(t, err)
	require.Len(t, urls, 1)
}

func TestIndexCrawlActivity(t *testing.T) {
	fetcher := &fakeFetcher{sources: map[string]string{"idx": "https://a\n# skip\nhttps://b\n"}}
	a := &Activities{Fetcher: fetcher}
	urls, err := a.IndexCrawl(context.Background(), IndexCrawlInput{
		IndexURL:                "idx",
		IgnoreLinesStartingWith: "#",
	})
	require.NoError(t, err)
	require.Equal(t, []interface{}{"https://a", "https://b"}, urls)
}

func TestIndexCrawlActivityNDJSONPassesRecordVerbatim(t *testing.T) {
	fetcher := &fakeFetcher{sources: map[string]string{"idx": "# header\n{\"id\":\"a\"}\n{\"id\":\"b\"}\n"}}
	a := &Activities{Fetcher: fetcher}
	scenes, err := a.IndexCrawl(context.Background(), IndexCrawlInput{
		IndexURL:                "idx",
		IsNDJSON:                true,
		IgnoreLinesStartingWith: "#",
	})
	require.NoError(t, err)
	require.Equal(t, []interface{}{
		map[string]interface{}{"id": "a"},
		map[string]interface{}{"id": "b"},
	}, scenes)
}

// TestTransformSceneAcceptsStructuredScene exercises a structured
// (NDJSON) scene record flowing through to the template as scene_info,
// rather than being narrowed to a single string field.
func TestTransformSceneAcceptsStructuredScene(t *testing.T) {
	client := mem_gcsclient.New("container")
	env := engine.NewEnvironment(&fakeFetcher{})
	loader := &fakeLoader{sources: map[string]string{
		"tmpl": `{"id":"{{.id}}","type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{},"assets":{}}`,
	}}
	cache, err := engine.NewTemplateCache(env, loader, 10)
	require.NoError(t, err)

	a := &Activities{GCSClient: client, TemplateCache: cache}
	ok, err := a.TransformScene(context.Background(), TransformSceneInput{
		Scene:       map[string]interface{}{"id": "scene-from-ndjson"},
		TemplateURL: "tmpl",
		ItemsPath:   "o1/items",
	})
	require.NoError(t, err)
	require.True(t, ok)

	names, err := client.ListFiles(context.Background(), "o1/items/")
	require.NoError(t, err)
	require.Len(t, names, 1)

	contents, err := client.GetFileContents(context.Background(), names[0])
	require.NoError(t, err)
	var item stac.Item
	require.NoError(t, json.Unmarshal(contents, &item))
	require.Equal(t, "scene-from-ndjson", item.ID)
}

func TestTransformSceneUploadsRenderedItem(t *testing.T) {
	client := mem_gcsclient.New("container")
	env := engine.NewEnvironment(&fakeFetcher{})
	loader := &fakeLoader{sources: map[string]string{
		"tmpl": `{"id":"{{.}}","type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{},"assets":{}}`,
	}}
	cache, err := engine.NewTemplateCache(env, loader, 10)
	require.NoError(t, err)

	a := &Activities{GCSClient: client, TemplateCache: cache}
	ok, err := a.TransformScene(context.Background(), TransformSceneInput{
		Scene:       "scene-1",
		TemplateURL: "tmpl",
		ItemsPath:   "o1/items",
	})
	require.NoError(t, err)
	require.True(t, ok)

	names, err := client.ListFiles(context.Background(), "o1/items/")
	require.NoError(t, err)
	require.Len(t, names, 1)

	contents, err := client.GetFileContents(context.Background(), names[0])
	require.NoError(t, err)
	var item stac.Item
	require.NoError(t, json.Unmarshal(contents, &item))
	require.Equal(t, "scene-1", item.ID)
}

func TestTransformSceneSwallowsErrorsIntoFalse(t *testing.T) {
	client := mem_gcsclient.New("container")
	env := engine.NewEnvironment(&fakeFetcher{})
	loader := &fakeLoader{sources: map[string]string{}} // template missing

	cache, err := engine.NewTemplateCache(env, loader, 10)
	require.NoError(t, err)

	a := &Activities{GCSClient: client, TemplateCache: cache}
	ok, err := a.TransformScene(context.Background(), TransformSceneInput{
		Scene:       "scene-1",
		TemplateURL: "missing",
		ItemsPath:   "o1/items",
	})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBuildCollectionListsItemsAndUploadsManifest(t *testing.T) {
	client := mem_gcsclient.New("container")
	ctx := context.Background()
	for _, name := range []string{"o1/items/a.json", "o1/items/b.json"} {
		w := client.FileWriter(ctx, name, gcs.FileWriteOptionsDefaults)
		_, _ = w.Write([]byte("{}"))
		require.NoError(t, w.Close())
	}

	a := &Activities{GCSClient: client}
	url, err := a.BuildCollection(ctx, BuildCollectionInput{BaseDir: "o1"})
	require.NoError(t, err)
	require.Contains(t, url, "o1/collection.json")

	contents, err := client.GetFileContents(ctx, "o1/collection.json")
	require.NoError(t, err)
	var manifest stac.Collection
	require.NoError(t, json.Unmarshal(contents, &manifest))
	require.Len(t, manifest.Links, 2)
}

func TestTriggerIngestionEnsuresSourceThenIngests(t *testing.T) {
	var gotRuns int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/ingestion-sources" && r.Method == http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"value": []map[string]string{}})
		case r.URL.Path == "/api/ingestion-sources" && r.Method == http.MethodPost:
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"id":         "src-1",
				"sourceType": "SasToken",
				"connectionInfo": map[string]interface{}{
					"containerUrl": "https://acct.blob.core.windows.net/out",
					"sasToken":     "sv=minted",
				},
			})
		case r.URL.Path == "/api/collections/coll-1/ingestions" && r.Method == http.MethodPost:
			_ = json.NewEncoder(w).Encode(map[string]string{"ingestionId": "ing-1"})
		case r.URL.Path == "/api/collections/coll-1/ingestions/ing-1/runs" && r.Method == http.MethodPost:
			gotRuns++
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"operation": map[string]string{"operationId": "run-1"},
			})
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	client := catalog.New(srv.URL, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "t"}))

	a := &Activities{
		Catalog: client,
		Ensure: func(ctx context.Context, containerURL string) error {
			_, err := client.CreateIngestionSource(ctx, containerURL, "sv=minted")
			return err
		},
	}
	result, err := a.TriggerIngestion(context.Background(), TriggerIngestionInput{
		CollectionID:  "coll-1",
		CollectionURL: "https://acct.blob.core.windows.net/out/collection.json",
	})
	require.NoError(t, err)
	require.Equal(t, "ing-1", result.IngestionID)
	require.Equal(t, "run-1", result.RunID)
	require.Equal(t, 1, gotRuns)
}
