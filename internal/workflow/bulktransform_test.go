package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/Azure/microsoft-planetary-computer-pro/go/gcs"
	"github.com/Azure/microsoft-planetary-computer-pro/go/gcs/mem_gcsclient"
	"github.com/Azure/microsoft-planetary-computer-pro/internal/activities"
	"github.com/Azure/microsoft-planetary-computer-pro/internal/engine"
)

// fakeFetcher backs both the crawler and the template loader with
// in-memory sources, standing in for the blob store gateway without
// pulling HTTP into this end-to-end test.
type fakeFetcher struct{ sources map[string]string }

func (f *fakeFetcher) FetchText(_ context.Context, url string) (string, error) {
	return f.sources[url], nil
}
func (f *fakeFetcher) FetchBytes(_ context.Context, url string) ([]byte, error) {
	return []byte(f.sources[url]), nil
}

type fakeLoader struct{ sources map[string]string }

func (l *fakeLoader) Load(_ context.Context, url string) (string, error) {
	src, ok := l.sources[url]
	if !ok {
		return "", engine.ErrTemplateNotFound
	}
	return src, nil
}

const geotemplateSource = `{"id":"{{.}}","type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{},"assets":{}}`

func newTestActivities(t *testing.T, scenes []string) *activities.Activities {
	client := mem_gcsclient.New("output")
	for _, scene := range scenes {
		w := client.FileWriter(context.Background(), scene, gcs.FileWriteOptionsDefaults)
		_, err := w.Write([]byte("scene bytes"))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}

	loader := &fakeLoader{sources: map[string]string{"https://tmpl.example.com/geotemplate.txt": geotemplateSource}}
	fetcher := &fakeFetcher{sources: map[string]string{}}
	env := engine.NewEnvironment(fetcher)
	cache, err := engine.NewTemplateCache(env, loader, 8)
	require.NoError(t, err)

	return &activities.Activities{
		GCSClient:     client,
		Fetcher:       fetcher,
		TemplateCache: cache,
	}
}

// TestBulkTransformFileCrawlHappyPath drives the full FILE-crawl state
// machine (Crawling -> Transforming -> CreatingCollection -> Finished)
// against real activity implementations, using Temporal's test workflow
// environment instead of a live server.
func TestBulkTransformFileCrawlHappyPath(t *testing.T) {
	scenes := []string{"scene1.tif", "scene2.tif"}
	a := newTestActivities(t, scenes)

	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivity(a)

	env.ExecuteWorkflow(BulkTransform, Input{
		OrchestrationName:     "bulk-transform",
		CrawlingType:          CrawlingTypeFile,
		SourceStorageAccount:  "acct",
		SourceContainer:       "output",
		TemplateURL:           "https://tmpl.example.com/geotemplate.txt",
		TargetCollectionID:    "coll-1",
		TargetCatalogURL:      "",
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out Output
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, 2, out.TotalItems)
	require.Equal(t, 2, out.SuccessCount)
	require.Equal(t, 0, out.FailedCount)
	require.Contains(t, out.CollectionURL, "collection.json")
	require.Empty(t, out.Error)
}

// TestBulkTransformAllScenesFailingYieldsWarning exercises per-scene
// failure isolation: the only scene fails at the validation step
// (validate=true with no schema configured), so the run completes without
// a workflow error, with no successes and the "No scenes transformed"
// warning.
func TestBulkTransformAllScenesFailingYieldsWarning(t *testing.T) {
	scenes := []string{"scene1.tif"}
	a := newTestActivities(t, scenes)

	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivity(a)

	env.ExecuteWorkflow(BulkTransform, Input{
		OrchestrationName:    "bulk-transform",
		CrawlingType:         CrawlingTypeFile,
		SourceStorageAccount: "acct",
		SourceContainer:      "output",
		TemplateURL:          "https://tmpl.example.com/geotemplate.txt",
		TargetCollectionID:   "coll-1",
		Validate:             true,
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out Output
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, 0, out.SuccessCount)
	require.Equal(t, 1, out.FailedCount)
	require.Equal(t, "No scenes transformed", out.Warning)
}

// TestBulkTransformRejectsBadCrawlingModeInput asserts the crawling-mode
// precondition (spec testable property #1) fails synchronously, before
// any activity runs.
func TestBulkTransformRejectsBadCrawlingModeInput(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()

	env.ExecuteWorkflow(BulkTransform, Input{
		CrawlingType:  CrawlingTypeFile,
		IndexFilePath: "should-be-absent",
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out Output
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Contains(t, out.Error, "index_file_path must be absent")
}
