// Package activities implements the Temporal activities the orchestrator
// fans work out to: crawling, per-scene transform, and collection build.
// Each receives the correlation ids the orchestrator carries and installs
// an obslog scope bound to them for the duration of the call.
package activities

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.temporal.io/sdk/activity"

	"github.com/Azure/microsoft-planetary-computer-pro/go/gcs"
	"github.com/Azure/microsoft-planetary-computer-pro/internal/catalog"
	"github.com/Azure/microsoft-planetary-computer-pro/internal/crawl"
	"github.com/Azure/microsoft-planetary-computer-pro/internal/engine"
	"github.com/Azure/microsoft-planetary-computer-pro/internal/geotemplate"
	"github.com/Azure/microsoft-planetary-computer-pro/internal/obslog"
	"github.com/Azure/microsoft-planetary-computer-pro/internal/stac"
)

// Correlation carries the identifiers every activity input embeds so the
// obslog scope can be installed before any work begins.
type Correlation struct {
	OrchestrationID   string
	OrchestrationName string
}

func (c Correlation) scope(ctx context.Context, activityName string) context.Context {
	activityID := ""
	if info := safeActivityInfo(ctx); info != nil {
		activityID = info.ActivityID
	}
	return obslog.ActivityScope(ctx, c.OrchestrationID, c.OrchestrationName, activityName, activityID)
}

func safeActivityInfo(ctx context.Context) *activity.Info {
	defer func() { recover() }() //nolint:errcheck
	info := activity.GetInfo(ctx)
	return &info
}

// Activities bundles the gateways every activity function needs; its
// methods are registered on the Temporal worker as activity functions.
type Activities struct {
	GCSClient      gcs.GCSClient
	Fetcher        engine.Fetcher
	TemplateCache  engine.TemplateCache
	SchemaProvider func(ctx context.Context, templateURL string) (*stac.Schema, error)

	// Catalog and Ensure back the TriggerIngestion activity (C2 + C8).
	// Both may be nil for orchestrations that never set target_catalog_url.
	Catalog *catalog.Client
	Ensure  func(ctx context.Context, containerURL string) error
}

// FileCrawlInput is the C6 file_crawl activity's input.
type FileCrawlInput struct {
	Correlation
	Account   string
	Container string
	Pattern   string
}

// FileCrawl lists blobs matching a glob, producing container-qualified
// URLs.
func (a *Activities) FileCrawl(ctx context.Context, in FileCrawlInput) ([]string, error) {
	ctx = in.scope(ctx, "FileCrawl")
	obslog.Info(ctx, "crawling files")
	urls, err := crawl.FileCrawl(ctx, a.GCSClient, crawl.FileCrawlerInput{
		Account:   in.Account,
		Container: in.Container,
		Pattern:   in.Pattern,
	})
	if err != nil {
		obslog.Errorf(ctx, "file crawl failed: %v", err)
		return nil, err
	}
	return urls, nil
}

// IndexCrawlInput is the C6 index_crawl activity's input.
type IndexCrawlInput struct {
	Correlation
	IndexURL                string
	IsNDJSON                bool
	IgnoreLinesStartingWith string
}

// IndexCrawl downloads and parses an index document into scene
// references: plain strings when IsNDJSON is false, or the verbatim
// decoded JSON record per line when true (spec.md §3 treats a Scene as
// opaque to the orchestrator).
func (a *Activities) IndexCrawl(ctx context.Context, in IndexCrawlInput) ([]interface{}, error) {
	ctx = in.scope(ctx, "IndexCrawl")
	obslog.Info(ctx, "crawling index")
	scenes, err := crawl.IndexCrawl(ctx, a.Fetcher, crawl.IndexCrawlerInput{
		IndexURL:      in.IndexURL,
		CommentPrefix: in.IgnoreLinesStartingWith,
		IsNDJSON:      in.IsNDJSON,
	})
	if err != nil {
		obslog.Errorf(ctx, "index crawl failed: %v", err)
		return nil, err
	}
	return scenes, nil
}

// TransformSceneInput is the C6 transform_scene activity's input. Scene
// is opaque (a blob URL string or a structured NDJSON record) and is
// passed verbatim to the template as scene_info.
type TransformSceneInput struct {
	Correlation
	Scene       interface{}
	TemplateURL string
	ItemsPath   string
	Validate    bool
}

// TransformScene renders one scene's STAC item and uploads it. Any
// failure is swallowed into a false result (never returned as an error)
// so a single bad scene never fails the fan-out; per spec.md §4.6 this is
// logged as a warning carrying the scene identifier.
func (a *Activities) TransformScene(ctx context.Context, in TransformSceneInput) (bool, error) {
	ctx = in.scope(ctx, "TransformScene")

	ok, err := a.transformScene(ctx, in)
	if err != nil {
		obslog.Warningf(ctx, "transform failed for scene=%v: %v", in.Scene, err)
		return false, nil
	}
	return ok, nil
}

func (a *Activities) transformScene(ctx context.Context, in TransformSceneInput) (bool, error) {
	tmpl, err := a.TemplateCache.Get(ctx, in.TemplateURL)
	if err != nil {
		return false, fmt.Errorf("fetch template: %w", err)
	}

	var schema *stac.Schema
	if in.Validate && a.SchemaProvider != nil {
		schema, err = a.SchemaProvider(ctx, in.TemplateURL)
		if err != nil {
			return false, fmt.Errorf("load schema: %w", err)
		}
	}

	gt := geotemplate.New(tmpl, schema)
	item, err := gt.RenderStac(in.Scene, in.Validate)
	if err != nil {
		return false, fmt.Errorf("render stac: %w", err)
	}

	payload, err := json.Marshal(item)
	if err != nil {
		return false, fmt.Errorf("marshal item: %w", err)
	}

	invocationID := ""
	if info := safeActivityInfo(ctx); info != nil {
		invocationID = info.ActivityID
	}
	if invocationID == "" {
		invocationID = item.ID
	}

	path := strings.TrimRight(in.ItemsPath, "/") + "/" + invocationID + ".json"
	if err := gcs.WithWriteFile(a.GCSClient, ctx, path, gcs.FileWriteOptionsDefaults, func(w io.Writer) error {
		_, werr := w.Write(payload)
		return werr
	}); err != nil {
		return false, fmt.Errorf("upload item: %w", err)
	}
	return true, nil
}

// BuildCollectionInput is the C6 build_collection activity's input.
type BuildCollectionInput struct {
	Correlation
	BaseDir string
}

// BuildCollection lists every uploaded item under <base_dir>/items/ and
// writes a Collection Manifest to <base_dir>/collection.json, returning
// its blob URL.
func (a *Activities) BuildCollection(ctx context.Context, in BuildCollectionInput) (string, error) {
	ctx = in.scope(ctx, "BuildCollection")
	obslog.Info(ctx, "building collection")

	prefix := strings.TrimRight(in.BaseDir, "/") + "/items/"
	names, err := a.GCSClient.ListFiles(ctx, prefix)
	if err != nil {
		obslog.Errorf(ctx, "list items failed: %v", err)
		return "", fmt.Errorf("build_collection: error creating collection: %w", err)
	}

	hrefs := make([]string, 0, len(names))
	for _, name := range names {
		if strings.HasSuffix(name, ".json") {
			hrefs = append(hrefs, name)
		}
	}

	manifest := stac.NewCollectionManifest(hrefs)
	payload, err := json.Marshal(manifest)
	if err != nil {
		return "", fmt.Errorf("build_collection: error creating collection: %w", err)
	}

	collectionPath := strings.TrimRight(in.BaseDir, "/") + "/collection.json"
	if err := gcs.WithWriteFile(a.GCSClient, ctx, collectionPath, gcs.FileWriteOptionsDefaults, func(w io.Writer) error {
		_, werr := w.Write(payload)
		return werr
	}); err != nil {
		obslog.Errorf(ctx, "upload collection failed: %v", err)
		return "", fmt.Errorf("build_collection: error creating collection: %w", err)
	}
	return fmt.Sprintf("https://%s/%s", a.GCSClient.Bucket(), collectionPath), nil
}

// TriggerIngestionInput is the C2/C8 trigger_ingestion activity's input.
type TriggerIngestionInput struct {
	Correlation
	CollectionID  string
	CollectionURL string
}

// TriggerIngestionResult carries the ids back to the orchestrator, kept
// distinct from catalog.BulkIngestResult so the workflow package doesn't
// need to import internal/catalog just to read a Temporal activity result.
type TriggerIngestionResult struct {
	IngestionID string
	RunID       string
}

// TriggerIngestion guarantees the catalog holds a live credential for the
// collection's output container (§4.8) and then starts a StaticCatalog
// bulk ingestion (§4.2) against it.
func (a *Activities) TriggerIngestion(ctx context.Context, in TriggerIngestionInput) (TriggerIngestionResult, error) {
	ctx = in.scope(ctx, "TriggerIngestion")
	obslog.Info(ctx, "triggering catalog ingestion")
	result, err := a.Catalog.BulkIngest(ctx, in.CollectionID, in.CollectionURL, a.Ensure)
	if err != nil {
		obslog.Errorf(ctx, "trigger ingestion failed: %v", err)
		return TriggerIngestionResult{}, err
	}
	return TriggerIngestionResult{IngestionID: result.IngestionID, RunID: result.RunID}, nil
}
