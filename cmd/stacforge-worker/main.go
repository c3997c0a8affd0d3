// Command stacforge-worker runs the Temporal worker that hosts
// BulkTransform and its activities: crawling, per-scene transform,
// collection build, and catalog ingestion trigger.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"cloud.google.com/go/bigtable"
	"cloud.google.com/go/storage"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/Azure/microsoft-planetary-computer-pro/go/gcs"
	"github.com/Azure/microsoft-planetary-computer-pro/internal/activities"
	"github.com/Azure/microsoft-planetary-computer-pro/internal/catalog"
	"github.com/Azure/microsoft-planetary-computer-pro/internal/config"
	"github.com/Azure/microsoft-planetary-computer-pro/internal/engine"
	"github.com/Azure/microsoft-planetary-computer-pro/internal/ingestionsource"
	"github.com/Azure/microsoft-planetary-computer-pro/internal/obslog"
	"github.com/Azure/microsoft-planetary-computer-pro/internal/stac"
	"github.com/Azure/microsoft-planetary-computer-pro/internal/workflow"
)

var (
	temporalHostPort  = flag.String("temporal_host_port", "localhost:7233", "Temporal frontend address.")
	temporalNamespace = flag.String("temporal_namespace", "default", "Temporal namespace.")
	taskQueue         = flag.String("task_queue", "stacforge-bulk-transform", "Temporal task queue this worker polls.")

	gcpProject = flag.String("gcp_project", "", "GCP project backing the blob store and, if configured, the log sink.")

	catalogBaseURL    = flag.String("catalog_base_url", "", "Base URL of the STAC ingestion API (empty disables catalog wiring; orchestrations must then omit target_catalog_url).")
	catalogTokenURL   = flag.String("catalog_token_url", "", "OAuth2 client-credentials token endpoint for the catalog.")
	catalogClientID   = flag.String("catalog_client_id", "", "")
	catalogClientSecret = flag.String("catalog_client_secret", "", "")
	catalogScope      = flag.String("catalog_scope", "", "Space-separated OAuth2 scopes requested for the catalog token.")

	bigtableInstance = flag.String("bigtable_instance", "", "Bigtable instance for shipped logs (empty disables the remote log sink; glog remains active).")
	templateCacheSize = flag.Int("template_cache_size", 256, "Number of compiled GeoTemplates kept resident.")
)

func main() {
	flag.Parse()
	ctx := context.Background()
	cfg := config.Load()

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stacforge-worker: storage client: %v\n", err)
		os.Exit(1)
	}
	gcsClient := gcs.NewStorageGCSClient(storageClient, cfg.DataContainer)
	fetcher := gcs.NewHTTPFetcher()

	env := engine.NewEnvironment(fetcher)
	loader := engine.NewGCSLoader(fetcher.DownloadFromURL)
	templateCache, err := engine.NewTemplateCache(env, loader, *templateCacheSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stacforge-worker: template cache: %v\n", err)
		os.Exit(1)
	}

	a := &activities.Activities{
		GCSClient:      gcsClient,
		Fetcher:        fetcher,
		TemplateCache:  templateCache,
		SchemaProvider: schemaProvider(fetcher),
	}

	if *catalogBaseURL != "" {
		tokenSource := catalogTokenSource(ctx)
		catalogClient := catalog.New(*catalogBaseURL, tokenSource)
		mint := delegationCredentialMinter(storageClient.Bucket(cfg.DataContainer), cfg)
		manager := ingestionsource.NewWithThresholds(catalogClient, mint, nil, cfg.MinSASTokenExpiration, cfg.DefaultSASTokenExpiration)
		a.Catalog = catalogClient
		a.Ensure = manager.Ensure
	}

	if *bigtableInstance != "" {
		btClient, err := bigtable.NewClient(ctx, *gcpProject, *bigtableInstance)
		if err != nil {
			fmt.Fprintf(os.Stderr, "stacforge-worker: bigtable client: %v\n", err)
			os.Exit(1)
		}
		sink := obslog.NewBigtableSink(btClient.Open(cfg.LogsTable), "log", 4096)
		obslog.Sink = sink.Ship
		defer sink.Close()
	}

	temporalClient, err := client.Dial(client.Options{
		HostPort:  *temporalHostPort,
		Namespace: *temporalNamespace,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "stacforge-worker: temporal dial: %v\n", err)
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, *taskQueue, worker.Options{})
	w.RegisterWorkflow(workflow.BulkTransform)
	w.RegisterActivity(a)

	if err := w.Run(worker.InterruptCh()); err != nil {
		fmt.Fprintf(os.Stderr, "stacforge-worker: run: %v\n", err)
		os.Exit(1)
	}
}

// catalogTokenSource builds a client-credentials token source, cached and
// auto-refreshed by oauth2.ReuseTokenSource (wrapped in by
// clientcredentials.Config.TokenSource itself), satisfying C2's "at most
// one refresh in flight" requirement without catalog.Client adding its own
// caching layer.
func catalogTokenSource(ctx context.Context) oauth2.TokenSource {
	cfg := &clientcredentials.Config{
		ClientID:     *catalogClientID,
		ClientSecret: *catalogClientSecret,
		TokenURL:     *catalogTokenURL,
	}
	if *catalogScope != "" {
		cfg.Scopes = strings.Fields(*catalogScope)
	}
	return cfg.TokenSource(ctx)
}

// delegationCredentialMinter adapts gcs.GenerateContainerDelegationCredential
// to ingestionsource.CredentialMinter. This worker is configured against a
// single storage account/container pair (per internal/config's env
// surface), so every containerURL ensure() is asked to mint a credential
// for resolves to the one bucket this process was started against.
func delegationCredentialMinter(bucket *storage.BucketHandle, cfg *config.Config) ingestionsource.CredentialMinter {
	return func(ctx context.Context, containerURL string, ttl time.Duration) (string, *time.Time, error) {
		cred, err := gcs.GenerateContainerDelegationCredential(bucket, "", ttl, time.Now())
		if err != nil {
			return "", nil, err
		}
		return cred.URL, &cred.Expiry, nil
	}
}

func schemaProvider(fetcher *gcs.HTTPFetcher) func(ctx context.Context, templateURL string) (*stac.Schema, error) {
	cache, _ := lru.New(64)
	return func(ctx context.Context, templateURL string) (*stac.Schema, error) {
		schemaURL := schemaURLForTemplate(templateURL)
		if v, ok := cache.Get(schemaURL); ok {
			return v.(*stac.Schema), nil
		}
		raw, err := fetcher.FetchBytes(ctx, schemaURL)
		if err != nil {
			return nil, fmt.Errorf("fetch schema %s: %w", schemaURL, err)
		}
		schema, err := stac.CompileSchema(raw)
		if err != nil {
			return nil, err
		}
		cache.Add(schemaURL, schema)
		return schema, nil
	}
}

// schemaURLForTemplate derives a GeoTemplate's sibling schema document:
// the template URL with its extension replaced by ".schema.json".
func schemaURLForTemplate(templateURL string) string {
	if idx := strings.LastIndex(templateURL, "."); idx >= 0 {
		return templateURL[:idx] + ".schema.json"
	}
	return templateURL + ".schema.json"
}
