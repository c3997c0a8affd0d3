// Package catalog is the HTTP gateway to the STAC ingestion API: listing,
// creating, and updating ingestion sources, and posting bulk ingestions,
// per spec.md §4.2 and §6.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/Azure/microsoft-planetary-computer-pro/go/httputils"
)

// DefaultAPIVersion is the query parameter value attached to every request
// when the caller doesn't configure one explicitly.
const DefaultAPIVersion = "2024-01-31-preview"

// IngestionSource is the catalog's record of a scoped, expiring credential
// granting it read access to one container. Expiration is nil for
// policy-based credentials the catalog issued itself rather than one this
// gateway minted.
type IngestionSource struct {
	ID           string
	SourceType   string
	ContainerURL string
	SasToken     string
	Expiration   *time.Time
}

// connectionInfo is the wire shape nested under "connectionInfo" in every
// ingestion-source request/response body per spec.md §6.
type connectionInfo struct {
	ContainerURL string     `json:"containerUrl"`
	SasToken     string     `json:"sasToken"`
	Expiration   *time.Time `json:"expiration,omitempty"`
}

type ingestionSourceWire struct {
	ID             string         `json:"id"`
	SourceType     string         `json:"sourceType"`
	ConnectionInfo connectionInfo `json:"connectionInfo"`
}

func (w ingestionSourceWire) toIngestionSource() IngestionSource {
	return IngestionSource{
		ID:           w.ID,
		SourceType:   w.SourceType,
		ContainerURL: w.ConnectionInfo.ContainerURL,
		SasToken:     w.ConnectionInfo.SasToken,
		Expiration:   w.ConnectionInfo.Expiration,
	}
}

// Client talks to the ingestion API over HTTP, authenticating every
// request with a bearer token drawn from a pluggable oauth2.TokenSource
// (cached/refreshed by the token source itself — oauth2.ReuseTokenSource
// already gives "at most one refresh in flight, reused until near
// expiry", so Client adds no caching of its own on top of it).
type Client struct {
	BaseURL     string
	APIVersion  string
	TokenSource oauth2.TokenSource
	HTTPClient  *http.Client
}

// New builds a Client using the teacher's backoff transport for transient
// HTTP failures (408/429/5xx). baseURL is the catalog root, e.g.
// "https://catalog.example.com"; "/api/..." paths are appended to it.
func New(baseURL string, tokenSource oauth2.TokenSource) *Client {
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		APIVersion:  DefaultAPIVersion,
		TokenSource: tokenSource,
		HTTPClient: &http.Client{
			Transport: httputils.NewConfiguredBackOffTransport(httputils.NewFixedBackOffConfig(), http.DefaultTransport),
		},
	}
}

func (c *Client) apiVersion() string {
	if c.APIVersion != "" {
		return c.APIVersion
	}
	return DefaultAPIVersion
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("catalog: encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}

	full := c.BaseURL + "/api" + path
	req, err := http.NewRequestWithContext(ctx, method, full, reader)
	if err != nil {
		return fmt.Errorf("catalog: build request: %w", err)
	}
	q := req.URL.Query()
	q.Set("api-version", c.apiVersion())
	req.URL.RawQuery = q.Encode()
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token, err := c.TokenSource.Token()
	if err != nil {
		return fmt.Errorf("catalog: get token: %w", err)
	}
	token.SetAuthHeader(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("catalog: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("catalog: %s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ListIngestionSources returns every ingestion source keyed by its
// container URL, a two-step fetch (list of ids, then one GET per id for
// details) per spec.md §4.2 and §6. Records missing an expiration
// (policy-based credentials, not ones this gateway minted) are skipped
// rather than reported, since this gateway cannot refresh what it didn't
// issue.
func (c *Client) ListIngestionSources(ctx context.Context) (map[string]IngestionSource, error) {
	var listed struct {
		Value []struct {
			ID string `json:"id"`
		} `json:"value"`
	}
	if err := c.do(ctx, http.MethodGet, "/ingestion-sources", nil, &listed); err != nil {
		return nil, err
	}
	out := make(map[string]IngestionSource, len(listed.Value))
	for _, entry := range listed.Value {
		var wire ingestionSourceWire
		if err := c.do(ctx, http.MethodGet, "/ingestion-sources/"+url.PathEscape(entry.ID), nil, &wire); err != nil {
			return nil, err
		}
		src := wire.toIngestionSource()
		if src.Expiration == nil {
			continue
		}
		out[src.ContainerURL] = src
	}
	return out, nil
}

// CreateIngestionSource registers a fresh delegation credential scoped to
// containerURL and returns the record the catalog created.
func (c *Client) CreateIngestionSource(ctx context.Context, containerURL, sasToken string) (*IngestionSource, error) {
	body := map[string]interface{}{
		"sourceType": "SasToken",
		"connectionInfo": connectionInfo{
			ContainerURL: containerURL,
			SasToken:     sasToken,
		},
	}
	var wire ingestionSourceWire
	if err := c.do(ctx, http.MethodPost, "/ingestion-sources", body, &wire); err != nil {
		return nil, err
	}
	src := wire.toIngestionSource()
	return &src, nil
}

// UpdateIngestionSource replaces the credential on an existing ingestion
// source by id.
func (c *Client) UpdateIngestionSource(ctx context.Context, id, containerURL, newSasToken string) (*IngestionSource, error) {
	body := map[string]interface{}{
		"id":         id,
		"sourceType": "SasToken",
		"connectionInfo": connectionInfo{
			ContainerURL: containerURL,
			SasToken:     newSasToken,
		},
	}
	var wire ingestionSourceWire
	if err := c.do(ctx, http.MethodPut, "/ingestion-sources/"+url.PathEscape(id), body, &wire); err != nil {
		return nil, err
	}
	src := wire.toIngestionSource()
	return &src, nil
}

// BulkIngestResult carries the ids bulk_ingest hands back to the workflow
// for its Output.
type BulkIngestResult struct {
	IngestionID string
	RunID       string
}

// BulkIngest posts a StaticCatalog ingestion for collectionURL under
// collectionID and triggers a run, ensuring an ingestion source exists
// first via ensure (injected so callers can supply the §4.8 policy
// without this package depending on internal/ingestionsource, avoiding an
// import cycle since ingestionsource itself calls catalog).
func (c *Client) BulkIngest(ctx context.Context, collectionID, collectionURL string, ensure func(ctx context.Context, containerURL string) error) (*BulkIngestResult, error) {
	containerURL, err := containerRootURL(collectionURL)
	if err != nil {
		return nil, fmt.Errorf("catalog: bulk ingest: %w", err)
	}
	if err := ensure(ctx, containerURL); err != nil {
		return nil, fmt.Errorf("catalog: bulk ingest: ensure ingestion source: %w", err)
	}

	var ingestion struct {
		IngestionID string `json:"ingestionId"`
	}
	body := map[string]interface{}{
		"importType":         "StaticCatalog",
		"sourceCatalogUrl":   collectionURL,
		"skipExistingItems":  false,
		"keepOriginalAssets": false,
	}
	ingestPath := fmt.Sprintf("/collections/%s/ingestions", url.PathEscape(collectionID))
	if err := c.do(ctx, http.MethodPost, ingestPath, body, &ingestion); err != nil {
		return nil, err
	}

	var run struct {
		Operation struct {
			OperationID string `json:"operationId"`
		} `json:"operation"`
	}
	runPath := fmt.Sprintf("/collections/%s/ingestions/%s/runs", url.PathEscape(collectionID), url.PathEscape(ingestion.IngestionID))
	if err := c.do(ctx, http.MethodPost, runPath, map[string]interface{}{}, &run); err != nil {
		return nil, err
	}
	return &BulkIngestResult{IngestionID: ingestion.IngestionID, RunID: run.Operation.OperationID}, nil
}

// containerRootURL derives scheme + host + first path segment from a
// collection URL, e.g. https://acct.blob.core.windows.net/container/deep/path.json
// -> https://acct.blob.core.windows.net/container.
func containerRootURL(collectionURL string) (string, error) {
	u, err := url.Parse(collectionURL)
	if err != nil {
		return "", fmt.Errorf("parse collection url: %w", err)
	}
	parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
	if len(parts) == 0 || parts[0] == "" {
		return "", fmt.Errorf("collection url %q has no container segment", collectionURL)
	}
	return fmt.Sprintf("%s://%s/%s", u.Scheme, u.Host, parts[0]), nil
}
