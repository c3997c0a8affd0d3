// Package workflow implements the durable orchestrator as a Temporal
// workflow: BulkTransform drives exactly one crawl, a fanned-out
// transform per scene, and a collection build, exposing its progress via
// a "status" query handler the way Durable Functions exposes
// custom_status.
package workflow

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/Azure/microsoft-planetary-computer-pro/internal/activities"
)

// CrawlingType selects which crawler activity BulkTransform invokes.
type CrawlingType string

const (
	CrawlingTypeFile  CrawlingType = "FILE"
	CrawlingTypeIndex CrawlingType = "INDEX"
)

// Status is the value surfaced through the "status" query handler,
// mirroring Durable Functions' custom_status.
type Status string

const (
	StatusInitializing       Status = "Initializing"
	StatusCrawling           Status = "Crawling"
	StatusTransforming       Status = "Transforming"
	StatusCreatingCollection Status = "CreatingCollection"
	StatusFinished           Status = "Finished"
	StatusFinishedWithErrors Status = "FinishedWithErrors"
	StatusFailed             Status = "Failed"
)

// Input is the orchestration's immutable request.
type Input struct {
	OrchestrationName                string
	CrawlingType                     CrawlingType
	SourceStorageAccount             string
	SourceContainer                  string
	Pattern                          string
	IndexFilePath                    string
	IndexFileIsNDJSON                bool
	IndexFileIgnoreLinesStartingWith string
	TemplateURL                      string
	TargetCollectionID               string
	TargetCatalogURL                 string
	Validate                         bool
}

// Output is BulkTransform's terminal return value.
type Output struct {
	CollectionURL string `json:"collectionUrl,omitempty"`
	TotalItems    int    `json:"totalItems,omitempty"`
	SuccessCount  int    `json:"successCount,omitempty"`
	FailedCount   int    `json:"failedCount,omitempty"`
	IngestionID   string `json:"ingestionId,omitempty"`
	RunID         string `json:"runId,omitempty"`
	Warning       string `json:"warning,omitempty"`
	Error         string `json:"error,omitempty"`
}

func validateInput(in Input) error {
	switch in.CrawlingType {
	case CrawlingTypeFile:
		if in.IndexFilePath != "" {
			return fmt.Errorf("index_file_path must be absent for FILE crawling")
		}
	case CrawlingTypeIndex:
		if in.IndexFilePath == "" {
			return fmt.Errorf("index_file_path is required for INDEX crawling")
		}
		if in.Pattern != "" {
			return fmt.Errorf("pattern must be absent for INDEX crawling")
		}
	default:
		return fmt.Errorf("unrecognized crawling_type %q", in.CrawlingType)
	}
	return nil
}

var defaultActivityOptions = workflow.ActivityOptions{
	StartToCloseTimeout: 10 * time.Minute,
}

// BulkTransform is the Temporal workflow implementing spec.md §4.7's exact
// state machine and algorithm.
func BulkTransform(ctx workflow.Context, in Input) (Output, error) {
	info := workflow.GetInfo(ctx)
	orchestrationID := info.WorkflowExecution.ID
	instanceID := orchestrationID

	status := StatusInitializing
	if err := workflow.SetQueryHandler(ctx, "status", func() (Status, error) {
		return status, nil
	}); err != nil {
		return Output{}, err
	}

	ctx = workflow.WithActivityOptions(ctx, defaultActivityOptions)
	corr := activities.Correlation{OrchestrationID: orchestrationID, OrchestrationName: in.OrchestrationName}

	if err := validateInput(in); err != nil {
		status = StatusFailed
		return Output{Error: err.Error()}, nil
	}

	status = StatusCrawling
	scenes, err := crawl(ctx, corr, in)
	if err != nil {
		status = StatusFailed
		return Output{Error: firstLine(err.Error())}, nil
	}
	if len(scenes) == 0 {
		status = StatusFinished
		return Output{}, nil
	}

	status = StatusTransforming
	itemsPath := instanceID + "/items"
	successCount, failedCount, err := transformAll(ctx, corr, in, scenes, itemsPath)
	if err != nil {
		status = StatusFailed
		return Output{Error: firstLine(err.Error())}, nil
	}
	if successCount == 0 {
		if failedCount == 0 {
			status = StatusFinished
		} else {
			status = StatusFinishedWithErrors
		}
		return Output{Warning: "No scenes transformed"}, nil
	}

	status = StatusCreatingCollection
	var collectionURL string
	err = workflow.ExecuteActivity(ctx, "BuildCollection", activities.BuildCollectionInput{
		Correlation: corr,
		BaseDir:     instanceID,
	}).Get(ctx, &collectionURL)
	if err != nil {
		status = StatusFailed
		return Output{Error: firstLine(err.Error())}, nil
	}

	if failedCount == 0 {
		status = StatusFinished
	} else {
		status = StatusFinishedWithErrors
	}

	out := Output{
		CollectionURL: collectionURL,
		TotalItems:    len(scenes),
		SuccessCount:  successCount,
		FailedCount:   failedCount,
	}

	// target_catalog_url is optional (spec.md §3): orchestrations that omit
	// it stop at publishing the collection document and leave handing it
	// to the catalog to the caller.
	if in.TargetCatalogURL != "" {
		var result activities.TriggerIngestionResult
		if err := workflow.ExecuteActivity(ctx, (*activities.Activities).TriggerIngestion, activities.TriggerIngestionInput{
			Correlation:   corr,
			CollectionID:  in.TargetCollectionID,
			CollectionURL: collectionURL,
		}).Get(ctx, &result); err != nil {
			status = StatusFailed
			return Output{Error: firstLine(err.Error())}, nil
		}
		out.IngestionID = result.IngestionID
		out.RunID = result.RunID
	}

	return out, nil
}

// crawl runs exactly one crawler activity and returns its scene list.
// Scenes are opaque (spec.md §3): a FILE crawl always yields blob URL
// strings, an INDEX crawl yields strings or, in NDJSON mode, structured
// records — either way the orchestrator never inspects them, only counts
// and fans them out.
func crawl(ctx workflow.Context, corr activities.Correlation, in Input) ([]interface{}, error) {
	switch in.CrawlingType {
	case CrawlingTypeFile:
		var urls []string
		if err := workflow.ExecuteActivity(ctx, (*activities.Activities).FileCrawl, activities.FileCrawlInput{
			Correlation: corr,
			Account:     in.SourceStorageAccount,
			Container:   in.SourceContainer,
			Pattern:     in.Pattern,
		}).Get(ctx, &urls); err != nil {
			return nil, err
		}
		scenes := make([]interface{}, len(urls))
		for i, u := range urls {
			scenes[i] = u
		}
		return scenes, nil
	case CrawlingTypeIndex:
		var scenes []interface{}
		if err := workflow.ExecuteActivity(ctx, (*activities.Activities).IndexCrawl, activities.IndexCrawlInput{
			Correlation:             corr,
			IndexURL:                in.IndexFilePath,
			IsNDJSON:                in.IndexFileIsNDJSON,
			IgnoreLinesStartingWith: in.IndexFileIgnoreLinesStartingWith,
		}).Get(ctx, &scenes); err != nil {
			return nil, err
		}
		return scenes, nil
	}
	return nil, nil
}

// transformAll fans out one TransformScene activity per scene and awaits
// all of them (bounded partial failure: the per-activity swallow in
// activities.TransformScene means this Get never itself fails for a bad
// scene).
func transformAll(ctx workflow.Context, corr activities.Correlation, in Input, scenes []interface{}, itemsPath string) (success, failed int, err error) {
	futures := make([]workflow.Future, len(scenes))
	for i, scene := range scenes {
		futures[i] = workflow.ExecuteActivity(ctx, (*activities.Activities).TransformScene, activities.TransformSceneInput{
			Correlation: corr,
			Scene:       scene,
			TemplateURL: in.TemplateURL,
			ItemsPath:   itemsPath,
			Validate:    in.Validate,
		})
	}
	for _, f := range futures {
		var ok bool
		if getErr := f.Get(ctx, &ok); getErr != nil {
			return 0, 0, getErr
		}
		if ok {
			success++
		} else {
			failed++
		}
	}
	return success, failed, nil
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
