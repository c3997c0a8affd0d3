// Command stacforge-api exposes the orchestration trigger/poll HTTP
// surface from spec.md §6: POST to start a BulkTransform run, GET to poll
// its status, backed by a Temporal client rather than owning any
// pipeline state itself.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"go.temporal.io/sdk/client"
	enumspb "go.temporal.io/api/enums/v1"

	"github.com/Azure/microsoft-planetary-computer-pro/go/httputils"
	"github.com/Azure/microsoft-planetary-computer-pro/internal/workflow"
)

var (
	addr              = flag.String("http_addr", ":8080", "Address this API listens on.")
	temporalHostPort  = flag.String("temporal_host_port", "localhost:7233", "Temporal frontend address.")
	temporalNamespace = flag.String("temporal_namespace", "default", "Temporal namespace.")
	taskQueue         = flag.String("task_queue", "stacforge-bulk-transform", "Task queue BulkTransform workflows are dispatched to.")
	externalBaseURL   = flag.String("external_base_url", "http://localhost:8080", "Base URL this process is externally reachable at, used to build statusURL.")
)

type server struct {
	temporal client.Client
	taskQueue string
	baseURL  string
}

// startResponse is returned by POST /orchestrations/{name}.
type startResponse struct {
	WorkflowID string `json:"workflowId"`
	RunID      string `json:"runId"`
	StatusURL  string `json:"statusURL"`
}

// statusResponse is returned by GET /orchestrations/{name}/{workflowId}.
type statusResponse struct {
	RuntimeStatus string           `json:"runtimeStatus"`
	CustomStatus  workflow.Status  `json:"customStatus,omitempty"`
	Output        *workflow.Output `json:"output,omitempty"`
}

func (s *server) startOrchestration(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var in workflow.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, fmt.Sprintf("decode request: %v", err), http.StatusBadRequest)
		return
	}
	in.OrchestrationName = name

	run, err := s.temporal.ExecuteWorkflow(r.Context(), client.StartWorkflowOptions{
		TaskQueue: s.taskQueue,
	}, workflow.BulkTransform, in)
	if err != nil {
		http.Error(w, fmt.Sprintf("start orchestration: %v", err), http.StatusInternalServerError)
		return
	}

	resp := startResponse{
		WorkflowID: run.GetID(),
		RunID:      run.GetRunID(),
		StatusURL:  fmt.Sprintf("%s/orchestrations/%s/%s", s.baseURL, name, run.GetID()),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *server) pollOrchestration(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "workflowId")
	ctx := r.Context()

	described, err := s.temporal.DescribeWorkflowExecution(ctx, workflowID, "")
	if err != nil {
		http.Error(w, fmt.Sprintf("describe orchestration: %v", err), http.StatusNotFound)
		return
	}

	resp := statusResponse{
		RuntimeStatus: described.WorkflowExecutionInfo.Status.String(),
	}

	var custom workflow.Status
	if qv, err := s.temporal.QueryWorkflow(ctx, workflowID, "", "status"); err == nil {
		if err := qv.Get(&custom); err == nil {
			resp.CustomStatus = custom
		}
	}

	if described.WorkflowExecutionInfo.Status == enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED {
		var out workflow.Output
		run := s.temporal.GetWorkflow(ctx, workflowID, "")
		if err := run.Get(ctx, &out); err == nil {
			resp.Output = &out
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func main() {
	flag.Parse()

	temporalClient, err := client.Dial(client.Options{
		HostPort:  *temporalHostPort,
		Namespace: *temporalNamespace,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "stacforge-api: temporal dial: %v\n", err)
		os.Exit(1)
	}
	defer temporalClient.Close()

	s := &server{temporal: temporalClient, taskQueue: *taskQueue, baseURL: *externalBaseURL}

	r := chi.NewRouter()
	r.Post("/orchestrations/{name}", s.startOrchestration)
	r.Get("/orchestrations/{name}/{workflowId}", s.pollOrchestration)

	var h http.Handler = r
	h = httputils.CrossOriginResourcePolicy(h)
	h = httputils.HealthzAndHTTPS(h)

	if err := http.ListenAndServe(*addr, h); err != nil {
		fmt.Fprintf(os.Stderr, "stacforge-api: listen: %v\n", err)
		os.Exit(1)
	}
}
