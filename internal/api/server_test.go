package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lthuynh/NeuralNGenAI/internal/artifact"
	"github.com/lthuynh/NeuralNGenAI/internal/compute"
	"github.com/lthuynh/NeuralNGenAI/internal/dispatcher"
	"github.com/lthuynh/NeuralNGenAI/internal/workload"
	"github.com/lthuynh/NeuralNGenAI/pkg/ngenapi"
)

// upperAdapter echoes the payload uppercased so responses are predictable.
type upperAdapter struct{}

func (upperAdapter) Class() compute.Class { return compute.ClassCPU }

func (upperAdapter) Process(_ context.Context, w workload.Workload) (workload.Result, error) {
	return workload.Result{
		Output:      strings.ToUpper(string(w.Payload)),
		Confidence:  0.75,
		Elapsed:     2 * time.Millisecond,
		Utilization: workload.Utilization{CPU: 40},
	}, nil
}

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	d := dispatcher.New(dispatcher.Options{Adapters: compute.NewSet(upperAdapter{})})
	srv := httptest.NewServer(NewServer(d, opts).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestSubmitWorkload(t *testing.T) {
	srv := newTestServer(t, Options{})
	resp := postJSON(t, srv.URL+"/v1/workloads", ngenapi.SubmitWorkloadRequest{
		Type:    "text_analysis",
		Payload: "hello",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var out ngenapi.WorkloadResultResponse
	decodeJSON(t, resp, &out)
	if out.Output != "HELLO" {
		t.Fatalf("output = %q, want %q", out.Output, "HELLO")
	}
	if out.Strategy != "cpu_only" {
		t.Fatalf("strategy = %q, want cpu_only without a capability snapshot", out.Strategy)
	}
	if out.WorkloadID == "" {
		t.Fatalf("workload id must be set")
	}
	if out.Confidence != 0.75 {
		t.Fatalf("confidence = %v, want 0.75", out.Confidence)
	}
}

func TestSubmitRejectsUnknownType(t *testing.T) {
	srv := newTestServer(t, Options{})
	resp := postJSON(t, srv.URL+"/v1/workloads", ngenapi.SubmitWorkloadRequest{Type: "quantum_annealing"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSubmitRequiresToken(t *testing.T) {
	srv := newTestServer(t, Options{APIToken: "sekrit"})

	resp := postJSON(t, srv.URL+"/v1/workloads", ngenapi.SubmitWorkloadRequest{Type: "text_analysis"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/workloads",
		strings.NewReader(`{"type":"text_analysis","payload":"x"}`))
	req.Header.Set("Authorization", "Bearer sekrit")
	authed, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("authorized request: %v", err)
	}
	authed.Body.Close()
	if authed.StatusCode != http.StatusOK {
		t.Fatalf("status with token = %d, want 200", authed.StatusCode)
	}
}

func TestSubmitBatch(t *testing.T) {
	srv := newTestServer(t, Options{})
	resp := postJSON(t, srv.URL+"/v1/workloads/batch", ngenapi.SubmitBatchRequest{
		Workloads: []ngenapi.SubmitWorkloadRequest{
			{Type: "text_analysis", Payload: "one"},
			{Type: "data_analysis", Payload: "two"},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var out ngenapi.SubmitBatchResponse
	decodeJSON(t, resp, &out)
	if len(out.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(out.Results))
	}
	if out.Results[0].Output != "ONE" || out.Results[1].Output != "TWO" {
		t.Fatalf("batch results out of input order: %+v", out.Results)
	}
}

func TestSubmitBatchRejectsEmpty(t *testing.T) {
	srv := newTestServer(t, Options{})
	resp := postJSON(t, srv.URL+"/v1/workloads/batch", ngenapi.SubmitBatchRequest{})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestQueueLifecycle(t *testing.T) {
	srv := newTestServer(t, Options{})

	var enq ngenapi.EnqueueResponse
	resp := postJSON(t, srv.URL+"/v1/queue", ngenapi.SubmitWorkloadRequest{Type: "text_analysis", Payload: "queued", Priority: "high"})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("enqueue status = %d, want 202", resp.StatusCode)
	}
	decodeJSON(t, resp, &enq)
	if enq.QueueDepth != 1 {
		t.Fatalf("queue depth = %d, want 1", enq.QueueDepth)
	}

	statsResp, err := http.Get(srv.URL + "/v1/queue/statistics")
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	var stats ngenapi.QueueStatisticsResponse
	decodeJSON(t, statsResp, &stats)
	if stats.Total != 1 || stats.ByPriority["high"] != 1 {
		t.Fatalf("statistics = %+v", stats)
	}

	var out ngenapi.SubmitBatchResponse
	decodeJSON(t, postJSON(t, srv.URL+"/v1/queue/dispatch", ngenapi.DispatchQueuedRequest{}), &out)
	if len(out.Results) != 1 || out.Results[0].Output != "QUEUED" {
		t.Fatalf("dispatch results = %+v", out.Results)
	}

	empty := ngenapi.SubmitBatchResponse{}
	decodeJSON(t, postJSON(t, srv.URL+"/v1/queue/dispatch", ngenapi.DispatchQueuedRequest{}), &empty)
	if len(empty.Results) != 0 {
		t.Fatalf("draining an empty queue must return no results, got %d", len(empty.Results))
	}
}

func TestQueueClear(t *testing.T) {
	srv := newTestServer(t, Options{})
	postJSON(t, srv.URL+"/v1/queue", ngenapi.SubmitWorkloadRequest{Type: "text_analysis"}).Body.Close()

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/queue", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("clear status = %d, want 200", resp.StatusCode)
	}

	statsResp, err := http.Get(srv.URL + "/v1/queue/statistics")
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	var stats ngenapi.QueueStatisticsResponse
	decodeJSON(t, statsResp, &stats)
	if stats.Total != 0 {
		t.Fatalf("queue total after clear = %d, want 0", stats.Total)
	}
}

func TestMetricsEndpointReflectsSubmissions(t *testing.T) {
	srv := newTestServer(t, Options{})
	postJSON(t, srv.URL+"/v1/workloads", ngenapi.SubmitWorkloadRequest{Type: "text_analysis", Payload: "x"}).Body.Close()

	resp, err := http.Get(srv.URL + "/v1/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	var m ngenapi.MetricsResponse
	decodeJSON(t, resp, &m)
	if m.TotalProcessed != 1 {
		t.Fatalf("total processed = %d, want 1", m.TotalProcessed)
	}
	if m.AvgConfidence != 0.75 {
		t.Fatalf("avg confidence = %v, want 0.75", m.AvgConfidence)
	}
}

func TestPrometheusEndpoint(t *testing.T) {
	srv := newTestServer(t, Options{})
	postJSON(t, srv.URL+"/v1/workloads", ngenapi.SubmitWorkloadRequest{Type: "text_analysis", Payload: "x"}).Body.Close()

	resp, err := http.Get(srv.URL + "/v1/metrics/prometheus")
	if err != nil {
		t.Fatalf("prometheus: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type = %q, want text/plain", ct)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(buf.String(), "dispatches_total") {
		t.Fatalf("render missing dispatch counter:\n%s", buf.String())
	}
}

func TestLargeOutputOffloadsToArtifactStore(t *testing.T) {
	root := t.TempDir()
	srv := newTestServer(t, Options{
		Artifacts:   artifact.NewLocalStore(root),
		InlineLimit: 4,
	})
	resp := postJSON(t, srv.URL+"/v1/workloads", ngenapi.SubmitWorkloadRequest{Type: "text_analysis", Payload: "longer than four"})
	var out ngenapi.WorkloadResultResponse
	decodeJSON(t, resp, &out)
	if out.Output != "" {
		t.Fatalf("large output should be offloaded, got inline %q", out.Output)
	}
	if out.ArtifactURI == "" {
		t.Fatalf("artifact uri must be set for offloaded output")
	}
	data, err := os.ReadFile(filepath.Join(root, out.WorkloadID, "output.txt"))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != "LONGER THAN FOUR" {
		t.Fatalf("artifact content = %q", data)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, Options{})
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
