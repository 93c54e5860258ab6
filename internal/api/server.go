// Package api exposes the dispatcher over HTTP. The core never depends on
// this layer; it is one possible caller.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/lthuynh/NeuralNGenAI/internal/artifact"
	"github.com/lthuynh/NeuralNGenAI/internal/dispatcher"
	"github.com/lthuynh/NeuralNGenAI/internal/observability"
	"github.com/lthuynh/NeuralNGenAI/internal/profile"
	"github.com/lthuynh/NeuralNGenAI/internal/queue"
	"github.com/lthuynh/NeuralNGenAI/internal/strategy"
	"github.com/lthuynh/NeuralNGenAI/internal/workload"
	"github.com/lthuynh/NeuralNGenAI/pkg/ngenapi"
)

type Options struct {
	APIToken string
	// Artifacts, when set, receives outputs larger than InlineLimit; the
	// response then carries the artifact URI instead of the inline output.
	Artifacts   artifact.Store
	InlineLimit int
	Logger      *zap.Logger
}

type Server struct {
	dispatcher  *dispatcher.Dispatcher
	auth        *authorizer
	artifacts   artifact.Store
	inlineLimit int
	log         *zap.Logger
}

func NewServer(d *dispatcher.Dispatcher, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	inlineLimit := opts.InlineLimit
	if inlineLimit <= 0 {
		inlineLimit = 64 * 1024
	}
	return &Server{
		dispatcher:  d,
		auth:        newAuthorizer(opts.APIToken),
		artifacts:   opts.Artifacts,
		inlineLimit: inlineLimit,
		log:         log,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/workloads", s.handleSubmit)
	mux.HandleFunc("/v1/workloads/batch", s.handleSubmitBatch)
	mux.HandleFunc("/v1/queue", s.handleQueue)
	mux.HandleFunc("/v1/queue/dispatch", s.handleDispatchQueued)
	mux.HandleFunc("/v1/queue/statistics", s.handleQueueStatistics)
	mux.HandleFunc("/v1/metrics", s.handleMetrics)
	mux.HandleFunc("/v1/metrics/prometheus", s.handleMetricsPrometheus)
	mux.HandleFunc("/v1/capabilities", s.handleCapabilities)
	mux.HandleFunc("/v1/capabilities/refresh", s.handleCapabilitiesRefresh)
	return withTracing(withLogging(s.log, mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.requireAuth(w, r) {
		return
	}
	var req ngenapi.SubmitWorkloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	wl, err := parseWorkload(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	st := strategy.Select(wl, s.dispatcher.Snapshot())
	res := s.dispatcher.Submit(r.Context(), wl)
	writeJSON(w, http.StatusOK, s.resultResponse(r.Context(), wl, st, res))
}

func (s *Server) handleSubmitBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.requireAuth(w, r) {
		return
	}
	var req ngenapi.SubmitBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Workloads) == 0 {
		writeError(w, http.StatusBadRequest, "workloads must not be empty")
		return
	}
	workloads := make([]workload.Workload, 0, len(req.Workloads))
	strategies := make([]strategy.Strategy, 0, len(req.Workloads))
	snap := s.dispatcher.Snapshot()
	for i, item := range req.Workloads {
		wl, err := parseWorkload(item)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("workload %d: %s", i, err.Error()))
			return
		}
		workloads = append(workloads, wl)
		strategies = append(strategies, strategy.Select(wl, snap))
	}
	results := s.dispatcher.SubmitBatch(r.Context(), workloads)
	resp := ngenapi.SubmitBatchResponse{Results: make([]ngenapi.WorkloadResultResponse, 0, len(results))}
	for i, res := range results {
		resp.Results = append(resp.Results, s.resultResponse(r.Context(), workloads[i], strategies[i], res))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		if !s.requireAuth(w, r) {
			return
		}
		var req ngenapi.SubmitWorkloadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		wl, err := parseWorkload(req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.dispatcher.Queue().Enqueue(wl)
		writeJSON(w, http.StatusAccepted, ngenapi.EnqueueResponse{
			WorkloadID: wl.ID,
			QueueDepth: s.dispatcher.Queue().Len(),
		})
	case http.MethodDelete:
		if !s.requireAuth(w, r) {
			return
		}
		s.dispatcher.Queue().Clear()
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleDispatchQueued(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.requireAuth(w, r) {
		return
	}
	var req ngenapi.DispatchQueuedRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	results := s.dispatcher.DispatchQueued(r.Context(), req.Max)
	resp := ngenapi.SubmitBatchResponse{Results: make([]ngenapi.WorkloadResultResponse, 0, len(results))}
	for _, res := range results {
		resp.Results = append(resp.Results, ngenapi.WorkloadResultResponse{
			Output:      res.Output,
			Confidence:  res.Confidence,
			ElapsedMS:   res.Elapsed.Milliseconds(),
			Utilization: utilizationReading(res.Utilization),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQueueStatistics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, statisticsResponse(s.dispatcher.Queue().Statistics()))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	m := s.dispatcher.CurrentMetrics()
	writeJSON(w, http.StatusOK, ngenapi.MetricsResponse{
		AvgUtilization: utilizationReading(m.AvgUtilization),
		AvgElapsedMS:   m.AvgElapsed.Milliseconds(),
		AvgConfidence:  m.AvgConfidence,
		TotalProcessed: m.TotalProcessed,
		WindowSize:     m.WindowSize,
	})
}

func (s *Server) handleMetricsPrometheus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(observability.Default.RenderPrometheus()))
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	snap := s.dispatcher.Snapshot()
	if snap == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "no capability snapshot configured"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleCapabilitiesRefresh re-profiles the local host and swaps the
// snapshot atomically; in-flight dispatches finish on the old one.
func (s *Server) handleCapabilitiesRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.requireAuth(w, r) {
		return
	}
	snap := profile.Detect()
	if old := s.dispatcher.Snapshot(); old != nil {
		// Detection cannot see GPU or neural hardware; keep what the
		// previous profile declared.
		snap.GPU = old.GPU
		snap.Neural = old.Neural
	}
	s.dispatcher.SetSnapshot(snap)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) resultResponse(ctx context.Context, wl workload.Workload, st strategy.Strategy, res workload.Result) ngenapi.WorkloadResultResponse {
	resp := ngenapi.WorkloadResultResponse{
		WorkloadID:  wl.ID,
		Strategy:    string(st),
		Output:      res.Output,
		Confidence:  res.Confidence,
		ElapsedMS:   res.Elapsed.Milliseconds(),
		Utilization: utilizationReading(res.Utilization),
	}
	if s.artifacts != nil && len(res.Output) > s.inlineLimit {
		uri, err := s.artifacts.Put(ctx, wl.ID, []byte(res.Output))
		if err != nil {
			s.log.Warn("artifact offload failed", zap.String("workload_id", wl.ID), zap.Error(err))
			return resp
		}
		resp.Output = ""
		resp.ArtifactURI = uri
	}
	return resp
}

func parseWorkload(req ngenapi.SubmitWorkloadRequest) (workload.Workload, error) {
	t, err := parseType(req.Type)
	if err != nil {
		return workload.Workload{}, err
	}
	c, err := parseComplexity(req.Complexity)
	if err != nil {
		return workload.Workload{}, err
	}
	p, err := parsePriority(req.Priority)
	if err != nil {
		return workload.Workload{}, err
	}
	return workload.New(t, c, p, []byte(req.Payload), req.Metadata), nil
}

func parseType(raw string) (workload.Type, error) {
	switch workload.Type(strings.ToLower(strings.TrimSpace(raw))) {
	case workload.TypeTextAnalysis:
		return workload.TypeTextAnalysis, nil
	case workload.TypeImageAnalysis:
		return workload.TypeImageAnalysis, nil
	case workload.TypeAudioAnalysis:
		return workload.TypeAudioAnalysis, nil
	case workload.TypeDataAnalysis:
		return workload.TypeDataAnalysis, nil
	case workload.TypeModelInference:
		return workload.TypeModelInference, nil
	default:
		return "", fmt.Errorf("unsupported workload type %q", raw)
	}
}

func parseComplexity(raw string) (workload.Complexity, error) {
	switch workload.Complexity(strings.ToLower(strings.TrimSpace(raw))) {
	case "":
		return workload.ComplexityMedium, nil
	case workload.ComplexityLow:
		return workload.ComplexityLow, nil
	case workload.ComplexityMedium:
		return workload.ComplexityMedium, nil
	case workload.ComplexityHigh:
		return workload.ComplexityHigh, nil
	default:
		return "", fmt.Errorf("unsupported complexity %q", raw)
	}
}

func parsePriority(raw string) (workload.Priority, error) {
	switch workload.Priority(strings.ToLower(strings.TrimSpace(raw))) {
	case workload.PriorityLow:
		return workload.PriorityLow, nil
	case workload.PriorityNormal:
		return workload.PriorityNormal, nil
	case workload.PriorityHigh:
		return workload.PriorityHigh, nil
	case workload.PriorityCritical:
		return workload.PriorityCritical, nil
	case "":
		return workload.PriorityNormal, nil
	default:
		return "", fmt.Errorf("unsupported priority %q", raw)
	}
}

func utilizationReading(u workload.Utilization) ngenapi.UtilizationReading {
	return ngenapi.UtilizationReading{CPU: u.CPU, GPU: u.GPU, Neural: u.Neural, Memory: u.Memory}
}

func statisticsResponse(st queue.Statistics) ngenapi.QueueStatisticsResponse {
	resp := ngenapi.QueueStatisticsResponse{
		Total:        st.Total,
		ByPriority:   make(map[string]int, len(st.ByPriority)),
		ByType:       make(map[string]int, len(st.ByType)),
		ByComplexity: make(map[string]int, len(st.ByComplexity)),
		AverageAgeMS: st.AverageAge.Milliseconds(),
	}
	for k, v := range st.ByPriority {
		resp.ByPriority[string(k)] = v
	}
	for k, v := range st.ByType {
		resp.ByType[string(k)] = v
	}
	for k, v := range st.ByComplexity {
		resp.ByComplexity[string(k)] = v
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func withLogging(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debug("http request", zap.String("method", r.Method), zap.String("path", r.URL.Path))
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func withTracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := observability.StartSpan(r.Context(), "http.request",
			attribute.String("http.method", r.Method),
			attribute.String("http.path", r.URL.Path),
		)
		defer span.End()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		if traceID := span.SpanContext().TraceID().String(); traceID != "" {
			sw.Header().Set("X-Trace-ID", traceID)
		}
		next.ServeHTTP(sw, r.WithContext(ctx))
		span.SetAttributes(attribute.Int("http.status_code", sw.status))
	})
}
