// Package ngenapi holds the request and response types of the HTTP gateway.
package ngenapi

type SubmitWorkloadRequest struct {
	Type       string            `json:"type"`
	Complexity string            `json:"complexity"`
	Priority   string            `json:"priority"`
	Payload    string            `json:"payload"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type UtilizationReading struct {
	CPU    float64 `json:"cpu"`
	GPU    float64 `json:"gpu"`
	Neural float64 `json:"neural"`
	Memory float64 `json:"memory"`
}

type WorkloadResultResponse struct {
	WorkloadID  string             `json:"workload_id"`
	Strategy    string             `json:"strategy,omitempty"`
	Output      string             `json:"output,omitempty"`
	ArtifactURI string             `json:"artifact_uri,omitempty"`
	Confidence  float64            `json:"confidence"`
	ElapsedMS   int64              `json:"elapsed_ms"`
	Utilization UtilizationReading `json:"utilization"`
}

type SubmitBatchRequest struct {
	Workloads []SubmitWorkloadRequest `json:"workloads"`
}

type SubmitBatchResponse struct {
	Results []WorkloadResultResponse `json:"results"`
}

type EnqueueResponse struct {
	WorkloadID string `json:"workload_id"`
	QueueDepth int    `json:"queue_depth"`
}

type DispatchQueuedRequest struct {
	Max int `json:"max"`
}

type QueueStatisticsResponse struct {
	Total        int            `json:"total"`
	ByPriority   map[string]int `json:"by_priority"`
	ByType       map[string]int `json:"by_type"`
	ByComplexity map[string]int `json:"by_complexity"`
	AverageAgeMS int64          `json:"average_age_ms"`
}

type MetricsResponse struct {
	AvgUtilization UtilizationReading `json:"avg_utilization"`
	AvgElapsedMS   int64              `json:"avg_elapsed_ms"`
	AvgConfidence  float64            `json:"avg_confidence"`
	TotalProcessed uint64             `json:"total_processed"`
	WindowSize     int                `json:"window_size"`
}
