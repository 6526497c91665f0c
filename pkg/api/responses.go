package api

import "github.com/codeready-toolchain/logmask/pkg/record"

// ErrorResponse is returned with every 4xx and 5xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string      `json:"status"`
	Version string      `json:"version"`
	Logger  string      `json:"logger"`
	Policy  PolicyStats `json:"policy"`
}

// PolicyStats summarises the active masking policy.
type PolicyStats struct {
	Rules          int      `json:"rules"`
	SensitivePaths []string `json:"sensitive_paths"`
	MaskValue      string   `json:"mask_value"`
	DeepScan       bool     `json:"deep_scan"`
}

// CatalogResponse is returned by GET /api/v1/catalog.
type CatalogResponse struct {
	Entries []CatalogEntry      `json:"entries"`
	Groups  map[string][]string `json:"groups"`
}

// CatalogEntry describes one named pattern.
type CatalogEntry struct {
	Name        string `json:"name"`
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
	Description string `json:"description,omitempty"`
}

// MaskBatchResponse is returned by POST /api/v1/mask/batch.
type MaskBatchResponse struct {
	Records []record.Record `json:"records"`
	Count   int             `json:"count"`
}

// IngestResponse is returned by POST /api/v1/logs.
type IngestResponse struct {
	Accepted int `json:"accepted"`
	Written  int `json:"written"`
}
