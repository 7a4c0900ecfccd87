package api

import (
	"github.com/dd0wney/cluso-synapse/pkg/activation"
	"github.com/dd0wney/cluso-synapse/pkg/audit"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// StatusResponse is the body of every activation endpoint: the resulting
// set and the version it was stored under.
type StatusResponse = activation.Snapshot

// AuditResponse is the body of GET /audit.
type AuditResponse struct {
	Events []audit.Event `json:"events"`
	Total  uint64        `json:"total"` // writes recorded since start, including evicted ones
}
