package api

import (
	"net"
	"net/http"
	"strconv"

	"github.com/dd0wney/cluso-synapse/pkg/activation"
	"github.com/dd0wney/cluso-synapse/pkg/api/middleware"
	"github.com/dd0wney/cluso-synapse/pkg/audit"
	"github.com/dd0wney/cluso-synapse/pkg/logging"
	"github.com/dd0wney/cluso-synapse/pkg/validation"
)

// maxAuditLimit caps GET /audit?limit=.
const maxAuditLimit = 1000

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.store.Snapshot())
}

// handleActivate replaces the set, or with append merges into it. nodeIds
// take default names; explicit nodes win over a bare id for the same node.
func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	var req validation.ActivateRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := validation.ValidateActivateRequest(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	nodes := make([]activation.Node, 0, len(req.NodeIDs)+len(req.Nodes))
	for _, id := range req.NodeIDs {
		nodes = append(nodes, activation.Node{ID: id, Name: activation.DefaultName(id)})
	}
	for _, n := range req.Nodes {
		nodes = append(nodes, activation.Node{ID: n.ID, Name: n.Name})
	}

	var (
		snap activation.Snapshot
		op   audit.Action
	)
	if req.Append {
		snap, op = s.store.Append(nodes), audit.ActionAppend
	} else {
		snap, op = s.store.Replace(nodes), audit.ActionReplace
	}
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	s.recordWrite(r, op, snap, ids)
	s.respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Reset()
	s.recordWrite(r, audit.ActionReset, snap, nil)
	s.respondJSON(w, http.StatusOK, snap)
}

// handleAudit lists recent writes, newest first. Query parameters: limit,
// subject and action.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 50
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxAuditLimit {
			s.respondError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxAuditLimit))
			return
		}
		limit = n
	}
	events := s.audit.Recent(limit, audit.Filter{
		Subject: q.Get("subject"),
		Action:  audit.Action(q.Get("action")),
	})
	s.respondJSON(w, http.StatusOK, AuditResponse{Events: events, Total: s.audit.Total()})
}

func (s *Server) recordWrite(r *http.Request, op audit.Action, snap activation.Snapshot, ids []string) {
	s.metrics.RecordActivationWrite(string(op), len(snap.Nodes), snap.Version)

	event := audit.Event{
		Action:    op,
		NodeIDs:   ids,
		Version:   snap.Version,
		Active:    len(snap.Nodes),
		RequestID: middleware.GetRequestID(r),
		RemoteIP:  remoteIP(r),
	}
	fields := []logging.Field{
		logging.String("operation", string(op)),
		logging.IDs("node_ids", ids),
		logging.Count(len(snap.Nodes)),
		logging.Version(snap.Version),
		logging.RequestID(event.RequestID),
	}
	if claims, ok := middleware.GetClaims(r); ok {
		event.Subject, event.Role = claims.Subject, claims.Role
		fields = append(fields, logging.Subject(claims.Subject))
	}
	s.audit.Record(event)
	s.logger.Info("activation set updated", fields...)
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
