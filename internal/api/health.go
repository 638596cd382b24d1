package api

import (
	"net/http"

	"github.com/mash-protocol/mash-expose/pkg/connection"
)

// stateReporter is implemented by clients with a controller link.
type stateReporter interface {
	State() connection.State
}

// handleHealth reports liveness. The controller link state is included
// when the client has one; a link that is down makes the check fail.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]string{
		"status":  "ok",
		"version": s.cfg.Version,
	}
	status := http.StatusOK
	if sr, ok := s.client.(stateReporter); ok {
		state := sr.State()
		resp["controller"] = state.String()
		if state != connection.StateConnected {
			resp["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}

// handleInfo describes the running exposer.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"version":          s.cfg.Version,
		"catalog_version":  s.catalog.Version(),
		"catalog_clusters": s.catalog.Len(),
	}
	if tree, err := s.client.NodeTree(r.Context()); err == nil {
		info["nodes"] = len(tree)
	}
	writeJSON(w, http.StatusOK, info)
}
