package api

import (
	"encoding/json"
	"net/http"

	"github.com/hypermesh/stoq/pkg/log"
)

// readOnly wraps a handler that may run on any cluster member: GET and
// HEAD only, classified by HTTP verb rather than a method-name prefix
// list.
func (s *Server) readOnly(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			writeError(w, http.StatusMethodNotAllowed, "only GET/HEAD allowed on this endpoint")
			return
		}
		h(w, r)
	})
}

// writeOnly wraps a handler that mutates cluster state: POST only, and
// rejected with the current leader's address if this node isn't it.
func (s *Server) writeOnly(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "only POST allowed on this endpoint")
			return
		}
		if !s.node.IsLeader() {
			if addr, ok := s.node.LeaderAddr(); ok {
				w.Header().Set("X-Stoq-Leader", addr.Host)
			}
			writeError(w, http.StatusConflict, "not the leader")
			return
		}
		h(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("api: encode response", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
