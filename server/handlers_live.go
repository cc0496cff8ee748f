package server

import (
	"encoding/json"
	"net/http"
)

// HandleLive returns the current ordered set of live streams as JSON. The
// aggregator serves from cache inside the freshness window and otherwise fans
// out to the providers; either way this endpoint never errors, degrading to an
// empty array when everything is down.
func (h *Handlers) HandleLive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	streams := h.aggregator.GetLiveStreams(r.Context())
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(streams)
}
