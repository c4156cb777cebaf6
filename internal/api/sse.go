package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ohbang/internal/store"
)

// handleWatch streams the query result as server-sent events, one frame per
// change. ?id= selects a single item, otherwise q and category filter.
func (s *HTTPServer) handleWatch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ctx := r.Context()

	var watch *store.Watch
	switch {
	case q.Get("id") != "":
		id, err := strconv.ParseInt(q.Get("id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "id must be an integer")
			return
		}
		watch = s.svc.WatchItem(ctx, id)
	case q.Get("q") != "" || q.Get("category") != "":
		watch = s.svc.WatchFiltered(ctx, strings.TrimSpace(q.Get("q")), q.Get("category"))
	default:
		watch = s.svc.WatchMenu(ctx)
	}
	defer watch.Close()

	rc := http.NewResponseController(w)
	// streams outlive the server write timeout
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		s.logger.Warn().Err(err).Msg("streaming unsupported")
		return
	}

	for records := range watch.C {
		payload, err := json.Marshal(records)
		if err != nil {
			s.logger.Error().Err(err).Msg("encode watch frame")
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
