package internal

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// InspectRow is one line of the local store as shown by the debug endpoint.
type InspectRow struct {
	Key    string `json:"key"`
	Size   int64  `json:"size"`
	Detail string `json:"detail"`
}

type StatsProvider func() any
type RowsProvider func() ([]InspectRow, error)

// NewDebugRouter exposes the engine counters and the local store.
// ?prefix= filters store rows by key prefix.
func NewDebugRouter(stats StatsProvider, rows RowsProvider) http.Handler {
	r := chi.NewRouter()
	r.Get("/debug/stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, stats())
	})
	r.Get("/debug/store", func(w http.ResponseWriter, req *http.Request) {
		all, err := rows()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		prefix := req.URL.Query().Get("prefix")
		items := make([]InspectRow, 0, len(all))
		for _, row := range all {
			if strings.HasPrefix(row.Key, prefix) {
				items = append(items, row)
			}
		}
		writeJSON(w, http.StatusOK, items)
	})
	return r
}

// StartDebugServer serves the debug router on localhost until ctx is done.
func StartDebugServer(ctx context.Context, log *slog.Logger, port int, handler http.Handler) {
	srv := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("Debug server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !goerrors.Is(err, http.ErrServerClosed) {
			log.Warn("Debug server stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
