// Package httpapi is the thin HTTP adapter over the cache+WAL binding: it
// has no durability or concurrency logic of its own, only request parsing
// and status-code mapping.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/chuliyu/kvwal/internal/kv"
	"github.com/chuliyu/kvwal/internal/metrics"
)

type setRequest struct {
	Value string `json:"value"`
}

// Handler builds the HTTP surface: GET/POST/DELETE /key/{key} and GET /health.
func Handler(store *kv.Store, collector *metrics.Collector, log *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("GET /key/{key}", func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("key")
		collector.RecordGet()
		value, err := store.Get(key)
		if errors.Is(err, kv.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write(value)
	})

	mux.HandleFunc("POST /key/{key}", func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("key")
		var body setRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := store.Set(key, []byte(body.Value)); err != nil {
			log.Error("set failed", "key", key, "error", err)
			collector.RecordSetFailure()
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		collector.RecordSet()
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("DELETE /key/{key}", func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("key")
		err := store.Delete(key)
		switch {
		case errors.Is(err, kv.ErrNotFound):
			collector.RecordDeleteNotFound()
			w.WriteHeader(http.StatusNotFound)
		case err != nil:
			log.Error("delete failed", "key", key, "error", err)
			w.WriteHeader(http.StatusInternalServerError)
		default:
			collector.RecordDelete()
			w.WriteHeader(http.StatusOK)
		}
	})

	return mux
}
