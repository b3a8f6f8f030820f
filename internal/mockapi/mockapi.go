// Package mockapi serves a json-server style data file so the pipeline can be
// run locally without the real roster/work API.
package mockapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"slices"
	"time"

	"rosteretl/internal/components/telemetry"

	"github.com/gorilla/mux"
)

// Data maps a collection name to its raw JSON array, object key order is kept
// as written in the file.
type Data map[string]json.RawMessage

// LoadData reads a file shaped like {"roster": [...], "work": [...]}.
func LoadData(path string) (Data, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseData(buf)
}

func ParseData(buf []byte) (Data, error) {
	var data Data
	err := json.Unmarshal(buf, &data)
	if err != nil {
		return nil, fmt.Errorf("parse data file: %w", err)
	}
	for name, raw := range data {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 || trimmed[0] != '[' {
			return nil, fmt.Errorf("collection %q is not a json array", name)
		}
	}
	return data, nil
}

// Collections returns the collection names in sorted order.
func (d Data) Collections() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

type server struct {
	data Data
	tel  telemetry.API
}

// NewHandler serves GET /{collection} for every collection in data and
// GET / with the list of collections.
func NewHandler(data Data, tel telemetry.API) http.Handler {
	s := server{data: data, tel: tel}

	router := mux.NewRouter()
	router.Use(s.logRequests)
	router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	router.HandleFunc("/{collection}", s.handleCollection).Methods(http.MethodGet)
	return router
}

func (s server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.tel.ReportDebug("request", "method", r.Method, "path", r.URL.Path, "took", time.Since(start))
	})
}

func (s server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.data.Collections())
}

func (s server) handleCollection(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["collection"]
	raw, ok := s.data[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": fmt.Sprintf("unknown collection %q", name),
		})
		return
	}
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(raw)
	if err != nil {
		s.tel.ReportWarning("write-response", err, "collection", name)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
