package telemetry

import (
	"strings"
	"sync"
)

// Report is a single call made to a Recorder.
type Report struct {
	ID     string
	Params []any
}

// Recorder is an API that keeps every report in memory so tests can assert
// that a component reported what it should have.
type Recorder struct {
	mu       sync.Mutex
	broken   []Report
	warnings []Report
	counts   map[string]int64
}

func NewRecorder() *Recorder {
	return &Recorder{counts: map[string]int64{}}
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broken = append(r.broken, Report{ID: id, Params: params})
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, Report{ID: id, Params: params})
}

func (r *Recorder) ReportDebug(string, ...any) {}

func (r *Recorder) ReportCount(id string, count int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[id] = count
}

func (r *Recorder) Broken() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Report(nil), r.broken...)
}

func (r *Recorder) Warnings() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Report(nil), r.warnings...)
}

// Count returns the last count reported for an id ending in `suffix`, this
// lets tests ignore the namespace a ScopedAPI prepends.
func (r *Recorder) Count(suffix string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, n := range r.counts {
		if strings.HasSuffix(id, suffix) {
			return n, true
		}
	}
	return 0, false
}
