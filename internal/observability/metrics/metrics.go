package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

type requestLabel struct {
	method string
	path   string
	status string
}

// PublishLabel identifies a publish pipeline outcome: result is "success" or
// "failure", and stage records which remote write failed ("" on success).
type PublishLabel struct {
	Result string
	Stage  string
}

// Recorder aggregates in-memory metrics for HTTP requests, publish pipeline
// outcomes, transcode job submissions, and like mutations. Writers coordinate
// through a RWMutex; readers get stable, sorted exposition output.
type Recorder struct {
	mu               sync.RWMutex
	requestCount     map[requestLabel]uint64
	requestDuration  map[requestLabel]time.Duration
	publishEvents    map[PublishLabel]uint64
	transcodeSubmits map[string]uint64
	likeEvents       map[string]uint64
}

var defaultRecorder = New()

// New constructs an empty Recorder with initialized backing maps so callers can
// immediately record metrics without additional setup.
func New() *Recorder {
	return &Recorder{
		requestCount:     make(map[requestLabel]uint64),
		requestDuration:  make(map[requestLabel]time.Duration),
		publishEvents:    make(map[PublishLabel]uint64),
		transcodeSubmits: make(map[string]uint64),
		likeEvents:       make(map[string]uint64),
	}
}

// Default returns the singleton Recorder shared by packages that do not wire a
// custom instrumentation pipeline.
func Default() *Recorder {
	return defaultRecorder
}

// ObserveRequest accumulates request count and cumulative duration by HTTP
// method, path, and status code.
func (r *Recorder) ObserveRequest(method, path string, status int, duration time.Duration) {
	label := requestLabel{
		method: strings.ToUpper(method),
		path:   normalizeName(path),
		status: fmt.Sprintf("%d", status),
	}
	r.mu.Lock()
	r.requestCount[label]++
	r.requestDuration[label] += duration
	r.mu.Unlock()
}

// PublishSucceeded records a completed publish pipeline run.
func (r *Recorder) PublishSucceeded() {
	r.recordPublish(PublishLabel{Result: "success"})
}

// PublishFailed records a publish run that aborted at the named stage
// ("validation", "upload", "transcode", or "persist").
func (r *Recorder) PublishFailed(stage string) {
	r.recordPublish(PublishLabel{Result: "failure", Stage: normalizeName(stage)})
}

func (r *Recorder) recordPublish(label PublishLabel) {
	r.mu.Lock()
	r.publishEvents[label]++
	r.mu.Unlock()
}

// ObserveTranscodeSubmission records a transcode job submission outcome
// ("submitted" or "rejected").
func (r *Recorder) ObserveTranscodeSubmission(outcome string) {
	key := normalizeName(outcome)
	r.mu.Lock()
	r.transcodeSubmits[key]++
	r.mu.Unlock()
}

// ObserveLike records a like mutation outcome ("applied", "not_found", or
// "failed").
func (r *Recorder) ObserveLike(outcome string) {
	key := normalizeName(outcome)
	r.mu.Lock()
	r.likeEvents[key]++
	r.mu.Unlock()
}

// PublishCounts returns a copy of the publish outcome counters for tests and
// reporting.
func (r *Recorder) PublishCounts() map[PublishLabel]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[PublishLabel]uint64, len(r.publishEvents))
	for k, v := range r.publishEvents {
		out[k] = v
	}
	return out
}

// LikeCounts returns a copy of the like outcome counters.
func (r *Recorder) LikeCounts() map[string]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]uint64, len(r.likeEvents))
	for k, v := range r.likeEvents {
		out[k] = v
	}
	return out
}

// Reset clears all counters on the recorder. Intended for test setups.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestCount = make(map[requestLabel]uint64)
	r.requestDuration = make(map[requestLabel]time.Duration)
	r.publishEvents = make(map[PublishLabel]uint64)
	r.transcodeSubmits = make(map[string]uint64)
	r.likeEvents = make(map[string]uint64)
}

// Handler exposes the Recorder as an http.Handler that writes Prometheus text
// exposition data with the appropriate content type.
func (r *Recorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		r.Write(w)
	})
}

// Write renders the Recorder's metrics in Prometheus text format, sorting label
// sets to provide stable output for scrapes and tests.
func (r *Recorder) Write(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	requestLabels := r.sortedRequestLabels()
	publishLabels := r.sortedPublishLabels()
	transcodeOutcomes := sortedKeys(r.transcodeSubmits)
	likeOutcomes := sortedKeys(r.likeEvents)

	fmt.Fprintln(w, "# HELP reelcast_http_requests_total Total number of HTTP requests processed by the API")
	fmt.Fprintln(w, "# TYPE reelcast_http_requests_total counter")
	for _, label := range requestLabels {
		fmt.Fprintf(w, "reelcast_http_requests_total{method=%q,path=%q,status=%q} %d\n", label.method, label.path, label.status, r.requestCount[label])
	}

	fmt.Fprintln(w, "# HELP reelcast_http_request_duration_seconds_sum Cumulative duration of HTTP requests in seconds")
	fmt.Fprintln(w, "# TYPE reelcast_http_request_duration_seconds_sum counter")
	for _, label := range requestLabels {
		fmt.Fprintf(w, "reelcast_http_request_duration_seconds_sum{method=%q,path=%q,status=%q} %f\n", label.method, label.path, label.status, r.requestDuration[label].Seconds())
	}

	fmt.Fprintln(w, "# HELP reelcast_publish_total Publish pipeline outcomes by result and failed stage")
	fmt.Fprintln(w, "# TYPE reelcast_publish_total counter")
	for _, label := range publishLabels {
		fmt.Fprintf(w, "reelcast_publish_total{result=%q,stage=%q} %d\n", label.Result, label.Stage, r.publishEvents[label])
	}

	fmt.Fprintln(w, "# HELP reelcast_transcode_submissions_total Transcode job submissions by outcome")
	fmt.Fprintln(w, "# TYPE reelcast_transcode_submissions_total counter")
	for _, outcome := range transcodeOutcomes {
		fmt.Fprintf(w, "reelcast_transcode_submissions_total{outcome=%q} %d\n", outcome, r.transcodeSubmits[outcome])
	}

	fmt.Fprintln(w, "# HELP reelcast_likes_total Like mutations by outcome")
	fmt.Fprintln(w, "# TYPE reelcast_likes_total counter")
	for _, outcome := range likeOutcomes {
		fmt.Fprintf(w, "reelcast_likes_total{outcome=%q} %d\n", outcome, r.likeEvents[outcome])
	}
}

func (r *Recorder) sortedRequestLabels() []requestLabel {
	labels := make([]requestLabel, 0, len(r.requestCount))
	for label := range r.requestCount {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].path != labels[j].path {
			return labels[i].path < labels[j].path
		}
		if labels[i].method != labels[j].method {
			return labels[i].method < labels[j].method
		}
		return labels[i].status < labels[j].status
	})
	return labels
}

func (r *Recorder) sortedPublishLabels() []PublishLabel {
	labels := make([]PublishLabel, 0, len(r.publishEvents))
	for label := range r.publishEvents {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].Result != labels[j].Result {
			return labels[i].Result < labels[j].Result
		}
		return labels[i].Stage < labels[j].Stage
	})
	return labels
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func normalizeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
