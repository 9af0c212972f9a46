package transcode

import (
	"context"
	"fmt"
	"sync"
)

// StubSubmitter records submissions and hands out sequential job ids. It
// stands in for MediaConvert in tests and when the server runs without a
// transcoding role configured.
type StubSubmitter struct {
	mu   sync.Mutex
	err  error
	next int
	jobs []StubJob
}

// StubJob captures one recorded submission.
type StubJob struct {
	SourceKey    string
	OutputPrefix string
	JobID        string
}

// NewStubSubmitter returns an empty recorder.
func NewStubSubmitter() *StubSubmitter { return &StubSubmitter{} }

// Fail makes every subsequent Submit return err.
func (s *StubSubmitter) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *StubSubmitter) Submit(ctx context.Context, sourceKey, outputPrefix string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.next++
	jobID := fmt.Sprintf("stub-job-%04d", s.next)
	s.jobs = append(s.jobs, StubJob{SourceKey: sourceKey, OutputPrefix: outputPrefix, JobID: jobID})
	return jobID, nil
}

// Jobs returns the submissions recorded so far.
func (s *StubSubmitter) Jobs() []StubJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := make([]StubJob, len(s.jobs))
	copy(jobs, s.jobs)
	return jobs
}
