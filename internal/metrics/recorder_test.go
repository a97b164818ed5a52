package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type spyRecorder struct {
	stageDurations map[string]int
	stageResults   map[string]map[ResultLabel]int
	jobOutcomes    map[JobOutcomeLabel]int
	cacheEvictions map[string]int
	retries        map[string]int
}

func newSpyRecorder() *spyRecorder {
	return &spyRecorder{
		stageDurations: map[string]int{},
		stageResults:   map[string]map[ResultLabel]int{},
		jobOutcomes:    map[JobOutcomeLabel]int{},
		cacheEvictions: map[string]int{},
		retries:        map[string]int{},
	}
}

func (s *spyRecorder) ObserveStageDuration(stage string, _ time.Duration) { s.stageDurations[stage]++ }
func (s *spyRecorder) IncStageResult(stage string, result ResultLabel) {
	m, ok := s.stageResults[stage]
	if !ok {
		m = map[ResultLabel]int{}
		s.stageResults[stage] = m
	}
	m[result]++
}
func (s *spyRecorder) ObserveJobDuration(time.Duration)         {}
func (s *spyRecorder) IncJobOutcome(o JobOutcomeLabel)          { s.jobOutcomes[o]++ }
func (s *spyRecorder) SetQueueDepth(int)                        {}
func (s *spyRecorder) SetActiveWorkers(int)                     {}
func (s *spyRecorder) IncJobRetention(int)                      {}
func (s *spyRecorder) ObserveCloneDuration(string, time.Duration, bool) {}
func (s *spyRecorder) IncCloneResult(bool)                      {}
func (s *spyRecorder) IncCacheEviction(reason string)           { s.cacheEvictions[reason]++ }
func (s *spyRecorder) SetCacheSizeMB(int)                       {}
func (s *spyRecorder) IncVaultOperation(string, bool)            {}
func (s *spyRecorder) IncRetry(op string)                        { s.retries[op]++ }
func (s *spyRecorder) IncRetryExhausted(string)                  {}

func TestSpyRecorderImplementsRecorder(t *testing.T) {
	var _ Recorder = newSpyRecorder()
}

func TestSpyRecorderCountsStageResults(t *testing.T) {
	r := newSpyRecorder()
	r.ObserveStageDuration("fetch_code", 10*time.Millisecond)
	r.IncStageResult("fetch_code", ResultSuccess)
	r.IncStageResult("fetch_code", ResultFatal)
	r.IncCacheEviction("quota")
	r.IncJobOutcome(JobOutcomeSuccess)

	assert.Equal(t, 1, r.stageDurations["fetch_code"])
	assert.Equal(t, 1, r.stageResults["fetch_code"][ResultSuccess])
	assert.Equal(t, 1, r.stageResults["fetch_code"][ResultFatal])
	assert.Equal(t, 1, r.cacheEvictions["quota"])
	assert.Equal(t, 1, r.jobOutcomes[JobOutcomeSuccess])
}

func TestNoopRecorderImplementsRecorder(t *testing.T) {
	var _ Recorder = NoopRecorder{}
	r := NoopRecorder{}
	r.ObserveStageDuration("x", time.Second)
	r.IncStageResult("x", ResultSuccess)
	r.ObserveJobDuration(time.Second)
	r.IncJobOutcome(JobOutcomeFailed)
	r.SetQueueDepth(1)
	r.SetActiveWorkers(1)
	r.IncJobRetention(1)
	r.ObserveCloneDuration("repo", time.Second, true)
	r.IncCloneResult(true)
	r.IncCacheEviction("ttl")
	r.SetCacheSizeMB(1)
	r.IncVaultOperation("get", true)
	r.IncRetry("clone")
	r.IncRetryExhausted("clone")
}
