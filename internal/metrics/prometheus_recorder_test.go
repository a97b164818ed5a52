package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ObserveStageDuration("static_analysis", 150*time.Millisecond)
	pr.IncStageResult("static_analysis", ResultSuccess)
	pr.ObserveJobDuration(500 * time.Millisecond)
	pr.IncJobOutcome(JobOutcomeSuccess)
	pr.SetQueueDepth(3)
	pr.SetActiveWorkers(2)
	pr.IncJobRetention(4)
	pr.ObserveCloneDuration("acme/widgets", 2*time.Second, true)
	pr.IncCloneResult(true)
	pr.IncCacheEviction("quota")
	pr.SetCacheSizeMB(1024)
	pr.IncVaultOperation("get", true)
	pr.IncRetry("clone")
	pr.IncRetryExhausted("clone")

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)
}

func TestPrometheusRecorderNilReceiverIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.ObserveStageDuration("x", time.Second)
	pr.IncStageResult("x", ResultSuccess)
	pr.ObserveJobDuration(time.Second)
	pr.IncJobOutcome(JobOutcomeFailed)
	pr.SetQueueDepth(1)
	pr.SetActiveWorkers(1)
	pr.IncJobRetention(1)
	pr.ObserveCloneDuration("repo", time.Second, false)
	pr.IncCloneResult(false)
	pr.IncCacheEviction("ttl")
	pr.SetCacheSizeMB(1)
	pr.IncVaultOperation("store", false)
	pr.IncRetry("op")
	pr.IncRetryExhausted("op")
}
