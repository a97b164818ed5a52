package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once sync.Once

	stageDuration *prom.HistogramVec
	stageResults  *prom.CounterVec

	jobDuration  prom.Histogram
	jobOutcomes  *prom.CounterVec
	queueDepth   prom.Gauge
	activeWorker prom.Gauge
	jobRetention prom.Counter

	cloneDuration *prom.HistogramVec
	cloneResults  *prom.CounterVec
	cacheEviction *prom.CounterVec
	cacheSizeMB   prom.Gauge

	vaultOps *prom.CounterVec

	retries          *prom.CounterVec
	retriesExhausted *prom.CounterVec
}

// NewPrometheusRecorder constructs Prometheus metrics and registers them on
// reg (a new registry if nil). Each call registers a new set, so calling it
// twice with the same registry panics on duplicate registration.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "codereviewer",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual orchestrator stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "codereviewer",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.jobDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "codereviewer",
			Name:      "job_duration_seconds",
			Help:      "Total scan job duration",
			Buckets:   prom.DefBuckets,
		})
		pr.jobOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "codereviewer",
			Name:      "job_outcomes_total",
			Help:      "Scan job outcomes by terminal status",
		}, []string{"outcome"})
		pr.queueDepth = prom.NewGauge(prom.GaugeOpts{
			Namespace: "codereviewer",
			Name:      "job_queue_depth",
			Help:      "Number of jobs currently queued",
		})
		pr.activeWorker = prom.NewGauge(prom.GaugeOpts{
			Namespace: "codereviewer",
			Name:      "job_queue_active_workers",
			Help:      "Number of workers currently processing a job",
		})
		pr.jobRetention = prom.NewCounter(prom.CounterOpts{
			Namespace: "codereviewer",
			Name:      "job_retention_sweeps_total",
			Help:      "Total number of terminal jobs removed by the retention sweep",
		})
		pr.cloneDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "codereviewer",
			Name:      "repo_clone_duration_seconds",
			Help:      "Duration of individual repository clone/sync operations",
			Buckets:   prom.DefBuckets,
		}, []string{"repo", "result"})
		pr.cloneResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "codereviewer",
			Name:      "repo_clone_results_total",
			Help:      "Clone/sync results by success/failure",
		}, []string{"result"})
		pr.cacheEviction = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "codereviewer",
			Name:      "repo_cache_evictions_total",
			Help:      "Repository cache evictions by reason (ttl|quota)",
		}, []string{"reason"})
		pr.cacheSizeMB = prom.NewGauge(prom.GaugeOpts{
			Namespace: "codereviewer",
			Name:      "repo_cache_size_mb",
			Help:      "Total repository cache size in megabytes",
		})
		pr.vaultOps = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "codereviewer",
			Name:      "vault_operations_total",
			Help:      "Token vault operations by kind and outcome",
		}, []string{"op", "result"})
		pr.retries = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "codereviewer",
			Name:      "retries_total",
			Help:      "Transient-failure retries by operation",
		}, []string{"op"})
		pr.retriesExhausted = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "codereviewer",
			Name:      "retries_exhausted_total",
			Help:      "Count of operations where retries were exhausted",
		}, []string{"op"})

		reg.MustRegister(
			pr.stageDuration, pr.stageResults,
			pr.jobDuration, pr.jobOutcomes, pr.queueDepth, pr.activeWorker, pr.jobRetention,
			pr.cloneDuration, pr.cloneResults, pr.cacheEviction, pr.cacheSizeMB,
			pr.vaultOps, pr.retries, pr.retriesExhausted,
		)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveJobDuration(d time.Duration) {
	if p == nil || p.jobDuration == nil {
		return
	}
	p.jobDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncJobOutcome(outcome JobOutcomeLabel) {
	if p == nil || p.jobOutcomes == nil {
		return
	}
	p.jobOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) SetQueueDepth(n int) {
	if p == nil || p.queueDepth == nil {
		return
	}
	p.queueDepth.Set(float64(n))
}

func (p *PrometheusRecorder) SetActiveWorkers(n int) {
	if p == nil || p.activeWorker == nil {
		return
	}
	p.activeWorker.Set(float64(n))
}

func (p *PrometheusRecorder) IncJobRetention(removed int) {
	if p == nil || p.jobRetention == nil || removed <= 0 {
		return
	}
	p.jobRetention.Add(float64(removed))
}

func (p *PrometheusRecorder) ObserveCloneDuration(repo string, d time.Duration, success bool) {
	if p == nil || p.cloneDuration == nil {
		return
	}
	p.cloneDuration.WithLabelValues(repo, resultString(success)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncCloneResult(success bool) {
	if p == nil || p.cloneResults == nil {
		return
	}
	p.cloneResults.WithLabelValues(resultString(success)).Inc()
}

func (p *PrometheusRecorder) IncCacheEviction(reason string) {
	if p == nil || p.cacheEviction == nil {
		return
	}
	p.cacheEviction.WithLabelValues(reason).Inc()
}

func (p *PrometheusRecorder) SetCacheSizeMB(n int) {
	if p == nil || p.cacheSizeMB == nil {
		return
	}
	p.cacheSizeMB.Set(float64(n))
}

func (p *PrometheusRecorder) IncVaultOperation(op string, success bool) {
	if p == nil || p.vaultOps == nil {
		return
	}
	p.vaultOps.WithLabelValues(op, resultString(success)).Inc()
}

func (p *PrometheusRecorder) IncRetry(op string) {
	if p == nil || p.retries == nil {
		return
	}
	p.retries.WithLabelValues(op).Inc()
}

func (p *PrometheusRecorder) IncRetryExhausted(op string) {
	if p == nil || p.retriesExhausted == nil {
		return
	}
	p.retriesExhausted.WithLabelValues(op).Inc()
}

func resultString(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}
