// Package orchestrator is the workflow graph (C5): a directed graph of
// named stages threading a single GraphState, routed by the state's own
// CurrentStep field rather than a fixed linear order. It generalizes the
// teacher's Pipeline/RunStages shape (a fixed ordered stage list with
// timing, issue recording, and an abort-on-fatal contract) into dynamic,
// state-driven dispatch: every stage decides its own successor instead of
// the caller supplying a static sequence.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aidino/aicode-reviewer/internal/agents"
	"github.com/aidino/aicode-reviewer/internal/logfields"
	"github.com/aidino/aicode-reviewer/internal/metrics"
	"github.com/aidino/aicode-reviewer/internal/model"
)

// maxDispatches bounds the dispatch loop so a buggy stage that never
// reaches a terminal CurrentStep cannot spin the worker forever.
const maxDispatches = 64

// Bundle is the set of C4 agent implementations the orchestrator speaks
// to. Every field is required; construct mocks for any collaborator not
// yet backed by a real implementation (§4.4, §9 "dynamic dispatch across
// agent kinds").
type Bundle struct {
	Fetcher        agents.CodeFetcher
	Parser         agents.ASTParser
	Analyzer       agents.StaticAnalyzer
	LLM            agents.LLMClient
	ProjectScanner agents.ProjectScanner
	ImpactAnalyzer agents.ImpactAnalyzer
	Reporter       agents.Reporter
}

// Clock is injected so stage metadata timestamps are test-controllable;
// nothing in the routing logic itself may depend on wall-clock (§4.5
// Determinism).
type Clock func() time.Time

// Orchestrator drives one GraphState through the stage graph to
// completion. It holds no per-scan state itself, so a single instance is
// safe to share across concurrently running jobs (§5: many scans run in
// parallel, each on its own logical thread, never touching another scan's
// GraphState).
type Orchestrator struct {
	bundle   Bundle
	stages   map[model.StepName]stage
	recorder metrics.Recorder
	clock    Clock
	observer func(model.StepName, *model.GraphState)
}

type stage func(ctx context.Context, o *Orchestrator, state *model.GraphState)

// Option configures an Orchestrator at construction.
type Option func(*Orchestrator)

// WithRecorder injects a metrics recorder (default metrics.NoopRecorder{}).
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithClock injects a clock, primarily for deterministic tests.
func WithClock(c Clock) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithStepObserver injects a callback invoked after every stage dispatch
// with the step just completed and the state it ran against, letting a
// caller (the job queue) derive a monotonically increasing progress
// estimate without the orchestrator itself knowing anything about jobs
// (§4.6 P6). The state is passed through so a single shared Orchestrator
// instance can be used concurrently by many jobs: the observer correlates a
// dispatch back to its job via whatever the caller stashed in
// state.Metadata at submission time.
func WithStepObserver(fn func(model.StepName, *model.GraphState)) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.observer = fn
		}
	}
}

// New constructs an Orchestrator wired to bundle's agent implementations.
func New(bundle Bundle, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		bundle:   bundle,
		recorder: metrics.NoopRecorder{},
		clock:    time.Now,
	}
	o.stages = map[model.StepName]stage{
		model.StepStartScan:       stageStartScan,
		model.StepFetchCode:       stageFetchCode,
		model.StepParseCode:       stageParseCode,
		model.StepStaticAnalysis:  stageStaticAnalysis,
		model.StepImpactAnalysis:  stageImpactAnalysis,
		model.StepProjectScanning: stageProjectScanning,
		model.StepLLMAnalysis:     stageLLMAnalysis,
		model.StepReporting:       stageReporting,
		model.StepHandleError:     stageHandleError,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run drives state through the graph until it reaches a terminal
// CurrentStep (P1: COMPLETED or ERROR_HANDLED). It never returns an error
// itself and never panics out of a stage — every stage failure is caught
// and converted into state.Error + CurrentStep=ERROR, then routed to
// handle_error (§4.5 Error containment, §7 Propagation policy).
//
// ctx cancellation is observed only between stages (§5, §9 cooperative
// cancellation): a stage already in flight runs to completion, but its
// result is discarded and the state is forced to CANCELLED-equivalent
// handling by the caller (the job queue), not by Run itself — Run has no
// notion of job cancellation, only of ctx.Err() at stage boundaries.
func (o *Orchestrator) Run(ctx context.Context, state *model.GraphState) *model.GraphState {
	for i := 0; i < maxDispatches; i++ {
		if state.Terminal() {
			return state
		}
		select {
		case <-ctx.Done():
			state.Error = ctx.Err().Error()
			state.CurrentStep = model.StepError
		default:
		}

		step := state.CurrentStep
		if step == model.StepError {
			o.dispatch(ctx, model.StepHandleError, state)
			continue
		}

		fn, ok := o.stages[step]
		if !ok {
			state.Error = fmt.Sprintf("orchestrator: no stage registered for step %q", step)
			state.CurrentStep = model.StepError
			continue
		}
		o.dispatch(ctx, step, state)
	}

	if !state.Terminal() {
		state.Error = fmt.Sprintf("orchestrator: exceeded %d stage dispatches without reaching a terminal step", maxDispatches)
		state.CurrentStep = model.StepError
		o.dispatch(ctx, model.StepHandleError, state)
	}
	return state
}

// dispatch invokes the named stage with panic recovery, timing, and
// metrics/log recording — the teacher's RunStages timing-and-logging
// idiom, generalized from a fixed slice walk to a single named call.
func (o *Orchestrator) dispatch(ctx context.Context, name model.StepName, state *model.GraphState) {
	fn := o.stages[name]
	start := o.clock()

	func() {
		defer func() {
			if r := recover(); r != nil {
				state.Error = fmt.Sprintf("stage %s: panic: %v", name, r)
				state.CurrentStep = model.StepError
			}
		}()
		fn(ctx, o, state)
	}()

	dur := o.clock().Sub(start)
	o.recorder.ObserveStageDuration(string(name), dur)

	result := metrics.ResultSuccess
	if state.Error != "" {
		result = metrics.ResultFatal
	}
	o.recorder.IncStageResult(string(name), result)

	slog.Debug("orchestrator stage completed",
		logfields.Stage(string(name)),
		logfields.DurationMS(float64(dur.Microseconds())/1000.0),
		logfields.Repository(state.RepoURL),
	)

	if o.observer != nil {
		o.observer(name, state)
	}
}
