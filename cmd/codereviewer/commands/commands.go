// Package commands implements the kong subcommands of the codereviewer
// CLI: serve (long-running queue + maintenance scheduler), scan (submit
// one request and wait for its report), and maintenance (run one
// maintenance task immediately). It generalizes the teacher's
// cmd/docbuilder/commands package (Global/CLI context, config-then-run
// shape) to this service's own subsystems.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/aidino/aicode-reviewer/internal/config"
	"github.com/aidino/aicode-reviewer/internal/glue"
	"github.com/aidino/aicode-reviewer/internal/jobqueue"
	"github.com/aidino/aicode-reviewer/internal/maintenance"
	"github.com/aidino/aicode-reviewer/internal/metrics"
	"github.com/aidino/aicode-reviewer/internal/model"
	"github.com/aidino/aicode-reviewer/internal/reposcache"
	"github.com/aidino/aicode-reviewer/internal/vault"
)

// schedulerHolder guards the currently running maintenance scheduler so a
// config-reload goroutine can swap it out while ServeCmd.Run's shutdown
// path stops whatever is current, generalizing the mutex-guarded swap in
// the teacher's ConfigWatcher/Daemon.ReloadConfig pair.
type schedulerHolder struct {
	mu  sync.Mutex
	cur *maintenance.Scheduler
}

func (h *schedulerHolder) set(s *maintenance.Scheduler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cur = s
}

func (h *schedulerHolder) stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cur == nil {
		return nil
	}
	return h.cur.Stop()
}

// applyReload updates the subset of running state that can change without
// a restart: the default log level and the running scheduler's cadences
// (§C9 expansion; mirrors the teacher's performReload/ReloadConfig shape).
func applyReload(holder *schedulerHolder, loop *maintenance.Loop) func(config.Config) {
	return func(cfg config.Config) {
		level := slog.LevelInfo
		if cfg.LogLevel == "debug" {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		next, err := maintenance.NewScheduler(loop, maintenance.Cadences{
			CacheSweep:     cfg.CacheSweepInterval,
			AutoSync:       cfg.AutoSyncInterval,
			HealthSnapshot: cfg.HealthSnapshotInterval,
			FullCycle:      cfg.FullCycleInterval,
		})
		if err != nil {
			slog.Warn("config reload: failed to rebuild maintenance scheduler", "error", err)
			return
		}
		if err := holder.stop(); err != nil {
			slog.Warn("config reload: error stopping previous scheduler", "error", err)
		}
		if err := next.Start(context.Background()); err != nil {
			slog.Warn("config reload: failed to start rebuilt scheduler", "error", err)
			return
		}
		holder.set(next)
		slog.Info("config reload: maintenance cadences applied")
	}
}

// Global carries state shared across subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI is the root kong command definition.
type CLI struct {
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Serve       ServeCmd       `cmd:"" help:"Run the scan service: job queue plus maintenance scheduler"`
	Scan        ScanCmd        `cmd:"" help:"Submit one scan request and print its report when done"`
	Maintenance MaintenanceCmd `cmd:"" help:"Run a single maintenance task immediately and print the result"`
}

// AfterApply configures the default slog logger before any subcommand runs.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// system is the fully wired set of collaborators shared by serve/scan.
type system struct {
	cfg     config.Config
	store   *model.ProjectStore
	vault   *vault.Vault
	cache   *reposcache.Cache
	queue   *jobqueue.Queue
	loop    *maintenance.Loop
	service *glue.Service
}

func buildSystem() (*system, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	v, err := vault.New(vault.Config{EncryptionKey: cfg.TokenEncryptionKey, Production: cfg.Production})
	if err != nil {
		return nil, fmt.Errorf("init token vault: %w", err)
	}

	store := model.NewProjectStore()
	recorder := metrics.NewPrometheusRecorder(nil)

	cache := reposcache.New(reposcache.Config{
		Root:    cfg.CacheRoot,
		TTL:     time.Duration(cfg.CacheTTLHours) * time.Hour,
		QuotaMB: cfg.MaxCacheSizeGB * 1024,
	}, store, v)

	queue, err := jobqueue.New(cfg.JobQueueSize, cfg.JobQueueWorkers, jobqueue.WithRecorder(recorder))
	if err != nil {
		return nil, fmt.Errorf("init job queue: %w", err)
	}

	loop := maintenance.New(maintenance.Config{
		AutoSyncBatchSize: cfg.AutoSyncBatchSize,
		MaxCacheSizeGB:    cfg.MaxCacheSizeGB,
	}, cache, v, store, maintenance.WithRecorder(recorder))

	return &system{
		cfg:     cfg,
		store:   store,
		vault:   v,
		cache:   cache,
		queue:   queue,
		loop:    loop,
		service: glue.New(queue),
	}, nil
}

// ServeCmd runs the job queue and maintenance scheduler until a shutdown
// signal is received, mirroring the graceful-shutdown-via-
// signal.NotifyContext idiom of the teacher's daemon command.
type ServeCmd struct {
	EnvFile string `name:"env-file" help:"Optional .env file to watch; edits live-reload log level and maintenance cadences" optional:""`
}

func (s *ServeCmd) Run(_ *Global, _ *CLI) error {
	sys, err := buildSystem()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sys.queue.Start(ctx)

	scheduler, err := maintenance.NewScheduler(sys.loop, maintenance.Cadences{
		CacheSweep:     sys.cfg.CacheSweepInterval,
		AutoSync:       sys.cfg.AutoSyncInterval,
		HealthSnapshot: sys.cfg.HealthSnapshotInterval,
		FullCycle:      sys.cfg.FullCycleInterval,
	})
	if err != nil {
		return fmt.Errorf("init maintenance scheduler: %w", err)
	}
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start maintenance scheduler: %w", err)
	}
	holder := &schedulerHolder{cur: scheduler}

	if s.EnvFile != "" {
		go func() {
			if err := config.WatchEnvFile(ctx, s.EnvFile, applyReload(holder, sys.loop)); err != nil {
				slog.Warn("config: stopped watching env file", "path", s.EnvFile, "error", err)
			}
		}()
	}

	slog.Info("codereviewer service started",
		"workers", sys.cfg.JobQueueWorkers, "cache_root", sys.cfg.CacheRoot)

	<-ctx.Done()
	slog.Info("shutdown signal received, stopping")

	if err := holder.stop(); err != nil {
		slog.Warn("maintenance scheduler stop error", "error", err)
	}
	sys.queue.Stop()
	slog.Info("codereviewer service stopped")
	return nil
}

// ScanCmd submits one scan request through the default orchestrator and
// blocks until it reaches a terminal state, then prints the report as
// JSON.
type ScanCmd struct {
	RepoURL      string        `arg:"" name:"repo-url" help:"Repository URL to scan"`
	ScanType     string        `name:"type" help:"pr or project" enum:"pr,project" default:"project"`
	PRID         string        `name:"pr-id" help:"Pull request id (required for --type=pr)"`
	SourceBranch string        `name:"source-branch" help:"PR source branch"`
	TargetBranch string        `name:"target-branch" help:"PR target branch"`
	Timeout      time.Duration `help:"Overall wait timeout for the scan to complete" default:"5m"`
}

func (s *ScanCmd) Run(_ *Global, _ *CLI) error {
	sys, err := buildSystem()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()
	sys.queue.Start(ctx)
	defer sys.queue.Stop()

	req := model.ScanRequest{
		RepoURL:      s.RepoURL,
		ScanType:     model.ScanType(s.ScanType),
		PRID:         s.PRID,
		SourceBranch: s.SourceBranch,
		TargetBranch: s.TargetBranch,
	}

	result, err := sys.service.Initiate(ctx, req)
	if err != nil {
		return fmt.Errorf("initiate scan: %w", err)
	}
	slog.Info("scan submitted", "scan_id", result.ScanID, "job_id", result.JobID)

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("scan: timed out waiting for completion: %w", ctx.Err())
		case <-time.After(500 * time.Millisecond):
		}
		view, err := sys.service.Status(result.JobID)
		if err != nil {
			return fmt.Errorf("status: %w", err)
		}
		if view.Status.Terminal() {
			report, err := sys.service.Report(result.ScanID)
			if err != nil {
				return fmt.Errorf("report: %w", err)
			}
			return printJSON(report)
		}
	}
}

// MaintenanceCmd runs a single named maintenance task immediately.
type MaintenanceCmd struct {
	Task string `arg:"" enum:"cache-sweep,auto-sync,health,full-cycle" help:"Which task to run"`
}

func (m *MaintenanceCmd) Run(_ *Global, _ *CLI) error {
	sys, err := buildSystem()
	if err != nil {
		return err
	}
	ctx := context.Background()

	switch m.Task {
	case "cache-sweep":
		return printJSON(sys.loop.CacheSweep(ctx))
	case "auto-sync":
		return printJSON(sys.loop.AutoSync(ctx))
	case "health":
		return printJSON(sys.loop.HealthSnapshot(ctx))
	case "full-cycle":
		return printJSON(sys.loop.FullCycle(ctx))
	default:
		return fmt.Errorf("unknown task %q", m.Task)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
