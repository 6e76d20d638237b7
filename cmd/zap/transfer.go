package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/napta/zap/config"
	"github.com/napta/zap/endpoint"
	"github.com/napta/zap/engine"
	"github.com/napta/zap/store"
	"github.com/napta/zap/transport"
	"github.com/napta/zap/ui"
)

// tuiInterval is how often the progress display refreshes.
const tuiInterval = 100 * time.Millisecond

// logInterval is how often progress is logged when no display runs.
const logInterval = 2 * time.Second

func runTransfer(ctx context.Context, cmd *cobra.Command, opts *options, srcSpec, dstSpec string) error {
	cfg, err := mergeConfig(cmd, opts)
	if err != nil {
		return err
	}

	useTUI := !cfg.UI.NoProgress && !opts.quiet && isatty.IsTerminal(os.Stdout.Fd())
	level := cfg.Log.Level
	if useTUI && !opts.verbose {
		// The display takes over the terminal, so only errors are
		// logged while it runs.
		level = "error"
	}
	logger := newLogger(level)
	slog.SetDefault(logger)

	res, err := endpoint.Resolve(srcSpec, dstSpec, endpoint.Options{
		Port: cfg.SSH.Port,
		User: cfg.SSH.User,
	})
	if err != nil {
		return err
	}
	if err := endpoint.CheckIdentityFile(cfg.SSH.IdentityFile); err != nil {
		return err
	}

	remote := res.Remote()
	sshDialer := &transport.SSHDialer{
		User:           remote.User,
		Host:           remote.Host,
		Port:           remote.Port,
		IdentityFile:   cfg.SSH.IdentityFile,
		ConnectTimeout: cfg.SSH.ConnectTimeout,
	}
	localDialer := transport.LocalDialer{}

	var srcDialer, dstDialer transport.Dialer
	if res.Direction == endpoint.Push {
		srcDialer, dstDialer = localDialer, sshDialer
	} else {
		srcDialer, dstDialer = sshDialer, localDialer
	}

	totalSize, sourceMode, err := preflight(ctx, res, sshDialer)
	if err != nil {
		return err
	}

	job := engine.NewTransferJob(res, totalSize, cfg.Transfer.Streams, cfg.Transfer.MaxRetries, sourceMode)
	logger.Info("transfer planned",
		"job", job.ID,
		"source", res.Source.String(),
		"destination", res.Destination.String(),
		"size", totalSize,
		"chunks", len(job.Chunks),
		"streams", cfg.Transfer.Streams,
	)

	var tracker *engine.JobTracker
	if cfg.Journal.Path != "" {
		journal, err := store.NewBoltJournal(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer journal.Close()
		tracker = engine.NewJobTracker(journal, engine.DefaultCheckpointConfig)
		if err := tracker.InitJob(job, cfg.Transfer.Streams); err != nil {
			return fmt.Errorf("init journal: %w", err)
		}
	}

	monitor := ui.NewMonitor(job, cfg.Transfer.Streams)
	progress := func(index int, n int64) {
		monitor.ChunkProgress(index, n)
		if tracker != nil {
			tracker.AddBytes(n)
		}
	}

	worker := engine.NewTransferWorker(srcDialer, dstDialer, engine.NewBufferPool(cfg.Transfer.BufferSize), progress)
	assembler := engine.NewAssembler(dstDialer, job, logger)
	orch := engine.NewOrchestrator(job, worker.Run, assembler, engine.OrchestratorOptions{
		Streams:    cfg.Transfer.Streams,
		RetryDelay: cfg.Transfer.RetryDelay,
		Tracker:    tracker,
		Reporter:   monitor,
		Logger:     logger,
	})

	start := time.Now()
	if useTUI {
		err = runWithTUI(ctx, orch, monitor, logger)
	} else {
		err = runHeadless(ctx, orch, monitor, logger)
	}
	if err != nil {
		return err
	}

	if !opts.quiet {
		printSummary(job, cfg.Transfer.Streams, time.Since(start))
	}
	return nil
}

// runWithTUI runs the transfer behind the progress display. Quitting the
// display before the transfer finishes cancels the transfer.
func runWithTUI(ctx context.Context, orch *engine.Orchestrator, monitor *ui.Monitor, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		err := orch.Run(ctx)
		if err != nil {
			monitor.SetFailed(err)
		} else {
			monitor.SetDone()
		}
		result <- err
	}()

	if _, err := ui.NewProgram(monitor, tuiInterval).Run(); err != nil {
		logger.Warn("progress display failed, waiting without it", "error", err)
	}

	select {
	case err := <-result:
		return err
	default:
		cancel()
		return <-result
	}
}

// runHeadless runs the transfer with periodic progress lines on the log.
func runHeadless(ctx context.Context, orch *engine.Orchestrator, monitor *ui.Monitor, logger *slog.Logger) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		t := time.NewTicker(logInterval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				s := monitor.Snapshot()
				logger.Info("progress",
					"bytes", s.CompletedBytes,
					"total", s.TotalBytes,
					"chunks_done", s.DoneChunks,
					"chunks_total", s.TotalChunks,
					"retries", s.RetriesUsed,
				)
			}
		}
	}()

	return orch.Run(ctx)
}

// preflight validates whichever side is local and reaches out to the
// remote side once, before any stream is started: it learns the source
// size and mode, and makes sure the destination directory exists.
func preflight(ctx context.Context, res endpoint.Resolution, dialer transport.Dialer) (int64, fs.FileMode, error) {
	if res.Direction == endpoint.Push {
		info, err := endpoint.CheckLocalSource(res.Source.Path)
		if err != nil {
			return 0, 0, err
		}
		conn, err := dialer.Dial(ctx)
		if err != nil {
			return 0, 0, fmt.Errorf("connect %s: %w", res.Remote().Addr(), err)
		}
		defer conn.Close()
		if err := conn.MkdirAll(ctx, res.Destination.Path); err != nil {
			return 0, 0, fmt.Errorf("prepare destination %s: %w", res.Destination.Path, err)
		}
		return info.Size(), info.Mode().Perm(), nil
	}

	if err := endpoint.CheckLocalTarget(res.Destination.Path); err != nil {
		return 0, 0, err
	}
	conn, err := dialer.Dial(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("connect %s: %w", res.Remote().Addr(), err)
	}
	defer conn.Close()
	info, err := conn.Stat(ctx, res.Source.Path)
	if err != nil {
		return 0, 0, fmt.Errorf("stat remote source %s: %w", res.Source.Path, err)
	}
	return info.Size, info.Mode.Perm(), nil
}

// mergeConfig layers the invocation on top of the loaded config: flags
// the user actually set override the file, and the merged result is
// validated as a whole.
func mergeConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("streams") {
		cfg.Transfer.Streams = int(opts.streams)
	}
	if f.Changed("retries") {
		cfg.Transfer.MaxRetries = int(opts.retries)
	}
	if f.Changed("port") {
		cfg.SSH.Port = int(opts.port)
	}
	if f.Changed("user") {
		cfg.SSH.User = opts.user
	}
	if f.Changed("identity") {
		cfg.SSH.IdentityFile = opts.identity
	}
	if f.Changed("connect-timeout") {
		cfg.SSH.ConnectTimeout = opts.connectTimeout
	}
	if f.Changed("journal") {
		cfg.Journal.Path = opts.journalPath
	}
	if f.Changed("no-progress") {
		cfg.UI.NoProgress = opts.noProgress
	}
	if opts.quiet {
		cfg.Log.Level = "error"
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func printSummary(job *engine.TransferJob, streams int, elapsed time.Duration) {
	if elapsed < time.Millisecond {
		elapsed = time.Millisecond
	}
	rate := uint64(float64(job.TotalSize) / elapsed.Seconds())
	fmt.Printf("%s: %s in %s (%s/s, %d streams)\n",
		job.FinalName(),
		humanize.IBytes(uint64(job.TotalSize)),
		elapsed.Round(10*time.Millisecond),
		humanize.IBytes(rate),
		streams,
	)
}
