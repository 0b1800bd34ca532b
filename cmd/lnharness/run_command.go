package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lnharness/internal/config"
	"lnharness/internal/harness"
	"lnharness/internal/history"
	"lnharness/internal/logging"
	"lnharness/internal/metrics"
)

type runOptions struct {
	network      string
	staticDir    string
	tmpDir       string
	attempts     int
	viewStdout   bool
	readyTimeout time.Duration
	args         []string
	metricsAddr  string
	jsonOutput   bool
	check        bool
}

type nodeSummary struct {
	LaunchID    string `json:"launch_id"`
	Attempt     int    `json:"attempt"`
	PID         int    `json:"pid"`
	Executable  string `json:"executable"`
	WorkDir     string `json:"work_dir"`
	Persistent  bool   `json:"persistent"`
	RPCPath     string `json:"rpc_path"`
	NodeID      string `json:"node_id"`
	Alias       string `json:"alias"`
	Network     string `json:"network"`
	Version     string `json:"version"`
	BlockHeight int64  `json:"blockheight"`
	Metrics     string `json:"metrics,omitempty"`
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Launch lightningd and keep it running until interrupted",
		Long: `Launch lightningd in a fresh work directory, wait until its control socket
answers getinfo, print the node details and keep it running until SIGINT or
SIGTERM. The node is then stopped gracefully and its temporary directory
removed. With --check the node is stopped as soon as it is ready.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			applyRunFlags(cmd, cfg, opts)
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			resolved, err := ctx.resolveExecutable()
			if err != nil {
				return err
			}
			return runNode(cmd, cfg, logger, resolved.Path, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.network, "network", "", "Network subdirectory holding the control socket")
	flags.StringVar(&opts.staticDir, "static-dir", "", "Persistent work directory (kept after exit)")
	flags.StringVar(&opts.tmpDir, "tmp-dir", "", "Root for the temporary work directory")
	flags.IntVar(&opts.attempts, "attempts", 0, "Relaunches allowed after early exits")
	flags.BoolVar(&opts.viewStdout, "view-stdout", false, "Forward lightningd stdout")
	flags.DurationVar(&opts.readyTimeout, "ready-timeout", 0, "Give up waiting for readiness after this long (0 waits forever)")
	flags.StringArrayVar(&opts.args, "arg", nil, "Extra lightningd argument (repeatable; replaces node.args)")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Print node details as JSON")
	flags.BoolVar(&opts.check, "check", false, "Stop the node as soon as it is ready")
	return cmd
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config, opts runOptions) {
	flags := cmd.Flags()
	if flags.Changed("network") {
		cfg.Node.Network = opts.network
	}
	if flags.Changed("static-dir") {
		cfg.Node.StaticDir = opts.staticDir
		if !flags.Changed("tmp-dir") {
			cfg.Node.TmpDir = ""
		}
	}
	if flags.Changed("tmp-dir") {
		cfg.Node.TmpDir = opts.tmpDir
		if !flags.Changed("static-dir") {
			cfg.Node.StaticDir = ""
		}
	}
	if flags.Changed("attempts") {
		cfg.Node.Attempts = opts.attempts
	}
	if flags.Changed("view-stdout") {
		cfg.Node.ViewStdout = opts.viewStdout
	}
	if flags.Changed("ready-timeout") {
		cfg.Node.ReadyTimeoutSeconds = int((opts.readyTimeout + time.Second - 1) / time.Second)
	}
	if flags.Changed("arg") {
		cfg.Node.Args = append([]string(nil), opts.args...)
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Listen = opts.metricsAddr
	}
}

func runNode(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, exe string, opts runOptions) error {
	sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return fmt.Errorf("open launch history: %w", err)
	}
	defer store.Close()
	store.SetLogger(logger)

	observers := []harness.Observer{store}
	var metricsURL string
	if cfg.Metrics.Listen != "" {
		collector := metrics.NewCollector(metrics.DefaultNamespace)
		observers = append(observers, collector)
		shutdown, addr, err := serveMetrics(cfg.Metrics.Listen, collector, logger)
		if err != nil {
			return err
		}
		defer shutdown()
		metricsURL = "http://" + addr + "/metrics"
	}

	conf := harnessConf(cfg, cmd.OutOrStdout())
	node, err := harness.Launch(sigCtx, exe, conf,
		harness.WithLogger(logger),
		harness.WithObserver(observers...),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := node.Close(); err != nil {
			logging.WarnWithContext(logger, "release node failed", "node_close_failed", logging.Error(err))
		}
	}()

	summary := summarize(node, exe, metricsURL)
	if opts.jsonOutput {
		if err := writeJSON(cmd, summary); err != nil {
			return err
		}
	} else {
		writeFields(cmd.OutOrStdout(), summaryFields(summary))
	}

	if !opts.check {
		if !opts.jsonOutput {
			fmt.Fprintln(cmd.ErrOrStderr(), "lightningd is running; press Ctrl+C to stop")
		}
		<-sigCtx.Done()
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), conf.StopGrace)
	defer cancel()
	status, err := node.Stop(stopCtx)
	if err != nil {
		return fmt.Errorf("stop lightningd: %w", err)
	}
	if !opts.jsonOutput {
		fmt.Fprintf(cmd.OutOrStdout(), "lightningd exited: %s\n", status)
	}
	if !status.Success() {
		return fmt.Errorf("lightningd exited with %s", status)
	}
	return nil
}

func summarize(node *harness.Node, exe, metricsURL string) nodeSummary {
	summary := nodeSummary{
		LaunchID:   node.LaunchID(),
		Attempt:    node.Attempt(),
		PID:        node.PID(),
		Executable: exe,
		WorkDir:    node.WorkDir(),
		Persistent: node.Persistent(),
		RPCPath:    node.RPCPath(),
		Network:    node.Network(),
		Metrics:    metricsURL,
	}
	if info := node.Info(); info != nil {
		summary.NodeID = info.ID
		summary.Alias = info.Alias
		summary.Version = info.Version
		summary.BlockHeight = info.BlockHeight
		if info.Network != "" {
			summary.Network = info.Network
		}
	}
	return summary
}

func summaryFields(s nodeSummary) [][2]string {
	fields := [][2]string{
		{"Node ID", s.NodeID},
		{"Alias", s.Alias},
		{"Network", s.Network},
		{"Version", s.Version},
		{"Block height", strconv.FormatInt(s.BlockHeight, 10)},
		{"PID", strconv.Itoa(s.PID)},
		{"Attempt", strconv.Itoa(s.Attempt)},
		{"Work dir", s.WorkDir},
		{"Persistent", yesNo(s.Persistent)},
		{"RPC socket", s.RPCPath},
		{"Executable", s.Executable},
		{"Launch ID", s.LaunchID},
	}
	if s.Metrics != "" {
		fields = append(fields, [2]string{"Metrics", s.Metrics})
	}
	return fields
}

func serveMetrics(addr string, collector *metrics.Collector, logger *slog.Logger) (func(), string, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", fmt.Errorf("listen for metrics on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.WarnWithContext(logger, "metrics server stopped", "metrics_server_failed", logging.Error(err))
		}
	}()
	logger.Info("serving metrics", logging.String("addr", listener.Addr().String()))

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
	return shutdown, listener.Addr().String(), nil
}
