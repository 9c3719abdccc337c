package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/ghtraffic/internal/config"
	"github.com/theirongolddev/ghtraffic/internal/daemon"
	"github.com/theirongolddev/ghtraffic/internal/logging"
)

type serveRuntimeState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	Database  string    `json:"database"`
}

var (
	flagServeAddr     string
	flagServeInterval time.Duration
	flagServeDetach   bool
	flagServePIDFile  string
	flagServeLogFile  string
	flagServeChild    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Collect on a schedule and serve the stored traffic over HTTP",
	Long: "Run a collection batch at start and then every --interval, while serving\n" +
		"/v1/status, /v1/runs, /v1/traffic and /v1/history on --addr.",
	RunE: runServe,
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running collector's process and API status",
	RunE:  runServeStatus,
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running collector",
	RunE:  runServeStop,
}

var serveCollectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Ask the running collector to start a batch now",
	RunE:  runServeCollect,
}

func init() {
	dataDir := config.DataDir()

	serveCmd.PersistentFlags().StringVar(&flagServeAddr, "addr", "", "HTTP listen address (default from config, "+daemon.DefaultAddr+")")
	serveCmd.PersistentFlags().StringVar(&flagServePIDFile, "pid-file", filepath.Join(dataDir, "ghtrafficd.pid"), "PID file path")
	serveCmd.PersistentFlags().StringVar(&flagServeLogFile, "log-file", filepath.Join(dataDir, "ghtrafficd.log"), "Log file path for detached mode")

	serveCmd.Flags().DurationVar(&flagServeInterval, "interval", 0, "Collection interval (default from config, 24h)")
	serveCmd.Flags().BoolVar(&flagServeDetach, "detach", false, "Run the collector as a background process")
	serveCmd.Flags().BoolVar(&flagServeChild, "child", false, "Internal: mark detached child process")
	_ = serveCmd.Flags().MarkHidden("child")

	serveCmd.AddCommand(serveStatusCmd, serveStopCmd, serveCollectCmd)
	rootCmd.AddCommand(serveCmd)
}

// serveAddr resolves --addr, then the pid state file, then the config.
func serveAddr(cfg config.Config) string {
	if flagServeAddr != "" {
		return flagServeAddr
	}
	if st, err := readState(statePath(flagServePIDFile)); err == nil && st.Addr != "" {
		return st.Addr
	}
	if cfg.Daemon.Addr != "" {
		return cfg.Daemon.Addr
	}
	return daemon.DefaultAddr
}

func runServe(cmd *cobra.Command, _ []string) error {
	if flagServeDetach && flagServeChild {
		return errors.New("invalid serve launch mode")
	}
	if flagServeDetach {
		return startServeDetached()
	}
	return runServeForeground(cmd.Context())
}

func startServeDetached() error {
	if err := ensureNotRunning(flagServePIDFile); err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	args := filterDetachArg(os.Args[1:])
	args = append(args, "--child")

	if err := os.MkdirAll(filepath.Dir(flagServePIDFile), 0o750); err != nil {
		return fmt.Errorf("create pid directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(flagServeLogFile), 0o750); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	//nolint:gosec // log path is configured by the local user
	logf, err := os.OpenFile(flagServeLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	child := exec.Command(exe, args...) //nolint:gosec // exe/args come from current process invocation
	child.Stdout = logf
	child.Stderr = logf
	child.Env = os.Environ()

	if err := child.Start(); err != nil {
		return fmt.Errorf("start detached collector: %w", err)
	}

	fmt.Printf("  Started collector (pid %d)\n", child.Process.Pid)
	fmt.Printf("  PID file: %s\n", flagServePIDFile)
	fmt.Printf("  Log: %s\n", flagServeLogFile)
	return nil
}

func runServeForeground(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := ensureNotRunning(flagServePIDFile); err != nil {
		return err
	}

	client, err := newGitHubClient(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	interval := flagServeInterval
	if interval == 0 {
		interval = cfg.Daemon.Interval()
	}
	addr := flagServeAddr
	if addr == "" {
		addr = cfg.Daemon.Addr
	}

	if err := os.MkdirAll(filepath.Dir(flagServePIDFile), 0o750); err != nil {
		return fmt.Errorf("create pid directory: %w", err)
	}
	pid := os.Getpid()
	if err := writePID(flagServePIDFile, pid); err != nil {
		return err
	}
	defer func() { _ = os.Remove(flagServePIDFile) }()

	svc := daemon.New(daemon.Config{
		Interval: interval,
		Addr:     addr,
		Logger:   logging.Component("daemon"),
	}, newCollector(client, s, cfg, nil), newReader(s, cfg))

	state := serveRuntimeState{
		PID:       pid,
		Addr:      svc.Addr(),
		StartedAt: time.Now(),
		Database:  config.Redact(config.DatabaseDSNFor(flagDB, cfg)),
	}
	_ = writeState(statePath(flagServePIDFile), state)
	defer func() { _ = os.Remove(statePath(flagServePIDFile)) }()

	if !flagServeChild {
		fmt.Printf("  ghtraffic listening on http://%s\n", svc.Addr())
		fmt.Printf("  Collecting every %s into %s\n", svc.Interval(), state.Database)
		fmt.Printf("  Stop with: ghtraffic serve stop --pid-file %s\n", flagServePIDFile)
	}

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runServeStatus(cmd *cobra.Command, _ []string) error {
	pid, err := readPID(flagServePIDFile)
	if err != nil {
		fmt.Println("  Collector: not running (pid file not found)")
		return nil
	}
	if !processAlive(pid) {
		fmt.Printf("  Collector: stale pid file (pid %d not alive)\n", pid)
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	addr := serveAddr(cfg)

	fmt.Printf("  Collector PID: %d\n", pid)
	fmt.Printf("  Address: http://%s\n", addr)

	st, err := daemon.FetchStatus(cmd.Context(), addr)
	if err != nil {
		fmt.Printf("  API status: %v\n", err)
		return nil
	}

	switch {
	case st.Running:
		fmt.Println("  Last run: in progress")
	case st.LastRunAt.IsZero():
		fmt.Println("  Last run: pending")
	default:
		fmt.Printf("  Last run: %s\n", st.LastRunAt.Local().Format(time.RFC3339))
	}
	if !st.NextRunAt.IsZero() {
		fmt.Printf("  Next run: %s\n", st.NextRunAt.Local().Format(time.RFC3339))
	}
	fmt.Printf("  Runs: %d\n", st.RunCount)
	if r := st.LastRun; r != nil {
		fmt.Printf("  Last batch: %d/%d repositories as of %s\n", r.Succeeded, r.Repos, r.AsOf)
		for _, f := range r.Failed {
			fmt.Printf("    %s (%s): %s\n", f.Repo, f.Stage, f.Error)
		}
	}
	if st.LastError != "" {
		fmt.Printf("  Last error: %s\n", st.LastError)
	}
	if st.ReadError != "" {
		fmt.Printf("  Read error: %s\n", st.ReadError)
	}
	return nil
}

func runServeCollect(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := daemon.TriggerCollect(cmd.Context(), serveAddr(cfg)); err != nil {
		return err
	}
	fmt.Println("  Collection queued")
	return nil
}

func runServeStop(_ *cobra.Command, _ []string) error {
	pid, err := readPID(flagServePIDFile)
	if err != nil {
		return errors.New("collector is not running")
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find collector process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal collector process: %w", err)
	}

	deadline := time.Now().Add(8 * time.Second)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			_ = os.Remove(flagServePIDFile)
			_ = os.Remove(statePath(flagServePIDFile))
			fmt.Printf("  Stopped collector (pid %d)\n", pid)
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}
	return fmt.Errorf("collector (pid %d) did not exit in time", pid)
}

func filterDetachArg(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return out
}

func ensureNotRunning(pidFile string) error {
	pid, err := readPID(pidFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if processAlive(pid) {
		return fmt.Errorf("collector already running (pid %d)", pid)
	}
	_ = os.Remove(pidFile)
	_ = os.Remove(statePath(pidFile))
	return nil
}

func writePID(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o600)
}

func readPID(path string) (int, error) {
	//nolint:gosec // pid path is configured by the local user
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid in %s", path)
	}
	return pid, nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func statePath(pidFile string) string {
	return pidFile + ".json"
}

func writeState(path string, st serveRuntimeState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func readState(path string) (serveRuntimeState, error) {
	var st serveRuntimeState
	//nolint:gosec // state path is configured by the local user
	data, err := os.ReadFile(path)
	if err != nil {
		return st, err
	}
	err = json.Unmarshal(data, &st)
	return st, err
}
