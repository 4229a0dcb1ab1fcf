package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/trailhound-dev/trailhound/internal/config"
	"github.com/trailhound-dev/trailhound/internal/daemon"

	"github.com/spf13/cobra"
)

var (
	flagObserveAddr    string
	flagObserveDetach  bool
	flagObservePIDFile string
	flagObserveLogFile string
	flagObserveChild   bool
)

var observeCmd = &cobra.Command{
	Use:   "observe",
	Short: "Run the recorder daemon with an HTTP ingest and query API",
	RunE:  runObserve,
}

var observeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon process and writer status",
	RunE:  runObserveStatus,
}

var observeStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runObserveStop,
}

func init() {
	defaultPID := filepath.Join(config.DataDir(), "trailhoundd.pid")
	defaultLog := filepath.Join(config.DataDir(), "trailhoundd.log")

	observeCmd.PersistentFlags().StringVar(&flagObserveAddr, "addr", "", "HTTP listen address (default from config)")
	observeCmd.PersistentFlags().StringVar(&flagObservePIDFile, "pid-file", defaultPID, "PID file path")
	observeCmd.PersistentFlags().StringVar(&flagObserveLogFile, "log-file", defaultLog, "Log file path for detached mode")

	observeCmd.Flags().BoolVar(&flagObserveDetach, "detach", false, "Run the daemon as a background process")
	observeCmd.Flags().BoolVar(&flagObserveChild, "child", false, "Internal: mark detached child process")
	_ = observeCmd.Flags().MarkHidden("child")

	observeCmd.AddCommand(observeStatusCmd)
	observeCmd.AddCommand(observeStopCmd)
	rootCmd.AddCommand(observeCmd)
}

func runObserve(_ *cobra.Command, _ []string) error {
	if flagObserveDetach && flagObserveChild {
		return errors.New("invalid daemon launch mode")
	}

	if flagObserveDetach {
		return startObserveDetached()
	}

	return runObserveForeground()
}

func startObserveDetached() error {
	if err := ensureDaemonNotRunning(flagObservePIDFile); err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	args := filterDetachArg(os.Args[1:])
	args = append(args, "--child")

	if err := os.MkdirAll(filepath.Dir(flagObservePIDFile), 0o750); err != nil {
		return fmt.Errorf("create daemon directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(flagObserveLogFile), 0o750); err != nil {
		return fmt.Errorf("create daemon log directory: %w", err)
	}

	//nolint:gosec // daemon log path is configured by the local user
	logf, err := os.OpenFile(flagObserveLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open daemon log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	child := exec.Command(exe, args...) //nolint:gosec // exe/args come from current process invocation
	child.Stdout = logf
	child.Stderr = logf
	child.Stdin = nil
	child.Env = os.Environ()

	if err := child.Start(); err != nil {
		return fmt.Errorf("start detached daemon: %w", err)
	}

	fmt.Printf("  Started daemon (pid %d)\n", child.Process.Pid)
	fmt.Printf("  PID file: %s\n", flagObservePIDFile)
	fmt.Printf("  Log: %s\n", flagObserveLogFile)
	return nil
}

func runObserveForeground() error {
	if err := ensureDaemonNotRunning(flagObservePIDFile); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	addr := flagObserveAddr
	if addr == "" {
		addr = cfg.Observe.Addr
	}

	if err := os.MkdirAll(filepath.Dir(flagObservePIDFile), 0o750); err != nil {
		return fmt.Errorf("create daemon directory: %w", err)
	}
	if err := writePID(flagObservePIDFile, os.Getpid()); err != nil {
		return err
	}
	defer func() { _ = os.Remove(flagObservePIDFile) }()

	svc := daemon.New(daemon.Config{
		Addr:      addr,
		StorePath: cfg.Store.Path,
		App:       cfg,
	})

	fmt.Printf("  trailhound daemon listening on http://%s\n", addr)
	fmt.Printf("  Recording to %s\n", cfg.Store.Path)
	fmt.Printf("  Stop with: trailhound observe stop --pid-file %s\n", flagObservePIDFile)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runObserveStatus(_ *cobra.Command, _ []string) error {
	pid, err := readPID(flagObservePIDFile)
	if err != nil {
		fmt.Printf("  Daemon: not running (pid file not found)\n")
		return nil
	}

	if !processAlive(pid) {
		fmt.Printf("  Daemon: stale pid file (pid %d not alive)\n", pid)
		return nil
	}

	cfg, _ := loadConfig()
	addr := flagObserveAddr
	if addr == "" {
		addr = cfg.Observe.Addr
	}

	fmt.Printf("  Daemon PID: %d\n", pid)
	fmt.Printf("  Address: http://%s\n", addr)

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/v1/status") //nolint:noctx // short status probe
	if err != nil {
		fmt.Printf("  API status: unreachable (%v)\n", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("  API status: HTTP %d\n", resp.StatusCode)
		return nil
	}

	var st daemon.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		fmt.Printf("  API status: malformed response (%v)\n", err)
		return nil
	}

	fmt.Printf("  Store: %s\n", st.StorePath)
	fmt.Printf("  Stored: %d  Dropped: %d  Failed: %d\n",
		st.Writer.Stored, st.Writer.Dropped, st.Writer.StoreFailed)
	fmt.Printf("  Flushes: %d  Avg write: %s\n", st.Writer.Flushes, st.Writer.AvgWriteLatency)
	return nil
}

func runObserveStop(_ *cobra.Command, _ []string) error {
	pid, err := readPID(flagObservePIDFile)
	if err != nil {
		return errors.New("daemon is not running")
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find daemon process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal daemon process: %w", err)
	}

	deadline := time.Now().Add(8 * time.Second)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			_ = os.Remove(flagObservePIDFile)
			fmt.Printf("  Stopped daemon (pid %d)\n", pid)
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}

	return fmt.Errorf("daemon (pid %d) did not exit in time", pid)
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

func ensureDaemonNotRunning(pidFile string) error {
	pid, err := readPID(pidFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if processAlive(pid) {
		return fmt.Errorf("daemon already running (pid %d)", pid)
	}
	_ = os.Remove(pidFile)
	return nil
}

func writePID(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o600)
}

func readPID(path string) (int, error) {
	//nolint:gosec // daemon pid path is configured by the local user
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pidStr := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(pidStr)
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
