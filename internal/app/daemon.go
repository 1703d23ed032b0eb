package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	daemonServeUnitName    = "styleluxe-serve.service"
	daemonDecayUnitName    = "styleluxe-decay.service"
	daemonDecayTimerName   = "styleluxe-decay.timer"
	daemonRefreshUnitName  = "styleluxe-refresh.service"
	daemonRefreshTimerName = "styleluxe-refresh.timer"
	systemdUnitDir         = "/etc/systemd/system"
)

var daemonUnitNames = []string{
	daemonServeUnitName,
	daemonDecayUnitName,
	daemonDecayTimerName,
	daemonRefreshUnitName,
	daemonRefreshTimerName,
}

// Only long-running units are targeted by start/stop/restart. The decay and
// refresh services are oneshot and fire from their timers.
var daemonManagedUnits = []string{
	daemonServeUnitName,
	daemonDecayTimerName,
	daemonRefreshTimerName,
}

func runDaemon(args []string) int {
	if len(args) == 0 {
		printDaemonUsage()
		return 2
	}

	action := strings.ToLower(strings.TrimSpace(args[0]))
	switch action {
	case "help", "-h", "--help":
		printDaemonUsage()
		return 0
	case "install":
		return runDaemonInstall(args[1:])
	case "uninstall":
		return runDaemonUninstall(args[1:])
	case "start":
		return runDaemonServiceAction("start", args[1:], true)
	case "stop":
		return runDaemonServiceAction("stop", args[1:], true)
	case "restart":
		return runDaemonServiceAction("restart", args[1:], true)
	case "status":
		return runDaemonServiceAction("status", args[1:], false)
	default:
		fmt.Fprintf(os.Stderr, "unknown daemon action: %s\n\n", args[0])
		printDaemonUsage()
		return 2
	}
}

func runDaemonInstall(args []string) int {
	fs := flag.NewFlagSet("daemon install", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	defaultUser := strings.TrimSpace(os.Getenv("USER"))
	if defaultUser == "" {
		defaultUser = "root"
	}

	userName := fs.String("user", defaultUser, "Run services as this Linux user")
	port := fs.Int("port", 8090, "Port for styleluxe-serve")
	workDir := fs.String("workdir", "", "Working directory containing the .env file (auto-detected if empty)")
	snapshotPath := fs.String("snapshot", "", "Metadata snapshot file for styleluxe-refresh (refresh units skipped if empty)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon install does not accept positional args")
		return 2
	}
	if err := validatePort(*port, "--port"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if strings.TrimSpace(*userName) == "" {
		fmt.Fprintln(os.Stderr, "--user must not be empty")
		return 2
	}
	if err := requireRoot("install"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	resolvedWorkDir, err := resolveWorkDir(*workDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve --workdir: %v\n", err)
		return 2
	}

	user := strings.TrimSpace(*userName)
	installRefresh := strings.TrimSpace(*snapshotPath) != ""

	units := map[string]string{
		daemonServeUnitName:  buildServeUnitFile(user, resolvedWorkDir, *port),
		daemonDecayUnitName:  buildDecayUnitFile(user, resolvedWorkDir),
		daemonDecayTimerName: buildDecayTimerFile(),
	}
	enableUnits := []string{daemonServeUnitName, daemonDecayTimerName}
	if installRefresh {
		absSnapshot, err := filepath.Abs(strings.TrimSpace(*snapshotPath))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to normalize --snapshot: %v\n", err)
			return 2
		}
		units[daemonRefreshUnitName] = buildRefreshUnitFile(user, resolvedWorkDir, absSnapshot)
		units[daemonRefreshTimerName] = buildRefreshTimerFile()
		enableUnits = append(enableUnits, daemonRefreshTimerName)
	}

	for name, content := range units {
		if err := writeUnitFile(name, content); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", name, err)
			return 1
		}
	}
	if err := runSystemctl("daemon-reload"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to reload systemd units: %v\n", err)
		return 1
	}

	enableArgs := append([]string{"enable"}, enableUnits...)
	if err := runSystemctl(enableArgs...); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to enable services: %v\n", err)
		return 1
	}

	fmt.Printf("Installed %s\n", strings.Join(enableUnits, ", "))
	fmt.Println("Units are enabled on boot. Run `styleluxe daemon start` to start them now.")
	return 0
}

func runDaemonUninstall(args []string) int {
	fs := flag.NewFlagSet("daemon uninstall", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon uninstall does not accept positional args")
		return 2
	}
	if err := requireRoot("uninstall"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	stopArgs := append([]string{"stop"}, daemonManagedUnits...)
	if err := runSystemctl(stopArgs...); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to stop one or more units: %v\n", err)
	}

	disableArgs := append([]string{"disable"}, daemonManagedUnits...)
	if err := runSystemctl(disableArgs...); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to disable one or more units: %v\n", err)
	}

	for _, unitName := range daemonUnitNames {
		unitPath := filepath.Join(systemdUnitDir, unitName)
		if err := os.Remove(unitPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Failed to remove %s: %v\n", unitPath, err)
			return 1
		}
	}

	if err := runSystemctl("daemon-reload"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to reload systemd units: %v\n", err)
		return 1
	}

	fmt.Println("Removed styleluxe systemd units")
	return 0
}

func runDaemonServiceAction(action string, args []string, requireRootPrivileges bool) int {
	fs := flag.NewFlagSet("daemon "+action, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "daemon %s does not accept positional args\n", action)
		return 2
	}
	if requireRootPrivileges {
		if err := requireRoot(action); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	systemctlArgs := make([]string, 0, 3+len(daemonManagedUnits))
	systemctlArgs = append(systemctlArgs, action)
	if action == "status" {
		systemctlArgs = append(systemctlArgs, "--no-pager")
	}
	systemctlArgs = append(systemctlArgs, daemonManagedUnits...)

	if err := runSystemctl(systemctlArgs...); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to %s units: %v\n", action, err)
		return 1
	}
	return 0
}

func validatePort(port int, flagName string) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535", flagName)
	}
	return nil
}

func requireRoot(action string) error {
	if os.Geteuid() == 0 {
		return nil
	}
	return fmt.Errorf("daemon %s requires root privileges; run with sudo: sudo styleluxe daemon %s", action, action)
}

func resolveWorkDir(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		absPath, err := filepath.Abs(trimmed)
		if err != nil {
			return "", fmt.Errorf("normalize path %q: %w", trimmed, err)
		}
		if !isDir(absPath) {
			return "", fmt.Errorf("%q is not a directory", absPath)
		}
		return absPath, nil
	}

	detected, err := autoDetectWorkDir()
	if err != nil {
		return "", err
	}
	return detected, nil
}

func autoDetectWorkDir() (string, error) {
	candidates := make([]string, 0, 4)

	if exePath, err := os.Executable(); err == nil {
		resolvedExePath := exePath
		if resolvedPath, err := filepath.EvalSymlinks(exePath); err == nil {
			resolvedExePath = resolvedPath
		}
		candidates = append(candidates, filepath.Dir(resolvedExePath))
	}

	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, cwd)
	}

	seen := map[string]struct{}{}
	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		absPath, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if _, exists := seen[absPath]; exists {
			continue
		}
		seen[absPath] = struct{}{}

		if hasEnvFile(absPath) {
			return absPath, nil
		}
	}

	return "", errors.New("unable to auto-detect a directory containing .env; use --workdir")
}

func hasEnvFile(root string) bool {
	info, err := os.Stat(filepath.Join(root, ".env"))
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func buildServeUnitFile(userName, workDir string, port int) string {
	lines := []string{
		"[Unit]",
		"Description=Styleluxe scoring API service",
		"After=network.target postgresql.service",
		"",
		"[Service]",
		"Type=simple",
		"User=" + userName,
		"WorkingDirectory=" + workDir,
		"ExecStart=/usr/local/bin/styleluxe serve --host 0.0.0.0 --port " + strconv.Itoa(port),
		"Restart=on-failure",
		"RestartSec=5",
		"",
		"[Install]",
		"WantedBy=multi-user.target",
		"",
	}
	return strings.Join(lines, "\n")
}

func buildDecayUnitFile(userName, workDir string) string {
	lines := []string{
		"[Unit]",
		"Description=Styleluxe daily score decay sweep",
		"After=network.target postgresql.service",
		"",
		"[Service]",
		"Type=oneshot",
		"User=" + userName,
		"WorkingDirectory=" + workDir,
		"ExecStart=/usr/local/bin/styleluxe decay",
		"",
	}
	return strings.Join(lines, "\n")
}

func buildDecayTimerFile() string {
	lines := []string{
		"[Unit]",
		"Description=Run the Styleluxe decay sweep once per day",
		"",
		"[Timer]",
		"OnCalendar=*-*-* 04:15:00 UTC",
		"Persistent=true",
		"",
		"[Install]",
		"WantedBy=timers.target",
		"",
	}
	return strings.Join(lines, "\n")
}

func buildRefreshUnitFile(userName, workDir, snapshotPath string) string {
	lines := []string{
		"[Unit]",
		"Description=Styleluxe primary source metadata refresh",
		"After=network.target postgresql.service",
		"",
		"[Service]",
		"Type=oneshot",
		"User=" + userName,
		"WorkingDirectory=" + workDir,
		"ExecStart=/usr/local/bin/styleluxe refresh --snapshot " + snapshotPath,
		"",
	}
	return strings.Join(lines, "\n")
}

func buildRefreshTimerFile() string {
	lines := []string{
		"[Unit]",
		"Description=Run the Styleluxe metadata refresh twice per week",
		"",
		"[Timer]",
		"OnCalendar=Mon,Thu *-*-* 05:30:00 UTC",
		"Persistent=true",
		"",
		"[Install]",
		"WantedBy=timers.target",
		"",
	}
	return strings.Join(lines, "\n")
}

func writeUnitFile(name, content string) error {
	unitPath := filepath.Join(systemdUnitDir, name)
	return os.WriteFile(unitPath, []byte(content), 0o644)
}

func runSystemctl(args ...string) error {
	cmd := exec.Command("systemctl", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("systemctl %s: %w", strings.Join(args, " "), err)
	}
	return nil
}

func printDaemonUsage() {
	fmt.Fprintln(os.Stderr, "styleluxe daemon")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  styleluxe daemon <action> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Actions:")
	fmt.Fprintln(os.Stderr, "  install     Write unit files, daemon-reload, and enable units on boot")
	fmt.Fprintln(os.Stderr, "  uninstall   Stop, disable, and remove unit files")
	fmt.Fprintln(os.Stderr, "  start       Start the API service and sweep timers")
	fmt.Fprintln(os.Stderr, "  stop        Stop the API service and sweep timers")
	fmt.Fprintln(os.Stderr, "  restart     Restart the API service and sweep timers")
	fmt.Fprintln(os.Stderr, "  status      Show status for all managed units")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Install flags:")
	fmt.Fprintln(os.Stderr, "  --user <name>        Service user (default: $USER)")
	fmt.Fprintln(os.Stderr, "  --port <n>           API port (default: 8090)")
	fmt.Fprintln(os.Stderr, "  --workdir <path>     Directory holding .env (auto-detect by default)")
	fmt.Fprintln(os.Stderr, "  --snapshot <path>    Metadata snapshot for the refresh timer (optional)")
}
