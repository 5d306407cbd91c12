// Package system starts and stops desktop programs and opens URLs.
package system

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os/exec"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

var ErrNotRunning = errors.New("no running process")

type Processes struct {
	goos string
}

func NewProcesses() *Processes {
	return &Processes{goos: runtime.GOOS}
}

// launchCommand builds the platform launcher for a program name.
func launchCommand(goos, name string) (string, []string, error) {
	switch goos {
	case "darwin":
		return "open", []string{"-a", name}, nil
	case "windows":
		return "cmd", []string{"/c", "start", "", name}, nil
	default:
		bin := strings.ReplaceAll(name, " ", "-")
		path, err := exec.LookPath(bin)
		if err != nil {
			return "", nil, fmt.Errorf("find %q: %w", name, err)
		}
		return path, nil, nil
	}
}

// Launch starts name detached from the daemon; it does not wait for it.
func (p *Processes) Launch(_ context.Context, name string) error {
	bin, args, err := launchCommand(p.goos, name)
	if err != nil {
		return err
	}

	cmd := exec.Command(bin, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %q: %w", name, err)
	}
	log.Info("Launched program", "name", name, "pid", cmd.Process.Pid)

	go func() {
		if err := cmd.Wait(); err != nil {
			log.Debug("Program exited", "name", name, "err", err)
		}
	}()
	return nil
}

// MatchName reports whether a process name is the program the user asked
// for. Case is ignored, and a trailing .exe or spaces-as-dashes are tolerated.
func MatchName(procName, want string) bool {
	p := strings.TrimSuffix(strings.ToLower(procName), ".exe")
	w := strings.ToLower(strings.TrimSpace(want))
	return p == w || p == strings.ReplaceAll(w, " ", "-") || p == strings.ReplaceAll(w, " ", "")
}

// Kill terminates every process matching name and returns how many were
// signalled.
func (p *Processes) Kill(ctx context.Context, name string) (int, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("list processes: %w", err)
	}

	var (
		killed int
		errs   []error
	)
	for _, pr := range procs {
		pn, err := pr.NameWithContext(ctx)
		if err != nil || !MatchName(pn, name) {
			continue
		}
		if err := pr.KillWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("kill pid %d: %w", pr.Pid, err))
			continue
		}
		log.Info("Killed program", "name", pn, "pid", pr.Pid)
		killed++
	}

	if killed == 0 {
		if len(errs) > 0 {
			return 0, errors.Join(errs...)
		}
		return 0, fmt.Errorf("%w named %q", ErrNotRunning, name)
	}
	return killed, nil
}
