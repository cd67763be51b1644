package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"ffbatch/config"
	"ffbatch/operation"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// stderrTailLines bounds how much encoder output ends up in an error message.
const stderrTailLines = 20

// ExecutionError wraps a failed encoder run with the tail of its diagnostic
// output. A single failure is terminal for the invocation; nothing retries.
type ExecutionError struct {
	Stderr string
	Err    error
}

func (e *ExecutionError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("ffmpeg execution failed: %v", e.Err)
	}
	return fmt.Sprintf("ffmpeg execution failed: %v: %s", e.Err, e.Stderr)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// stderrTail keeps the last few lines of combined output, where ffmpeg puts
// the actual failure reason.
func stderrTail(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) > stderrTailLines {
		lines = lines[len(lines)-stderrTailLines:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Runner spawns the external encoder and probe binaries.
type Runner struct {
	cfg *config.Config
	ws  *Workspace
}

func NewRunner(cfg *config.Config, ws *Workspace) (*Runner, error) {
	if _, err := exec.LookPath(cfg.FFBin); err != nil {
		return nil, fmt.Errorf("ffmpeg binary not found or not in PATH: %s", cfg.FFBin)
	}
	if _, err := exec.LookPath(cfg.FFProbeBin); err != nil {
		return nil, fmt.Errorf("ffprobe binary not found or not in PATH: %s", cfg.FFProbeBin)
	}
	return &Runner{cfg: cfg, ws: ws}, nil
}

// Execute runs a command plan against outputPath and blocks until the process
// exits. On failure the partial output file is removed and the returned error
// carries the stderr tail. The only time bound is the caller's context.
func (r *Runner) Execute(ctx context.Context, plan *operation.CommandPlan, outputPath string) (string, error) {
	if err := r.checkResources(); err != nil {
		return "", fmt.Errorf("insufficient system resources: %w", err)
	}

	args := append(append([]string{}, r.cfg.GlobalArgs...), plan.Args(outputPath)...)
	cmd := exec.CommandContext(ctx, r.cfg.FFBin, args...)

	var outputBuf bytes.Buffer
	cmd.Stdout = &outputBuf
	cmd.Stderr = &outputBuf

	log.Printf("Executing: %s %s", r.cfg.FFBin, strings.Join(args, " "))

	err := cmd.Run()
	outputLog := outputBuf.String()

	if err != nil {
		// Remove whatever partial output the encoder left behind.
		os.Remove(outputPath)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return outputLog, ctxErr
		}
		return outputLog, &ExecutionError{Stderr: stderrTail(outputLog), Err: err}
	}
	return outputLog, nil
}

// checkResources verifies the host has headroom before spawning an encoder.
func (r *Runner) checkResources() error {
	p, err := cpu.Percent(time.Second, false)
	if err != nil {
		log.Printf("Warning: could not get CPU usage: %v", err)
	} else if len(p) > 0 && p[0] > (100.0-r.cfg.ThrottleCPU) {
		return fmt.Errorf("not enough idle CPU. Current usage: %.2f%%, Idle threshold: %.2f%%", p[0], r.cfg.ThrottleCPU)
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		log.Printf("Warning: could not get memory usage: %v", err)
	} else if vm.Available < uint64(r.cfg.ThrottleFreeMem) {
		return fmt.Errorf("not enough free memory. Available: %d, Required: %d", vm.Available, r.cfg.ThrottleFreeMem)
	}

	d, err := disk.Usage(r.ws.Root())
	if err != nil {
		log.Printf("Warning: could not get disk usage for %s: %v", r.ws.Root(), err)
	} else if d.Free < uint64(r.cfg.ThrottleFreeDisk) {
		return fmt.Errorf("not enough free disk space. Available: %d, Required: %d", d.Free, r.cfg.ThrottleFreeDisk)
	}
	return nil
}
