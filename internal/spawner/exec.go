package spawner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"
)

// ExecSpawner launches workers by re-invoking the current binary in
// worker mode. The child inherits the parent's environment and writes
// to the parent's stdout/stderr.
type ExecSpawner struct {
	binary string
	logger zerolog.Logger
}

// NewExecSpawner creates an ExecSpawner. When binary is empty the
// current executable path is used.
func NewExecSpawner(binary string, logger zerolog.Logger) (*ExecSpawner, error) {
	if binary == "" {
		path, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve executable path: %w", err)
		}
		binary = path
	}

	return &ExecSpawner{
		binary: binary,
		logger: logger.With().Str("component", "spawner").Logger(),
	}, nil
}

func (s *ExecSpawner) Spawn(ctx context.Context, req *SpawnRequest) (Handle, error) {
	args := []string{
		"-worker",
		"-county", req.CountyCode,
		"-job-id", strconv.FormatInt(req.JobID, 10),
	}
	if req.DSN != "" {
		args = append(args, "-dsn", req.DSN)
	}
	args = append(args, req.ExtraArgs...)

	cmd := exec.CommandContext(ctx, s.binary, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}

	s.logger.Info().
		Int64("job_id", req.JobID).
		Str("county", req.CountyCode).
		Int("pid", cmd.Process.Pid).
		Msg("worker spawned")

	return &execHandle{cmd: cmd}, nil
}

func (s *ExecSpawner) Name() string {
	return "exec"
}

type execHandle struct {
	cmd *exec.Cmd
}

func (h *execHandle) Wait() error {
	return h.cmd.Wait()
}

func (h *execHandle) Terminate() error {
	if h.cmd.Process == nil {
		return nil
	}

	// SIGTERM lets the worker mark its job stopped before exiting.
	return h.cmd.Process.Signal(syscall.SIGTERM)
}

func (h *execHandle) PID() int {
	if h.cmd.Process == nil {
		return 0
	}

	return h.cmd.Process.Pid
}
