package attack

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/pkg/errors"
)

// Execution is what one engine invocation produced.
type Execution struct {
	// Command is the command line, for the log.
	Command  string
	Stdout   string
	Stderr   string
	Duration time.Duration
	// Err is set when the engine could not start, exited non-zero or
	// timed out. It never aborts the run.
	Err error
}

// Engine invokes the external attack engine on a command script.
type Engine interface {
	// Run executes the script. The returned error is non-nil only when ctx
	// was cancelled; engine failures are reported in Execution.Err.
	Run(ctx context.Context, scriptPath string) (Execution, error)
}

// ErrTimeout marks an engine run killed by the per-run timeout.
var ErrTimeout = errors.New("engine run timed out")

const killWaitDelay = 2 * time.Second

// Command runs the engine binary as "<Binary> -f <script>".
type Command struct {
	Binary string
	// Dir is the working directory; empty inherits the caller's.
	Dir string
	// Timeout bounds a single run. Zero means no limit.
	Timeout time.Duration
}

var _ Engine = (*Command)(nil)

// Run implements Engine.
func (c *Command) Run(ctx context.Context, scriptPath string) (Execution, error) {
	runCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, c.Binary, "-f", scriptPath)
	cmd.Dir = c.Dir
	// Bound the wait for output pipes held open by orphaned children.
	cmd.WaitDelay = killWaitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Execution{
		Command:  cmd.String(),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, errors.Wrap(ctxErr, "engine run abandoned")
	}
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			res.Err = errors.Wrapf(ErrTimeout, "after %s", c.Timeout)
		} else {
			res.Err = errors.Wrap(err, "engine run failed")
		}
	}
	return res, nil
}
