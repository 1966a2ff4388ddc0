package document

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"github.com/feichai0017/document-harvester/pkg/logger"
)

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	Logger logger.Logger
}

func NewExecRunner(log logger.Logger) *ExecRunner {
	if log == nil {
		log = logger.NewNop()
	}
	return &ExecRunner{Logger: log}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)

	if err != nil {
		r.Logger.Error("exec failed",
			logger.String("cmd", name),
			logger.String("args", strings.Join(args, " ")),
			logger.Duration("duration", dur),
			logger.String("stderr", truncate(errb.String(), 8<<10)),
			logger.Error(err),
		)
	} else {
		r.Logger.Debug("exec ok",
			logger.String("cmd", name),
			logger.Duration("duration", dur),
			logger.Int("stdout_bytes", out.Len()),
		)
	}

	return out.Bytes(), errb.Bytes(), err
}

// IsNotFound reports whether err means the executable could not be resolved.
func IsNotFound(err error) bool {
	// 绝对路径不存在时返回的是 fs.ErrNotExist
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
