package textextract

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Runner executes an external command feeding stdin. Tests stub it.
type Runner interface {
	Run(ctx context.Context, stdin []byte, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	Log *zap.Logger
}

func (r ExecRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, []byte, error) {
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	fields := []zap.Field{
		zap.String("cmd", name),
		zap.String("args", strings.Join(args, " ")),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		log.Error("textextract.ExecRunner: command failed",
			append(fields, zap.Error(err), zap.String("stderr", truncate(errb.String(), 8<<10)))...)
	} else {
		log.Debug("textextract.ExecRunner: command ok",
			append(fields, zap.Int("stdout_bytes", out.Len()))...)
	}
	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "...(truncated)"
}
