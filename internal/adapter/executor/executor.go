package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"quiz-pilot/internal/util"

	"go.uber.org/zap"
)

// ErrNoAnswer is returned when the program printed no {"answer": ...} line.
var ErrNoAnswer = errors.New("script printed no answer")

// ScriptExecutor runs generated Python programs in a scratch directory.
type ScriptExecutor struct {
	interpreter string
	timeout     time.Duration
	logger      *zap.Logger
}

func NewScriptExecutor(interpreter string, timeout time.Duration, logger *zap.Logger) *ScriptExecutor {
	if interpreter == "" {
		interpreter = "python3"
	}
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &ScriptExecutor{interpreter: interpreter, timeout: timeout, logger: logger}
}

// Execute writes script to a temporary file, runs it and decodes the
// "answer" field of the last JSON object printed on stdout.
func (e *ScriptExecutor) Execute(ctx context.Context, script string) (interface{}, error) {
	dir, err := os.MkdirTemp("", "quizpilot-script-*")
	if err != nil {
		return nil, fmt.Errorf("create script dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "solution.py")
	if err := os.WriteFile(path, []byte(script), 0o600); err != nil {
		return nil, fmt.Errorf("write script: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.interpreter, path)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	e.logger.Debug("script finished",
		zap.Duration("duration", time.Since(start)),
		zap.Int("stdout_bytes", stdout.Len()),
		zap.Int("stderr_bytes", stderr.Len()),
	)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("script timed out after %s", e.timeout)
	}
	if runErr != nil {
		return nil, fmt.Errorf("script failed: %w: %s", runErr, util.Truncate(strings.TrimSpace(stderr.String()), 500))
	}
	return parseAnswer(stdout.String())
}

func parseAnswer(stdout string) (interface{}, error) {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var out map[string]interface{}
		if err := json.Unmarshal([]byte(line), &out); err != nil {
			continue
		}
		if answer, ok := out["answer"]; ok {
			return answer, nil
		}
	}
	return nil, ErrNoAnswer
}
