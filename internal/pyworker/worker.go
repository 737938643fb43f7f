// Package pyworker keeps a python helper process alive for the lifetime of
// the server so its model is loaded once. Requests and responses are single
// JSON documents, one per line.
package pyworker

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/kdimtricp/speechguard/internal/logging"
)

// Conn is a running helper process.
type Conn struct {
	In  io.WriteCloser
	Out io.Reader
	// Stop terminates the process and releases its pipes.
	Stop func() error
	// Stderr returns the tail of the process's stderr, if captured.
	Stderr func() string
}

// Launcher starts a helper process.
type Launcher func(name string, args ...string) (*Conn, error)

// Worker owns one helper process. Calls are serialised; a process that dies
// or is abandoned by a cancelled call is restarted on the next call.
type Worker struct {
	python string
	script []byte
	args   []string
	launch Launcher
	logger *slog.Logger

	mu         sync.Mutex
	conn       *Conn
	out        *bufio.Reader
	scriptPath string
	closed     bool
}

func New(python string, script []byte, args []string, logger *slog.Logger) *Worker {
	if python == "" {
		python = "python3"
	}
	return &Worker{
		python: python,
		script: script,
		args:   args,
		launch: launchProcess,
		logger: logging.NewComponentLogger(logger, "pyworker"),
	}
}

// WithLauncher sets a custom process launcher (for testing).
func (w *Worker) WithLauncher(launch Launcher) *Worker {
	w.launch = launch
	return w
}

// Start launches the helper if it is not already running.
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ensureStarted()
}

type envelope struct {
	Error string `json:"error"`
}

// Call sends req and decodes the helper's reply into resp. A reply carrying
// an "error" field is returned as an error.
func (w *Worker) Call(ctx context.Context, req, resp any) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	payload = append(payload, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := w.ensureStarted(); err != nil {
		return err
	}

	if _, err := w.conn.In.Write(payload); err != nil {
		w.stopLocked()
		return fmt.Errorf("helper write failed: %w", err)
	}

	type reply struct {
		line []byte
		err  error
	}
	ch := make(chan reply, 1)
	out := w.out
	go func() {
		line, err := out.ReadBytes('\n')
		ch <- reply{line, err}
	}()

	var r reply
	select {
	case r = <-ch:
	case <-ctx.Done():
		w.logger.Warn("helper call abandoned; restarting on next call",
			logging.String(logging.FieldEventType, "helper_abandoned"),
			logging.Error(ctx.Err()))
		w.stopLocked()
		return ctx.Err()
	}

	if r.err != nil {
		stderr := w.stderrTail()
		w.stopLocked()
		if stderr != "" {
			return fmt.Errorf("helper exited: %w: %s", r.err, stderr)
		}
		return fmt.Errorf("helper exited: %w", r.err)
	}
	var env envelope
	if err := json.Unmarshal(r.line, &env); err != nil {
		return fmt.Errorf("failed to parse helper response: %w", err)
	}
	if env.Error != "" {
		return errors.New(env.Error)
	}
	if err := json.Unmarshal(r.line, resp); err != nil {
		return fmt.Errorf("failed to parse helper response: %w", err)
	}
	return nil
}

// Close stops the helper and removes its script.
func (w *Worker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	w.stopLocked()
	if w.scriptPath == "" {
		return nil
	}
	err := os.Remove(w.scriptPath)
	w.scriptPath = ""
	return err
}

func (w *Worker) ensureStarted() error {
	if w.closed {
		return errors.New("helper is closed")
	}
	if w.conn != nil {
		return nil
	}

	if w.scriptPath == "" {
		path, err := writeScript(w.script)
		if err != nil {
			return err
		}
		w.scriptPath = path
	}

	args := append([]string{w.scriptPath}, w.args...)
	conn, err := w.launch(w.python, args...)
	if err != nil {
		return fmt.Errorf("failed to start helper: %w", err)
	}
	w.conn = conn
	w.out = bufio.NewReaderSize(conn.Out, 64<<10)

	w.logger.Info("helper started", logging.String("python", w.python))
	return nil
}

func (w *Worker) stopLocked() {
	if w.conn == nil {
		return
	}
	if w.conn.Stop != nil {
		if err := w.conn.Stop(); err != nil {
			w.logger.Debug("helper stop", logging.Error(err))
		}
	}
	w.conn = nil
	w.out = nil
}

func (w *Worker) stderrTail() string {
	if w.conn == nil || w.conn.Stderr == nil {
		return ""
	}
	return w.conn.Stderr()
}

func writeScript(script []byte) (string, error) {
	file, err := os.CreateTemp("", "speechguard_helper_*.py")
	if err != nil {
		return "", fmt.Errorf("failed to write helper script: %w", err)
	}
	defer file.Close()
	if _, err := file.Write(script); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("failed to write helper script: %w", err)
	}
	return file.Name(), nil
}
