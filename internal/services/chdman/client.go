package chdman

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"rommate/internal/services"
)

// ErrNotInstalled reports that the chdman binary could not be located.
var ErrNotInstalled = errors.New("chdman not installed")

// maxErrorDetail bounds how much tool output is surfaced in an error.
const maxErrorDetail = 200

// ProgressUpdate captures chdman progress output.
type ProgressUpdate struct {
	Phase   string
	Percent float64
	Ratio   float64
}

// Executor abstracts command execution for testability. onLine receives both
// stdout and stderr lines; carriage-return updates count as lines.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithLookPath overrides binary discovery (primarily for tests).
func WithLookPath(fn func(string) (string, error)) Option {
	return func(c *Client) {
		if fn != nil {
			c.lookPath = fn
		}
	}
}

// Client wraps chdman CLI interactions.
type Client struct {
	binary         string
	convertTimeout time.Duration
	verifyTimeout  time.Duration
	exec           Executor
	lookPath       func(string) (string, error)
}

// New constructs a chdman client. Zero timeouts mean unlimited.
func New(binary string, convertTimeoutSeconds, verifyTimeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("chdman binary required")
	}
	client := &Client{
		binary:         binary,
		convertTimeout: time.Duration(convertTimeoutSeconds) * time.Second,
		verifyTimeout:  time.Duration(verifyTimeoutSeconds) * time.Second,
		exec:           commandExecutor{},
		lookPath:       exec.LookPath,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Binary returns the configured executable name or path.
func (c *Client) Binary() string {
	return c.binary
}

// Available reports whether the binary can be resolved.
func (c *Client) Available() bool {
	_, err := c.lookPath(c.binary)
	return err == nil
}

// CreateCD compresses a CUE/GDI/CDI/ISO image into output. A partial output
// file is removed when chdman fails.
func (c *Client) CreateCD(ctx context.Context, input, output string, progress func(ProgressUpdate)) error {
	if strings.TrimSpace(input) == "" || strings.TrimSpace(output) == "" {
		return services.Wrap(services.ErrValidation, "chdman", "createcd", "input and output required", nil)
	}
	if !c.Available() {
		return services.Wrap(services.ErrExternalTool, "chdman", "createcd", c.binary, ErrNotInstalled)
	}

	runCtx := ctx
	if c.convertTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.convertTimeout)
		defer cancel()
	}

	args := []string{"createcd", "-i", input, "-o", output}
	detail := &outputTail{}
	err := c.exec.Run(runCtx, c.binary, args, func(line string) {
		if update, ok := ParseProgress(line); ok {
			if progress != nil {
				progress(update)
			}
			return
		}
		detail.add(line)
	})
	if err != nil {
		_ = os.Remove(output)
		return c.wrapRunError(runCtx, "createcd", detail, err)
	}
	if info, statErr := os.Stat(output); statErr != nil || info.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, "chdman", "createcd", "no output file produced", statErr)
	}
	return nil
}

// Verify runs chdman's built-in integrity check on a CHD file.
func (c *Client) Verify(ctx context.Context, path string) error {
	if !c.Available() {
		return services.Wrap(services.ErrExternalTool, "chdman", "verify", c.binary, ErrNotInstalled)
	}

	runCtx := ctx
	if c.verifyTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.verifyTimeout)
		defer cancel()
	}

	detail := &outputTail{}
	reportedFailure := false
	err := c.exec.Run(runCtx, c.binary, []string{"verify", "-i", path}, func(line string) {
		if _, ok := ParseProgress(line); ok {
			return
		}
		if strings.Contains(strings.ToLower(line), "verification failed") {
			reportedFailure = true
		}
		detail.add(line)
	})
	if err != nil {
		return c.wrapRunError(runCtx, "verify", detail, err)
	}
	if reportedFailure {
		return services.Wrap(services.ErrExternalTool, "chdman", "verify", detail.String(), nil)
	}
	return nil
}

func (c *Client) wrapRunError(ctx context.Context, operation string, detail *outputTail, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "chdman", operation, "timed out", err)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return services.Wrap(services.ErrCanceled, "chdman", operation, "", err)
	}
	return services.Wrap(services.ErrExternalTool, "chdman", operation, detail.String(), err)
}

type outputTail struct {
	buf bytes.Buffer
}

func (o *outputTail) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" || o.buf.Len() >= maxErrorDetail {
		return
	}
	if o.buf.Len() > 0 {
		o.buf.WriteString("; ")
	}
	o.buf.WriteString(line)
}

func (o *outputTail) String() string {
	s := o.buf.String()
	if len(s) > maxErrorDetail {
		s = s[:maxErrorDetail]
	}
	return s
}

var progressPattern = regexp.MustCompile(`^([A-Za-z ]+),\s*([0-9]+(?:\.[0-9]+)?)%\s*complete(?:.*ratio=([0-9]+(?:\.[0-9]+)?)%)?`)

// ParseProgress extracts a progress update from a chdman output line.
func ParseProgress(line string) (ProgressUpdate, bool) {
	line = strings.TrimSpace(line)
	m := progressPattern.FindStringSubmatch(line)
	if m == nil {
		return ProgressUpdate{}, false
	}
	percent, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return ProgressUpdate{}, false
	}
	update := ProgressUpdate{Phase: strings.TrimSpace(m[1]), Percent: percent, Ratio: -1}
	if m[3] != "" {
		if ratio, err := strconv.ParseFloat(m[3], 64); err == nil {
			update.Ratio = ratio
		}
	}
	return update, true
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Split(scanLinesOrCR)
		for scanner.Scan() {
			if onLine == nil {
				continue
			}
			mu.Lock()
			onLine(scanner.Text())
			mu.Unlock()
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}

// scanLinesOrCR splits on '\n' or '\r' so in-place progress updates are
// delivered as they happen.
func scanLinesOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
