package cmdutil

import (
	"bufio"
	"io"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// Captured is the result of a fully-buffered subprocess run.
type Captured struct {
	Code   int
	Stdout string
	Stderr string
}

// FirstNonEmptyOutput returns stderr if non-empty, otherwise stdout, trimmed.
func (c *Captured) FirstNonEmptyOutput() string {
	if s := strings.TrimSpace(c.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(c.Stdout)
}

// RunCaptured runs program with args, buffering both output streams.
// A non-zero exit status is not an error; it is reported via Captured.Code.
func RunCaptured(program string, args []string, dir string) (*Captured, error) {
	cmd := exec.Command(program, args...)
	cmd.Dir = dir

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	code := 0
	if err != nil {
		exitErr := &exec.ExitError{}
		if !errors.As(err, &exitErr) {
			return nil, errors.Wrapf(err, "command execution failed (%s)", program)
		}
		code = exitErr.ExitCode()
		if code < 0 {
			code = 1
		}
	}

	return &Captured{
		Code:   code,
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}, nil
}

// RunStreaming runs program with args, forwarding each output line (stdout
// and stderr interleaved) to sink as it arrives. Returns the exit code.
func RunStreaming(program string, args []string, dir string, sink func(line string)) (int, error) {
	code, _, err := runStreaming(program, args, dir, sink, false)
	return code, err
}

// RunStreamingCollecting is RunStreaming but also returns the combined
// output, for callers that need to inspect it for retry signatures.
func RunStreamingCollecting(program string, args []string, dir string, sink func(line string)) (int, string, error) {
	return runStreaming(program, args, dir, sink, true)
}

func runStreaming(program string, args []string, dir string, sink func(line string), collect bool) (int, string, error) {
	cmd := exec.Command(program, args...)
	cmd.Dir = dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 1, "", errors.WithStack(err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return 1, "", errors.WithStack(err)
	}
	if err := cmd.Start(); err != nil {
		return 1, "", errors.Wrapf(err, "failed to spawn %s", program)
	}

	lines := make(chan string)
	done := make(chan struct{}, 2)
	reader := func(r io.Reader) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		done <- struct{}{}
	}
	go reader(stdout)
	go reader(stderr)
	go func() {
		<-done
		<-done
		close(lines)
	}()

	var collected strings.Builder
	for line := range lines {
		if collect {
			collected.WriteString(line)
			collected.WriteByte('\n')
		}
		sink(line)
	}

	err = cmd.Wait()
	code := 0
	if err != nil {
		exitErr := &exec.ExitError{}
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
			if code < 0 {
				code = 1
			}
		} else {
			return 1, collected.String(), errors.Wrapf(err, "waiting for %s", program)
		}
	}
	return code, collected.String(), nil
}
