package commands

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"
)

// isTTY checks if the given file is a terminal
func isTTY(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// pagedOutput returns stdout, or a pager when stdout is a terminal and
// paging is allowed. The returned closer waits for the pager to exit.
func pagedOutput(noPager bool) io.WriteCloser {
	if noPager || !isTTY(os.Stdout) {
		return nopCloser{os.Stdout}
	}
	pager, err := startPager()
	if err != nil {
		return nopCloser{os.Stdout}
	}
	return pager
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// startPager runs $PAGER (less by default) fed through a pipe
func startPager() (io.WriteCloser, error) {
	pagerCmd := os.Getenv("PAGER")
	if pagerCmd == "" {
		pagerCmd = "less"
	}

	parts := strings.Fields(pagerCmd)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty pager command")
	}

	cmdName := parts[0]
	cmdArgs := parts[1:]

	if cmdName == "less" || strings.HasSuffix(cmdName, "/less") {
		// -F: quit if output fits on one screen, -X: don't clear screen on exit
		cmdArgs = append([]string{"-F", "-X"}, cmdArgs...)
	}

	cmd := exec.Command(cmdName, cmdArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return &pagerWriter{writer: stdin, cmd: cmd}, nil
}

// pagerWriter wraps a pager process
type pagerWriter struct {
	writer io.WriteCloser
	cmd    *exec.Cmd
}

func (pw *pagerWriter) Write(p []byte) (int, error) {
	return pw.writer.Write(p)
}

func (pw *pagerWriter) Close() error {
	pw.writer.Close()
	return pw.cmd.Wait()
}
