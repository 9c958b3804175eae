package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// stderrTail is the number of trailing stderr lines included in an error.
const stderrTail = 5

// ToFile runs a command in dir, writing its stdout to path. Stderr is logged at debug level as it arrives.
// If the command fails, path is removed and the tail of stderr is included in the returned error.
func ToFile(ctx context.Context, logger *log.Logger, dir string, path string, name string, args ...string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	err = run(ctx, logger, file, dir, name, args...)

	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close %s: %w", path, closeErr)
	}

	if err != nil {
		if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			logger.Debugf("failed to remove %s: %v", path, removeErr)
		}
	}

	return err
}

func run(ctx context.Context, logger *log.Logger, out io.Writer, dir string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	// replace the default Cancel handler installed by CommandContext because it sends SIGKILL (-9).
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.Dir = dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdout of %s: %w", name, err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to open stderr of %s: %w", name, err)
	}

	logger.Debugf("executing: %s", cmd.String())

	if err = cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}

	var tail []string

	eg := &errgroup.Group{}

	eg.Go(func() error {
		if _, err := io.Copy(out, stdout); err != nil {
			return fmt.Errorf("failed to copy output of %s: %w", name, err)
		}

		return nil
	})

	eg.Go(func() error {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			line := scanner.Text()
			logger.Debug(line)

			tail = append(tail, line)
			if len(tail) > stderrTail {
				tail = tail[1:]
			}
		}

		// stderr is diagnostic only, a read failure here is not fatal
		if err := scanner.Err(); err != nil {
			logger.Debugf("failed to read stderr of %s: %v", name, err)
		}

		return nil
	})

	// both pipes must be drained before calling Wait
	copyErr := eg.Wait()

	if err = cmd.Wait(); err != nil {
		if len(tail) > 0 {
			return fmt.Errorf("%s failed: %w: %s", cmd.String(), err, strings.Join(tail, "\n"))
		}

		return fmt.Errorf("%s failed: %w", cmd.String(), err)
	}

	return copyErr
}
