package driver

import (
	"context"
	"os"
	"time"
)

// WaitForFile polls for path every poll interval until it exists, the
// timeout elapses or ctx is done. It reports whether the file exists; the
// error is only set when ctx ends the wait.
func WaitForFile(ctx context.Context, path string, poll, timeout time.Duration) (bool, error) {
	if fileExists(path) {
		return true, nil
	}
	if poll <= 0 {
		poll = time.Second
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline.C:
			return fileExists(path), nil
		case <-ticker.C:
			if fileExists(path) {
				return true, nil
			}
		}
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
