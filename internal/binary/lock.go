package binary

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/watchthelight/hginstall/internal/errors"
)

const (
	// StaleLockThreshold is the maximum age of a lock before it's considered stale.
	StaleLockThreshold = 10 * time.Minute
)

// ErrLockExists is returned when another install into the same directory
// holds the lock. It is marked errors.ErrFilesystem.
var ErrLockExists = errors.Mark(
	errors.New("install lock exists: another install into this directory may be in progress"),
	errors.ErrFilesystem)

// installLock serializes installs of one binary into one directory. Installs
// into different directories never contend. Lock files live in lockDir, never
// in the install directory itself.
type installLock struct {
	path string
	file *os.File
}

// lockPath returns the lock file in lockDir guarding installs of name into
// targetDir. Different spellings of the same directory share a lock.
func lockPath(lockDir, targetDir, name string) string {
	if abs, err := filepath.Abs(targetDir); err == nil {
		targetDir = abs
	}
	sum := sha256.Sum256([]byte(filepath.Clean(targetDir)))
	return filepath.Join(lockDir, name+"-"+hex.EncodeToString(sum[:8])+".lock")
}

// acquireInstallLock creates the lock with O_CREATE|O_EXCL. A lock older than
// StaleLockThreshold is assumed abandoned and replaced once.
func acquireInstallLock(ctx context.Context, lockDir, targetDir, name string) (*installLock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(lockDir, 0o700); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "create lock dir"), errors.ErrFilesystem)
	}

	path := lockPath(lockDir, targetDir, name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		if !os.IsExist(err) {
			return nil, errors.Mark(errors.Wrap(err, "create lock file"), errors.ErrFilesystem)
		}
		if stale, _ := isLockStale(path); !stale {
			return nil, ErrLockExists
		}
		os.Remove(path)
		file, err = os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
		if err != nil {
			return nil, ErrLockExists
		}
	}

	lockData := fmt.Sprintf("pid=%d\ntarget=%s\ntimestamp=%s\n", os.Getpid(), targetDir, time.Now().UTC().Format(time.RFC3339))
	if _, err := file.WriteString(lockData); err != nil {
		file.Close()
		os.Remove(path)
		return nil, errors.Mark(errors.Wrap(err, "write lock data"), errors.ErrFilesystem)
	}

	return &installLock{path: path, file: file}, nil
}

// Release removes the lock. Releasing twice is a no-op.
func (l *installLock) Release() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	if l.path != "" {
		path := l.path
		l.path = ""
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove lock file: %w", err)
		}
	}

	return nil
}

func isLockStale(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return time.Since(info.ModTime()) > StaleLockThreshold, nil
}
