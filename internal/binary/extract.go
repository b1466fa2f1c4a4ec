package binary

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/mholt/archives"

	"github.com/watchthelight/hginstall/internal/errors"
)

// executableMode is the permission set on installed binaries
const executableMode fs.FileMode = 0o755

// MaxBinarySize caps the decompressed size of the executable entry.
const MaxBinarySize int64 = 4 * MaxArtifactSize

// Extractor unpacks a verified archive and installs the executable it holds
type Extractor struct {
	maxEntrySize int64
}

// NewExtractor creates a new extractor
func NewExtractor() *Extractor {
	return &Extractor{maxEntrySize: MaxBinarySize}
}

// Install finds the single entry named name in the archive data and places
// it at targetDir/name with mode 0755. The file is written to a temporary
// name in targetDir and renamed into place, so an existing binary is either
// fully replaced or left untouched.
//
// Archive problems are marked errors.ErrExtraction and filesystem problems
// errors.ErrFilesystem.
func (e *Extractor) Install(ctx context.Context, data []byte, name, targetDir string) (*InstalledBinary, error) {
	contents, err := e.extractEntry(ctx, data, name)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "create install dir"), errors.ErrFilesystem)
	}

	destPath := filepath.Join(targetDir, name)
	if err := writeAtomic(destPath, contents, executableMode); err != nil {
		return nil, errors.Mark(err, errors.ErrFilesystem)
	}

	return &InstalledBinary{Path: destPath, Mode: executableMode}, nil
}

// extractEntry returns the contents of the only regular file in the archive
// whose base name is name.
func (e *Extractor) extractEntry(ctx context.Context, data []byte, name string) ([]byte, error) {
	kind, err := filetype.Match(data)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "detect archive type"), errors.ErrExtraction)
	}

	var (
		found   []byte
		matches int
	)
	handler := func(ctx context.Context, info archives.FileInfo) error {
		if err := checkEntryPath(info.NameInArchive); err != nil {
			return err
		}
		if !info.Mode().IsRegular() || path.Base(filepath.ToSlash(info.NameInArchive)) != name {
			return nil
		}

		matches++
		if matches > 1 {
			return errors.Newf("archive contains more than one %q", name)
		}

		f, err := info.Open()
		if err != nil {
			return errors.Wrapf(err, "open %s", info.NameInArchive)
		}
		defer f.Close()

		found, err = io.ReadAll(io.LimitReader(f, e.maxEntrySize+1))
		if err != nil {
			return errors.Wrapf(err, "read %s", info.NameInArchive)
		}
		if int64(len(found)) > e.maxEntrySize {
			found = nil
			return errors.Newf("%s exceeds limit of %d bytes", info.NameInArchive, e.maxEntrySize)
		}
		return nil
	}

	switch kind.MIME.Value {
	case "application/gzip":
		decoderReader, err := archives.Gz{}.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "open gzip stream"), errors.ErrExtraction)
		}
		defer decoderReader.Close()

		err = archives.Tar{}.Extract(ctx, decoderReader, handler)
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "extract tar.gz"), errors.ErrExtraction)
		}

	case "application/zip":
		err = archives.Zip{}.Extract(ctx, bytes.NewReader(data), handler)
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "extract zip"), errors.ErrExtraction)
		}

	default:
		mime := kind.MIME.Value
		if mime == "" {
			mime = "unknown"
		}
		return nil, errors.Mark(errors.Newf("unsupported archive type: %s", mime), errors.ErrExtraction)
	}

	if matches == 0 {
		return nil, errors.Mark(errors.Newf("binary %q not found in archive", name), errors.ErrExtraction)
	}
	return found, nil
}

// checkEntryPath rejects absolute entry names and names that climb out of
// the extraction root.
func checkEntryPath(name string) error {
	slashed := filepath.ToSlash(name)
	if strings.HasPrefix(slashed, "/") || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return errors.Newf("illegal file path: %s", name)
	}
	for _, part := range strings.Split(slashed, "/") {
		if part == ".." {
			return errors.Newf("illegal file path: %s", name)
		}
	}
	return nil
}

// writeAtomic writes data to a temporary file next to dest and renames it
// into place. The temporary file is removed on any failure.
func writeAtomic(dest string, data []byte, mode fs.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpPath := tmp.Name()

	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return errors.Wrap(err, "write temp file")
	}
	if err = tmp.Chmod(mode); err != nil {
		return errors.Wrap(err, "set executable")
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrap(err, "sync temp file")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err = os.Rename(tmpPath, dest); err != nil {
		return errors.Wrap(err, "rename into place")
	}
	return nil
}
