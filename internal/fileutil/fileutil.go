package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// ErrExists is returned when a destination is already present.
var ErrExists = errors.New("destination already exists")

// CopyRangeVerified streams src, minus its first offset bytes, into dst and
// re-reads dst to confirm size and SHA-256. dst must not already exist and is
// removed on any failure.
func CopyRangeVerified(fsys afero.Fs, src, dst string, offset int64) (int64, error) {
	if offset < 0 {
		return 0, fmt.Errorf("negative offset %d", offset)
	}
	srcInfo, err := fsys.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("stat source: %w", err)
	}
	if offset > srcInfo.Size() {
		return 0, fmt.Errorf("offset %d exceeds source size %d", offset, srcInfo.Size())
	}
	want := srcInfo.Size() - offset

	if _, err := fsys.Stat(dst); err == nil {
		return 0, fmt.Errorf("%s: %w", dst, ErrExists)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("stat destination: %w", err)
	}
	if err := fsys.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("create destination directory: %w", err)
	}

	in, err := fsys.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	if _, err := in.Seek(offset, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek source: %w", err)
	}

	out, err := fsys.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, srcInfo.Mode().Perm())
	if err != nil {
		return 0, err
	}
	fail := func(err error) (int64, error) {
		_ = out.Close()
		_ = fsys.Remove(dst)
		return 0, err
	}

	srcHasher := sha256.New()
	written, err := io.Copy(out, io.TeeReader(in, srcHasher))
	if err != nil {
		return fail(err)
	}
	if err := out.Close(); err != nil {
		return fail(err)
	}
	if written != want {
		_ = fsys.Remove(dst)
		return 0, fmt.Errorf("copy size mismatch: expected %d bytes, copied %d bytes", want, written)
	}

	dstSum, err := hashFile(fsys, dst)
	if err != nil {
		_ = fsys.Remove(dst)
		return 0, fmt.Errorf("verify destination: %w", err)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstSum) {
		_ = fsys.Remove(dst)
		return 0, errors.New("copy hash mismatch: file corrupted during copy")
	}
	return written, nil
}

// WriteFileAtomic writes data to path through a temporary sibling and rename.
func WriteFileAtomic(fsys afero.Fs, path string, data []byte, mode os.FileMode) error {
	tmp := path + ".tmp"
	if err := afero.WriteFile(fsys, tmp, data, mode); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := fsys.Rename(tmp, path); err != nil {
		_ = fsys.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func hashFile(fsys afero.Fs, path string) ([]byte, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
