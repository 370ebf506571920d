package romfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bodgit/sevenzip"
	"github.com/klauspost/compress/zip"
	"github.com/nwaples/rardecode/v2"
	"github.com/spf13/afero"
)

// ErrNoEntry reports an archive that holds no ROM-like entry.
var ErrNoEntry = errors.New("archive contains no rom entry")

// Kind identifies how a Source stores its payload.
type Kind int

const (
	KindFile Kind = iota
	KindZip
	KindSevenZip
	KindRar
)

func (k Kind) String() string {
	switch k {
	case KindZip:
		return "zip"
	case KindSevenZip:
		return "7z"
	case KindRar:
		return "rar"
	default:
		return "file"
	}
}

// KindOf classifies a path by extension.
func KindOf(name string) Kind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".zip":
		return KindZip
	case ".7z":
		return KindSevenZip
	case ".rar":
		return KindRar
	default:
		return KindFile
	}
}

// IsArchive reports whether name is a supported container.
func IsArchive(name string) bool {
	return KindOf(name) != KindFile
}

// Source is one verifiable payload: a plain file or a single archive entry.
type Source struct {
	fs      afero.Fs
	path    string
	inner   string
	size    int64
	modTime time.Time
	kind    Kind
	index   int
}

// Path is the file on disk.
func (s *Source) Path() string { return s.path }

// Inner is the entry path inside the archive; empty for plain files.
func (s *Source) Inner() string { return s.inner }

// Kind reports the container type.
func (s *Source) Kind() Kind { return s.kind }

// Size is the payload size in bytes (uncompressed for archive entries).
func (s *Source) Size() int64 { return s.size }

// Name is the payload's base name: the entry name for archives, the file name otherwise.
func (s *Source) Name() string {
	if s.inner != "" {
		return path.Base(filepath.ToSlash(s.inner))
	}
	return filepath.Base(s.path)
}

// Display renders "archive.zip/entry.sfc" for archives and the base name otherwise.
func (s *Source) Display() string {
	if s.inner != "" {
		return filepath.Base(s.path) + "/" + s.inner
	}
	return filepath.Base(s.path)
}

// Key identifies the payload content for caching. It changes whenever the
// file on disk is replaced or modified.
func (s *Source) Key() string {
	return fmt.Sprintf("%s|%s|%d|%d", s.path, s.inner, s.size, s.modTime.UnixNano())
}

// ModTime is the modification time of the file on disk.
func (s *Source) ModTime() time.Time { return s.modTime }

// Open returns a reader positioned offset bytes into the payload. Offsets past
// the end yield an empty stream.
func (s *Source) Open(offset int64) (io.ReadCloser, error) {
	if offset < 0 {
		return nil, fmt.Errorf("negative offset %d", offset)
	}
	if offset > 0 && offset >= s.size {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	file, err := s.fs.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	if s.kind == KindFile {
		if offset > 0 {
			if _, err := file.Seek(offset, io.SeekStart); err != nil {
				file.Close()
				return nil, fmt.Errorf("seek %s: %w", s.path, err)
			}
		}
		return file, nil
	}

	entry, err := s.openEntry(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	rc := &entryReader{Reader: entry, closers: []io.Closer{entry, file}}
	if offset > 0 {
		if _, err := io.CopyN(io.Discard, entry, offset); err != nil && !errors.Is(err, io.EOF) {
			rc.Close()
			return nil, fmt.Errorf("skip %d bytes in %s: %w", offset, s.Display(), err)
		}
	}
	return rc, nil
}

func (s *Source) openEntry(file afero.File) (io.ReadCloser, error) {
	switch s.kind {
	case KindZip:
		zr, err := zip.NewReader(file, s.archiveSize(file))
		if err != nil {
			return nil, fmt.Errorf("read zip %s: %w", s.path, err)
		}
		if s.index >= len(zr.File) {
			return nil, fmt.Errorf("zip %s changed while reading", s.path)
		}
		return zr.File[s.index].Open()
	case KindSevenZip:
		sr, err := sevenzip.NewReader(file, s.archiveSize(file))
		if err != nil {
			return nil, fmt.Errorf("read 7z %s: %w", s.path, err)
		}
		if s.index >= len(sr.File) {
			return nil, fmt.Errorf("7z %s changed while reading", s.path)
		}
		return sr.File[s.index].Open()
	case KindRar:
		rr, err := rardecode.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("read rar %s: %w", s.path, err)
		}
		for i := 0; i <= s.index; i++ {
			if _, err := rr.Next(); err != nil {
				return nil, fmt.Errorf("read rar %s: %w", s.path, err)
			}
		}
		return io.NopCloser(rr), nil
	default:
		return nil, fmt.Errorf("unsupported container %s", s.kind)
	}
}

func (s *Source) archiveSize(file afero.File) int64 {
	if info, err := file.Stat(); err == nil {
		return info.Size()
	}
	return 0
}

type entryReader struct {
	io.Reader
	closers []io.Closer
}

func (r *entryReader) Close() error {
	var errs []error
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open resolves path into a Source. For archives the first entry, in archive
// order, for which isROM returns true is selected; a nil isROM accepts any
// regular entry.
func Open(fsys afero.Fs, p string, isROM func(name string) bool) (*Source, error) {
	info, err := fsys.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", p, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", p)
	}
	src := &Source{fs: fsys, path: p, size: info.Size(), modTime: info.ModTime(), kind: KindOf(p)}
	if src.kind == KindFile {
		return src, nil
	}

	entries, err := List(fsys, p)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Dir {
			continue
		}
		if isROM != nil && !isROM(path.Base(e.Name)) {
			continue
		}
		src.inner = e.Name
		src.size = e.Size
		src.index = e.Index
		return src, nil
	}
	return nil, fmt.Errorf("%s: %w", p, ErrNoEntry)
}

// Entry describes one member of an archive.
type Entry struct {
	Index int
	Name  string
	Size  int64
	Dir   bool
}

// List enumerates the members of an archive in archive order.
func List(fsys afero.Fs, p string) ([]Entry, error) {
	file, err := fsys.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", p, err)
	}

	var entries []Entry
	switch KindOf(p) {
	case KindZip:
		zr, err := zip.NewReader(file, info.Size())
		if err != nil {
			return nil, fmt.Errorf("read zip %s: %w", p, err)
		}
		for i, f := range zr.File {
			entries = append(entries, Entry{Index: i, Name: f.Name, Size: int64(f.UncompressedSize64), Dir: f.FileInfo().IsDir()})
		}
	case KindSevenZip:
		sr, err := sevenzip.NewReader(file, info.Size())
		if err != nil {
			return nil, fmt.Errorf("read 7z %s: %w", p, err)
		}
		for i, f := range sr.File {
			entries = append(entries, Entry{Index: i, Name: f.Name, Size: int64(f.UncompressedSize), Dir: f.FileInfo().IsDir()})
		}
	case KindRar:
		rr, err := rardecode.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("read rar %s: %w", p, err)
		}
		for i := 0; ; i++ {
			hdr, err := rr.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("read rar %s: %w", p, err)
			}
			entries = append(entries, Entry{Index: i, Name: hdr.Name, Size: hdr.UnPackedSize, Dir: hdr.IsDir})
		}
	default:
		return nil, fmt.Errorf("%s is not an archive", p)
	}
	return entries, nil
}
