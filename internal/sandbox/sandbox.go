// Package sandbox extracts an untrusted compressed archive into a
// bounded, disposable workspace directory.
//
// Every entry path is validated before anything is written, so a
// traversal attempt fails with no files on disk. Size limits are
// enforced both on declared entry sizes and on the bytes actually
// decompressed, guarding against zip bombs with lying headers.
package sandbox

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

// Limits bounds what an archive is allowed to cost.
type Limits struct {
	MaxArchiveBytes int64 // compressed input size
	MaxTotalBytes   int64 // sum of uncompressed entry sizes
	MaxFileBytes    int64 // per-entry uncompressed cap; larger entries are skipped
}

// DefaultLimits are used for any zero field.
var DefaultLimits = Limits{
	MaxArchiveBytes: 64 << 20,  // 64 MiB
	MaxTotalBytes:   512 << 20, // 512 MiB
	MaxFileBytes:    8 << 20,   // 8 MiB
}

func (l Limits) withDefaults() Limits {
	if l.MaxArchiveBytes <= 0 {
		l.MaxArchiveBytes = DefaultLimits.MaxArchiveBytes
	}
	if l.MaxTotalBytes <= 0 {
		l.MaxTotalBytes = DefaultLimits.MaxTotalBytes
	}
	if l.MaxFileBytes <= 0 {
		l.MaxFileBytes = DefaultLimits.MaxFileBytes
	}
	return l
}

// ArchiveTooLargeError reports an archive exceeding a configured size limit.
type ArchiveTooLargeError struct {
	What     string // "archive" or "uncompressed"
	Observed int64
	Limit    int64
}

func (e *ArchiveTooLargeError) Error() string {
	return fmt.Sprintf("archive too large: %s size %d exceeds limit %d", e.What, e.Observed, e.Limit)
}

// PathTraversalError reports an entry whose resolved path would escape
// the workspace root.
type PathTraversalError struct {
	Entry string
}

func (e *PathTraversalError) Error() string {
	return fmt.Sprintf("path traversal: entry %q escapes the workspace root", e.Entry)
}

// UnsupportedArchiveError reports input that is not a recognized
// compressed format.
type UnsupportedArchiveError struct {
	Reason string
}

func (e *UnsupportedArchiveError) Error() string {
	return "unsupported archive: " + e.Reason
}

// Workspace is a request-scoped directory holding extracted files.
type Workspace struct {
	root      string
	truncated []string
	closed    bool
}

// Root returns the absolute workspace directory.
func (w *Workspace) Root() string { return w.root }

// Truncated lists entry names skipped because they exceeded the
// per-file cap, in archive order.
func (w *Workspace) Truncated() []string { return w.truncated }

// Close removes the workspace directory. Safe to call more than once.
func (w *Workspace) Close() error {
	if w == nil || w.closed {
		return nil
	}
	w.closed = true
	return os.RemoveAll(w.root)
}

type archiveKind int

const (
	kindUnknown archiveKind = iota
	kindZip
	kindTarGz
)

func detectKind(data []byte) archiveKind {
	switch {
	case len(data) >= 4 && data[0] == 'P' && data[1] == 'K':
		return kindZip
	case len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b:
		return kindTarGz
	default:
		return kindUnknown
	}
}

// Open extracts archive bytes into a fresh workspace. On any error the
// workspace is already removed; on success the caller owns Close.
func Open(data []byte, limits Limits) (*Workspace, error) {
	limits = limits.withDefaults()

	if int64(len(data)) > limits.MaxArchiveBytes {
		return nil, &ArchiveTooLargeError{What: "archive", Observed: int64(len(data)), Limit: limits.MaxArchiveBytes}
	}

	kind := detectKind(data)
	if kind == kindUnknown {
		return nil, &UnsupportedArchiveError{Reason: "expected a zip or tar.gz file"}
	}

	root := filepath.Join(os.TempDir(), "featuremap-"+uuid.NewString())
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}

	w := &Workspace{root: root}
	var err error
	switch kind {
	case kindZip:
		err = w.extractZip(data, limits)
	case kindTarGz:
		err = w.extractTarGz(data, limits)
	}
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	return w, nil
}

// resolveEntry maps an archive entry name to an absolute path inside
// root, rejecting absolute names and anything that escapes.
func resolveEntry(root, name string) (string, error) {
	if name == "" {
		return "", &PathTraversalError{Entry: name}
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", &PathTraversalError{Entry: name}
	}
	target := filepath.Join(root, clean)
	if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
		return "", &PathTraversalError{Entry: name}
	}
	return target, nil
}

// checkLinkTarget rejects symlink entries that point outside the root.
// entryName locates the link itself; linkTarget is what it points at.
func checkLinkTarget(root, entryName, linkTarget string) error {
	if linkTarget == "" {
		return &PathTraversalError{Entry: entryName}
	}
	if filepath.IsAbs(linkTarget) {
		return &PathTraversalError{Entry: entryName}
	}
	linkDir := filepath.Dir(filepath.Join(root, filepath.FromSlash(entryName)))
	resolved := filepath.Clean(filepath.Join(linkDir, filepath.FromSlash(linkTarget)))
	if resolved != root && !strings.HasPrefix(resolved, root+string(filepath.Separator)) {
		return &PathTraversalError{Entry: entryName}
	}
	return nil
}

func (w *Workspace) extractZip(data []byte, limits Limits) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return &UnsupportedArchiveError{Reason: "invalid zip: " + err.Error()}
	}

	// Validation pass: no entry is written until every entry checks out.
	var declared int64
	for _, f := range zr.File {
		if _, err := resolveEntry(w.root, f.Name); err != nil {
			return err
		}
		if f.Mode()&os.ModeSymlink != 0 {
			target, err := readZipLink(f)
			if err != nil {
				return fmt.Errorf("reading symlink entry %q: %w", f.Name, err)
			}
			if err := checkLinkTarget(w.root, f.Name, target); err != nil {
				return err
			}
			continue
		}
		declared += int64(f.UncompressedSize64)
		if declared > limits.MaxTotalBytes {
			return &ArchiveTooLargeError{What: "uncompressed", Observed: declared, Limit: limits.MaxTotalBytes}
		}
	}

	var written int64
	for _, f := range zr.File {
		target, err := resolveEntry(w.root, f.Name)
		if err != nil {
			return err
		}
		switch {
		case f.Mode().IsDir() || strings.HasSuffix(f.Name, "/"):
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating directory for %q: %w", f.Name, err)
			}
		case f.Mode()&os.ModeSymlink != 0:
			// Validated above; links are not materialized, the
			// inventory never follows them anyway.
		default:
			if int64(f.UncompressedSize64) > limits.MaxFileBytes {
				w.truncated = append(w.truncated, f.Name)
				continue
			}
			rc, err := f.Open()
			if err != nil {
				return fmt.Errorf("opening entry %q: %w", f.Name, err)
			}
			n, err := w.writeEntry(target, f.Name, rc, limits)
			_ = rc.Close()
			if err != nil {
				return err
			}
			written += n
			if written > limits.MaxTotalBytes {
				return &ArchiveTooLargeError{What: "uncompressed", Observed: written, Limit: limits.MaxTotalBytes}
			}
		}
	}
	return nil
}

func readZipLink(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	b, err := io.ReadAll(io.LimitReader(rc, 4096))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (w *Workspace) extractTarGz(data []byte, limits Limits) error {
	// Validation pass over the stream; the input is in memory so a
	// second decompression is cheap relative to the safety it buys.
	if err := validateTarGz(w.root, data, limits); err != nil {
		return err
	}

	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return &UnsupportedArchiveError{Reason: "invalid gzip: " + err.Error()}
	}
	defer gz.Close()
	tr := tar.NewReader(gz)

	var written int64
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return &UnsupportedArchiveError{Reason: "invalid tar: " + err.Error()}
		}
		target, err := resolveEntry(w.root, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating directory for %q: %w", hdr.Name, err)
			}
		case tar.TypeSymlink, tar.TypeLink:
			// Validated; not materialized.
		case tar.TypeReg:
			if hdr.Size > limits.MaxFileBytes {
				w.truncated = append(w.truncated, hdr.Name)
				continue
			}
			n, err := w.writeEntry(target, hdr.Name, tr, limits)
			if err != nil {
				return err
			}
			written += n
			if written > limits.MaxTotalBytes {
				return &ArchiveTooLargeError{What: "uncompressed", Observed: written, Limit: limits.MaxTotalBytes}
			}
		}
	}
}

func validateTarGz(root string, data []byte, limits Limits) error {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return &UnsupportedArchiveError{Reason: "invalid gzip: " + err.Error()}
	}
	defer gz.Close()
	tr := tar.NewReader(gz)

	var declared int64
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return &UnsupportedArchiveError{Reason: "invalid tar: " + err.Error()}
		}
		if _, err := resolveEntry(root, hdr.Name); err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeSymlink, tar.TypeLink:
			if err := checkLinkTarget(root, hdr.Name, hdr.Linkname); err != nil {
				return err
			}
		case tar.TypeReg:
			declared += hdr.Size
			if declared > limits.MaxTotalBytes {
				return &ArchiveTooLargeError{What: "uncompressed", Observed: declared, Limit: limits.MaxTotalBytes}
			}
		}
	}
}

// writeEntry copies one regular entry to disk. Declared sizes are not
// trusted: if the stream exceeds the per-file cap mid-copy the partial
// file is removed and the entry recorded truncated.
func (w *Workspace) writeEntry(target, name string, r io.Reader, limits Limits) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("creating directory for %q: %w", name, err)
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("creating file for %q: %w", name, err)
	}
	n, err := io.Copy(out, io.LimitReader(r, limits.MaxFileBytes+1))
	cerr := out.Close()
	if err != nil {
		_ = os.Remove(target)
		return 0, fmt.Errorf("writing entry %q: %w", name, err)
	}
	if cerr != nil {
		_ = os.Remove(target)
		return 0, fmt.Errorf("writing entry %q: %w", name, cerr)
	}
	if n > limits.MaxFileBytes {
		_ = os.Remove(target)
		w.truncated = append(w.truncated, name)
		return 0, nil
	}
	return n, nil
}
