// Package stage packages submitted code files into in-memory tar bundles and
// writes them into a sandbox's working directory. Bundles live only for the
// duration of one staging operation and are never written to the host
// filesystem.
package stage

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// WorkDir is the directory inside every sandbox where code is staged and run.
const WorkDir = "/code"

var (
	ErrNoFiles    = errors.New("no files provided")
	ErrUnsafePath = errors.New("unsafe file name")
)

// File is one submitted code file.
type File struct {
	Name string
	Data []byte
}

// Bundle is a transient in-memory tar archive of submitted files.
type Bundle struct {
	data []byte
}

func (b *Bundle) Reader() io.Reader { return bytes.NewReader(b.data) }
func (b *Bundle) Len() int          { return len(b.data) }

// SafeName reduces a submitted file name to its base name, rejecting names
// that carry no usable base. Directory components are dropped so a bundle can
// never escape the staging root.
func SafeName(name string) (string, error) {
	// Clients may submit Windows-style paths; treat both separators as such.
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "" || base == "." || base == ".." || base == "/" {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return base, nil
}

// Build packs files into a tar bundle, each entry under its base name.
func Build(files []File) (*Bundle, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	now := time.Now()

	for _, f := range files {
		name, err := SafeName(f.Name)
		if err != nil {
			return nil, err
		}
		hdr := &tar.Header{
			Name:    name,
			Mode:    0o644,
			Size:    int64(len(f.Data)),
			ModTime: now,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("writing tar header for %s: %w", name, err)
		}
		if _, err := tw.Write(f.Data); err != nil {
			return nil, fmt.Errorf("writing tar data for %s: %w", name, err)
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("closing tar: %w", err)
	}
	return &Bundle{data: buf.Bytes()}, nil
}

// ArchiveWriter is the runtime capability needed to inject a bundle.
type ArchiveWriter interface {
	InjectArchive(ctx context.Context, containerID, path string, archive io.Reader) error
}

// Inject writes the bundle into the sandbox working directory. On failure the
// caller must not proceed to execute.
func Inject(ctx context.Context, rt ArchiveWriter, containerID string, b *Bundle) error {
	if err := rt.InjectArchive(ctx, containerID, WorkDir, b.Reader()); err != nil {
		return fmt.Errorf("staging bundle: %w", err)
	}
	return nil
}
