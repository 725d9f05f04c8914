package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DirSink stores backup archives in a local directory. It is the default
// sink for headless runs; desktop builds swap in a cloud drive adapter.
type DirSink struct {
	dir string
}

// NewDirSink returns a sink rooted at dir. The directory is created lazily
// on first upload.
func NewDirSink(dir string) *DirSink {
	return &DirSink{dir: dir}
}

// Upload copies the staged archive into the sink directory. The copy goes
// through a temp file so a crash mid-write never leaves a truncated archive
// under the final name.
func (d *DirSink) Upload(ctx context.Context, filePath, fileName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.dir, 0o700); err != nil {
		return fmt.Errorf("unable to create sink dir: %w", err)
	}

	src, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer src.Close()

	tmp, err := os.CreateTemp(d.dir, fileName+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), filepath.Join(d.dir, fileName))
}

// Download copies an archive out of the sink directory.
func (d *DirSink) Download(ctx context.Context, fileName,
	destPath string) error {

	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := os.Open(filepath.Join(d.dir, fileName))
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(
		destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600,
	)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// Exists reports whether the sink holds an archive under fileName.
func (d *DirSink) Exists(ctx context.Context, fileName string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := os.Stat(filepath.Join(d.dir, fileName))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
