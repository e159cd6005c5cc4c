package mime

import (
	"bytes"
	"io"
	"os"
)

// Open opens and returns the FileHeader's associated File.
func (fh *FileHeader) Open() (File, error) {
	if b := fh.content; b != nil {
		r := io.NewSectionReader(bytes.NewReader(b), 0, int64(len(b)))
		return sectionReadCloser{r}, nil
	}
	return os.Open(fh.tmpfile)
}

// Close is a no-op: an in-memory upload holds no resource to release.
func (rsc sectionReadCloser) Close() error { return nil }

// Remove deletes the temporary file backing fh, if the upload spilled
// to disk; a no-op for in-memory uploads.
func (fh *FileHeader) Remove() error {
	if fh.tmpfile == "" {
		return nil
	}
	err := os.Remove(fh.tmpfile)
	fh.tmpfile = ""
	return err
}
