package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// Entry is a single named file inside an artifact bundle.
type Entry struct {
	Filename string
	Data     []byte
}

// Bundle packs the entries into an in-memory zip archive. Entries with no
// data are skipped so callers can pass optional artifacts unconditionally.
func Bundle(entries []Entry) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, entry := range entries {
		if len(entry.Data) == 0 {
			continue
		}
		w, err := zw.Create(entry.Filename)
		if err != nil {
			return nil, fmt.Errorf("archive: create entry %s: %w", entry.Filename, err)
		}
		if _, err := w.Write(entry.Data); err != nil {
			return nil, fmt.Errorf("archive: write entry %s: %w", entry.Filename, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("archive: close: %w", err)
	}
	return buf.Bytes(), nil
}
