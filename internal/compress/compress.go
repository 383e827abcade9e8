// Package compress unpacks uploaded archives and packs exported files.
package compress

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
)

// ErrNoTabularFile is returned when an archive holds no CSV or XLSX entry.
var ErrNoTabularFile = errors.New("no CSV or XLSX file found in the archive")

// IsTabular reports whether name looks like a file the pipeline can parse.
func IsTabular(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".xlsx", ".xlsm":
		return true
	}
	return false
}

// Unwrap opens the tabular file inside a .zip or .tar upload. Other files
// are returned as they are. The returned name is the one to pick a parser by.
// Archives are read fully and r is closed before Unwrap returns.
func Unwrap(name string, r io.ReadCloser) (string, io.ReadCloser, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".zip":
		zr, err := NewZipReader(r)
		if err != nil {
			return "", nil, err
		}
		return zr.Name(), zr, nil
	case ".tar":
		tr, err := NewTarReader(r)
		if err != nil {
			return "", nil, err
		}
		return tr.Name(), tr, nil
	default:
		return name, r, nil
	}
}
