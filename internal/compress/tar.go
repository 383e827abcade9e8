package compress

import (
	"archive/tar"
	"bytes"
	"io"
	"time"
)

// TarReader implements io.ReadCloser for reading the first tabular file of a TAR archive.
type TarReader struct {
	current io.Reader
	name    string
}

// NewTarReader creates a new TarReader, positioned at the first CSV or XLSX file of the archive.
func NewTarReader(r io.ReadCloser) (*TarReader, error) {
	defer r.Close()

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, r); err != nil {
		return nil, err
	}

	tr := tar.NewReader(bytes.NewReader(buf.Bytes()))
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if header.Typeflag == tar.TypeReg && IsTabular(header.Name) {
			return &TarReader{current: tr, name: header.Name}, nil
		}
	}

	return nil, ErrNoTabularFile
}

// Name returns the archive entry being read.
func (t *TarReader) Name() string {
	return t.name
}

func (t *TarReader) Read(p []byte) (int, error) {
	return t.current.Read(p)
}

// Close has nothing to release, the archive lives in memory.
func (t *TarReader) Close() error {
	return nil
}

// TarWriter packs everything written to it into a single-file TAR archive.
// A tar header needs the entry size, so content is buffered until Close.
type TarWriter struct {
	w        io.Writer
	fileName string
	buf      bytes.Buffer
}

// NewTarWriter creates a TarWriter holding one entry called fileName.
func NewTarWriter(w io.Writer, fileName string) *TarWriter {
	return &TarWriter{w: w, fileName: fileName}
}

func (t *TarWriter) Write(p []byte) (int, error) {
	return t.buf.Write(p)
}

// Close writes the archive to the underlying writer.
func (t *TarWriter) Close() error {
	tw := tar.NewWriter(t.w)
	header := &tar.Header{
		Name:     t.fileName,
		Mode:     0o644,
		Size:     int64(t.buf.Len()),
		ModTime:  time.Now(),
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	if _, err := tw.Write(t.buf.Bytes()); err != nil {
		return err
	}
	return tw.Close()
}
