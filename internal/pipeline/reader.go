package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const utf8BOM = "\ufeff"

// ReadCSV parses delimited text whose first record is the header.
func ReadCSV(r io.Reader) (Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		records [][]string
		lines   []int
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Dataset{}, fmt.Errorf("%w: failed to parse CSV: %v", ErrInvalidInput, err)
		}
		line, _ := cr.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}

	return fromRecords(records, lines)
}

// ReadXLSX parses the first sheet of an Excel workbook.
func ReadXLSX(r io.Reader) (Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Dataset{}, fmt.Errorf("%w: failed to open workbook: %v", ErrInvalidInput, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return Dataset{}, fmt.Errorf("%w: failed to read sheet rows: %v", ErrInvalidInput, err)
	}

	return fromRecords(rows, nil)
}

// Read picks a parser by file extension. Anything that is not a workbook is
// treated as CSV.
func Read(filename string, r io.Reader) (Dataset, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(r)
	default:
		return ReadCSV(r)
	}
}

// fromRecords splits off the header and drops blank records. lines holds the
// source line of each record; when nil, record i sits on line i+1.
func fromRecords(records [][]string, lines []int) (Dataset, error) {
	if len(records) == 0 {
		return Dataset{}, fmt.Errorf("%w: %v", ErrInvalidInput, errors.New("file has no header row"))
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	ds := Dataset{
		Columns: header,
		Rows:    make([][]string, 0, len(records)-1),
		Lines:   make([]int, 0, len(records)-1),
	}
	for i := 1; i < len(records); i++ {
		if isBlank(records[i]) {
			continue
		}
		line := i + 1
		if i < len(lines) {
			line = lines[i]
		}
		ds.Rows = append(ds.Rows, records[i])
		ds.Lines = append(ds.Lines, line)
	}

	return ds, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
