package pipeline

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadCSV(t *testing.T) {
	input := "\ufeffGender, Product\nMale, Sofa\n\n,\nFemale,\"Chair, Folding\"\nMale\n"

	ds, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"Gender", "Product"}, ds.Columns)
	assert.Equal(t, [][]string{
		{"Male", "Sofa"},
		{"Female", "Chair, Folding"},
		{"Male"},
	}, ds.Rows)
	assert.Equal(t, []int{2, 5, 6}, ds.Lines)
}

func TestReadCSV_Invalid(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ReadCSV(strings.NewReader("a,b\n\"unterminated,1\n"))
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, KindInvalidInput, KindOf(err))
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Gender", "Customer_Login_Type", "Order_Priority", "Product", "Payment_Method"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Male", "Member", "High", "Office Chair", "Cash"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	ds, err := Read("sales.XLSX", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, uploadColumns, ds.Columns)
	assert.Equal(t, [][]string{{"Male", "Member", "High", "Office Chair", "Cash"}}, ds.Rows)
	assert.Equal(t, []int{2}, ds.Lines)
}

func TestReadXLSX_NotAWorkbook(t *testing.T) {
	_, err := ReadXLSX(strings.NewReader("not a zip"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}
