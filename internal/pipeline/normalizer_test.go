package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var uploadColumns = []string{"Gender", "Customer_Login_Type", "Order_Priority", "Product", "Payment_Method"}

func TestNormalize_ProjectsAndCleans(t *testing.T) {
	ds := Dataset{
		Columns: []string{"Sales", "Product", "GENDER", "Payment_Method", "Order_Priority", "Customer_Login_Type", "Notes"},
		Rows: [][]string{
			{"120", "  office CHAIR ", "male", "credit card", "critical", "member", "x"},
			{"80", "dining table", " FEMALE", "debit CARD", "Medium", "guest", ""},
		},
	}

	out, err := NewNormalizer(DefaultRules()).Normalize(ds)
	require.NoError(t, err)

	assert.Equal(t, DefaultRules().RequiredFields, out.Columns)
	assert.Equal(t, [][]string{
		{"Male", "Member", "High", "Office Chair", "Credit Card"},
		{"Female", "Guest", "Medium", "Dining Table", "Debit Card"},
	}, out.Rows)
}

func TestNormalize_DropsIncompleteRows(t *testing.T) {
	ds := Dataset{
		Columns: uploadColumns,
		Rows: [][]string{
			{"Male", "Member", "High", "Sofa", "Cash"},
			{"Female", "Guest", "", "Bed", "Cash"},
			{"Male", "Member", "Low", "NaN", "Cash"},
			{"Male", "Member", "Low", "Chair", "  "},
			{"Male", "Member", "Low"},
			{"Female", "N/A", "Low", "Desk", "Cash"},
			{"Female", "Guest", "Low", "Desk", "Debit Card"},
		},
	}

	out, err := NewNormalizer(DefaultRules()).Normalize(ds)
	require.NoError(t, err)

	require.Len(t, out.Rows, 2)
	assert.Equal(t, "Sofa", out.Rows[0][3])
	assert.Equal(t, "Desk", out.Rows[1][3])
	for _, row := range out.Rows {
		for _, v := range row {
			assert.NotEmpty(t, v)
		}
	}
}

func TestNormalize_RejectPolicy(t *testing.T) {
	rules := DefaultRules()
	rules.MissingPolicy = MissingReject

	ds := Dataset{
		Columns: uploadColumns,
		Rows: [][]string{
			{"Male", "Member", "High", "Sofa", "Cash"},
			{"Female", "", "High", "Bed", "Cash"},
			{"Female", "Guest", "High", "Bed", "null"},
		},
	}

	_, err := NewNormalizer(rules).Normalize(ds)
	var ire *IncompleteRowsError
	require.ErrorAs(t, err, &ire)
	assert.Equal(t, []int{3, 4}, ire.Lines)
	assert.Equal(t, KindIncompleteRows, KindOf(err))
}

func TestNormalize_CriticalBecomesHigh(t *testing.T) {
	ds := Dataset{
		Columns: uploadColumns,
		Rows: [][]string{
			{"Male", "Member", "Critical", "Sofa", "Cash"},
			{"Male", "Member", " CRITICAL ", "Sofa", "Cash"},
			{"Male", "Member", "critical", "Sofa", "Cash"},
			{"Male", "Member", "Low", "Sofa", "Cash"},
		},
	}

	out, err := NewNormalizer(DefaultRules()).Normalize(ds)
	require.NoError(t, err)

	priorities := out.Column(FieldOrderPriority)
	assert.Equal(t, []string{"High", "High", "High", "Low"}, priorities)
	assert.NotContains(t, priorities, "Critical")
}

func TestNormalize_AliasOnlyOnConfiguredField(t *testing.T) {
	ds := Dataset{
		Columns: uploadColumns,
		Rows:    [][]string{{"Male", "Critical", "Low", "Critical Stool", "Cash"}},
	}

	out, err := NewNormalizer(DefaultRules()).Normalize(ds)
	require.NoError(t, err)
	assert.Equal(t, []string{"Male", "Critical", "Low", "Critical Stool", "Cash"}, out.Rows[0])
}

func TestNormalize_NonCategoricalFieldIsOnlyTrimmed(t *testing.T) {
	rules := DefaultRules()
	rules.CategoricalFields = []string{FieldGender}

	ds := Dataset{
		Columns: uploadColumns,
		Rows:    [][]string{{" male ", " member ", " critical ", " office chair ", " cash "}},
	}

	out, err := NewNormalizer(rules).Normalize(ds)
	require.NoError(t, err)
	assert.Equal(t, []string{"Male", "member", "critical", "office chair", "cash"}, out.Rows[0])
}

func TestNormalize_LeavesInputUntouched(t *testing.T) {
	ds := Dataset{
		Columns: []string{"GENDER", "Customer_Login_Type", "Order_Priority", "Product", "Payment_Method"},
		Rows:    [][]string{{"male", "member", "critical", "sofa", "cash"}},
	}

	_, err := NewNormalizer(DefaultRules()).Normalize(ds)
	require.NoError(t, err)
	assert.Equal(t, "GENDER", ds.Columns[0])
	assert.Equal(t, "critical", ds.Rows[0][2])
}

func TestNormalize_MissingColumns(t *testing.T) {
	_, err := NewNormalizer(DefaultRules()).Normalize(Dataset{Columns: []string{"Product"}})
	assert.Equal(t, KindMissingColumns, KindOf(err))
}

func TestNormalize_RejectReportsSourceLines(t *testing.T) {
	rules := DefaultRules()
	rules.MissingPolicy = MissingReject

	input := "Gender,Customer_Login_Type,Order_Priority,Product,Payment_Method\n" +
		"\n" +
		"Male,Member,High,Sofa,Cash\n" +
		",,,,\n" +
		"Female,Guest,,Bed,Cash\n" +
		"\n" +
		"Male,Member,Low,\"Desk\nTop\",null\n" +
		"Female,Guest,Low,Desk,Cash\n"

	ds, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	_, err = NewNormalizer(rules).Normalize(ds)
	var ire *IncompleteRowsError
	require.ErrorAs(t, err, &ire)
	assert.Equal(t, []int{5, 7}, ire.Lines)
	assert.EqualError(t, err, "rows with missing required values on lines: 5, 7")
}

func TestDatasetLine_WithoutRecordedLines(t *testing.T) {
	ds := Dataset{Rows: [][]string{{"a"}, {"b"}}}
	assert.Equal(t, 2, ds.Line(0))
	assert.Equal(t, 3, ds.Line(1))
}

// Title-casing capitalizes after spaces and hyphens only, so apostrophes and
// underscores keep the next letter lowercase. Training labels must be cased
// the same way.
func TestNormalize_TitleCaseWordBoundaries(t *testing.T) {
	ds := Dataset{
		Columns: uploadColumns,
		Rows: [][]string{
			{"male", "member", "low", "o'neil chair", "credit_card"},
			{"female", "guest", "low", "arm-chair", "e-wallet"},
		},
	}

	out, err := NewNormalizer(DefaultRules()).Normalize(ds)
	require.NoError(t, err)
	assert.Equal(t, []string{"O'neil Chair", "Arm-Chair"}, out.Column(FieldProduct))
	assert.Equal(t, []string{"Credit_card", "E-Wallet"}, out.Column(FieldPaymentMethod))
}
