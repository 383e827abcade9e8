package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRules(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultRules_Valid(t *testing.T) {
	assert.NoError(t, DefaultRules().Validate())
}

func TestLoadRules_OverridesDefaults(t *testing.T) {
	path := writeRules(t, `
keywords: [Chair, " LAMP ", chair]
missing_policy: Reject
aliases:
  payment_method:
    Upi: E-Wallet
`)

	rules, err := LoadRules(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"chair", "lamp"}, rules.Keywords)
	assert.Equal(t, MissingReject, rules.MissingPolicy)
	assert.Equal(t, DefaultRules().RequiredFields, rules.RequiredFields)
	assert.Equal(t, "High", rules.Aliases[FieldOrderPriority]["Critical"])
	assert.Equal(t, "E-Wallet", rules.Aliases[FieldPaymentMethod]["Upi"])
}

func TestLoadRules_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{name: "empty keywords", body: "keywords: []\n", want: ErrNoKeywords},
		{name: "bad policy", body: "missing_policy: ignore\n", want: ErrInvalidMissingPolicy},
		{name: "product not required", body: "product_field: item\n", want: ErrProductFieldNotInModel},
		{name: "categorical outside required", body: "categorical_fields: [sales]\n", want: ErrUnknownCategorical},
		{name: "alias outside required", body: "aliases:\n  sales:\n    a: b\n", want: ErrUnknownAliasField},
		{name: "no required fields", body: "required_fields: []\n", want: ErrNoRequiredFields},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRules(writeRules(t, tt.body))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadRules_BadFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadRules(writeRules(t, "keywords: [unterminated\n"))
	assert.Error(t, err)
}

func TestLoadRules_ExampleFile(t *testing.T) {
	rules, err := LoadRules("../../configs/rules.example.yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultRules().canonical(), rules)
}
