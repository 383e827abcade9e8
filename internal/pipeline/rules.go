package pipeline

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Field names of the normalized feature table, in model input order.
const (
	FieldGender            = "gender"
	FieldCustomerLoginType = "customer_login_type"
	FieldOrderPriority     = "order_priority"
	FieldProduct           = "product"
	FieldPaymentMethod     = "payment_method"
)

// MissingPolicy decides what happens to rows lacking a required value.
type MissingPolicy string

const (
	// MissingDrop silently discards incomplete rows.
	MissingDrop MissingPolicy = "drop"
	// MissingReject fails the whole dataset with IncompleteRowsError.
	MissingReject MissingPolicy = "reject"
)

// Rules validation errors.
var (
	ErrNoRequiredFields       = errors.New("required_fields must not be empty")
	ErrProductFieldNotInModel = errors.New("product_field must be one of required_fields")
	ErrUnknownCategorical     = errors.New("categorical_fields must be a subset of required_fields")
	ErrUnknownAliasField      = errors.New("aliases may only target required_fields")
	ErrNoKeywords             = errors.New("keywords must not be empty")
	ErrInvalidMissingPolicy   = errors.New("missing_policy must be 'drop' or 'reject'")
)

// Rules is the fixed configuration of the pipeline.
type Rules struct {
	RequiredFields    []string                     `yaml:"required_fields"`
	CategoricalFields []string                     `yaml:"categorical_fields"`
	ProductField      string                       `yaml:"product_field"`
	Keywords          []string                     `yaml:"keywords"`
	Aliases           map[string]map[string]string `yaml:"aliases"`
	NullValues        []string                     `yaml:"null_values"`
	MissingPolicy     MissingPolicy                `yaml:"missing_policy"`
}

// DefaultRules returns the furniture sales rules the bundled model was trained with.
func DefaultRules() Rules {
	fields := []string{
		FieldGender,
		FieldCustomerLoginType,
		FieldOrderPriority,
		FieldProduct,
		FieldPaymentMethod,
	}

	return Rules{
		RequiredFields:    fields,
		CategoricalFields: slices.Clone(fields),
		ProductField:      FieldProduct,
		Keywords: []string{
			"chair", "table", "bed", "sofa", "almirah", "wardrobe",
			"cabinet", "shelf", "desk", "dresser", "dressing",
			"stool", "bench", "couch", "ottoman", "bookcase",
			"sideboard", "cupboard", "chest", "drawer", "rack",
			"stand", "unit", "storage", "furniture",
		},
		Aliases: map[string]map[string]string{
			FieldOrderPriority: {"Critical": "High"},
		},
		NullValues:    []string{"", "na", "n/a", "nan", "null", "none", "#n/a", "<na>"},
		MissingPolicy: MissingDrop,
	}
}

// LoadRules reads a YAML rules file. Keys absent from the file keep their
// default values.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("failed to read rules file: %w", err)
	}

	rules := DefaultRules()
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("failed to parse rules YAML: %w", err)
	}

	if err := rules.Validate(); err != nil {
		return Rules{}, fmt.Errorf("rules validation failed: %w", err)
	}

	return rules.canonical(), nil
}

// Validate checks the rules for internal consistency.
func (r Rules) Validate() error {
	c := r.canonical()

	if len(c.RequiredFields) == 0 {
		return ErrNoRequiredFields
	}
	if !slices.Contains(c.RequiredFields, c.ProductField) {
		return ErrProductFieldNotInModel
	}
	for _, f := range c.CategoricalFields {
		if !slices.Contains(c.RequiredFields, f) {
			return fmt.Errorf("%w: %s", ErrUnknownCategorical, f)
		}
	}
	for f := range c.Aliases {
		if !slices.Contains(c.RequiredFields, f) {
			return fmt.Errorf("%w: %s", ErrUnknownAliasField, f)
		}
	}
	if len(c.Keywords) == 0 {
		return ErrNoKeywords
	}
	if c.MissingPolicy != MissingDrop && c.MissingPolicy != MissingReject {
		return ErrInvalidMissingPolicy
	}

	return nil
}

// canonical lowercases field names, keywords and null tokens and removes
// blank and duplicate entries. The receiver is left untouched.
func (r Rules) canonical() Rules {
	out := Rules{
		RequiredFields:    lowerUnique(r.RequiredFields),
		CategoricalFields: lowerUnique(r.CategoricalFields),
		ProductField:      strings.ToLower(strings.TrimSpace(r.ProductField)),
		Keywords:          lowerUnique(r.Keywords),
		Aliases:           make(map[string]map[string]string, len(r.Aliases)),
		MissingPolicy:     MissingPolicy(strings.ToLower(strings.TrimSpace(string(r.MissingPolicy)))),
	}
	if out.MissingPolicy == "" {
		out.MissingPolicy = MissingDrop
	}

	for field, mapping := range r.Aliases {
		m := make(map[string]string, len(mapping))
		for from, to := range mapping {
			m[from] = to
		}
		out.Aliases[strings.ToLower(strings.TrimSpace(field))] = m
	}

	out.NullValues = make([]string, 0, len(r.NullValues))
	for _, v := range r.NullValues {
		v = strings.ToLower(strings.TrimSpace(v))
		if !slices.Contains(out.NullValues, v) {
			out.NullValues = append(out.NullValues, v)
		}
	}

	return out
}

func lowerUnique(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}
