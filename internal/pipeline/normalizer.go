package pipeline

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalizer projects a validated dataset onto the required fields and
// cleans categorical values so training and inference see the same labels.
type Normalizer struct {
	rules       Rules
	nulls       map[string]struct{}
	categorical map[string]struct{}
}

// NewNormalizer creates a Normalizer for the given rules.
func NewNormalizer(rules Rules) *Normalizer {
	rules = rules.canonical()

	n := &Normalizer{
		rules:       rules,
		nulls:       make(map[string]struct{}, len(rules.NullValues)+1),
		categorical: make(map[string]struct{}, len(rules.CategoricalFields)),
	}
	n.nulls[""] = struct{}{}
	for _, v := range rules.NullValues {
		n.nulls[v] = struct{}{}
	}
	for _, f := range rules.CategoricalFields {
		n.categorical[f] = struct{}{}
	}

	return n
}

// Normalize returns a new dataset holding only the required fields, in rule
// order, with incomplete rows removed (or rejected, depending on the
// missing-value policy). The input is not modified.
func (n *Normalizer) Normalize(ds Dataset) (Dataset, error) {
	cols := lowerColumns(ds.Columns)
	lowered := Dataset{Columns: cols, Rows: ds.Rows}
	if err := Validate(lowered, n.rules.RequiredFields); err != nil {
		return Dataset{}, err
	}

	positions := make([]int, len(n.rules.RequiredFields))
	for i, f := range n.rules.RequiredFields {
		positions[i] = lowered.Index(f)
	}

	// cases.Caser keeps state between calls and must not be shared. Letters
	// after an apostrophe or underscore stay lowercase: "o'neil" -> "O'neil".
	title := cases.Title(language.Und)

	var incomplete []int
	rows := make([][]string, 0, len(ds.Rows))
	for i, raw := range ds.Rows {
		out := make([]string, len(positions))
		complete := true

		for j, pos := range positions {
			v := strings.TrimSpace(cell(raw, pos))
			if n.isNull(v) {
				complete = false
				break
			}

			field := n.rules.RequiredFields[j]
			if _, ok := n.categorical[field]; ok {
				v = title.String(v)
			}
			if alias, ok := n.rules.Aliases[field][v]; ok {
				v = alias
			}
			out[j] = v
		}

		if !complete {
			incomplete = append(incomplete, ds.Line(i))
			continue
		}
		rows = append(rows, out)
	}

	if len(incomplete) > 0 && n.rules.MissingPolicy == MissingReject {
		return Dataset{}, &IncompleteRowsError{Lines: incomplete}
	}

	return Dataset{
		Columns: slices.Clone(n.rules.RequiredFields),
		Rows:    rows,
	}, nil
}

func (n *Normalizer) isNull(v string) bool {
	_, ok := n.nulls[strings.ToLower(v)]
	return ok
}
