package pipeline

import "strings"

// Filter keeps the rows whose product value contains at least one keyword.
// Matching is a case-insensitive substring test, so "chair" matches
// "Armchair". Kept rows are returned unchanged. ErrEmptyDomain is returned
// when nothing matches.
func Filter(ds Dataset, productField string, keywords []string) (Dataset, error) {
	idx := ds.Index(productField)
	if idx < 0 {
		return Dataset{}, &MissingColumnsError{Missing: []string{productField}}
	}

	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}

	rows := make([][]string, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		if matchesAny(strings.ToLower(cell(row, idx)), lowered) {
			rows = append(rows, row)
		}
	}

	if len(rows) == 0 {
		return Dataset{}, ErrEmptyDomain
	}

	return Dataset{Columns: ds.Columns, Rows: rows}, nil
}

func matchesAny(value string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(value, k) {
			return true
		}
	}
	return false
}
