package pipeline

import (
	"sort"
	"strings"
)

// Validate checks that every required field is present among the dataset
// columns, ignoring case and surrounding whitespace. It never looks at rows.
func Validate(ds Dataset, required []string) error {
	present := make(map[string]struct{}, len(ds.Columns))
	for _, c := range lowerColumns(ds.Columns) {
		present[c] = struct{}{}
	}

	var missing []string
	for _, f := range required {
		f = strings.ToLower(f)
		if _, ok := present[f]; !ok {
			missing = append(missing, f)
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return &MissingColumnsError{Missing: missing}
	}
	return nil
}
