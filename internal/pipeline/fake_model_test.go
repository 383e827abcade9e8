package pipeline

import (
	"context"
	"slices"
)

// recordingModel returns a prediction per row from byProduct and keeps the
// feature table it was called with.
type recordingModel struct {
	byProduct map[string][]float64
	calls     int
	seen      Dataset
	err       error
	override  []float64
}

func (m *recordingModel) Predict(_ context.Context, features Dataset) ([]float64, error) {
	m.calls++
	m.seen = Dataset{Columns: slices.Clone(features.Columns)}
	for _, r := range features.Rows {
		m.seen.Rows = append(m.seen.Rows, slices.Clone(r))
	}

	if m.err != nil {
		return nil, m.err
	}
	if m.override != nil {
		return m.override, nil
	}

	idx := features.Index(FieldProduct)
	used := make(map[string]int)
	out := make([]float64, 0, len(features.Rows))
	for _, r := range features.Rows {
		p := r[idx]
		vals := m.byProduct[p]
		v := 1.0
		if len(vals) > 0 {
			v = vals[used[p]%len(vals)]
		}
		used[p]++
		out = append(out, v)
	}
	return out, nil
}
