package server

import (
	"math/rand"

	"github.com/getlantern/errors"
	"github.com/getlantern/vizdb/table"
)

var categories = []string{"direct", "search", "social", "referral", "email"}

// SyntheticPartition generates one reproducible partition of demo traffic
// data with a numeric "value" column, a "latency" column with some missing
// entries and a low-cardinality "category" column that makes heavy hitters
// interesting.
func SyntheticPartition(rows int, seed int64) (*table.Table, error) {
	rnd := rand.New(rand.NewSource(seed))

	value := &table.Column{Name: "value", Floats: make([]float64, rows)}
	latency := &table.Column{Name: "latency", Floats: make([]float64, rows), Missing: make([]bool, rows)}
	category := &table.Column{Name: "category", Strings: make([]string, rows)}
	for i := 0; i < rows; i++ {
		value.Floats[i] = rnd.NormFloat64()*15 + 50
		if rnd.Float64() < 0.02 {
			latency.Missing[i] = true
		} else {
			latency.Floats[i] = rnd.ExpFloat64() * 120
		}
		// Zipf-ish skew so a few categories dominate.
		category.Strings[i] = categories[int(float64(len(categories))*rnd.Float64()*rnd.Float64())]
	}
	t, err := table.New(value, latency, category)
	if err != nil {
		return nil, errors.New("unable to build synthetic partition: %v", err)
	}
	return t, nil
}
