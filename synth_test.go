package eitc

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// syntheticTable simulates n person-year records in which mothers'
// employment rises after 1993.  The result depends only on seed.
func syntheticTable(t *testing.T, n int, seed int64) *Table {
	t.Helper()

	rng := rand.New(rand.NewSource(seed))

	year := make([]float64, n)
	children := make([]float64, n)
	work := make([]float64, n)
	nonwhite := make([]float64, n)
	ed := make([]float64, n)

	for i := 0; i < n; i++ {
		year[i] = float64(1991 + rng.Intn(6))
		children[i] = float64(rng.Intn(4))
		nonwhite[i] = float64(rng.Intn(2))
		ed[i] = float64(8 + rng.Intn(9))

		var mom, post float64
		if children[i] > 0 {
			mom = 1
		}
		if year[i] > 1993 {
			post = 1
		}
		eta := 0.4 - 0.5*mom + 0.1*post + 0.3*mom*post - 0.3*nonwhite[i] + 0.08*(ed[i]-12)
		if rng.Float64() < 1/(1+math.Exp(-eta)) {
			work[i] = 1
		}
	}

	tab, err := NewTable(
		mustSeries(t, "year", year, nil),
		mustSeries(t, "children", children, nil),
		mustSeries(t, "work", work, nil),
		mustSeries(t, "nonwhite", nonwhite, nil),
		mustSeries(t, "ed", ed, nil),
	)
	require.NoError(t, err)
	return tab
}
