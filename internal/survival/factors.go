package survival

import (
	"fmt"
	"math"

	"github.com/brookluers/dimred"
	"gonum.org/v1/gonum/mat"

	"github.com/brookluers/kmreport/internal/cohort"
)

// ReduceIndicators replaces a block of binary indicator columns (e.g.
// comorbidity flags) with nfac orthogonal factor columns obtained from an
// approximate SVD of the indicator matrix.  The factor columns are named
// prefix_000, prefix_001, ... and can be referenced from the adjusted
// analysis via a term prefix.
func ReduceIndicators(f *cohort.Frame, block []string, prefix string, nfac, npow int) (*cohort.Frame, error) {

	if nfac <= 0 || nfac > len(block) {
		return nil, fmt.Errorf("survival: %d factors requested from a block of %d columns", nfac, len(block))
	}

	// Sparse triplet form of the indicator matrix.
	var row, col []int
	var dat []float64
	for j, na := range block {
		v, ok := f.Float(na)
		if !ok {
			return nil, fmt.Errorf("survival: indicator column %q is not numeric", na)
		}
		for i, x := range v {
			if math.IsNaN(x) || x == 0 {
				continue
			}
			if x != 1 {
				return nil, fmt.Errorf("survival: indicator column %q has value %v, want 0 or 1", na, x)
			}
			row = append(row, i)
			col = append(col, j)
			dat = append(dat, 1)
		}
	}

	n := f.NumRec()
	spm := dimred.NewSPM(row, col, dat, n, len(block))

	sv := new(dimred.RSVD)
	sv.Factorize(spm, nfac, npow)
	umat := sv.UTo(nil)

	centerScaleCols(umat)

	// Scale so the factor columns have the magnitude of raw covariates.
	sf := math.Sqrt(float64(n))

	g := f.Clone()
	nrow, ncol := umat.Dims()
	for j := 0; j < ncol; j++ {
		v := make([]float64, nrow)
		for i := 0; i < nrow; i++ {
			v[i] = sf * umat.At(i, j)
		}
		if err := g.AddFloat(fmt.Sprintf("%s_%03d", prefix, j), v); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// centerScaleCols centers each column and scales it to unit norm.
func centerScaleCols(m *mat.Dense) {

	nrow, ncol := m.Dims()

	for j := 0; j < ncol; j++ {

		mn := 0.0
		for i := 0; i < nrow; i++ {
			mn += m.At(i, j)
		}
		mn /= float64(nrow)

		sc := 0.0
		for i := 0; i < nrow; i++ {
			z := m.At(i, j) - mn
			m.Set(i, j, z)
			sc += z * z
		}
		sc = math.Sqrt(sc)
		if sc == 0 {
			continue
		}

		for i := 0; i < nrow; i++ {
			m.Set(i, j, m.At(i, j)/sc)
		}
	}
}
