package halfcell_test

import (
	"testing"

	"ocv-diagnostics/internal/halfcell"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SortsAndKeepsColumns(t *testing.T) {
	c, err := halfcell.Parse("0.5,3.7\n0.0,4.2\n1.0,3.0\n")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.0, 0.5, 1.0}, c.SOL)
	assert.Equal(t, []float64{4.2, 3.7, 3.0}, c.OCV)
	assert.Equal(t, 0.0, c.SolMin())
	assert.Equal(t, 1.0, c.SolMax())
}

// TestParse_DedupAveragesOCV: two rows with identical SOL and differing OCV
// collapse to one row holding their arithmetic mean.
func TestParse_DedupAveragesOCV(t *testing.T) {
	c, err := halfcell.Parse("0.0,4.0\n0.5,3.6\n0.5,3.8\n1.0,3.0\n")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.0, 0.5, 1.0}, c.SOL)
	assert.InDelta(t, 3.7, c.OCV[1], 1e-12)
}

func TestParse_SkipsJunkRowsAndBlankLines(t *testing.T) {
	text := "# header\r\n0.0,4.2\r\n\r\nnot,numeric\r\n0.5,abc\r\nNaN,3.5\r\n1.0,3.0\r\n"
	c, err := halfcell.Parse(text)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.0, 1.0}, c.SOL)
	assert.Equal(t, []float64{4.2, 3.0}, c.OCV)
}

func TestParse_InsufficientData(t *testing.T) {
	_, err := halfcell.Parse("0.5,3.7\n0.5,3.9\n")
	assert.ErrorIs(t, err, halfcell.ErrInsufficientData)

	_, err = halfcell.Parse("")
	assert.ErrorIs(t, err, halfcell.ErrInsufficientData)
}

func TestCurve_Interpolant(t *testing.T) {
	c, err := halfcell.Parse("0.0,4.2\n0.5,3.7\n1.0,3.0\n")
	require.NoError(t, err)
	p, err := c.Interpolant()
	require.NoError(t, err)
	assert.InDelta(t, 3.7, p.Eval(0.5), 1e-12)
}
