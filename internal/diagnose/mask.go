package diagnose

import "math"

// FlatMask marks the measurement points lying in a flat region of the OCV
// curve. For each adjacent pair, the local slope is |dOCV| per percentage
// point of SOC (capacity fraction times 100); the earlier point is flat when
// the slope stays below gradientLimit. The last point is always excluded.
func FlatMask(capacity, ocv []float64, gradientLimit float64) []bool {
	mask := make([]bool, len(capacity))
	for i := 0; i+1 < len(capacity); i++ {
		dsoc := math.Abs(capacity[i+1]-capacity[i]) * 100
		docv := math.Abs(ocv[i+1] - ocv[i])
		slope := docv / math.Max(1e-12, dsoc)
		mask[i] = slope < gradientLimit
	}
	return mask
}

func anyTrue(mask []bool) bool {
	for _, v := range mask {
		if v {
			return true
		}
	}
	return false
}

func countTrue(mask []bool) int {
	n := 0
	for _, v := range mask {
		if v {
			n++
		}
	}
	return n
}
