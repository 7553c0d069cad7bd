package eval

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/interp"
)

// ROCPoint represents a point on the ROC curve
type ROCPoint struct {
	FPR       float64
	TPR       float64
	Threshold float64
}

// ROCCurve computes the false-positive-rate/true-positive-rate curve over all
// distinct score thresholds, ordered by decreasing threshold. The first point
// is (0, 0) at a threshold one above the highest score, so that the curve
// always starts at the origin.
func ROCCurve(labels []int, scores []float64) ([]ROCPoint, error) {
	if len(labels) != len(scores) {
		return nil, fmt.Errorf("labels/scores length mismatch: %d vs %d", len(labels), len(scores))
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("cannot compute ROC curve on empty input")
	}

	// Create score-label pairs for sorting
	type scoreLabel struct {
		score float64
		label int
	}

	pairs := make([]scoreLabel, len(scores))
	for i := range scores {
		pairs[i] = scoreLabel{score: scores[i], label: labels[i]}
	}

	// Sort by score (descending)
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].score > pairs[j].score
	})

	totalPos := 0
	totalNeg := 0
	for _, pair := range pairs {
		if pair.label == 1 {
			totalPos++
		} else {
			totalNeg++
		}
	}

	if totalPos == 0 || totalNeg == 0 {
		return nil, fmt.Errorf("ROC curve requires both classes: %d positives, %d negatives", totalPos, totalNeg)
	}

	points := []ROCPoint{{FPR: 0, TPR: 0, Threshold: pairs[0].score + 1}}

	// Sweep thresholds from high to low, emitting one point per distinct score.
	tp := 0
	fp := 0
	for i, pair := range pairs {
		if pair.label == 1 {
			tp++
		} else {
			fp++
		}

		// Ties share a threshold and collapse into one point.
		if i+1 < len(pairs) && pairs[i+1].score == pair.score {
			continue
		}

		points = append(points, ROCPoint{
			FPR:       float64(fp) / float64(totalNeg),
			TPR:       float64(tp) / float64(totalPos),
			Threshold: pair.score,
		})
	}

	return points, nil
}

// AUC computes the area under the ROC curve by the trapezoidal rule.
func AUC(points []ROCPoint) float64 {
	fpr := make([]float64, len(points))
	tpr := make([]float64, len(points))
	for i, pt := range points {
		fpr[i] = pt.FPR
		tpr[i] = pt.TPR
	}
	return integrate.Trapezoidal(fpr, tpr)
}

// EER computes the Equal Error Rate: the value x in [0,1] where the false
// negative rate equals the false positive rate, i.e. the root of
// 1 - x - TPR(x) over the piecewise-linear interpolation of the curve.
func EER(points []ROCPoint) (float64, error) {
	fpr, tpr := compactByFPR(points)

	var pl interp.PiecewiseLinear
	if err := pl.Fit(fpr, tpr); err != nil {
		return 0, fmt.Errorf("failed to interpolate ROC curve: %w", err)
	}

	f := func(x float64) float64 { return 1 - x - pl.Predict(x) }
	return bisect(f, 0, 1)
}

// compactByFPR deduplicates curve points that share an FPR, keeping the
// highest TPR, so the FPR sequence is strictly increasing for interpolation.
func compactByFPR(points []ROCPoint) (fpr, tpr []float64) {
	for _, pt := range points {
		if n := len(fpr); n > 0 && fpr[n-1] == pt.FPR {
			if pt.TPR > tpr[n-1] {
				tpr[n-1] = pt.TPR
			}
			continue
		}
		fpr = append(fpr, pt.FPR)
		tpr = append(tpr, pt.TPR)
	}
	return fpr, tpr
}

// bisect finds a root of f on [lo, hi] by bisection. The endpoints must
// bracket the root.
func bisect(f func(float64) float64, lo, hi float64) (float64, error) {
	flo := f(lo)
	fhi := f(hi)
	if flo == 0 {
		return lo, nil
	}
	if fhi == 0 {
		return hi, nil
	}
	if flo*fhi > 0 {
		return 0, fmt.Errorf("root not bracketed on [%g, %g]", lo, hi)
	}

	for i := 0; i < 100 && hi-lo > 1e-12; i++ {
		mid := (lo + hi) / 2
		fmid := f(mid)
		if fmid == 0 {
			return mid, nil
		}
		if flo*fmid < 0 {
			hi = mid
		} else {
			lo = mid
			flo = fmid
		}
	}
	return (lo + hi) / 2, nil
}

// balancedThreshold returns the original score threshold of the curve point
// minimizing |TPR - (1 - FPR)|. This is a nearest-match operating point on
// the actual curve, not the interpolated EER solution.
func balancedThreshold(points []ROCPoint) float64 {
	best := points[0].Threshold
	bestDiff := math.Inf(1)
	for _, pt := range points {
		diff := math.Abs(pt.TPR - (1 - pt.FPR))
		if diff < bestDiff {
			bestDiff = diff
			best = pt.Threshold
		}
	}
	return best
}
