package eval

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// PRCurveSample holds raw confusion counts and precision/recall sampled at a
// caller-supplied threshold sequence. The slices are parallel, one entry per
// retained threshold. Requested is the number of thresholds asked for, which
// may exceed Retained() when degenerate thresholds were skipped.
type PRCurveSample struct {
	TP        []int
	FP        []int
	TN        []int
	FN        []int
	Precision []float64
	Recall    []float64
	Requested int
}

// Retained returns the number of thresholds that survived sampling.
func (s *PRCurveSample) Retained() int {
	return len(s.TP)
}

// PRCurve samples confusion counts and precision/recall for the positive
// class at each threshold in order. A threshold whose binarized predictions
// collapse to a single class is skipped with a diagnostic rather than
// failing, so the output may be shorter than the requested threshold count.
func PRCurve(labels []int, scores, thresholds []float64) (*PRCurveSample, error) {
	if len(labels) != len(scores) {
		return nil, fmt.Errorf("labels/scores length mismatch: %d vs %d", len(labels), len(scores))
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("cannot sample PR curve on empty input")
	}

	sample := &PRCurveSample{Requested: len(thresholds)}

	for _, threshold := range thresholds {
		counts, err := CountsAtThreshold(labels, scores, threshold)
		if err != nil {
			return nil, err
		}

		// All predictions on one side of the threshold carry no
		// precision/recall information for this operating point.
		if counts.TP+counts.FP == 0 || counts.TN+counts.FN == 0 {
			log.Warn().
				Float64("threshold", threshold).
				Msg("binarized predictions collapsed to a single class, skipping threshold")
			continue
		}

		sample.TP = append(sample.TP, counts.TP)
		sample.FP = append(sample.FP, counts.FP)
		sample.TN = append(sample.TN, counts.TN)
		sample.FN = append(sample.FN, counts.FN)
		sample.Precision = append(sample.Precision, counts.Precision())
		sample.Recall = append(sample.Recall, counts.Recall())
	}

	return sample, nil
}
