package eval

import "fmt"

// ConfusionCounts holds the four binary confusion counts at a fixed decision
// threshold. Class 1 is the positive (anomalous) class.
type ConfusionCounts struct {
	TP int
	FP int
	TN int
	FN int
}

// CountsAtThreshold binarizes scores at the given threshold (score >= threshold
// predicts the positive class) and tallies confusion counts against labels.
func CountsAtThreshold(labels []int, scores []float64, threshold float64) (ConfusionCounts, error) {
	var c ConfusionCounts

	if len(labels) != len(scores) {
		return c, fmt.Errorf("labels/scores length mismatch: %d vs %d", len(labels), len(scores))
	}
	if len(labels) == 0 {
		return c, fmt.Errorf("cannot compute confusion counts on empty input")
	}

	for i, label := range labels {
		predicted := scores[i] >= threshold
		switch {
		case predicted && label == 1:
			c.TP++
		case predicted && label != 1:
			c.FP++
		case !predicted && label == 1:
			c.FN++
		default:
			c.TN++
		}
	}

	return c, nil
}

// Total returns the number of samples the counts were tallied over.
func (c ConfusionCounts) Total() int {
	return c.TP + c.FP + c.TN + c.FN
}

// Precision returns TP / (TP + FP) for the positive class, or 0 when no
// positive predictions were made.
func (c ConfusionCounts) Precision() float64 {
	if c.TP+c.FP == 0 {
		return 0.0
	}
	return float64(c.TP) / float64(c.TP+c.FP)
}

// Recall returns TP / (TP + FN) for the positive class, or 0 when there are
// no actual positives.
func (c ConfusionCounts) Recall() float64 {
	if c.TP+c.FN == 0 {
		return 0.0
	}
	return float64(c.TP) / float64(c.TP+c.FN)
}

// F1 returns the harmonic mean of precision and recall, or 0 when both are 0.
func (c ConfusionCounts) F1() float64 {
	precision := c.Precision()
	recall := c.Recall()

	if precision+recall == 0 {
		return 0.0
	}

	return 2 * (precision * recall) / (precision + recall)
}

// Matrix returns the counts as a 2x2 matrix indexed [true class][predicted
// class], suitable for rendering as a heatmap.
func (c ConfusionCounts) Matrix() [][]int {
	return [][]int{
		{c.TN, c.FP},
		{c.FN, c.TP},
	}
}
