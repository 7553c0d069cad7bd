package eval

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/anomeval/anomeval/render"
)

// Metric selects which evaluation metric Evaluate computes.
type Metric string

const (
	// ROC computes the ROC curve, AUC, EER and a balanced operating point.
	ROC Metric = "roc"
	// AUPRC computes the average precision (area under the PR curve).
	AUPRC Metric = "auprc"
	// F1 computes the F1 score after binarizing scores at DefaultF1Threshold.
	F1 Metric = "f1_score"
)

// DefaultF1Threshold is the fixed decision threshold used by the F1 metric.
const DefaultF1Threshold = 0.20

// ErrUnsupportedMetric is returned by Evaluate for an unknown metric name.
var ErrUnsupportedMetric = errors.New("unsupported evaluation metric")

// Result holds the outcome of a single evaluation. Only the fields for the
// requested metric are populated.
type Result struct {
	Metric Metric

	// ROC
	AUC        float64
	EER        float64
	Threshold  float64    // balanced operating point, min |TPR - (1 - FPR)|
	Thresholds []float64  // distinct score thresholds, descending
	Curve      []ROCPoint

	// AUPRC
	AveragePrecision float64

	// F1
	F1Score         float64
	BinarizedScores []float64
}

// Evaluate computes the requested metric for the given ground-truth labels
// and anomaly scores (higher = more anomalous). For the ROC metric a curve
// plot is written to <outputDir>/ROC<epoch>.png unless outputDir is empty.
// Inputs are never mutated.
func Evaluate(labels []int, scores []float64, metric Metric, outputDir string, epoch int) (*Result, error) {
	switch metric {
	case ROC:
		return evaluateROC(labels, scores, outputDir, epoch)
	case AUPRC:
		ap, err := AveragePrecision(labels, scores)
		if err != nil {
			return nil, err
		}
		return &Result{Metric: AUPRC, AveragePrecision: ap}, nil
	case F1:
		return evaluateF1(labels, scores)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMetric, metric)
	}
}

func evaluateROC(labels []int, scores []float64, outputDir string, epoch int) (*Result, error) {
	points, err := ROCCurve(labels, scores)
	if err != nil {
		return nil, err
	}

	eer, err := EER(points)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Metric:    ROC,
		AUC:       AUC(points),
		EER:       eer,
		Threshold: balancedThreshold(points),
		Curve:     points,
	}

	result.Thresholds = make([]float64, len(points))
	for i, pt := range points {
		result.Thresholds[i] = pt.Threshold
	}

	if outputDir != "" {
		fpr := make([]float64, len(points))
		tpr := make([]float64, len(points))
		for i, pt := range points {
			fpr[i] = pt.FPR
			tpr[i] = pt.TPR
		}

		path := filepath.Join(outputDir, fmt.Sprintf("ROC%d.png", epoch))
		if err := render.ROCPlot(fpr, tpr, result.AUC, result.EER, path); err != nil {
			return nil, fmt.Errorf("failed to render ROC plot: %w", err)
		}
	}

	return result, nil
}

func evaluateF1(labels []int, scores []float64) (*Result, error) {
	binarized := Binarize(scores, DefaultF1Threshold)

	counts, err := CountsAtThreshold(labels, scores, DefaultF1Threshold)
	if err != nil {
		return nil, err
	}

	return &Result{
		Metric:          F1,
		F1Score:         counts.F1(),
		BinarizedScores: binarized,
	}, nil
}

// Binarize returns a new slice with each score mapped to 1 if it is at least
// threshold and 0 otherwise. The input is left untouched.
func Binarize(scores []float64, threshold float64) []float64 {
	binarized := make([]float64, len(scores))
	for i, score := range scores {
		if score >= threshold {
			binarized[i] = 1
		}
	}
	return binarized
}

// AveragePrecision computes the area under the precision-recall curve as the
// step-wise sum of precision weighted by recall increments, over descending
// score thresholds.
func AveragePrecision(labels []int, scores []float64) (float64, error) {
	if len(labels) != len(scores) {
		return 0, fmt.Errorf("labels/scores length mismatch: %d vs %d", len(labels), len(scores))
	}
	if len(labels) == 0 {
		return 0, fmt.Errorf("cannot compute average precision on empty input")
	}

	type scoreLabel struct {
		score float64
		label int
	}

	pairs := make([]scoreLabel, len(scores))
	totalPos := 0
	for i := range scores {
		pairs[i] = scoreLabel{score: scores[i], label: labels[i]}
		if labels[i] == 1 {
			totalPos++
		}
	}

	if totalPos == 0 {
		return 0, fmt.Errorf("average precision requires at least one positive label")
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].score > pairs[j].score
	})

	ap := 0.0
	tp := 0
	fp := 0
	prevRecall := 0.0

	for i, pair := range pairs {
		if pair.label == 1 {
			tp++
		} else {
			fp++
		}

		if i+1 < len(pairs) && pairs[i+1].score == pair.score {
			continue
		}

		precision := float64(tp) / float64(tp+fp)
		recall := float64(tp) / float64(totalPos)
		ap += (recall - prevRecall) * precision
		prevRecall = recall
	}

	return ap, nil
}
