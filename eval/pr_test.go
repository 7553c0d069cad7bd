package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPRCurveSkipsDegenerateThresholds(t *testing.T) {
	labels := []int{0, 0, 1, 1}
	scores := []float64{0.1, 0.4, 0.35, 0.8}

	// 0.0 binarizes everything to 1, 0.9 and 1.5 binarize everything to 0.
	thresholds := []float64{0.0, 0.2, 0.5, 0.9, 1.5}

	sample, err := PRCurve(labels, scores, thresholds)
	require.NoError(t, err)

	assert.Equal(t, 5, sample.Requested)
	assert.Equal(t, 2, sample.Retained())

	// Parallel slices stay mutually equal in length.
	assert.Len(t, sample.TP, 2)
	assert.Len(t, sample.FP, 2)
	assert.Len(t, sample.TN, 2)
	assert.Len(t, sample.FN, 2)
	assert.Len(t, sample.Precision, 2)
	assert.Len(t, sample.Recall, 2)

	// Threshold 0.2: predictions {0,1,1,1}.
	assert.Equal(t, 2, sample.TP[0])
	assert.Equal(t, 1, sample.FP[0])
	assert.Equal(t, 1, sample.TN[0])
	assert.Equal(t, 0, sample.FN[0])
	assert.InDelta(t, 2.0/3.0, sample.Precision[0], 1e-12)
	assert.InDelta(t, 1.0, sample.Recall[0], 1e-12)

	// Threshold 0.5: predictions {0,0,0,1}.
	assert.Equal(t, 1, sample.TP[1])
	assert.Equal(t, 0, sample.FP[1])
	assert.Equal(t, 2, sample.TN[1])
	assert.Equal(t, 1, sample.FN[1])
	assert.InDelta(t, 1.0, sample.Precision[1], 1e-12)
	assert.InDelta(t, 0.5, sample.Recall[1], 1e-12)
}

func TestPRCurveCountsSumToSampleCount(t *testing.T) {
	labels := []int{0, 1, 0, 1, 1, 0, 1, 0}
	scores := []float64{0.2, 0.9, 0.3, 0.6, 0.55, 0.1, 0.7, 0.45}
	thresholds := []float64{0.25, 0.4, 0.5, 0.65}

	sample, err := PRCurve(labels, scores, thresholds)
	require.NoError(t, err)
	require.Greater(t, sample.Retained(), 0)

	for i := 0; i < sample.Retained(); i++ {
		total := sample.TP[i] + sample.FP[i] + sample.TN[i] + sample.FN[i]
		assert.Equal(t, len(labels), total, "counts at retained threshold %d", i)
	}
}

func TestPRCurveAllThresholdsDegenerate(t *testing.T) {
	sample, err := PRCurve([]int{0, 1}, []float64{0.4, 0.6}, []float64{0.0, 1.0})
	require.NoError(t, err)

	assert.Equal(t, 2, sample.Requested)
	assert.Equal(t, 0, sample.Retained())
}

func TestPRCurveDegenerateInputs(t *testing.T) {
	_, err := PRCurve(nil, nil, []float64{0.5})
	assert.Error(t, err)

	_, err = PRCurve([]int{0, 1}, []float64{0.5}, []float64{0.5})
	assert.Error(t, err)
}
