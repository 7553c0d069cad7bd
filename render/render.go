// Package render draws static evaluation charts as PNG images. It replaces
// the dashboard for artifacts that must live on disk next to the run.
package render

import (
	"bytes"
	"fmt"
	"image/color"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var (
	darkOrange = color.RGBA{R: 0xff, G: 0x8c, B: 0x00, A: 0xff}
	navy       = color.RGBA{R: 0x00, G: 0x00, B: 0x80, A: 0xff}
)

// ROCPlot renders the ROC curve to a PNG file at path: the curve itself, the
// chance diagonal, a marker at the EER operating point, and a legend
// annotated with AUC and EER.
func ROCPlot(fpr, tpr []float64, auc, eer float64, path string) error {
	if len(fpr) != len(tpr) {
		return fmt.Errorf("fpr/tpr length mismatch: %d vs %d", len(fpr), len(tpr))
	}

	p := plot.New()
	p.Title.Text = "Receiver Operating Characteristic"
	p.X.Label.Text = "False Positive Rate"
	p.Y.Label.Text = "True Positive Rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1.05

	curveXYs := make(plotter.XYs, len(fpr))
	for i := range fpr {
		curveXYs[i] = plotter.XY{X: fpr[i], Y: tpr[i]}
	}

	curve, err := plotter.NewLine(curveXYs)
	if err != nil {
		return fmt.Errorf("failed to build ROC line: %w", err)
	}
	curve.Color = darkOrange
	curve.Width = vg.Points(2)

	diagonal, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 1}, {X: 1, Y: 0}})
	if err != nil {
		return fmt.Errorf("failed to build chance line: %w", err)
	}
	diagonal.Color = navy
	diagonal.Width = vg.Points(1)
	diagonal.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}

	marker, err := plotter.NewScatter(plotter.XYs{{X: eer, Y: 1 - eer}})
	if err != nil {
		return fmt.Errorf("failed to build EER marker: %w", err)
	}
	marker.GlyphStyle.Shape = draw.CircleGlyph{}
	marker.GlyphStyle.Color = navy
	marker.GlyphStyle.Radius = vg.Points(3)

	p.Add(curve, diagonal, marker)
	p.Legend.Add(fmt.Sprintf("AUC = %.2f, EER = %.2f", auc, eer), curve)

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save ROC plot: %w", err)
	}
	return nil
}

// confusionGrid adapts a count matrix to the heatmap grid interface. Row 0 of
// the matrix is drawn at the bottom of the plot.
type confusionGrid struct {
	matrix [][]int
}

func (g confusionGrid) Dims() (c, r int) { return len(g.matrix[0]), len(g.matrix) }
func (g confusionGrid) Z(c, r int) float64 {
	return float64(g.matrix[r][c])
}
func (g confusionGrid) X(c int) float64 { return float64(c) }
func (g confusionGrid) Y(r int) float64 { return float64(r) }

// ConfusionMatrixPNG renders the confusion matrix as a heatmap with per-cell
// counts and returns the encoded PNG bytes, ready to forward to the
// dashboard as a figure.
func ConfusionMatrixPNG(matrix [][]int, classNames []string) ([]byte, error) {
	p, err := confusionMatrixPlot(matrix, classNames)
	if err != nil {
		return nil, err
	}

	writer, err := p.WriterTo(5*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to encode confusion matrix plot: %w", err)
	}

	var buf bytes.Buffer
	if _, err := writer.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write confusion matrix plot: %w", err)
	}
	return buf.Bytes(), nil
}

// ConfusionMatrixPlot renders the confusion matrix heatmap to a PNG file.
func ConfusionMatrixPlot(matrix [][]int, classNames []string, path string) error {
	p, err := confusionMatrixPlot(matrix, classNames)
	if err != nil {
		return err
	}
	if err := p.Save(5*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save confusion matrix plot: %w", err)
	}
	return nil
}

func confusionMatrixPlot(matrix [][]int, classNames []string) (*plot.Plot, error) {
	if len(matrix) == 0 {
		return nil, fmt.Errorf("cannot render empty confusion matrix")
	}
	for _, row := range matrix {
		if len(row) != len(matrix) {
			return nil, fmt.Errorf("confusion matrix must be square: %dx%d", len(matrix), len(row))
		}
	}
	if classNames == nil {
		classNames = make([]string, len(matrix))
		for i := range classNames {
			classNames[i] = strconv.Itoa(i)
		}
	}
	if len(classNames) != len(matrix) {
		return nil, fmt.Errorf("class name count mismatch: %d names for %d classes", len(classNames), len(matrix))
	}

	p := plot.New()
	p.Title.Text = "Confusion Matrix"
	p.X.Label.Text = "Predicted Class"
	p.Y.Label.Text = "True Class"

	heatmap := plotter.NewHeatMap(confusionGrid{matrix: matrix}, moreland.SmoothBlueRed().Palette(255))
	p.Add(heatmap)

	// Per-cell count annotations.
	cellLabels := plotter.XYLabels{}
	for r, row := range matrix {
		for c, count := range row {
			cellLabels.XYs = append(cellLabels.XYs, plotter.XY{X: float64(c), Y: float64(r)})
			cellLabels.Labels = append(cellLabels.Labels, strconv.Itoa(count))
		}
	}

	labels, err := plotter.NewLabels(cellLabels)
	if err != nil {
		return nil, fmt.Errorf("failed to build cell labels: %w", err)
	}
	p.Add(labels)

	ticks := make([]plot.Tick, len(classNames))
	for i, name := range classNames {
		ticks[i] = plot.Tick{Value: float64(i), Label: name}
	}
	p.X.Tick.Marker = plot.ConstantTicks(ticks)
	p.Y.Tick.Marker = plot.ConstantTicks(ticks)

	return p, nil
}
