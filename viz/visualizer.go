// Package viz is the visualization sink of the training loop: it forwards
// scalars, figures and image batches to the dashboard and mirrors a
// human-readable record of the run to stdout and a text log file.
package viz

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/anomeval/anomeval/config"
	"github.com/anomeval/anomeval/dashboard"
	"github.com/anomeval/anomeval/eval"
	"github.com/anomeval/anomeval/imaging"
	"github.com/anomeval/anomeval/render"
)

// classNames labels the two classes of the anomaly detector in figures.
var classNames = []string{"normal", "anomalous"}

// Visualizer is bound to one training run. Every method is an independent
// forward-and-log operation keyed by the caller-supplied step or epoch;
// nothing is read back from the dashboard.
type Visualizer struct {
	name      string
	niter     int
	client    *dashboard.Client
	imgDir    string
	tstImgDir string
	logName   string

	// out receives the formatted console lines; stdout outside of tests.
	out io.Writer
	log zerolog.Logger
}

// New creates a visualizer for the run described by opt, forwarding to the
// given dashboard client. It creates the run's train/test image directories,
// and appends a timestamped header with the run hyperparameters to the log
// file.
func New(opt *config.Options, client *dashboard.Client) (*Visualizer, error) {
	runDir := filepath.Join(opt.Outf, opt.Name)

	v := &Visualizer{
		name:      opt.Name,
		niter:     opt.Niter,
		client:    client,
		imgDir:    filepath.Join(runDir, "train", "images"),
		tstImgDir: filepath.Join(runDir, "test", "images"),
		logName:   filepath.Join(runDir, "loss_log.txt"),
		out:       os.Stdout,
		log:       log.With().Str("run", opt.Name).Logger(),
	}

	if err := os.MkdirAll(v.imgDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create train image directory: %w", err)
	}
	if err := os.MkdirAll(v.tstImgDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create test image directory: %w", err)
	}

	header := fmt.Sprintf("================ %s ================", time.Now().Format(time.ANSIC))
	info := fmt.Sprintf("Anomalies, %d, %g, %g, %g", opt.Nz, opt.WAdv, opt.WCon, opt.WLat)
	if err := v.WriteToLogFile(header + "\n" + info); err != nil {
		return nil, err
	}

	v.log.Debug().Str("dir", runDir).Msg("visualizer initialized")
	return v, nil
}

// WriteToLogFile appends a line of text to the run's log file. The file is
// opened and closed per write; safe under sequential calls only.
func (v *Visualizer) WriteToLogFile(text string) error {
	logFile, err := os.OpenFile(v.logName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	if _, err := fmt.Fprintf(logFile, "%s\n", text); err != nil {
		return fmt.Errorf("failed to append to log file: %w", err)
	}
	return nil
}

// PlotCurrentErrors forwards the named scalar losses to the dashboard.
func (v *Visualizer) PlotCurrentErrors(step int, errors map[string]float64) error {
	return v.client.AddScalars("Loss over time", errors, step)
}

// PlotPerformance forwards the performance record's scalar metrics to the
// dashboard. The confusion matrix and the timing value are not scalars and
// are excluded.
func (v *Visualizer) PlotPerformance(step int, performance *Performance) error {
	return v.client.AddScalars("Performance Metrics", performance.Scalars(), step)
}

// PlotCurrentConfMatrix renders the confusion matrix to an image and
// forwards it to the dashboard as a figure.
func (v *Visualizer) PlotCurrentConfMatrix(step int, matrix [][]int) error {
	figure, err := render.ConfusionMatrixPNG(matrix, classNames)
	if err != nil {
		return err
	}
	return v.client.AddFigure("Confusion Matrix", figure, step)
}

// PrintCurrentErrors formats the current losses as a single line, written to
// stdout and appended to the log file.
func (v *Visualizer) PrintCurrentErrors(epoch int, errors map[string]float64) error {
	names := make([]string, 0, len(errors))
	for name := range errors {
		names = append(names, name)
	}
	sort.Strings(names)

	message := fmt.Sprintf("   Loss: [%d/%d] ", epoch, v.niter)
	for _, name := range names {
		message += fmt.Sprintf("%s: %.3f ", name, errors[name])
	}

	fmt.Fprintln(v.out, message)
	return v.WriteToLogFile(message)
}

// PrintCurrentPerformance formats the performance record as a single line,
// scalars to three decimals and the confusion matrix as-is, written to
// stdout and appended to the log file. best is the best AUC seen so far.
func (v *Visualizer) PrintCurrentPerformance(performance *Performance, best float64) error {
	message := "   "
	for _, name := range performance.Names() {
		value, _ := performance.Get(name)
		message += fmt.Sprintf("%s: %.3f ", name, value)
	}
	if performance.AvgRunTimeMS > 0 {
		message += fmt.Sprintf("Avg Run Time (ms/batch): %.3f ", performance.AvgRunTimeMS)
	}
	if performance.ConfMatrix != nil {
		message += fmt.Sprintf("conf_matrix: %v ", performance.ConfMatrix)
	}
	message += fmt.Sprintf("max AUC: %.3f", best)

	fmt.Fprintln(v.out, message)
	return v.WriteToLogFile(message)
}

// DisplayCurrentImages normalizes the real and generated batches to [0, 1]
// and forwards them to the dashboard as image grids tagged with the split.
// The fixed batch is persisted per epoch by SaveCurrentImages instead of
// being streamed.
func (v *Visualizer) DisplayCurrentImages(reals, fakes, fixed *imaging.Batch, split string, step int) error {
	realsPNG, err := reals.Normalize().EncodePNG(0)
	if err != nil {
		return err
	}
	fakesPNG, err := fakes.Normalize().EncodePNG(0)
	if err != nil {
		return err
	}

	if err := v.client.AddImage(fmt.Sprintf("Reals from %s", split), realsPNG, step); err != nil {
		return err
	}
	return v.client.AddImage(fmt.Sprintf("Fakes from %s", split), fakesPNG, step)
}

// SaveCurrentImages writes the real, generated and fixed-input batches as
// PNG grids into the run's train image directory, pixel ranges normalized.
func (v *Visualizer) SaveCurrentImages(epoch int, reals, fakes, fixed *imaging.Batch) error {
	if err := reals.SavePNG(filepath.Join(v.imgDir, "reals.png"), 0); err != nil {
		return err
	}
	if err := fakes.SavePNG(filepath.Join(v.imgDir, "fakes.png"), 0); err != nil {
		return err
	}
	return fixed.SavePNG(filepath.Join(v.imgDir, fmt.Sprintf("fixed_fakes_%03d.png", epoch+1)), 0)
}

// PlotPRCurve samples the precision-recall curve at the given thresholds and
// forwards the raw counts to the dashboard's raw-PR-curve visualization.
func (v *Visualizer) PlotPRCurve(labels []int, scores, thresholds []float64, step int) error {
	sample, err := eval.PRCurve(labels, scores, thresholds)
	if err != nil {
		return err
	}
	return v.client.AddPRCurveRaw("Precision-Recall Curve", sample, step)
}
