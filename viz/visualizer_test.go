package viz

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anomeval/anomeval/config"
	"github.com/anomeval/anomeval/dashboard"
	"github.com/anomeval/anomeval/imaging"
)

func testOptions(t *testing.T) *config.Options {
	t.Helper()

	opt := config.Default()
	opt.Name = "test-run"
	opt.Outf = t.TempDir()
	return opt
}

func newTestVisualizer(t *testing.T, client *dashboard.Client) (*Visualizer, *bytes.Buffer) {
	t.Helper()

	if client == nil {
		client = dashboard.New(dashboard.DefaultConfig())
	}

	v, err := New(testOptions(t), client)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	v.out = out
	return v, out
}

func TestNewCreatesRunLayout(t *testing.T) {
	opt := testOptions(t)

	v, err := New(opt, dashboard.New(dashboard.DefaultConfig()))
	require.NoError(t, err)

	runDir := filepath.Join(opt.Outf, opt.Name)
	for _, dir := range []string{
		filepath.Join(runDir, "train", "images"),
		filepath.Join(runDir, "test", "images"),
	} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	raw, err := os.ReadFile(v.logName)
	require.NoError(t, err)

	content := string(raw)
	assert.Contains(t, content, "================")
	assert.Contains(t, content, "Anomalies, 100, 1, 50, 1")
}

func TestWriteToLogFileAppends(t *testing.T) {
	v, _ := newTestVisualizer(t, nil)

	require.NoError(t, v.WriteToLogFile("first"))
	require.NoError(t, v.WriteToLogFile("second"))

	raw, err := os.ReadFile(v.logName)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "first\nsecond\n")
}

func TestPrintCurrentErrors(t *testing.T) {
	v, out := newTestVisualizer(t, nil)

	err := v.PrintCurrentErrors(2, map[string]float64{"err_g": 1.8734, "err_d": 0.4121})
	require.NoError(t, err)

	line := "   Loss: [2/15] err_d: 0.412 err_g: 1.873 "
	assert.Contains(t, out.String(), line)

	raw, err := os.ReadFile(v.logName)
	require.NoError(t, err)
	assert.Contains(t, string(raw), line)
}

func TestPrintCurrentPerformance(t *testing.T) {
	v, out := newTestVisualizer(t, nil)

	performance := NewPerformance()
	performance.Set("AUC", 0.91237)
	performance.Set("EER", 0.1204)
	performance.ConfMatrix = [][]int{{5, 2}, {1, 7}}
	performance.AvgRunTimeMS = 12.3456

	require.NoError(t, v.PrintCurrentPerformance(performance, 0.95))

	got := out.String()
	assert.Contains(t, got, "AUC: 0.912")
	assert.Contains(t, got, "EER: 0.120")
	assert.Contains(t, got, "Avg Run Time (ms/batch): 12.346")
	assert.Contains(t, got, "conf_matrix: [[5 2] [1 7]]")
	assert.Contains(t, got, "max AUC: 0.950")

	raw, err := os.ReadFile(v.logName)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "max AUC: 0.950")
}

func TestPerformanceRecord(t *testing.T) {
	performance := NewPerformance()
	performance.Set("AUC", 0.9)
	performance.Set("EER", 0.1)
	performance.Set("AUC", 0.95) // overwrite keeps position

	assert.Equal(t, []string{"AUC", "EER"}, performance.Names())

	value, ok := performance.Get("AUC")
	assert.True(t, ok)
	assert.Equal(t, 0.95, value)

	_, ok = performance.Get("missing")
	assert.False(t, ok)

	scalars := performance.Scalars()
	assert.Equal(t, map[string]float64{"AUC": 0.95, "EER": 0.1}, scalars)

	// Scalars returns a copy.
	scalars["AUC"] = 0
	got, _ := performance.Get("AUC")
	assert.Equal(t, 0.95, got)
}

func TestPlotPerformanceExcludesNonScalars(t *testing.T) {
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(dashboard.Response{Success: true})
	}))
	defer server.Close()

	client := dashboard.New(dashboard.Config{BaseURL: server.URL, Timeout: time.Second, RetryAttempts: 1})
	client.Enable()

	v, _ := newTestVisualizer(t, client)

	performance := NewPerformance()
	performance.Set("AUC", 0.9)
	performance.ConfMatrix = [][]int{{1, 0}, {0, 1}}
	performance.AvgRunTimeMS = 3.2

	require.NoError(t, v.PlotPerformance(5, performance))

	assert.Equal(t, "Performance Metrics", gotBody["tag"])
	values := gotBody["values"].(map[string]interface{})
	assert.Len(t, values, 1)
	assert.Equal(t, 0.9, values["AUC"])
}

func TestPlotPRCurveForwardsRawCounts(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(dashboard.Response{Success: true})
	}))
	defer server.Close()

	client := dashboard.New(dashboard.Config{BaseURL: server.URL, Timeout: time.Second, RetryAttempts: 1})
	client.Enable()

	v, _ := newTestVisualizer(t, client)

	labels := []int{0, 0, 1, 1}
	scores := []float64{0.1, 0.4, 0.35, 0.8}
	thresholds := []float64{0.0, 0.2, 0.5, 0.9, 1.5}

	require.NoError(t, v.PlotPRCurve(labels, scores, thresholds, 3))

	assert.Equal(t, "/api/pr-curve-raw", gotPath)
	assert.Equal(t, float64(5), gotBody["num_thresholds"])
	assert.Len(t, gotBody["precision"], 2)
}

func TestSaveCurrentImages(t *testing.T) {
	v, _ := newTestVisualizer(t, nil)

	batch := func() *imaging.Batch {
		b, err := imaging.NewBatch(make([]float32, 4*1*2*2), 4, 1, 2, 2)
		require.NoError(t, err)
		return b
	}

	require.NoError(t, v.SaveCurrentImages(2, batch(), batch(), batch()))

	for _, name := range []string{"reals.png", "fakes.png", "fixed_fakes_003.png"} {
		_, err := os.Stat(filepath.Join(v.imgDir, name))
		assert.NoError(t, err, name)
	}
}

func TestDisplayCurrentImagesForwardsGrids(t *testing.T) {
	var tags []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		tags = append(tags, body["tag"].(string))
		json.NewEncoder(w).Encode(dashboard.Response{Success: true})
	}))
	defer server.Close()

	client := dashboard.New(dashboard.Config{BaseURL: server.URL, Timeout: time.Second, RetryAttempts: 1})
	client.Enable()

	v, _ := newTestVisualizer(t, client)

	batch, err := imaging.NewBatch(make([]float32, 2*1*2*2), 2, 1, 2, 2)
	require.NoError(t, err)

	require.NoError(t, v.DisplayCurrentImages(batch, batch, batch, "test", 9))
	assert.Equal(t, []string{"Reals from test", "Fakes from test"}, tags)
}
