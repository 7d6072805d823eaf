package monitor

import (
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/WEILMAX/oma-tracking/internal/modal"
)

func labeledTestTable(t *testing.T) *modal.Table {
	t.Helper()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	n := 60
	timestamps := make([]time.Time, n)
	freq := make([]float64, n)
	rpm := make([]float64, n)
	labels := make([]float64, n)
	for i := 0; i < n; i++ {
		timestamps[i] = base.Add(time.Duration(i) * 10 * time.Minute)
		if i%2 == 0 {
			freq[i] = 1.1 + 0.01*float64(i%5)
			labels[i] = 0
		} else {
			freq[i] = 2.3 + 0.01*float64(i%5)
			labels[i] = 1
		}
		rpm[i] = 10 + float64(i%7)
	}
	tbl := modal.NewTable(timestamps)
	for name, vals := range map[string][]float64{
		"frequency":        freq,
		"rpm":              rpm,
		modal.LabelsColumn: labels,
	} {
		if err := tbl.SetColumn(name, vals); err != nil {
			t.Fatalf("SetColumn %s: %v", name, err)
		}
	}
	return tbl
}

func TestSaveHarmonicsPlot(t *testing.T) {
	mp, err := NewModePlotter(t.TempDir())
	if err != nil {
		t.Fatalf("NewModePlotter failed: %v", err)
	}

	file, err := mp.SaveHarmonicsPlot("harmonics", labeledTestTable(t), modal.DefaultRoles(), []int{1, 3, 6})
	if err != nil {
		t.Fatalf("SaveHarmonicsPlot failed: %v", err)
	}

	info, err := os.Stat(file)
	if err != nil {
		t.Fatalf("plot file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("plot file is empty")
	}
}

func TestSaveModeScatterPlot(t *testing.T) {
	mp, err := NewModePlotter(t.TempDir())
	if err != nil {
		t.Fatalf("NewModePlotter failed: %v", err)
	}

	file, err := mp.SaveModeScatterPlot("modes", labeledTestTable(t), modal.DefaultRoles())
	if err != nil {
		t.Fatalf("SaveModeScatterPlot failed: %v", err)
	}
	if _, err := os.Stat(file); err != nil {
		t.Fatalf("plot file missing: %v", err)
	}
}

func TestModeChartHandler(t *testing.T) {
	ws := NewWebServer(":0")
	ws.SetLabeledModes(labeledTestTable(t), modal.DefaultRoles(), []int{1, 3})

	req := httptest.NewRequest("GET", "/charts/modes", nil)
	w := httptest.NewRecorder()
	ws.handleModeChart(w, req)

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !strings.Contains(body, "echarts") {
		t.Error("response does not look like an echarts page")
	}
	if !strings.Contains(body, "Tracked Modes") {
		t.Error("response missing chart title")
	}
}

func TestModeChartHandlerNoData(t *testing.T) {
	ws := NewWebServer(":0")

	req := httptest.NewRequest("GET", "/charts/modes", nil)
	w := httptest.NewRecorder()
	ws.handleModeChart(w, req)

	if w.Code != 404 {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestHarmonicsChartHandler(t *testing.T) {
	ws := NewWebServer(":0")
	ws.SetModalData(labeledTestTable(t))
	ws.SetLabeledModes(labeledTestTable(t), modal.DefaultRoles(), []int{1, 3, 6})

	req := httptest.NewRequest("GET", "/charts/harmonics", nil)
	w := httptest.NewRecorder()
	ws.handleHarmonicsChart(w, req)

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Frequency vs Rotor Speed") {
		t.Error("response missing chart title")
	}
}

func TestHealthAndReferences(t *testing.T) {
	ws := NewWebServer(":0")

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	ws.handleHealth(w, req)
	if w.Code != 200 || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("health = %d %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("GET", "/api/references", nil)
	w = httptest.NewRecorder()
	ws.handleReferences(w, req)
	if w.Code != 404 {
		t.Errorf("references without data = %d, want 404", w.Code)
	}

	ws.SetReferences([]modal.ReferenceCluster{
		{Label: "0", Frequency: 1.1, MaxDistance: 0.05, Count: 800},
	})
	w = httptest.NewRecorder()
	ws.handleReferences(w, httptest.NewRequest("GET", "/api/references", nil))
	if w.Code != 200 || !strings.Contains(w.Body.String(), `"Frequency":1.1`) {
		t.Errorf("references = %d %s", w.Code, w.Body.String())
	}
}

func TestMinHarmonicDistance(t *testing.T) {
	// 3P at 20 rpm is 1.0 Hz
	d := minHarmonicDistance(1.05, 20, []int{1, 3, 6})
	if d < 0.049 || d > 0.051 {
		t.Errorf("distance = %g, want 0.05", d)
	}
	if got := minHarmonicDistance(1.0, 20, nil); got != 0 {
		t.Errorf("no orders should give 0, got %g", got)
	}
}
