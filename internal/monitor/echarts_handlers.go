package monitor

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/WEILMAX/oma-tracking/internal/modal"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// handleModeChart renders a scatter of labeled mode frequency over time,
// colored by cluster label. Query params:
//   - max_points (optional; default 8000) to reduce payload size
func (ws *WebServer) handleModeChart(w http.ResponseWriter, r *http.Request) {
	ws.mu.RLock()
	tbl := ws.labeled
	roles := ws.roles
	ws.mu.RUnlock()

	if tbl == nil || tbl.Len() == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no labeled modes available")
		return
	}

	freq, err := tbl.FrequencySeries(roles)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	labels, ok := tbl.Column(modal.LabelsColumn)
	if !ok {
		ws.writeJSONError(w, http.StatusNotFound, "labeled modes have no labels column")
		return
	}

	maxPoints := 8000
	if mp := r.URL.Query().Get("max_points"); mp != "" {
		if v, err := strconv.Atoi(mp); err == nil && v > 100 && v <= 50000 {
			maxPoints = v
		}
	}
	stride := 1
	if tbl.Len() > maxPoints {
		stride = (tbl.Len() + maxPoints - 1) / maxPoints
	}

	start := tbl.Timestamps()[0]
	data := make([]opts.ScatterData, 0, tbl.Len()/stride+1)
	maxLabel := 0.0
	for i := 0; i < tbl.Len(); i += stride {
		hours := tbl.Timestamps()[i].Sub(start).Hours()
		data = append(data, opts.ScatterData{Value: []interface{}{hours, freq.Values[i], labels[i]}})
		if labels[i] > maxLabel {
			maxLabel = labels[i]
		}
	}
	if maxLabel == 0 {
		maxLabel = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Tracked Modes", Theme: "dark", Width: "1200px", Height: "700px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Tracked Modes", Subtitle: fmt.Sprintf("points=%d stride=%d", len(data), stride)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Hours", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Frequency (Hz)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        -1,
			Max:        float32(maxLabel),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}},
		}),
	)

	scatter.AddSeries("modes", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleHarmonicsChart renders observed frequency against rotor speed,
// colored by the closest harmonic distance. Points near zero distance are
// the artifacts the harmonic filter removes.
func (ws *WebServer) handleHarmonicsChart(w http.ResponseWriter, r *http.Request) {
	ws.mu.RLock()
	tbl := ws.modalData
	roles := ws.roles
	orders := ws.orders
	ws.mu.RUnlock()

	if tbl == nil || tbl.Len() == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no modal data available")
		return
	}

	freq, err := tbl.FrequencySeries(roles)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rpm, ok := tbl.Column(roles.RPM)
	if !ok {
		ws.writeJSONError(w, http.StatusNotFound, "no rpm column in modal data")
		return
	}

	data := make([]opts.ScatterData, 0, tbl.Len())
	maxDist := 0.0
	for i := range rpm {
		dist := minHarmonicDistance(freq.Values[i], rpm[i], orders)
		data = append(data, opts.ScatterData{Value: []interface{}{rpm[i], freq.Values[i], dist}})
		if dist > maxDist {
			maxDist = dist
		}
	}
	if maxDist == 0 {
		maxDist = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Harmonic Distances", Theme: "dark", Width: "900px", Height: "700px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Frequency vs Rotor Speed", Subtitle: fmt.Sprintf("orders=%v", orders)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "RPM", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Frequency (Hz)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxDist),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#fde725", "#35b779", "#31688e", "#440154"}},
		}),
	)

	scatter.AddSeries("observations", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// minHarmonicDistance returns the smallest absolute distance between freq
// and any harmonic order at the given rotor speed.
func minHarmonicDistance(freq, rpm float64, orders []int) float64 {
	if len(orders) == 0 {
		return 0
	}
	min := -1.0
	for _, p := range orders {
		d := freq - float64(p)/60.0*rpm
		if d < 0 {
			d = -d
		}
		if min < 0 || d < min {
			min = d
		}
	}
	return min
}
