package plots

import (
	"fmt"
	"image/color"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"sprintrep/domain/core"
	"sprintrep/domain/sprint"
	"sprintrep/domain/stats"
	"sprintrep/internal"
)

// Output file names.
const (
	HistogramFile = "histogram.png"
	QQFile        = "qq.png"
	BoxPlotFile   = "boxplot.png"
	ForestFile    = "forest.png"
)

const jitterWidth = 0.15

// Renderer writes PNG charts into one directory.
type Renderer struct {
	dir    string
	width  vg.Length
	height vg.Length
	rng    *rand.Rand
	log    *internal.Logger
}

// NewRenderer creates a renderer. rng drives box-plot jitter so output is
// reproducible for a fixed seed.
func NewRenderer(dir string, rng *rand.Rand) *Renderer {
	if rng == nil {
		rng = rand.New(rand.NewSource(42))
	}
	return &Renderer{
		dir:    dir,
		width:  6 * vg.Inch,
		height: 4 * vg.Inch,
		rng:    rng,
		log:    internal.Discard(),
	}
}

// WithLogger sets the logger used for progress messages.
func (r *Renderer) WithLogger(log *internal.Logger) *Renderer {
	r.log = log
	return r
}

// RenderAll draws every chart and returns the written paths.
func (r *Renderer) RenderAll(observations []sprint.LongObservation, residuals []float64, estimates []stats.EffectSizeEstimate) ([]string, error) {
	steps := []func() (string, error){
		func() (string, error) { return r.Histogram(observations) },
		func() (string, error) { return r.QQ(residuals) },
		func() (string, error) { return r.BoxPlot(observations) },
		func() (string, error) { return r.Forest(estimates) },
	}

	paths := make([]string, 0, len(steps))
	for _, step := range steps {
		path, err := step()
		if err != nil {
			return paths, err
		}
		r.log.Debug("Wrote %s", path)
		paths = append(paths, path)
	}
	return paths, nil
}

func (r *Renderer) save(p *plot.Plot, name string) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create plot directory: %w", err)
	}
	path := filepath.Join(r.dir, name)
	if err := p.Save(r.width, r.height, path); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", name, err)
	}
	return path, nil
}

func conditionColor(i int) color.Color {
	c := plotutil.Color(i)
	red, green, blue, _ := c.RGBA()
	return color.NRGBA{R: uint8(red >> 8), G: uint8(green >> 8), B: uint8(blue >> 8), A: 140}
}

// Histogram overlays one histogram per condition.
func (r *Renderer) Histogram(observations []sprint.LongObservation) (string, error) {
	p := plot.New()
	p.Title.Text = "10 m sprint time by condition"
	p.X.Label.Text = "Sprint time (s)"
	p.Y.Label.Text = "Count"

	drawn := 0
	for i, c := range sprint.Conditions {
		values := sprint.Values(observations, c)
		if len(values) == 0 {
			continue
		}
		if spread(values) == 0 {
			return "", core.NewInvalidInputError("histogram", fmt.Sprintf("%s has no spread", c))
		}

		bins := int(math.Max(5, math.Ceil(math.Sqrt(float64(len(values))))))
		h, err := plotter.NewHist(plotter.Values(values), bins)
		if err != nil {
			return "", fmt.Errorf("histogram %s: %w", c, err)
		}
		h.FillColor = conditionColor(i)
		h.LineStyle.Color = plotutil.Color(i)
		p.Add(h)
		p.Legend.Add(string(c), h)
		drawn++
	}
	if drawn == 0 {
		return "", core.NewInsufficientDataError("histogram", 0, 1)
	}
	p.Legend.Top = true

	return r.save(p, HistogramFile)
}

// QQ plots sample quantiles of the residuals against standard normal
// quantiles with the mean + sd reference line.
func (r *Renderer) QQ(residuals []float64) (string, error) {
	n := len(residuals)
	if n < 2 {
		return "", core.NewInsufficientDataError("Q-Q residuals", n, 2)
	}

	sorted := make([]float64, n)
	copy(sorted, residuals)
	sort.Float64s(sorted)

	pts := make(plotter.XYs, n)
	for i, v := range sorted {
		pts[i].X = distuv.UnitNormal.Quantile((float64(i+1) - 0.5) / float64(n))
		pts[i].Y = v
	}
	mean, sd := stat.MeanStdDev(sorted, nil)

	p := plot.New()
	p.Title.Text = "Normal Q-Q plot of ANOVA residuals"
	p.X.Label.Text = "Theoretical quantiles"
	p.Y.Label.Text = "Sample quantiles"

	s, err := plotter.NewScatter(pts)
	if err != nil {
		return "", fmt.Errorf("q-q scatter: %w", err)
	}
	s.GlyphStyle.Color = plotutil.Color(0)

	line := plotter.NewFunction(func(x float64) float64 { return mean + sd*x })
	line.Color = plotutil.Color(1)
	line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(s, line)
	return r.save(p, QQFile)
}

// BoxPlot draws a box per condition with jittered raw observations on top.
func (r *Renderer) BoxPlot(observations []sprint.LongObservation) (string, error) {
	p := plot.New()
	p.Title.Text = "10 m sprint time by condition"
	p.Y.Label.Text = "Sprint time (s)"

	var names []string
	for _, c := range sprint.Conditions {
		values := sprint.Values(observations, c)
		if len(values) == 0 {
			continue
		}
		pos := float64(len(names))
		names = append(names, string(c))

		box, err := plotter.NewBoxPlot(vg.Points(40), pos, plotter.Values(values))
		if err != nil {
			return "", fmt.Errorf("box plot %s: %w", c, err)
		}
		box.FillColor = conditionColor(len(names) - 1)

		pts := make(plotter.XYs, len(values))
		for i, v := range values {
			pts[i].X = pos + (r.rng.Float64()*2-1)*jitterWidth
			pts[i].Y = v
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return "", fmt.Errorf("jitter %s: %w", c, err)
		}
		s.GlyphStyle.Radius = vg.Points(2)

		p.Add(box, s)
	}
	if len(names) == 0 {
		return "", core.NewInsufficientDataError("box plot", 0, 1)
	}
	p.NominalX(names...)

	return r.save(p, BoxPlotFile)
}

// forestPoints pairs estimates with asymmetric horizontal error bars.
type forestPoints struct {
	plotter.XYs
	plotter.XErrors
}

// Forest draws partial eta-squared with its confidence interval for each
// study, annotated with the estimate's own label text.
func (r *Renderer) Forest(estimates []stats.EffectSizeEstimate) (string, error) {
	if len(estimates) == 0 {
		return "", core.NewInsufficientDataError("forest plot", 0, 1)
	}

	data := forestPoints{
		XYs:     make(plotter.XYs, len(estimates)),
		XErrors: make(plotter.XErrors, len(estimates)),
	}
	labels := plotter.XYLabels{
		XYs:    make(plotter.XYs, len(estimates)),
		Labels: make([]string, len(estimates)),
	}
	studies := make([]string, len(estimates))

	for i, e := range estimates {
		y := float64(i)
		data.XYs[i] = plotter.XY{X: e.Eta, Y: y}
		data.XErrors[i].Low = e.Eta - e.EtaLow
		data.XErrors[i].High = e.EtaHigh - e.Eta
		labels.XYs[i] = plotter.XY{X: e.EtaHigh, Y: y}
		labels.Labels[i] = e.Label()
		studies[i] = e.Study
	}

	p := plot.New()
	p.Title.Text = "Partial eta-squared with confidence intervals"
	p.X.Label.Text = "Partial eta-squared"
	p.X.Min, p.X.Max = 0, 1.2

	bars, err := plotter.NewXErrorBars(data)
	if err != nil {
		return "", fmt.Errorf("forest error bars: %w", err)
	}
	points, err := plotter.NewScatter(data)
	if err != nil {
		return "", fmt.Errorf("forest points: %w", err)
	}
	points.GlyphStyle.Shape = plotutil.Shape(1)
	points.GlyphStyle.Radius = vg.Points(4)

	text, err := plotter.NewLabels(labels)
	if err != nil {
		return "", fmt.Errorf("forest labels: %w", err)
	}
	for i := range text.TextStyle {
		text.TextStyle[i].YAlign = -0.5
	}
	text.Offset = vg.Point{X: vg.Points(6)}

	p.Add(bars, points, text)
	p.NominalY(studies...)

	return r.save(p, ForestFile)
}

func spread(values []float64) float64 {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return hi - lo
}
