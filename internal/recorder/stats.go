package recorder

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/procdrive"
)

// SpeedStats summarises the reported speeds of one session.
type SpeedStats struct {
	Count  int
	Mean   float64
	StdDev float64
	Max    float64
}

// ComputeSpeedStats summarises the position samples in samples. Other
// sample kinds carry no speed and are skipped.
func ComputeSpeedStats(samples []procdrive.Sample) SpeedStats {
	speeds := speedsOf(samples)
	if len(speeds) == 0 {
		return SpeedStats{}
	}
	st := SpeedStats{Count: len(speeds), Max: floats.Max(speeds)}
	if len(speeds) == 1 {
		st.Mean = speeds[0]
		return st
	}
	st.Mean, st.StdDev = stat.MeanStdDev(speeds, nil)
	return st
}

// SpeedStats loads one session's position samples and summarises them.
func (db *DB) SpeedStats(sessionID string) (SpeedStats, error) {
	samples, err := db.Samples(sessionID, procdrive.SamplePosition)
	if err != nil {
		return SpeedStats{}, err
	}
	return ComputeSpeedStats(samples), nil
}

func speedsOf(samples []procdrive.Sample) []float64 {
	out := make([]float64, 0, len(samples))
	for _, s := range samples {
		if s.Kind == procdrive.SamplePosition {
			out = append(out, float64(s.Speed))
		}
	}
	return out
}

// speedSeries returns seconds since the first position sample against speed.
func speedSeries(samples []procdrive.Sample) plotter.XYs {
	pts := make(plotter.XYs, 0, len(samples))
	var start int64
	for _, s := range samples {
		if s.Kind != procdrive.SamplePosition {
			continue
		}
		if len(pts) == 0 {
			start = s.Time.UnixNano()
		}
		pts = append(pts, plotter.XY{
			X: float64(s.Time.UnixNano()-start) / 1e9,
			Y: float64(s.Speed),
		})
	}
	return pts
}

// PlotSpeed writes a PNG speed trace of samples to w.
func PlotSpeed(w io.Writer, samples []procdrive.Sample, title string) error {
	pts := speedSeries(samples)
	if len(pts) == 0 {
		return fmt.Errorf("no position samples to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Speed (mm/s)"
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to create speed line: %w", err)
	}
	line.Width = vg.Points(1)
	p.Add(line)

	wt, err := p.WriterTo(10*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}
