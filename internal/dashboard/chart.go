package dashboard

import "fmt"

const (
	chartWidth  = 560
	chartOffset = 90
	barHeight   = 28
	barGap      = 14
	barSpan     = 380
)

type chart struct {
	Width     int
	Height    int
	Offset    int
	BarHeight int
	Bars      []bar
}

type bar struct {
	Label  string
	Value  string
	Color  string
	Width  float64
	Y      int
	TextY  int
	ValueX float64
}

// newChart scales both timings against the larger one. A zero-width bar is still listed so the
// label and value render.
func newChart(fast, slow float64) chart {
	top := max(fast, slow)
	scale := func(v float64) float64 {
		if top <= 0 {
			return 0
		}
		return v / top * barSpan
	}

	c := chart{Width: chartWidth, Offset: chartOffset, BarHeight: barHeight}
	for i, in := range []struct {
		label, color string
		v            float64
	}{
		{"Optimized", "#2b8a3e", fast},
		{"Slow", "#c92a2a", slow},
	} {
		y := barGap + i*(barHeight+barGap)
		w := scale(in.v)
		c.Bars = append(c.Bars, bar{
			Label:  in.label,
			Value:  fmt.Sprintf("%.3f", in.v),
			Color:  in.color,
			Width:  w,
			Y:      y,
			TextY:  y + barHeight/2 + 5,
			ValueX: float64(chartOffset) + w + 6,
		})
	}
	c.Height = barGap + len(c.Bars)*(barHeight+barGap)
	return c
}
