// Package chart holds the candlestick viewport state machine, theming, and
// the renderer producing row-major RGB buffers for the UI.
package chart

import "github.com/vostrik/tradedesk/internal/broker"

// Viewport is the visible window over bar-index x price space. X is a
// fractional bar index; Y is price.
type Viewport struct {
	XMin float64 `json:"x_min"`
	XMax float64 `json:"x_max"`
	YMin float64 `json:"y_min"`
	YMax float64 `json:"y_max"`
}

// DefaultViewport covers the first hundred bars.
func DefaultViewport() Viewport {
	return Viewport{XMin: 0, XMax: 100, YMin: 0, YMax: 100}
}

// FitToData frames the whole series with vertical padding in percent.
func FitToData(bars []broker.HistoricalBar, paddingPercent float64) Viewport {
	if len(bars) == 0 {
		return DefaultViewport()
	}
	yMin, yMax := bars[0].Low, bars[0].High
	for _, b := range bars[1:] {
		if b.Low < yMin {
			yMin = b.Low
		}
		if b.High > yMax {
			yMax = b.High
		}
	}
	pad := (yMax - yMin) * paddingPercent / 100.0
	return Viewport{
		XMin: 0,
		XMax: float64(len(bars)) - 1,
		YMin: yMin - pad,
		YMax: yMax + pad,
	}
}

// zoom rescales both spans by factor around (cx, cy), preserving each
// center's relative position within the window.
func (v *Viewport) zoom(factor, cx, cy float64) {
	xSpan := v.XMax - v.XMin
	ySpan := v.YMax - v.YMin

	newXSpan := xSpan / factor
	newYSpan := ySpan / factor

	xRatio := (cx - v.XMin) / xSpan
	yRatio := (cy - v.YMin) / ySpan

	v.XMin = cx - newXSpan*xRatio
	v.XMax = cx + newXSpan*(1-xRatio)
	v.YMin = cy - newYSpan*yRatio
	v.YMax = cy + newYSpan*(1-yRatio)
}

// pan translates all four bounds.
func (v *Viewport) pan(dx, dy float64) {
	v.XMin += dx
	v.XMax += dx
	v.YMin += dy
	v.YMax += dy
}

// Controller enforces zoom and pan limits over a viewport tied to a data
// series of known length.
type Controller struct {
	viewport    Viewport
	minZoomBars float64
	maxZoomBars float64
	dataLength  int
}

// NewController builds a controller framing up to the first hundred bars.
func NewController(dataLength int) *Controller {
	vp := DefaultViewport()
	if dataLength > 0 {
		vp = Viewport{XMin: 0, XMax: minF(float64(dataLength)-1, 100), YMin: 0, YMax: 100}
	}
	return &Controller{
		viewport:    vp,
		minZoomBars: 5,
		maxZoomBars: 500,
		dataLength:  dataLength,
	}
}

// UpdateDataLength rebinds the controller to a new series length, clamping
// the right edge on shrink.
func (c *Controller) UpdateDataLength(n int) {
	c.dataLength = n
	if max := float64(n) - 1; c.viewport.XMax > max {
		c.viewport.XMax = maxF(max, 0)
	}
}

// DataLength returns the series length the controller is bound to.
func (c *Controller) DataLength() int { return c.dataLength }

// Zoom rescales around (cx, cy). The whole operation is rejected if the new
// bar span would leave [minZoomBars, maxZoomBars].
func (c *Controller) Zoom(factor, cx, cy float64) {
	newBars := (c.viewport.XMax - c.viewport.XMin) / factor
	if newBars < c.minZoomBars || newBars > c.maxZoomBars {
		return
	}
	c.viewport.zoom(factor, cx, cy)
	c.constrain()
}

// Pan translates the window.
func (c *Controller) Pan(dx, dy float64) {
	c.viewport.pan(dx, dy)
	c.constrain()
}

// ResetZoom reframes the first hundred bars.
func (c *Controller) ResetZoom() {
	if c.dataLength > 0 {
		c.viewport.XMin = 0
		c.viewport.XMax = minF(float64(c.dataLength)-1, 100)
	}
}

// FitYAxis frames the given price range with 10% padding.
func (c *Controller) FitYAxis(visibleYMin, visibleYMax float64) {
	pad := (visibleYMax - visibleYMin) * 0.1
	c.viewport.YMin = visibleYMin - pad
	c.viewport.YMax = visibleYMax + pad
}

// VisibleBarRange returns the inclusive index range of bars inside the
// window.
func (c *Controller) VisibleBarRange() (int, int) {
	start := int(maxF(c.viewport.XMin, 0))
	end := int(c.viewport.XMax + 0.999999)
	if last := c.dataLength - 1; end > last {
		end = last
	}
	if end < 0 {
		end = 0
	}
	return start, end
}

// Viewport returns the current window.
func (c *Controller) Viewport() Viewport { return c.viewport }

// SetViewport replaces the window and re-applies constraints.
func (c *Controller) SetViewport(v Viewport) {
	c.viewport = v
	c.constrain()
}

// constrain clamps the bar span into the zoom limits about its center, then
// shifts the window back inside [0, dataLength-1]. The span shrinks only when
// it is wider than the series itself.
func (c *Controller) constrain() {
	if c.dataLength == 0 {
		return
	}
	maxX := float64(c.dataLength) - 1

	span := c.viewport.XMax - c.viewport.XMin
	if span < c.minZoomBars {
		center := (c.viewport.XMin + c.viewport.XMax) / 2
		c.viewport.XMin = center - c.minZoomBars/2
		c.viewport.XMax = center + c.minZoomBars/2
	} else if span > c.maxZoomBars {
		center := (c.viewport.XMin + c.viewport.XMax) / 2
		c.viewport.XMin = center - c.maxZoomBars/2
		c.viewport.XMax = center + c.maxZoomBars/2
	}

	if c.viewport.XMin < 0 {
		shift := -c.viewport.XMin
		c.viewport.XMin = 0
		c.viewport.XMax += shift
	}
	if c.viewport.XMax > maxX {
		shift := c.viewport.XMax - maxX
		c.viewport.XMax = maxX
		c.viewport.XMin = maxF(c.viewport.XMin-shift, 0)
	}
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
