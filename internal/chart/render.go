package chart

import (
	"github.com/vostrik/tradedesk/internal/apperr"
	"github.com/vostrik/tradedesk/internal/broker"
)

// Renderer rasterizes candlesticks plus a volume strip into a row-major RGB
// buffer, 3 bytes per pixel. It is a pure function of (bars, viewport,
// theme); the UI owns presentation.
type Renderer struct {
	width  int
	height int
	theme  Theme
}

// NewRenderer builds a renderer for a fixed output size.
func NewRenderer(width, height int, theme Theme) *Renderer {
	return &Renderer{width: width, height: height, theme: theme}
}

// Size reports the output dimensions.
func (r *Renderer) Size() (int, int) { return r.width, r.height }

// canvas is an RGB pixel buffer with clipped primitive fills.
type canvas struct {
	buf    []byte
	width  int
	height int
}

func (c *canvas) set(x, y int, col Color) {
	if x < 0 || x >= c.width || y < 0 || y >= c.height {
		return
	}
	i := (y*c.width + x) * 3
	c.buf[i] = col.R
	c.buf[i+1] = col.G
	c.buf[i+2] = col.B
}

func (c *canvas) fillRect(x0, y0, x1, y1 int, col Color) {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			c.set(x, y, col)
		}
	}
}

func (c *canvas) vline(x, y0, y1 int, col Color) { c.fillRect(x, y0, x, y1, col) }
func (c *canvas) hline(x0, x1, y int, col Color) { c.fillRect(x0, y, x1, y, col) }

// RenderRGB draws the visible bars into a fresh buffer. The price pane takes
// the top of the image and the volume strip the bottom, split by the theme's
// volume height ratio.
func (r *Renderer) RenderRGB(bars []broker.HistoricalBar, vp Viewport) ([]byte, error) {
	if r.width <= 0 || r.height <= 0 {
		return nil, apperr.E(apperr.ErrChart, "invalid dimensions %dx%d", r.width, r.height)
	}
	if vp.XMax <= vp.XMin || vp.YMax <= vp.YMin {
		return nil, apperr.E(apperr.ErrChart, "degenerate viewport %+v", vp)
	}

	cv := &canvas{
		buf:    make([]byte, r.width*r.height*3),
		width:  r.width,
		height: r.height,
	}
	cv.fillRect(0, 0, r.width-1, r.height-1, ParseColor(r.theme.Colors.Background))

	priceHeight := int(float64(r.height) * (1 - r.theme.VolumeHeightRatio))
	r.drawPricePane(cv, bars, vp, 0, priceHeight)
	r.drawVolumePane(cv, bars, vp, priceHeight, r.height)

	return cv.buf, nil
}

// plotArea is the padded drawing region of one pane.
type plotArea struct {
	left, right, top, bottom int
}

func (a plotArea) width() int  { return a.right - a.left }
func (a plotArea) height() int { return a.bottom - a.top }

func (r *Renderer) paneArea(yTop, yBottom int) plotArea {
	return plotArea{
		left:   r.theme.PaddingLeft,
		right:  r.width - r.theme.PaddingRight,
		top:    yTop + r.theme.PaddingTop,
		bottom: yBottom - r.theme.PaddingBottom,
	}
}

func (r *Renderer) drawPricePane(cv *canvas, bars []broker.HistoricalBar, vp Viewport, yTop, yBottom int) {
	area := r.paneArea(yTop, yBottom)
	if area.width() <= 0 || area.height() <= 0 {
		return
	}

	xOf := func(barX float64) int {
		return area.left + int((barX-vp.XMin)/(vp.XMax-vp.XMin)*float64(area.width()))
	}
	yOf := func(price float64) int {
		return area.bottom - int((price-vp.YMin)/(vp.YMax-vp.YMin)*float64(area.height()))
	}

	r.drawGrid(cv, area)

	start, end := visibleRange(vp, len(bars))
	slotPx := float64(area.width()) / (vp.XMax - vp.XMin)
	halfBody := int(slotPx * r.theme.CandleWidthRatio / 2)

	for i := start; i <= end; i++ {
		bar := bars[i]
		x := xOf(float64(i))

		bullish := bar.Close >= bar.Open
		bodyColor := ParseColor(r.theme.Colors.CandleBearishBody)
		wickColor := ParseColor(r.theme.Colors.CandleBearishWick)
		if bullish {
			bodyColor = ParseColor(r.theme.Colors.CandleBullishBody)
			wickColor = ParseColor(r.theme.Colors.CandleBullishWick)
		}

		cv.vline(x, yOf(bar.High), yOf(bar.Low), wickColor)

		if halfBody >= 1 {
			top := bar.Open
			if bar.Close > top {
				top = bar.Close
			}
			bottom := bar.Open
			if bar.Close < bottom {
				bottom = bar.Close
			}
			cv.fillRect(x-halfBody, yOf(top), x+halfBody, yOf(bottom), bodyColor)
		}
	}

	// Pane frame
	axis := ParseColor(r.theme.Colors.AxisLine)
	cv.hline(area.left, area.right, area.bottom, axis)
	cv.vline(area.right, area.top, area.bottom, axis)
}

func (r *Renderer) drawVolumePane(cv *canvas, bars []broker.HistoricalBar, vp Viewport, yTop, yBottom int) {
	area := plotArea{
		left:   r.theme.PaddingLeft,
		right:  r.width - r.theme.PaddingRight,
		top:    yTop + 5,
		bottom: yBottom - r.theme.PaddingBottom,
	}
	if area.width() <= 0 || area.height() <= 0 {
		return
	}

	start, end := visibleRange(vp, len(bars))
	var maxVolume int64
	for i := start; i <= end && i < len(bars); i++ {
		if bars[i].Volume > maxVolume {
			maxVolume = bars[i].Volume
		}
	}
	if maxVolume == 0 {
		return
	}

	slotPx := float64(area.width()) / (vp.XMax - vp.XMin)
	halfBody := int(slotPx * r.theme.CandleWidthRatio / 2)
	if halfBody < 1 {
		return
	}

	for i := start; i <= end; i++ {
		bar := bars[i]
		x := area.left + int((float64(i)-vp.XMin)/(vp.XMax-vp.XMin)*float64(area.width()))
		h := int(float64(bar.Volume) / float64(maxVolume) / 1.1 * float64(area.height()))

		col := ParseColor(r.theme.Colors.VolumeBearish)
		if bar.Close >= bar.Open {
			col = ParseColor(r.theme.Colors.VolumeBullish)
		}
		cv.fillRect(x-halfBody, area.bottom-h, x+halfBody, area.bottom, col)
	}
}

// drawGrid paints ten divisions each way: minor everywhere, major on the
// halves.
func (r *Renderer) drawGrid(cv *canvas, area plotArea) {
	minor := ParseColor(r.theme.Colors.GridMinor)
	major := ParseColor(r.theme.Colors.GridMajor)

	for i := 1; i < 10; i++ {
		col := minor
		if i%5 == 0 {
			col = major
		}
		x := area.left + area.width()*i/10
		cv.vline(x, area.top, area.bottom, col)
		y := area.top + area.height()*i/10
		cv.hline(area.left, area.right, y, col)
	}
}

// visibleRange clamps the viewport's bar window to the series.
func visibleRange(vp Viewport, n int) (int, int) {
	start := int(vp.XMin)
	if start < 0 {
		start = 0
	}
	end := int(vp.XMax + 0.999999)
	if end > n-1 {
		end = n - 1
	}
	return start, end
}
