package chart

import (
	"testing"
	"time"

	"github.com/vostrik/tradedesk/internal/broker"
)

func testBars(n int) []broker.HistoricalBar {
	base := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	bars := make([]broker.HistoricalBar, n)
	for i := range bars {
		price := 100.0 + float64(i%10)
		bars[i] = broker.HistoricalBar{
			Timestamp: base.AddDate(0, 0, i),
			Open:      price,
			High:      price + 2,
			Low:       price - 2,
			Close:     price + 1,
			Volume:    int64(1000 + i*10),
		}
	}
	return bars
}

func TestRenderBufferDimensions(t *testing.T) {
	r := NewRenderer(320, 240, DarkTheme())
	bars := testBars(50)
	vp := FitToData(bars, 10)

	buf, err := r.RenderRGB(bars, vp)
	if err != nil {
		t.Fatalf("RenderRGB failed: %v", err)
	}
	if len(buf) != 320*240*3 {
		t.Fatalf("buffer size = %d, want %d (row-major RGB)", len(buf), 320*240*3)
	}
}

func TestRenderFillsBackground(t *testing.T) {
	theme := DarkTheme()
	r := NewRenderer(100, 80, theme)
	buf, err := r.RenderRGB(nil, Viewport{XMin: 0, XMax: 10, YMin: 0, YMax: 10})
	if err != nil {
		t.Fatalf("RenderRGB failed: %v", err)
	}

	bg := ParseColor(theme.Colors.Background)
	// Corner pixel is outside any plot area and must be background.
	if buf[0] != bg.R || buf[1] != bg.G || buf[2] != bg.B {
		t.Fatalf("corner pixel = (%d,%d,%d), want background (%d,%d,%d)",
			buf[0], buf[1], buf[2], bg.R, bg.G, bg.B)
	}
}

func TestRenderPaintsCandles(t *testing.T) {
	theme := DarkTheme()
	r := NewRenderer(200, 160, theme)
	bars := testBars(10)
	vp := FitToData(bars, 10)

	buf, err := r.RenderRGB(bars, vp)
	if err != nil {
		t.Fatalf("RenderRGB failed: %v", err)
	}

	bull := ParseColor(theme.Colors.CandleBullishBody)
	found := false
	for i := 0; i+2 < len(buf); i += 3 {
		if buf[i] == bull.R && buf[i+1] == bull.G && buf[i+2] == bull.B {
			found = true
			break
		}
	}
	if !found {
		t.Fatal("no bullish body pixels in a series of bullish bars")
	}
}

func TestRenderDegenerateViewport(t *testing.T) {
	r := NewRenderer(100, 80, DarkTheme())
	if _, err := r.RenderRGB(testBars(5), Viewport{XMin: 10, XMax: 10, YMin: 0, YMax: 10}); err == nil {
		t.Fatal("zero-width viewport should fail")
	}
	if _, err := r.RenderRGB(testBars(5), Viewport{XMin: 0, XMax: 10, YMin: 10, YMax: 5}); err == nil {
		t.Fatal("inverted y viewport should fail")
	}
}

func TestRenderInvalidDimensions(t *testing.T) {
	r := NewRenderer(0, 80, DarkTheme())
	if _, err := r.RenderRGB(testBars(5), Viewport{XMin: 0, XMax: 10, YMin: 0, YMax: 10}); err == nil {
		t.Fatal("zero width should fail")
	}
}

func TestParseColor(t *testing.T) {
	c := ParseColor("#26a69a")
	if c.R != 0x26 || c.G != 0xa6 || c.B != 0x9a {
		t.Fatalf("ParseColor = %+v", c)
	}
	// Alpha suffix tolerated, ignored.
	c = ParseColor("#ef535080")
	if c.R != 0xef || c.G != 0x53 || c.B != 0x50 {
		t.Fatalf("ParseColor with alpha = %+v", c)
	}
	if ParseColor("nope") != (Color{}) {
		t.Fatal("garbage should parse to black")
	}
	if ParseColor("#zzzzzz") != (Color{}) {
		t.Fatal("non-hex should parse to black")
	}
}

func TestFitToData(t *testing.T) {
	bars := testBars(20)
	vp := FitToData(bars, 10)
	if vp.XMin != 0 || vp.XMax != 19 {
		t.Fatalf("x = [%f, %f], want [0, 19]", vp.XMin, vp.XMax)
	}
	if vp.YMin >= vp.YMax {
		t.Fatalf("degenerate y range %+v", vp)
	}
	// Lows span [98, 107] and highs [102, 111]; padding pushes outside both.
	lowest, highest := bars[0].Low, bars[0].High
	for _, b := range bars {
		if b.Low < lowest {
			lowest = b.Low
		}
		if b.High > highest {
			highest = b.High
		}
	}
	if vp.YMin >= lowest || vp.YMax <= highest {
		t.Fatalf("padding missing: y [%f, %f] vs data [%f, %f]", vp.YMin, vp.YMax, lowest, highest)
	}
}
