package chart

import (
	"math/rand"
	"testing"
)

func TestNewControllerFramesFirstHundredBars(t *testing.T) {
	c := NewController(250)
	vp := c.Viewport()
	if vp.XMin != 0 || vp.XMax != 100 {
		t.Fatalf("viewport = %+v, want x [0, 100]", vp)
	}

	c = NewController(30)
	vp = c.Viewport()
	if vp.XMax != 29 {
		t.Fatalf("XMax = %f, want 29 for 30 bars", vp.XMax)
	}
}

func TestZoomRejectedOutsideLimits(t *testing.T) {
	c := NewController(250)
	before := c.Viewport()

	// 100-bar span / 25 = 4 bars, below the 5-bar minimum: rejected whole.
	c.Zoom(25, 50, 50)
	if c.Viewport() != before {
		t.Fatalf("over-zoom mutated the viewport: %+v", c.Viewport())
	}

	// 100-bar span / 0.1 = 1000 bars, above the 500-bar maximum.
	c.Zoom(0.1, 50, 50)
	if c.Viewport() != before {
		t.Fatalf("under-zoom mutated the viewport: %+v", c.Viewport())
	}
}

func TestZoomPreservesCenterRatio(t *testing.T) {
	c := NewController(250)
	c.Zoom(2, 50, 50)
	vp := c.Viewport()
	if span := vp.XMax - vp.XMin; span != 50 {
		t.Fatalf("span after 2x zoom = %f, want 50", span)
	}
	// 50 sat at the middle before, so it stays at the middle.
	if center := (vp.XMin + vp.XMax) / 2; center != 50 {
		t.Fatalf("center = %f, want 50", center)
	}
}

func TestPanClampsAtLeftEdge(t *testing.T) {
	c := NewController(250)
	c.Pan(-30, 0)
	vp := c.Viewport()
	if vp.XMin != 0 {
		t.Fatalf("XMin = %f, want clamp at 0", vp.XMin)
	}
	if span := vp.XMax - vp.XMin; span != 100 {
		t.Fatalf("span = %f, clamping must shift not shrink", span)
	}
}

func TestPanClampsAtRightEdge(t *testing.T) {
	c := NewController(120)
	c.Pan(1000, 0)
	vp := c.Viewport()
	if vp.XMax != 119 {
		t.Fatalf("XMax = %f, want clamp at 119", vp.XMax)
	}
	if span := vp.XMax - vp.XMin; span != 100 {
		t.Fatalf("span = %f after clamp, want 100", span)
	}
}

func TestViewportInvariantUnderRandomOps(t *testing.T) {
	const dataLength = 250
	c := NewController(dataLength)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		switch rng.Intn(3) {
		case 0:
			c.Pan(rng.Float64()*40-20, rng.Float64()*10-5)
		case 1:
			vp := c.Viewport()
			cx := vp.XMin + rng.Float64()*(vp.XMax-vp.XMin)
			c.Zoom(0.5+rng.Float64()*1.5, cx, 50)
		case 2:
			c.ResetZoom()
		}

		vp := c.Viewport()
		if vp.XMin < 0 {
			t.Fatalf("op %d: XMin = %f < 0", i, vp.XMin)
		}
		if vp.XMax > dataLength-1 {
			t.Fatalf("op %d: XMax = %f > %d", i, vp.XMax, dataLength-1)
		}
		span := vp.XMax - vp.XMin
		if span < 5-1e-9 || span > 500+1e-9 {
			t.Fatalf("op %d: span = %f outside [5, 500]", i, span)
		}
		if vp.XMin >= vp.XMax {
			t.Fatalf("op %d: degenerate window %+v", i, vp)
		}
	}
}

func TestResetZoom(t *testing.T) {
	c := NewController(250)
	c.Pan(80, 0)
	c.Zoom(2, 120, 50)
	c.ResetZoom()
	vp := c.Viewport()
	if vp.XMin != 0 || vp.XMax != 100 {
		t.Fatalf("after reset viewport = %+v, want x [0, 100]", vp)
	}
}

func TestUpdateDataLengthShrinkClampsRightEdge(t *testing.T) {
	c := NewController(250)
	c.Pan(100, 0) // x in [100, 200]
	c.UpdateDataLength(150)
	vp := c.Viewport()
	if vp.XMax > 149 {
		t.Fatalf("XMax = %f after shrink, want <= 149", vp.XMax)
	}
}

func TestSetViewportConstrains(t *testing.T) {
	c := NewController(250)
	c.SetViewport(Viewport{XMin: -50, XMax: 40, YMin: 0, YMax: 100})
	vp := c.Viewport()
	if vp.XMin < 0 {
		t.Fatalf("XMin = %f, want >= 0", vp.XMin)
	}
}

func TestFitYAxis(t *testing.T) {
	c := NewController(100)
	c.FitYAxis(90, 110)
	vp := c.Viewport()
	if vp.YMin != 88 || vp.YMax != 112 {
		t.Fatalf("y = [%f, %f], want [88, 112] (10%% padding)", vp.YMin, vp.YMax)
	}
}

func TestVisibleBarRange(t *testing.T) {
	c := NewController(50)
	start, end := c.VisibleBarRange()
	if start != 0 || end != 49 {
		t.Fatalf("range = [%d, %d], want [0, 49]", start, end)
	}
}
