package chart

import "strconv"

// Color is an 8-bit RGB triple.
type Color struct {
	R, G, B uint8
}

// ParseColor decodes "#rrggbb" (an optional alpha suffix is ignored: the
// buffer format is opaque RGB). Unparseable input yields black.
func ParseColor(s string) Color {
	if len(s) < 7 || s[0] != '#' {
		return Color{}
	}
	r, err1 := strconv.ParseUint(s[1:3], 16, 8)
	g, err2 := strconv.ParseUint(s[3:5], 16, 8)
	b, err3 := strconv.ParseUint(s[5:7], 16, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return Color{}
	}
	return Color{R: uint8(r), G: uint8(g), B: uint8(b)}
}

// Colors groups every paintable element of the chart.
type Colors struct {
	Background string `json:"background"`
	GridMajor  string `json:"grid_major"`
	GridMinor  string `json:"grid_minor"`

	CandleBullishBody string `json:"candle_bullish_body"`
	CandleBullishWick string `json:"candle_bullish_wick"`
	CandleBearishBody string `json:"candle_bearish_body"`
	CandleBearishWick string `json:"candle_bearish_wick"`

	VolumeBullish string `json:"volume_bullish"`
	VolumeBearish string `json:"volume_bearish"`

	AxisText string `json:"axis_text"`
	AxisLine string `json:"axis_line"`
}

// Theme controls chart appearance.
type Theme struct {
	Colors            Colors  `json:"colors"`
	CandleWidthRatio  float64 `json:"candle_width_ratio"`  // body width as a share of bar slot
	WickWidth         float64 `json:"wick_width"`          // pixels
	VolumeHeightRatio float64 `json:"volume_height_ratio"` // share of chart height for volume
	PaddingTop        int     `json:"padding_top"`
	PaddingRight      int     `json:"padding_right"`
	PaddingBottom     int     `json:"padding_bottom"`
	PaddingLeft       int     `json:"padding_left"`
}

// DarkTheme is the default.
func DarkTheme() Theme {
	return Theme{
		Colors: Colors{
			Background:        "#1a1a1a",
			GridMajor:         "#333333",
			GridMinor:         "#262626",
			CandleBullishBody: "#26a69a",
			CandleBullishWick: "#26a69a",
			CandleBearishBody: "#ef5350",
			CandleBearishWick: "#ef5350",
			VolumeBullish:     "#26a69a",
			VolumeBearish:     "#ef5350",
			AxisText:          "#cccccc",
			AxisLine:          "#666666",
		},
		CandleWidthRatio:  0.8,
		WickWidth:         1,
		VolumeHeightRatio: 0.2,
		PaddingTop:        20,
		PaddingRight:      60,
		PaddingBottom:     40,
		PaddingLeft:       10,
	}
}

// LightTheme inverts the palette for bright environments.
func LightTheme() Theme {
	t := DarkTheme()
	t.Colors = Colors{
		Background:        "#ffffff",
		GridMajor:         "#e0e0e0",
		GridMinor:         "#f0f0f0",
		CandleBullishBody: "#4caf50",
		CandleBullishWick: "#4caf50",
		CandleBearishBody: "#f44336",
		CandleBearishWick: "#f44336",
		VolumeBullish:     "#4caf50",
		VolumeBearish:     "#f44336",
		AxisText:          "#333333",
		AxisLine:          "#999999",
	}
	return t
}
