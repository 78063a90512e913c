package ui

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/vostrik/tradedesk/internal/app"
	"github.com/vostrik/tradedesk/internal/broker"
)

func testGateway() *Gateway {
	rt := app.New(app.Options{Log: zerolog.Nop()})
	return NewGateway(rt, 16, zerolog.Nop())
}

func TestCommandMapping(t *testing.T) {
	g := testGateway()

	cases := []struct {
		action string
		want   app.InMessage
	}{
		{"start", app.Start{}},
		{"stop", app.Stop{}},
		{"increment", app.IncrementCounter{}},
		{"decrement", app.DecrementCounter{}},
		{"reset", app.ResetCounter{}},
		{"connect_paper", app.IB{Msg: app.ConnectPaper{}}},
		{"connect_live", app.IB{Msg: app.ConnectLive{}}},
		{"disconnect", app.IB{Msg: app.DisconnectIB{}}},
		{"switch_paper", app.IB{Msg: app.SwitchToPaper{}}},
		{"switch_live", app.IB{Msg: app.SwitchToLive{}}},
		{"reset_zoom", app.Chart{Msg: app.ResetChartZoom{}}},
	}
	for _, tc := range cases {
		got, ok := g.commandToMessage(&commandMessage{Action: tc.action})
		if !ok {
			t.Fatalf("action %q not mapped", tc.action)
		}
		if got != tc.want {
			t.Fatalf("action %q mapped to %#v, want %#v", tc.action, got, tc.want)
		}
	}
}

func TestCommandMappingTemplate(t *testing.T) {
	g := testGateway()

	msg, ok := g.commandToMessage(&commandMessage{
		Action:     "create_template",
		Name:       "Swing",
		Symbol:     "MSFT",
		Side:       "Short",
		Quantity:   50,
		LimitPrice: 400,
		StopPrice:  410,
		TIF:        "GTC",
		Model:      "Bounce",
	})
	if !ok {
		t.Fatal("create_template not mapped")
	}
	ib, ok := msg.(app.IB)
	if !ok {
		t.Fatalf("mapped to %T, want app.IB", msg)
	}
	ct, ok := ib.Msg.(app.CreateTemplate)
	if !ok {
		t.Fatalf("inner = %T, want CreateTemplate", ib.Msg)
	}
	if ct.Side != broker.SideShort || ct.TIF != broker.TIFGTC || ct.Model != broker.ModelBounce {
		t.Fatalf("enum parsing wrong: %+v", ct)
	}
}

func TestCommandMappingChart(t *testing.T) {
	g := testGateway()

	msg, _ := g.commandToMessage(&commandMessage{Action: "zoom", Factor: 2, CenterX: 30, CenterY: 100})
	zm := msg.(app.Chart).Msg.(app.ZoomChart)
	if zm.Factor != 2 || zm.CenterX != 30 || zm.CenterY != 100 {
		t.Fatalf("zoom mapping = %+v", zm)
	}

	msg, _ = g.commandToMessage(&commandMessage{Action: "pan", DX: 3, DY: -1})
	pm := msg.(app.Chart).Msg.(app.PanChart)
	if pm.DX != 3 || pm.DY != -1 {
		t.Fatalf("pan mapping = %+v", pm)
	}
}

func TestCommandMappingATRDefaults(t *testing.T) {
	g := testGateway()

	msg, _ := g.commandToMessage(&commandMessage{Action: "calculate_atr", Symbol: "AAPL"})
	atr := msg.(app.IB).Msg.(app.CalculateFilteredATR)
	if atr.PeriodDays != 14 {
		t.Fatalf("default period = %d, want 14", atr.PeriodDays)
	}
	if _, ok := atr.Method.(broker.IQRMethod); !ok {
		t.Fatalf("default method = %T, want IQR", atr.Method)
	}
}

func TestUnknownCommandNotMapped(t *testing.T) {
	g := testGateway()
	if _, ok := g.commandToMessage(&commandMessage{Action: "nope"}); ok {
		t.Fatal("unknown action should not map")
	}
}

func TestSetViewportRequiresPayload(t *testing.T) {
	g := testGateway()
	if _, ok := g.commandToMessage(&commandMessage{Action: "set_viewport"}); ok {
		t.Fatal("set_viewport without a viewport should not map")
	}
}
