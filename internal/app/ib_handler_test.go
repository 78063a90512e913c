package app

import (
	"context"
	"errors"
	"testing"

	"github.com/vostrik/tradedesk/internal/broker"
)

func connectPaper(t *testing.T, r *Runtime) {
	t.Helper()
	if out := r.Ask(context.Background(), IB{Msg: ConnectPaper{}}); out != (Ok{}) {
		t.Fatalf("ConnectPaper reply = %#v, want Ok", out)
	}
}

func createTemplateViaRuntime(t *testing.T, r *Runtime) string {
	t.Helper()
	out := r.Ask(context.Background(), IB{Msg: CreateTemplate{
		Name:       "Test",
		Symbol:     "AAPL",
		Side:       broker.SideLong,
		Quantity:   100,
		LimitPrice: 150.0,
		StopPrice:  145.0,
		TIF:        broker.TIFDay,
		Model:      broker.ModelBreakout,
	}})
	idReply, ok := out.(TemplateIDReply)
	if !ok {
		t.Fatalf("CreateTemplate reply = %#v, want TemplateIDReply", out)
	}
	return idReply.TemplateID
}

func TestIBConnectPublishesStatus(t *testing.T) {
	r := newTestRuntime(&fakeGateway{})
	defer r.Close()

	rec := &uiRecorder{}
	r.UIEvents().Subscribe(rec.record)

	connectPaper(t, r)

	found := false
	for _, msg := range rec.snapshot() {
		if cs, ok := msg.(IBConnectionStatus); ok {
			if !cs.PaperConnected || cs.ActiveAccount != broker.AccountPaper {
				t.Fatalf("connection status = %+v", cs)
			}
			found = true
		}
	}
	if !found {
		t.Fatal("IBConnectionStatus not published")
	}
}

func TestIBConnectFailure(t *testing.T) {
	r := New(Options{
		Dial: func(string, int, int) (broker.Gateway, error) {
			return nil, errors.New("refused")
		},
	})
	defer r.Close()

	rec := &uiRecorder{}
	r.UIEvents().Subscribe(rec.record)

	out := r.Ask(context.Background(), IB{Msg: ConnectPaper{}})
	if _, ok := out.(ErrorReply); !ok {
		t.Fatalf("reply = %#v, want ErrorReply", out)
	}

	found := false
	for _, msg := range rec.snapshot() {
		if _, ok := msg.(ErrorMessage); ok {
			found = true
		}
	}
	if !found {
		t.Fatal("connection failure not mirrored to the UI bus")
	}
}

func TestIBTemplateCRUDThroughRuntime(t *testing.T) {
	r := newTestRuntime(&fakeGateway{})
	defer r.Close()
	ctx := context.Background()
	connectPaper(t, r)

	id := createTemplateViaRuntime(t, r)

	out := r.Ask(ctx, IB{Msg: GetTemplate{TemplateID: id}})
	tr, ok := out.(TemplateReply)
	if !ok || tr.Template == nil {
		t.Fatalf("GetTemplate reply = %#v", out)
	}
	if tr.Template.Symbol != "AAPL" {
		t.Fatalf("symbol = %q, want AAPL", tr.Template.Symbol)
	}

	tpl := *tr.Template
	tpl.Name = "Renamed"
	if out := r.Ask(ctx, IB{Msg: UpdateTemplate{Template: tpl}}); out != (Ok{}) {
		t.Fatalf("UpdateTemplate reply = %#v, want Ok", out)
	}

	out = r.Ask(ctx, IB{Msg: GetAllTemplates{}})
	all, ok := out.(TemplatesReply)
	if !ok || len(all.Templates) != 1 || all.Templates[0].Name != "Renamed" {
		t.Fatalf("GetAllTemplates reply = %#v", out)
	}

	if out := r.Ask(ctx, IB{Msg: DeleteTemplate{TemplateID: id}}); out != (Ok{}) {
		t.Fatalf("DeleteTemplate reply = %#v, want Ok", out)
	}
	out = r.Ask(ctx, IB{Msg: GetTemplate{TemplateID: id}})
	if tr := out.(TemplateReply); tr.Template != nil {
		t.Fatal("deleted template still resolvable")
	}
}

func TestIBActivateDeactivateThroughRuntime(t *testing.T) {
	gw := &fakeGateway{}
	r := newTestRuntime(gw)
	defer r.Close()
	ctx := context.Background()
	connectPaper(t, r)

	rec := &uiRecorder{}
	r.UIEvents().Subscribe(rec.record)

	id := createTemplateViaRuntime(t, r)

	if out := r.Ask(ctx, IB{Msg: ActivateTemplate{TemplateID: id}}); out != (Ok{}) {
		t.Fatalf("ActivateTemplate reply = %#v, want Ok", out)
	}

	out := r.Ask(ctx, IB{Msg: GetTemplate{TemplateID: id}})
	tpl := out.(TemplateReply).Template
	if tpl.Status != broker.StatusActive {
		t.Fatalf("status = %s, want Active", tpl.Status)
	}

	if out := r.Ask(ctx, IB{Msg: DeactivateTemplate{TemplateID: id}}); out != (Ok{}) {
		t.Fatalf("DeactivateTemplate reply = %#v, want Ok", out)
	}
	out = r.Ask(ctx, IB{Msg: GetTemplate{TemplateID: id}})
	tpl = out.(TemplateReply).Template
	if tpl.Status != broker.StatusInactive {
		t.Fatalf("status = %s, want Inactive", tpl.Status)
	}

	// Template refreshes reached the UI after both transitions.
	updates := 0
	for _, msg := range rec.snapshot() {
		if _, ok := msg.(IBOrderTemplateUpdate); ok {
			updates++
		}
	}
	if updates < 2 {
		t.Fatalf("template updates on bus = %d, want >= 2", updates)
	}
}

func TestIBBracketFailureReportsError(t *testing.T) {
	gw := &fakeGateway{
		placeErr: func(_ int, o broker.Order) error {
			if o.OrderType == "STP" {
				return errors.New("stop rejected")
			}
			return nil
		},
	}
	r := newTestRuntime(gw)
	defer r.Close()
	ctx := context.Background()
	connectPaper(t, r)

	id := createTemplateViaRuntime(t, r)

	out := r.Ask(ctx, IB{Msg: ActivateTemplate{TemplateID: id}})
	if _, ok := out.(ErrorReply); !ok {
		t.Fatalf("reply = %#v, want ErrorReply", out)
	}

	tpl := r.Ask(ctx, IB{Msg: GetTemplate{TemplateID: id}}).(TemplateReply).Template
	if tpl.Status != broker.StatusFailed {
		t.Fatalf("status = %s, want Failed", tpl.Status)
	}
	if len(gw.cancelled) != 1 {
		t.Fatalf("cancelled %d orders, want 1 (parent rollback)", len(gw.cancelled))
	}
}

func TestIBValidationErrorSurfaces(t *testing.T) {
	r := newTestRuntime(&fakeGateway{})
	defer r.Close()
	connectPaper(t, r)

	out := r.Ask(context.Background(), IB{Msg: CreateTemplate{
		Name: "Bad", Symbol: "AAPL", Side: broker.SideLong,
		Quantity: 100, LimitPrice: 150.0, StopPrice: 155.0, // stop above limit
		TIF: broker.TIFDay, Model: broker.ModelBreakout,
	}})
	if _, ok := out.(ErrorReply); !ok {
		t.Fatalf("reply = %#v, want ErrorReply", out)
	}
}

func TestIBGetConnectionStatus(t *testing.T) {
	r := newTestRuntime(&fakeGateway{})
	defer r.Close()

	out := r.Ask(context.Background(), IB{Msg: GetConnectionStatus{}})
	sr, ok := out.(StatusReply)
	if !ok {
		t.Fatalf("reply = %#v, want StatusReply", out)
	}
	if sr.Status.PaperConnected || sr.Status.LiveConnected || sr.Status.ActiveAccount != "" {
		t.Fatalf("fresh client status = %+v", sr.Status)
	}
}
