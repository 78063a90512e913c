package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vostrik/tradedesk/internal/actor"
	"github.com/vostrik/tradedesk/internal/broker"
	"github.com/vostrik/tradedesk/internal/chart"
)

// RenderFunc rasterizes bars within a viewport under a theme into a
// row-major RGB buffer, returning the image dimensions.
type RenderFunc func(bars []broker.HistoricalBar, vp chart.Viewport, theme chart.Theme) (buf []byte, width, height int, err error)

// TemplateStore is the persistent collaborator the runtime mirrors template
// mutations into. A nil store disables persistence.
type TemplateStore interface {
	SaveTemplate(ctx context.Context, t broker.OrderTemplate) error
	DeleteTemplate(ctx context.Context, id string) error
	Templates(ctx context.Context) ([]broker.OrderTemplate, error)
	SaveActiveOrders(ctx context.Context, templateID string, parentOrderID, stopOrderID int) error
	ClearActiveOrders(ctx context.Context, templateID string) error
}

// Options configures a Runtime.
type Options struct {
	// Dial opens broker gateway connections. Required for IB messages.
	Dial broker.Dialer
	// Render produces chart images. Required for chart messages.
	Render RenderFunc
	// Store persists templates. Optional.
	Store TemplateStore
	// BufferSize overrides the mailbox depth (0 = default).
	BufferSize int
	Log        zerolog.Logger
}

// Runtime owns the mailbox and the UI event bus. All state mutations flow
// through Tell/Ask; the mailbox worker is the only writer.
type Runtime struct {
	log    zerolog.Logger
	mb     *actor.Mailbox[InMessage, OutMessage, *State]
	ui     *actor.Bus[UIMessage]
	dial   broker.Dialer
	render RenderFunc
	store  TemplateStore
}

// New builds the runtime and starts its mailbox worker.
func New(opts Options) *Runtime {
	r := &Runtime{
		log:    opts.Log.With().Str("component", "runtime").Logger(),
		ui:     actor.NewBus[UIMessage](),
		dial:   opts.Dial,
		render: opts.Render,
		store:  opts.Store,
	}

	st := NewDefaultState()
	st.notify = r.ui.Notify

	r.mb = actor.NewMailbox(opts.BufferSize, st, r.fold)
	return r
}

// UIEvents exposes the UI event bus for subscribers.
func (r *Runtime) UIEvents() *actor.Bus[UIMessage] { return r.ui }

// Start issues the Start message in the background.
func (r *Runtime) Start() {
	r.TellCb(Start{}, func(out OutMessage) {
		switch m := out.(type) {
		case Started:
			r.log.Info().Time("at", m.Time).Msg("runtime started")
		default:
			r.log.Error().Msg("unexpected reply starting runtime")
		}
	})
}

// Tell sends without waiting for the result. Errors and OkMsg notes are
// logged when the reply eventually lands.
func (r *Runtime) Tell(msg InMessage) {
	r.TellCb(msg, nil)
}

// TellCb sends without blocking the caller and invokes cb with the reply.
func (r *Runtime) TellCb(msg InMessage, cb func(OutMessage)) {
	go func() {
		out := r.Ask(context.Background(), msg)
		if cb != nil {
			cb(out)
			return
		}
		switch m := out.(type) {
		case ErrorReply:
			r.log.Error().Msg(m.Message)
		case OkMsg:
			r.log.Info().Msg(m.Message)
		}
	}()
}

// Ask sends and waits for the reply. Mailbox failures surface as ErrorReply.
func (r *Runtime) Ask(ctx context.Context, msg InMessage) OutMessage {
	out, err := r.mb.Send(ctx, msg)
	if err != nil {
		r.log.Error().Err(err).Msg("error sending message to mailbox")
		return ErrorReply{Message: err.Error()}
	}
	return out
}

// Close stops the mailbox worker.
func (r *Runtime) Close() { r.mb.Close() }

func reply(ch chan<- OutMessage, m OutMessage) {
	if ch != nil {
		ch <- m
	}
}

// fold is the mailbox folding function: it serializes every state mutation
// and dispatches subsystem messages to their handlers.
func (r *Runtime) fold(ctx context.Context, msg InMessage, st *State, out chan<- OutMessage) *State {
	switch m := msg.(type) {
	case NewState:
		r.log.Info().Msg("setting new state")
		m.State.notify = r.ui.Notify
		reply(out, Ok{})
		return m.State

	case Start:
		r.log.Info().Msg("starting runtime")
		st.Version++
		st.StartTime = time.Now()
		st.IsRunning = true
		st.NotifyUI(RuntimeStarted{})
		st.NotifyUI(StatusMessage{Message: "Runtime started successfully"})
		reply(out, Started{Time: st.StartTime})
		return st

	case Stop:
		r.log.Info().Msg("stopping runtime")
		st.Version++
		st.IsRunning = false
		st.NotifyUI(RuntimeStopped{})
		st.NotifyUI(StatusMessage{Message: "Runtime stopped"})
		reply(out, Ok{})
		return st

	case GetState:
		reply(out, StateReply{State: st.Snapshot(), Now: time.Now().UTC()})
		return st

	case IncrementCounter:
		st.Version++
		st.Counter++
		st.NotifyUI(UpdateCounter{Value: st.Counter})
		reply(out, Ok{})
		return st

	case DecrementCounter:
		st.Version++
		st.Counter--
		st.NotifyUI(UpdateCounter{Value: st.Counter})
		reply(out, Ok{})
		return st

	case ResetCounter:
		st.Version++
		st.Counter = 0
		st.NotifyUI(UpdateCounter{Value: st.Counter})
		st.NotifyUI(StatusMessage{Message: "Counter reset to zero"})
		reply(out, Ok{})
		return st

	case ReportError:
		r.log.Error().Msg(m.Message)
		st.NotifyUI(ErrorMessage{Message: m.Message})
		reply(out, ErrorReply{Message: m.Message})
		return st

	case IB:
		return r.handleIBMessage(ctx, m.Msg, st, out)

	case Chart:
		return r.handleChartMessage(ctx, m.Msg, st, out)

	default:
		r.log.Warn().Str("msg", fmt.Sprintf("%T", msg)).Msg("unhandled runtime message")
		reply(out, Unhandled{Msg: msg})
		return st
	}
}
