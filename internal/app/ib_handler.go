package app

import (
	"context"
	"fmt"

	"github.com/vostrik/tradedesk/internal/broker"
)

// ensureBroker lazily builds the broker client on first use and restores
// persisted templates into it.
func (r *Runtime) ensureBroker(ctx context.Context, st *State) *broker.Client {
	if st.Broker != nil {
		return st.Broker
	}
	st.Broker = broker.NewClient(r.dial, r.log)
	if r.store != nil {
		if templates, err := r.store.Templates(ctx); err != nil {
			r.log.Error().Err(err).Msg("failed to load persisted templates")
		} else if len(templates) > 0 {
			st.Broker.RestoreTemplates(templates)
		}
	}
	return st.Broker
}

// handleIBMessage folds one broker-subsystem message. Mutating operations
// emit status/error messages and refreshed template or connection views on
// the UI bus; persisted state is mirrored through the template store.
func (r *Runtime) handleIBMessage(ctx context.Context, msg IBMessage, st *State, out chan<- OutMessage) *State {
	client := r.ensureBroker(ctx, st)

	switch m := msg.(type) {
	case ConnectPaper:
		r.log.Info().Msg("connecting to paper account")
		if err := client.ConnectPaper(); err != nil {
			st.NotifyUI(ErrorMessage{Message: fmt.Sprintf("Paper connection failed: %v", err)})
			reply(out, ErrorReply{Message: err.Error()})
			return st
		}
		st.NotifyUI(StatusMessage{Message: "Connected to paper account"})
		r.publishConnectionStatus(st, client)
		reply(out, Ok{})

	case ConnectLive:
		r.log.Warn().Msg("connecting to LIVE account")
		if err := client.ConnectLive(); err != nil {
			st.NotifyUI(ErrorMessage{Message: fmt.Sprintf("Live connection failed: %v", err)})
			reply(out, ErrorReply{Message: err.Error()})
			return st
		}
		st.NotifyUI(StatusMessage{Message: "Connected to LIVE account"})
		r.publishConnectionStatus(st, client)
		reply(out, Ok{})

	case DisconnectIB:
		client.Disconnect()
		st.NotifyUI(StatusMessage{Message: "Disconnected from broker"})
		r.publishConnectionStatus(st, client)
		reply(out, Ok{})

	case SwitchToPaper:
		if err := client.SwitchToPaper(); err != nil {
			reply(out, ErrorReply{Message: err.Error()})
			return st
		}
		st.NotifyUI(StatusMessage{Message: "Switched to paper account"})
		r.publishConnectionStatus(st, client)
		reply(out, Ok{})

	case SwitchToLive:
		if err := client.SwitchToLive(); err != nil {
			reply(out, ErrorReply{Message: err.Error()})
			return st
		}
		st.NotifyUI(StatusMessage{Message: "Switched to LIVE account"})
		r.publishConnectionStatus(st, client)
		reply(out, Ok{})

	case GetConnectionStatus:
		reply(out, StatusReply{Status: client.ConnectionStatus()})

	case CreateTemplate:
		tpl := broker.NewTemplate(m.Name, m.Symbol, m.Side, m.Quantity, m.LimitPrice, m.StopPrice, m.TIF, m.Model)
		id, err := client.CreateTemplate(tpl)
		if err != nil {
			st.NotifyUI(ErrorMessage{Message: fmt.Sprintf("Failed to create template: %v", err)})
			reply(out, ErrorReply{Message: err.Error()})
			return st
		}
		r.persistTemplate(ctx, client, id)
		st.NotifyUI(StatusMessage{Message: "Created template: " + m.Name})
		r.publishTemplates(st, client)
		reply(out, TemplateIDReply{TemplateID: id})

	case UpdateTemplate:
		if err := client.UpdateTemplate(m.Template); err != nil {
			reply(out, ErrorReply{Message: err.Error()})
			return st
		}
		r.persistTemplate(ctx, client, m.Template.ID)
		st.NotifyUI(StatusMessage{Message: "Template updated"})
		r.publishTemplates(st, client)
		reply(out, Ok{})

	case DeleteTemplate:
		if err := client.DeleteTemplate(m.TemplateID); err != nil {
			reply(out, ErrorReply{Message: err.Error()})
			return st
		}
		if r.store != nil {
			if err := r.store.DeleteTemplate(ctx, m.TemplateID); err != nil {
				r.log.Error().Err(err).Str("template_id", m.TemplateID).Msg("failed to delete persisted template")
			}
		}
		st.NotifyUI(StatusMessage{Message: "Template deleted"})
		r.publishTemplates(st, client)
		reply(out, Ok{})

	case GetTemplate:
		if tpl, ok := client.Template(m.TemplateID); ok {
			reply(out, TemplateReply{Template: &tpl})
		} else {
			reply(out, TemplateReply{})
		}

	case GetAllTemplates:
		reply(out, TemplatesReply{Templates: client.Templates()})

	case ActivateTemplate:
		r.log.Info().Str("template_id", m.TemplateID).Msg("activating template")
		err := client.ActivateTemplate(m.TemplateID)
		r.persistTemplate(ctx, client, m.TemplateID)
		if err != nil {
			st.NotifyUI(ErrorMessage{Message: fmt.Sprintf("Failed to activate: %v", err)})
			r.publishTemplates(st, client)
			reply(out, ErrorReply{Message: err.Error()})
			return st
		}
		if tpl, ok := client.Template(m.TemplateID); ok && tpl.ParentOrderID != nil && tpl.StopOrderID != nil && r.store != nil {
			if err := r.store.SaveActiveOrders(ctx, tpl.ID, *tpl.ParentOrderID, *tpl.StopOrderID); err != nil {
				r.log.Error().Err(err).Str("template_id", tpl.ID).Msg("failed to persist active orders")
			}
		}
		st.NotifyUI(StatusMessage{Message: fmt.Sprintf("Template %s activated", m.TemplateID)})
		r.publishTemplates(st, client)
		reply(out, Ok{})

	case DeactivateTemplate:
		r.log.Info().Str("template_id", m.TemplateID).Msg("deactivating template")
		err := client.DeactivateTemplate(m.TemplateID)
		r.persistTemplate(ctx, client, m.TemplateID)
		if err != nil {
			// A leg may still be live at the broker; name it for the
			// operator instead of silently reconciling later.
			st.NotifyUI(ErrorMessage{Message: fmt.Sprintf("Failed to deactivate: %v", err)})
			r.publishTemplates(st, client)
			reply(out, ErrorReply{Message: err.Error()})
			return st
		}
		if r.store != nil {
			if err := r.store.ClearActiveOrders(ctx, m.TemplateID); err != nil {
				r.log.Error().Err(err).Str("template_id", m.TemplateID).Msg("failed to clear persisted active orders")
			}
		}
		st.NotifyUI(StatusMessage{Message: fmt.Sprintf("Template %s deactivated", m.TemplateID)})
		r.publishTemplates(st, client)
		reply(out, Ok{})

	case SubscribeMarketData:
		if err := client.SubscribeMarketData(m.Symbol); err != nil {
			reply(out, ErrorReply{Message: err.Error()})
			return st
		}
		st.NotifyUI(StatusMessage{Message: "Subscribed to " + m.Symbol})
		reply(out, Ok{})

	case UnsubscribeMarketData:
		client.UnsubscribeMarketData(m.Symbol)
		reply(out, Ok{})

	case GetMarketData:
		if md, ok := client.MarketData(m.Symbol); ok {
			reply(out, MarketDataReply{Data: &md})
		} else {
			reply(out, MarketDataReply{})
		}

	case GetHistoricalData:
		data, err := client.GetHistoricalData(ctx, m.Symbol, m.DurationDays, m.BarSize)
		if err != nil {
			st.NotifyUI(ErrorMessage{Message: fmt.Sprintf("Failed to get historical data: %v", err)})
			reply(out, ErrorReply{Message: err.Error()})
			return st
		}
		st.NotifyUI(StatusMessage{Message: fmt.Sprintf("Retrieved %d bars for %s", len(data.Bars), m.Symbol)})
		reply(out, HistoricalReply{Data: data})

	case CalculateFilteredATR:
		result, err := client.CalculateFilteredATR(ctx, m.Symbol, m.PeriodDays, m.Method)
		if err != nil {
			st.NotifyUI(ErrorMessage{Message: fmt.Sprintf("Failed to calculate ATR: %v", err)})
			reply(out, ErrorReply{Message: err.Error()})
			return st
		}
		st.NotifyUI(StatusMessage{Message: fmt.Sprintf(
			"ATR for %s: Filtered %.2f, Regular %.2f, Excluded %d bars (%d%%)",
			m.Symbol, result.FilteredATR, result.RegularATR,
			result.ExcludedBars, int(result.ExclusionRate*100))})
		reply(out, ATRReply{Result: result})

	default:
		reply(out, Unhandled{Msg: IB{Msg: msg}})
	}

	return st
}

// persistTemplate mirrors one template's current state into the store,
// best-effort.
func (r *Runtime) persistTemplate(ctx context.Context, client *broker.Client, id string) {
	if r.store == nil {
		return
	}
	tpl, ok := client.Template(id)
	if !ok {
		return
	}
	if err := r.store.SaveTemplate(ctx, tpl); err != nil {
		r.log.Error().Err(err).Str("template_id", id).Msg("failed to persist template")
	}
}

func (r *Runtime) publishConnectionStatus(st *State, client *broker.Client) {
	status := client.ConnectionStatus()
	st.NotifyUI(IBConnectionStatus{
		PaperConnected: status.PaperConnected,
		LiveConnected:  status.LiveConnected,
		ActiveAccount:  status.ActiveAccount,
	})
}

func (r *Runtime) publishTemplates(st *State, client *broker.Client) {
	st.NotifyUI(IBOrderTemplateUpdate{Templates: client.Templates()})
}
