package broker

import (
	"fmt"
	"strings"
	"time"

	"github.com/vostrik/tradedesk/internal/apperr"
)

// ActivateTemplate places the template's bracket at the broker: a limit
// parent held with transmit=false and a stop child that transmits the pair.
// The stop id is allocated immediately after the parent id so the gateway
// attaches it as a bracket child.
//
// Partial failure: a failed parent needs no rollback; a failed stop triggers
// a best-effort cancel of the parent. Either way the template ends Failed
// with both ids cleared and nothing in the active-order map.
func (c *Client) ActivateTemplate(id string) error {
	gw, err := c.activeGateway()
	if err != nil {
		return err
	}

	// Transition under lock, then release before the blocking calls.
	c.tplMu.Lock()
	t, ok := c.templates[id]
	if !ok {
		c.tplMu.Unlock()
		return apperr.NotFound("template %s not found", id)
	}
	if !t.CanActivate() {
		c.tplMu.Unlock()
		return apperr.Validation("template cannot be activated in current state %s", t.Status)
	}
	parentID, stopID := c.allocateOrderIDs()
	t.Status = StatusActivating
	t.ParentOrderID = &parentID
	t.StopOrderID = &stopID
	c.templates[id] = t
	c.tplMu.Unlock()

	contract := Stock(t.Symbol)
	parent := Order{
		Action:     t.Side.Action(),
		OrderType:  "LMT",
		Quantity:   t.Quantity,
		LimitPrice: t.LimitPrice,
		TIF:        string(t.TimeInForce),
		Transmit:   false, // held until the stop is attached
	}
	stop := Order{
		Action:    t.Side.StopAction(),
		OrderType: "STP",
		Quantity:  t.Quantity,
		AuxPrice:  t.StopPrice,
		ParentID:  parentID,
		TIF:       string(TIFGTC), // the stop outlives the day
		Transmit:  true,           // transmits both orders
	}

	if err := gw.PlaceOrder(parentID, contract, parent); err != nil {
		c.log.Error().Err(err).Str("template_id", id).Msg("failed to place parent order")
		c.failActivation(id)
		return apperr.Wrap(apperr.ErrIBConnection, err, "failed to place orders")
	}

	if err := gw.PlaceOrder(stopID, contract, stop); err != nil {
		c.log.Error().Err(err).Str("template_id", id).Msg("failed to place stop order")
		// The parent is already at the broker; try to take it back.
		if cancelErr := gw.CancelOrder(parentID); cancelErr != nil {
			c.log.Error().Err(cancelErr).Int("order_id", parentID).
				Msg("failed to cancel parent after stop failure")
		}
		c.failActivation(id)
		return apperr.Wrap(apperr.ErrIBConnection, err, "failed to place orders")
	}

	c.ordersMu.Lock()
	c.activeOrders[parentID] = id
	c.activeOrders[stopID] = id
	c.ordersMu.Unlock()

	now := time.Now().UTC()
	c.tplMu.Lock()
	if t, ok := c.templates[id]; ok {
		t.Status = StatusActive
		t.ActivatedAt = &now
		c.templates[id] = t
	}
	c.tplMu.Unlock()

	c.log.Info().Str("template_id", id).Int("parent_order_id", parentID).
		Int("stop_order_id", stopID).Msg("activated template")
	return nil
}

// failActivation marks the template Failed and clears the broker ids.
func (c *Client) failActivation(id string) {
	c.tplMu.Lock()
	if t, ok := c.templates[id]; ok {
		t.Status = StatusFailed
		t.ParentOrderID = nil
		t.StopOrderID = nil
		c.templates[id] = t
	}
	c.tplMu.Unlock()
}

// DeactivateTemplate cancels both legs of an active bracket independently.
// Legs that cancel cleanly leave the active-order map; a leg whose cancel
// errored stays mapped for reconciliation and the template ends Failed.
func (c *Client) DeactivateTemplate(id string) error {
	gw, err := c.activeGateway()
	if err != nil {
		return err
	}

	c.tplMu.Lock()
	t, ok := c.templates[id]
	if !ok {
		c.tplMu.Unlock()
		return apperr.NotFound("template %s not found", id)
	}
	if !t.CanDeactivate() {
		c.tplMu.Unlock()
		return apperr.Validation("template cannot be deactivated in current state %s", t.Status)
	}
	t.Status = StatusDeactivating
	c.templates[id] = t
	parentID, stopID := t.ParentOrderID, t.StopOrderID
	c.tplMu.Unlock()

	var errs []string
	parentOK, stopOK := true, true
	if parentID != nil {
		if err := gw.CancelOrder(*parentID); err != nil {
			parentOK = false
			errs = append(errs, fmt.Sprintf("failed to cancel parent order %d: %v", *parentID, err))
		}
	}
	if stopID != nil {
		if err := gw.CancelOrder(*stopID); err != nil {
			stopOK = false
			errs = append(errs, fmt.Sprintf("failed to cancel stop order %d: %v", *stopID, err))
		}
	}

	c.ordersMu.Lock()
	if parentID != nil && parentOK {
		delete(c.activeOrders, *parentID)
	}
	if stopID != nil && stopOK {
		delete(c.activeOrders, *stopID)
	}
	c.ordersMu.Unlock()

	if len(errs) == 0 {
		c.tplMu.Lock()
		if t, ok := c.templates[id]; ok {
			t.Status = StatusInactive
			t.ParentOrderID = nil
			t.StopOrderID = nil
			c.templates[id] = t
		}
		c.tplMu.Unlock()
		c.log.Info().Str("template_id", id).Msg("deactivated template")
		return nil
	}

	c.tplMu.Lock()
	if t, ok := c.templates[id]; ok {
		t.Status = StatusFailed
		c.templates[id] = t
	}
	c.tplMu.Unlock()
	return apperr.Connection("%s", strings.Join(errs, ", "))
}
