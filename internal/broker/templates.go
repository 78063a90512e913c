package broker

import (
	"sort"

	"github.com/vostrik/tradedesk/internal/apperr"
)

// CreateTemplate validates and registers a new template, returning its id.
func (c *Client) CreateTemplate(t OrderTemplate) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}

	c.tplMu.Lock()
	c.templates[t.ID] = t
	c.tplMu.Unlock()

	c.log.Info().Str("template_id", t.ID).Str("name", t.Name).Msg("created order template")
	return t.ID, nil
}

// UpdateTemplate validates and replaces an existing template.
func (c *Client) UpdateTemplate(t OrderTemplate) error {
	if err := t.Validate(); err != nil {
		return err
	}

	c.tplMu.Lock()
	defer c.tplMu.Unlock()

	if _, ok := c.templates[t.ID]; !ok {
		return apperr.NotFound("template %s not found", t.ID)
	}
	c.templates[t.ID] = t
	c.log.Info().Str("template_id", t.ID).Msg("updated order template")
	return nil
}

// DeleteTemplate removes a template. Deleting an active template is
// forbidden; deactivate first.
func (c *Client) DeleteTemplate(id string) error {
	c.tplMu.Lock()
	defer c.tplMu.Unlock()

	t, ok := c.templates[id]
	if !ok {
		return apperr.NotFound("template %s not found", id)
	}
	if t.IsActive() {
		return apperr.Validation("cannot delete active template")
	}
	delete(c.templates, id)
	c.log.Info().Str("template_id", id).Msg("deleted order template")
	return nil
}

// Template returns a copy of one template.
func (c *Client) Template(id string) (OrderTemplate, bool) {
	c.tplMu.RLock()
	defer c.tplMu.RUnlock()
	t, ok := c.templates[id]
	return t, ok
}

// Templates returns copies of all templates, newest first.
func (c *Client) Templates() []OrderTemplate {
	c.tplMu.RLock()
	out := make([]OrderTemplate, 0, len(c.templates))
	for _, t := range c.templates {
		out = append(out, t)
	}
	c.tplMu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// RestoreTemplates seeds the registry from persisted state, without
// validation: the store is trusted.
func (c *Client) RestoreTemplates(templates []OrderTemplate) {
	c.tplMu.Lock()
	for _, t := range templates {
		c.templates[t.ID] = t
	}
	c.tplMu.Unlock()
	c.log.Info().Int("count", len(templates)).Msg("restored order templates")
}

// ActiveOrderTemplate resolves a broker order id to its template id.
func (c *Client) ActiveOrderTemplate(orderID int) (string, bool) {
	c.ordersMu.Lock()
	defer c.ordersMu.Unlock()
	id, ok := c.activeOrders[orderID]
	return id, ok
}
