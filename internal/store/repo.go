package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vostrik/tradedesk/internal/apperr"
	"github.com/vostrik/tradedesk/internal/broker"
)

// activeOrderRow is one (template, broker order) pair.
type activeOrderRow struct {
	TemplateID    string    `bson:"template_id"`
	BrokerOrderID int       `bson:"broker_order_id"`
	SubmittedAt   time.Time `bson:"submitted_at"`
}

// Position is a broker position row, optionally tied to a template.
type Position struct {
	PositionID string    `bson:"_id"`
	TemplateID string    `bson:"template_id,omitempty"`
	Symbol     string    `bson:"symbol"`
	Quantity   float64   `bson:"quantity"`
	AvgCost    float64   `bson:"avg_cost"`
	IsReadOnly bool      `bson:"is_read_only"`
	SyncedAt   time.Time `bson:"synced_at"`
}

// SaveTemplate upserts one template document.
func (s *Store) SaveTemplate(ctx context.Context, t broker.OrderTemplate) error {
	_, err := s.db.Collection(colTemplates).ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: t.ID}},
		t,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return apperr.Wrap(apperr.ErrIo, err, "save template %s", t.ID)
	}
	return nil
}

// Template fetches one template by id.
func (s *Store) Template(ctx context.Context, id string) (*broker.OrderTemplate, error) {
	var t broker.OrderTemplate
	err := s.db.Collection(colTemplates).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("template %s not found", id)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrIo, err, "load template %s", id)
	}
	return &t, nil
}

// Templates returns all templates, newest first.
func (s *Store) Templates(ctx context.Context) ([]broker.OrderTemplate, error) {
	return s.findTemplates(ctx, bson.D{})
}

// TemplatesByStatus returns templates in one lifecycle state, newest first.
func (s *Store) TemplatesByStatus(ctx context.Context, status broker.TemplateStatus) ([]broker.OrderTemplate, error) {
	return s.findTemplates(ctx, bson.D{{Key: "status", Value: status}})
}

func (s *Store) findTemplates(ctx context.Context, filter bson.D) ([]broker.OrderTemplate, error) {
	cur, err := s.db.Collection(colTemplates).Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrIo, err, "query templates")
	}
	defer cur.Close(ctx)

	var out []broker.OrderTemplate
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.Wrap(apperr.ErrSerialization, err, "decode templates")
	}
	return out, nil
}

// UpdateTemplateStatus rewrites only the status field.
func (s *Store) UpdateTemplateStatus(ctx context.Context, id string, status broker.TemplateStatus) error {
	res, err := s.db.Collection(colTemplates).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: status}}}},
	)
	if err != nil {
		return apperr.Wrap(apperr.ErrIo, err, "update template status %s", id)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("template %s not found", id)
	}
	return nil
}

// DeleteTemplate removes a template and cascades to its active-order rows.
func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	if err := s.ClearActiveOrders(ctx, id); err != nil {
		return err
	}
	res, err := s.db.Collection(colTemplates).DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return apperr.Wrap(apperr.ErrIo, err, "delete template %s", id)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("template %s not found", id)
	}
	return nil
}

// SaveActiveOrders records the bracket pair for an activated template.
func (s *Store) SaveActiveOrders(ctx context.Context, templateID string, parentOrderID, stopOrderID int) error {
	col := s.db.Collection(colActiveOrders)
	now := time.Now().UTC()
	for _, orderID := range []int{parentOrderID, stopOrderID} {
		row := activeOrderRow{TemplateID: templateID, BrokerOrderID: orderID, SubmittedAt: now}
		_, err := col.ReplaceOne(ctx,
			bson.D{
				{Key: "template_id", Value: templateID},
				{Key: "broker_order_id", Value: orderID},
			},
			row,
			options.Replace().SetUpsert(true),
		)
		if err != nil {
			return apperr.Wrap(apperr.ErrIo, err, "save active order %d for %s", orderID, templateID)
		}
	}
	return nil
}

// ClearActiveOrders removes every active-order row of a template.
func (s *Store) ClearActiveOrders(ctx context.Context, templateID string) error {
	_, err := s.db.Collection(colActiveOrders).DeleteMany(ctx,
		bson.D{{Key: "template_id", Value: templateID}})
	if err != nil {
		return apperr.Wrap(apperr.ErrIo, err, "clear active orders for %s", templateID)
	}
	return nil
}

// ActiveOrderTemplate resolves a broker order id to its template id.
func (s *Store) ActiveOrderTemplate(ctx context.Context, brokerOrderID int) (string, error) {
	var row activeOrderRow
	err := s.db.Collection(colActiveOrders).FindOne(ctx,
		bson.D{{Key: "broker_order_id", Value: brokerOrderID}}).Decode(&row)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", apperr.NotFound("no active order %d", brokerOrderID)
	}
	if err != nil {
		return "", apperr.Wrap(apperr.ErrIo, err, "load active order %d", brokerOrderID)
	}
	return row.TemplateID, nil
}

// Setting returns one settings value; ok is false when the key is absent.
func (s *Store) Setting(ctx context.Context, key string) (string, bool, error) {
	var doc struct {
		Value string `bson:"value"`
	}
	err := s.db.Collection(colSettings).FindOne(ctx, bson.D{{Key: "key", Value: key}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperr.Wrap(apperr.ErrIo, err, "load setting %s", key)
	}
	return doc.Value, true, nil
}

// SetSetting upserts one settings value.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.Collection(colSettings).UpdateOne(ctx,
		bson.D{{Key: "key", Value: key}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "key", Value: key},
			{Key: "value", Value: value},
			{Key: "updated_at", Value: time.Now().UTC()},
		}}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return apperr.Wrap(apperr.ErrIo, err, "set setting %s", key)
	}
	return nil
}

// RiskPerTrade reads the risk budget setting, falling back to the default.
func (s *Store) RiskPerTrade(ctx context.Context) (float64, error) {
	value, ok, err := s.Setting(ctx, "risk_per_trade")
	if err != nil {
		return 0, err
	}
	if !ok {
		return 100.0, nil
	}
	risk, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 100.0, nil
	}
	return risk, nil
}

// SyncPosition upserts one broker position row.
func (s *Store) SyncPosition(ctx context.Context, p Position) error {
	if p.SyncedAt.IsZero() {
		p.SyncedAt = time.Now().UTC()
	}
	_, err := s.db.Collection(colPositions).ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: p.PositionID}},
		p,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return apperr.Wrap(apperr.ErrIo, err, "sync position %s", p.PositionID)
	}
	return nil
}

// Positions returns all position rows, most recently synced first.
func (s *Store) Positions(ctx context.Context) ([]Position, error) {
	cur, err := s.db.Collection(colPositions).Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "synced_at", Value: -1}}))
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrIo, err, "query positions")
	}
	defer cur.Close(ctx)

	var out []Position
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.Wrap(apperr.ErrSerialization, err, "decode positions")
	}
	return out, nil
}

// ClearPositions wipes the positions collection before a fresh sync.
func (s *Store) ClearPositions(ctx context.Context) error {
	if _, err := s.db.Collection(colPositions).DeleteMany(ctx, bson.D{}); err != nil {
		return apperr.Wrap(apperr.ErrIo, err, "clear positions")
	}
	return nil
}
