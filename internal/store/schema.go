package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection names.
const (
	colTemplates    = "templates"
	colActiveOrders = "active_orders"
	colSettings     = "settings"
	colPositions    = "positions"
)

// Default settings seeded on first run.
var defaultSettings = map[string]string{
	"risk_per_trade":                    "100.0",
	"atr_period":                        "14",
	"atr_outlier_multiplier":            "2.5",
	"stop_loss_atr_percentage":          "0.10",
	"max_technical_stop_atr_percentage": "0.15",
}

// ensureIndexes creates idempotent indexes on all collections.
func (s *Store) ensureIndexes(ctx context.Context) error {
	type idx struct {
		collection string
		model      mongo.IndexModel
	}

	indexes := []idx{
		{
			collection: colTemplates,
			model: mongo.IndexModel{
				Keys: bson.D{{Key: "symbol", Value: 1}},
			},
		},
		{
			collection: colTemplates,
			model: mongo.IndexModel{
				Keys: bson.D{{Key: "status", Value: 1}},
			},
		},
		{
			collection: colActiveOrders,
			model: mongo.IndexModel{
				Keys: bson.D{
					{Key: "template_id", Value: 1},
					{Key: "broker_order_id", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
		},
		{
			collection: colActiveOrders,
			model: mongo.IndexModel{
				Keys: bson.D{{Key: "broker_order_id", Value: 1}},
			},
		},
		{
			collection: colSettings,
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "key", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		{
			collection: colPositions,
			model: mongo.IndexModel{
				Keys: bson.D{{Key: "symbol", Value: 1}},
			},
		},
	}

	for _, i := range indexes {
		if _, err := s.db.Collection(i.collection).Indexes().CreateOne(ctx, i.model); err != nil {
			return fmt.Errorf("create index on %s: %w", i.collection, err)
		}
	}

	s.log.Info().Msg("MongoDB indexes ensured")
	return nil
}

// seedDefaultSettings inserts missing settings without touching existing
// values.
func (s *Store) seedDefaultSettings(ctx context.Context) error {
	col := s.db.Collection(colSettings)
	for key, value := range defaultSettings {
		_, err := col.UpdateOne(ctx,
			bson.D{{Key: "key", Value: key}},
			bson.D{{Key: "$setOnInsert", Value: bson.D{
				{Key: "key", Value: key},
				{Key: "value", Value: value},
			}}},
			options.UpdateOne().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("seed setting %s: %w", key, err)
		}
	}
	return nil
}
