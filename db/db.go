package db

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Collections struct {
	Client *mongo.Client

	UserCollection           *mongo.Collection
	ShopCollection           *mongo.Collection
	ProductCollection        *mongo.Collection
	ScannedProductCollection *mongo.Collection
	CartCollection           *mongo.Collection
	OrderCollection          *mongo.Collection
	ReceiptCollection        *mongo.Collection
	IdempotencyCollection    *mongo.Collection
}

// Connect opens the MongoDB client and binds the billing collections.
func Connect(ctx context.Context, uri, dbName string) (*Collections, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	d := client.Database(dbName)
	return &Collections{
		Client:                   client,
		UserCollection:           d.Collection("users"),
		ShopCollection:           d.Collection("shops"),
		ProductCollection:        d.Collection("products"),
		ScannedProductCollection: d.Collection("scannedproducts"),
		CartCollection:           d.Collection("carts"),
		OrderCollection:          d.Collection("orders"),
		ReceiptCollection:        d.Collection("receipts"),
		IdempotencyCollection:    d.Collection("idempotency"),
	}, nil
}

// Disconnect closes the client.
func (c *Collections) Disconnect(ctx context.Context) {
	if err := c.Client.Disconnect(ctx); err != nil {
		log.Printf("db: disconnect error: %v", err)
	}
}

// EnsureIndexes creates the uniqueness and lookup indexes the services rely on.
func (c *Collections) EnsureIndexes(ctx context.Context) error {
	specs := []struct {
		coll *mongo.Collection
		idx  []mongo.IndexModel
	}{
		{c.UserCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_email")},
			{Keys: bson.D{{Key: "googleId", Value: 1}}, Options: options.Index().SetSparse(true).SetName("google_id")},
		}},
		{c.ShopCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "owner", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_owner")},
		}},
		{c.ProductCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "shop", Value: 1}, {Key: "metadata.barcode", Value: 1}}, Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"metadata.barcode": bson.M{"$type": "string"}}).
				SetName("unique_shop_barcode")},
			{Keys: bson.D{{Key: "shop", Value: 1}, {Key: "metadata.sku", Value: 1}}, Options: options.Index().SetName("shop_sku")},
		}},
		{c.ScannedProductCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "sessionCode", Value: 1}, {Key: "user", Value: 1}, {Key: "product", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_session_user_product")},
		}},
		{c.CartCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "user", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_user")},
		}},
		{c.OrderCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("user_created")},
			{Keys: bson.D{{Key: "shop", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("shop_created")},
		}},
		{c.IdempotencyCollection, []mongo.IndexModel{
			{Keys: bson.M{"key": 1}, Options: options.Index().SetUnique(true).SetName("unique_key")},
			{Keys: bson.M{"expires_at": 1}, Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at")},
		}},
	}

	for _, s := range specs {
		if _, err := s.coll.Indexes().CreateMany(ctx, s.idx); err != nil {
			return err
		}
	}
	return nil
}
