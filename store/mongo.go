package store

import (
	"context"
	"regexp"
	"strings"
	"time"

	"hindustanbills/db"
	"hindustanbills/models"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo implements Store on top of the db collections.
type Mongo struct {
	c *db.Collections
}

func NewMongo(c *db.Collections) *Mongo {
	return &Mongo{c: c}
}

var _ Store = (*Mongo)(nil)

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return errors.WithStack(err)
	}
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter interface{}) (*T, error) {
	var out T
	if err := coll.FindOne(ctx, filter).Decode(&out); err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, translate(err)
	}
	defer cur.Close(ctx)

	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func replaceByID(ctx context.Context, coll *mongo.Collection, id string, doc interface{}) error {
	res, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// --- users ---

func (m *Mongo) CreateUser(ctx context.Context, u *models.User) error {
	_, err := m.c.UserCollection.InsertOne(ctx, u)
	return translate(err)
}

func (m *Mongo) UserByID(ctx context.Context, id string) (*models.User, error) {
	return findOne[models.User](ctx, m.c.UserCollection, bson.M{"_id": id})
}

func (m *Mongo) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return findOne[models.User](ctx, m.c.UserCollection, bson.M{"email": strings.ToLower(email)})
}

func (m *Mongo) UserByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return findOne[models.User](ctx, m.c.UserCollection, bson.M{"googleId": googleID})
}

func (m *Mongo) UpdateUser(ctx context.Context, u *models.User) error {
	return replaceByID(ctx, m.c.UserCollection, u.ID, u)
}

// --- shops ---

func (m *Mongo) CreateShop(ctx context.Context, s *models.Shop) error {
	_, err := m.c.ShopCollection.InsertOne(ctx, s)
	return translate(err)
}

func (m *Mongo) ShopByID(ctx context.Context, id string) (*models.Shop, error) {
	return findOne[models.Shop](ctx, m.c.ShopCollection, bson.M{"_id": id})
}

func (m *Mongo) ShopByOwner(ctx context.Context, owner string) (*models.Shop, error) {
	return findOne[models.Shop](ctx, m.c.ShopCollection, bson.M{"owner": owner})
}

func (m *Mongo) UpdateShop(ctx context.Context, s *models.Shop) error {
	return replaceByID(ctx, m.c.ShopCollection, s.ID, s)
}

func (m *Mongo) ActiveShops(ctx context.Context) ([]models.Shop, error) {
	return findAll[models.Shop](ctx, m.c.ShopCollection, bson.M{"isActive": true},
		options.Find().SetSort(bson.M{"name": 1}))
}

// --- products ---

func (m *Mongo) CreateProduct(ctx context.Context, p *models.Product) error {
	_, err := m.c.ProductCollection.InsertOne(ctx, p)
	return translate(err)
}

func (m *Mongo) ProductByID(ctx context.Context, id string) (*models.Product, error) {
	return findOne[models.Product](ctx, m.c.ProductCollection, bson.M{"_id": id})
}

func (m *Mongo) ProductsByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	list, err := findAll[models.Product](ctx, m.c.ProductCollection, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	out := make(map[string]*models.Product, len(list))
	for i := range list {
		out[list[i].ID] = &list[i]
	}
	return out, nil
}

func (m *Mongo) ProductByCode(ctx context.Context, shopID string, codes []string) (*models.Product, error) {
	filter := bson.M{
		"shop":     shopID,
		"isActive": true,
		"$or": bson.A{
			bson.M{"metadata.barcode": bson.M{"$in": codes}},
			bson.M{"metadata.sku": bson.M{"$in": codes}},
		},
	}
	return findOne[models.Product](ctx, m.c.ProductCollection, filter)
}

func (m *Mongo) UpdateProduct(ctx context.Context, p *models.Product) error {
	return replaceByID(ctx, m.c.ProductCollection, p.ID, p)
}

func (m *Mongo) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	filter := bson.M{}
	if f.Shop != "" {
		filter["shop"] = f.Shop
	}
	if f.ActiveOnly {
		filter["isActive"] = true
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		rx := primitiveRegex(q)
		filter["$or"] = bson.A{
			bson.M{"name": rx},
			bson.M{"category": rx},
			bson.M{"metadata.barcode": rx},
			bson.M{"metadata.sku": rx},
		}
	}

	opts := options.Find().SetSort(bson.M{"name": 1})
	if f.Skip > 0 {
		opts.SetSkip(int64(f.Skip))
	}
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	return findAll[models.Product](ctx, m.c.ProductCollection, filter, opts)
}

func primitiveRegex(q string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(q), "$options": "i"}
}

func (m *Mongo) DecrementStock(ctx context.Context, id string, qty int) error {
	// Atomically check stock and decrement it
	filter := bson.M{
		"_id":   id,
		"stock": bson.M{"$gte": qty},
	}
	update := bson.M{
		"$inc": bson.M{"stock": -qty},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	res, err := m.c.ProductCollection.UpdateOne(ctx, filter, update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrConflict
	}
	return nil
}

func (m *Mongo) IncrementStock(ctx context.Context, id string, qty int) error {
	res, err := m.c.ProductCollection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"stock": qty},
		"$set": bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// --- scanned products ---

func (m *Mongo) ScanByKey(ctx context.Context, k ScanKey) (*models.ScannedProduct, error) {
	return findOne[models.ScannedProduct](ctx, m.c.ScannedProductCollection, bson.M{
		"sessionCode": k.SessionCode,
		"user":        k.User,
		"product":     k.Product,
	})
}

func (m *Mongo) ScanByID(ctx context.Context, id string) (*models.ScannedProduct, error) {
	return findOne[models.ScannedProduct](ctx, m.c.ScannedProductCollection, bson.M{"_id": id})
}

func (m *Mongo) InsertScan(ctx context.Context, s *models.ScannedProduct) error {
	_, err := m.c.ScannedProductCollection.InsertOne(ctx, s)
	return translate(err)
}

func (m *Mongo) UpdateScan(ctx context.Context, s *models.ScannedProduct) error {
	return replaceByID(ctx, m.c.ScannedProductCollection, s.ID, s)
}

func (m *Mongo) ScansBySession(ctx context.Context, sessionCode, user string, state models.ScanState) ([]models.ScannedProduct, error) {
	return findAll[models.ScannedProduct](ctx, m.c.ScannedProductCollection, bson.M{
		"sessionCode": sessionCode,
		"user":        user,
		"state":       state,
	}, options.Find().SetSort(bson.M{"scannedAt": 1}))
}

func (m *Mongo) SetScanState(ctx context.Context, ids []string, from, to models.ScanState) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := m.c.ScannedProductCollection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "state": from},
		bson.M{"$set": bson.M{"state": to}},
	)
	if err != nil {
		return 0, translate(err)
	}
	return res.ModifiedCount, nil
}

// --- carts ---

func (m *Mongo) CartByUser(ctx context.Context, user string) (*models.Cart, error) {
	return findOne[models.Cart](ctx, m.c.CartCollection, bson.M{"user": user})
}

func (m *Mongo) SaveCart(ctx context.Context, c *models.Cart) error {
	c.UpdatedAt = time.Now()
	_, err := m.c.CartCollection.ReplaceOne(ctx, bson.M{"user": c.User}, c, options.Replace().SetUpsert(true))
	return translate(err)
}

// --- orders ---

func (m *Mongo) CreateOrder(ctx context.Context, o *models.Order) error {
	_, err := m.c.OrderCollection.InsertOne(ctx, o)
	return translate(err)
}

func (m *Mongo) OrderByID(ctx context.Context, id string) (*models.Order, error) {
	return findOne[models.Order](ctx, m.c.OrderCollection, bson.M{"_id": id})
}

func (m *Mongo) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	filter := bson.M{}
	if f.User != "" {
		filter["user"] = f.User
	}
	if f.Shop != "" {
		filter["shop"] = f.Shop
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return findAll[models.Order](ctx, m.c.OrderCollection, filter, options.Find().SetSort(bson.M{"createdAt": -1}))
}

func (m *Mongo) TransitionOrder(ctx context.Context, id string, from models.OrderStatus, u OrderUpdate) error {
	set := bson.M{"status": u.Status, "updatedAt": time.Now()}
	if u.PaymentInfo != nil {
		set["paymentInfo"] = u.PaymentInfo
	}
	if u.VerifiedBy != "" {
		set["verifiedBy"] = u.VerifiedBy
	}
	res, err := m.c.OrderCollection.UpdateOne(ctx, bson.M{"_id": id, "status": from}, bson.M{"$set": set})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrConflict
	}
	return nil
}

// --- receipts ---

func (m *Mongo) CreateReceipt(ctx context.Context, r *models.Receipt) error {
	_, err := m.c.ReceiptCollection.InsertOne(ctx, r)
	return translate(err)
}

func (m *Mongo) ReceiptByID(ctx context.Context, id string) (*models.Receipt, error) {
	return findOne[models.Receipt](ctx, m.c.ReceiptCollection, bson.M{"_id": id})
}

// --- idempotency ---

func (m *Mongo) InsertIdempotency(ctx context.Context, rec *models.IdempotencyRecord) error {
	_, err := m.c.IdempotencyCollection.InsertOne(ctx, rec)
	return translate(err)
}

func (m *Mongo) IdempotencyByKey(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	return findOne[models.IdempotencyRecord](ctx, m.c.IdempotencyCollection, bson.M{"key": key})
}

func (m *Mongo) SaveIdempotencyResponse(ctx context.Context, key string, response map[string]interface{}) error {
	_, err := m.c.IdempotencyCollection.UpdateOne(ctx,
		bson.M{"key": key},
		bson.M{"$set": bson.M{"response": response}},
	)
	return translate(err)
}

func (m *Mongo) DeleteIdempotency(ctx context.Context, key string) error {
	_, err := m.c.IdempotencyCollection.DeleteOne(ctx, bson.M{"key": key})
	return translate(err)
}
