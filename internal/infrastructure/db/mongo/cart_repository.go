package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/storefront/cartsync/internal/core/domain"
	"github.com/storefront/cartsync/internal/core/ports"
)

const collectionCarts = "carts"

// CartRepository stores one document per user keyed by user id.
type CartRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func NewCartRepository(db *mongo.Database) *CartRepository {
	return &CartRepository{col: db.Collection(collectionCarts), now: time.Now}
}

type cartDoc struct {
	UserID    string        `bson:"_id"`
	Items     []cartItemDoc `bson:"items"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

type cartItemDoc struct {
	ProductID int64 `bson:"product_id"`
	SizeID    int64 `bson:"size_id,omitempty"`
	Quantity  int   `bson:"quantity"`
}

func (r *CartRepository) FindByUser(ctx context.Context, userID string) ([]ports.StoredCartItem, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc cartDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCartNotFound
		}
		return nil, fmt.Errorf("find cart: %w", err)
	}

	items := make([]ports.StoredCartItem, 0, len(doc.Items))
	for _, it := range doc.Items {
		items = append(items, ports.StoredCartItem{ProductID: it.ProductID, SizeID: it.SizeID, Quantity: it.Quantity})
	}
	return items, nil
}

// Replace upserts the whole cart document.
func (r *CartRepository) Replace(ctx context.Context, userID string, items []ports.StoredCartItem) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := cartDoc{UserID: userID, Items: make([]cartItemDoc, 0, len(items)), UpdatedAt: r.now().UTC()}
	for _, it := range items {
		doc.Items = append(doc.Items, cartItemDoc{ProductID: it.ProductID, SizeID: it.SizeID, Quantity: it.Quantity})
	}

	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": userID}, doc, replaceUpsert())
	if err != nil {
		return fmt.Errorf("replace cart: %w", err)
	}
	return nil
}

func replaceUpsert() *options.ReplaceOptions {
	return options.Replace().SetUpsert(true)
}
