package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/storefront/cartsync/internal/core/domain"
)

const collectionProducts = "products"

type ProductRepository struct {
	col *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{col: db.Collection(collectionProducts)}
}

// Prices are stored as Decimal128 so they never pass through float64.
type productDoc struct {
	ID    int64                `bson:"_id"`
	Name  string               `bson:"name"`
	Slug  string               `bson:"slug"`
	Image string               `bson:"image,omitempty"`
	Price primitive.Decimal128 `bson:"price"`
	Sizes []sizeDoc            `bson:"sizes,omitempty"`
}

type sizeDoc struct {
	ID    int64                `bson:"id"`
	Name  string               `bson:"name"`
	Price primitive.Decimal128 `bson:"price"`
}

func (r *ProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc productDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	return doc.toDomain()
}

// FindByIDs returns the products that exist; missing ids are simply absent.
func (r *ProductRepository) FindByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Product, error) {
	out := make(map[int64]*domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var doc productDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode product: %w", err)
		}
		p, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, cur.Err()
}

// Upsert writes a catalog entry. Used for seeding.
func (r *ProductRepository) Upsert(ctx context.Context, p *domain.Product) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc, err := fromProduct(p)
	if err != nil {
		return err
	}
	_, err = r.col.ReplaceOne(ctx, bson.M{"_id": p.ID}, doc, replaceUpsert())
	return err
}

func (d productDoc) toDomain() (*domain.Product, error) {
	price, err := decimal.NewFromString(d.Price.String())
	if err != nil {
		return nil, fmt.Errorf("product %d price: %w", d.ID, err)
	}
	p := &domain.Product{ID: d.ID, Name: d.Name, Slug: d.Slug, Image: d.Image, Price: price}
	for _, s := range d.Sizes {
		sp, err := decimal.NewFromString(s.Price.String())
		if err != nil {
			return nil, fmt.Errorf("product %d size %d price: %w", d.ID, s.ID, err)
		}
		p.Sizes = append(p.Sizes, domain.Size{ID: s.ID, Name: s.Name, Price: sp})
	}
	return p, nil
}

func fromProduct(p *domain.Product) (productDoc, error) {
	price, err := primitive.ParseDecimal128(p.Price.String())
	if err != nil {
		return productDoc{}, fmt.Errorf("product %d price: %w", p.ID, err)
	}
	doc := productDoc{ID: p.ID, Name: p.Name, Slug: p.Slug, Image: p.Image, Price: price}
	for _, s := range p.Sizes {
		sp, err := primitive.ParseDecimal128(s.Price.String())
		if err != nil {
			return productDoc{}, fmt.Errorf("product %d size %d price: %w", p.ID, s.ID, err)
		}
		doc.Sizes = append(doc.Sizes, sizeDoc{ID: s.ID, Name: s.Name, Price: sp})
	}
	return doc, nil
}
