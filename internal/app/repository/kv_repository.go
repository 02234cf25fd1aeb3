package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ikkim/inventory-backend/internal/app/model"
	apperrors "github.com/ikkim/inventory-backend/internal/errors"
	"github.com/ikkim/inventory-backend/pkg/logger"
)

// KVClient is the subset of Redis commands the key-value repositories need.
// It is satisfied by a direct Redis connection and by the REST gateway client.
type KVClient interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, keys ...string) (int64, error)
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	RPush(ctx context.Context, key string, values ...string) error
	LRem(ctx context.Context, key, value string) (int64, error)
	LRange(ctx context.Context, key string) ([]string, error)
}

// kvKeys lays out the key space:
//
//	<prefix>product:<id>  JSON product document
//	<prefix>products      set of product ids
//	<prefix>tags          list of tag names in insertion order
type kvKeys struct {
	prefix string
}

func (k kvKeys) product(id int) string { return fmt.Sprintf("%sproduct:%d", k.prefix, id) }
func (k kvKeys) productIndex() string  { return k.prefix + "products" }
func (k kvKeys) tags() string          { return k.prefix + "tags" }

type kvProductRepository struct {
	client KVClient
	keys   kvKeys
}

// NewKVProductRepository stores products under prefix in a Redis-compatible store.
func NewKVProductRepository(client KVClient, prefix string) ProductRepository {
	return &kvProductRepository{client: client, keys: kvKeys{prefix: prefix}}
}

func (r *kvProductRepository) ids(ctx context.Context) ([]int, error) {
	members, err := r.client.SMembers(ctx, r.keys.productIndex())
	if err != nil {
		return nil, apperrors.Storage("list product ids", err)
	}
	ids := make([]int, 0, len(members))
	for _, m := range members {
		id, err := strconv.Atoi(m)
		if err != nil {
			logger.Warn("Skipping malformed product id in index", map[string]interface{}{
				"member": m,
			})
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *kvProductRepository) load(ctx context.Context, id int) (*model.Product, error) {
	raw, found, err := r.client.Get(ctx, r.keys.product(id))
	if err != nil {
		return nil, apperrors.Storage("load product", err)
	}
	if !found {
		return nil, apperrors.NotFound("product")
	}
	var doc productDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, apperrors.Storage("decode product", err)
	}
	p := doc.toProduct()
	return &p, nil
}

func (r *kvProductRepository) FindAll(ctx context.Context) ([]model.Product, error) {
	ids, err := r.ids(ctx)
	if err != nil {
		return nil, err
	}
	products := make([]model.Product, 0, len(ids))
	for _, id := range ids {
		p, err := r.load(ctx, id)
		if apperrors.Is(err, apperrors.ErrNotFound) {
			// index entry without a document: a delete that was interrupted
			continue
		}
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	sortByID(products)
	return products, nil
}

func (r *kvProductRepository) FindByID(ctx context.Context, id int) (*model.Product, error) {
	return r.load(ctx, id)
}

func (r *kvProductRepository) Upsert(ctx context.Context, product *model.Product) error {
	if product.ID == 0 {
		id, err := r.NextID(ctx)
		if err != nil {
			return err
		}
		product.ID = id
	}
	product.Tags = model.NormalizeTags(product.Tags)

	data, err := json.Marshal(toDocument(product))
	if err != nil {
		return apperrors.Storage("encode product", err)
	}
	if err := r.client.Set(ctx, r.keys.product(product.ID), string(data)); err != nil {
		logger.Error("Failed to write product", err, map[string]interface{}{
			"product_id": product.ID,
		})
		return apperrors.Storage("save product", err)
	}
	if err := r.client.SAdd(ctx, r.keys.productIndex(), strconv.Itoa(product.ID)); err != nil {
		logger.Error("Failed to index product", err, map[string]interface{}{
			"product_id": product.ID,
		})
		return apperrors.Storage("index product", err)
	}
	return nil
}

func (r *kvProductRepository) Delete(ctx context.Context, id int) (bool, error) {
	n, err := r.client.Del(ctx, r.keys.product(id))
	if err != nil {
		return false, apperrors.Storage("delete product", err)
	}
	if err := r.client.SRem(ctx, r.keys.productIndex(), strconv.Itoa(id)); err != nil {
		return false, apperrors.Storage("unindex product", err)
	}
	return n > 0, nil
}

func (r *kvProductRepository) NextID(ctx context.Context) (int, error) {
	ids, err := r.ids(ctx)
	if err != nil {
		return 0, err
	}
	highest := 0
	for _, id := range ids {
		if id > highest {
			highest = id
		}
	}
	return highest + 1, nil
}

func (r *kvProductRepository) ReconcileTagRemoval(ctx context.Context, tag string) (int, error) {
	return RemoveTagFromProducts(ctx, r, tag)
}

func (r *kvProductRepository) ReconcileTagRename(ctx context.Context, from, to string) (int, error) {
	return RenameTagInProducts(ctx, r, from, to)
}

type kvTagRepository struct {
	client KVClient
	keys   kvKeys
}

// NewKVTagRepository stores the tag list under prefix in a Redis-compatible store.
func NewKVTagRepository(client KVClient, prefix string) TagRepository {
	return &kvTagRepository{client: client, keys: kvKeys{prefix: prefix}}
}

func (r *kvTagRepository) FindAll(ctx context.Context) ([]string, error) {
	names, err := r.client.LRange(ctx, r.keys.tags())
	if err != nil {
		return nil, apperrors.Storage("load tags", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (r *kvTagRepository) Add(ctx context.Context, name string) (bool, error) {
	names, err := r.FindAll(ctx)
	if err != nil {
		return false, err
	}
	if containsString(names, name) {
		return false, nil
	}
	if err := r.client.RPush(ctx, r.keys.tags(), name); err != nil {
		return false, apperrors.Storage("add tag", err)
	}
	return true, nil
}

func (r *kvTagRepository) Remove(ctx context.Context, name string) (bool, error) {
	n, err := r.client.LRem(ctx, r.keys.tags(), name)
	if err != nil {
		return false, apperrors.Storage("remove tag", err)
	}
	return n > 0, nil
}

func (r *kvTagRepository) ReplaceAll(ctx context.Context, names []string) error {
	names = dedupeOrdered(names)
	if _, err := r.client.Del(ctx, r.keys.tags()); err != nil {
		return apperrors.Storage("replace tags", err)
	}
	if len(names) == 0 {
		return nil
	}
	if err := r.client.RPush(ctx, r.keys.tags(), names...); err != nil {
		return apperrors.Storage("replace tags", err)
	}
	return nil
}
