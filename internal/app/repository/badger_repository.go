package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/ikkim/inventory-backend/internal/app/model"
	apperrors "github.com/ikkim/inventory-backend/internal/errors"
	"github.com/ikkim/inventory-backend/pkg/logger"
)

var (
	badgerProductPrefix = []byte("product/")
	badgerTagsKey       = []byte("tags")
)

func badgerProductKey(id int) []byte {
	return []byte(fmt.Sprintf("product/%d", id))
}

type badgerProductRepository struct {
	db *badger.DB
}

// NewBadgerProductRepository stores one JSON document per product in an
// embedded Badger store.
func NewBadgerProductRepository(db *badger.DB) ProductRepository {
	return &badgerProductRepository{db: db}
}

func (r *badgerProductRepository) FindAll(ctx context.Context) ([]model.Product, error) {
	products := []model.Product{}
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = badgerProductPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var doc productDocument
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			}); err != nil {
				return err
			}
			products = append(products, doc.toProduct())
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to scan products", err)
		return nil, apperrors.Storage("load products", err)
	}
	sortByID(products)
	return products, nil
}

func (r *badgerProductRepository) FindByID(ctx context.Context, id int) (*model.Product, error) {
	var doc productDocument
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerProductKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, apperrors.NotFound("product")
	}
	if err != nil {
		return nil, apperrors.Storage("load product", err)
	}
	p := doc.toProduct()
	return &p, nil
}

func (r *badgerProductRepository) Upsert(ctx context.Context, product *model.Product) error {
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
	if err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerProductKey(product.ID), data)
	}); err != nil {
		logger.Error("Failed to write product", err, map[string]interface{}{
			"product_id": product.ID,
		})
		return apperrors.Storage("save product", err)
	}
	return nil
}

func (r *badgerProductRepository) Delete(ctx context.Context, id int) (bool, error) {
	removed := false
	err := r.db.Update(func(txn *badger.Txn) error {
		key := badgerProductKey(id)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		removed = true
		return txn.Delete(key)
	})
	if err != nil {
		return false, apperrors.Storage("delete product", err)
	}
	return removed, nil
}

func (r *badgerProductRepository) NextID(ctx context.Context) (int, error) {
	products, err := r.FindAll(ctx)
	if err != nil {
		return 0, err
	}
	return nextID(products), nil
}

func (r *badgerProductRepository) ReconcileTagRemoval(ctx context.Context, tag string) (int, error) {
	return RemoveTagFromProducts(ctx, r, tag)
}

func (r *badgerProductRepository) ReconcileTagRename(ctx context.Context, from, to string) (int, error) {
	return RenameTagInProducts(ctx, r, from, to)
}

type badgerTagRepository struct {
	db *badger.DB
}

// NewBadgerTagRepository keeps the tag list as a single JSON array value.
func NewBadgerTagRepository(db *badger.DB) TagRepository {
	return &badgerTagRepository{db: db}
}

func readBadgerTags(txn *badger.Txn) ([]string, error) {
	names := []string{}
	item, err := txn.Get(badgerTagsKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return names, nil
	}
	if err != nil {
		return nil, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &names)
	})
	return names, err
}

func writeBadgerTags(txn *badger.Txn, names []string) error {
	data, err := json.Marshal(names)
	if err != nil {
		return err
	}
	return txn.Set(badgerTagsKey, data)
}

func (r *badgerTagRepository) FindAll(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		names, err = readBadgerTags(txn)
		return err
	})
	if err != nil {
		return nil, apperrors.Storage("load tags", err)
	}
	return names, nil
}

// mutate runs fn against the current tag list inside one read-write
// transaction and persists the result when fn reports a change.
func (r *badgerTagRepository) mutate(op string, fn func([]string) ([]string, bool)) (bool, error) {
	changed := false
	err := r.db.Update(func(txn *badger.Txn) error {
		names, err := readBadgerTags(txn)
		if err != nil {
			return err
		}
		var next []string
		next, changed = fn(names)
		if !changed {
			return nil
		}
		return writeBadgerTags(txn, next)
	})
	if err != nil {
		logger.Error("Failed to update tags", err, map[string]interface{}{
			"operation": op,
		})
		return false, apperrors.Storage(op, err)
	}
	return changed, nil
}

func (r *badgerTagRepository) Add(ctx context.Context, name string) (bool, error) {
	return r.mutate("add tag", func(names []string) ([]string, bool) {
		if containsString(names, name) {
			return names, false
		}
		return append(names, name), true
	})
}

func (r *badgerTagRepository) Remove(ctx context.Context, name string) (bool, error) {
	return r.mutate("remove tag", func(names []string) ([]string, bool) {
		return removeTag(names, name)
	})
}

func (r *badgerTagRepository) ReplaceAll(ctx context.Context, names []string) error {
	_, err := r.mutate("replace tags", func([]string) ([]string, bool) {
		return dedupeOrdered(names), true
	})
	return err
}
