package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/ikkim/inventory-backend/internal/app/model"
	apperrors "github.com/ikkim/inventory-backend/internal/errors"
	"github.com/ikkim/inventory-backend/pkg/logger"
)

// ProductRepository persists products. Every backend (JSON file, relational,
// key-value, embedded key-value) implements the same contract:
//
//   - FindAll returns products ordered by id.
//   - FindByID returns an error wrapping apperrors.ErrNotFound when absent.
//   - Upsert replaces every mutable field and the tag set of an existing id,
//     or inserts. A zero id is assigned NextID first and written back.
//   - Delete reports whether a product was removed. The caller deletes the image.
//   - ReconcileTagRemoval / ReconcileTagRename rewrite every product that
//     references a tag and return how many products changed. They keep going
//     past individual failures and report them as apperrors.ErrPartial.
//
// Backend failures are wrapped with apperrors.ErrStorage.
type ProductRepository interface {
	FindAll(ctx context.Context) ([]model.Product, error)
	FindByID(ctx context.Context, id int) (*model.Product, error)
	Upsert(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id int) (bool, error)
	NextID(ctx context.Context) (int, error)
	ReconcileTagRemoval(ctx context.Context, tag string) (int, error)
	ReconcileTagRename(ctx context.Context, from, to string) (int, error)
}

// TagRepository persists the global tag list in insertion order.
// Names are compared exactly (case-sensitive).
type TagRepository interface {
	FindAll(ctx context.Context) ([]string, error)
	Add(ctx context.Context, name string) (bool, error)
	Remove(ctx context.Context, name string) (bool, error)
	ReplaceAll(ctx context.Context, names []string) error
}

// productDocument is the serialized product used by the file and key-value
// backends: {id, name, quantity, price, tags, image|null}.
type productDocument struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Quantity int      `json:"quantity"`
	Price    float64  `json:"price"`
	Tags     []string `json:"tags"`
	Image    *string  `json:"image"`
}

func toDocument(p *model.Product) productDocument {
	doc := productDocument{
		ID:       p.ID,
		Name:     p.Name,
		Quantity: p.Quantity,
		Price:    p.Price,
		Tags:     model.NormalizeTags(p.Tags),
	}
	if p.Image != "" {
		image := p.Image
		doc.Image = &image
	}
	return doc
}

func (d productDocument) toProduct() model.Product {
	p := model.Product{
		ID:       d.ID,
		Name:     d.Name,
		Quantity: d.Quantity,
		Price:    d.Price,
		Tags:     model.NormalizeTags(d.Tags),
	}
	if d.Image != nil {
		p.Image = *d.Image
	}
	return p
}

// nextID is max(existing ids, default 0) + 1.
func nextID(products []model.Product) int {
	highest := 0
	for _, p := range products {
		if p.ID > highest {
			highest = p.ID
		}
	}
	return highest + 1
}

func sortByID(products []model.Product) {
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
}

// removeTag drops name from tags. It reports whether anything changed.
func removeTag(tags []string, name string) ([]string, bool) {
	out := make([]string, 0, len(tags))
	changed := false
	for _, t := range tags {
		if t == name {
			changed = true
			continue
		}
		out = append(out, t)
	}
	return out, changed
}

// renameTag swaps from for to, collapsing a duplicate if the product already had to.
func renameTag(tags []string, from, to string) ([]string, bool) {
	out, changed := removeTag(tags, from)
	if !changed {
		return tags, false
	}
	return model.NormalizeTags(append(out, to)), true
}

// RemoveTagFromProducts re-saves every product carrying tag without it,
// one Upsert per product.
func RemoveTagFromProducts(ctx context.Context, repo ProductRepository, tag string) (int, error) {
	return reconcileTags(ctx, repo, fmt.Sprintf("remove tag %q", tag), func(tags []string) ([]string, bool) {
		return removeTag(tags, tag)
	})
}

// RenameTagInProducts is the rename counterpart of RemoveTagFromProducts.
func RenameTagInProducts(ctx context.Context, repo ProductRepository, from, to string) (int, error) {
	return reconcileTags(ctx, repo, fmt.Sprintf("rename tag %q", from), func(tags []string) ([]string, bool) {
		return renameTag(tags, from, to)
	})
}

// reconcileTags applies rewrite to every product and re-saves the ones it
// changed. A failed save is logged and collected; the loop continues.
func reconcileTags(ctx context.Context, repo ProductRepository, op string, rewrite func([]string) ([]string, bool)) (int, error) {
	products, err := repo.FindAll(ctx)
	if err != nil {
		return 0, err
	}

	updated := 0
	var failures []error
	for i := range products {
		p := &products[i]
		tags, changed := rewrite(p.Tags)
		if !changed {
			continue
		}
		p.Tags = tags
		if err := repo.Upsert(ctx, p); err != nil {
			logger.Error("Failed to update product tags", err, map[string]interface{}{
				"product_id": p.ID,
				"operation":  op,
			})
			failures = append(failures, err)
			continue
		}
		updated++
	}

	return updated, apperrors.Partial(op, failures)
}

// dedupeOrdered drops empty and repeated names, keeping first occurrences.
func dedupeOrdered(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
