package repository

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/ikkim/inventory-backend/internal/app/model"
	apperrors "github.com/ikkim/inventory-backend/internal/errors"
	"github.com/ikkim/inventory-backend/pkg/logger"
)

const (
	productsFileName = "products.json"
	tagsFileName     = "tags.json"
)

// jsonFile is a JSON document on disk. Writes go to a temp file that is
// renamed over the target so readers never see a half-written document.
type jsonFile struct {
	mu   sync.Mutex
	path string
}

func (f *jsonFile) load(v interface{}) error {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func (f *jsonFile) save(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

type fileProductRepository struct {
	file *jsonFile
}

// NewFileProductRepository stores products as a JSON array in dir/products.json.
func NewFileProductRepository(dir string) ProductRepository {
	return &fileProductRepository{file: &jsonFile{path: filepath.Join(dir, productsFileName)}}
}

func (r *fileProductRepository) read() ([]productDocument, error) {
	var docs []productDocument
	if err := r.file.load(&docs); err != nil {
		return nil, apperrors.Storage("read products file", err)
	}
	return docs, nil
}

func (r *fileProductRepository) write(docs []productDocument) error {
	if docs == nil {
		docs = []productDocument{}
	}
	if err := r.file.save(docs); err != nil {
		logger.Error("Failed to write products file", err, map[string]interface{}{
			"path": r.file.path,
		})
		return apperrors.Storage("write products file", err)
	}
	return nil
}

func (r *fileProductRepository) FindAll(ctx context.Context) ([]model.Product, error) {
	r.file.mu.Lock()
	defer r.file.mu.Unlock()

	docs, err := r.read()
	if err != nil {
		return nil, err
	}
	products := make([]model.Product, 0, len(docs))
	for _, d := range docs {
		products = append(products, d.toProduct())
	}
	sortByID(products)
	return products, nil
}

func (r *fileProductRepository) FindByID(ctx context.Context, id int) (*model.Product, error) {
	r.file.mu.Lock()
	defer r.file.mu.Unlock()

	docs, err := r.read()
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if d.ID == id {
			p := d.toProduct()
			return &p, nil
		}
	}
	return nil, apperrors.NotFound("product")
}

func (r *fileProductRepository) Upsert(ctx context.Context, product *model.Product) error {
	r.file.mu.Lock()
	defer r.file.mu.Unlock()

	docs, err := r.read()
	if err != nil {
		return err
	}

	if product.ID == 0 {
		product.ID = nextDocumentID(docs)
	}
	product.Tags = model.NormalizeTags(product.Tags)
	doc := toDocument(product)

	replaced := false
	for i := range docs {
		if docs[i].ID == product.ID {
			docs[i] = doc
			replaced = true
			break
		}
	}
	if !replaced {
		docs = append(docs, doc)
	}

	logger.Debug("Saving product to file", map[string]interface{}{
		"product_id": product.ID,
		"replaced":   replaced,
	})
	return r.write(docs)
}

func (r *fileProductRepository) Delete(ctx context.Context, id int) (bool, error) {
	r.file.mu.Lock()
	defer r.file.mu.Unlock()

	docs, err := r.read()
	if err != nil {
		return false, err
	}
	kept := docs[:0]
	removed := false
	for _, d := range docs {
		if d.ID == id {
			removed = true
			continue
		}
		kept = append(kept, d)
	}
	if !removed {
		return false, nil
	}
	return true, r.write(kept)
}

func (r *fileProductRepository) NextID(ctx context.Context) (int, error) {
	r.file.mu.Lock()
	defer r.file.mu.Unlock()

	docs, err := r.read()
	if err != nil {
		return 0, err
	}
	return nextDocumentID(docs), nil
}

func (r *fileProductRepository) ReconcileTagRemoval(ctx context.Context, tag string) (int, error) {
	return RemoveTagFromProducts(ctx, r, tag)
}

func (r *fileProductRepository) ReconcileTagRename(ctx context.Context, from, to string) (int, error) {
	return RenameTagInProducts(ctx, r, from, to)
}

func nextDocumentID(docs []productDocument) int {
	highest := 0
	for _, d := range docs {
		if d.ID > highest {
			highest = d.ID
		}
	}
	return highest + 1
}

type fileTagRepository struct {
	file *jsonFile
}

// NewFileTagRepository stores the tag list as a JSON array in dir/tags.json.
func NewFileTagRepository(dir string) TagRepository {
	return &fileTagRepository{file: &jsonFile{path: filepath.Join(dir, tagsFileName)}}
}

func (r *fileTagRepository) read() ([]string, error) {
	names := []string{}
	if err := r.file.load(&names); err != nil {
		return nil, apperrors.Storage("read tags file", err)
	}
	return names, nil
}

func (r *fileTagRepository) write(names []string) error {
	if err := r.file.save(names); err != nil {
		logger.Error("Failed to write tags file", err, map[string]interface{}{
			"path": r.file.path,
		})
		return apperrors.Storage("write tags file", err)
	}
	return nil
}

func (r *fileTagRepository) FindAll(ctx context.Context) ([]string, error) {
	r.file.mu.Lock()
	defer r.file.mu.Unlock()
	return r.read()
}

func (r *fileTagRepository) Add(ctx context.Context, name string) (bool, error) {
	r.file.mu.Lock()
	defer r.file.mu.Unlock()

	names, err := r.read()
	if err != nil {
		return false, err
	}
	if containsString(names, name) {
		return false, nil
	}
	return true, r.write(append(names, name))
}

func (r *fileTagRepository) Remove(ctx context.Context, name string) (bool, error) {
	r.file.mu.Lock()
	defer r.file.mu.Unlock()

	names, err := r.read()
	if err != nil {
		return false, err
	}
	kept, removed := removeTag(names, name)
	if !removed {
		return false, nil
	}
	return true, r.write(kept)
}

func (r *fileTagRepository) ReplaceAll(ctx context.Context, names []string) error {
	r.file.mu.Lock()
	defer r.file.mu.Unlock()
	return r.write(dedupeOrdered(names))
}
