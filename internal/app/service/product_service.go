package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/ikkim/inventory-backend/internal/app/model"
	"github.com/ikkim/inventory-backend/internal/app/repository"
	apperrors "github.com/ikkim/inventory-backend/internal/errors"
	"github.com/ikkim/inventory-backend/internal/imaging"
	"github.com/ikkim/inventory-backend/internal/storage"
	"github.com/ikkim/inventory-backend/pkg/logger"
)

type ProductListOptions struct {
	Tags   []string // match any
	Search string   // case-insensitive substring of the name
}

// Upload is a photo submitted with a product form.
type Upload struct {
	Filename string
	Data     []byte
}

// ProductInput carries the mutable fields of a product. Tags replace the
// product's tag set wholesale; a nil Photo keeps the current image.
type ProductInput struct {
	Name     string
	Quantity int
	Price    float64
	Tags     []string
	Photo    *Upload
}

// SaveResult is returned by create and update. ImageErr is set when the
// product was saved but its photo could not be stored.
type SaveResult struct {
	Product  *model.Product
	ImageErr error
}

type ProductService interface {
	ListProducts(ctx context.Context, opts ProductListOptions) ([]model.Product, error)
	GetProduct(ctx context.Context, id int) (*model.Product, error)
	CreateProduct(ctx context.Context, input ProductInput) (*SaveResult, error)
	UpdateProduct(ctx context.Context, id int, input ProductInput) (*SaveResult, error)
	DeleteProduct(ctx context.Context, id int) error
	ImportProducts(ctx context.Context, inputs []ProductInput) (int, error)
}

type productService struct {
	productRepo repository.ProductRepository
	tagRepo     repository.TagRepository
	images      storage.ImageStore
	processor   *imaging.Processor
	writes      *sync.Mutex
}

// NewProductService wires the product workflow. writes serializes id
// assignment and tag reconciliation; share it with the TagService.
func NewProductService(
	productRepo repository.ProductRepository,
	tagRepo repository.TagRepository,
	images storage.ImageStore,
	processor *imaging.Processor,
	writes *sync.Mutex,
) ProductService {
	if writes == nil {
		writes = &sync.Mutex{}
	}
	return &productService{
		productRepo: productRepo,
		tagRepo:     tagRepo,
		images:      images,
		processor:   processor,
		writes:      writes,
	}
}

func (s *productService) ListProducts(ctx context.Context, opts ProductListOptions) ([]model.Product, error) {
	logger.Debug("Listing products", map[string]interface{}{
		"tags":   opts.Tags,
		"search": opts.Search,
	})

	products, err := s.productRepo.FindAll(ctx)
	if err != nil {
		logger.Error("Failed to list products", err)
		return nil, err
	}

	filtered := FilterProducts(products, opts.Tags, opts.Search)
	logger.Debug("Products listed", map[string]interface{}{
		"total":    len(products),
		"returned": len(filtered),
	})
	return filtered, nil
}

func (s *productService) GetProduct(ctx context.Context, id int) (*model.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

func (s *productService) CreateProduct(ctx context.Context, input ProductInput) (*SaveResult, error) {
	input, err := validateProductInput(input)
	if err != nil {
		return nil, err
	}

	// Decode before touching any store: a bad photo means no product.
	photo, err := s.processPhoto(input.Photo)
	if err != nil {
		return nil, err
	}

	s.writes.Lock()
	defer s.writes.Unlock()

	id, err := s.productRepo.NextID(ctx)
	if err != nil {
		return nil, err
	}

	registered, err := s.registerTags(ctx, input.Tags)
	if err != nil {
		s.unregisterTags(ctx, registered)
		return nil, err
	}

	product := &model.Product{
		ID:       id,
		Name:     input.Name,
		Quantity: input.Quantity,
		Price:    input.Price,
		Tags:     input.Tags,
	}

	result := &SaveResult{Product: product}
	if photo != nil {
		product.Image, result.ImageErr = s.storePhoto(ctx, id, storage.KeyFor(id), photo)
	}

	if err := s.productRepo.Upsert(ctx, product); err != nil {
		logger.Error("Failed to create product", err, map[string]interface{}{
			"product_id": id,
		})
		s.discardImage(ctx, product.Image)
		s.unregisterTags(ctx, registered)
		return nil, err
	}

	logger.Info("Product created", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
		"has_image":  product.Image != "",
	})
	return result, nil
}

func (s *productService) UpdateProduct(ctx context.Context, id int, input ProductInput) (*SaveResult, error) {
	input, err := validateProductInput(input)
	if err != nil {
		return nil, err
	}

	photo, err := s.processPhoto(input.Photo)
	if err != nil {
		return nil, err
	}

	s.writes.Lock()
	defer s.writes.Unlock()

	existing, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	registered, err := s.registerTags(ctx, input.Tags)
	if err != nil {
		s.unregisterTags(ctx, registered)
		return nil, err
	}

	product := &model.Product{
		ID:       id,
		Name:     input.Name,
		Quantity: input.Quantity,
		Price:    input.Price,
		Tags:     input.Tags,
		Image:    existing.Image,
	}

	result := &SaveResult{Product: product}
	newImage := ""
	if photo != nil {
		// The current photo stays untouched until the product points elsewhere.
		key := storage.KeyFor(id)
		if existing.Image != "" {
			key = storage.RevisionKeyFor(id, uuid.NewString()[:8])
		}
		ref, imageErr := s.storePhoto(ctx, id, key, photo)
		if imageErr != nil {
			result.ImageErr = imageErr
		} else {
			newImage = ref
			product.Image = ref
		}
	}

	if err := s.productRepo.Upsert(ctx, product); err != nil {
		logger.Error("Failed to update product", err, map[string]interface{}{
			"product_id": id,
		})
		if newImage != "" && newImage != existing.Image {
			s.discardImage(ctx, newImage)
		}
		s.unregisterTags(ctx, registered)
		return nil, err
	}

	if newImage != "" && existing.Image != "" && existing.Image != newImage {
		s.discardImage(ctx, existing.Image)
	}

	logger.Info("Product updated", map[string]interface{}{
		"product_id":    id,
		"image_changed": newImage != "",
	})
	return result, nil
}

func (s *productService) DeleteProduct(ctx context.Context, id int) error {
	s.writes.Lock()
	defer s.writes.Unlock()

	existing, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if existing.Image != "" {
		if err := s.images.Delete(ctx, existing.Image); err != nil {
			logger.Error("Failed to delete product image", err, map[string]interface{}{
				"product_id": id,
				"image":      existing.Image,
			})
			return apperrors.Storage("delete image", err)
		}
	}

	removed, err := s.productRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return apperrors.NotFound("product")
	}

	logger.Info("Product deleted", map[string]interface{}{
		"product_id": id,
	})
	return nil
}

// ImportProducts creates every row it can. Rows that fail are reported
// together as apperrors.ErrPartial alongside the number created.
func (s *productService) ImportProducts(ctx context.Context, inputs []ProductInput) (int, error) {
	return importEach(ctx, s.CreateProduct, inputs)
}

func importEach(ctx context.Context, create func(context.Context, ProductInput) (*SaveResult, error), inputs []ProductInput) (int, error) {
	created := 0
	var failures []error
	for i, input := range inputs {
		if _, err := create(ctx, input); err != nil {
			logger.Warn("Skipping import row", map[string]interface{}{
				"row":   i + 1,
				"error": err.Error(),
			})
			failures = append(failures, fmt.Errorf("row %d: %w", i+1, err))
			continue
		}
		created++
	}

	logger.Info("Products imported", map[string]interface{}{
		"created": created,
		"failed":  len(failures),
	})
	return created, apperrors.Partial("import products", failures)
}

func validateProductInput(input ProductInput) (ProductInput, error) {
	fields := map[string]string{}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		fields["name"] = "is required"
	}
	if input.Quantity < 0 {
		fields["quantity"] = "must not be negative"
	}
	if input.Price < 0 || math.IsNaN(input.Price) || math.IsInf(input.Price, 0) {
		fields["price"] = "must be a non-negative number"
	}
	if input.Photo != nil {
		if !storage.AllowedExtension(input.Photo.Filename) {
			fields["photo"] = "must be a png, jpg, jpeg or gif file"
		} else if len(input.Photo.Data) == 0 {
			fields["photo"] = "is empty"
		}
	}

	tags := make([]string, 0, len(input.Tags))
	for _, t := range input.Tags {
		t = strings.TrimSpace(t)
		if len(t) > maxTagLength {
			fields["tags"] = "each tag must be at most 100 characters"
		}
		tags = append(tags, t)
	}

	if len(fields) > 0 {
		return input, apperrors.NewValidationError(fields)
	}
	input.Tags = model.NormalizeTags(tags)
	return input, nil
}

func (s *productService) processPhoto(photo *Upload) ([]byte, error) {
	if photo == nil {
		return nil, nil
	}
	data, err := s.processor.Process(photo.Data)
	if err != nil {
		logger.Warn("Rejected product photo", map[string]interface{}{
			"filename": photo.Filename,
			"error":    err.Error(),
		})
		return nil, err
	}
	return data, nil
}

// storePhoto saves a processed photo. A failure is logged and returned so
// the caller can keep the product and flag the image as missing.
func (s *productService) storePhoto(ctx context.Context, id int, key string, data []byte) (string, error) {
	ref, err := s.images.Save(ctx, key, data)
	if err != nil {
		logger.Error("Failed to store product image", err, map[string]interface{}{
			"product_id": id,
		})
		return "", apperrors.Storage("save image", err)
	}
	return ref, nil
}

func (s *productService) discardImage(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if err := s.images.Delete(ctx, ref); err != nil {
		logger.Error("Failed to delete orphaned image", err, map[string]interface{}{
			"image": ref,
		})
	}
}

// registerTags adds any tag the product references that the tag store
// does not know yet and returns the ones it added, even on error.
func (s *productService) registerTags(ctx context.Context, tags []string) ([]string, error) {
	var registered []string
	for _, name := range tags {
		added, err := s.tagRepo.Add(ctx, name)
		if err != nil {
			return registered, err
		}
		if added {
			registered = append(registered, name)
			logger.Debug("Registered tag from product", map[string]interface{}{
				"tag": name,
			})
		}
	}
	return registered, nil
}

// unregisterTags rolls back registerTags after the product write failed.
func (s *productService) unregisterTags(ctx context.Context, tags []string) {
	for _, name := range tags {
		if _, err := s.tagRepo.Remove(ctx, name); err != nil {
			logger.Error("Failed to roll back tag", err, map[string]interface{}{
				"tag": name,
			})
		}
	}
}
