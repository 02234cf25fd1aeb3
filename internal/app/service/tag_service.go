package service

import (
	"context"
	"strings"
	"sync"

	"github.com/ikkim/inventory-backend/internal/app/repository"
	apperrors "github.com/ikkim/inventory-backend/internal/errors"
	"github.com/ikkim/inventory-backend/pkg/logger"
)

type TagService interface {
	ListTags(ctx context.Context) ([]string, error)
	AddTag(ctx context.Context, name string) (bool, error)
	RenameTag(ctx context.Context, from, to string) (int, error)
	DeleteTag(ctx context.Context, name string) (int, error)
}

type tagService struct {
	productRepo repository.ProductRepository
	tagRepo     repository.TagRepository
	writes      *sync.Mutex
}

func NewTagService(productRepo repository.ProductRepository, tagRepo repository.TagRepository, writes *sync.Mutex) TagService {
	if writes == nil {
		writes = &sync.Mutex{}
	}
	return &tagService{
		productRepo: productRepo,
		tagRepo:     tagRepo,
		writes:      writes,
	}
}

// ListTags returns tag names in insertion order.
func (s *tagService) ListTags(ctx context.Context) ([]string, error) {
	return s.tagRepo.FindAll(ctx)
}

// AddTag reports false when the tag already existed.
func (s *tagService) AddTag(ctx context.Context, name string) (bool, error) {
	name, err := validateTagName("name", name)
	if err != nil {
		return false, err
	}

	added, err := s.tagRepo.Add(ctx, name)
	if err != nil {
		logger.Error("Failed to add tag", err, map[string]interface{}{
			"tag": name,
		})
		return false, err
	}

	logger.Info("Tag added", map[string]interface{}{
		"tag":   name,
		"added": added,
	})
	return added, nil
}

// RenameTag moves every product from one tag to another and returns how
// many products changed. Product updates are best-effort.
func (s *tagService) RenameTag(ctx context.Context, from, to string) (int, error) {
	to, err := validateTagName("new_name", to)
	if err != nil {
		return 0, err
	}
	if from == to {
		return 0, apperrors.NewValidationError(map[string]string{"new_name": "must differ from the current name"})
	}

	s.writes.Lock()
	defer s.writes.Unlock()

	names, err := s.tagRepo.FindAll(ctx)
	if err != nil {
		return 0, err
	}
	if !contains(names, from) {
		return 0, apperrors.NotFound("tag")
	}

	if _, err := s.tagRepo.Add(ctx, to); err != nil {
		return 0, err
	}
	updated, reconcileErr := s.productRepo.ReconcileTagRename(ctx, from, to)
	if reconcileErr != nil && !apperrors.Is(reconcileErr, apperrors.ErrPartial) {
		return updated, reconcileErr
	}
	if _, err := s.tagRepo.Remove(ctx, from); err != nil {
		return updated, err
	}

	logger.Info("Tag renamed", map[string]interface{}{
		"from":             from,
		"to":               to,
		"products_updated": updated,
	})
	return updated, reconcileErr
}

// DeleteTag removes the tag from every product, then from the tag store.
// A failure on one product does not stop the others; the tag is removed
// regardless and the failures come back as apperrors.ErrPartial.
func (s *tagService) DeleteTag(ctx context.Context, name string) (int, error) {
	s.writes.Lock()
	defer s.writes.Unlock()

	updated, reconcileErr := s.productRepo.ReconcileTagRemoval(ctx, name)
	if reconcileErr != nil && !apperrors.Is(reconcileErr, apperrors.ErrPartial) {
		return updated, reconcileErr
	}

	removed, err := s.tagRepo.Remove(ctx, name)
	if err != nil {
		return updated, err
	}
	if !removed && updated == 0 && reconcileErr == nil {
		return 0, apperrors.NotFound("tag")
	}

	if reconcileErr != nil {
		logger.Warn("Tag deleted with failures", map[string]interface{}{
			"tag":              name,
			"products_updated": updated,
			"error":            reconcileErr.Error(),
		})
	} else {
		logger.Info("Tag deleted", map[string]interface{}{
			"tag":              name,
			"products_updated": updated,
		})
	}
	return updated, reconcileErr
}

const maxTagLength = 100

func validateTagName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.NewValidationError(map[string]string{field: "is required"})
	}
	if len(name) > maxTagLength {
		return "", apperrors.NewValidationError(map[string]string{field: "must be at most 100 characters"})
	}
	return name, nil
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
