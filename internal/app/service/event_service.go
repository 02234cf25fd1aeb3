package service

import (
	"context"
	"strings"

	"github.com/ikkim/inventory-backend/internal/app/model"
	apperrors "github.com/ikkim/inventory-backend/internal/errors"
	"github.com/ikkim/inventory-backend/internal/websocket"
)

// Publisher receives inventory change events.
type Publisher interface {
	Publish(eventType string, data interface{})
}

// TagRenamed is the payload of a tag rename event.
type TagRenamed struct {
	From            string `json:"from"`
	To              string `json:"to"`
	ProductsUpdated int    `json:"products_updated"`
}

// TagDeleted is the payload of a tag delete event.
type TagDeleted struct {
	Name            string `json:"name"`
	ProductsUpdated int    `json:"products_updated"`
}

type productEvents struct {
	ProductService
	publisher Publisher
}

// NewProductEventService publishes an event after every successful write
// made through inner. Reads pass straight through.
func NewProductEventService(inner ProductService, publisher Publisher) ProductService {
	return &productEvents{ProductService: inner, publisher: publisher}
}

func (s *productEvents) CreateProduct(ctx context.Context, input ProductInput) (*SaveResult, error) {
	result, err := s.ProductService.CreateProduct(ctx, input)
	if err == nil {
		s.publisher.Publish(websocket.EventProductCreated, result.Product)
	}
	return result, err
}

func (s *productEvents) UpdateProduct(ctx context.Context, id int, input ProductInput) (*SaveResult, error) {
	result, err := s.ProductService.UpdateProduct(ctx, id, input)
	if err == nil {
		s.publisher.Publish(websocket.EventProductUpdated, result.Product)
	}
	return result, err
}

func (s *productEvents) DeleteProduct(ctx context.Context, id int) error {
	err := s.ProductService.DeleteProduct(ctx, id)
	if err == nil {
		s.publisher.Publish(websocket.EventProductDeleted, model.Product{ID: id})
	}
	return err
}

// ImportProducts routes every row through the event-publishing create.
func (s *productEvents) ImportProducts(ctx context.Context, inputs []ProductInput) (int, error) {
	return importEach(ctx, s.CreateProduct, inputs)
}

type tagEvents struct {
	TagService
	publisher Publisher
}

// NewTagEventService publishes an event after every tag change made
// through inner, including cascades that only partially completed.
func NewTagEventService(inner TagService, publisher Publisher) TagService {
	return &tagEvents{TagService: inner, publisher: publisher}
}

func (s *tagEvents) AddTag(ctx context.Context, name string) (bool, error) {
	added, err := s.TagService.AddTag(ctx, name)
	if err == nil && added {
		s.publisher.Publish(websocket.EventTagAdded, map[string]string{"name": strings.TrimSpace(name)})
	}
	return added, err
}

func (s *tagEvents) RenameTag(ctx context.Context, from, to string) (int, error) {
	updated, err := s.TagService.RenameTag(ctx, from, to)
	if err == nil || apperrors.Is(err, apperrors.ErrPartial) {
		s.publisher.Publish(websocket.EventTagRenamed, TagRenamed{From: from, To: to, ProductsUpdated: updated})
	}
	return updated, err
}

func (s *tagEvents) DeleteTag(ctx context.Context, name string) (int, error) {
	updated, err := s.TagService.DeleteTag(ctx, name)
	if err == nil || apperrors.Is(err, apperrors.ErrPartial) {
		s.publisher.Publish(websocket.EventTagDeleted, TagDeleted{Name: name, ProductsUpdated: updated})
	}
	return updated, err
}
