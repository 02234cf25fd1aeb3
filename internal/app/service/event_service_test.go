package service

import (
	"context"
	"sync"
	"testing"

	"github.com/ikkim/inventory-backend/internal/app/model"
	apperrors "github.com/ikkim/inventory-backend/internal/errors"
	"github.com/ikkim/inventory-backend/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedEvent struct {
	eventType string
	data      interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(eventType string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{eventType, data})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.eventType)
	}
	return out
}

func TestProductEventService(t *testing.T) {
	f := setupProductServiceTest(t)
	publisher := &recordingPublisher{}
	products := NewProductEventService(f.products, publisher)
	ctx := context.Background()

	result, err := products.CreateProduct(ctx, ProductInput{Name: "Lamp", Tags: []string{"home"}})
	require.NoError(t, err)

	_, err = products.CreateProduct(ctx, ProductInput{Name: ""})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = products.UpdateProduct(ctx, result.Product.ID, ProductInput{Name: "Desk lamp"})
	require.NoError(t, err)

	_, err = products.ListProducts(ctx, ProductListOptions{})
	require.NoError(t, err)

	require.NoError(t, products.DeleteProduct(ctx, result.Product.ID))
	assert.ErrorIs(t, products.DeleteProduct(ctx, result.Product.ID), apperrors.ErrNotFound)

	assert.Equal(t, []string{
		websocket.EventProductCreated,
		websocket.EventProductUpdated,
		websocket.EventProductDeleted,
	}, publisher.types())

	created := publisher.events[0].data.(*model.Product)
	assert.Equal(t, "Lamp", created.Name)
	assert.Equal(t, model.Product{ID: result.Product.ID}, publisher.events[2].data)
}

func TestProductEventService_ImportPublishesPerRow(t *testing.T) {
	f := setupProductServiceTest(t)
	publisher := &recordingPublisher{}
	products := NewProductEventService(f.products, publisher)

	created, err := products.ImportProducts(context.Background(), []ProductInput{
		{Name: "A"},
		{Name: ""},
		{Name: "B"},
	})
	assert.ErrorIs(t, err, apperrors.ErrPartial)
	assert.Contains(t, err.Error(), "row 2:")
	assert.Equal(t, 2, created)
	assert.Equal(t, []string{websocket.EventProductCreated, websocket.EventProductCreated}, publisher.types())
}

func TestTagEventService(t *testing.T) {
	f := setupProductServiceTest(t)
	publisher := &recordingPublisher{}
	tags := NewTagEventService(f.tags, publisher)
	ctx := context.Background()

	_, err := f.products.CreateProduct(ctx, ProductInput{Name: "Chair", Tags: []string{"red"}})
	require.NoError(t, err)

	added, err := tags.AddTag(ctx, "blue")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = tags.AddTag(ctx, "blue")
	require.NoError(t, err)
	assert.False(t, added)

	_, err = tags.RenameTag(ctx, "red", "crimson")
	require.NoError(t, err)

	_, err = tags.DeleteTag(ctx, "crimson")
	require.NoError(t, err)

	_, err = tags.DeleteTag(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.Equal(t, []string{
		websocket.EventTagAdded,
		websocket.EventTagRenamed,
		websocket.EventTagDeleted,
	}, publisher.types())
	assert.Equal(t, TagRenamed{From: "red", To: "crimson", ProductsUpdated: 1}, publisher.events[1].data)
	assert.Equal(t, TagDeleted{Name: "crimson", ProductsUpdated: 1}, publisher.events[2].data)
}
