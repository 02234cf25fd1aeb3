package controller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ikkim/inventory-backend/internal/app/model"
	"github.com/ikkim/inventory-backend/internal/app/repository"
	apperrors "github.com/ikkim/inventory-backend/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagController_AddAndList(t *testing.T) {
	router := setupControllerTest(t)

	w := serve(router, jsonRequest(t, http.MethodPost, "/api/v1/tags", map[string]string{"name": "red"}))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = serve(router, jsonRequest(t, http.MethodPost, "/api/v1/tags", map[string]string{"name": "red"}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["created"])

	w = serve(router, jsonRequest(t, http.MethodPost, "/api/v1/tags", map[string]string{}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/tags", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"red"}, decode(t, w)["tags"])
}

func TestTagController_DeleteCascades(t *testing.T) {
	router := setupControllerTest(t)
	createProduct(t, router, "Chair", "red", "blue")

	w := serve(router, httptest.NewRequest(http.MethodDelete, "/api/v1/tags/red", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(1), decode(t, w)["products_updated"])

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/products/1", nil))
	product := decode(t, w)["product"].(map[string]interface{})
	assert.Equal(t, []interface{}{"blue"}, product["tags"])

	w = serve(router, httptest.NewRequest(http.MethodDelete, "/api/v1/tags/red", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "TAG_NOT_FOUND", decode(t, w)["error"])
}

// stuckProducts refuses to save the products in stuck.
type stuckProducts struct {
	repository.ProductRepository
	stuck map[int]bool
}

func (r *stuckProducts) Upsert(ctx context.Context, p *model.Product) error {
	if r.stuck[p.ID] {
		return apperrors.Storage("save product", errors.New("read-only file"))
	}
	return r.ProductRepository.Upsert(ctx, p)
}

func (r *stuckProducts) ReconcileTagRemoval(ctx context.Context, tag string) (int, error) {
	return repository.RemoveTagFromProducts(ctx, r, tag)
}

func TestTagController_DeleteReportsPartialFailure(t *testing.T) {
	dir := t.TempDir()
	products := &stuckProducts{ProductRepository: repository.NewFileProductRepository(dir), stuck: map[int]bool{}}
	router := newTestRouter(t, dir, products)
	createProduct(t, router, "Chair", "red")
	createProduct(t, router, "Table", "red")
	products.stuck[1] = true

	w := serve(router, httptest.NewRequest(http.MethodDelete, "/api/v1/tags/red", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, float64(1), body["products_updated"])
	assert.Equal(t, "STORAGE_PARTIAL", body["warning_code"])
	assert.NotEmpty(t, body["warning"])

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/tags", nil))
	assert.Empty(t, decode(t, w)["tags"])
}

func TestTagController_Rename(t *testing.T) {
	router := setupControllerTest(t)
	createProduct(t, router, "Chair", "red")

	w := serve(router, jsonRequest(t, http.MethodPut, "/api/v1/tags/red", map[string]string{"name": "crimson"}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(1), decode(t, w)["products_updated"])

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/products?tag=crimson", nil))
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = serve(router, jsonRequest(t, http.MethodPut, "/api/v1/tags/missing", map[string]string{"name": "x"}))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
