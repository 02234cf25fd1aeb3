package controller

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ikkim/inventory-backend/internal/app/model"
	"github.com/ikkim/inventory-backend/internal/spreadsheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createProduct(t *testing.T, router http.Handler, name string, tags ...string) map[string]interface{} {
	req := multipartRequest(t, http.MethodPost, "/api/v1/products", map[string][]string{
		"name":     {name},
		"quantity": {"5"},
		"price":    {"9.99"},
		"tags":     tags,
	}, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["product"].(map[string]interface{})
}

func TestProductController_CreateWithPhoto(t *testing.T) {
	router := setupControllerTest(t)

	req := multipartRequest(t, http.MethodPost, "/api/v1/products", map[string][]string{
		"name":     {"Widget"},
		"quantity": {"5"},
		"price":    {"9.99"},
		"tags":     {"tools, sale"},
	}, &formFile{field: "photo", filename: "widget.PNG", data: pngBytes(t, 80, 60)})

	w := serve(router, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decode(t, w)
	product := body["product"].(map[string]interface{})
	assert.Equal(t, float64(1), product["id"])
	assert.Equal(t, "/uploads/1.jpg", product["image"])
	assert.Equal(t, []interface{}{"sale", "tools"}, product["tags"])
	assert.NotContains(t, body, "warning")
}

func TestProductController_CreateValidation(t *testing.T) {
	router := setupControllerTest(t)

	tests := []struct {
		name   string
		fields map[string][]string
		file   *formFile
		code   int
		field  string
	}{
		{name: "missing name", fields: map[string][]string{"quantity": {"1"}, "price": {"2"}}, code: http.StatusBadRequest, field: "name"},
		{name: "missing quantity", fields: map[string][]string{"name": {"A"}, "price": {"2"}}, code: http.StatusBadRequest, field: "quantity"},
		{name: "blank quantity", fields: map[string][]string{"name": {"A"}, "quantity": {"  "}, "price": {"2"}}, code: http.StatusBadRequest, field: "quantity"},
		{name: "missing price", fields: map[string][]string{"name": {"A"}, "quantity": {"1"}}, code: http.StatusBadRequest, field: "price"},
		{name: "bad quantity", fields: map[string][]string{"name": {"A"}, "quantity": {"lots"}, "price": {"2"}}, code: http.StatusBadRequest, field: "quantity"},
		{name: "negative price", fields: map[string][]string{"name": {"A"}, "quantity": {"1"}, "price": {"-1"}}, code: http.StatusBadRequest, field: "price"},
		{name: "overlong tag", fields: map[string][]string{"name": {"A"}, "quantity": {"1"}, "price": {"2"}, "tags": {strings.Repeat("x", 101)}}, code: http.StatusBadRequest, field: "tags"},
		{name: "pdf photo", fields: map[string][]string{"name": {"A"}, "quantity": {"1"}, "price": {"2"}}, file: &formFile{field: "photo", filename: "a.pdf", data: []byte("%PDF")}, code: http.StatusBadRequest, field: "photo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, multipartRequest(t, http.MethodPost, "/api/v1/products", tt.fields, tt.file))
			assert.Equal(t, tt.code, w.Code)

			body := decode(t, w)
			assert.Equal(t, "VALIDATION_INVALID_INPUT", body["error"])
			assert.Contains(t, body["fields"], tt.field)
		})
	}

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	assert.Equal(t, float64(0), decode(t, w)["count"])
}

func TestProductController_CorruptPhoto(t *testing.T) {
	router := setupControllerTest(t)

	w := serve(router, multipartRequest(t, http.MethodPost, "/api/v1/products",
		map[string][]string{"name": {"Widget"}, "quantity": {"1"}, "price": {"3"}},
		&formFile{field: "photo", filename: "widget.jpg", data: []byte("not an image")}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UPLOAD_DECODE_FAILED", decode(t, w)["error"])

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	assert.Equal(t, float64(0), decode(t, w)["count"])
}

func TestProductController_ListWithFilters(t *testing.T) {
	router := setupControllerTest(t)
	createProduct(t, router, "Red Chair", "a")
	createProduct(t, router, "Desk", "b")
	createProduct(t, router, "Armchair", "a", "b")

	tests := []struct {
		query string
		count int
	}{
		{query: "", count: 3},
		{query: "?tag=a", count: 2},
		{query: "?tag=a&tag=b", count: 3},
		{query: "?tag=a,b", count: 3},
		{query: "?search=CHAIR", count: 2},
		{query: "?tag=b&search=chair", count: 1},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/products"+tt.query, nil))
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, float64(tt.count), decode(t, w)["count"])
		})
	}
}

func TestProductController_GetUpdateDelete(t *testing.T) {
	router := setupControllerTest(t)
	createProduct(t, router, "Chair", "red")

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/products/1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/products/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/products/99", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "PRODUCT_NOT_FOUND", decode(t, w)["error"])

	w = serve(router, multipartRequest(t, http.MethodPut, "/api/v1/products/1", map[string][]string{
		"name":     {"Blue Chair"},
		"quantity": {"0"},
		"price":    {"15"},
		"tags":     {"blue"},
	}, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	product := decode(t, w)["product"].(map[string]interface{})
	assert.Equal(t, "Blue Chair", product["name"])
	assert.Equal(t, []interface{}{"blue"}, product["tags"])

	w = serve(router, httptest.NewRequest(http.MethodDelete, "/api/v1/products/1", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(router, httptest.NewRequest(http.MethodDelete, "/api/v1/products/1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductController_ExportImport(t *testing.T) {
	router := setupControllerTest(t)
	createProduct(t, router, "Hammer", "tools")
	createProduct(t, router, "Lamp", "light")

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/products/export?tag=tools", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "inventory.xlsx")

	rows, problems, err := spreadsheet.ReadProducts(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Empty(t, problems)
	require.Len(t, rows, 1)
	assert.Equal(t, "Hammer", rows[0].Name)

	var workbook bytes.Buffer
	require.NoError(t, spreadsheet.WriteProducts(&workbook, []model.Product{
		{Name: "Saw", Quantity: 2, Price: 20, Tags: []string{"tools"}},
		{Name: "Drill", Quantity: 1, Price: 80},
	}))
	w = serve(router, multipartRequest(t, http.MethodPost, "/api/v1/products/import", nil,
		&formFile{field: "file", filename: "stock.xlsx", data: workbook.Bytes()}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(2), decode(t, w)["created"])

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/products?tag=tools", nil))
	assert.Equal(t, float64(2), decode(t, w)["count"])
}

func TestProductController_ImportRejectsNonWorkbook(t *testing.T) {
	router := setupControllerTest(t)

	w := serve(router, multipartRequest(t, http.MethodPost, "/api/v1/products/import", nil,
		&formFile{field: "file", filename: "stock.csv", data: []byte("a,b,c")}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UPLOAD_INVALID_FILE_TYPE", decode(t, w)["error"])
}
