package controller

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/inventory-backend/internal/app/repository"
	"github.com/ikkim/inventory-backend/internal/app/service"
	"github.com/ikkim/inventory-backend/internal/imaging"
	"github.com/ikkim/inventory-backend/internal/storage"
	"github.com/stretchr/testify/require"
)

func setupControllerTest(t *testing.T) *gin.Engine {
	dir := t.TempDir()
	return newTestRouter(t, dir, repository.NewFileProductRepository(dir))
}

func newTestRouter(t *testing.T, dir string, productRepo repository.ProductRepository) *gin.Engine {
	tagRepo := repository.NewFileTagRepository(dir)
	images, err := storage.NewLocalStorage(filepath.Join(dir, "uploads"), "/uploads")
	require.NoError(t, err)

	writes := &sync.Mutex{}
	productController := NewProductController(service.NewProductService(
		productRepo, tagRepo, images, imaging.NewProcessor(imaging.DefaultQuality, 0), writes,
	))
	tagController := NewTagController(service.NewTagService(productRepo, tagRepo, writes))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	products := router.Group("/api/v1/products")
	{
		products.GET("", productController.ListProducts)
		products.GET("/export", productController.ExportProducts)
		products.POST("/import", productController.ImportProducts)
		products.GET("/:id", productController.GetProduct)
		products.POST("", productController.CreateProduct)
		products.PUT("/:id", productController.UpdateProduct)
		products.DELETE("/:id", productController.DeleteProduct)
	}
	tags := router.Group("/api/v1/tags")
	{
		tags.GET("", tagController.ListTags)
		tags.POST("", tagController.AddTag)
		tags.PUT("/:name", tagController.RenameTag)
		tags.DELETE("/:name", tagController.DeleteTag)
	}
	return router
}

type formFile struct {
	field    string
	filename string
	data     []byte
}

func multipartRequest(t *testing.T, method, url string, fields map[string][]string, file *formFile) *http.Request {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, values := range fields {
		for _, v := range values {
			require.NoError(t, writer.WriteField(k, v))
		}
	}
	if file != nil {
		part, err := writer.CreateFormFile(file.field, file.filename)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, url, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, url, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func pngBytes(t *testing.T, w, h int) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}
