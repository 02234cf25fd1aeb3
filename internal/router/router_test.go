package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/ikkim/inventory-backend/config"
	"github.com/ikkim/inventory-backend/internal/app/controller"
	"github.com/ikkim/inventory-backend/internal/app/repository"
	"github.com/ikkim/inventory-backend/internal/app/service"
	"github.com/ikkim/inventory-backend/internal/imaging"
	"github.com/ikkim/inventory-backend/internal/middleware"
	"github.com/ikkim/inventory-backend/internal/storage"
	ws "github.com/ikkim/inventory-backend/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouterTest(t *testing.T, secret string) (*gin.Engine, *config.Config, *ws.Hub) {
	dir := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{GinMode: gin.TestMode},
		Store:  config.StoreConfig{Backend: config.StoreFile, DataDir: dir},
		Image: config.ImageConfig{
			Backend:      config.ImageLocal,
			Dir:          filepath.Join(dir, "uploads"),
			PublicPrefix: "/uploads",
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://app.test"}},
	}

	productRepo := repository.NewFileProductRepository(dir)
	tagRepo := repository.NewFileTagRepository(dir)
	images, err := storage.NewLocalStorage(cfg.Image.Dir, cfg.Image.PublicPrefix)
	require.NoError(t, err)

	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	writes := &sync.Mutex{}
	productService := service.NewProductService(
		productRepo, tagRepo, images, imaging.NewProcessor(imaging.DefaultQuality, 0), writes,
	)
	tagService := service.NewTagService(productRepo, tagRepo, writes)

	r := NewRouter(
		controller.NewProductController(service.NewProductEventService(productService, hub)),
		controller.NewTagController(service.NewTagEventService(tagService, hub)),
		controller.NewEventController(hub, cfg.CORS.AllowedOrigins),
		middleware.NewAuthMiddleware(secret),
		cfg,
	)
	return r.Setup(), cfg, hub
}

func TestRouter_Health(t *testing.T) {
	engine, _, _ := setupRouterTest(t, "")

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"store":"file"`)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestRouter_CORS(t *testing.T) {
	engine, _, _ := setupRouterTest(t, "")

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/products", nil)
	req.Header.Set("Origin", "http://app.test")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://app.test", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/tags", nil)
	req.Header.Set("Origin", "http://evil.test")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_MutationsRequireTokenWhenEnabled(t *testing.T) {
	engine, _, _ := setupRouterTest(t, "secret")

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/v1/products", http.StatusOK},
		{http.MethodGet, "/api/v1/tags", http.StatusOK},
		{http.MethodPost, "/api/v1/products", http.StatusUnauthorized},
		{http.MethodPut, "/api/v1/products/1", http.StatusUnauthorized},
		{http.MethodDelete, "/api/v1/products/1", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/products/import", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/tags", http.StatusUnauthorized},
		{http.MethodPut, "/api/v1/tags/tools", http.StatusUnauthorized},
		{http.MethodDelete, "/api/v1/tags/tools", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRouter_ServesLocalImages(t *testing.T) {
	engine, cfg, _ := setupRouterTest(t, "")
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Image.Dir, "7.jpg"), []byte("jpeg"), 0o644))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/7.jpg", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jpeg", w.Body.String())
}

func TestRouter_EventsStreamTagChanges(t *testing.T) {
	engine, _, hub := setupRouterTest(t, "")
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)

	conn, _, err := gorillaws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/events", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	body, err := json.Marshal(map[string]string{"name": "tools"})
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/api/v1/tags", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event ws.Event
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, ws.EventTagAdded, event.Type)
	assert.Equal(t, map[string]interface{}{"name": "tools"}, event.Data)
}
