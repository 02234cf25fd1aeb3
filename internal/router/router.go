package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/inventory-backend/config"
	"github.com/ikkim/inventory-backend/internal/app/controller"
	"github.com/ikkim/inventory-backend/internal/middleware"
)

// MaxMultipartMemory bounds the part of a multipart form kept in memory.
const MaxMultipartMemory = 16 << 20

type Router struct {
	productController *controller.ProductController
	tagController     *controller.TagController
	eventController   *controller.EventController
	authMiddleware    *middleware.AuthMiddleware
	config            *config.Config
}

func NewRouter(
	productController *controller.ProductController,
	tagController *controller.TagController,
	eventController *controller.EventController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		productController: productController,
		tagController:     tagController,
		eventController:   eventController,
		authMiddleware:    authMiddleware,
		config:            cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()
	router.MaxMultipartMemory = MaxMultipartMemory

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Inventory API is running",
			"store":   r.config.Store.Backend,
			"images":  r.config.Image.Backend,
		})
	})

	// Locally stored photos are served from their public prefix
	if r.config.Image.Backend == config.ImageLocal {
		router.Static(r.config.Image.PublicPrefix, r.config.Image.Dir)
	}

	v1 := router.Group("/api/v1")
	{
		products := v1.Group("/products")
		{
			products.GET("", r.productController.ListProducts)
			products.GET("/export", r.productController.ExportProducts)
			products.GET("/:id", r.productController.GetProduct)

			products.POST("/import",
				r.authMiddleware.Authenticate(),
				r.productController.ImportProducts,
			)
			products.POST("",
				r.authMiddleware.Authenticate(),
				r.productController.CreateProduct,
			)
			products.PUT("/:id",
				r.authMiddleware.Authenticate(),
				r.productController.UpdateProduct,
			)
			products.DELETE("/:id",
				r.authMiddleware.Authenticate(),
				r.productController.DeleteProduct,
			)
		}

		tags := v1.Group("/tags")
		{
			tags.GET("", r.tagController.ListTags)
			tags.POST("", r.authMiddleware.Authenticate(), r.tagController.AddTag)
			tags.PUT("/:name", r.authMiddleware.Authenticate(), r.tagController.RenameTag)
			tags.DELETE("/:name", r.authMiddleware.Authenticate(), r.tagController.DeleteTag)
		}

		v1.GET("/events", r.eventController.Stream)
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
