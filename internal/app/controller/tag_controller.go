package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/inventory-backend/internal/app/service"
	apperrors "github.com/ikkim/inventory-backend/internal/errors"
	"github.com/ikkim/inventory-backend/internal/middleware"
)

type TagController struct {
	tagService service.TagService
}

func NewTagController(tagService service.TagService) *TagController {
	return &TagController{
		tagService: tagService,
	}
}

type TagRequest struct {
	Name string `json:"name" form:"name" binding:"required"`
}

// ListTags returns all tags in insertion order
// GET /api/v1/tags
func (ctrl *TagController) ListTags(c *gin.Context) {
	tags, err := ctrl.tagService.ListTags(c.Request.Context())
	if err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to fetch tags", err, nil)
		apperrors.Respond(c, err, "tag")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tags":  tags,
		"count": len(tags),
	})
}

// AddTag registers a tag; adding an existing name is a no-op
// POST /api/v1/tags
func (ctrl *TagController) AddTag(c *gin.Context) {
	var req TagRequest
	if err := c.ShouldBind(&req); err != nil {
		apperrors.RespondWithValidationError(c, map[string]string{"name": "is required"})
		return
	}

	added, err := ctrl.tagService.AddTag(c.Request.Context(), req.Name)
	if err != nil {
		apperrors.Respond(c, err, "tag")
		return
	}

	if !added {
		c.JSON(http.StatusOK, gin.H{
			"message": "Tag already exists",
			"created": false,
		})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Tag created successfully",
		"created": true,
	})
}

// RenameTag renames a tag on every product that carries it
// PUT /api/v1/tags/:name
func (ctrl *TagController) RenameTag(c *gin.Context) {
	var req TagRequest
	if err := c.ShouldBind(&req); err != nil {
		apperrors.RespondWithValidationError(c, map[string]string{"name": "is required"})
		return
	}

	updated, err := ctrl.tagService.RenameTag(c.Request.Context(), c.Param("name"), req.Name)
	respondCascade(c, "Tag renamed successfully", updated, err)
}

// DeleteTag removes a tag from the tag list and from every product
// DELETE /api/v1/tags/:name
func (ctrl *TagController) DeleteTag(c *gin.Context) {
	updated, err := ctrl.tagService.DeleteTag(c.Request.Context(), c.Param("name"))
	respondCascade(c, "Tag deleted successfully", updated, err)
}

// respondCascade reports a tag cascade. Partial failures still answer 200
// and carry a warning.
func respondCascade(c *gin.Context, message string, updated int, err error) {
	if err != nil && !apperrors.Is(err, apperrors.ErrPartial) {
		middleware.GetLoggerFromContext(c).Warn("Tag operation failed", map[string]interface{}{
			"tag":   c.Param("name"),
			"error": err.Error(),
		})
		apperrors.Respond(c, err, "tag")
		return
	}

	body := gin.H{
		"message":          message,
		"products_updated": updated,
	}
	if err != nil {
		info := apperrors.ParseError(err, "tag")
		body["warning"] = info.Message
		body["warning_code"] = info.Code
	}
	c.JSON(http.StatusOK, body)
}
