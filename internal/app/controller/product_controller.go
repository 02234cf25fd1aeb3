package controller

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/inventory-backend/internal/app/service"
	apperrors "github.com/ikkim/inventory-backend/internal/errors"
	"github.com/ikkim/inventory-backend/internal/middleware"
	"github.com/ikkim/inventory-backend/internal/spreadsheet"
)

// MaxPhotoSize bounds the photo read from a product form.
const MaxPhotoSize = 10 << 20

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ProductController struct {
	productService service.ProductService
}

func NewProductController(productService service.ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

// ListProducts returns products matching the optional filters
// GET /api/v1/products?tag=a&tag=b&search=chair
func (ctrl *ProductController) ListProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	opts := listOptions(c)
	products, err := ctrl.productService.ListProducts(c.Request.Context(), opts)
	if err != nil {
		log.Error("Failed to fetch products", err, nil)
		apperrors.Respond(c, err, "product")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// GetProduct returns a product by ID
// GET /api/v1/products/:id
func (ctrl *ProductController) GetProduct(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	product, err := ctrl.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		apperrors.Respond(c, err, "product")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product": product,
	})
}

// CreateProduct creates a product from a multipart form
// POST /api/v1/products
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	input, err := bindProductForm(c)
	if err != nil {
		log.Warn("Invalid product form", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.Respond(c, err, "product")
		return
	}

	result, err := ctrl.productService.CreateProduct(c.Request.Context(), input)
	if err != nil {
		log.Warn("Failed to create product", map[string]interface{}{
			"name":  input.Name,
			"error": err.Error(),
		})
		apperrors.Respond(c, err, "product")
		return
	}

	c.JSON(http.StatusCreated, saveResponse("Product created successfully", result))
}

// UpdateProduct replaces a product's fields; the photo only when uploaded
// PUT /api/v1/products/:id
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := productID(c)
	if !ok {
		return
	}

	input, err := bindProductForm(c)
	if err != nil {
		log.Warn("Invalid product form", map[string]interface{}{
			"product_id": id,
			"error":      err.Error(),
		})
		apperrors.Respond(c, err, "product")
		return
	}

	result, err := ctrl.productService.UpdateProduct(c.Request.Context(), id, input)
	if err != nil {
		log.Warn("Failed to update product", map[string]interface{}{
			"product_id": id,
			"error":      err.Error(),
		})
		apperrors.Respond(c, err, "product")
		return
	}

	c.JSON(http.StatusOK, saveResponse("Product updated successfully", result))
}

// DeleteProduct deletes a product and its image
// DELETE /api/v1/products/:id
func (ctrl *ProductController) DeleteProduct(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	if err := ctrl.productService.DeleteProduct(c.Request.Context(), id); err != nil {
		middleware.GetLoggerFromContext(c).Warn("Failed to delete product", map[string]interface{}{
			"product_id": id,
			"error":      err.Error(),
		})
		apperrors.Respond(c, err, "product")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product deleted successfully",
	})
}

// ExportProducts streams the (filtered) inventory as an XLSX workbook
// GET /api/v1/products/export
func (ctrl *ProductController) ExportProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	products, err := ctrl.productService.ListProducts(c.Request.Context(), listOptions(c))
	if err != nil {
		apperrors.Respond(c, err, "product")
		return
	}

	var buf bytes.Buffer
	if err := spreadsheet.WriteProducts(&buf, products); err != nil {
		log.Error("Failed to render spreadsheet", err, nil)
		apperrors.InternalError(c, "Failed to export products")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="inventory.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ImportProducts creates products from an uploaded XLSX workbook
// POST /api/v1/products/import
func (ctrl *ProductController) ImportProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		apperrors.RespondWithValidationError(c, map[string]string{"file": "is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		apperrors.BadRequest(c, apperrors.UploadFailed, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	rows, problems, err := spreadsheet.ReadProducts(file)
	if err != nil {
		log.Warn("Unreadable spreadsheet", map[string]interface{}{
			"filename": fileHeader.Filename,
			"error":    err.Error(),
		})
		apperrors.BadRequest(c, apperrors.UploadInvalidFileType, "The file is not a readable XLSX workbook")
		return
	}

	inputs := make([]service.ProductInput, 0, len(rows))
	for _, r := range rows {
		inputs = append(inputs, service.ProductInput{Name: r.Name, Quantity: r.Quantity, Price: r.Price, Tags: r.Tags})
	}

	created, err := ctrl.productService.ImportProducts(c.Request.Context(), inputs)
	messages := make([]string, 0, len(problems))
	for _, p := range problems {
		messages = append(messages, p.Error())
	}
	if err != nil && !apperrors.Is(err, apperrors.ErrPartial) {
		apperrors.Respond(c, err, "product")
		return
	}
	if err != nil {
		messages = append(messages, err.Error())
	}

	c.JSON(http.StatusOK, gin.H{
		"created": created,
		"skipped": len(rows) + len(problems) - created,
		"errors":  messages,
	})
}

func listOptions(c *gin.Context) service.ProductListOptions {
	var tags []string
	for _, v := range c.QueryArray("tag") {
		tags = append(tags, splitList(v)...)
	}
	return service.ProductListOptions{
		Tags:   tags,
		Search: c.Query("search"),
	}
}

func productID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid product ID")
		return 0, false
	}
	return id, true
}

// bindProductForm reads name, quantity, price, tags and an optional photo
// from a multipart or url-encoded form.
func bindProductForm(c *gin.Context) (service.ProductInput, error) {
	fields := map[string]string{}
	input := service.ProductInput{Name: c.PostForm("name")}

	if q := strings.TrimSpace(c.PostForm("quantity")); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			fields["quantity"] = "must be a whole number"
		}
		input.Quantity = n
	} else {
		fields["quantity"] = "is required"
	}
	if p := strings.TrimSpace(c.PostForm("price")); p != "" {
		n, err := strconv.ParseFloat(p, 64)
		if err != nil {
			fields["price"] = "must be a number"
		}
		input.Price = n
	} else {
		fields["price"] = "is required"
	}
	for _, v := range c.PostFormArray("tags") {
		input.Tags = append(input.Tags, splitList(v)...)
	}

	fileHeader, err := c.FormFile("photo")
	switch {
	case err == http.ErrMissingFile || err == http.ErrNotMultipart:
	case err != nil:
		fields["photo"] = "could not be read"
	case fileHeader.Size > MaxPhotoSize:
		fields["photo"] = fmt.Sprintf("must be at most %d MB", MaxPhotoSize>>20)
	default:
		data, err := readFormFile(fileHeader)
		if err != nil {
			fields["photo"] = "could not be read"
		} else {
			input.Photo = &service.Upload{Filename: fileHeader.Filename, Data: data}
		}
	}

	if len(fields) > 0 {
		return input, apperrors.NewValidationError(fields)
	}
	return input, nil
}

func readFormFile(fileHeader *multipart.FileHeader) ([]byte, error) {
	f, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, MaxPhotoSize+1))
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func saveResponse(message string, result *service.SaveResult) gin.H {
	body := gin.H{
		"message": message,
		"product": result.Product,
	}
	if result.ImageErr != nil {
		body["warning"] = "The product was saved but its photo could not be stored"
		body["warning_code"] = apperrors.StorageUnavailable
	}
	return body
}
