package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sale-products/internal/products"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const mainImageField = "mainImage"

type ProductService interface {
	CreateProduct(ctx context.Context, principal *products.Principal, in products.CreateInput) (products.Product, error)
	GetProduct(ctx context.Context, id int64) (products.Product, error)
	ListProducts(ctx context.Context) ([]products.Product, error)
	UpdateProduct(ctx context.Context, id int64, in products.UpdateInput) (products.Product, error)
	DeleteProduct(ctx context.Context, id int64) (products.Product, error)
}

type Handler struct {
	service ProductService
}

func NewHandler(svc ProductService) *Handler {
	return &Handler{service: svc}
}

// productForm carries the form fields shared by add and update. Pointer and
// slice fields stay nil when the field is absent from the request.
type productForm struct {
	Name           *string  `form:"name"`
	SubTitle       *string  `form:"subTitle"`
	Price          *string  `form:"price"`
	Description    *string  `form:"description"`
	SubDescription *string  `form:"subDescription"`
	Keywords       []string `form:"keyword"`
	DetailImages   []string `form:"detailImage"`
	SaleStartDate  *string  `form:"saleStartDate"`
	SaleEndDate    *string  `form:"saleEndDate"`
	Category       *string  `form:"category"`
	SellerID       *int64   `form:"sellerId"`
}

type errorResponse struct {
	Error string `json:"error" example:"product not found"`
}

// AddProduct godoc
// @Summary      Add a sale product
// @Tags         sale_product
// @Accept       mpfd
// @Produce      json
// @Param        name            formData  string  true   "Product name"
// @Param        subTitle        formData  string  false  "Sub title"
// @Param        price           formData  string  false  "Price"
// @Param        description     formData  string  false  "Description"
// @Param        subDescription  formData  string  false  "Sub description"
// @Param        mainImage       formData  file    false  "Main image"
// @Param        keyword         formData  []string  false  "Keywords"  collectionFormat(multi)
// @Param        detailImage     formData  []string  false  "Detail image URLs"  collectionFormat(multi)
// @Param        saleStartDate   formData  string  false  "Sale start (yyyy-MM-dd)"
// @Param        saleEndDate     formData  string  false  "Sale end (yyyy-MM-dd)"
// @Param        category        formData  string  false  "Category"
// @Success      201  {object}  products.Product
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Failure      413  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/v1/sale_product/add [post]
func (h *Handler) AddProduct(c *gin.Context) {
	var form productForm
	if err := c.ShouldBind(&form); err != nil {
		writeBindError(c, err, "invalid request body")
		return
	}
	if form.Name == nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: products.ErrInvalidName.Error()})
		return
	}

	in := products.CreateInput{
		Name:           *form.Name,
		SubTitle:       form.SubTitle,
		Description:    form.Description,
		SubDescription: form.SubDescription,
		Keywords:       form.Keywords,
		DetailImages:   form.DetailImages,
		Category:       form.Category,
	}

	var err error
	if in.Price, err = parsePrice(form.Price); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if in.SaleStartDate, err = parseDate("saleStartDate", form.SaleStartDate); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if in.SaleEndDate, err = parseDate("saleEndDate", form.SaleEndDate); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if in.MainImage, err = readMainImage(c); err != nil {
		writeBindError(c, err, err.Error())
		return
	}

	product, err := h.service.CreateProduct(c.Request.Context(), PrincipalFrom(c), in)
	if err != nil {
		writeError(c, err, "failed to create product")
		return
	}

	c.JSON(http.StatusCreated, product)
}

// ViewProduct godoc
// @Summary      View a sale product
// @Description  Returns the product and increments its view count. Unknown ids yield null.
// @Tags         sale_product
// @Produce      json
// @Param        id   query     int  true  "Product ID"
// @Success      200  {object}  products.Product
// @Failure      400  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/v1/sale_product/view [get]
func (h *Handler) ViewProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Query("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid product id"})
		return
	}

	product, err := h.service.GetProduct(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, products.ErrNotFound) {
			c.JSON(http.StatusOK, nil)
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to get product"})
		return
	}

	c.JSON(http.StatusOK, product)
}

// ViewAllProducts godoc
// @Summary      List all sale products
// @Tags         sale_product
// @Produce      json
// @Success      200  {array}   products.Product
// @Failure      500  {object}  errorResponse
// @Router       /api/v1/sale_product/view_all [get]
func (h *Handler) ViewAllProducts(c *gin.Context) {
	items, err := h.service.ListProducts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to get products"})
		return
	}

	c.JSON(http.StatusOK, items)
}

// UpdateProduct godoc
// @Summary      Partially update a sale product
// @Description  Only fields present in the form are changed. keyword and detailImage replace the whole list.
// @Tags         sale_product
// @Accept       mpfd
// @Produce      json
// @Param        id              path      int     true   "Product ID"
// @Param        sellerId        formData  int     false  "Seller ID (unused)"
// @Param        name            formData  string  false  "Product name"
// @Param        subTitle        formData  string  false  "Sub title"
// @Param        price           formData  string  false  "Price"
// @Param        description     formData  string  false  "Description"
// @Param        subDescription  formData  string  false  "Sub description"
// @Param        keyword         formData  []string  false  "Keywords"  collectionFormat(multi)
// @Param        detailImage     formData  []string  false  "Detail image URLs"  collectionFormat(multi)
// @Param        saleStartDate   formData  string  false  "Sale start (yyyy-MM-dd)"
// @Param        saleEndDate     formData  string  false  "Sale end (yyyy-MM-dd)"
// @Param        category        formData  string  false  "Category"
// @Success      200  {object}  products.Product
// @Failure      400  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/v1/sale_product/update/{id} [patch]
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid product id"})
		return
	}

	var form productForm
	if err := c.ShouldBind(&form); err != nil {
		writeBindError(c, err, "invalid request body")
		return
	}

	in, err := form.updateInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	product, err := h.service.UpdateProduct(c.Request.Context(), id, in)
	if err != nil {
		writeError(c, err, "failed to update product")
		return
	}

	c.JSON(http.StatusOK, product)
}

// DeleteProduct godoc
// @Summary      Delete a sale product
// @Description  The productId query parameter takes precedence over the path id.
// @Tags         sale_product
// @Produce      json
// @Param        id         path      int  true   "Product ID"
// @Param        productId  query     int  false  "Product ID"
// @Success      200  {object}  products.Product
// @Failure      400  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/v1/sale_product/delete/{id} [delete]
func (h *Handler) DeleteProduct(c *gin.Context) {
	raw := c.Query("productId")
	if raw == "" {
		raw = c.Param("id")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid product id"})
		return
	}

	product, err := h.service.DeleteProduct(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "failed to delete product")
		return
	}

	c.JSON(http.StatusOK, product)
}

func (f productForm) updateInput() (products.UpdateInput, error) {
	var in products.UpdateInput

	if f.Name != nil {
		in.Name = products.Set(*f.Name)
	}
	if f.SubTitle != nil {
		in.SubTitle = products.Set(*f.SubTitle)
	}
	if f.Description != nil {
		in.Description = products.Set(*f.Description)
	}
	if f.SubDescription != nil {
		in.SubDescription = products.Set(*f.SubDescription)
	}
	if f.Category != nil {
		in.Category = products.Set(*f.Category)
	}
	if f.Keywords != nil {
		in.Keywords = products.Set(f.Keywords)
	}
	if f.DetailImages != nil {
		in.DetailImages = products.Set(f.DetailImages)
	}

	price, err := parsePrice(f.Price)
	if err != nil {
		return products.UpdateInput{}, err
	}
	if price.Valid {
		in.Price = products.Set(price.Decimal)
	}

	start, err := parseDate("saleStartDate", f.SaleStartDate)
	if err != nil {
		return products.UpdateInput{}, err
	}
	if start != nil {
		in.SaleStartDate = products.Set(*start)
	}

	end, err := parseDate("saleEndDate", f.SaleEndDate)
	if err != nil {
		return products.UpdateInput{}, err
	}
	if end != nil {
		in.SaleEndDate = products.Set(*end)
	}

	return in, nil
}

// writeBindError answers 413 when the body limit was hit and 400 with msg
// otherwise.
func writeBindError(c *gin.Context, err error, msg string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, errorResponse{
			Error: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
		})
		return
	}
	c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, products.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.Is(err, products.ErrNotFound),
		errors.Is(err, products.ErrConflict),
		errors.Is(err, products.ErrInvalidName),
		errors.Is(err, products.ErrInvalidSalePeriod),
		errors.Is(err, products.ErrInvalidImageName),
		errors.Is(err, products.ErrInvalidPrice):
		c.JSON(http.StatusBadRequest, errorResponse{Error: unwrapSentinel(err).Error()})
	default:
		c.JSON(http.StatusInternalServerError, errorResponse{Error: fallback})
	}
}

func unwrapSentinel(err error) error {
	for _, sentinel := range []error{
		products.ErrNotFound,
		products.ErrConflict,
		products.ErrInvalidName,
		products.ErrInvalidSalePeriod,
		products.ErrInvalidImageName,
		products.ErrInvalidPrice,
	} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return err
}

func parsePrice(raw *string) (decimal.NullDecimal, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*raw))
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid price %q", *raw)
	}
	if err := products.ValidatePrice(d); err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func parseDate(field string, raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := time.Parse(products.DateLayout, strings.TrimSpace(*raw))
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q, want yyyy-MM-dd", field, *raw)
	}
	return &t, nil
}

func readMainImage(c *gin.Context) (*products.Image, error) {
	header, err := c.FormFile(mainImageField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, fmt.Errorf("invalid main image: %w", err)
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open main image: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read main image: %w", err)
	}
	return &products.Image{Filename: header.Filename, Data: data}, nil
}
