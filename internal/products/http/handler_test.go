package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"slices"
	"strings"
	"testing"

	"sale-products/internal/products"
	"sale-products/internal/products/images"
	"sale-products/internal/users"

	"github.com/gin-gonic/gin"
)

type stubService struct {
	createFn func(ctx context.Context, principal *products.Principal, in products.CreateInput) (products.Product, error)
	getFn    func(ctx context.Context, id int64) (products.Product, error)
	listFn   func(ctx context.Context) ([]products.Product, error)
	updateFn func(ctx context.Context, id int64, in products.UpdateInput) (products.Product, error)
	deleteFn func(ctx context.Context, id int64) (products.Product, error)
}

func (s *stubService) CreateProduct(ctx context.Context, principal *products.Principal, in products.CreateInput) (products.Product, error) {
	return s.createFn(ctx, principal, in)
}
func (s *stubService) GetProduct(ctx context.Context, id int64) (products.Product, error) {
	return s.getFn(ctx, id)
}
func (s *stubService) ListProducts(ctx context.Context) ([]products.Product, error) {
	return s.listFn(ctx)
}
func (s *stubService) UpdateProduct(ctx context.Context, id int64, in products.UpdateInput) (products.Product, error) {
	return s.updateFn(ctx, id, in)
}
func (s *stubService) DeleteProduct(ctx context.Context, id int64) (products.Product, error) {
	return s.deleteFn(ctx, id)
}

type stubImages map[string][]byte

func (s stubImages) Retrieve(name string) ([]byte, error) {
	if _, err := images.CleanName(name); err != nil {
		return nil, err
	}
	data, ok := s[name]
	if !ok {
		return nil, images.ErrNotFound
	}
	return data, nil
}

func withPrincipal(p *products.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p != nil {
			c.Set(principalKey, p)
		}
		c.Next()
	}
}

type healthy struct{}

func (healthy) Health() error { return nil }

func setupRouter(svc ProductService, imgs ImageReader, principal *products.Principal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, NewHandler(svc), NewImageHandler(imgs), withPrincipal(principal), healthy{})
	return r
}

type formFile struct {
	field, name string
	data        []byte
}

func multipartBody(t *testing.T, fields url.Values, file *formFile) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for key, values := range fields {
		for _, v := range values {
			if err := mw.WriteField(key, v); err != nil {
				t.Fatalf("write field: %v", err)
			}
		}
	}
	if file != nil {
		fw, err := mw.CreateFormFile(file.field, file.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = fw.Write(file.data)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return body, mw.FormDataContentType()
}

var seller = &products.Principal{UserID: 3, Username: "seller"}

func TestHandler_AddProduct(t *testing.T) {
	tests := []struct {
		name       string
		principal  *products.Principal
		fields     url.Values
		file       *formFile
		svcErr     error
		wantStatus int
		check      func(t *testing.T, in products.CreateInput)
	}{
		{
			name:      "success with image and lists",
			principal: seller,
			fields: url.Values{
				"name":          {"Widget"},
				"price":         {"12500.50"},
				"keyword":       {"a", "b"},
				"detailImage":   {"https://cdn.example.com/1.png"},
				"saleStartDate": {"2026-10-01"},
			},
			file:       &formFile{field: "mainImage", name: "logo.png", data: []byte("png")},
			wantStatus: http.StatusCreated,
			check: func(t *testing.T, in products.CreateInput) {
				if in.Name != "Widget" {
					t.Fatalf("want name Widget, got %q", in.Name)
				}
				if !slices.Equal(in.Keywords, []string{"a", "b"}) {
					t.Fatalf("want keywords [a b], got %v", in.Keywords)
				}
				if in.MainImage == nil || in.MainImage.Filename != "logo.png" || string(in.MainImage.Data) != "png" {
					t.Fatalf("unexpected main image: %+v", in.MainImage)
				}
				if !in.Price.Valid || in.Price.Decimal.String() != "12500.5" {
					t.Fatalf("unexpected price: %v", in.Price)
				}
				if in.SaleStartDate == nil || in.SaleStartDate.Format(products.DateLayout) != "2026-10-01" {
					t.Fatalf("unexpected sale start: %v", in.SaleStartDate)
				}
				if in.SubTitle != nil || in.SaleEndDate != nil {
					t.Fatal("absent fields must stay nil")
				}
			},
		},
		{
			name:      "lists converted one to one",
			principal: seller,
			fields: url.Values{
				"name":        {"Widget"},
				"keyword":     {" a ", "", "b"},
				"detailImage": {"", "https://cdn.example.com/1.png"},
			},
			wantStatus: http.StatusCreated,
			check: func(t *testing.T, in products.CreateInput) {
				if !slices.Equal(in.Keywords, []string{" a ", "", "b"}) {
					t.Fatalf("want keywords as sent, got %q", in.Keywords)
				}
				if !slices.Equal(in.DetailImages, []string{"", "https://cdn.example.com/1.png"}) {
					t.Fatalf("want detail images as sent, got %q", in.DetailImages)
				}
			},
		},
		{
			name:       "absent lists stay nil",
			principal:  seller,
			fields:     url.Values{"name": {"Widget"}},
			wantStatus: http.StatusCreated,
			check: func(t *testing.T, in products.CreateInput) {
				if in.Keywords != nil || in.DetailImages != nil {
					t.Fatalf("want nil lists, got %q and %q", in.Keywords, in.DetailImages)
				}
			},
		},
		{
			name:       "no session",
			fields:     url.Values{"name": {"Widget"}},
			svcErr:     products.ErrUnauthenticated,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "duplicate name",
			principal:  seller,
			fields:     url.Values{"name": {"Widget"}},
			svcErr:     products.ErrConflict,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing name",
			principal:  seller,
			fields:     url.Values{"category": {"kitchen"}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad date",
			principal:  seller,
			fields:     url.Values{"name": {"Widget"}, "saleEndDate": {"10/01/2026"}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad price",
			principal:  seller,
			fields:     url.Values{"name": {"Widget"}, "price": {"cheap"}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "price beyond two decimals",
			principal:  seller,
			fields:     url.Values{"name": {"Widget"}, "price": {"1.005"}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "price too large for column",
			principal:  seller,
			fields:     url.Values{"name": {"Widget"}, "price": {"10000000000"}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "internal error",
			principal:  seller,
			fields:     url.Values{"name": {"Widget"}},
			svcErr:     errors.New("db down"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPrincipal *products.Principal
			svc := &stubService{
				createFn: func(_ context.Context, principal *products.Principal, in products.CreateInput) (products.Product, error) {
					gotPrincipal = principal
					if tt.check != nil {
						tt.check(t, in)
					}
					if tt.svcErr != nil {
						return products.Product{}, tt.svcErr
					}
					return products.Product{ID: 1, Name: in.Name, SellerID: principal.UserID}, nil
				},
			}

			body, contentType := multipartBody(t, tt.fields, tt.file)
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/sale_product/add", body)
			req.Header.Set("Content-Type", contentType)
			setupRouter(svc, stubImages{}, tt.principal).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("want status %d, got %d, body: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus == http.StatusCreated && gotPrincipal != tt.principal {
				t.Fatalf("principal not passed to service")
			}
		})
	}
}

func TestHandler_AddProductBodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &stubService{
		createFn: func(context.Context, *products.Principal, products.CreateInput) (products.Product, error) {
			t.Fatal("service must not be called for an oversized body")
			return products.Product{}, nil
		},
	}
	r := gin.New()
	r.Use(BodyLimitMiddleware(512))
	RegisterRoutes(r, NewHandler(svc), NewImageHandler(stubImages{}), withPrincipal(seller), healthy{})

	body, contentType := multipartBody(t, url.Values{"name": {"Widget"}},
		&formFile{field: "mainImage", name: "big.png", data: bytes.Repeat([]byte("x"), 4096)})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sale_product/add", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("want status 413, got %d, body: %s", w.Code, w.Body.String())
	}
}

func TestHandler_ViewProduct(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		svcErr     error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "found",
			url:        "/api/v1/sale_product/view?id=1",
			wantStatus: http.StatusOK,
		},
		{
			name:       "not found yields null",
			url:        "/api/v1/sale_product/view?id=999",
			svcErr:     products.ErrNotFound,
			wantStatus: http.StatusOK,
			wantBody:   "null",
		},
		{
			name:       "invalid id",
			url:        "/api/v1/sale_product/view?id=abc",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{
				getFn: func(_ context.Context, id int64) (products.Product, error) {
					if tt.svcErr != nil {
						return products.Product{}, tt.svcErr
					}
					return products.Product{ID: id, Name: "Widget", ViewCount: 1}, nil
				},
			}

			w := httptest.NewRecorder()
			setupRouter(svc, stubImages{}, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("want status %d, got %d, body: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantBody != "" && strings.TrimSpace(w.Body.String()) != tt.wantBody {
				t.Fatalf("want body %q, got %q", tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestHandler_ViewAllProducts(t *testing.T) {
	svc := &stubService{
		listFn: func(_ context.Context) ([]products.Product, error) {
			return []products.Product{
				{ID: 1, Name: "A", Keywords: []string{"a", "b"}},
				{ID: 2, Name: "B"},
			}, nil
		},
	}

	w := httptest.NewRecorder()
	setupRouter(svc, stubImages{}, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sale_product/view_all", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("want status %d, got %d", http.StatusOK, w.Code)
	}
	var items []products.Product
	if err := json.NewDecoder(w.Body).Decode(&items); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(items) != 2 || len(items[0].Keywords) != 2 {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestHandler_UpdateProduct(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		fields     url.Values
		svcErr     error
		wantStatus int
		check      func(t *testing.T, in products.UpdateInput)
	}{
		{
			name:       "only present fields are set",
			url:        "/api/v1/sale_product/update/1",
			fields:     url.Values{"sellerId": {"3"}, "category": {"kitchen"}, "keyword": {"c"}},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, in products.UpdateInput) {
				if !in.Category.Set || in.Category.Value != "kitchen" {
					t.Fatalf("want category set, got %+v", in.Category)
				}
				if !in.Keywords.Set || !slices.Equal(in.Keywords.Value, []string{"c"}) {
					t.Fatalf("want keywords [c], got %+v", in.Keywords)
				}
				if in.Name.Set || in.Price.Set || in.DetailImages.Set || in.SaleStartDate.Set || in.SubTitle.Set {
					t.Fatalf("absent fields must not be set: %+v", in)
				}
			},
		},
		{
			name:       "list values passed through unchanged",
			url:        "/api/v1/sale_product/update/1",
			fields:     url.Values{"keyword": {"", " c "}, "detailImage": {""}},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, in products.UpdateInput) {
				if !in.Keywords.Set || !slices.Equal(in.Keywords.Value, []string{"", " c "}) {
					t.Fatalf("want keywords as sent, got %+v", in.Keywords)
				}
				if !in.DetailImages.Set || !slices.Equal(in.DetailImages.Value, []string{""}) {
					t.Fatalf("want detail images as sent, got %+v", in.DetailImages)
				}
			},
		},
		{
			name:       "price beyond two decimals",
			url:        "/api/v1/sale_product/update/1",
			fields:     url.Values{"price": {"1.005"}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "conflict",
			url:        "/api/v1/sale_product/update/1",
			fields:     url.Values{"name": {"Taken"}},
			svcErr:     products.ErrConflict,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not found",
			url:        "/api/v1/sale_product/update/999",
			fields:     url.Values{"name": {"X"}},
			svcErr:     products.ErrNotFound,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid id",
			url:        "/api/v1/sale_product/update/abc",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{
				updateFn: func(_ context.Context, id int64, in products.UpdateInput) (products.Product, error) {
					if tt.check != nil {
						tt.check(t, in)
					}
					if tt.svcErr != nil {
						return products.Product{}, tt.svcErr
					}
					return products.Product{ID: id, Name: "Widget"}, nil
				},
			}

			body, contentType := multipartBody(t, tt.fields, nil)
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPatch, tt.url, body)
			req.Header.Set("Content-Type", contentType)
			setupRouter(svc, stubImages{}, nil).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("want status %d, got %d, body: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestHandler_DeleteProduct(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		svcErr     error
		wantID     int64
		wantStatus int
	}{
		{
			name:       "query parameter wins over path",
			url:        "/api/v1/sale_product/delete/1?productId=7",
			wantID:     7,
			wantStatus: http.StatusOK,
		},
		{
			name:       "path id",
			url:        "/api/v1/sale_product/delete/5",
			wantID:     5,
			wantStatus: http.StatusOK,
		},
		{
			name:       "not found",
			url:        "/api/v1/sale_product/delete/999",
			wantID:     999,
			svcErr:     products.ErrNotFound,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid id",
			url:        "/api/v1/sale_product/delete/abc",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{
				deleteFn: func(_ context.Context, id int64) (products.Product, error) {
					if id != tt.wantID {
						t.Fatalf("want id %d, got %d", tt.wantID, id)
					}
					if tt.svcErr != nil {
						return products.Product{}, tt.svcErr
					}
					return products.Product{ID: id, Name: "Widget"}, nil
				},
			}

			w := httptest.NewRecorder()
			setupRouter(svc, stubImages{}, nil).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, tt.url, nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("want status %d, got %d, body: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestImageHandler_DownloadImage(t *testing.T) {
	imgs := stubImages{"logo.png": []byte("\x89PNG\r\n\x1a\n rest")}

	tests := []struct {
		name       string
		url        string
		wantStatus int
		wantType   string
	}{
		{name: "found", url: "/api/v1/image/logo.png", wantStatus: http.StatusOK, wantType: "image/png"},
		{name: "missing", url: "/api/v1/image/none.png", wantStatus: http.StatusNotFound},
		{name: "invalid name", url: "/api/v1/image/..", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			setupRouter(&stubService{}, imgs, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("want status %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantType != "" && w.Header().Get("Content-Type") != tt.wantType {
				t.Fatalf("want content type %q, got %q", tt.wantType, w.Header().Get("Content-Type"))
			}
		})
	}
}

type stubResolver struct {
	id  int64
	err error
}

func (s stubResolver) UserID(*http.Request) (int64, error) { return s.id, s.err }

type stubLookup map[int64]users.User

func (s stubLookup) GetUser(_ context.Context, id int64) (users.User, error) {
	u, ok := s[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return u, nil
}

func TestSessionMiddleware(t *testing.T) {
	lookup := stubLookup{3: {ID: 3, Username: "seller"}}

	tests := []struct {
		name     string
		resolver stubResolver
		wantUser int64
	}{
		{name: "valid session", resolver: stubResolver{id: 3}, wantUser: 3},
		{name: "no session", resolver: stubResolver{err: errors.New("no session")}},
		{name: "deleted user", resolver: stubResolver{id: 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			r := gin.New()
			logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

			var got *products.Principal
			r.GET("/", SessionMiddleware(tt.resolver, lookup, logger), func(c *gin.Context) {
				got = PrincipalFrom(c)
				c.Status(http.StatusOK)
			})
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

			if tt.wantUser == 0 {
				if got != nil {
					t.Fatalf("want no principal, got %+v", got)
				}
				return
			}
			if got == nil || got.UserID != tt.wantUser {
				t.Fatalf("want principal %d, got %+v", tt.wantUser, got)
			}
		})
	}
}
