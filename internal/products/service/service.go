package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sale-products/internal/products"
	"sale-products/internal/products/images"

	"github.com/prometheus/client_golang/prometheus"
)

type Repository interface {
	Create(ctx context.Context, p products.Product) (products.Product, error)
	IncrementViewCount(ctx context.Context, id int64) (products.Product, error)
	List(ctx context.Context) ([]products.Product, error)
	Update(ctx context.Context, id int64, apply func(*products.Product) error) (products.Product, error)
	Delete(ctx context.Context, id int64) (products.Product, error)
}

type ImageStore interface {
	Stage(name string, data []byte) (*images.Staged, error)
}

type Publisher interface {
	Publish(ctx context.Context, event products.ProductEvent) error
}

type Metrics struct {
	Created prometheus.Counter
	Updated prometheus.Counter
	Deleted prometheus.Counter
	Viewed  prometheus.Counter
}

type Service struct {
	repo      Repository
	images    ImageStore
	publisher Publisher
	logger    *slog.Logger
	metrics   Metrics
}

func New(repo Repository, images ImageStore, publisher Publisher, logger *slog.Logger, metrics Metrics) *Service {
	return &Service{
		repo:      repo,
		images:    images,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// CreateProduct stores a new product owned by principal. When a main image is
// attached it is staged first and only becomes visible once the product row
// is committed.
func (s *Service) CreateProduct(ctx context.Context, principal *products.Principal, in products.CreateInput) (products.Product, error) {
	if principal == nil {
		return products.Product{}, products.ErrUnauthenticated
	}

	if strings.TrimSpace(in.Name) == "" {
		return products.Product{}, products.ErrInvalidName
	}
	if in.Price.Valid {
		if err := products.ValidatePrice(in.Price.Decimal); err != nil {
			return products.Product{}, err
		}
	}
	if err := checkSalePeriod(in.SaleStartDate, in.SaleEndDate); err != nil {
		return products.Product{}, err
	}

	product := products.Product{
		SellerID:       principal.UserID,
		Name:           in.Name,
		SubTitle:       in.SubTitle,
		Price:          in.Price,
		Description:    in.Description,
		SubDescription: in.SubDescription,
		Keywords:       in.Keywords,
		DetailImages:   in.DetailImages,
		SaleStartDate:  in.SaleStartDate,
		SaleEndDate:    in.SaleEndDate,
		Category:       in.Category,
	}

	var staged *images.Staged
	if in.MainImage != nil && len(in.MainImage.Data) > 0 {
		var err error
		staged, err = s.images.Stage(in.MainImage.Filename, in.MainImage.Data)
		if err != nil {
			if errors.Is(err, images.ErrInvalidName) {
				return products.Product{}, products.ErrInvalidImageName
			}
			return products.Product{}, fmt.Errorf("stage main image: %w", err)
		}
		mainImage := staged.Name()
		product.MainImage = &mainImage
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		if staged != nil {
			if discardErr := staged.Discard(); discardErr != nil {
				s.logger.Error("discard staged image failed", "image", staged.Name(), "error", discardErr)
			}
		}
		return products.Product{}, fmt.Errorf("repo create: %w", err)
	}

	if staged != nil {
		if err := staged.Commit(); err != nil {
			s.logger.Error("commit main image failed",
				"product_id", created.ID,
				"image", staged.Name(),
				"error", err,
			)
		}
	}

	s.publish(ctx, products.EventCreated, created.ID, created.Name)
	s.metrics.Created.Inc()
	s.logger.Info("product created", "product_id", created.ID, "seller_id", created.SellerID)
	return created, nil
}

// GetProduct returns the product and counts the read as a view.
func (s *Service) GetProduct(ctx context.Context, id int64) (products.Product, error) {
	product, err := s.repo.IncrementViewCount(ctx, id)
	if err != nil {
		return products.Product{}, fmt.Errorf("repo view: %w", err)
	}

	s.metrics.Viewed.Inc()
	return product, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]products.Product, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("repo list: %w", err)
	}
	return items, nil
}

// UpdateProduct applies the set fields of in. The main image is never
// changed here.
func (s *Service) UpdateProduct(ctx context.Context, id int64, in products.UpdateInput) (products.Product, error) {
	if in.Name.Set && strings.TrimSpace(in.Name.Value) == "" {
		return products.Product{}, products.ErrInvalidName
	}
	if in.Price.Set {
		if err := products.ValidatePrice(in.Price.Value); err != nil {
			return products.Product{}, err
		}
	}

	updated, err := s.repo.Update(ctx, id, func(p *products.Product) error {
		in.Apply(p)
		return checkSalePeriod(p.SaleStartDate, p.SaleEndDate)
	})
	if err != nil {
		return products.Product{}, fmt.Errorf("repo update: %w", err)
	}

	s.publish(ctx, products.EventUpdated, updated.ID, updated.Name)
	s.metrics.Updated.Inc()
	return updated, nil
}

// DeleteProduct removes the product and returns its last state. Any stored
// main image file is kept.
func (s *Service) DeleteProduct(ctx context.Context, id int64) (products.Product, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return products.Product{}, fmt.Errorf("repo delete: %w", err)
	}

	s.publish(ctx, products.EventDeleted, deleted.ID, deleted.Name)
	s.metrics.Deleted.Inc()
	return deleted, nil
}

func (s *Service) publish(ctx context.Context, eventType string, id int64, name string) {
	if err := s.publisher.Publish(ctx, products.ProductEvent{
		EventType: eventType,
		ProductID: id,
		Name:      name,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		s.logger.Error("publish "+eventType+" event failed",
			"product_id", id,
			"error", err,
		)
	}
}

func checkSalePeriod(start, end *time.Time) error {
	if start != nil && end != nil && start.After(*end) {
		return products.ErrInvalidSalePeriod
	}
	return nil
}
