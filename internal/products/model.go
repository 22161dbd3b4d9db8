package products

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("product not found")
	ErrConflict          = errors.New("product with the same name already exists")
	ErrUnauthenticated   = errors.New("not logged in")
	ErrInvalidName       = errors.New("product name is required")
	ErrInvalidSalePeriod = errors.New("sale start date is after sale end date")
	ErrInvalidImageName  = errors.New("invalid image file name")
	ErrInvalidPrice      = errors.New("price must be non-negative, below 10000000000 and have at most 2 decimal places")
)

const (
	EventCreated = "product_created"
	EventUpdated = "product_updated"
	EventDeleted = "product_deleted"
)

// DateLayout is the wire format of sale dates.
const DateLayout = "2006-01-02"

// priceScale and maxPrice mirror the NUMERIC(12, 2) price column.
const priceScale = 2

var maxPrice = decimal.New(1, 10)

// ValidatePrice reports ErrInvalidPrice for values the price column cannot
// hold exactly.
func ValidatePrice(d decimal.Decimal) error {
	if d.IsNegative() || d.GreaterThanOrEqual(maxPrice) || !d.Equal(d.Truncate(priceScale)) {
		return ErrInvalidPrice
	}
	return nil
}

type Product struct {
	ID             int64               `json:"id" example:"1"`
	SellerID       int64               `json:"seller_id" example:"3"`
	Name           string              `json:"name" example:"Handmade mug"`
	SubTitle       *string             `json:"sub_title" example:"Stoneware, 350ml"`
	Price          decimal.NullDecimal `json:"price" swaggertype:"string" example:"12500.00"`
	Description    *string             `json:"description"`
	SubDescription *string             `json:"sub_description"`
	MainImage      *string             `json:"main_image" example:"mug.png"`
	Keywords       []string            `json:"keywords"`
	DetailImages   []string            `json:"detail_images"`
	SaleStartDate  *time.Time          `json:"sale_start_date" example:"2026-10-01T00:00:00Z"`
	SaleEndDate    *time.Time          `json:"sale_end_date" example:"2026-10-31T00:00:00Z"`
	Category       *string             `json:"category" example:"kitchen"`
	ViewCount      int64               `json:"view_count" example:"0"`
	CreatedAt      time.Time           `json:"created_at" example:"2026-02-24T12:00:00Z"`
}

// Principal is the authenticated caller on whose behalf a product is created.
type Principal struct {
	UserID   int64
	Username string
}

// Image is an uploaded file payload.
type Image struct {
	Filename string
	Data     []byte
}

type CreateInput struct {
	Name           string
	SubTitle       *string
	Price          decimal.NullDecimal
	Description    *string
	SubDescription *string
	MainImage      *Image
	Keywords       []string
	DetailImages   []string
	SaleStartDate  *time.Time
	SaleEndDate    *time.Time
	Category       *string
}

// Field is an optional update value. A zero Field leaves the target untouched.
type Field[T any] struct {
	Value T
	Set   bool
}

func Set[T any](v T) Field[T] {
	return Field[T]{Value: v, Set: true}
}

type UpdateInput struct {
	Name           Field[string]
	SubTitle       Field[string]
	Price          Field[decimal.Decimal]
	Description    Field[string]
	SubDescription Field[string]
	Keywords       Field[[]string]
	DetailImages   Field[[]string]
	SaleStartDate  Field[time.Time]
	SaleEndDate    Field[time.Time]
	Category       Field[string]
}

// Apply copies every set field onto p. Keyword and detail image lists are
// replaced wholesale.
func (in UpdateInput) Apply(p *Product) {
	if in.Name.Set {
		p.Name = in.Name.Value
	}
	if in.SubTitle.Set {
		p.SubTitle = ptr(in.SubTitle.Value)
	}
	if in.Price.Set {
		p.Price = decimal.NewNullDecimal(in.Price.Value)
	}
	if in.Description.Set {
		p.Description = ptr(in.Description.Value)
	}
	if in.SubDescription.Set {
		p.SubDescription = ptr(in.SubDescription.Value)
	}
	if in.Keywords.Set {
		p.Keywords = append([]string{}, in.Keywords.Value...)
	}
	if in.DetailImages.Set {
		p.DetailImages = append([]string{}, in.DetailImages.Value...)
	}
	if in.SaleStartDate.Set {
		p.SaleStartDate = ptr(in.SaleStartDate.Value)
	}
	if in.SaleEndDate.Set {
		p.SaleEndDate = ptr(in.SaleEndDate.Value)
	}
	if in.Category.Set {
		p.Category = ptr(in.Category.Value)
	}
}

func ptr[T any](v T) *T {
	return &v
}

type ProductEvent struct {
	EventType string    `json:"event_type"`
	ProductID int64     `json:"product_id"`
	Name      string    `json:"name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
