package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sale-products/internal/products"

	"github.com/lib/pq"
)

const (
	healthCheckTimeout = 2 * time.Second

	uniqueViolation     = "23505"
	numericOverflow     = "22003"
	productNameKey      = "products_name_key"
	productColumns      = `id, seller_id, name, sub_title, price, description, sub_description, main_image, sale_start_date, sale_end_date, category, view_count, created_at`
	selectProductPrefix = `SELECT ` + productColumns + ` FROM products`
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner, p *products.Product) error {
	return row.Scan(
		&p.ID, &p.SellerID, &p.Name, &p.SubTitle, &p.Price, &p.Description, &p.SubDescription,
		&p.MainImage, &p.SaleStartDate, &p.SaleEndDate, &p.Category, &p.ViewCount, &p.CreatedAt,
	)
}

// Create inserts the product together with its keywords and detail images.
// A name already taken by another product yields products.ErrConflict.
func (r *PostgresRepository) Create(ctx context.Context, p products.Product) (products.Product, error) {
	query := `
		INSERT INTO products (seller_id, name, sub_title, price, description, sub_description, main_image, sale_start_date, sale_end_date, category)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + productColumns

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return products.Product{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var created products.Product
	row := tx.QueryRowContext(ctx, query,
		p.SellerID, p.Name, p.SubTitle, p.Price, p.Description, p.SubDescription,
		p.MainImage, p.SaleStartDate, p.SaleEndDate, p.Category,
	)
	if err := scanProduct(row, &created); err != nil {
		if isNameConflict(err) {
			return products.Product{}, products.ErrConflict
		}
		if isNumericOverflow(err) {
			return products.Product{}, products.ErrInvalidPrice
		}
		return products.Product{}, fmt.Errorf("insert product: %w", err)
	}

	if err := replaceChildren(ctx, tx, created.ID, p.Keywords, p.DetailImages); err != nil {
		return products.Product{}, err
	}
	if err := tx.Commit(); err != nil {
		return products.Product{}, fmt.Errorf("commit product: %w", err)
	}

	created.Keywords = nonNil(p.Keywords)
	created.DetailImages = nonNil(p.DetailImages)
	return created, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (products.Product, error) {
	return getProduct(ctx, r.db, id, false)
}

// IncrementViewCount bumps the view counter in a single statement and returns
// the updated product.
func (r *PostgresRepository) IncrementViewCount(ctx context.Context, id int64) (products.Product, error) {
	query := `UPDATE products SET view_count = view_count + 1 WHERE id = $1 RETURNING ` + productColumns

	var p products.Product
	if err := scanProduct(r.db.QueryRowContext(ctx, query, id), &p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return products.Product{}, products.ErrNotFound
		}
		return products.Product{}, fmt.Errorf("increment view count %d: %w", id, err)
	}

	list := []products.Product{p}
	if err := loadChildren(ctx, r.db, list); err != nil {
		return products.Product{}, err
	}
	return list[0], nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]products.Product, error) {
	rows, err := r.db.QueryContext(ctx, selectProductPrefix+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	list := make([]products.Product, 0)
	for rows.Next() {
		var p products.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	if err := loadChildren(ctx, r.db, list); err != nil {
		return nil, err
	}
	return list, nil
}

// Update locks the product row, lets apply mutate it and writes the result
// back, replacing the keyword and detail image rows.
func (r *PostgresRepository) Update(ctx context.Context, id int64, apply func(*products.Product) error) (products.Product, error) {
	query := `
		UPDATE products
		SET name = $2, sub_title = $3, price = $4, description = $5, sub_description = $6,
		    sale_start_date = $7, sale_end_date = $8, category = $9
		WHERE id = $1
		RETURNING ` + productColumns

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return products.Product{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	p, err := getProduct(ctx, tx, id, true)
	if err != nil {
		return products.Product{}, err
	}
	if err := apply(&p); err != nil {
		return products.Product{}, err
	}

	var updated products.Product
	row := tx.QueryRowContext(ctx, query,
		id, p.Name, p.SubTitle, p.Price, p.Description, p.SubDescription,
		p.SaleStartDate, p.SaleEndDate, p.Category,
	)
	if err := scanProduct(row, &updated); err != nil {
		if isNameConflict(err) {
			return products.Product{}, products.ErrConflict
		}
		if isNumericOverflow(err) {
			return products.Product{}, products.ErrInvalidPrice
		}
		return products.Product{}, fmt.Errorf("update product %d: %w", id, err)
	}

	if err := replaceChildren(ctx, tx, id, p.Keywords, p.DetailImages); err != nil {
		return products.Product{}, err
	}
	if err := tx.Commit(); err != nil {
		return products.Product{}, fmt.Errorf("commit product %d: %w", id, err)
	}

	updated.Keywords = nonNil(p.Keywords)
	updated.DetailImages = nonNil(p.DetailImages)
	return updated, nil
}

// Delete removes the product and returns it as it was before removal.
// Child rows go with it through ON DELETE CASCADE.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) (products.Product, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return products.Product{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	p, err := getProduct(ctx, tx, id, true)
	if err != nil {
		return products.Product{}, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
		return products.Product{}, fmt.Errorf("delete product %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return products.Product{}, fmt.Errorf("commit delete %d: %w", id, err)
	}

	return p, nil
}

func (r *PostgresRepository) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()
	return r.db.PingContext(ctx)
}

func getProduct(ctx context.Context, q queryer, id int64, forUpdate bool) (products.Product, error) {
	query := selectProductPrefix + ` WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var p products.Product
	if err := scanProduct(q.QueryRowContext(ctx, query, id), &p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return products.Product{}, products.ErrNotFound
		}
		return products.Product{}, fmt.Errorf("get product %d: %w", id, err)
	}

	list := []products.Product{p}
	if err := loadChildren(ctx, q, list); err != nil {
		return products.Product{}, err
	}
	return list[0], nil
}

func loadChildren(ctx context.Context, q queryer, list []products.Product) error {
	if len(list) == 0 {
		return nil
	}

	ids := make([]int64, len(list))
	index := make(map[int64]int, len(list))
	for i := range list {
		ids[i] = list[i].ID
		index[list[i].ID] = i
		list[i].Keywords = []string{}
		list[i].DetailImages = []string{}
	}

	keywords, err := queryChildren(ctx, q,
		`SELECT product_id, keyword FROM product_keywords WHERE product_id = ANY($1) ORDER BY product_id, position`, ids)
	if err != nil {
		return fmt.Errorf("load keywords: %w", err)
	}
	for id, values := range keywords {
		list[index[id]].Keywords = values
	}

	detailImages, err := queryChildren(ctx, q,
		`SELECT product_id, image_url FROM product_detail_images WHERE product_id = ANY($1) ORDER BY product_id, position`, ids)
	if err != nil {
		return fmt.Errorf("load detail images: %w", err)
	}
	for id, values := range detailImages {
		list[index[id]].DetailImages = values
	}

	return nil
}

func queryChildren(ctx context.Context, q queryer, query string, ids []int64) (map[int64][]string, error) {
	rows, err := q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]string)
	for rows.Next() {
		var (
			id    int64
			value string
		)
		if err := rows.Scan(&id, &value); err != nil {
			return nil, err
		}
		out[id] = append(out[id], value)
	}
	return out, rows.Err()
}

func replaceChildren(ctx context.Context, tx *sql.Tx, id int64, keywords, detailImages []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM product_keywords WHERE product_id = $1`, id); err != nil {
		return fmt.Errorf("clear keywords: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM product_detail_images WHERE product_id = $1`, id); err != nil {
		return fmt.Errorf("clear detail images: %w", err)
	}

	if len(keywords) > 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO product_keywords (product_id, position, keyword)
			SELECT $1, k.ord, k.value FROM unnest($2::text[]) WITH ORDINALITY AS k(value, ord)
		`, id, pq.Array(keywords)); err != nil {
			return fmt.Errorf("insert keywords: %w", err)
		}
	}
	if len(detailImages) > 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO product_detail_images (product_id, position, image_url)
			SELECT $1, d.ord, d.value FROM unnest($2::text[]) WITH ORDINALITY AS d(value, ord)
		`, id, pq.Array(detailImages)); err != nil {
			return fmt.Errorf("insert detail images: %w", err)
		}
	}

	return nil
}

func isNameConflict(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == productNameKey
}

func isNumericOverflow(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == numericOverflow
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return append([]string{}, values...)
}
