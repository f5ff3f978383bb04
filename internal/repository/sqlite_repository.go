package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"
)

// SQLiteRepository backs the product catalog, vouchers, users and
// sessions: the read-mostly reference data of the shop. Orders and carts
// live in their own stores.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// A single connection keeps :memory: databases alive and sidesteps
	// sqlite writer contention.
	db.SetMaxOpenConns(1)

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *SQLiteRepository) GetAllProducts(ctx context.Context) ([]*domain.Product, error) {
	query := `
		SELECT id, name, description, price_cents, weight_grams, created_at
		FROM products
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p := &domain.Product{}
		err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Description,
			&p.Price,
			&p.WeightGrams,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return products, nil
}

func (r *SQLiteRepository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	query := `
		SELECT id, name, description, price_cents, weight_grams, created_at
		FROM products
		WHERE id = $1
	`

	p := &domain.Product{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.WeightGrams,
		&p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %d: %w", id, ErrProductNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return p, nil
}

func (r *SQLiteRepository) GetVoucher(ctx context.Context, code string) (*domain.Voucher, error) {
	query := `
		SELECT code, type, value, min_subtotal_cents, valid_from, valid_to, usage_limit, usage_count
		FROM vouchers
		WHERE code = $1
	`

	v := &domain.Voucher{}
	var vType string
	err := r.db.QueryRowContext(ctx, query, code).Scan(
		&v.Code,
		&vType,
		&v.Value,
		&v.MinSubtotal,
		&v.ValidFrom,
		&v.ValidTo,
		&v.UsageLimit,
		&v.UsageCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVoucherNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query voucher: %w", err)
	}
	v.Type = domain.VoucherType(vType)

	return v, nil
}

// IncrementVoucherUsage is guarded by the limit in the UPDATE itself, so
// concurrent checkouts cannot both take the last use.
func (r *SQLiteRepository) IncrementVoucherUsage(ctx context.Context, code string) error {
	query := `
		UPDATE vouchers
		SET usage_count = usage_count + 1
		WHERE code = $1 AND (usage_limit = 0 OR usage_count < usage_limit)
	`

	result, err := r.db.ExecContext(ctx, query, code)
	if err != nil {
		return fmt.Errorf("failed to increment voucher usage: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		// Either no such code or the limit is spent
		if _, errGet := r.GetVoucher(ctx, code); errGet != nil {
			return errGet
		}
		return ErrVoucherExhausted
	}
	return nil
}

func (r *SQLiteRepository) GetInitialStock(ctx context.Context) (map[int64]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, stock FROM products`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock: %w", err)
	}
	defer rows.Close()

	stock := make(map[int64]int)
	for rows.Next() {
		var id int64
		var qty int
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, fmt.Errorf("failed to scan stock row: %w", err)
		}
		stock[id] = qty
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return stock, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
