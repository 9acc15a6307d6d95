package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/archduke1337/mindmesh-core/internal/model"
	"github.com/archduke1337/mindmesh-core/internal/service"
	"github.com/archduke1337/mindmesh-core/pkg/database"
)

// Postgres error codes the repositories translate into domain errors.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// PoolInterface defines the database operations needed by repositories.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// CouponRepository provides data access for coupons using pgx.
type CouponRepository struct {
	pool PoolInterface
}

// NewCouponRepository creates a new CouponRepository with the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// NewCouponRepositoryWithPool creates a CouponRepository with a custom pool
// interface. This is primarily used for testing.
func NewCouponRepositoryWithPool(pool PoolInterface) *CouponRepository {
	return &CouponRepository{pool: pool}
}

const couponColumns = `id, code, type, value, min_purchase, max_discount, scope, event_id,
	usage_limit, used_count, per_user_limit, valid_from, valid_until, is_active, created_at`

func scanCoupon(row pgx.Row) (*model.Coupon, error) {
	var c model.Coupon
	err := row.Scan(
		&c.ID, &c.Code, &c.Type, &c.Value, &c.MinPurchase, &c.MaxDiscount,
		&c.Scope, &c.EventID, &c.UsageLimit, &c.UsedCount, &c.PerUserLimit,
		&c.ValidFrom, &c.ValidUntil, &c.IsActive, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Insert inserts a new coupon, assigning its id.
// Returns service.ErrCouponExists when the code is already taken.
func (r *CouponRepository) Insert(ctx context.Context, coupon *model.Coupon) error {
	if coupon.ID == "" {
		coupon.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO coupons (id, code, type, value, min_purchase, max_discount, scope, event_id,
			usage_limit, per_user_limit, valid_from, valid_until, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		coupon.ID, coupon.Code, coupon.Type, coupon.Value, coupon.MinPurchase, coupon.MaxDiscount,
		coupon.Scope, coupon.EventID, coupon.UsageLimit, coupon.PerUserLimit,
		coupon.ValidFrom, coupon.ValidUntil, coupon.IsActive)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return service.ErrCouponExists
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

// GetByCode retrieves a coupon by its normalized code.
// Returns nil, nil if the coupon is not found (service layer handles this).
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	coupon, err := scanCoupon(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get coupon by code %s: %w", code, err)
	}
	return coupon, nil
}

// GetByCodeForUpdate retrieves a coupon with a row lock (SELECT FOR UPDATE).
// The lock serializes redemptions of the same coupon until the transaction
// completes. Returns service.ErrCouponNotFound if the coupon doesn't exist.
func (r *CouponRepository) GetByCodeForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1 FOR UPDATE`

	coupon, err := scanCoupon(tx.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon for update %s: %w", code, err)
	}
	return coupon, nil
}

// IncrementUsedCount bumps used_count by 1. Must be called within a
// transaction after locking the row.
func (r *CouponRepository) IncrementUsedCount(ctx context.Context, tx database.TxQuerier, couponID string) error {
	_, err := tx.Exec(ctx, `UPDATE coupons SET used_count = used_count + 1 WHERE id = $1`, couponID)
	if err != nil {
		return fmt.Errorf("increment used count for %s: %w", couponID, err)
	}
	return nil
}

// Deactivate marks a coupon inactive. Returns false when no row matched.
func (r *CouponRepository) Deactivate(ctx context.Context, code string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE coupons SET is_active = FALSE WHERE code = $1`, code)
	if err != nil {
		return false, fmt.Errorf("deactivate coupon %s: %w", code, err)
	}
	return tag.RowsAffected() > 0, nil
}
