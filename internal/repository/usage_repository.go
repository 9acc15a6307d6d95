package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/archduke1337/mindmesh-core/internal/model"
	"github.com/archduke1337/mindmesh-core/pkg/database"
)

// UsageRepository provides data access for the append-only redemption audit
// trail.
type UsageRepository struct {
	pool PoolInterface
}

// NewUsageRepository creates a new UsageRepository with the given pool.
func NewUsageRepository(pool *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{pool: pool}
}

// NewUsageRepositoryWithPool creates a UsageRepository with a custom pool
// interface. This is primarily used for testing.
func NewUsageRepositoryWithPool(pool PoolInterface) *UsageRepository {
	return &UsageRepository{pool: pool}
}

// Insert records one redemption within a transaction. Usage rows are never
// updated or deleted.
func (r *UsageRepository) Insert(ctx context.Context, tx database.TxQuerier, usage *model.CouponUsage) error {
	if usage.ID == "" {
		usage.ID = uuid.NewString()
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO coupon_usages (id, coupon_id, user_id, event_id, original_price, discount_amount, final_price, used_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		usage.ID, usage.CouponID, usage.UserID, usage.EventID,
		usage.OriginalPrice, usage.DiscountAmount, usage.FinalPrice, usage.UsedAt)
	if err != nil {
		return fmt.Errorf("insert usage: %w", err)
	}
	return nil
}

// CountByUser counts prior redemptions of a coupon by one user.
func (r *UsageRepository) CountByUser(ctx context.Context, couponID, userID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM coupon_usages WHERE coupon_id = $1 AND user_id = $2`,
		couponID, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count usages for coupon %s: %w", couponID, err)
	}
	return count, nil
}

// ListByCoupon retrieves a coupon's redemption history, oldest first.
// On success, returns an empty slice (not nil) when no usages exist.
func (r *UsageRepository) ListByCoupon(ctx context.Context, couponID string) ([]model.CouponUsage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, coupon_id, user_id, event_id, original_price, discount_amount, final_price, used_at
		FROM coupon_usages WHERE coupon_id = $1 ORDER BY used_at`, couponID)
	if err != nil {
		return nil, fmt.Errorf("list usages for coupon %s: %w", couponID, err)
	}
	defer rows.Close()

	usages := []model.CouponUsage{}
	for rows.Next() {
		var u model.CouponUsage
		if err := rows.Scan(&u.ID, &u.CouponID, &u.UserID, &u.EventID,
			&u.OriginalPrice, &u.DiscountAmount, &u.FinalPrice, &u.UsedAt); err != nil {
			return nil, fmt.Errorf("scan usage row: %w", err)
		}
		usages = append(usages, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage rows: %w", err)
	}
	return usages, nil
}
