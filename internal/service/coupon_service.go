package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/archduke1337/mindmesh-core/internal/model"
	"github.com/archduke1337/mindmesh-core/pkg/database"
)

// CouponRepositoryInterface defines the interface for coupon data access.
type CouponRepositoryInterface interface {
	Insert(ctx context.Context, coupon *model.Coupon) error
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
	GetByCodeForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.Coupon, error)
	IncrementUsedCount(ctx context.Context, tx database.TxQuerier, couponID string) error
	Deactivate(ctx context.Context, code string) (bool, error)
}

// UsageRepositoryInterface defines the interface for redemption audit rows.
type UsageRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, usage *model.CouponUsage) error
	CountByUser(ctx context.Context, couponID, userID string) (int, error)
	ListByCoupon(ctx context.Context, couponID string) ([]model.CouponUsage, error)
}

// TxBeginner defines the interface for beginning transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// CouponService provides coupon eligibility and redemption logic.
type CouponService struct {
	pool        TxBeginner
	coupons     CouponRepositoryInterface
	usages      UsageRepositoryInterface
	strictScope bool
	now         func() time.Time
}

// NewCouponService creates a CouponService. strictScope controls whether an
// event-scoped coupon can be validated without an event context: when true
// (the default) such lookups are rejected instead of silently passing.
func NewCouponService(pool *pgxpool.Pool, coupons CouponRepositoryInterface, usages UsageRepositoryInterface, strictScope bool) *CouponService {
	return &CouponService{
		pool:        pool,
		coupons:     coupons,
		usages:      usages,
		strictScope: strictScope,
		now:         time.Now,
	}
}

// NewCouponServiceWithTxBeginner creates a CouponService with a custom
// TxBeginner and clock. Primarily used for testing.
func NewCouponServiceWithTxBeginner(pool TxBeginner, coupons CouponRepositoryInterface, usages UsageRepositoryInterface, strictScope bool, now func() time.Time) *CouponService {
	if now == nil {
		now = time.Now
	}
	return &CouponService{
		pool:        pool,
		coupons:     coupons,
		usages:      usages,
		strictScope: strictScope,
		now:         now,
	}
}

// NormalizeCode upper-cases and trims a coupon code for lookup and storage.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Discount computes the discount and final price for a coupon applied to a
// price. Percentage coupons are capped at MaxDiscount when set; fixed coupons
// never push the final price below zero.
func Discount(c *model.Coupon, price float64) (discount, final float64) {
	switch c.Type {
	case model.CouponPercentage:
		discount = price * c.Value / 100
		if c.MaxDiscount != nil && discount > *c.MaxDiscount {
			discount = *c.MaxDiscount
		}
	case model.CouponFixed:
		discount = c.Value
	}
	if discount > price {
		discount = price
	}
	return discount, price - discount
}

// Create creates a new coupon. The code is normalized to upper case.
// Returns ErrCouponExists when the code is taken, ErrInvalidRequest when the
// validity window is inverted.
func (s *CouponService) Create(ctx context.Context, req *model.CreateCouponRequest) (*model.Coupon, error) {
	if req == nil || req.Value == nil {
		return nil, ErrInvalidRequest
	}
	if req.ValidUntil.Before(req.ValidFrom) {
		return nil, fmt.Errorf("%w: valid_until precedes valid_from", ErrInvalidRequest)
	}
	scope := model.CouponScope(req.Scope)
	if scope == "" {
		scope = model.ScopeGlobal
	}
	if scope == model.ScopeEvent && req.EventID == "" {
		return nil, fmt.Errorf("%w: event-scoped coupon requires event_id", ErrInvalidRequest)
	}

	coupon := &model.Coupon{
		Code:         NormalizeCode(req.Code),
		Type:         model.CouponType(req.Type),
		Value:        *req.Value,
		MinPurchase:  req.MinPurchase,
		MaxDiscount:  req.MaxDiscount,
		Scope:        scope,
		EventID:      req.EventID,
		UsageLimit:   req.UsageLimit,
		PerUserLimit: req.PerUserLimit,
		ValidFrom:    req.ValidFrom,
		ValidUntil:   req.ValidUntil,
		IsActive:     true,
	}
	if err := s.coupons.Insert(ctx, coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// GetByCode retrieves a coupon by its normalized code.
func (s *CouponService) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	coupon, err := s.coupons.GetByCode(ctx, NormalizeCode(code))
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	return coupon, nil
}

// Deactivate marks a coupon inactive. Usage history is kept.
func (s *CouponService) Deactivate(ctx context.Context, code string) error {
	found, err := s.coupons.Deactivate(ctx, NormalizeCode(code))
	if err != nil {
		return fmt.Errorf("deactivate coupon: %w", err)
	}
	if !found {
		return ErrCouponNotFound
	}
	return nil
}

// evaluate runs the ordered eligibility checks that need only the coupon row
// and the request context. Returns the rejection reason, or "" when eligible.
// The per-user cap is checked separately because it needs the usage table.
func (s *CouponService) evaluate(c *model.Coupon, eventID string, orderAmount *float64) string {
	if !c.IsActive {
		return ReasonInactive
	}

	// The window is inclusive at both ends.
	now := s.now()
	if now.Before(c.ValidFrom) {
		return ReasonNotYetValid
	}
	if now.After(c.ValidUntil) {
		return ReasonExpired
	}

	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return ReasonUsageLimit
	}

	if c.Scope == model.ScopeEvent {
		if eventID == "" {
			if s.strictScope {
				return ReasonMissingEvent
			}
		} else if eventID != c.EventID {
			return ReasonWrongEvent
		}
	}

	if orderAmount != nil && c.MinPurchase > 0 && *orderAmount < c.MinPurchase {
		return ReasonMinPurchase
	}

	return ""
}

// checkPerUserLimit counts prior redemptions for (coupon, user).
// Returns the rejection reason, or "" when under the cap.
func (s *CouponService) checkPerUserLimit(ctx context.Context, c *model.Coupon, userID string) (string, error) {
	if c.PerUserLimit <= 0 || userID == "" {
		return "", nil
	}
	used, err := s.usages.CountByUser(ctx, c.ID, userID)
	if err != nil {
		return "", fmt.Errorf("count user redemptions: %w", err)
	}
	if used >= c.PerUserLimit {
		return ReasonPerUserLimit, nil
	}
	return "", nil
}

// Validate checks a coupon's eligibility without redeeming it. Rule
// rejections are reported in the response, not as errors.
func (s *CouponService) Validate(ctx context.Context, req *model.ValidateCouponRequest) (*model.ValidateCouponResponse, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}

	coupon, err := s.coupons.GetByCode(ctx, NormalizeCode(req.Code))
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if coupon == nil {
		return &model.ValidateCouponResponse{Valid: false, Reason: ReasonInvalidCode}, nil
	}

	if reason := s.evaluate(coupon, req.EventID, req.OrderAmount); reason != "" {
		return &model.ValidateCouponResponse{Valid: false, Reason: reason}, nil
	}
	reason, err := s.checkPerUserLimit(ctx, coupon, req.UserID)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		return &model.ValidateCouponResponse{Valid: false, Reason: reason}, nil
	}

	return &model.ValidateCouponResponse{
		Valid: true,
		Coupon: &model.CouponSummary{
			ID:          coupon.ID,
			Code:        coupon.Code,
			Type:        coupon.Type,
			Value:       coupon.Value,
			MinPurchase: coupon.MinPurchase,
			MaxDiscount: coupon.MaxDiscount,
			Scope:       coupon.Scope,
		},
	}, nil
}

// Redeem validates and redeems a coupon in one transaction. The coupon row is
// locked for the duration, so the usage counter cannot drift from the usage
// rows and usage_limit is never exceeded by racing redemptions. The full rule
// chain runs again against the locked snapshot; a prior Validate quote is
// never trusted.
// Returns *EligibilityError for rule rejections and ErrCouponNotFound when
// the code is unknown.
func (s *CouponService) Redeem(ctx context.Context, req *model.RedeemCouponRequest) (*model.CouponUsage, error) {
	if req == nil || req.OriginalPrice == nil {
		return nil, ErrInvalidRequest
	}
	price := *req.OriginalPrice

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	coupon, err := s.coupons.GetByCodeForUpdate(ctx, tx, NormalizeCode(req.Code))
	if err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon for update: %w", err)
	}

	if reason := s.evaluate(coupon, req.EventID, req.OriginalPrice); reason != "" {
		return nil, &EligibilityError{Reason: reason}
	}
	// Usage rows for this coupon only grow under the lock held above, so the
	// count read here cannot be stale for the cap decision.
	reason, err := s.checkPerUserLimit(ctx, coupon, req.UserID)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		return nil, &EligibilityError{Reason: reason}
	}

	discount, final := Discount(coupon, price)
	usage := &model.CouponUsage{
		CouponID:       coupon.ID,
		UserID:         req.UserID,
		EventID:        req.EventID,
		OriginalPrice:  price,
		DiscountAmount: discount,
		FinalPrice:     final,
		UsedAt:         s.now(),
	}

	if err := s.usages.Insert(ctx, tx, usage); err != nil {
		return nil, fmt.Errorf("insert usage: %w", err)
	}
	if err := s.coupons.IncrementUsedCount(ctx, tx, coupon.ID); err != nil {
		return nil, fmt.Errorf("increment used count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit redemption: %w", err)
	}
	return usage, nil
}
