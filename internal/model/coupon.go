package model

import "time"

// CouponType determines how a coupon's value is applied to a price.
type CouponType string

const (
	CouponPercentage CouponType = "percentage"
	CouponFixed      CouponType = "fixed"
)

// CouponScope determines which events a coupon applies to.
type CouponScope string

const (
	ScopeGlobal CouponScope = "global"
	ScopeEvent  CouponScope = "event"
)

// Coupon represents a discount code. Codes are stored upper-cased and unique.
type Coupon struct {
	ID           string      `json:"id"`
	Code         string      `json:"code"`
	Type         CouponType  `json:"type"`
	Value        float64     `json:"value"`
	MinPurchase  float64     `json:"min_purchase"`
	MaxDiscount  *float64    `json:"max_discount,omitempty"`
	Scope        CouponScope `json:"scope"`
	EventID      string      `json:"event_id,omitempty"`
	UsageLimit   int         `json:"usage_limit"` // 0 = unlimited
	UsedCount    int         `json:"used_count"`
	PerUserLimit int         `json:"per_user_limit"` // 0 = unlimited
	ValidFrom    time.Time   `json:"valid_from"`
	ValidUntil   time.Time   `json:"valid_until"`
	IsActive     bool        `json:"is_active"`
	CreatedAt    time.Time   `json:"-"`
}

// CouponUsage is one redemption. Rows are append-only and are the durable
// source of truth for usage counts.
type CouponUsage struct {
	ID             string    `json:"id"`
	CouponID       string    `json:"coupon_id"`
	UserID         string    `json:"user_id"`
	EventID        string    `json:"event_id,omitempty"`
	OriginalPrice  float64   `json:"original_price"`
	DiscountAmount float64   `json:"discount_amount"`
	FinalPrice     float64   `json:"final_price"`
	UsedAt         time.Time `json:"used_at"`
}

// CreateCouponRequest is the DTO for creating a coupon.
type CreateCouponRequest struct {
	Code         string    `json:"code" validate:"required,notblank,max=64"`
	Type         string    `json:"type" validate:"required,oneof=percentage fixed"`
	Value        *float64  `json:"value" validate:"required,gt=0"`
	MinPurchase  float64   `json:"min_purchase" validate:"gte=0"`
	MaxDiscount  *float64  `json:"max_discount" validate:"omitempty,gt=0"`
	Scope        string    `json:"scope" validate:"omitempty,oneof=global event"`
	EventID      string    `json:"event_id" validate:"max=64"`
	UsageLimit   int       `json:"usage_limit" validate:"gte=0"`
	PerUserLimit int       `json:"per_user_limit" validate:"gte=0"`
	ValidFrom    time.Time `json:"valid_from" validate:"required"`
	ValidUntil   time.Time `json:"valid_until" validate:"required"`
}

// ValidateCouponRequest is the DTO for checking coupon eligibility.
// EventID, UserID and OrderAmount are optional; checks that depend on them
// are skipped when absent (event scope subject to the strict-scope setting).
type ValidateCouponRequest struct {
	Code        string   `json:"code" validate:"required,notblank,max=64"`
	EventID     string   `json:"event_id" validate:"max=64"`
	UserID      string   `json:"user_id" validate:"max=64"`
	OrderAmount *float64 `json:"order_amount" validate:"omitempty,gte=0"`
}

// CouponSummary is the subset of coupon fields exposed to validation callers.
type CouponSummary struct {
	ID          string      `json:"id"`
	Code        string      `json:"code"`
	Type        CouponType  `json:"type"`
	Value       float64     `json:"value"`
	MinPurchase float64     `json:"min_purchase"`
	MaxDiscount *float64    `json:"max_discount,omitempty"`
	Scope       CouponScope `json:"scope"`
}

// ValidateCouponResponse reports the outcome of an eligibility check.
type ValidateCouponResponse struct {
	Valid  bool           `json:"valid"`
	Reason string         `json:"reason,omitempty"`
	Coupon *CouponSummary `json:"coupon,omitempty"`
}

// RedeemCouponRequest is the DTO for redeeming a coupon. The discount is
// computed server-side from the coupon and the original price.
type RedeemCouponRequest struct {
	Code          string   `json:"code" validate:"required,notblank,max=64"`
	UserID        string   `json:"user_id" validate:"required,notblank,max=64"`
	EventID       string   `json:"event_id" validate:"max=64"`
	OriginalPrice *float64 `json:"original_price" validate:"required,gte=0"`
}
