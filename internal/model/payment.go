package model

import (
    "time"

    "github.com/shopspring/decimal"
)

const (
    PaymentPending  = "pending"
    PaymentSuccess  = "success"
    PaymentFailed   = "failed"
    PaymentRefunded = "refunded"
)

const (
    PaymentRent        = "rent"
    PaymentSecurity    = "security"
    PaymentMaintenance = "maintenance"
    PaymentPenalty     = "penalty"
    PaymentOther       = "other"
)

// Payment mirrors the `payments` table. The provider_* columns are opaque
// values recorded as received; no gateway verification happens here.
type Payment struct {
    ID                uint64          `json:"id"`
    UserID            uint64          `json:"user_id"`
    Amount            decimal.Decimal `json:"amount"`
    Currency          string          `json:"currency"`
    PaymentType       string          `json:"payment_type"`
    Provider          string          `json:"provider"`
    ProviderOrderID   string          `json:"provider_order_id"`
    ProviderPaymentID string          `json:"provider_payment_id"`
    ProviderSignature string          `json:"-"`
    Status            string          `json:"status"`
    DueDate           *time.Time      `json:"due_date"`
    PaidDate          *time.Time      `json:"paid_date"`
    Description       string          `json:"description"`
    CreatedAt         time.Time       `json:"created_at"`
    UpdatedAt         time.Time       `json:"updated_at"`
}

// PaymentStats aggregates payments by status.
type PaymentStats struct {
    TotalCount     int             `json:"total_count"`
    PendingCount   int             `json:"pending_count"`
    SuccessCount   int             `json:"success_count"`
    FailedCount    int             `json:"failed_count"`
    RefundedCount  int             `json:"refunded_count"`
    PendingAmount  decimal.Decimal `json:"pending_amount"`
    CollectedTotal decimal.Decimal `json:"collected_total"`
    MonthlyRevenue decimal.Decimal `json:"monthly_revenue"`
}
