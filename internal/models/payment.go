package models

import "time"

type PaymentMethod string

const PaymentMethodCard PaymentMethod = "CARD"

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusSuccess, PaymentStatusFailed:
		return true
	}
	return false
}

type Payment struct {
	ID                    string
	OrderID               string
	AmountCents           int64
	Method                PaymentMethod
	Status                PaymentStatus
	StripePaymentIntentID *string
	StripePaymentMethodID *string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
