package entities

import (
	"fmt"
	"time"
)

// PaymentStatus represents the manual review state of a payment proof
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusApproved PaymentStatus = "approved"
	PaymentStatusRejected PaymentStatus = "rejected"
)

// PaymentMethod is the bank rail the patient used
type PaymentMethod string

const (
	PaymentMethodZelle     PaymentMethod = "zelle"
	PaymentMethodPagoMovil PaymentMethod = "pago_movil"
	PaymentMethodOther     PaymentMethod = "other"
)

// ParsePaymentMethod defaults an empty method to zelle
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case "":
		return PaymentMethodZelle, nil
	case PaymentMethodZelle, PaymentMethodPagoMovil, PaymentMethodOther:
		return PaymentMethod(s), nil
	default:
		return "", fmt.Errorf("unknown payment method: %q", s)
	}
}

// ReviewDecision is an admin verdict on a payment
type ReviewDecision string

const (
	ReviewApproved ReviewDecision = "approved"
	ReviewRejected ReviewDecision = "rejected"
)

// Payment is a manually entered proof of transfer against a quote
type Payment struct {
	ID              string        `json:"id" db:"id"`
	QuoteID         string        `json:"quote_id" db:"quote_id"`
	Amount          int64         `json:"amount" db:"amount"`
	ReferenceNumber string        `json:"reference_number" db:"reference_number"`
	BankName        string        `json:"bank_name,omitempty" db:"bank_name"`
	ReceiptURL      string        `json:"receipt_url,omitempty" db:"receipt_url"`
	Method          PaymentMethod `json:"method" db:"method"`
	Status          PaymentStatus `json:"status" db:"status"`
	SubmittedBy     string        `json:"submitted_by" db:"submitted_by"`
	SubmittedAt     time.Time     `json:"submitted_at" db:"submitted_at"`
	ReviewedBy      *string       `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt      *time.Time    `json:"reviewed_at,omitempty" db:"reviewed_at"`
}

// PaymentSubmission is the patient-facing intake payload
type PaymentSubmission struct {
	QuoteID         string `json:"quote_id"`
	Amount          int64  `json:"amount"`
	ReferenceNumber string `json:"reference_number"`
	BankName        string `json:"bank_name,omitempty"`
	ReceiptURL      string `json:"receipt_url,omitempty"`
	Method          string `json:"method,omitempty"`
}
