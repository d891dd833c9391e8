package entities

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// QuoteEventType represents the type of quote event
type QuoteEventType string

const (
	QuoteEventTypeCreated          QuoteEventType = "quote_created"
	QuoteEventTypeTransitioned     QuoteEventType = "quote_transitioned"
	QuoteEventTypePaymentSubmitted QuoteEventType = "payment_submitted"
	QuoteEventTypePaymentApproved  QuoteEventType = "payment_approved"
	QuoteEventTypePaymentRejected  QuoteEventType = "payment_rejected"
)

// QuoteEvent represents a real-time update event for a quote
type QuoteEvent struct {
	ID         string         `json:"id"`
	QuoteID    string         `json:"quote_id"`
	EventType  QuoteEventType `json:"event_type"`
	Timestamp  time.Time      `json:"timestamp"`
	FromStatus QuoteStatus    `json:"from_status,omitempty"`
	ToStatus   QuoteStatus    `json:"to_status"`
	Actor      Actor          `json:"actor"`
	TotalCost  int64          `json:"total_cost"`
	PaymentID  string         `json:"payment_id,omitempty"`
}

// NewQuoteEvent creates a new quote event
func NewQuoteEvent(quote *Quote, eventType QuoteEventType, from QuoteStatus, actor Actor) *QuoteEvent {
	return &QuoteEvent{
		ID:         generateEventID(),
		QuoteID:    quote.ID,
		EventType:  eventType,
		Timestamp:  time.Now(),
		FromStatus: from,
		ToStatus:   quote.Status,
		Actor:      actor,
		TotalCost:  quote.TotalCost,
	}
}

// WithPayment tags the event with the payment that caused it
func (e *QuoteEvent) WithPayment(paymentID string) *QuoteEvent {
	e.PaymentID = paymentID
	return e
}

func generateEventID() string {
	return time.Now().Format("20060102150405") + "-" + randomString(8)
}

func randomString(length int) string {
	bytes := make([]byte, length/2+1)
	if _, err := rand.Read(bytes); err != nil {
		return time.Now().Format("150405.000")
	}
	return hex.EncodeToString(bytes)[:length]
}
