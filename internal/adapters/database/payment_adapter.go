package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/tmvsalud/medtour/internal/domain/entities"
	"github.com/tmvsalud/medtour/internal/domain/repositories"
	"github.com/tmvsalud/medtour/internal/infrastructure/clients/postgres"
	apperrors "github.com/tmvsalud/medtour/pkg/errors"
)

const paymentsTable = "payments"

var paymentColumns = []interface{}{
	"id", "quote_id", "amount", "reference_number", "bank_name", "receipt_url",
	"method", "status", "submitted_by", "submitted_at", "reviewed_by", "reviewed_at",
}

// PaymentAdapter implements the PaymentRepository interface
type PaymentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPaymentAdapter creates a new payment adapter
func NewPaymentAdapter(client *postgres.Client) repositories.PaymentRepository {
	return &PaymentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new payment
func (a *PaymentAdapter) Create(ctx context.Context, payment *entities.Payment) error {
	record := goqu.Record{
		"id":               payment.ID,
		"quote_id":         payment.QuoteID,
		"amount":           payment.Amount,
		"reference_number": payment.ReferenceNumber,
		"bank_name":        payment.BankName,
		"receipt_url":      payment.ReceiptURL,
		"method":           payment.Method,
		"status":           payment.Status,
		"submitted_by":     payment.SubmittedBy,
		"submitted_at":     payment.SubmittedAt,
	}

	query, args, err := a.db.Insert(paymentsTable).Prepared(true).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	ctx, cancel := a.client.WithTimeout(ctx)
	defer cancel()

	if _, err := a.client.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
		return postgres.MapError("failed to create payment", err)
	}
	return nil
}

// GetByID retrieves a payment by ID
func (a *PaymentAdapter) GetByID(ctx context.Context, id string) (*entities.Payment, error) {
	payment, err := a.getOne(ctx, goqu.Ex{"id": id})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("payment with id %s not found", id))
	}
	return payment, err
}

// GetByReference finds a payment by quote and reference number
func (a *PaymentAdapter) GetByReference(ctx context.Context, quoteID, referenceNumber string) (*entities.Payment, error) {
	payment, err := a.getOne(ctx, goqu.Ex{"quote_id": quoteID, "reference_number": referenceNumber})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("payment %s for quote %s not found", referenceNumber, quoteID))
	}
	return payment, err
}

func (a *PaymentAdapter) getOne(ctx context.Context, where goqu.Ex) (*entities.Payment, error) {
	query, args, err := a.db.Select(paymentColumns...).From(paymentsTable).Prepared(true).
		Where(where).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	ctx, cancel := a.client.WithTimeout(ctx)
	defer cancel()

	payment := &entities.Payment{}
	err = sqlx.GetContext(ctx, a.client.Executor(ctx), payment, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, postgres.MapError("failed to get payment", err)
	}
	return payment, nil
}

// List retrieves payments newest first
func (a *PaymentAdapter) List(ctx context.Context, filter repositories.PaymentFilter) ([]*entities.Payment, error) {
	ds := a.db.Select(paymentColumns...).From(paymentsTable).Prepared(true)

	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"status": filter.Status})
	}
	if filter.QuoteID != "" {
		ds = ds.Where(goqu.Ex{"quote_id": filter.QuoteID})
	}

	ds = ds.Order(goqu.I("submitted_at").Desc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	ctx, cancel := a.client.WithTimeout(ctx)
	defer cancel()

	var payments []*entities.Payment
	if err := sqlx.SelectContext(ctx, a.client.Executor(ctx), &payments, query, args...); err != nil {
		return nil, postgres.MapError("failed to list payments", err)
	}
	return payments, nil
}

// ListByQuote retrieves all payments of a quote
func (a *PaymentAdapter) ListByQuote(ctx context.Context, quoteID string) ([]*entities.Payment, error) {
	return a.List(ctx, repositories.PaymentFilter{QuoteID: quoteID})
}

// UpdateReview records the review outcome; only pending payments change
func (a *PaymentAdapter) UpdateReview(ctx context.Context, payment *entities.Payment) error {
	query, args, err := a.db.Update(paymentsTable).Prepared(true).
		Set(goqu.Record{
			"status":      payment.Status,
			"reviewed_by": deref(payment.ReviewedBy),
			"reviewed_at": deref(payment.ReviewedAt),
		}).
		Where(goqu.Ex{"id": payment.ID, "status": entities.PaymentStatusPending}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	ctx, cancel := a.client.WithTimeout(ctx)
	defer cancel()

	result, err := a.client.Executor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return postgres.MapError("failed to update payment", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewInvalidStateError(fmt.Sprintf("payment %s is no longer pending", payment.ID))
	}
	return nil
}
