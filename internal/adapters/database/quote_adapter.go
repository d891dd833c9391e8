package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jmoiron/sqlx"

	"github.com/tmvsalud/medtour/internal/domain/entities"
	"github.com/tmvsalud/medtour/internal/domain/repositories"
	"github.com/tmvsalud/medtour/internal/infrastructure/clients/postgres"
	apperrors "github.com/tmvsalud/medtour/pkg/errors"
)

const quotesTable = "quotes"

var quoteColumns = []interface{}{
	"id", "patient_id", "doctor_id", "surgery_cost", "diagnosis",
	"hotel_id", "logistics_fee", "stay_days", "include_logistics", "include_meal_plan",
	"hotel_rate", "meal_rate", "patient_name", "patient_phone", "patient_email", "whatsapp_number",
	"total_cost", "status", "appointment_date", "version", "created_at", "updated_at",
}

// QuoteAdapter implements the QuoteRepository interface
type QuoteAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewQuoteAdapter creates a new quote adapter
func NewQuoteAdapter(client *postgres.Client) repositories.QuoteRepository {
	return &QuoteAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

func quoteRecord(q *entities.Quote) goqu.Record {
	return goqu.Record{
		"patient_id":        q.PatientID,
		"doctor_id":         q.DoctorID,
		"surgery_cost":      q.SurgeryCost,
		"diagnosis":         q.Diagnosis,
		"hotel_id":          deref(q.HotelID),
		"logistics_fee":     q.LogisticsFee,
		"stay_days":         q.StayDays,
		"include_logistics": q.IncludeLogistics,
		"include_meal_plan": q.IncludeMealPlan,
		"hotel_rate":        q.HotelRate,
		"meal_rate":         q.MealRate,
		"patient_name":      q.PatientName,
		"patient_phone":     q.PatientPhone,
		"patient_email":     q.PatientEmail,
		"whatsapp_number":   q.WhatsAppNumber,
		"total_cost":        q.TotalCost,
		"status":            q.Status,
		"appointment_date":  deref(q.AppointmentDate),
		"updated_at":        q.UpdatedAt,
	}
}

// Create creates a new quote
func (a *QuoteAdapter) Create(ctx context.Context, quote *entities.Quote) error {
	record := quoteRecord(quote)
	record["id"] = quote.ID
	record["version"] = quote.Version
	record["created_at"] = quote.CreatedAt

	query, args, err := a.db.Insert(quotesTable).Prepared(true).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	ctx, cancel := a.client.WithTimeout(ctx)
	defer cancel()

	if _, err := a.client.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
		return postgres.MapError("failed to create quote", err)
	}
	return nil
}

// GetByID retrieves a quote by ID
func (a *QuoteAdapter) GetByID(ctx context.Context, id string) (*entities.Quote, error) {
	query, args, err := a.db.Select(quoteColumns...).From(quotesTable).Prepared(true).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	ctx, cancel := a.client.WithTimeout(ctx)
	defer cancel()

	quote := &entities.Quote{}
	err = sqlx.GetContext(ctx, a.client.Executor(ctx), quote, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("quote with id %s not found", id))
	}
	if err != nil {
		return nil, postgres.MapError("failed to get quote", err)
	}
	return quote, nil
}

// List retrieves quotes newest first
func (a *QuoteAdapter) List(ctx context.Context, filter repositories.QuoteFilter) ([]*entities.Quote, error) {
	ds := a.db.Select(quoteColumns...).From(quotesTable).Prepared(true)

	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"status": filter.Status})
	}
	if filter.PatientID != "" {
		ds = ds.Where(goqu.Ex{"patient_id": filter.PatientID})
	}
	if filter.DoctorID != "" {
		ds = ds.Where(goqu.Ex{"doctor_id": filter.DoctorID})
	}

	ds = ds.Order(goqu.I("created_at").Desc(), goqu.I("id").Asc())

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

	var quotes []*entities.Quote
	if err := sqlx.SelectContext(ctx, a.client.Executor(ctx), &quotes, query, args...); err != nil {
		return nil, postgres.MapError("failed to list quotes", err)
	}
	return quotes, nil
}

// ListByPatient retrieves quotes owned by a patient
func (a *QuoteAdapter) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*entities.Quote, error) {
	return a.List(ctx, repositories.QuoteFilter{PatientID: patientID, Limit: limit, Offset: offset})
}

// ListByDoctor retrieves quotes proposed by a doctor
func (a *QuoteAdapter) ListByDoctor(ctx context.Context, doctorID string, limit, offset int) ([]*entities.Quote, error) {
	return a.List(ctx, repositories.QuoteFilter{DoctorID: doctorID, Limit: limit, Offset: offset})
}

// Update writes the quote guarded by its version
func (a *QuoteAdapter) Update(ctx context.Context, quote *entities.Quote, expectedVersion int64) error {
	record := quoteRecord(quote)
	record["version"] = expectedVersion + 1

	query, args, err := a.db.Update(quotesTable).Prepared(true).
		Set(record).
		Where(goqu.Ex{"id": quote.ID, "version": expectedVersion}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	ctx, cancel := a.client.WithTimeout(ctx)
	defer cancel()

	exec := a.client.Executor(ctx)
	result, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return postgres.MapError("failed to update quote", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		var exists bool
		if err := sqlx.GetContext(ctx, exec, &exists, `SELECT EXISTS (SELECT 1 FROM quotes WHERE id = $1)`, quote.ID); err != nil {
			return postgres.MapError("failed to check quote", err)
		}
		if !exists {
			return apperrors.NewNotFoundError(fmt.Sprintf("quote with id %s not found", quote.ID))
		}
		return apperrors.NewConflictError(fmt.Sprintf("quote %s was modified concurrently", quote.ID))
	}

	quote.Version = expectedVersion + 1
	return nil
}

// deref turns a nil pointer into SQL NULL and otherwise yields the value
func deref[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
