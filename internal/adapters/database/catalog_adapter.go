package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tmvsalud/medtour/internal/domain/entities"
	"github.com/tmvsalud/medtour/internal/domain/repositories"
	"github.com/tmvsalud/medtour/internal/infrastructure/clients/postgres"
	apperrors "github.com/tmvsalud/medtour/pkg/errors"
)

const (
	hotelsTable  = "hotel_alliances"
	doctorsTable = "doctor_profiles"
)

var hotelColumns = []interface{}{
	"id", "name", "price_per_night", "meal_price", "image_urls",
	"description_es", "description_en", "amenities", "created_at", "updated_at",
}

var doctorColumns = []interface{}{
	"id", "user_id", "name", "specialty", "bio_es", "bio_en", "cv_url", "image_urls",
	"consultation_fee", "is_free_consultation", "created_at", "updated_at",
}

type hotelRow struct {
	ID            string         `db:"id"`
	Name          string         `db:"name"`
	PricePerNight int64          `db:"price_per_night"`
	MealPrice     int64          `db:"meal_price"`
	ImageURLs     pq.StringArray `db:"image_urls"`
	DescriptionEs string         `db:"description_es"`
	DescriptionEn string         `db:"description_en"`
	Amenities     pq.StringArray `db:"amenities"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (r *hotelRow) toEntity() *entities.HotelAlliance {
	return &entities.HotelAlliance{
		ID:            r.ID,
		Name:          r.Name,
		PricePerNight: r.PricePerNight,
		MealPrice:     r.MealPrice,
		ImageURLs:     []string(r.ImageURLs),
		DescriptionEs: r.DescriptionEs,
		DescriptionEn: r.DescriptionEn,
		Amenities:     []string(r.Amenities),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type doctorRow struct {
	ID                 string         `db:"id"`
	UserID             string         `db:"user_id"`
	Name               string         `db:"name"`
	Specialty          string         `db:"specialty"`
	BioEs              string         `db:"bio_es"`
	BioEn              string         `db:"bio_en"`
	CVURL              string         `db:"cv_url"`
	ImageURLs          pq.StringArray `db:"image_urls"`
	ConsultationFee    int64          `db:"consultation_fee"`
	IsFreeConsultation bool           `db:"is_free_consultation"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

func (r *doctorRow) toEntity() *entities.DoctorProfile {
	return &entities.DoctorProfile{
		ID:                 r.ID,
		UserID:             r.UserID,
		Name:               r.Name,
		Specialty:          r.Specialty,
		BioEs:              r.BioEs,
		BioEn:              r.BioEn,
		CVURL:              r.CVURL,
		ImageURLs:          []string(r.ImageURLs),
		ConsultationFee:    r.ConsultationFee,
		IsFreeConsultation: r.IsFreeConsultation,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

// HotelAdapter implements the HotelRepository interface
type HotelAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewHotelAdapter creates a new hotel adapter
func NewHotelAdapter(client *postgres.Client) repositories.HotelRepository {
	return &HotelAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

func hotelRecord(h *entities.HotelAlliance) goqu.Record {
	return goqu.Record{
		"name":            h.Name,
		"price_per_night": h.PricePerNight,
		"meal_price":      h.MealPrice,
		"image_urls":      pq.Array(nonNil(h.ImageURLs)),
		"description_es":  h.DescriptionEs,
		"description_en":  h.DescriptionEn,
		"amenities":       pq.Array(nonNil(h.Amenities)),
		"updated_at":      h.UpdatedAt,
	}
}

// Create creates a new hotel
func (a *HotelAdapter) Create(ctx context.Context, hotel *entities.HotelAlliance) error {
	record := hotelRecord(hotel)
	record["id"] = hotel.ID
	record["created_at"] = hotel.CreatedAt

	query, args, err := a.db.Insert(hotelsTable).Prepared(true).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	ctx, cancel := a.client.WithTimeout(ctx)
	defer cancel()

	if _, err := a.client.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
		return postgres.MapError("failed to create hotel", err)
	}
	return nil
}

// GetByID retrieves a hotel by ID
func (a *HotelAdapter) GetByID(ctx context.Context, id string) (*entities.HotelAlliance, error) {
	query, args, err := a.db.Select(hotelColumns...).From(hotelsTable).Prepared(true).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	ctx, cancel := a.client.WithTimeout(ctx)
	defer cancel()

	var row hotelRow
	err = sqlx.GetContext(ctx, a.client.Executor(ctx), &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("hotel with id %s not found", id))
	}
	if err != nil {
		return nil, postgres.MapError("failed to get hotel", err)
	}
	return row.toEntity(), nil
}

// GetByIDs retrieves several hotels in one query
func (a *HotelAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.HotelAlliance, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := a.db.Select(hotelColumns...).From(hotelsTable).Prepared(true).
		Where(goqu.C("id").In(ids)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.selectHotels(ctx, query, args)
}

// List retrieves hotels ordered by name
func (a *HotelAdapter) List(ctx context.Context, limit, offset int) ([]*entities.HotelAlliance, error) {
	ds := a.db.Select(hotelColumns...).From(hotelsTable).Prepared(true).
		Order(goqu.I("name").Asc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	if offset > 0 {
		ds = ds.Offset(uint(offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	return a.selectHotels(ctx, query, args)
}

func (a *HotelAdapter) selectHotels(ctx context.Context, query string, args []interface{}) ([]*entities.HotelAlliance, error) {
	ctx, cancel := a.client.WithTimeout(ctx)
	defer cancel()

	var rows []hotelRow
	if err := sqlx.SelectContext(ctx, a.client.Executor(ctx), &rows, query, args...); err != nil {
		return nil, postgres.MapError("failed to list hotels", err)
	}

	hotels := make([]*entities.HotelAlliance, 0, len(rows))
	for i := range rows {
		hotels = append(hotels, rows[i].toEntity())
	}
	return hotels, nil
}

// Update updates a hotel
func (a *HotelAdapter) Update(ctx context.Context, hotel *entities.HotelAlliance) error {
	query, args, err := a.db.Update(hotelsTable).Prepared(true).
		Set(hotelRecord(hotel)).
		Where(goqu.Ex{"id": hotel.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	return execOne(ctx, a.client, query, args, "hotel", hotel.ID)
}

// Delete deletes a hotel; quotes still referencing it block the delete
func (a *HotelAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete(hotelsTable).Prepared(true).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	ctx, cancel := a.client.WithTimeout(ctx)
	defer cancel()

	result, err := a.client.Executor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return apperrors.NewConflictError(fmt.Sprintf("hotel %s is referenced by quotes", id))
		}
		return postgres.MapError("failed to delete hotel", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("hotel with id %s not found", id))
	}
	return nil
}

// DoctorAdapter implements the DoctorRepository interface
type DoctorAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewDoctorAdapter creates a new doctor adapter
func NewDoctorAdapter(client *postgres.Client) repositories.DoctorRepository {
	return &DoctorAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

func doctorRecord(d *entities.DoctorProfile) goqu.Record {
	return goqu.Record{
		"user_id":              d.UserID,
		"name":                 d.Name,
		"specialty":            d.Specialty,
		"bio_es":               d.BioEs,
		"bio_en":               d.BioEn,
		"cv_url":               d.CVURL,
		"image_urls":           pq.Array(nonNil(d.ImageURLs)),
		"consultation_fee":     d.ConsultationFee,
		"is_free_consultation": d.IsFreeConsultation,
		"updated_at":           d.UpdatedAt,
	}
}

// Create creates a new doctor profile
func (a *DoctorAdapter) Create(ctx context.Context, doctor *entities.DoctorProfile) error {
	record := doctorRecord(doctor)
	record["id"] = doctor.ID
	record["created_at"] = doctor.CreatedAt

	query, args, err := a.db.Insert(doctorsTable).Prepared(true).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	ctx, cancel := a.client.WithTimeout(ctx)
	defer cancel()

	if _, err := a.client.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
		return postgres.MapError("failed to create doctor profile", err)
	}
	return nil
}

// GetByID retrieves a doctor by profile id or user id
func (a *DoctorAdapter) GetByID(ctx context.Context, id string) (*entities.DoctorProfile, error) {
	query, args, err := a.db.Select(doctorColumns...).From(doctorsTable).Prepared(true).
		Where(goqu.Or(goqu.C("id").Eq(id), goqu.C("user_id").Eq(id))).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	ctx, cancel := a.client.WithTimeout(ctx)
	defer cancel()

	var row doctorRow
	err = sqlx.GetContext(ctx, a.client.Executor(ctx), &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("doctor with id %s not found", id))
	}
	if err != nil {
		return nil, postgres.MapError("failed to get doctor", err)
	}
	return row.toEntity(), nil
}

// List retrieves doctors ordered by name
func (a *DoctorAdapter) List(ctx context.Context, limit, offset int) ([]*entities.DoctorProfile, error) {
	ds := a.db.Select(doctorColumns...).From(doctorsTable).Prepared(true).
		Order(goqu.I("name").Asc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	if offset > 0 {
		ds = ds.Offset(uint(offset))
	}
	return a.selectDoctors(ctx, ds)
}

// Search matches doctors by name or specialty
func (a *DoctorAdapter) Search(ctx context.Context, q string, limit int) ([]*entities.DoctorProfile, error) {
	pattern := "%" + q + "%"
	ds := a.db.Select(doctorColumns...).From(doctorsTable).Prepared(true).
		Where(goqu.Or(
			goqu.C("name").ILike(pattern),
			goqu.C("specialty").ILike(pattern),
		)).
		Order(goqu.I("name").Asc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	return a.selectDoctors(ctx, ds)
}

func (a *DoctorAdapter) selectDoctors(ctx context.Context, ds *goqu.SelectDataset) ([]*entities.DoctorProfile, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	ctx, cancel := a.client.WithTimeout(ctx)
	defer cancel()

	var rows []doctorRow
	if err := sqlx.SelectContext(ctx, a.client.Executor(ctx), &rows, query, args...); err != nil {
		return nil, postgres.MapError("failed to list doctors", err)
	}

	doctors := make([]*entities.DoctorProfile, 0, len(rows))
	for i := range rows {
		doctors = append(doctors, rows[i].toEntity())
	}
	return doctors, nil
}

// Update updates a doctor profile
func (a *DoctorAdapter) Update(ctx context.Context, doctor *entities.DoctorProfile) error {
	query, args, err := a.db.Update(doctorsTable).Prepared(true).
		Set(doctorRecord(doctor)).
		Where(goqu.Ex{"id": doctor.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	return execOne(ctx, a.client, query, args, "doctor", doctor.ID)
}

func execOne(ctx context.Context, client *postgres.Client, query string, args []interface{}, kind, id string) error {
	ctx, cancel := client.WithTimeout(ctx)
	defer cancel()

	result, err := client.Executor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return postgres.MapError(fmt.Sprintf("failed to write %s", kind), err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("%s with id %s not found", kind, id))
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
