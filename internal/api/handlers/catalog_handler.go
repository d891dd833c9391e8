package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/tmvsalud/medtour/internal/domain/entities"
)

// CatalogService defines the hotel and doctor directory operations used by the handler.
type CatalogService interface {
	ListHotels(ctx context.Context, limit, offset int) ([]*entities.HotelAlliance, error)
	GetHotel(ctx context.Context, id string) (*entities.HotelAlliance, error)
	CreateHotel(ctx context.Context, actor entities.Actor, hotel *entities.HotelAlliance) error
	UpdateHotel(ctx context.Context, actor entities.Actor, id string, hotel *entities.HotelAlliance) error
	DeleteHotel(ctx context.Context, actor entities.Actor, id string) error

	ListDoctors(ctx context.Context, limit, offset int) ([]*entities.DoctorProfile, error)
	GetDoctor(ctx context.Context, id string) (*entities.DoctorProfile, error)
	CreateDoctor(ctx context.Context, actor entities.Actor, doctor *entities.DoctorProfile) error
	UpdateDoctor(ctx context.Context, actor entities.Actor, id string, doctor *entities.DoctorProfile) error
	SearchDoctors(ctx context.Context, query string, limit int) ([]*entities.DoctorProfile, error)
}

// CatalogHandler handles hotel alliance and doctor directory requests
type CatalogHandler struct {
	service CatalogService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(service CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

type hotelRequest struct {
	Name          string   `json:"name"`
	PricePerNight int64    `json:"price_per_night"`
	MealPrice     int64    `json:"meal_price"`
	ImageURLs     []string `json:"image_urls"`
	DescriptionEs string   `json:"description_es"`
	DescriptionEn string   `json:"description_en"`
	Amenities     []string `json:"amenities"`
}

func (req hotelRequest) toEntity() *entities.HotelAlliance {
	return &entities.HotelAlliance{
		Name:          req.Name,
		PricePerNight: req.PricePerNight,
		MealPrice:     req.MealPrice,
		ImageURLs:     nonNil(req.ImageURLs),
		DescriptionEs: req.DescriptionEs,
		DescriptionEn: req.DescriptionEn,
		Amenities:     nonNil(req.Amenities),
	}
}

type doctorRequest struct {
	UserID             string   `json:"user_id"`
	Name               string   `json:"name"`
	Specialty          string   `json:"specialty"`
	BioEs              string   `json:"bio_es"`
	BioEn              string   `json:"bio_en"`
	CVURL              string   `json:"cv_url"`
	ImageURLs          []string `json:"image_urls"`
	ConsultationFee    int64    `json:"consultation_fee"`
	IsFreeConsultation bool     `json:"is_free_consultation"`
}

func (req doctorRequest) toEntity() *entities.DoctorProfile {
	return &entities.DoctorProfile{
		UserID:             req.UserID,
		Name:               req.Name,
		Specialty:          req.Specialty,
		BioEs:              req.BioEs,
		BioEn:              req.BioEn,
		CVURL:              req.CVURL,
		ImageURLs:          nonNil(req.ImageURLs),
		ConsultationFee:    req.ConsultationFee,
		IsFreeConsultation: req.IsFreeConsultation,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ListHotels handles GET /api/hotels
func (h *CatalogHandler) ListHotels(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	hotels, err := h.service.ListHotels(r.Context(), limit, offset)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"hotels": hotels,
		"count":  len(hotels),
	})
}

// GetHotel handles GET /api/hotels/{id}
func (h *CatalogHandler) GetHotel(w http.ResponseWriter, r *http.Request) {
	hotel, err := h.service.GetHotel(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, hotel)
}

// CreateHotel handles POST /api/hotels
func (h *CatalogHandler) CreateHotel(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req hotelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	hotel := req.toEntity()
	if err := h.service.CreateHotel(r.Context(), actor, hotel); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, hotel)
}

// UpdateHotel handles PUT /api/hotels/{id}
func (h *CatalogHandler) UpdateHotel(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req hotelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	hotel := req.toEntity()
	if err := h.service.UpdateHotel(r.Context(), actor, r.PathValue("id"), hotel); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, hotel)
}

// DeleteHotel handles DELETE /api/hotels/{id}
func (h *CatalogHandler) DeleteHotel(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteHotel(r.Context(), actor, r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListDoctors handles GET /api/doctors
func (h *CatalogHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	doctors, err := h.service.ListDoctors(r.Context(), limit, offset)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"doctors": doctors,
		"count":   len(doctors),
	})
}

// SearchDoctors handles GET /api/doctors/search?q=
func (h *CatalogHandler) SearchDoctors(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))

	doctors, err := h.service.SearchDoctors(r.Context(), query.Get("q"), limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"doctors": doctors,
		"count":   len(doctors),
		"query":   query.Get("q"),
	})
}

// GetDoctor handles GET /api/doctors/{id}; id may be the profile id or the doctor's user id
func (h *CatalogHandler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	doctor, err := h.service.GetDoctor(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, doctor)
}

// CreateDoctor handles POST /api/doctors
func (h *CatalogHandler) CreateDoctor(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req doctorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	doctor := req.toEntity()
	if err := h.service.CreateDoctor(r.Context(), actor, doctor); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, doctor)
}

// UpdateDoctor handles PUT /api/doctors/{id}
func (h *CatalogHandler) UpdateDoctor(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req doctorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	doctor := req.toEntity()
	if err := h.service.UpdateDoctor(r.Context(), actor, r.PathValue("id"), doctor); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, doctor)
}
