package handlers

import (
	"context"
	"net/http"

	"github.com/tmvsalud/medtour/internal/domain/entities"
	"github.com/tmvsalud/medtour/internal/domain/pricing"
	apperrors "github.com/tmvsalud/medtour/pkg/errors"
)

// HotelGetter resolves a hotel alliance by id
type HotelGetter interface {
	GetHotel(ctx context.Context, id string) (*entities.HotelAlliance, error)
}

// PricingHandler previews quote totals without touching any quote
type PricingHandler struct {
	hotels              HotelGetter
	defaultLogisticsFee int64
}

// NewPricingHandler creates a new pricing handler
func NewPricingHandler(hotels HotelGetter, defaultLogisticsFee int64) *PricingHandler {
	return &PricingHandler{hotels: hotels, defaultLogisticsFee: defaultLogisticsFee}
}

type estimateRequest struct {
	SurgeryCost      int64   `json:"surgery_cost"`
	HotelID          *string `json:"hotel_id,omitempty"`
	StayDays         int64   `json:"stay_days"`
	IncludeMealPlan  bool    `json:"include_meal_plan"`
	IncludeLogistics bool    `json:"include_logistics"`
	LogisticsFee     *int64  `json:"logistics_fee,omitempty"`
}

type estimateResponse struct {
	Breakdown pricing.Breakdown      `json:"breakdown"`
	Hotel     *entities.HotelSummary `json:"hotel,omitempty"`
}

// Estimate handles POST /api/pricing/estimate
func (h *PricingHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	in := pricing.Inputs{
		SurgeryCost:      req.SurgeryCost,
		StayDays:         req.StayDays,
		IncludeMeals:     req.IncludeMealPlan,
		IncludeLogistics: req.IncludeLogistics,
		LogisticsFee:     h.defaultLogisticsFee,
	}
	if req.LogisticsFee != nil {
		in.LogisticsFee = *req.LogisticsFee
	}

	var resp estimateResponse
	if req.HotelID != nil && *req.HotelID != "" {
		hotel, err := h.hotels.GetHotel(r.Context(), *req.HotelID)
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			respondWithAppError(w, r, apperrors.NewPreconditionFailedError(entities.FieldHotelID, "hotel "+*req.HotelID+" does not exist"))
			return
		}
		if err != nil {
			respondWithAppError(w, r, err)
			return
		}
		in.HotelRate = hotel.PricePerNight
		in.MealRate = hotel.MealPrice
		resp.Hotel = hotel.Summary()
	}

	breakdown, err := pricing.Calculate(in)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	resp.Breakdown = breakdown

	respondWithJSON(w, http.StatusOK, resp)
}
