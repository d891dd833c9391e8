package entities

import "time"

// HotelAlliance is a partner hotel offered to patients
type HotelAlliance struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	PricePerNight int64     `json:"price_per_night"`
	MealPrice     int64     `json:"meal_price"`
	ImageURLs     []string  `json:"image_urls"`
	DescriptionEs string    `json:"description_es,omitempty"`
	DescriptionEn string    `json:"description_en,omitempty"`
	Amenities     []string  `json:"amenities"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Description returns the description in the requested language, falling back to Spanish
func (h *HotelAlliance) Description(lang string) string {
	if lang == "en" && h.DescriptionEn != "" {
		return h.DescriptionEn
	}
	return h.DescriptionEs
}

// HotelSummary is the compact hotel view attached to quote listings
type HotelSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	PricePerNight int64  `json:"price_per_night"`
	MealPrice     int64  `json:"meal_price"`
}

// Summary returns the compact view of the hotel
func (h *HotelAlliance) Summary() *HotelSummary {
	return &HotelSummary{
		ID:            h.ID,
		Name:          h.Name,
		PricePerNight: h.PricePerNight,
		MealPrice:     h.MealPrice,
	}
}

// DoctorProfile is a surgeon listed in the directory
type DoctorProfile struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	Name               string    `json:"name"`
	Specialty          string    `json:"specialty,omitempty"`
	BioEs              string    `json:"bio_es,omitempty"`
	BioEn              string    `json:"bio_en,omitempty"`
	CVURL              string    `json:"cv_url,omitempty"`
	ImageURLs          []string  `json:"image_urls"`
	ConsultationFee    int64     `json:"consultation_fee"`
	IsFreeConsultation bool      `json:"is_free_consultation"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// EffectiveConsultationFee is zero for free consultations
func (d *DoctorProfile) EffectiveConsultationFee() int64 {
	if d.IsFreeConsultation {
		return 0
	}
	return d.ConsultationFee
}
