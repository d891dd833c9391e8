package entities

import (
	"fmt"
	"time"
)

// QuoteStatus represents the lifecycle stage of a quote
type QuoteStatus string

const (
	QuoteStatusDraft          QuoteStatus = "draft"
	QuoteStatusReview         QuoteStatus = "review"
	QuoteStatusReady          QuoteStatus = "ready"
	QuoteStatusPendingPayment QuoteStatus = "pending_payment"
	QuoteStatusPaid           QuoteStatus = "paid"
	QuoteStatusRejected       QuoteStatus = "rejected"
)

// QuoteStatuses lists every status in workflow order
var QuoteStatuses = []QuoteStatus{
	QuoteStatusDraft,
	QuoteStatusReview,
	QuoteStatusReady,
	QuoteStatusPendingPayment,
	QuoteStatusPaid,
	QuoteStatusRejected,
}

// ParseQuoteStatus rejects anything outside the closed set
func ParseQuoteStatus(s string) (QuoteStatus, error) {
	for _, status := range QuoteStatuses {
		if string(status) == s {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown quote status: %q", s)
}

// IsTerminal reports whether no further transition can leave the status
func (s QuoteStatus) IsTerminal() bool {
	return s == QuoteStatusPaid || s == QuoteStatusRejected
}

// Quote is the per-patient record of a proposed surgery, lodging and logistics
type Quote struct {
	ID        string `json:"id" db:"id"`
	PatientID string `json:"patient_id" db:"patient_id"`
	DoctorID  string `json:"doctor_id" db:"doctor_id"`

	// Doctor proposal
	SurgeryCost int64  `json:"surgery_cost" db:"surgery_cost"`
	Diagnosis   string `json:"diagnosis" db:"diagnosis"`

	// Admin and patient logistics configuration
	HotelID          *string `json:"hotel_id,omitempty" db:"hotel_id"`
	LogisticsFee     int64   `json:"logistics_fee" db:"logistics_fee"`
	StayDays         int64   `json:"stay_days" db:"stay_days"`
	IncludeLogistics bool    `json:"include_logistics" db:"include_logistics"`
	IncludeMealPlan  bool    `json:"include_meal_plan" db:"include_meal_plan"`

	// Hotel rates captured when the hotel or stay was last set. Pricing reads
	// these, not the live catalog, so a catalog edit never moves an agreed total.
	HotelRate int64 `json:"hotel_rate" db:"hotel_rate"`
	MealRate  int64 `json:"meal_rate" db:"meal_rate"`

	// Contact, captured once
	PatientName    string `json:"patient_name" db:"patient_name"`
	PatientPhone   string `json:"patient_phone" db:"patient_phone"`
	PatientEmail   string `json:"patient_email" db:"patient_email"`
	WhatsAppNumber string `json:"whatsapp_number" db:"whatsapp_number"`

	// TotalCost is derived by the cost calculator and never written by clients.
	TotalCost int64 `json:"total_cost" db:"total_cost"`

	Status          QuoteStatus `json:"status" db:"status"`
	AppointmentDate *time.Time  `json:"appointment_date,omitempty" db:"appointment_date"`
	Version         int64       `json:"version" db:"version"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"`
}

// Clone returns a deep copy so a failed transition never leaks partial writes
func (q *Quote) Clone() *Quote {
	c := *q
	if q.HotelID != nil {
		id := *q.HotelID
		c.HotelID = &id
	}
	if q.AppointmentDate != nil {
		d := *q.AppointmentDate
		c.AppointmentDate = &d
	}
	return &c
}

// ContactNumber is where patient notifications go
func (q *Quote) ContactNumber() string {
	if q.WhatsAppNumber != "" {
		return q.WhatsAppNumber
	}
	return q.PatientPhone
}

// Quote payload field names
const (
	FieldPatientID        = "patient_id"
	FieldDoctorID         = "doctor_id"
	FieldSurgeryCost      = "surgery_cost"
	FieldDiagnosis        = "diagnosis"
	FieldHotelID          = "hotel_id"
	FieldLogisticsFee     = "logistics_fee"
	FieldStayDays         = "stay_days"
	FieldIncludeLogistics = "include_logistics"
	FieldIncludeMealPlan  = "include_meal_plan"
	FieldPatientName      = "patient_name"
	FieldPatientPhone     = "patient_phone"
	FieldPatientEmail     = "patient_email"
	FieldWhatsAppNumber   = "whatsapp_number"
	FieldAppointmentDate  = "appointment_date"
)

// QuotePatch carries the writable fields of a transition request. A nil field is absent.
type QuotePatch struct {
	SurgeryCost      *int64     `json:"surgery_cost,omitempty"`
	Diagnosis        *string    `json:"diagnosis,omitempty"`
	HotelID          *string    `json:"hotel_id,omitempty"`
	LogisticsFee     *int64     `json:"logistics_fee,omitempty"`
	StayDays         *int64     `json:"stay_days,omitempty"`
	IncludeLogistics *bool      `json:"include_logistics,omitempty"`
	IncludeMealPlan  *bool      `json:"include_meal_plan,omitempty"`
	PatientName      *string    `json:"patient_name,omitempty"`
	PatientPhone     *string    `json:"patient_phone,omitempty"`
	PatientEmail     *string    `json:"patient_email,omitempty"`
	WhatsAppNumber   *string    `json:"whatsapp_number,omitempty"`
	AppointmentDate  *time.Time `json:"appointment_date,omitempty"`
}

// SetFields returns the names of the present fields in declaration order
func (p *QuotePatch) SetFields() []string {
	if p == nil {
		return nil
	}
	var fields []string
	add := func(present bool, name string) {
		if present {
			fields = append(fields, name)
		}
	}
	add(p.SurgeryCost != nil, FieldSurgeryCost)
	add(p.Diagnosis != nil, FieldDiagnosis)
	add(p.HotelID != nil, FieldHotelID)
	add(p.LogisticsFee != nil, FieldLogisticsFee)
	add(p.StayDays != nil, FieldStayDays)
	add(p.IncludeLogistics != nil, FieldIncludeLogistics)
	add(p.IncludeMealPlan != nil, FieldIncludeMealPlan)
	add(p.PatientName != nil, FieldPatientName)
	add(p.PatientPhone != nil, FieldPatientPhone)
	add(p.PatientEmail != nil, FieldPatientEmail)
	add(p.WhatsAppNumber != nil, FieldWhatsAppNumber)
	add(p.AppointmentDate != nil, FieldAppointmentDate)
	return fields
}

// NewQuote is a doctor-initiated intake request
type NewQuote struct {
	PatientID string      `json:"patient_id"`
	DoctorID  string      `json:"doctor_id"`
	Status    QuoteStatus `json:"status,omitempty"`
	QuotePatch
}

// CostBreakdown itemises a quote total
type CostBreakdown struct {
	Surgery   int64 `json:"surgery"`
	Hotel     int64 `json:"hotel"`
	Meals     int64 `json:"meals"`
	Logistics int64 `json:"logistics"`
	Total     int64 `json:"total"`
}
