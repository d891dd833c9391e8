// Package pricing computes quote totals from surgery, lodging, meals and logistics.
package pricing

import (
	"math"

	"github.com/tmvsalud/medtour/internal/domain/entities"
	apperrors "github.com/tmvsalud/medtour/pkg/errors"
)

// Inputs are the Cost Calculator arguments in whole currency units.
// A zero value means "not set" and contributes nothing.
type Inputs struct {
	SurgeryCost      int64
	HotelRate        int64
	MealRate         int64
	StayDays         int64
	IncludeMeals     bool
	IncludeLogistics bool
	LogisticsFee     int64
}

// Breakdown is an itemised total
type Breakdown = entities.CostBreakdown

// Calculate returns
//
//	surgery + hotelRate*stayDays + (meals ? mealRate*stayDays : 0) + (logistics ? fee : 0)
func Calculate(in Inputs) (Breakdown, error) {
	for _, v := range []struct {
		field string
		value int64
	}{
		{entities.FieldSurgeryCost, in.SurgeryCost},
		{"price_per_night", in.HotelRate},
		{"meal_price", in.MealRate},
		{entities.FieldStayDays, in.StayDays},
		{entities.FieldLogisticsFee, in.LogisticsFee},
	} {
		if v.value < 0 {
			return Breakdown{}, apperrors.NewInvalidInputError(v.field, v.field+" must not be negative")
		}
	}

	b := Breakdown{Surgery: in.SurgeryCost}

	var ok bool
	if b.Hotel, ok = mul(in.HotelRate, in.StayDays); !ok {
		return Breakdown{}, overflow(entities.FieldStayDays)
	}
	if in.IncludeMeals {
		if b.Meals, ok = mul(in.MealRate, in.StayDays); !ok {
			return Breakdown{}, overflow(entities.FieldStayDays)
		}
	}
	if in.IncludeLogistics {
		b.Logistics = in.LogisticsFee
	}

	total := b.Surgery
	for _, part := range []int64{b.Hotel, b.Meals, b.Logistics} {
		if total > math.MaxInt64-part {
			return Breakdown{}, overflow("total_cost")
		}
		total += part
	}
	b.Total = total

	return b, nil
}

// InputsFor resolves calculator inputs from a quote, using the hotel rates
// captured on it rather than the current catalog.
func InputsFor(quote *entities.Quote) Inputs {
	return Inputs{
		SurgeryCost:      quote.SurgeryCost,
		HotelRate:        quote.HotelRate,
		MealRate:         quote.MealRate,
		StayDays:         quote.StayDays,
		IncludeMeals:     quote.IncludeMealPlan,
		IncludeLogistics: quote.IncludeLogistics,
		LogisticsFee:     quote.LogisticsFee,
	}
}

// mul multiplies two non-negative values, reporting false on overflow
func mul(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt64/b {
		return 0, false
	}
	return a * b, true
}

func overflow(field string) error {
	return apperrors.NewInvalidInputError(field, "amount exceeds the supported range")
}
