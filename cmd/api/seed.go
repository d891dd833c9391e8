package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/tmvsalud/medtour/internal/domain/entities"
	apperrors "github.com/tmvsalud/medtour/pkg/errors"
)

// Demo identities. Authentication happens upstream; these are the ids the
// gateway would assert in X-User-ID.
const (
	seedAdminID   = "admin"
	seedDoctorID  = "dr.sculpture"
	seedPatientID = "jane.doe"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo doctor, hotels and quote",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			return seedAll(cmd.Context(), a)
		},
	}
}

// seedAll writes the demo data once. A store that already holds the demo
// doctor is left untouched.
func seedAll(ctx context.Context, a *app) error {
	if _, err := a.doctors.GetByID(ctx, seedDoctorID); err == nil {
		log.Info().Msg("seed data already present, skipping")
		return nil
	} else if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return fmt.Errorf("failed to check seed data: %w", err)
	}

	admin := entities.Actor{Role: entities.RoleAdmin, UserID: seedAdminID}
	doctor := entities.Actor{Role: entities.RoleDoctor, UserID: seedDoctorID}

	profile := &entities.DoctorProfile{
		UserID:          seedDoctorID,
		Name:            "Dr. Ricardo Perez",
		Specialty:       "Plastic Surgery",
		BioEs:           "Especialista en cirugía reconstructiva y estética con más de 15 años de experiencia.",
		BioEn:           "Specialist in reconstructive and aesthetic surgery with over 15 years of experience.",
		ImageURLs:       []string{"https://placehold.co/600x400?text=Dr+Perez"},
		ConsultationFee: 100,
	}
	if err := a.catalogService.CreateDoctor(ctx, doctor, profile); err != nil {
		return fmt.Errorf("failed to seed doctor: %w", err)
	}

	hotels := []*entities.HotelAlliance{
		{
			Name:          "Hotel Eurobuilding Express",
			PricePerNight: 120,
			MealPrice:     40,
			DescriptionEs: "Lujo y confort en el corazón de la ciudad.",
			DescriptionEn: "Luxury and comfort in the heart of the city.",
			ImageURLs:     []string{"https://placehold.co/600x400?text=Eurobuilding"},
			Amenities:     []string{"WiFi", "Pool", "Gym", "Breakfast"},
		},
		{
			Name:          "Hotel Tamanaco Intercontinental",
			PricePerNight: 180,
			MealPrice:     60,
			DescriptionEs: "Icono de la hotelería venezolana con vistas al Ávila.",
			DescriptionEn: "Icon of Venezuelan hospitality with views of the Avila.",
			ImageURLs:     []string{"https://placehold.co/600x400?text=Tamanaco"},
			Amenities:     []string{"WiFi", "Pool", "Spa", "Casino"},
		},
	}
	for _, hotel := range hotels {
		if err := a.catalogService.CreateHotel(ctx, admin, hotel); err != nil {
			return fmt.Errorf("failed to seed hotel %s: %w", hotel.Name, err)
		}
	}

	quote, err := a.quoteService.Create(ctx, doctor, entities.NewQuote{
		PatientID: seedPatientID,
		DoctorID:  seedDoctorID,
		Status:    entities.QuoteStatusReview,
		QuotePatch: entities.QuotePatch{
			SurgeryCost: lo.ToPtr(int64(3500)),
			Diagnosis:   lo.ToPtr("Rhinoplasty required."),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to seed quote: %w", err)
	}

	log.Info().
		Str("doctor_id", profile.ID).
		Strs("hotel_ids", lo.Map(hotels, func(h *entities.HotelAlliance, _ int) string { return h.ID })).
		Str("quote_id", quote.ID).
		Msg("database seeded")
	return nil
}
