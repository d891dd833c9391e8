package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/typesense/typesense-go/v2/typesense/api"

	"github.com/tmvsalud/medtour/internal/domain/entities"
)

func TestBuildDoctorTags(t *testing.T) {
	doctor := &entities.DoctorProfile{
		Name:      "Dr. Ricardo Perez",
		Specialty: "Plastic Surgery",
	}

	assert.Equal(t, []string{"dr", "ricardo", "perez", "plastic", "surgery"}, buildDoctorTags(doctor))
}

func TestBuildDoctorTagsNil(t *testing.T) {
	assert.Nil(t, buildDoctorTags(nil))
}

func TestDoctorDocument(t *testing.T) {
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	doc := doctorDocument(&entities.DoctorProfile{
		ID:              "d1",
		UserID:          "u1",
		Name:            "Dr. Ricardo Perez",
		ConsultationFee: 100,
		CreatedAt:       created,
	})

	assert.Equal(t, "d1", doc["id"])
	assert.Equal(t, int64(100), doc["consultation_fee"])
	assert.Equal(t, created.Unix(), doc["created_at"])
}

func TestHitIDs(t *testing.T) {
	hits := []api.SearchResultHit{
		{Document: &map[string]interface{}{"id": "d2"}},
		{Document: nil},
		{Document: &map[string]interface{}{"id": "d1"}},
	}

	assert.Equal(t, []string{"d2", "d1"}, hitIDs(&api.SearchResult{Hits: &hits}))
	assert.Nil(t, hitIDs(nil))
}
