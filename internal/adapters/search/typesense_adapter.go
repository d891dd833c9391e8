package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/tmvsalud/medtour/internal/domain/entities"
	"github.com/tmvsalud/medtour/internal/domain/repositories"
	tsclient "github.com/tmvsalud/medtour/internal/infrastructure/clients/typesense"
)

// DoctorsCollection is the typesense collection backing the doctor directory
const DoctorsCollection = "doctors"

// TypesenseAdapter implements doctor directory search using Typesense
type TypesenseAdapter struct {
	client *tsclient.Client
}

var _ repositories.DoctorSearchRepository = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// InitSchema ensures the collection exists
func (a *TypesenseAdapter) InitSchema(ctx context.Context) error {
	if _, err := a.client.Client().Collection(DoctorsCollection).Retrieve(ctx); err == nil {
		return nil
	}

	schema := &api.CollectionSchema{
		Name: DoctorsCollection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "user_id", Type: "string"},
			{Name: "name", Type: "string"},
			{Name: "specialty", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "tags", Type: "string[]", Optional: pointer.True()},
			{Name: "consultation_fee", Type: "int64"},
			{Name: "is_free_consultation", Type: "bool", Facet: pointer.True()},
			{Name: "created_at", Type: "int64"},
		},
		DefaultSortingField: pointer.String("created_at"),
	}

	if _, err := a.client.Client().Collections().Create(ctx, schema); err != nil {
		return fmt.Errorf("failed to create typesense collection: %w", err)
	}
	return nil
}

// DropSchema deletes the collection and every indexed document
func (a *TypesenseAdapter) DropSchema(ctx context.Context) error {
	if _, err := a.client.Client().Collection(DoctorsCollection).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete typesense collection: %w", err)
	}
	return nil
}

// Index upserts a doctor profile
func (a *TypesenseAdapter) Index(ctx context.Context, doctor *entities.DoctorProfile) error {
	if _, err := a.client.Client().Collection(DoctorsCollection).Documents().Upsert(ctx, doctorDocument(doctor)); err != nil {
		return fmt.Errorf("failed to index doctor: %w", err)
	}
	return nil
}

// Delete removes a doctor from the index
func (a *TypesenseAdapter) Delete(ctx context.Context, id string) error {
	if _, err := a.client.Client().Collection(DoctorsCollection).Document(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete doctor from index: %w", err)
	}
	return nil
}

// Search returns doctor ids ordered by text relevance
func (a *TypesenseAdapter) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	q := strings.TrimSpace(query)
	if q == "" {
		q = "*"
	}

	params := &api.SearchCollectionParams{
		Q:       pointer.String(q),
		QueryBy: pointer.String("name,specialty,tags"),
		PerPage: pointer.Int(limit),
		Page:    pointer.Int(1),
	}

	result, err := a.client.Client().Collection(DoctorsCollection).Documents().Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to search doctors: %w", err)
	}
	return hitIDs(result), nil
}

func doctorDocument(d *entities.DoctorProfile) map[string]interface{} {
	return map[string]interface{}{
		"id":                   d.ID,
		"user_id":              d.UserID,
		"name":                 d.Name,
		"specialty":            d.Specialty,
		"tags":                 buildDoctorTags(d),
		"consultation_fee":     d.ConsultationFee,
		"is_free_consultation": d.IsFreeConsultation,
		"created_at":           d.CreatedAt.Unix(),
	}
}

// buildDoctorTags lowercases the searchable words of a profile
func buildDoctorTags(d *entities.DoctorProfile) []string {
	if d == nil {
		return nil
	}
	raw := append(strings.Fields(d.Name), strings.Fields(d.Specialty)...)
	tags := lo.FilterMap(raw, func(word string, _ int) (string, bool) {
		word = strings.ToLower(strings.Trim(word, ".,"))
		return word, word != ""
	})
	return lo.Uniq(tags)
}

func hitIDs(result *api.SearchResult) []string {
	if result == nil || result.Hits == nil {
		return nil
	}
	ids := make([]string, 0, len(*result.Hits))
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		if id, ok := (*hit.Document)["id"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids
}
