package loaders

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tmvsalud/medtour/internal/domain/entities"
)

type MockHotelRepository struct {
	mock.Mock
}

func (m *MockHotelRepository) Create(ctx context.Context, hotel *entities.HotelAlliance) error {
	return m.Called(ctx, hotel).Error(0)
}

func (m *MockHotelRepository) GetByID(ctx context.Context, id string) (*entities.HotelAlliance, error) {
	args := m.Called(ctx, id)
	if h := args.Get(0); h != nil {
		return h.(*entities.HotelAlliance), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockHotelRepository) GetByIDs(ctx context.Context, ids []string) ([]*entities.HotelAlliance, error) {
	args := m.Called(ctx, ids)
	if h := args.Get(0); h != nil {
		return h.([]*entities.HotelAlliance), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockHotelRepository) List(ctx context.Context, limit, offset int) ([]*entities.HotelAlliance, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*entities.HotelAlliance), args.Error(1)
}

func (m *MockHotelRepository) Update(ctx context.Context, hotel *entities.HotelAlliance) error {
	return m.Called(ctx, hotel).Error(0)
}

func (m *MockHotelRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func quoteWithHotel(id, hotelID string) *entities.Quote {
	q := &entities.Quote{ID: id}
	if hotelID != "" {
		q.HotelID = &hotelID
	}
	return q
}

func TestHotelSummaries_BatchesDistinctIDs(t *testing.T) {
	repo := new(MockHotelRepository)
	repo.On("GetByIDs", mock.Anything, mock.MatchedBy(func(ids []string) bool {
		return len(ids) == 3
	})).Return([]*entities.HotelAlliance{
		{ID: "hotel-1", Name: "Hotel Eurobuilding Express", PricePerNight: 120, MealPrice: 40},
		{ID: "hotel-2", Name: "Hotel Tamanaco Intercontinental", PricePerNight: 180, MealPrice: 60},
	}, nil).Once()

	quotes := []*entities.Quote{
		quoteWithHotel("q1", "hotel-1"),
		quoteWithHotel("q2", "hotel-2"),
		quoteWithHotel("q3", "hotel-1"),
		quoteWithHotel("q4", ""),
		quoteWithHotel("q5", "hotel-gone"),
	}

	summaries, err := NewLoaders(repo).HotelSummaries(context.Background(), quotes)
	require.NoError(t, err)

	assert.Len(t, summaries, 2)
	assert.Equal(t, "Hotel Eurobuilding Express", summaries["hotel-1"].Name)
	assert.Equal(t, int64(60), summaries["hotel-2"].MealPrice)
	repo.AssertNumberOfCalls(t, "GetByIDs", 1)
}

func TestHotelSummaries_PropagatesStoreErrors(t *testing.T) {
	repo := new(MockHotelRepository)
	repo.On("GetByIDs", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	_, err := NewLoaders(repo).HotelSummaries(context.Background(), []*entities.Quote{quoteWithHotel("q1", "hotel-1")})
	assert.Error(t, err)
}

func TestMiddleware_AttachesLoaders(t *testing.T) {
	var attached *Loaders
	handler := Middleware(new(MockHotelRepository))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attached = For(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/quotes", nil))

	require.NotNil(t, attached)
	assert.NotNil(t, attached.HotelLoader)
	assert.Nil(t, For(context.Background()))
}
