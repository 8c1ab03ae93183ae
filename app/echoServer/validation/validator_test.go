package validation

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"movierental/model"
)

func TestFields_UsesJSONNames(t *testing.T) {
	v := New()

	err := v.Validate(model.GenreReq{Name: "abc"})
	require.Error(t, err)
	require.Equal(t, map[string]string{"name": "min=5"}, Fields(err))
}

func TestFields_MovieRanges(t *testing.T) {
	stock, rate := 300, 2.0
	err := Engine().Struct(model.MovieReq{
		Title:           "Inception",
		GenreID:         "not-a-uuid",
		NumberInStock:   &stock,
		DailyRentalRate: &rate,
	})
	require.Error(t, err)

	f := Fields(err)
	require.Equal(t, "uuid", f["genreId"])
	require.Equal(t, "lte=255", f["numberInStock"])
	require.NotContains(t, f, "dailyRentalRate")
}

func TestFields_ZeroStockAllowed(t *testing.T) {
	stock, rate := 0, 0.0
	err := Engine().Struct(model.MovieReq{
		Title:           "Inception",
		GenreID:         uuid.NewString(),
		NumberInStock:   &stock,
		DailyRentalRate: &rate,
	})
	require.NoError(t, err)
}

func TestFields_NonValidationError(t *testing.T) {
	require.Nil(t, Fields(nil))
}

func TestParamID(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	id := uuid.New()
	c.SetParamNames("id")
	c.SetParamValues(id.String())
	got, ok := ParamID(c, "id")
	require.True(t, ok)
	require.Equal(t, id, got)

	c.SetParamValues("42")
	_, ok = ParamID(c, "id")
	require.False(t, ok)
}

func TestBody(t *testing.T) {
	err := Engine().Struct(model.RentalReq{CustomerID: "x"})
	body := Body(err)
	require.Equal(t, "validation error", body["message"])
	require.Equal(t, map[string]string{"customerId": "uuid", "movieId": "required"}, body["errors"])

	require.Equal(t, echo.Map{"message": "invalid body"}, Body(echo.ErrBadRequest))
}
