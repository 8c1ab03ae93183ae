package echoServer_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"movierental/app/echoServer"
	"movierental/app/echoServer/controller/auth"
	"movierental/app/echoServer/controller/customer"
	"movierental/app/echoServer/controller/genre"
	"movierental/app/echoServer/controller/movie"
	"movierental/app/echoServer/controller/rental"
	"movierental/app/echoServer/validation"
	"movierental/repository/memory"
	authsvc "movierental/service/auth"
	catalogsvc "movierental/service/catalog"
	customersvc "movierental/service/customer"
	rentalsvc "movierental/service/rental"
	"movierental/util/jwt"
	"movierental/util/metrics"
)

type harness struct {
	e     *echo.Echo
	user  string
	admin string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	log := slog.New(slog.DiscardHandler)
	st := memory.NewStore()
	signer := jwt.NewSigner("test-secret", time.Hour)
	col := metrics.New()
	v := validation.Engine()

	cat := catalogsvc.New(st)
	e := echoServer.New(log, col)
	echoServer.Register(e, echoServer.C{
		Auth:     &auth.Controller{Svc: authsvc.New(st, signer), V: v, Log: log},
		Genre:    &genre.Controller{Svc: cat, V: v, Log: log},
		Movie:    &movie.Controller{Svc: cat, V: v, Log: log},
		Customer: &customer.Controller{Svc: customersvc.New(st), V: v, Log: log},
		Rental:   &rental.Controller{Svc: rentalsvc.New(st, rentalsvc.WithMetrics(col)), V: v, Log: log},
		Tokens:   signer,
		Metrics:  col,
		Ping:     st.Ping,
	})

	user, err := signer.Issue(uuid.New(), false)
	require.NoError(t, err)
	admin, err := signer.Issue(uuid.New(), true)
	require.NoError(t, err)

	return &harness{e: e, user: user, admin: admin}
}

func (h *harness) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	out := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (h *harness) seedMovie(t *testing.T, stock int, rate float64) (movieID string) {
	t.Helper()

	rec := h.do(t, http.MethodPost, "/api/genres", map[string]any{"name": "Science Fiction"}, h.user)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	genreID := decode(t, rec)["_id"].(string)

	rec = h.do(t, http.MethodPost, "/api/movies", map[string]any{
		"title":           "Interstellar",
		"genreId":         genreID,
		"numberInStock":   stock,
		"dailyRentalRate": rate,
	}, h.user)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	m := decode(t, rec)
	require.Equal(t, "Science Fiction", m["genre"].(map[string]any)["name"])
	return m["_id"].(string)
}

func (h *harness) seedCustomer(t *testing.T, name string) string {
	t.Helper()

	rec := h.do(t, http.MethodPost, "/api/customers", map[string]any{"name": name, "phone": "0812345678"}, h.user)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode(t, rec)["_id"].(string)
}

// --- tests ---

func TestHealth(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decode(t, rec)["status"])
}

func TestRentalLifecycle(t *testing.T) {
	h := newHarness(t)
	movieID := h.seedMovie(t, 1, 2)
	alice := h.seedCustomer(t, "Alice Liddell")
	bob := h.seedCustomer(t, "Bob Belcher")

	rec := h.do(t, http.MethodPost, "/api/rentals", map[string]any{"customerId": alice, "movieId": movieID}, h.user)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	r := decode(t, rec)
	require.Equal(t, alice, r["customer"].(map[string]any)["_id"])
	require.Equal(t, "Interstellar", r["movie"].(map[string]any)["title"])
	require.NotContains(t, r, "dateReturned")
	rentalID := r["_id"].(string)

	rec = h.do(t, http.MethodPost, "/api/rentals", map[string]any{"customerId": bob, "movieId": movieID}, h.user)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Movie not in stock.", decode(t, rec)["message"])

	rec = h.do(t, http.MethodGet, "/api/movies/"+movieID, nil, "")
	require.Equal(t, float64(0), decode(t, rec)["numberInStock"])

	rec = h.do(t, http.MethodGet, "/api/rentals/"+rentalID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/rentals/lookup?customerId="+alice+"&movieId="+movieID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, rentalID, decode(t, rec)["_id"])

	rec = h.do(t, http.MethodPost, "/api/returns", map[string]any{"customerId": alice, "movieId": movieID}, h.user)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	closed := decode(t, rec)
	require.Contains(t, closed, "dateReturned")
	require.Equal(t, float64(2), closed["rentalFee"])

	rec = h.do(t, http.MethodPost, "/api/returns", map[string]any{"customerId": alice, "movieId": movieID}, h.user)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Return already processed.", decode(t, rec)["message"])

	rec = h.do(t, http.MethodGet, "/api/movies/"+movieID, nil, "")
	require.Equal(t, float64(1), decode(t, rec)["numberInStock"])

	rec = h.do(t, http.MethodGet, "/api/rentals", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
}

func TestCheckout_InvalidReference(t *testing.T) {
	h := newHarness(t)
	movieID := h.seedMovie(t, 3, 1)

	rec := h.do(t, http.MethodPost, "/api/rentals", map[string]any{"customerId": uuid.NewString(), "movieId": movieID}, h.user)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid customer.", decode(t, rec)["message"])

	alice := h.seedCustomer(t, "Alice Liddell")
	rec = h.do(t, http.MethodPost, "/api/rentals", map[string]any{"customerId": alice, "movieId": uuid.NewString()}, h.user)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid movie.", decode(t, rec)["message"])
}

func TestCheckout_AlreadyRented(t *testing.T) {
	h := newHarness(t)
	movieID := h.seedMovie(t, 3, 1)
	alice := h.seedCustomer(t, "Alice Liddell")

	body := map[string]any{"customerId": alice, "movieId": movieID}
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/rentals", body, h.user).Code)

	rec := h.do(t, http.MethodPost, "/api/rentals", body, h.user)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Rental already processed.", decode(t, rec)["message"])
}

func TestReturn_NotFound(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/returns", map[string]any{"customerId": uuid.NewString(), "movieId": uuid.NewString()}, h.user)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Rental not found.", decode(t, rec)["message"])
}

func TestAuthRequired(t *testing.T) {
	h := newHarness(t)
	body := map[string]any{"customerId": uuid.NewString(), "movieId": uuid.NewString()}

	rec := h.do(t, http.MethodPost, "/api/rentals", body, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Access denied. No token provided.", decode(t, rec)["message"])

	rec = h.do(t, http.MethodPost, "/api/rentals", body, "garbage")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Invalid token.", decode(t, rec)["message"])

	other := jwt.NewSigner("other-secret", time.Hour)
	forged, err := other.Issue(uuid.New(), true)
	require.NoError(t, err)
	rec = h.do(t, http.MethodPost, "/api/genres", map[string]any{"name": "Thriller"}, forged)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRequiredForDelete(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodPost, "/api/genres", map[string]any{"name": "Documentary"}, h.user)
	require.Equal(t, http.StatusOK, rec.Code)
	id := decode(t, rec)["_id"].(string)

	rec = h.do(t, http.MethodDelete, "/api/genres/"+id, nil, h.user)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodDelete, "/api/genres/"+id, nil, h.admin)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Documentary", decode(t, rec)["name"])

	rec = h.do(t, http.MethodGet, "/api/genres/"+id, nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "The genre with the given ID was not found.", decode(t, rec)["message"])
}

func TestMalformedIDs(t *testing.T) {
	h := newHarness(t)

	for _, p := range []string{"/api/genres/1", "/api/movies/abc", "/api/customers/x", "/api/rentals/42"} {
		rec := h.do(t, http.MethodGet, p, nil, "")
		require.Equal(t, http.StatusNotFound, rec.Code, p)
	}

	rec := h.do(t, http.MethodPost, "/api/rentals", map[string]any{"customerId": "abc", "movieId": uuid.NewString()}, h.user)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "uuid", decode(t, rec)["errors"].(map[string]any)["customerId"])
}

func TestValidation(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/genres", map[string]any{"name": "abc"}, h.user)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/movies", map[string]any{
		"title":           "Interstellar",
		"genreId":         uuid.NewString(),
		"numberInStock":   1,
		"dailyRentalRate": 1,
	}, h.user)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid genre.", decode(t, rec)["message"])

	req := httptest.NewRequest(http.MethodPost, "/api/customers", strings.NewReader("{not json"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+h.user)
	rr := httptest.NewRecorder()
	h.e.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRegisterLoginMe(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/users", map[string]any{
		"name":     "Halim Iskandar",
		"email":    "halim@example.com",
		"password": "secret123",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	u := decode(t, rec)
	require.Equal(t, "halim@example.com", u["email"])
	require.NotContains(t, u, "PasswordHash")
	require.NotEmpty(t, rec.Header().Get(auth.HeaderAuthToken))

	rec = h.do(t, http.MethodPost, "/api/users", map[string]any{
		"name":     "Halim Again",
		"email":    "HALIM@example.com",
		"password": "secret123",
	}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "User already registered.", decode(t, rec)["message"])

	rec = h.do(t, http.MethodPost, "/api/auth", map[string]any{"email": "halim@example.com", "password": "wrong-pass"}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid email or password.", decode(t, rec)["message"])

	rec = h.do(t, http.MethodPost, "/api/auth", map[string]any{"email": "halim@example.com", "password": "secret123"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode(t, rec)["token"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set(auth.HeaderAuthToken, token)
	rr := httptest.NewRecorder()
	h.e.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, u["_id"], decode(t, rr)["_id"])
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	h.do(t, http.MethodPost, "/api/returns", map[string]any{"customerId": uuid.NewString(), "movieId": uuid.NewString()}, h.user)

	rec := h.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "http_requests_total")
	require.Contains(t, body, `rental_operations_total{operation="return",outcome="not_found"} 1`)
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/nope", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Not Found", decode(t, rec)["message"])
}
