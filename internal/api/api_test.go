package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"
	"travel_tax/internal/config"
	"travel_tax/internal/domain"
	"travel_tax/internal/metrics"
	"travel_tax/internal/middleware"
	"travel_tax/internal/receipts"
	"travel_tax/internal/store"
	"travel_tax/internal/testutils"
	"travel_tax/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	router http.Handler
	store  *store.Store
}

func testConfig() *config.Config {
	return &config.Config{
		APIPrefix:       "/v1",
		JWTSecret:       "test-secret-key",
		JWTTTL:          time.Hour,
		AdminUsernames:  []string{"admin"},
		LoginRatePerMin: 600,
		LoginBurst:      100,
	}
}

func newTestServer(t *testing.T, customize func(*Deps)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := store.New(testutils.NewTestDB(t), store.WithHashCost(bcrypt.MinCost))
	d := Deps{Config: testConfig(), Store: st, Metrics: metrics.New()}
	if customize != nil {
		customize(&d)
	}
	return &testServer{router: NewRouter(d), store: st}
}

// do sends body as JSON unless it is already a string
func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, "/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// signup registers username and returns its id and a bearer token
func (s *testServer) signup(t *testing.T, username string) (uint, string) {
	t.Helper()
	w := s.do(http.MethodPost, "/auth/register", "", gin.H{"username": username, "password": "secret123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var user domain.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))

	w = s.do(http.MethodPost, "/auth/login", "", gin.H{"username": username, "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tok TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tok))
	return user.ID, tok.AccessToken
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/authentication/register", "", gin.H{
		"username":   "Alice",
		"password":   "secret123",
		"email":      "alice@example.com",
		"citizen_id": "1234567890123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "password")
	user := decode[domain.User](t, w)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, domain.RoleUser, user.Role)

	w = s.do(http.MethodPost, "/auth/register", "", gin.H{"username": "alice", "password": "other123"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"Username already exists"}`, w.Body.String())

	w = s.do(http.MethodPost, "/auth/register", "", gin.H{"username": "bob", "password": "other123", "email": "alice@example.com"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"Email already exists"}`, w.Body.String())

	tests := []struct {
		name string
		body any
	}{
		{"short username", gin.H{"username": "ab", "password": "secret123"}},
		{"short password", gin.H{"username": "carol", "password": "123"}},
		{"bad email", gin.H{"username": "carol", "password": "secret123", "email": "nope"}},
		{"bad citizen id", gin.H{"username": "carol", "password": "secret123", "citizen_id": "12ab"}},
		{"malformed", "{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/auth/register", "", tt.body).Code)
		})
	}

	// form-encoded login
	form := url.Values{"username": {"alice"}, "password": {"secret123"}}
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	tok := decode[TokenResponse](t, w)
	assert.Equal(t, "bearer", tok.TokenType)
	claims, err := utils.ParseJWT(tok.AccessToken, "test-secret-key")
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)

	w = s.do(http.MethodPost, "/auth/login", "", gin.H{"username": "alice", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, w.Body.String())

	w = s.do(http.MethodPost, "/auth/login", "", gin.H{"username": "nobody", "password": "secret123"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, w.Body.String())
}

func TestAdminUsernameGetsAdminRole(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(http.MethodPost, "/auth/register", "", gin.H{"username": "admin", "password": "secret123"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, domain.RoleAdmin, decode[domain.User](t, w).Role)
}

func TestLoginRateLimited(t *testing.T) {
	s := newTestServer(t, func(d *Deps) { d.Limiter = middleware.NewRateLimiter(1, 2) })
	body := gin.H{"username": "nobody", "password": "secret123"}
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/auth/login", "", body).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/auth/login", "", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, s.do(http.MethodPost, "/auth/login", "", body).Code)
}

func TestDeletedUserTokenRejected(t *testing.T) {
	s := newTestServer(t, nil)
	id, token := s.signup(t, "alice")

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/users", token, nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/users/"+strconv.Itoa(int(id)), token, nil).Code)

	w := s.do(http.MethodGet, "/users", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"User not found"}`, w.Body.String())
}

func TestUserUpdatePermissions(t *testing.T) {
	s := newTestServer(t, nil)
	aliceID, aliceToken := s.signup(t, "alice")
	_, bobToken := s.signup(t, "bob")
	_, adminToken := s.signup(t, "admin")
	path := "/users/" + strconv.Itoa(int(aliceID))

	w := s.do(http.MethodPatch, path, bobToken, gin.H{"phone": "0812345678"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodDelete, path, bobToken, nil).Code)

	w = s.do(http.MethodPatch, path, aliceToken, gin.H{"phone": "0812345678", "password": "newsecret"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "0812345678", decode[domain.User](t, w).Phone)

	w = s.do(http.MethodPost, "/auth/login", "", gin.H{"username": "alice", "password": "newsecret"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPatch, path, aliceToken, gin.H{"email": "alice@example.com", "citizen_id": "1234567890123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, decode[domain.User](t, w).Email)

	// empty strings clear optional identifiers
	w = s.do(http.MethodPatch, path, aliceToken, gin.H{"email": "", "citizen_id": ""})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cleared := decode[domain.User](t, w)
	assert.Nil(t, cleared.Email)
	assert.Nil(t, cleared.CitizenID)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPatch, path, aliceToken, gin.H{"email": "nope"}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPatch, path, aliceToken, gin.H{"citizen_id": "12ab"}).Code)

	w = s.do(http.MethodPatch, path, adminToken, gin.H{"username": "bob"})
	assert.Equal(t, http.StatusConflict, w.Code)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/users/9999", aliceToken, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/users/abc", aliceToken, nil).Code)
}

func TestProvinceDerivation(t *testing.T) {
	s := newTestServer(t, nil)
	_, adminToken := s.signup(t, "admin")
	_, userToken := s.signup(t, "alice")

	w := s.do(http.MethodPost, "/provinces", userToken, gin.H{"name": "Nan", "category": "secondary"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/provinces", adminToken, []gin.H{
		{"name": "Bangkok", "category": "primary", "discount_rate": 0.9},
		{"name": "Nan", "category": "secondary"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[[]domain.Province](t, w)
	require.Len(t, created, 2)
	assert.InDelta(t, 0.10, created[0].DiscountRate, 1e-9) // explicit rate ignored
	assert.True(t, created[0].IsPrimary)
	assert.InDelta(t, 0.20, created[1].DiscountRate, 1e-9)
	assert.True(t, created[1].IsSecondary)

	w = s.do(http.MethodPost, "/provinces", adminToken, gin.H{"name": "Trat", "category": "target", "discount_rate": 0.35})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	target := decode[domain.Province](t, w)
	assert.InDelta(t, 0.35, target.DiscountRate, 1e-9)
	assert.True(t, target.IsTarget)
	assert.False(t, target.IsSelected)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/provinces", adminToken, gin.H{"name": "X", "category": "capital"}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/provinces", adminToken, gin.H{"name": "X", "category": "target", "discount_rate": 1.5}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/provinces", adminToken, gin.H{"category": "target"}).Code)

	// primary -> secondary -> target
	path := "/provinces/" + strconv.Itoa(int(created[0].ID))
	w = s.do(http.MethodPatch, path, adminToken, gin.H{"category": "secondary"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	p := decode[domain.Province](t, w)
	assert.InDelta(t, 0.20, p.DiscountRate, 1e-9)
	assert.Equal(t, []bool{false, true, false}, []bool{p.IsPrimary, p.IsSecondary, p.IsTarget})

	w = s.do(http.MethodPut, path, adminToken, gin.H{"name": "Bangkok", "category": "target"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	p = decode[domain.Province](t, w)
	assert.InDelta(t, 0.0, p.DiscountRate, 1e-9)
	assert.Equal(t, []bool{false, false, true}, []bool{p.IsPrimary, p.IsSecondary, p.IsTarget})

	w = s.do(http.MethodGet, "/provinces", userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.Province](t, w), 3)
}

func TestTaxReductions(t *testing.T) {
	s := newTestServer(t, nil)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/tax-reductions", "", nil).Code)

	_, adminToken := s.signup(t, "admin")
	w := s.do(http.MethodPost, "/provinces", adminToken, []gin.H{
		{"name": "Bangkok", "category": "primary"},
		{"name": "Nan", "category": "secondary"},
		{"name": "Phrae", "category": "secondary"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/tax-reductions", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.TaxReduction](t, w), 3)

	w = s.do(http.MethodGet, "/tax-reductions/secondary", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	views := decode[[]domain.TaxReduction](t, w)
	require.Len(t, views, 2)
	assert.Equal(t, "Nan", views[0].ProvinceName)
	assert.InDelta(t, 0.20, views[0].DiscountRate, 1e-9)

	w = s.do(http.MethodGet, "/tax-reductions/primary", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.TaxReduction](t, w), 1)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/tax-reductions/target", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/tax-reductions/capital", "", nil).Code)
}

func TestTaxReductionsCacheInvalidatedOnWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	s := newTestServer(t, func(d *Deps) { d.Cache = utils.NewCache(rdb, time.Minute) })

	_, adminToken := s.signup(t, "admin")
	w := s.do(http.MethodPost, "/provinces", adminToken, gin.H{"name": "Nan", "category": "secondary"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[domain.Province](t, w).ID

	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/tax-reductions/secondary", "", nil).Code)
	assert.True(t, mr.Exists("provinces:tax-reductions:secondary"))

	w = s.do(http.MethodPatch, "/provinces/"+strconv.Itoa(int(id)), adminToken, gin.H{"category": "primary"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, mr.Exists("provinces:tax-reductions:secondary"))

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/tax-reductions/secondary", "", nil).Code)
}

func TestSelections(t *testing.T) {
	s := newTestServer(t, nil)
	_, adminToken := s.signup(t, "admin")
	_, aliceToken := s.signup(t, "alice")
	_, bobToken := s.signup(t, "bob")

	w := s.do(http.MethodPost, "/provinces", adminToken, gin.H{"name": "Trat", "category": "target", "discount_rate": 0.3})
	require.Equal(t, http.StatusCreated, w.Code)
	province := decode[domain.Province](t, w)

	w = s.do(http.MethodPost, "/profile/selections", aliceToken, gin.H{"province_id": province.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sel := decode[domain.SelectionView](t, w)
	assert.Equal(t, "alice", sel.Username)
	assert.Equal(t, "Trat", sel.ProvinceName)
	assert.True(t, sel.IsTarget)

	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/profile/selections", aliceToken, gin.H{"province_id": province.ID}).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/profile/selections", aliceToken, gin.H{"province_id": 9999}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/profile/selections", aliceToken, gin.H{}).Code)

	w = s.do(http.MethodGet, "/provinces/"+strconv.Itoa(int(province.ID)), aliceToken, nil)
	assert.True(t, decode[domain.Province](t, w).IsSelected)

	w = s.do(http.MethodGet, "/profile/selections", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]domain.SelectionView](t, w))

	selPath := "/profile/selections/" + strconv.Itoa(int(sel.ID))
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, selPath, bobToken, nil).Code)

	provincePath := "/provinces/" + strconv.Itoa(int(province.ID))
	assert.Equal(t, http.StatusConflict, s.do(http.MethodDelete, provincePath, adminToken, nil).Code)

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, selPath, aliceToken, nil).Code)
	w = s.do(http.MethodGet, provincePath, aliceToken, nil)
	assert.False(t, decode[domain.Province](t, w).IsSelected)

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, provincePath, adminToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, provincePath, aliceToken, nil).Code)
}

func registrationBody(year int) gin.H {
	return gin.H{
		"full_name":            "Alice Example",
		"citizen_id":           "1234567890123",
		"tax_year":             year,
		"primary_province_id":  1,
		"travel_start_date":    "2024-03-01",
		"travel_end_date":      "2024-03-05",
		"tax_reduction_amount": 1500,
		"receipt_urls":         []string{"https://example.com/r/1.jpg", "https://example.com/r/2.jpg"},
	}
}

func TestRegistrations(t *testing.T) {
	s := newTestServer(t, nil)
	_, aliceToken := s.signup(t, "alice")
	_, bobToken := s.signup(t, "bob")
	_, adminToken := s.signup(t, "admin")

	w := s.do(http.MethodPost, "/registrations", aliceToken, registrationBody(2024))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reg := decode[domain.Registration](t, w)
	assert.Equal(t, []string{"https://example.com/r/1.jpg", "https://example.com/r/2.jpg"}, reg.ReceiptURLs)
	assert.Equal(t, "2024-03-01", reg.TravelStartDate.String())

	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/registrations", aliceToken, registrationBody(2023)).Code)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/registrations", bobToken, registrationBody(2024)).Code)

	w = s.do(http.MethodGet, "/registrations?tax_year=2024", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	regs := decode[[]domain.Registration](t, w)
	require.Len(t, regs, 1)
	assert.Equal(t, 2024, regs[0].TaxYear)

	w = s.do(http.MethodGet, "/registrations?tax_year=2024", adminToken, nil)
	assert.Len(t, decode[[]domain.Registration](t, w), 2)
	w = s.do(http.MethodGet, "/registrations?skip=1&limit=1", adminToken, nil)
	assert.Len(t, decode[[]domain.Registration](t, w), 1)
	w = s.do(http.MethodGet, "/registrations?limit=0", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
	w = s.do(http.MethodGet, "/registrations", adminToken, nil)
	assert.Len(t, decode[[]domain.Registration](t, w), 3)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/registrations?tax_year=abc", aliceToken, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/registrations?skip=-1", aliceToken, nil).Code)

	path := "/registrations/" + strconv.Itoa(int(reg.ID))
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, path, bobToken, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, path, adminToken, nil).Code)

	w = s.do(http.MethodPatch, path, aliceToken, gin.H{"tax_reduction_amount": 2000})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[domain.Registration](t, w)
	assert.Equal(t, int64(2000), updated.TaxReductionAmount)
	assert.Equal(t, 2024, updated.TaxYear)
	assert.False(t, updated.UpdatedAt.Before(reg.UpdatedAt))

	w = s.do(http.MethodPatch, path, aliceToken, gin.H{"secondary_province_id": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	withSecondary := decode[domain.Registration](t, w)
	require.NotNil(t, withSecondary.SecondaryProvinceID)
	assert.Equal(t, uint(3), *withSecondary.SecondaryProvinceID)

	// absent leaves it alone, explicit null clears it
	w = s.do(http.MethodPatch, path, aliceToken, gin.H{"full_name": "Alice E."})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, decode[domain.Registration](t, w).SecondaryProvinceID)
	w = s.do(http.MethodPatch, path, aliceToken, `{"secondary_province_id":null}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Nil(t, decode[domain.Registration](t, w).SecondaryProvinceID)
	w = s.do(http.MethodGet, path, aliceToken, nil)
	assert.Nil(t, decode[domain.Registration](t, w).SecondaryProvinceID)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPatch, path, aliceToken, `{"secondary_province_id":"x"}`).Code)

	w = s.do(http.MethodPut, path, aliceToken, gin.H{"travel_end_date": "2024-02-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"travel_start_date must not be after travel_end_date"}`, w.Body.String())

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, path, bobToken, nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, path, aliceToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, path, aliceToken, nil).Code)
}

func TestCreateRegistrationValidation(t *testing.T) {
	s := newTestServer(t, nil)
	_, token := s.signup(t, "alice")

	tests := []struct {
		name   string
		mutate func(gin.H)
	}{
		{"year too low", func(b gin.H) { b["tax_year"] = 1999 }},
		{"missing year", func(b gin.H) { delete(b, "tax_year") }},
		{"negative amount", func(b gin.H) { b["tax_reduction_amount"] = -1 }},
		{"missing amount", func(b gin.H) { delete(b, "tax_reduction_amount") }},
		{"end before start", func(b gin.H) { b["travel_end_date"] = "2024-02-28" }},
		{"missing dates", func(b gin.H) { delete(b, "travel_start_date") }},
		{"bad date", func(b gin.H) { b["travel_start_date"] = "01/03/2024" }},
		{"relative receipt", func(b gin.H) { b["receipt_urls"] = []string{"/r/1.jpg"} }},
		{"short citizen id", func(b gin.H) { b["citizen_id"] = "123" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := registrationBody(2024)
			tt.mutate(body)
			assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/registrations", token, body).Code)
		})
	}
}

type fakePresigner struct {
	err error
}

func (f fakePresigner) PresignUpload(_ context.Context, userID uint, filename string) (receipts.Upload, error) {
	if f.err != nil {
		return receipts.Upload{}, f.err
	}
	key := receipts.ObjectKey(userID, filename, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	return receipts.Upload{Key: key, UploadURL: "https://bucket.example.com/" + key, ExpiresAt: time.Now().Add(time.Minute)}, nil
}

func TestReceiptUpload(t *testing.T) {
	s := newTestServer(t, nil)
	_, token := s.signup(t, "alice")
	w := s.do(http.MethodPost, "/registrations/receipts", token, gin.H{"filename": "bill.jpg"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	s = newTestServer(t, func(d *Deps) { d.Receipts = fakePresigner{} })
	userID, token := s.signup(t, "alice")
	w = s.do(http.MethodPost, "/registrations/receipts", token, gin.H{"filename": "bill.jpg"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	upload := decode[receipts.Upload](t, w)
	assert.True(t, strings.HasPrefix(upload.Key, "receipts/"+strconv.Itoa(int(userID))+"/2024/03/"))
	assert.True(t, strings.HasSuffix(upload.Key, ".jpg"))
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/registrations/receipts", token, gin.H{}).Code)

	s = newTestServer(t, func(d *Deps) { d.Receipts = fakePresigner{err: errors.New("s3 down")} })
	_, token = s.signup(t, "alice")
	w = s.do(http.MethodPost, "/registrations/receipts", token, gin.H{"filename": "bill.jpg"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)
	s.signup(t, "alice")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "travel_tax_users_registered_total 1")
	assert.Contains(t, w.Body.String(), `route="/v1/auth/register"`)
}
