package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/webstream-tools/pwi-gateway/internal/portal"
	"github.com/webstream-tools/pwi-gateway/internal/scrape"
	"github.com/webstream-tools/pwi-gateway/internal/session"
	"github.com/webstream-tools/pwi-gateway/internal/static"
	"github.com/webstream-tools/pwi-gateway/pkg/models"
)

type fakeSessions struct {
	token    string
	img      []byte
	loginErr error
	logouts  int
}

func (f *fakeSessions) IssueChallenge(ctx context.Context, identifier string) ([]byte, error) {
	return f.img, nil
}

func (f *fakeSessions) FinalizeLogin(ctx context.Context, identifier, secret, answer string) (string, error) {
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return f.token, nil
}

func (f *fakeSessions) ReloginChallenge(ctx context.Context, token string) ([]byte, error) {
	return f.img, nil
}

func (f *fakeSessions) FinalizeRelogin(ctx context.Context, token, answer string) (string, error) {
	return f.token + "-rotated", nil
}

func (f *fakeSessions) Logout(ctx context.Context, token string) error {
	f.logouts++
	return nil
}

type fakeScraper struct {
	value *models.CategoryValue
	err   error
}

func (f *fakeScraper) Run(ctx context.Context, token, category string, force bool) (*models.CategoryValue, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.value, nil
}

func (f *fakeScraper) SubmitGrievance(ctx context.Context, token, category, text string) (*models.CategoryValue, error) {
	return f.value, f.err
}

func (f *fakeScraper) SubmitLeave(ctx context.Context, token, from, to, reason string) (*models.CategoryValue, error) {
	return f.value, f.err
}

func (f *fakeScraper) Names() []string {
	return []string{"attendance"}
}

func setupRouter(t *testing.T, sessions *fakeSessions, scraper *fakeScraper) http.Handler {
	t.Helper()
	handler := NewHandler(sessions, scraper, static.NewCatalog())
	return handler.SetupRoutes()
}

func post(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	encoded, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(encoded))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCaptchaRequiresIdentifier(t *testing.T) {
	router := setupRouter(t, &fakeSessions{}, &fakeScraper{})

	rec := post(t, router, "/captcha", models.CaptchaRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCaptchaReturnsImage(t *testing.T) {
	router := setupRouter(t, &fakeSessions{img: []byte("png-bytes")}, &fakeScraper{})

	rec := post(t, router, "/captcha", models.CaptchaRequest{Identifier: "126001001"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	require.Equal(t, "png-bytes", rec.Body.String())
}

func TestLoginSuccess(t *testing.T) {
	router := setupRouter(t, &fakeSessions{token: "tok-1"}, &fakeScraper{})

	rec := post(t, router, "/login", models.LoginRequest{
		Identifier: "126001001", Secret: "hunter2", CaptchaAnswer: "XK4P9",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var res models.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.True(t, res.Success)
	require.Equal(t, "tok-1", res.Token)
}

func TestLoginSurfacesPortalMessage(t *testing.T) {
	router := setupRouter(t, &fakeSessions{
		loginErr: &portal.RejectedError{Reason: "Invalid Captcha!"},
	}, &fakeScraper{})

	rec := post(t, router, "/login", models.LoginRequest{Identifier: "126001001"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var res models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, "Invalid Captcha!", res.Error)
}

func TestLoginMissingChallenge(t *testing.T) {
	router := setupRouter(t, &fakeSessions{loginErr: session.ErrNoChallenge}, &fakeScraper{})

	rec := post(t, router, "/login", models.LoginRequest{Identifier: "126001001"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutIsIdempotentAtTheAPI(t *testing.T) {
	sessions := &fakeSessions{}
	router := setupRouter(t, sessions, &fakeScraper{})

	for i := 0; i < 2; i++ {
		rec := post(t, router, "/logout", models.TokenRequest{Token: "tok-1"})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	require.Equal(t, 2, sessions.logouts)
}

func TestCategoryEndpoint(t *testing.T) {
	now := time.Now().UTC()
	router := setupRouter(t, &fakeSessions{}, &fakeScraper{
		value: &models.CategoryValue{Data: json.RawMessage(`{"records":[]}`), LastUpdated: now},
	})

	rec := post(t, router, "/attendance", models.TokenRequest{Token: "tok-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Success     bool            `json:"success"`
		Data        json.RawMessage `json:"data"`
		LastUpdated time.Time       `json:"lastUpdated"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.True(t, res.Success)
	require.JSONEq(t, `{"records":[]}`, string(res.Data))
	require.True(t, res.LastUpdated.Equal(now))
}

func TestCategoryScrapeFailureIsNonFatalJSON(t *testing.T) {
	router := setupRouter(t, &fakeSessions{}, &fakeScraper{
		err: &scrape.CategoryError{Category: "attendance", Err: context.DeadlineExceeded},
	})

	rec := post(t, router, "/attendance", models.TokenRequest{Token: "tok-1"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var res models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.False(t, res.Success)
	require.Contains(t, res.Error, "attendance")
}

func TestCategoryUnauthenticated(t *testing.T) {
	router := setupRouter(t, &fakeSessions{}, &fakeScraper{err: session.ErrNoSession})

	rec := post(t, router, "/attendance", models.TokenRequest{Token: "stale"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStaticEndpoints(t *testing.T) {
	router := setupRouter(t, &fakeSessions{}, &fakeScraper{})

	for _, path := range []string{"/pyq", "/materials", "/messMenu", "/messMenuGirls"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, path)
		require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}

func TestChatbotEndpoint(t *testing.T) {
	router := setupRouter(t, &fakeSessions{}, &fakeScraper{})

	rec := post(t, router, "/chatbot", models.ChatbotRequest{Message: "where can i get java pyqs"})
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Reply string        `json:"reply"`
		Links []static.Link `json:"links"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Links, 2)

	rec = post(t, router, "/chatbot", models.ChatbotRequest{Message: "hello"})
	var fallback struct {
		Reply string `json:"reply"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fallback))
	require.Equal(t, static.FallbackReply, fallback.Reply)
}

func TestGrievanceRequiresText(t *testing.T) {
	router := setupRouter(t, &fakeSessions{}, &fakeScraper{})

	rec := post(t, router, "/grievances", models.GrievanceRequest{Token: "tok-1"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReloginReturnsRotatedToken(t *testing.T) {
	router := setupRouter(t, &fakeSessions{token: "tok-1"}, &fakeScraper{})

	rec := post(t, router, "/relogin", models.TokenRequest{Token: "tok-0", CaptchaAnswer: "XK4P9"})
	require.Equal(t, http.StatusOK, rec.Code)

	var res models.ReloginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.True(t, res.Success)
	require.Equal(t, "tok-1-rotated", res.NewToken)
}
