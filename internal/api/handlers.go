package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/webstream-tools/pwi-gateway/internal/browser"
	"github.com/webstream-tools/pwi-gateway/internal/portal"
	"github.com/webstream-tools/pwi-gateway/internal/scrape"
	"github.com/webstream-tools/pwi-gateway/internal/session"
	"github.com/webstream-tools/pwi-gateway/internal/static"
	"github.com/webstream-tools/pwi-gateway/internal/vault"
	"github.com/webstream-tools/pwi-gateway/pkg/models"
)

// SessionService is the session lifecycle as the HTTP layer sees it.
type SessionService interface {
	IssueChallenge(ctx context.Context, identifier string) ([]byte, error)
	FinalizeLogin(ctx context.Context, identifier, secret, answer string) (string, error)
	ReloginChallenge(ctx context.Context, token string) ([]byte, error)
	FinalizeRelogin(ctx context.Context, token, answer string) (string, error)
	Logout(ctx context.Context, token string) error
}

// ScrapeService runs categories and the two submission flows.
type ScrapeService interface {
	Run(ctx context.Context, token, category string, force bool) (*models.CategoryValue, error)
	SubmitGrievance(ctx context.Context, token, category, text string) (*models.CategoryValue, error)
	SubmitLeave(ctx context.Context, token, from, to, reason string) (*models.CategoryValue, error)
	Names() []string
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	sessions SessionService
	scraper  ScrapeService
	catalog  *static.Catalog
}

func NewHandler(sessions SessionService, scraper ScrapeService, catalog *static.Catalog) *Handler {
	return &Handler{
		sessions: sessions,
		scraper:  scraper,
		catalog:  catalog,
	}
}

// Captcha handles POST /captcha.
func (h *Handler) Captcha(w http.ResponseWriter, r *http.Request) {
	var req models.CaptchaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Identifier == "" {
		writeError(w, http.StatusBadRequest, "identifier is required")
		return
	}

	img, err := h.sessions.IssueChallenge(r.Context(), req.Identifier)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeImage(w, img)
}

// Login handles POST /login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.sessions.FinalizeLogin(r.Context(), req.Identifier, req.Secret, req.CaptchaAnswer)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.LoginResponse{Success: true, Token: token})
}

// Logout handles POST /logout. Logging out twice reports success both times.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req models.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.sessions.Logout(r.Context(), req.Token); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ReloginCaptcha handles POST /relogin-captcha.
func (h *Handler) ReloginCaptcha(w http.ResponseWriter, r *http.Request) {
	var req models.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	img, err := h.sessions.ReloginChallenge(r.Context(), req.Token)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeImage(w, img)
}

// Relogin handles POST /relogin. The returned token replaces the old one.
func (h *Handler) Relogin(w http.ResponseWriter, r *http.Request) {
	var req models.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	newToken, err := h.sessions.FinalizeRelogin(r.Context(), req.Token, req.CaptchaAnswer)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ReloginResponse{Success: true, NewToken: newToken})
}

// Category returns the handler for one scrape category endpoint.
func (h *Handler) Category(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.TokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		value, err := h.scraper.Run(r.Context(), req.Token, name, req.ForceRefresh)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeCategory(w, value)
	}
}

// Grievances handles POST /grievances (submission).
func (h *Handler) Grievances(w http.ResponseWriter, r *http.Request) {
	var req models.GrievanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	value, err := h.scraper.SubmitGrievance(r.Context(), req.Token, req.Category, req.Text)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeCategory(w, value)
}

// LeaveApplication handles POST /leaveApplication (submission).
func (h *Handler) LeaveApplication(w http.ResponseWriter, r *http.Request) {
	var req models.LeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.From == "" || req.To == "" {
		writeError(w, http.StatusBadRequest, "from and to dates are required")
		return
	}

	value, err := h.scraper.SubmitLeave(r.Context(), req.Token, req.From, req.To, req.Reason)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeCategory(w, value)
}

// PYQ handles GET /pyq.
func (h *Handler) PYQ(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.PYQ())
}

// Materials handles GET /materials.
func (h *Handler) Materials(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Materials())
}

// MessMenu handles GET /messMenu.
func (h *Handler) MessMenu(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.MessMenu())
}

// MessMenuGirls handles GET /messMenuGirls.
func (h *Handler) MessMenuGirls(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.MessMenuGirls())
}

// Chatbot handles POST /chatbot.
func (h *Handler) Chatbot(w http.ResponseWriter, r *http.Request) {
	var req models.ChatbotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, links := h.catalog.Reply(req.Message)
	writeJSON(w, http.StatusOK, map[string]any{
		"reply": reply,
		"links": links,
	})
}

type categoryResponse struct {
	Success     bool            `json:"success"`
	Data        json.RawMessage `json:"data"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

func writeCategory(w http.ResponseWriter, value *models.CategoryValue) {
	writeJSON(w, http.StatusOK, categoryResponse{
		Success:     true,
		Data:        value.Data,
		LastUpdated: value.LastUpdated,
	})
}

func writeImage(w http.ResponseWriter, img []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	w.Write(img)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Success: false, Error: msg})
}

// writeFailure maps a service error to its HTTP status per the failure
// taxonomy: precondition failures 400/401, portal rejections 401 with the
// portal's message verbatim, scrape-shape failures 500 (non-fatal to the
// session), infrastructure failures 503.
func writeFailure(w http.ResponseWriter, err error) {
	var rejected *portal.RejectedError
	var catErr *scrape.CategoryError

	switch {
	case errors.As(err, &rejected):
		writeError(w, http.StatusUnauthorized, rejected.Reason)
	case errors.Is(err, session.ErrNoSession):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, session.ErrNoChallenge):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrTooManyChallenges):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, vault.ErrNoCredential):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, scrape.ErrUnknownCategory):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, browser.ErrNotReady):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &catErr):
		writeError(w, http.StatusInternalServerError, catErr.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
