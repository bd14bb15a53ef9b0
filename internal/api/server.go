package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all HTTP routes.
func (h *Handler) SetupRoutes() *mux.Router {
	r := mux.NewRouter()

	// Login flow
	r.HandleFunc("/captcha", h.Captcha).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/logout", h.Logout).Methods("POST")
	r.HandleFunc("/relogin-captcha", h.ReloginCaptcha).Methods("POST")
	r.HandleFunc("/relogin", h.Relogin).Methods("POST")

	// Submission flows
	r.HandleFunc("/grievances", h.Grievances).Methods("POST")
	r.HandleFunc("/leaveApplication", h.LeaveApplication).Methods("POST")

	// One endpoint per scrape category
	for _, name := range h.scraper.Names() {
		r.HandleFunc("/"+name, h.Category(name)).Methods("POST")
	}

	// Static catalogs (no auth)
	r.HandleFunc("/pyq", h.PYQ).Methods("GET")
	r.HandleFunc("/materials", h.Materials).Methods("GET")
	r.HandleFunc("/messMenu", h.MessMenu).Methods("GET")
	r.HandleFunc("/messMenuGirls", h.MessMenuGirls).Methods("GET")

	r.HandleFunc("/chatbot", h.Chatbot).Methods("POST")

	// CORS middleware
	r.Use(corsMiddleware)

	return r
}
