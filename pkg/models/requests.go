package models

// CaptchaRequest asks for a fresh login challenge.
type CaptchaRequest struct {
	Identifier string `json:"identifier"`
}

// LoginRequest finalizes a pending challenge.
type LoginRequest struct {
	Identifier    string `json:"identifier"`
	Secret        string `json:"secret"`
	CaptchaAnswer string `json:"captchaAnswer"`
}

// TokenRequest is the shared payload of every authenticated endpoint.
type TokenRequest struct {
	Token         string `json:"token"`
	ForceRefresh  bool   `json:"forceRefresh,omitempty"`
	CaptchaAnswer string `json:"captchaAnswer,omitempty"`
}

// GrievanceRequest submits a grievance into the portal.
type GrievanceRequest struct {
	Token    string `json:"token"`
	Category string `json:"category"`
	Text     string `json:"text"`
}

// LeaveRequest submits a leave application into the portal.
type LeaveRequest struct {
	Token  string `json:"token"`
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason"`
}

// ChatbotRequest is a free-form message for the keyword chatbot.
type ChatbotRequest struct {
	Message string `json:"message"`
}

// LoginResponse carries the opaque bearer token issued on success.
type LoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
}

// ReloginResponse carries the rotated token; the old one is dead.
type ReloginResponse struct {
	Success  bool   `json:"success"`
	NewToken string `json:"newToken,omitempty"`
}

// ErrorResponse is the uniform failure body.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
