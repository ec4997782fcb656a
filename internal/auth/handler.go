// AngelaMos | 2026
// handler.go

package auth

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/insighta/internal/config"
	"github.com/carterperez-dev/insighta/internal/core"
	"github.com/carterperez-dev/insighta/internal/mail"
	"github.com/carterperez-dev/insighta/internal/middleware"
)

// CookieSettings controls the token cookies. Production cookies are Secure
// and SameSite=None so a separately hosted frontend can send them.
type CookieSettings struct {
	AccessName    string
	RefreshName   string
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
	Domain        string
	Secure        bool
	SameSite      http.SameSite
}

func NewCookieSettings(cfg config.CookieConfig, production bool) CookieSettings {
	s := CookieSettings{
		AccessName:    cfg.AccessName,
		RefreshName:   cfg.RefreshName,
		AccessMaxAge:  cfg.AccessMaxAge,
		RefreshMaxAge: cfg.RefreshMaxAge,
		Domain:        cfg.Domain,
		SameSite:      http.SameSiteStrictMode,
	}
	if production {
		s.Secure = true
		s.SameSite = http.SameSiteNoneMode
	}
	return s
}

type Handler struct {
	service   *Service
	cookies   CookieSettings
	validator *validator.Validate
}

func NewHandler(service *Service, cookies CookieSettings) *Handler {
	return &Handler{
		service:   service,
		cookies:   cookies,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Post("/refresh-token", h.Refresh)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password", h.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Get("/me", h.GetMe)
			r.Post("/send-verification-email", h.SendVerificationEmail)
			r.Post("/verify-account", h.VerifyAccount)
			r.Put("/change-password", h.ChangePassword)
		})
	})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		core.JSONError(w, mapError(err))
		return
	}

	core.Created(w, RegisterResponse{
		User:             ToUserResponse(result.User),
		WelcomeEmailSent: result.WelcomeEmailSent,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		core.JSONError(w, mapError(err))
		return
	}

	h.setCookie(w, h.cookies.AccessName, session.Access.Token, h.cookies.AccessMaxAge)
	h.setCookie(w, h.cookies.RefreshName, session.Refresh.Token, h.cookies.RefreshMaxAge)

	core.OK(w, TokenResponse{
		User:      ToUserResponse(session.User),
		Token:     session.Access.Token,
		TokenType: "Bearer",
		ExpiresAt: session.Access.ExpiresAt,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	accessToken := middleware.ExtractToken(r, h.cookies.AccessName)
	refreshToken := h.refreshTokenFrom(r)

	h.clearCookie(w, h.cookies.AccessName)
	h.clearCookie(w, h.cookies.RefreshName)

	if err := h.service.Logout(r.Context(), accessToken, refreshToken); err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, MessageResponse{Message: "logged out"})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshToken := h.refreshTokenFrom(r)
	if refreshToken == "" {
		core.JSONError(w, core.UnauthorizedError("refresh token required"))
		return
	}

	session, err := h.service.Refresh(r.Context(), refreshToken)
	if err != nil {
		core.JSONError(w, mapError(err))
		return
	}

	h.setCookie(w, h.cookies.AccessName, session.Access.Token, h.cookies.AccessMaxAge)

	core.OK(w, TokenResponse{
		User:      ToUserResponse(session.User),
		Token:     session.Access.Token,
		TokenType: "Bearer",
		ExpiresAt: session.Access.ExpiresAt,
	})
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	user, err := h.service.GetCurrentUser(r.Context(), userID)
	if err != nil {
		core.JSONError(w, mapError(err))
		return
	}

	core.OK(w, ToUserResponse(user))
}

func (h *Handler) SendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	if err := h.service.SendVerificationCode(r.Context(), userID); err != nil {
		core.JSONError(w, mapError(err))
		return
	}

	core.OK(w, MessageResponse{Message: "verification code sent"})
}

func (h *Handler) VerifyAccount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	var req VerifyAccountRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.VerifyAccount(r.Context(), userID, req.Code); err != nil {
		core.JSONError(w, mapError(err))
		return
	}

	core.OK(w, MessageResponse{Message: "account verified"})
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		core.JSONError(w, mapError(err))
		return
	}

	core.OK(w, MessageResponse{Message: "password reset email sent"})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.ConfirmPasswordReset(r.Context(), req.Token, req.NewPassword); err != nil {
		core.JSONError(w, mapError(err))
		return
	}

	core.OK(w, MessageResponse{Message: "password has been reset"})
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	var req ChangePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.service.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			core.JSONError(w, core.UnauthorizedError("current password is incorrect"))
			return
		}
		core.JSONError(w, mapError(err))
		return
	}

	core.OK(w, MessageResponse{Message: "password changed"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}

	return true
}

// refreshTokenFrom reads the refresh cookie and falls back to the JSON body.
func (h *Handler) refreshTokenFrom(r *http.Request) string {
	if cookie, err := r.Cookie(h.cookies.RefreshName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return ""
	}
	return req.RefreshToken
}

func (h *Handler) setCookie(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.cookies.Domain,
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: h.cookies.SameSite,
	})
}

func (h *Handler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   h.cookies.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: h.cookies.SameSite,
	})
}

func mapError(err error) error {
	switch {
	case core.IsAppError(err):
		return err
	case errors.Is(err, ErrEmailExists):
		return core.DuplicateError("email")
	case errors.Is(err, ErrInvalidCredentials):
		return core.UnauthorizedError("invalid email or password")
	case errors.Is(err, ErrNotVerified):
		return core.NewAppError(err, "account is not verified", http.StatusForbidden, "NOT_VERIFIED")
	case errors.Is(err, ErrAlreadyVerified):
		return core.NewAppError(err, "account is already verified", http.StatusConflict, "ALREADY_VERIFIED")
	case errors.Is(err, ErrInvalidCode):
		return core.NewAppError(err, "invalid verification code", http.StatusBadRequest, "INVALID_CODE")
	case errors.Is(err, ErrCodeExpired):
		return core.NewAppError(err, "verification code has expired", http.StatusBadRequest, "CODE_EXPIRED")
	case errors.Is(err, ErrInvalidResetToken):
		return core.NewAppError(err, "invalid or used reset token", http.StatusBadRequest, "INVALID_RESET_TOKEN")
	case errors.Is(err, ErrResetExpired):
		return core.NewAppError(err, "reset token has expired", http.StatusBadRequest, "RESET_EXPIRED")
	case errors.Is(err, core.ErrTokenExpired):
		return core.TokenExpiredError()
	case errors.Is(err, core.ErrTokenRevoked):
		return core.TokenRevokedError()
	case errors.Is(err, core.ErrTokenInvalid):
		return core.TokenInvalidError()
	case errors.Is(err, core.ErrNotFound):
		return core.NotFoundError("user")
	case errors.Is(err, mail.ErrDelivery):
		return core.NewAppError(err, "email could not be delivered", http.StatusBadGateway, "MAIL_DELIVERY_FAILED")
	case errors.Is(err, core.ErrInvalidInput):
		return core.BadRequestError("invalid input")
	default:
		return core.InternalError(err)
	}
}
