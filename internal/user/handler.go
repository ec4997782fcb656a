// AngelaMos | 2026
// handler.go

package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/insighta/internal/auth"
	"github.com/carterperez-dev/insighta/internal/core"
	"github.com/carterperez-dev/insighta/internal/middleware"
)

// PasswordChanger verifies the current password before storing a new one.
type PasswordChanger interface {
	ChangePassword(
		ctx context.Context,
		userID, currentPassword, newPassword string,
	) error
}

type Handler struct {
	service   *Service
	passwords PasswordChanger
	validator *validator.Validate
}

func NewHandler(service *Service, passwords PasswordChanger) *Handler {
	return &Handler{
		service:   service,
		passwords: passwords,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/user", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/me", h.GetMe)
		r.Put("/update-profile", h.UpdateProfile)
		r.Put("/update-password", h.UpdatePassword)
		r.Delete("/profile-image", h.DeleteProfileImage)
		r.Delete("/delete-account", h.DeleteAccount)
	})
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.service.GetMe(r.Context(), userID)
	if err != nil {
		core.JSONError(w, mapError(err))
		return
	}

	core.OK(w, ToUserResponse(user))
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req UpdateProfileRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		core.JSONError(w, mapError(err))
		return
	}

	core.OK(w, ToUserResponse(user))
}

func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req UpdatePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.passwords.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			core.BadRequest(w, "current password is incorrect")
			return
		}
		core.JSONError(w, mapError(err))
		return
	}

	core.OK(w, MessageResponse{Message: "password updated"})
}

// DeleteProfileImage puts the default avatar back.
func (h *Handler) DeleteProfileImage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.service.ResetAvatar(r.Context(), userID)
	if err != nil {
		core.JSONError(w, mapError(err))
		return
	}

	core.OK(w, ToUserResponse(user))
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.service.DeleteMe(r.Context(), userID); err != nil {
		core.JSONError(w, mapError(err))
		return
	}

	core.NoContent(w)
}

// RegisterAdminRoutes registers admin-only user management endpoints.
func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/user", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/getAllUsers", h.ListUsers)
		r.Get("/getUser/{userID}", h.GetUser)
		r.Put("/{userID}/role", h.UpdateUserRole)
		r.Delete("/deleteUser/{userID}", h.DeleteUser)
	})
}

// ListUsers returns a paginated list of users with optional filtering.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	params := ListUsersParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
		Search:   r.URL.Query().Get("search"),
		Role:     r.URL.Query().Get("role"),
	}
	params.Normalize()

	users, total, err := h.service.ListUsers(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(
		w,
		ToUserResponseList(users),
		params.Page,
		params.PageSize,
		total,
	)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		core.JSONError(w, mapError(err))
		return
	}

	core.OK(w, ToUserResponse(user))
}

func (h *Handler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req UpdateUserRoleRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.service.UpdateUserRole(r.Context(), userID, req.Role)
	if err != nil {
		core.JSONError(w, mapError(err))
		return
	}

	core.OK(w, ToUserResponse(user))
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	requesterID := middleware.GetUserID(r.Context())
	targetID := chi.URLParam(r, "userID")

	if err := h.service.CanDeleteUser(r.Context(), requesterID, targetID); err != nil {
		core.JSONError(w, mapError(err))
		return
	}

	if err := h.service.DeleteUser(r.Context(), targetID); err != nil {
		core.JSONError(w, mapError(err))
		return
	}

	core.OK(w, MessageResponse{Message: "user account deleted"})
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

func mapError(err error) error {
	switch {
	case core.IsAppError(err):
		return err
	case errors.Is(err, core.ErrNotFound):
		return core.NotFoundError("user")
	case errors.Is(err, core.ErrUnauthorized):
		return core.UnauthorizedError("")
	case errors.Is(err, core.ErrForbidden):
		return core.ForbiddenError("insufficient permissions")
	case errors.Is(err, core.ErrInvalidInput):
		return core.BadRequestError("invalid input")
	default:
		return core.InternalError(err)
	}
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}
