// AngelaMos | 2026
// dto.go

package auth

import (
	"time"
)

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=128"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type VerifyAccountRequest struct {
	Code string `json:"code" validate:"required,numeric,min=4,max=10"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"        validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required,max=128"`
	NewPassword     string `json:"new_password"     validate:"required,min=8,max=128"`
}

type UserResponse struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	Role              string    `json:"role"`
	IsAccountVerified bool      `json:"isAccountVerified"`
	CreatedAt         time.Time `json:"createdAt"`
}

func ToUserResponse(u *UserInfo) UserResponse {
	return UserResponse{
		ID:                u.ID,
		Username:          u.Username,
		Email:             u.Email,
		Role:              u.Role,
		IsAccountVerified: u.Verified(),
		CreatedAt:         u.CreatedAt,
	}
}

type RegisterResponse struct {
	User             UserResponse `json:"user"`
	WelcomeEmailSent bool         `json:"welcome_email_sent"`
}

type TokenResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
