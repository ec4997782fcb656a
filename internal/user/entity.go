// AngelaMos | 2026
// entity.go

package user

import (
	"time"
)

type User struct {
	ID               string     `db:"id"`
	Username         string     `db:"username"`
	Email            string     `db:"email"`
	PasswordHash     string     `db:"password"`
	Avatar           string     `db:"profile_avatar"`
	Bio              string     `db:"bio"`
	Role             string     `db:"role"`
	IsActive         bool       `db:"is_active"`
	Verified         bool       `db:"is_account_verified"`
	VerifyOTP        string     `db:"verify_otp"`
	VerifyOTPExpires *time.Time `db:"verify_otp_expires"`
	ResetTokenHash   string     `db:"reset_password_otp"`
	ResetExpires     *time.Time `db:"reset_password_expires"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Patch is a partial update of a user record. Nil fields are left as they
// are.
type Patch struct {
	Username     *string
	Bio          *string
	Avatar       *string
	Role         *string
	PasswordHash *string
	Verified     *bool
	VerifyOTP    *OTPPair
	Reset        *OTPPair
}

func (p Patch) IsEmpty() bool {
	return p.Username == nil &&
		p.Bio == nil &&
		p.Avatar == nil &&
		p.Role == nil &&
		p.PasswordHash == nil &&
		p.Verified == nil &&
		p.VerifyOTP == nil &&
		p.Reset == nil
}

// OTPPair is a one-time value and its expiry. Both halves are always written
// together; the zero value clears the pair.
type OTPPair struct {
	Value     string
	ExpiresAt *time.Time
}

func (p OTPPair) IsZero() bool {
	return p.Value == "" || p.ExpiresAt == nil
}

// Guard limits an update to a record whose stored values still match. Empty
// fields are not checked. Unverified restricts the write to accounts that
// are not verified yet.
type Guard struct {
	VerifyOTP      string
	ResetTokenHash string
	Unverified     bool
}
