// AngelaMos | 2026
// entity.go

package auth

import (
	"time"
)

type VerificationStatus int

const (
	Unverified VerificationStatus = iota
	CodePending
	Verified
)

func (s VerificationStatus) String() string {
	switch s {
	case CodePending:
		return "code_pending"
	case Verified:
		return "verified"
	default:
		return "unverified"
	}
}

// Verification is the account verification state. Code and ExpiresAt are
// meaningful only while CodePending.
type Verification struct {
	Status    VerificationStatus
	Code      string
	ExpiresAt time.Time
}

// VerificationFromFields rebuilds the state from stored fields. A half-set
// code pair is treated as no code at all.
func VerificationFromFields(
	verified bool,
	code string,
	expiresAt *time.Time,
) Verification {
	if verified {
		return Verification{Status: Verified}
	}
	if code == "" || expiresAt == nil || expiresAt.IsZero() {
		return Verification{Status: Unverified}
	}
	return Verification{
		Status:    CodePending,
		Code:      code,
		ExpiresAt: *expiresAt,
	}
}

func (v Verification) IsVerified() bool {
	return v.Status == Verified
}

func (v Verification) Expired(now time.Time) bool {
	return v.Status == CodePending && now.After(v.ExpiresAt)
}

type ResetStatus int

const (
	ResetNone ResetStatus = iota
	ResetPending
)

// ResetState is the password reset state. Only the hash of the issued reset
// token is kept.
type ResetState struct {
	Status    ResetStatus
	TokenHash string
	ExpiresAt time.Time
}

func ResetFromFields(tokenHash string, expiresAt *time.Time) ResetState {
	if tokenHash == "" || expiresAt == nil || expiresAt.IsZero() {
		return ResetState{Status: ResetNone}
	}
	return ResetState{
		Status:    ResetPending,
		TokenHash: tokenHash,
		ExpiresAt: *expiresAt,
	}
}

func (r ResetState) Expired(now time.Time) bool {
	return r.Status == ResetPending && now.After(r.ExpiresAt)
}

// Transition is one atomic write against a user record. Nil fields are left
// untouched. RequireCode, RequireResetHash and RequireUnverified guard the
// write: it only applies if the stored record still matches.
type Transition struct {
	Verification      *Verification
	Reset             *ResetState
	PasswordHash      string
	RequireCode       string
	RequireResetHash  string
	RequireUnverified bool
}
