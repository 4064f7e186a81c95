package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// MasterLoginRequest holds the operator credentials.
type MasterLoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// MasterLoginResponse returns the issued token.
type MasterLoginResponse struct {
	Token string `json:"token"`
}

// StudentLoginRequest identifies a student by registration number.
type StudentLoginRequest struct {
	CollegeRegdNo string `json:"collegeRegdNo"`
}

// SessionSubject names who a session token was issued to. Exactly one of
// the two fields is set.
type SessionSubject struct {
	StudentID string
	MasterID  string
}

// SessionClaims represents the JWT payload stored in the session cookie.
type SessionClaims struct {
	StudentID string `json:"studentId,omitempty"`
	MasterID  string `json:"masterId,omitempty"`
	jwt.RegisteredClaims
}

// IsMaster reports whether the session belongs to the operator.
func (c *SessionClaims) IsMaster() bool {
	return c != nil && c.MasterID != ""
}

// Session is what the login flows hand back to the transport layer: the
// signed token to place in the cookie and the response payload.
type Session struct {
	Token  string
	MaxAge int
}
