package models

import (
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

// User represents a member profile stored in PostgreSQL
type User struct {
	gorm.Model      `json:"-"`
	ID              uint   `json:"id" gorm:"primaryKey"`
	Username        string `json:"username" gorm:"uniqueIndex;size:40"`
	FullName        string `json:"full_name"`
	Email           string `json:"email" gorm:"uniqueIndex"`
	Password        string `json:"-"` // Store hashed password, ignore for JSON serialization
	// Nil for local accounts; the unique index only applies to non-null values
	FirebaseUID     *string `json:"firebase_uid,omitempty" gorm:"uniqueIndex"`
	AvatarURL       string `json:"avatar_url,omitempty"`
	CoverURL        string `json:"cover_url,omitempty"`
	Bio             string `json:"bio,omitempty"`
	Career          string `json:"career,omitempty"`
	InstitutionName string `json:"institution_name,omitempty"`
}

// UserCompact is the trimmed projection embedded in feed and message payloads
type UserCompact struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// ToCompact returns the compact projection of a user
func (u *User) ToCompact() UserCompact {
	return UserCompact{
		ID:        u.ID,
		Username:  u.Username,
		FullName:  u.FullName,
		AvatarURL: u.AvatarURL,
	}
}

type CreateLocalUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=40"`
	FullName string `json:"full_name" validate:"required,min=2,max=80"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type UpdateUserRequest struct {
	Username        string `json:"username,omitempty" validate:"omitempty,min=3,max=40"`
	FullName        string `json:"full_name,omitempty" validate:"omitempty,min=2,max=80"`
	Bio             string `json:"bio,omitempty" validate:"omitempty,max=500"`
	Career          string `json:"career,omitempty" validate:"omitempty,max=120"`
	InstitutionName string `json:"institution_name,omitempty" validate:"omitempty,max=120"`
	AvatarURL       string `json:"avatar_url,omitempty" validate:"omitempty,url"`
	CoverURL        string `json:"cover_url,omitempty" validate:"omitempty,url"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
