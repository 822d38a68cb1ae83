package domain

import "time"

// Store attribute names shared by the repositories and the services that
// issue partial updates. Using constants prevents silent runtime bugs
// caused by key typos.
const (
	AttrUpdatedAt                     = "updated_at"
	AttrProfileImageKey               = "profile_image_key"
	AttrSpecializationFormCompletedAt = "specialization_form_completed_at"
)

type User struct {
	UserID          string  `json:"id" dynamodbav:"user_id"`
	Email           string  `json:"email" dynamodbav:"email"`
	Username        string  `json:"username" dynamodbav:"username"`
	PasswordHash    string  `json:"-" dynamodbav:"password_hash"`
	FirstName       string  `json:"first_name" dynamodbav:"first_name"`
	LastName        string  `json:"last_name" dynamodbav:"last_name"`
	Phone           *string `json:"phone_number" dynamodbav:"phone,omitempty"`
	Bio             string  `json:"bio" dynamodbav:"bio"`
	ProfileImageKey string  `json:"-" dynamodbav:"profile_image_key"`
	// SpecializationFormCompletedAt is nil until the user submits or skips
	// the specialization form for the first time.
	SpecializationFormCompletedAt *time.Time `json:"specialization_form_completed_at" dynamodbav:"specialization_form_completed_at"`
	CreatedAt                     time.Time  `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt                     time.Time  `json:"updated_at" dynamodbav:"updated_at"`
}

// RegisterRequest is the signup payload staged in the cache until the OTP
// is verified. Email and username are lower-cased during validation so
// uniqueness lookups against the lower-cased GSIs are case-insensitive.
type RegisterRequest struct {
	Email              string  `json:"email" validate:"required,email"`
	Username           string  `json:"username" validate:"required,min=8,max=16"`
	Password           string  `json:"password" validate:"required"`
	FirstName          string  `json:"first_name" validate:"required,max=50"`
	LastName           string  `json:"last_name" validate:"required,max=50"`
	Phone              string  `json:"phone_number" validate:"required,max=16"`
	Bio                string  `json:"bio" validate:"omitempty,max=500"`
	ProfileImageBase64 *string `json:"profile_image,omitempty"`
}

type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6"`
}

type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type ResendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}
