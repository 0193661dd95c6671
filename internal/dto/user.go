package dto

// CreateUserRequest is the body for POST /api/user/create/.
type CreateUserRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email,max=255"`
	Password string `json:"password" form:"password" binding:"required,min=5,max=72"`
	Name     string `json:"name" form:"name" binding:"required,max=255"`
}

// TokenRequest is the body for POST /api/user/token/.
type TokenRequest struct {
	Email    string `json:"email" form:"email" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// UpdateProfileRequest is the body for PATCH /api/user/me/. Absent fields are kept.
type UpdateProfileRequest struct {
	Email    *string `json:"email" form:"email" binding:"omitempty,email,max=255"`
	Password *string `json:"password" form:"password" binding:"omitempty,min=5,max=72"`
	Name     *string `json:"name" form:"name" binding:"omitempty,max=255"`
}

// ReplaceProfileRequest is the body for PUT /api/user/me/.
type ReplaceProfileRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email,max=255"`
	Password string `json:"password" form:"password" binding:"required,min=5,max=72"`
	Name     string `json:"name" form:"name" binding:"required,max=255"`
}

// UserResponse is the public representation of a user.
type UserResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TokenResponse carries a freshly issued bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

// ErrorResponse is returned for every 4xx/5xx.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}
