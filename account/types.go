package account

// Profile corresponds to "Get current user" (GET /users/me).
type Profile struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FullName    string `json:"fullName"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
	Role        string `json:"role,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// UpdateProfileRequest corresponds to "Update current user" (PATCH /users/me).
// Nil fields are left untouched by the backend.
type UpdateProfileRequest struct {
	FullName    *string `json:"fullName,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	Avatar      *string `json:"avatar,omitempty"`
}
