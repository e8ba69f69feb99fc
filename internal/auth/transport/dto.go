package transport

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// UserResponse mirrors the remote /auth/me payload.
type UserResponse struct {
	UserID   string `json:"userId"`
	OrgID    string `json:"orgId,omitempty"`
	Email    string `json:"email"`
	FullName string `json:"fullName,omitempty"`
	IsAdmin  bool   `json:"isAdmin"`
}

type AuthResponse struct {
	Authenticated bool          `json:"authenticated"`
	User          *UserResponse `json:"user,omitempty"`
	Message       string        `json:"message,omitempty"`
}
