package rest

import (
	"time"

	"github.com/dmitrijs2005/humanist/internal/server/models"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

type passwordResetConfirm struct {
	NewPassword string `json:"new_password"`
}

// userResponse is the only shape in which a user leaves the server.
type userResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  *string   `json:"full_name"`
	Role      string    `json:"role"`
	IsAuthor  bool      `json:"is_author"`
	CreatedAt time.Time `json:"created_at"`
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        userResponse `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type readinessResponse struct {
	DB    bool `json:"db"`
	Ready bool `json:"ready"`
}

func newUserResponse(u *models.User) userResponse {
	r := userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Role:      string(u.Role),
		IsAuthor:  u.IsAuthor(),
		CreatedAt: u.CreatedAt,
	}
	if u.DisplayName != "" {
		name := u.DisplayName
		r.FullName = &name
	}
	return r
}
