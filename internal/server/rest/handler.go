package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/humanist/internal/logging"
	"github.com/dmitrijs2005/humanist/internal/server/models"
	"github.com/dmitrijs2005/humanist/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const (
	maxBodyBytes = 1 << 20
	probeTimeout = 2 * time.Second

	rootGreeting        = "The Incurable Humanist API is running"
	resetRequestedReply = "Password reset email sent"
)

// UserService is satisfied by *services.UserService.
type UserService interface {
	Register(ctx context.Context, email, password, displayName string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.Session, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// SessionService is satisfied by *services.SessionService.
type SessionService interface {
	ResolveCurrentUser(ctx context.Context, token string) (*models.User, error)
	RequireAuthor(user *models.User) error
}

// Pinger checks database connectivity for /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	users    UserService
	sessions SessionService
	db       Pinger
	gate     *Gate
	logger   logging.Logger
}

func NewHandler(us UserService, ss SessionService, db Pinger, gate *Gate, l logging.Logger) *Handler {
	return &Handler{
		users:    us,
		sessions: ss,
		db:       db,
		gate:     gate,
		logger:   l.With("module", "rest"),
	}
}

// Routes builds the router. corsOrigins lists the browser origins allowed
// to call the API with credentials.
func (h *Handler) Routes(corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", h.root)
	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)

	r.Group(func(r chi.Router) {
		r.Use(h.requireReady)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.register)
			r.Post("/login", h.login)
			r.Post("/reset-password", h.requestPasswordReset)
			r.Post("/reset-password/{token}", h.resetPassword)
			r.With(h.authenticate).Get("/me", h.me)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.authenticate, h.requireAuthor)
			r.Get("/me", h.me)
		})
	})

	return r
}

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: rootGreeting})
}

// healthz is liveness only; it never touches the database.
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	dbOK := h.db.Ping(ctx) == nil
	writeJSON(w, http.StatusOK, readinessResponse{DB: dbOK, Ready: h.gate.Ready() && dbOK})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if !h.decode(w, r, &in) {
		return
	}

	user, err := h.users.Register(r.Context(), in.Email, in.Password, in.FullName)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newUserResponse(user))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if !h.decode(w, r, &in) {
		return
	}

	session, err := h.users.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: session.AccessToken,
		TokenType:   session.TokenType,
		User:        newUserResponse(session.User),
	})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newUserResponse(CurrentUser(r.Context())))
}

func (h *Handler) requestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var in passwordResetRequest
	if !h.decode(w, r, &in) {
		return
	}

	if err := h.users.RequestPasswordReset(r.Context(), in.Email); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: resetRequestedReply})
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var in passwordResetConfirm
	if !h.decode(w, r, &in) {
		return
	}

	err := h.users.ResetPassword(r.Context(), chi.URLParam(r, "token"), in.NewPassword)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Password has been reset"})
}

// decode reads a JSON body into v, answering 400 itself on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		detail := "Invalid request body"
		if errors.Is(err, io.EOF) {
			detail = "Request body is empty"
		}
		writeDetail(w, http.StatusBadRequest, detail)
		return false
	}
	return true
}
