package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/inkwell-blog/server/internal/api/problem"
	"github.com/inkwell-blog/server/internal/auth"
	"github.com/inkwell-blog/server/internal/storage"
)

// BcryptCost is the cost factor for bcrypt password hashing
const BcryptCost = 12

var validate = validator.New()

type AuthHandler struct {
	Subjects  storage.SubjectRepository
	Roles     storage.RoleRepository
	Tokens    *auth.TokenManager
	AdminCode string
	Env       string
}

func NewAuthHandler(subjects storage.SubjectRepository, roles storage.RoleRepository, tokens *auth.TokenManager, adminCode, env string) *AuthHandler {
	return &AuthHandler{
		Subjects:  subjects,
		Roles:     roles,
		Tokens:    tokens,
		AdminCode: adminCode,
		Env:       env,
	}
}

type registerRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=64"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	AdminCode string `json:"adminCode"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string   `json:"token"`
	ExpiresAt string   `json:"expires_at"`
	User      userInfo `json:"user"`
}

type userInfo struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// Register handles POST /api/v1/auth/register. New subjects get the default
// role; presenting the configured admin code grants the wildcard role
// instead. Roles are created lazily on first reference.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	if err := validate.Struct(req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env,
			problem.WithErrors(validationErrors(err)))
		return
	}

	roleName := auth.DefaultRole
	if req.AdminCode != "" && h.AdminCode != "" && req.AdminCode == h.AdminCode {
		roleName = auth.WildcardRole
	}

	role, err := h.Roles.EnsureRole(r.Context(), roleName)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), BcryptCost)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	_, err = h.Subjects.Create(r.Context(), storage.Subject{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Roles:        []storage.Role{role},
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "User already exists", nil, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "User created successfully"})
}

// Login handles POST /api/v1/auth/login and issues a session token carrying
// the subject's role names at this instant.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	if err := validate.Struct(req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env,
			problem.WithErrors(validationErrors(err)))
		return
	}

	subject, err := h.Subjects.FindByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthenticated, "Invalid credentials", nil, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(subject.PasswordHash), []byte(req.Password)); err != nil {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthenticated, "Invalid credentials", nil, h.Env)
		return
	}

	now := time.Now()
	token, err := h.Tokens.Issue(subject.ID, subject.Username, subject.RoleNames(), now)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(loginResponse{
		Token:     token,
		ExpiresAt: now.Add(h.Tokens.Expiry()).Format(time.RFC3339),
		User: userInfo{
			ID:       subject.ID,
			Username: subject.Username,
			Email:    subject.Email,
			Roles:    subject.RoleNames(),
		},
	})
}

// validationErrors flattens validator output into a field -> tag map for
// the problem+json errors member.
func validationErrors(err error) map[string]interface{} {
	out := make(map[string]interface{})
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			out[fe.Field()] = fe.Tag()
		}
	}
	return out
}
