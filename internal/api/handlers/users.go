package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/inkwell-blog/server/internal/api/middleware"
	"github.com/inkwell-blog/server/internal/api/problem"
	"github.com/inkwell-blog/server/internal/auth"
	"github.com/inkwell-blog/server/internal/storage"
)

type UsersHandler struct {
	Subjects   storage.SubjectRepository
	Authorizer *auth.Authorizer
	Env        string
}

func NewUsersHandler(subjects storage.SubjectRepository, authorizer *auth.Authorizer, env string) *UsersHandler {
	return &UsersHandler{Subjects: subjects, Authorizer: authorizer, Env: env}
}

type updateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
}

// List handles GET /api/v1/users. Gated on manage:users at the route.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.Subjects.List(r.Context())
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	out := make([]userInfo, 0, len(subjects))
	for _, subject := range subjects {
		out = append(out, toUserInfo(subject))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// Get handles GET /api/v1/users/{id}. A subject may view its own profile;
// anyone else needs the wildcard role.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)
	id := r.PathValue("id")

	if err := h.Authorizer.AuthorizeSelfOrRole(r.Context(), claims, id, auth.WildcardRole); err != nil {
		middleware.WriteAuthorizeProblem(w, r, err, h.Env)
		return
	}

	subject, err := h.Subjects.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "User not found", nil, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toUserInfo(subject))
}

// Update handles PUT /api/v1/users/{id}. Self or wildcard role.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)
	id := r.PathValue("id")

	if err := h.Authorizer.AuthorizeSelfOrRole(r.Context(), claims, id, auth.WildcardRole); err != nil {
		middleware.WriteAuthorizeProblem(w, r, err, h.Env)
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	if err := validate.Struct(req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env,
			problem.WithErrors(validationErrors(err)))
		return
	}

	err := h.Subjects.Update(r.Context(), storage.Subject{
		ID:       id,
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "User not found", nil, h.Env)
		case errors.Is(err, storage.ErrDuplicate):
			problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Username or email already taken", nil, h.Env)
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "User updated"})
}

// Delete handles DELETE /api/v1/users/{id}. Destructive: self or live
// wildcard role.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)
	id := r.PathValue("id")

	if err := h.Authorizer.AuthorizeSelfOrRole(r.Context(), claims, id, auth.WildcardRole); err != nil {
		middleware.WriteAuthorizeProblem(w, r, err, h.Env)
		return
	}

	if err := h.Subjects.Delete(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "User not found", nil, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "User deleted"})
}

func toUserInfo(subject storage.Subject) userInfo {
	return userInfo{
		ID:       subject.ID,
		Username: subject.Username,
		Email:    subject.Email,
		Roles:    subject.RoleNames(),
	}
}
