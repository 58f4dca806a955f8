package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/inkwell-blog/server/internal/api/middleware"
	"github.com/inkwell-blog/server/internal/api/problem"
	"github.com/inkwell-blog/server/internal/auth"
	"github.com/inkwell-blog/server/internal/sanitize"
	"github.com/inkwell-blog/server/internal/storage"
)

type ArticlesHandler struct {
	Articles   storage.ArticleRepository
	Authorizer *auth.Authorizer
	Env        string
}

func NewArticlesHandler(articles storage.ArticleRepository, authorizer *auth.Authorizer, env string) *ArticlesHandler {
	return &ArticlesHandler{Articles: articles, Authorizer: authorizer, Env: env}
}

type articleRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

type articleResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// List handles GET /api/v1/articles. Public.
func (h *ArticlesHandler) List(w http.ResponseWriter, r *http.Request) {
	articles, err := h.Articles.List(r.Context())
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	out := make([]articleResponse, 0, len(articles))
	for _, article := range articles {
		out = append(out, toArticleResponse(article))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// Get handles GET /api/v1/articles/{id}. Public.
func (h *ArticlesHandler) Get(w http.ResponseWriter, r *http.Request) {
	article, err := h.Articles.FindByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Article not found", nil, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toArticleResponse(article))
}

// Create handles POST /api/v1/articles. The route is gated on the
// create:article permission.
func (h *ArticlesHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)
	if claims == nil {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthenticated, "Unauthenticated", auth.ErrUnauthenticated, h.Env)
		return
	}

	var req articleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	if err := validate.Struct(req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env,
			problem.WithErrors(validationErrors(err)))
		return
	}

	article, err := h.Articles.Create(r.Context(), storage.Article{
		ID:       uuid.NewString(),
		Title:    sanitize.Text(req.Title),
		Content:  sanitize.HTML(req.Content),
		AuthorID: claims.Subject,
	})
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toArticleResponse(article))
}

// Update handles PUT /api/v1/articles/{id}. Allowed to the author or a
// wildcard-role holder.
func (h *ArticlesHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)

	article, err := h.Articles.FindByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Article not found", nil, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	if err := h.Authorizer.AuthorizeSelfOrRole(r.Context(), claims, article.AuthorID, auth.WildcardRole); err != nil {
		middleware.WriteAuthorizeProblem(w, r, err, h.Env)
		return
	}

	var req articleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	if err := validate.Struct(req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env,
			problem.WithErrors(validationErrors(err)))
		return
	}

	article.Title = sanitize.Text(req.Title)
	article.Content = sanitize.HTML(req.Content)
	if err := h.Articles.Update(r.Context(), article); err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toArticleResponse(article))
}

// Delete handles DELETE /api/v1/articles/{id}. Destructive: ownership or a
// live wildcard role, never the token's embedded role list alone.
func (h *ArticlesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)

	article, err := h.Articles.FindByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Article not found", nil, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	if err := h.Authorizer.AuthorizeSelfOrRole(r.Context(), claims, article.AuthorID, auth.WildcardRole); err != nil {
		middleware.WriteAuthorizeProblem(w, r, err, h.Env)
		return
	}

	if err := h.Articles.Delete(r.Context(), article.ID); err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "Article deleted"})
}

func toArticleResponse(article storage.Article) articleResponse {
	return articleResponse{
		ID:        article.ID,
		Title:     article.Title,
		Content:   article.Content,
		AuthorID:  article.AuthorID,
		CreatedAt: article.CreatedAt,
		UpdatedAt: article.UpdatedAt,
	}
}
