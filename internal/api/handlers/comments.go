package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/inkwell-blog/server/internal/api/middleware"
	"github.com/inkwell-blog/server/internal/api/problem"
	"github.com/inkwell-blog/server/internal/auth"
	"github.com/inkwell-blog/server/internal/realtime"
	"github.com/inkwell-blog/server/internal/sanitize"
	"github.com/inkwell-blog/server/internal/storage"
)

// Notifier hands persisted comment events to the broadcast layer. The hub
// satisfies this; tests substitute a recorder.
type Notifier interface {
	Publish(roomKey string, event realtime.Event)
}

type CommentsHandler struct {
	Comments   storage.CommentRepository
	Articles   storage.ArticleRepository
	Subjects   storage.SubjectRepository
	Authorizer *auth.Authorizer
	Notifier   Notifier
	Env        string
}

func NewCommentsHandler(repo storage.Repository, authorizer *auth.Authorizer, notifier Notifier, env string) *CommentsHandler {
	return &CommentsHandler{
		Comments:   repo.Comments(),
		Articles:   repo.Articles(),
		Subjects:   repo.Subjects(),
		Authorizer: authorizer,
		Notifier:   notifier,
		Env:        env,
	}
}

type createCommentRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

type commentResponse struct {
	ID                string    `json:"id"`
	ArticleID         string    `json:"articleId"`
	AuthorID          string    `json:"authorId"`
	AuthorDisplayName string    `json:"authorDisplayName"`
	Content           string    `json:"content"`
	CreatedAt         time.Time `json:"createdAt"`
}

// ListByArticle handles GET /api/v1/articles/{id}/comments. Public read.
func (h *CommentsHandler) ListByArticle(w http.ResponseWriter, r *http.Request) {
	articleID := r.PathValue("id")
	if _, err := h.Articles.FindByID(r.Context(), articleID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Article not found", nil, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	comments, err := h.Comments.ListByArticle(r.Context(), articleID)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	out := make([]commentResponse, 0, len(comments))
	for _, comment := range comments {
		out = append(out, h.toResponse(r, comment))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// Create handles POST /api/v1/articles/{id}/comments. Requires an
// authenticated subject; once the comment is persisted the created event is
// handed to the broadcast layer, which fans it out to the article's room.
func (h *CommentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)
	if claims == nil {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthenticated, "Unauthenticated", auth.ErrUnauthenticated, h.Env)
		return
	}

	articleID := r.PathValue("id")
	if _, err := h.Articles.FindByID(r.Context(), articleID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Article not found", nil, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	var req createCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	if err := validate.Struct(req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env,
			problem.WithErrors(validationErrors(err)))
		return
	}

	now := time.Now().UTC()
	comment := storage.Comment{
		ID:        ulid.Make().String(),
		ArticleID: articleID,
		AuthorID:  claims.Subject,
		Content:   sanitize.HTML(req.Content),
		CreatedAt: now,
	}

	comment, err := h.Comments.Create(r.Context(), comment)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	response := h.toResponse(r, comment)
	h.Notifier.Publish(articleID, realtime.CommentCreated(articleID, realtime.CommentPayload{
		ID:                comment.ID,
		Content:           comment.Content,
		AuthorDisplayName: response.AuthorDisplayName,
		CreatedAt:         comment.CreatedAt,
	}))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(response)
}

// Delete handles DELETE /api/v1/comments/{id}. Allowed to the comment's
// author or a wildcard-role holder; destructive, so role membership is
// re-resolved from storage rather than trusted from the token.
func (h *CommentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)

	comment, err := h.Comments.FindByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Comment not found", nil, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	if err := h.Authorizer.AuthorizeSelfOrRole(r.Context(), claims, comment.AuthorID, auth.WildcardRole); err != nil {
		middleware.WriteAuthorizeProblem(w, r, err, h.Env)
		return
	}

	if err := h.Comments.Delete(r.Context(), comment.ID); err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	h.Notifier.Publish(comment.ArticleID, realtime.CommentDeleted(comment.ArticleID, comment.ID))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "Comment deleted"})
}

func (h *CommentsHandler) toResponse(r *http.Request, comment storage.Comment) commentResponse {
	displayName := ""
	if author, err := h.Subjects.FindByID(r.Context(), comment.AuthorID); err == nil {
		displayName = author.Username
	}
	return commentResponse{
		ID:                comment.ID,
		ArticleID:         comment.ArticleID,
		AuthorID:          comment.AuthorID,
		AuthorDisplayName: displayName,
		Content:           comment.Content,
		CreatedAt:         comment.CreatedAt,
	}
}
