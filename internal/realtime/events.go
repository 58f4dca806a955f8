// Package realtime fans comment-lifecycle events out to websocket clients
// subscribed to an article's discussion room. Rooms are ephemeral: a room
// exists only while at least one connection is joined, and has no persisted
// representation. Authorization happens upstream in the comment handlers;
// nothing in this package checks permissions.
package realtime

import "time"

// Event kinds delivered to subscribers.
const (
	KindCommentCreated = "comment.created"
	KindCommentDeleted = "comment.deleted"
)

// CommentPayload is the subscriber-facing shape of a created comment.
type CommentPayload struct {
	ID                string    `json:"id"`
	Content           string    `json:"content"`
	AuthorDisplayName string    `json:"authorDisplayName"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Event is a transient comment-lifecycle notification. It exists only for
// the duration of dispatch; storage is the CRUD layer's concern.
type Event struct {
	Kind      string          `json:"kind"`
	ArticleID string          `json:"articleId"`
	Comment   *CommentPayload `json:"comment,omitempty"`
	CommentID string          `json:"commentId,omitempty"`
}

// CommentCreated builds a creation event for the article's room.
func CommentCreated(articleID string, comment CommentPayload) Event {
	return Event{Kind: KindCommentCreated, ArticleID: articleID, Comment: &comment}
}

// CommentDeleted builds a deletion event for the article's room.
func CommentDeleted(articleID, commentID string) Event {
	return Event{Kind: KindCommentDeleted, ArticleID: articleID, CommentID: commentID}
}
