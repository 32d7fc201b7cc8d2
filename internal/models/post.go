package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PostType tags the flavor of a post
type PostType string

const (
	PostTypeText          PostType = "text"
	PostTypeIdea          PostType = "idea"
	PostTypeProyecto      PostType = "proyecto"
	PostTypeEquipo        PostType = "equipo"
	PostTypeEvento        PostType = "evento"
	PostTypeAcademicEvent PostType = "academic_event"
)

// MediaKind distinguishes attached media
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// Post represents a post stored in MongoDB. Engagement edges (reactions,
// saves, idea participants, comments) live in PostgreSQL and reference the
// post by its hex ObjectID.
type Post struct {
	ID            primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID        uint               `json:"user_id" bson:"user_id"`
	Content       string             `json:"content" bson:"content"`
	PostType      PostType           `json:"post_type" bson:"post_type"`
	MediaURL      string             `json:"media_url,omitempty" bson:"media_url,omitempty"`
	MediaKind     MediaKind          `json:"media_kind,omitempty" bson:"media_kind,omitempty"`
	Visibility    string             `json:"visibility" bson:"visibility"`
	CommentsCount int                `json:"comments_count" bson:"comments_count"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Content   string `json:"content" validate:"required,min=1,max=2000"`
	PostType  string `json:"post_type" validate:"required,oneof=text idea proyecto equipo evento academic_event"`
	MediaURL  string `json:"media_url,omitempty" validate:"omitempty,url"`
	MediaKind string `json:"media_kind,omitempty" validate:"omitempty,oneof=image video"`
}

// UpdatePostRequest defines the request body for updating an existing post
type UpdatePostRequest struct {
	Content string `json:"content,omitempty" validate:"omitempty,min=1,max=2000"`
}
