// Package comment stores photo comments for the stub server.
package comment

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"pixshare/pkg/resource"
)

var (
	ErrNotFound  = errors.New("comment not found")
	ErrForbidden = errors.New("not authorized to delete this comment")
)

// Comment is one stored comment. Guests have no UserID.
type Comment struct {
	MongoID primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ID      int64              `bson:"id" json:"id"`
	PhotoID int64              `bson:"photo_id" json:"photo_id"`
	UserID  string             `bson:"user_id,omitempty" json:"-"`
	Author  string             `bson:"author" json:"author"`
	Content string             `bson:"content" json:"content"`
	Created time.Time          `bson:"created" json:"created_at"`
}

// Resource is the comment as the API returns it.
func (c *Comment) Resource() resource.Comment {
	return resource.Comment{
		ID:        c.ID,
		Content:   c.Content,
		Author:    c.Author,
		CreatedAt: c.Created.UTC().Format(resource.TimeLayout),
	}
}

type Repository interface {
	// Add assigns the comment its ID.
	Add(ctx context.Context, c *Comment) error
	// ByPhoto lists a photo's comments oldest first.
	ByPhoto(ctx context.Context, photoID int64) ([]*Comment, error)
	// Delete removes a comment written by userID.
	Delete(ctx context.Context, photoID, commentID int64, userID string) error
	// DeleteByPhoto drops every comment on a photo.
	DeleteByPhoto(ctx context.Context, photoID int64) error
}
