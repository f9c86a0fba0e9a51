package models

import "time"

type Post struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	AuthorID uint   `gorm:"not null;index" json:"author_id"`
	Author   *User  `gorm:"foreignKey:AuthorID" json:"-"`
	Body     string `gorm:"type:text;not null" json:"body"`
	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"-" json:"likes_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int       `gorm:"-" json:"comments_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// OwnerID returns the author of the post.
func (p *Post) OwnerID() uint {
	return p.AuthorID
}
