package repository

import (
	"context"
	"errors"

	"postboard/internal/cache"
	"postboard/internal/models"

	"gorm.io/gorm"
)

// LikeRepository defines the interface for like data operations
type LikeRepository interface {
	// CreateForPost inserts like if its post exists and the user has not
	// liked it yet. A repeat like is a CONFLICT.
	CreateForPost(ctx context.Context, like *models.Like) error
	// ListByPost returns the post's likes oldest first, or NOT_FOUND if the
	// post does not exist.
	ListByPost(ctx context.Context, postID uint) ([]*models.Like, error)
}

type likeRepository struct {
	db    *gorm.DB
	cache *cache.Store
}

// NewLikeRepository creates a new like repository. store may be nil.
func NewLikeRepository(db *gorm.DB, store *cache.Store) LikeRepository {
	return &likeRepository{db: db, cache: store}
}

func (r *likeRepository) CreateForPost(ctx context.Context, like *models.Like) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPostShared(tx, like.PostID); err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&models.Like{}).
			Where("post_id = ? AND user_id = ?", like.PostID, like.UserID).
			Count(&existing).Error; err != nil {
			return models.NewInternalError(err)
		}
		if existing > 0 {
			return models.NewConflictError("Post already liked")
		}

		if err := tx.Create(like).Error; err != nil {
			switch {
			case isUniqueConstraintError(err):
				return models.NewConflictError("Post already liked")
			case errors.Is(err, gorm.ErrForeignKeyViolated):
				return models.NewNotFoundError("Post", like.PostID)
			default:
				return models.NewInternalError(err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.cache.InvalidatePost(ctx, like.PostID)
	return nil
}

func (r *likeRepository) ListByPost(ctx context.Context, postID uint) ([]*models.Like, error) {
	db := r.db.WithContext(ctx)
	if err := ensurePostExists(db, postID); err != nil {
		return nil, err
	}

	var likes []*models.Like
	if err := db.Where("post_id = ?", postID).Order("id ASC").Find(&likes).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return likes, nil
}
