package repository

import (
	"context"
	"errors"

	"postboard/internal/cache"
	"postboard/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	// CreateForPost inserts comment if its post exists, atomically with
	// respect to a concurrent delete of that post.
	CreateForPost(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	// ListByPost returns the post's comments oldest first, or NOT_FOUND if
	// the post does not exist.
	ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error)
	// Delete removes the comment after authorize approves the locked row.
	Delete(ctx context.Context, id uint, authorize func(*models.Comment) error) (*models.Comment, error)
}

type commentRepository struct {
	db    *gorm.DB
	cache *cache.Store
}

// NewCommentRepository creates a new comment repository. store may be nil.
func NewCommentRepository(db *gorm.DB, store *cache.Store) CommentRepository {
	return &commentRepository{db: db, cache: store}
}

func (r *commentRepository) CreateForPost(ctx context.Context, comment *models.Comment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPostShared(tx, comment.PostID); err != nil {
			return err
		}
		if err := tx.Create(comment).Error; err != nil {
			if errors.Is(err, gorm.ErrForeignKeyViolated) {
				return models.NewNotFoundError("Post", comment.PostID)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.cache.InvalidatePost(ctx, comment.PostID)
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &comment, nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	db := r.db.WithContext(ctx)
	if err := ensurePostExists(db, postID); err != nil {
		return nil, err
	}

	var comments []*models.Comment
	if err := db.Where("post_id = ?", postID).Order("id ASC").Find(&comments).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) Delete(ctx context.Context, id uint, authorize func(*models.Comment) error) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRow(tx, "UPDATE").First(&comment, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Comment", id)
			}
			return models.NewInternalError(err)
		}
		if authorize != nil {
			if err := authorize(&comment); err != nil {
				return err
			}
		}
		if err := tx.Delete(&models.Comment{}, id).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.cache.InvalidatePost(ctx, comment.PostID)
	return &comment, nil
}
