package repository

import (
	"context"
	"errors"
	"log/slog"

	"postboard/internal/cache"
	"postboard/internal/middleware"
	"postboard/internal/models"
	"postboard/internal/observability"

	"gorm.io/gorm"
)

// CascadeResult reports what a post deletion removed.
type CascadeResult struct {
	Post     models.Post
	Comments int64
	Likes    int64
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context) ([]*models.Post, error)
	// DeleteCascade removes the post with its likes and comments in one
	// transaction. authorize runs against the locked row; a non-nil error
	// aborts the delete and is returned unchanged.
	DeleteCascade(ctx context.Context, id uint, authorize func(*models.Post) error) (*CascadeResult, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db    *gorm.DB
	cache *cache.Store
}

// NewPostRepository creates a new post repository. store may be nil.
func NewPostRepository(db *gorm.DB, store *cache.Store) PostRepository {
	return &postRepository{db: db, cache: store}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post", id)
			}
			return models.NewInternalError(err)
		}
		return applyCounts(r.db.WithContext(ctx), []*models.Post{&post})
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// List returns every post, oldest first.
func (r *postRepository) List(ctx context.Context) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := applyCounts(r.db.WithContext(ctx), posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) DeleteCascade(ctx context.Context, id uint, authorize func(*models.Post) error) (*CascadeResult, error) {
	ctx, span := observability.StartRepositorySpan(ctx, "DeleteCascade", "posts")
	defer span.End()

	var result CascadeResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The exclusive lock blocks comment and like inserts, which take a
		// shared lock on the same row, until this transaction finishes.
		if err := lockRow(tx, "UPDATE").First(&result.Post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post", id)
			}
			return models.NewInternalError(err)
		}

		if authorize != nil {
			if err := authorize(&result.Post); err != nil {
				return err
			}
		}

		likes := tx.Where("post_id = ?", id).Delete(&models.Like{})
		if likes.Error != nil {
			return models.NewInternalError(likes.Error)
		}
		result.Likes = likes.RowsAffected

		comments := tx.Where("post_id = ?", id).Delete(&models.Comment{})
		if comments.Error != nil {
			return models.NewInternalError(comments.Error)
		}
		result.Comments = comments.RowsAffected

		if err := tx.Delete(&models.Post{}, id).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	r.cache.InvalidatePost(ctx, id)
	middleware.CascadeDeletedRows.WithLabelValues("posts").Inc()
	middleware.CascadeDeletedRows.WithLabelValues("comments").Add(float64(result.Comments))
	middleware.CascadeDeletedRows.WithLabelValues("likes").Add(float64(result.Likes))
	middleware.Logger.InfoContext(ctx, "post deleted",
		slog.Uint64("post_id", uint64(id)),
		slog.Int64("comments", result.Comments),
		slog.Int64("likes", result.Likes),
	)
	return &result, nil
}

type postCount struct {
	PostID uint
	N      int
}

// applyCounts fills LikesCount and CommentsCount with one grouped query per table.
func applyCounts(db *gorm.DB, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]uint, len(posts))
	byID := make(map[uint]*models.Post, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		byID[p.ID] = p
	}

	var likeCounts []postCount
	if err := db.Model(&models.Like{}).
		Select("post_id, count(*) AS n").
		Where("post_id IN ?", ids).
		Group("post_id").
		Scan(&likeCounts).Error; err != nil {
		return models.NewInternalError(err)
	}
	for _, c := range likeCounts {
		byID[c.PostID].LikesCount = c.N
	}

	var commentCounts []postCount
	if err := db.Model(&models.Comment{}).
		Select("post_id, count(*) AS n").
		Where("post_id IN ?", ids).
		Group("post_id").
		Scan(&commentCounts).Error; err != nil {
		return models.NewInternalError(err)
	}
	for _, c := range commentCounts {
		byID[c.PostID].CommentsCount = c.N
	}
	return nil
}

// ensurePostExists checks for the post without locking, mapping absence to NOT_FOUND.
func ensurePostExists(db *gorm.DB, id uint) error {
	var count int64
	if err := db.Model(&models.Post{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return models.NewInternalError(err)
	}
	if count == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

// lockPostShared takes a shared lock on the post so it cannot be deleted
// until the calling transaction ends.
func lockPostShared(tx *gorm.DB, id uint) error {
	var post models.Post
	if err := lockRow(tx, "SHARE").Select("id").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Post", id)
		}
		return models.NewInternalError(err)
	}
	return nil
}
