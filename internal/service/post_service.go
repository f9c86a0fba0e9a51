package service

import (
	"context"

	"postboard/internal/models"
	"postboard/internal/notifications"
	"postboard/internal/policy"
	"postboard/internal/repository"
	"postboard/internal/validation"
)

type PostService struct {
	postRepo repository.PostRepository
	events   EventPublisher
}

type CreatePostInput struct {
	AuthorID uint
	Body     string
}

type DeletePostInput struct {
	UserID uint
	PostID uint
}

// PostDeletedEvent is published once a post and its children are gone.
type PostDeletedEvent struct {
	PostID   uint  `json:"post_id"`
	AuthorID uint  `json:"author_id"`
	Comments int64 `json:"comments"`
	Likes    int64 `json:"likes"`
}

// NewPostService builds a PostService. events may be nil.
func NewPostService(postRepo repository.PostRepository, events EventPublisher) *PostService {
	return &PostService{postRepo: postRepo, events: publisherOrNoop(events)}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := requireCaller(in.AuthorID); err != nil {
		return nil, err
	}
	if err := validation.ValidateBody("body", in.Body); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post := &models.Post{AuthorID: in.AuthorID, Body: in.Body}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	s.events.PublishBestEffort(ctx, notifications.EventPostCreated, post)
	return post, nil
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

// ListPosts returns all posts oldest first.
func (s *PostService) ListPosts(ctx context.Context) ([]*models.Post, error) {
	posts, err := s.postRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return posts, nil
}

// DeletePost removes the post with all of its comments and likes. Only the
// author may delete it; the ownership check runs against the locked row.
func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	if err := requireCaller(in.UserID); err != nil {
		return err
	}
	res, err := s.postRepo.DeleteCascade(ctx, in.PostID, func(post *models.Post) error {
		if !policy.CanModify(in.UserID, post) {
			return models.NewForbiddenError("You can only delete your own posts")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.events.PublishBestEffort(ctx, notifications.EventPostDeleted, PostDeletedEvent{
		PostID:   res.Post.ID,
		AuthorID: res.Post.AuthorID,
		Comments: res.Comments,
		Likes:    res.Likes,
	})
	return nil
}
