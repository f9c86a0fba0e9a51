package service

import (
	"context"

	"postboard/internal/models"
	"postboard/internal/notifications"
	"postboard/internal/policy"
	"postboard/internal/repository"
	"postboard/internal/validation"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	events      EventPublisher
}

type CreateCommentInput struct {
	AuthorID uint
	PostID   uint
	Body     string
}

type DeleteCommentInput struct {
	UserID    uint
	CommentID uint
}

func NewCommentService(commentRepo repository.CommentRepository, events EventPublisher) *CommentService {
	return &CommentService{commentRepo: commentRepo, events: publisherOrNoop(events)}
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	if err := requireCaller(in.AuthorID); err != nil {
		return nil, err
	}
	if in.PostID == 0 {
		return nil, models.NewValidationError("post_id is required")
	}
	if err := validation.ValidateBody("body", in.Body); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	comment := &models.Comment{PostID: in.PostID, AuthorID: in.AuthorID, Body: in.Body}
	if err := s.commentRepo.CreateForPost(ctx, comment); err != nil {
		return nil, err
	}
	s.events.PublishBestEffort(ctx, notifications.EventCommentCreated, comment)
	return comment, nil
}

// ListComments returns a post's comments oldest first, or NOT_FOUND when the
// post does not exist.
func (s *CommentService) ListComments(ctx context.Context, postID uint) ([]*models.Comment, error) {
	comments, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	return comments, nil
}

func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) error {
	if err := requireCaller(in.UserID); err != nil {
		return err
	}
	comment, err := s.commentRepo.Delete(ctx, in.CommentID, func(c *models.Comment) error {
		if !policy.CanModify(in.UserID, c) {
			return models.NewForbiddenError("You can only delete your own comments")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.events.PublishBestEffort(ctx, notifications.EventCommentDeleted, comment)
	return nil
}
