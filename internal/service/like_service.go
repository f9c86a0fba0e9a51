package service

import (
	"context"

	"postboard/internal/models"
	"postboard/internal/notifications"
	"postboard/internal/repository"
)

type LikeService struct {
	likeRepo repository.LikeRepository
	events   EventPublisher
}

type CreateLikeInput struct {
	UserID uint
	PostID uint
}

// LikeList is a post's likes with their total.
type LikeList struct {
	Likes []*models.Like `json:"likes"`
	Count int            `json:"count"`
}

func NewLikeService(likeRepo repository.LikeRepository, events EventPublisher) *LikeService {
	return &LikeService{likeRepo: likeRepo, events: publisherOrNoop(events)}
}

// CreateLike records that the caller likes a post. Liking twice is a CONFLICT.
func (s *LikeService) CreateLike(ctx context.Context, in CreateLikeInput) (*models.Like, error) {
	if err := requireCaller(in.UserID); err != nil {
		return nil, err
	}
	if in.PostID == 0 {
		return nil, models.NewValidationError("post_id is required")
	}

	like := &models.Like{PostID: in.PostID, UserID: in.UserID}
	if err := s.likeRepo.CreateForPost(ctx, like); err != nil {
		return nil, err
	}
	s.events.PublishBestEffort(ctx, notifications.EventLikeCreated, like)
	return like, nil
}

func (s *LikeService) ListLikes(ctx context.Context, postID uint) (*LikeList, error) {
	likes, err := s.likeRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if likes == nil {
		likes = []*models.Like{}
	}
	return &LikeList{Likes: likes, Count: len(likes)}, nil
}
