package server

import (
	"postboard/internal/auth"
	"postboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateLike handles POST /v1/likes/new
func (s *Server) CreateLike(c *fiber.Ctx, p auth.Principal) error {
	var req struct {
		PostID uint `json:"post_id"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	like, err := s.likeService.CreateLike(c.UserContext(), service.CreateLikeInput{
		UserID: p.UserID,
		PostID: req.PostID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(like)
}

// ListLikes handles GET /v1/likes/:postId
func (s *Server) ListLikes(c *fiber.Ctx, _ auth.Principal) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return err
	}

	likes, err := s.likeService.ListLikes(c.UserContext(), postID)
	if err != nil {
		return err
	}
	return c.JSON(likes)
}
