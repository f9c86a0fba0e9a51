package server

import (
	"postboard/internal/auth"
	"postboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateComment handles POST /v1/comments/new
func (s *Server) CreateComment(c *fiber.Ctx, p auth.Principal) error {
	var req struct {
		PostID uint   `json:"post_id"`
		Body   string `json:"body"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	comment, err := s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		AuthorID: p.UserID,
		PostID:   req.PostID,
		Body:     req.Body,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// ListComments handles GET /v1/comments/:postId
func (s *Server) ListComments(c *fiber.Ctx, _ auth.Principal) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return err
	}

	comments, err := s.commentService.ListComments(c.UserContext(), postID)
	if err != nil {
		return err
	}
	return c.JSON(comments)
}

// DeleteComment handles DELETE /v1/comments/:id
func (s *Server) DeleteComment(c *fiber.Ctx, p auth.Principal) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := s.commentService.DeleteComment(c.UserContext(), service.DeleteCommentInput{
		UserID:    p.UserID,
		CommentID: id,
	}); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
