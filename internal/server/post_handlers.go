package server

import (
	"postboard/internal/auth"
	"postboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListPosts handles GET /v1/posts
func (s *Server) ListPosts(c *fiber.Ctx, _ auth.Principal) error {
	posts, err := s.postService.ListPosts(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(posts)
}

// CreatePost handles POST /v1/posts. The author is always the caller.
func (s *Server) CreatePost(c *fiber.Ctx, p auth.Principal) error {
	var req struct {
		Body string `json:"body"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorID: p.UserID,
		Body:     req.Body,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost handles GET /v1/posts/:id
func (s *Server) GetPost(c *fiber.Ctx, _ auth.Principal) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /v1/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx, p auth.Principal) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := s.postService.DeletePost(c.UserContext(), service.DeletePostInput{
		UserID: p.UserID,
		PostID: id,
	}); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
