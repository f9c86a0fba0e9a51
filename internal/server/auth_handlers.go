package server

import (
	"postboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Signup handles POST /v1/signup
func (s *Server) Signup(c *fiber.Ctx) error {
	var req service.SignUpInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	res, err := s.authService.SignUp(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// Signin handles POST /v1/signin
func (s *Server) Signin(c *fiber.Ctx) error {
	var req service.SignInInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	res, err := s.authService.SignIn(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(res)
}
