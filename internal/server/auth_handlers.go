package server

import (
	"github.com/gofiber/fiber/v2"

	"inkwell/internal/models"
	"inkwell/internal/validation"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func sessionResponse(session *models.Session) fiber.Map {
	if session == nil {
		return fiber.Map{"session": nil}
	}
	return fiber.Map{
		"session": fiber.Map{
			"user":       session.Identity,
			"token":      session.AccessToken,
			"expires_at": session.ExpiresAt,
		},
	}
}

// Signup handles user registration
func (s *Server) Signup(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, models.NewValidationError("Invalid request body"))
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		return fail(c, models.NewValidationError(err.Error()))
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		return fail(c, models.NewValidationError(err.Error()))
	}

	session, err := s.sessions.SignUp(c.Context(), req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sessionResponse(session))
}

// Login handles password authentication
func (s *Server) Login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, models.NewValidationError("Invalid request body"))
	}
	if req.Email == "" || req.Password == "" {
		return fail(c, models.NewValidationError("Email and password are required"))
	}

	session, err := s.sessions.SignIn(c.Context(), req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(sessionResponse(session))
}

// Logout ends the current session. The local session is cleared even when
// the backend call fails.
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.sessions.SignOut(c.Context()); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// GetSession reports the current session, nil when logged out.
func (s *Server) GetSession(c *fiber.Ctx) error {
	return c.JSON(sessionResponse(s.sessions.Session()))
}
