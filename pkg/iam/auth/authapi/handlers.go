package authapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/vibevault/userservice/pkg/errx"
	"github.com/vibevault/userservice/pkg/iam/auth"
	"github.com/vibevault/userservice/pkg/iam/auth/authsrv"
	"github.com/vibevault/userservice/pkg/iam/role"
	"github.com/vibevault/userservice/pkg/kernel"
)

// Handlers exposes the authentication endpoints over HTTP.
type Handlers struct {
	svc *authsrv.AuthService
}

func NewHandlers(svc *authsrv.AuthService) *Handlers {
	return &Handlers{svc: svc}
}

// RegisterRoutes mounts the auth endpoints. Every route captures the caller's
// network identity so sessions record where they were opened from.
func (h *Handlers) RegisterRoutes(app *fiber.App, mw *auth.TokenMiddleware) {
	grp := app.Group("/auth", CaptureClientInfo())
	grp.Post("/login", h.Login)
	grp.Post("/signup", h.Signup)
	grp.Post("/validate", h.Validate)
	grp.Post("/logout", h.Logout)
	grp.Get("/me", mw.Authenticate(), h.Me)
}

// CaptureClientInfo records the request's IP and user agent on the request
// context so the service layer can stamp them onto new sessions.
func CaptureClientInfo() fiber.Handler {
	return func(c *fiber.Ctx) error {
		info := kernel.ClientInfo{
			IPAddress: clientIP(c),
			UserAgent: c.Get(fiber.HeaderUserAgent),
		}
		c.SetUserContext(kernel.WithClientInfo(c.UserContext(), info))
		return c.Next()
	}
}

// clientIP prefers the first hop of X-Forwarded-For over the socket address.
func clientIP(c *fiber.Ctx) string {
	if fwd := c.Get(fiber.HeaderXForwardedFor); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}
	return c.IP()
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
}

func (h *Handlers) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.New("invalid request body", errx.TypeValidation).WithCause(err)
	}

	result, err := h.svc.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(loginResponse{
		Token:     result.Token,
		SessionID: result.SessionID.String(),
	})
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

type signupResponse struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	Role       string `json:"role"`
	AssignedAt string `json:"assigned_at"`
}

func (h *Handlers) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.New("invalid request body", errx.TypeValidation).WithCause(err)
	}

	assignment, err := h.svc.Signup(c.UserContext(), req.Email, req.Password, req.Name, req.Phone, req.Role)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(signupResponse{
		UserID:     assignment.User.ID.String(),
		Email:      assignment.User.Email,
		FullName:   assignment.User.FullName(),
		Role:       assignment.Role.Name,
		AssignedAt: assignment.AssignedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

type validateRequest struct {
	Token string `json:"token"`
}

type validateResponse struct {
	Valid  bool     `json:"valid"`
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
}

func (h *Handlers) Validate(c *fiber.Ctx) error {
	var req validateRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.New("invalid request body", errx.TypeValidation).WithCause(err)
	}
	if req.Token == "" {
		return errx.New("token is required", errx.TypeValidation)
	}

	assignments, err := h.svc.ValidateToken(c.UserContext(), req.Token)
	if err != nil {
		return err
	}
	owner := assignments[0].User
	return c.JSON(validateResponse{
		Valid:  true,
		UserID: owner.ID.String(),
		Email:  owner.Email,
		Roles:  role.RoleNames(assignments),
	})
}

type logoutRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

func (h *Handlers) Logout(c *fiber.Ctx) error {
	var req logoutRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.New("invalid request body", errx.TypeValidation).WithCause(err)
	}
	if req.Token == "" {
		return errx.New("token is required", errx.TypeValidation)
	}

	if err := h.svc.Logout(c.UserContext(), req.Email, req.Token); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "logged out"})
}

// Me echoes the authenticated identity resolved by the middleware.
func (h *Handlers) Me(c *fiber.Ctx) error {
	ac := auth.AuthContextFromLocals(c)
	if ac == nil {
		return auth.ErrInvalidToken("missing authentication")
	}
	return c.JSON(fiber.Map{
		"user_id": ac.UserID.String(),
		"email":   ac.Email,
		"roles":   ac.Roles,
	})
}
