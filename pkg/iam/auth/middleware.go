package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/vibevault/userservice/pkg/errx"
	"github.com/vibevault/userservice/pkg/iam/role"
	"github.com/vibevault/userservice/pkg/kernel"
)

const authLocalsKey = "auth"

// TokenMiddleware authenticates requests by running the full token
// validation pipeline and exposing the resulting identity as an AuthContext.
type TokenMiddleware struct {
	validator *TokenValidator
}

func NewTokenMiddleware(validator *TokenValidator) *TokenMiddleware {
	return &TokenMiddleware{validator: validator}
}

// Authenticate validates the bearer token and stores the identity in locals.
func (m *TokenMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return unauthorized(c, ErrInvalidToken("missing bearer token"))
		}

		assignments, err := m.validator.Validate(c.UserContext(), token)
		if err != nil {
			var e *errx.Error
			if errx.As(err, &e) && e.Type != errx.TypeInternal {
				return unauthorized(c, e)
			}
			return err
		}

		owner := assignments[0].User
		ac := &kernel.AuthContext{
			UserID: owner.ID,
			Email:  owner.Email,
			Roles:  role.RoleNames(assignments),
		}
		c.Locals(authLocalsKey, ac)
		c.SetUserContext(kernel.WithAuthContext(c.UserContext(), ac))
		return c.Next()
	}
}

// RequireRole guards a route group behind a role name.
func (m *TokenMiddleware) RequireRole(name string) fiber.Handler {
	required := role.NormalizeName(name)
	return func(c *fiber.Ctx) error {
		ac := AuthContextFromLocals(c)
		if ac == nil {
			return unauthorized(c, ErrInvalidToken("missing authentication"))
		}
		if !ac.HasRole(required) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "access denied",
			})
		}
		return c.Next()
	}
}

// AuthContextFromLocals extracts the identity placed by Authenticate.
func AuthContextFromLocals(c *fiber.Ctx) *kernel.AuthContext {
	ac, _ := c.Locals(authLocalsKey).(*kernel.AuthContext)
	return ac
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && parts[1] != "" {
		return parts[1]
	}
	return ""
}

func unauthorized(c *fiber.Ctx, err *errx.Error) error {
	return c.Status(err.HTTPStatus).JSON(err)
}
