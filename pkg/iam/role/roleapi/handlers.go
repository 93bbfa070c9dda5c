package roleapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/vibevault/userservice/pkg/errx"
	"github.com/vibevault/userservice/pkg/iam/auth"
	"github.com/vibevault/userservice/pkg/iam/role/rolesrv"
	"github.com/vibevault/userservice/pkg/kernel"
)

// Handlers exposes role catalog administration over HTTP. All routes are
// restricted to administrators.
type Handlers struct {
	svc *rolesrv.RoleService
}

func NewHandlers(svc *rolesrv.RoleService) *Handlers {
	return &Handlers{svc: svc}
}

func (h *Handlers) RegisterRoutes(app *fiber.App, mw *auth.TokenMiddleware) {
	grp := app.Group("/roles", mw.Authenticate(), mw.RequireRole("ADMIN"))
	grp.Get("/", h.List)
	grp.Post("/", h.Create)
	grp.Get("/:id", h.Get)
	grp.Put("/:id", h.Update)
}

type roleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handlers) Create(c *fiber.Ctx) error {
	var req roleRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.New("invalid request body", errx.TypeValidation).WithCause(err)
	}

	r, err := h.svc.Create(c.UserContext(), req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(r)
}

func (h *Handlers) Update(c *fiber.Ctx) error {
	var req roleRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.New("invalid request body", errx.TypeValidation).WithCause(err)
	}

	r, err := h.svc.Update(c.UserContext(), kernel.RoleID(c.Params("id")), req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.JSON(r)
}

func (h *Handlers) Get(c *fiber.Ctx) error {
	r, err := h.svc.GetByID(c.UserContext(), kernel.RoleID(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(r)
}

func (h *Handlers) List(c *fiber.Ctx) error {
	roles, err := h.svc.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"roles": roles})
}
