// Package api exposes the vesting engine over HTTP with fiber.
//
// Commands act on behalf of the caller named in the X-Vesting-Identity
// header. The header is trusted; authenticate callers in front of this
// handler.
package api

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/address"
)

// IdentityHeader carries the base58 address of the caller.
const IdentityHeader = "X-Vesting-Identity"

// DefaultBasePath is the route prefix used when none is configured.
const DefaultBasePath = "/vesting"

// API serves the vesting engine.
type API struct {
	engine   *vesting.Engine
	logger   *slog.Logger
	basePath string
}

// Option configures an API.
type Option func(*API)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) { a.logger = logger }
}

// WithBasePath sets the route prefix.
func WithBasePath(path string) Option {
	return func(a *API) {
		if path != "" {
			a.basePath = "/" + strings.Trim(path, "/")
		}
	}
}

// New creates an API over engine.
func New(engine *vesting.Engine, opts ...Option) *API {
	a := &API{
		engine:   engine,
		logger:   slog.Default(),
		basePath: DefaultBasePath,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BasePath returns the route prefix.
func (a *API) BasePath() string { return a.basePath }

// App builds a fiber application with the vesting routes mounted under
// the base path.
func (a *API) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "vesting",
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler(a.logger),
	})
	a.Register(app.Group(a.basePath))
	return app
}

// Register mounts the routes on router.
func (a *API) Register(router fiber.Router) {
	accounts := router.Group("/accounts")
	accounts.Post("/", a.createVestingAccount)
	accounts.Get("/", a.listVestingAccounts)
	accounts.Get("/:address", a.getVestingAccount)
	accounts.Get("/:address/treasury", a.treasuryBalance)
	accounts.Post("/:address/fund", a.fundTreasury)
	accounts.Post("/:address/employees", a.createEmployeeVesting)
	accounts.Get("/:address/employees", a.listEmployees)
	accounts.Post("/:address/claim", a.claimFor)

	employees := router.Group("/employees")
	employees.Get("/", a.listByBeneficiary)
	employees.Get("/:address", a.getEmployeeAccount)
	employees.Get("/:address/status", a.status)
	employees.Get("/:address/claims", a.listClaims)
	employees.Post("/:address/claim", a.claim)

	router.Get("/claims/:id", a.getClaim)
	router.Get("/derive/employee", a.deriveEmployee)
}

// identity returns the caller address from IdentityHeader.
func identity(c *fiber.Ctx) (address.Address, error) {
	raw := c.Get(IdentityHeader)
	if raw == "" {
		return address.Address{}, Error{
			Status:  fiber.StatusUnauthorized,
			Code:    "missing_identity",
			Message: IdentityHeader + " header is required",
		}
	}
	addr, err := address.Parse(raw)
	if err != nil {
		return address.Address{}, Error{
			Status:  fiber.StatusUnauthorized,
			Code:    "invalid_identity",
			Message: err.Error(),
		}
	}
	return addr, nil
}

func pathAddress(c *fiber.Ctx, name string) (address.Address, error) {
	addr, err := address.Parse(c.Params(name))
	if err != nil {
		return address.Address{}, badRequest("invalid_address", err.Error())
	}
	return addr, nil
}

func queryAddress(c *fiber.Ctx, name string) (address.Address, bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return address.Address{}, false, nil
	}
	addr, err := address.Parse(raw)
	if err != nil {
		return address.Address{}, false, badRequest("invalid_address", name+": "+err.Error())
	}
	return addr, true, nil
}

// page reads limit and offset query parameters.
func page(c *fiber.Ctx) (limit, offset int, err error) {
	limit = c.QueryInt("limit", 0)
	offset = c.QueryInt("offset", 0)
	if limit < 0 || offset < 0 {
		return 0, 0, badRequest("invalid_page", "limit and offset must not be negative")
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return limit, offset, nil
}

const maxPageSize = 1000
