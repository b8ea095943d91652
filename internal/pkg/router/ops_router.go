package router

import (
	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuelReschke/PayFox/docs"
	"github.com/ManuelReschke/PayFox/internal/pkg/constants"
)

type OpsRouter struct {
	deps Dependencies
}

func NewOpsRouter(deps Dependencies) *OpsRouter {
	return &OpsRouter{deps: deps}
}

func (h OpsRouter) InstallRouter(app *fiber.App) {
	// prometheus metrics
	app.Get(constants.MetricsRoute, statsAuth(h.deps.Config), adaptor.HTTPHandler(promhttp.Handler()))

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: constants.DocsBasePath,
		FilePath: docs.FilePath,
		Path:     constants.DocsPath,
	}))
}
