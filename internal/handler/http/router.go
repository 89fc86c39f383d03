package http

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterConfig struct {
	AllowedOrigins []string
	Logger         *slog.Logger
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
}

func NewRouter(
	cfg RouterConfig,
	JWTService jwt.Service,
	calculationHandler CalculationHandler,
	taxHandler TaxHandler,
	reportHandler ReportHandler,
) *chi.Mux {
	r := chi.NewRouter()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
		r.Use(middleware.AuthRequired)
		r.Use(chiMiddleware.AllowContentType("application/json"))

		r.Route("/social-insurance", func(r chi.Router) {
			r.Use(middleware.RequirePermission(user.PermissionPayrollCalculate))
			r.Post("/calculate", calculationHandler.CalculateEmployee)
			r.Post("/batch", calculationHandler.CalculateBatch)
			r.Post("/periods/{periodID}/recalculate", calculationHandler.RecalculatePeriod)
		})

		r.Route("/payroll", func(r chi.Router) {
			r.Use(middleware.RequirePermission(user.PermissionPayrollCalculate))
			r.Post("/pay", calculationHandler.CalculatePay)
		})

		r.Route("/tax", func(r chi.Router) {
			r.With(middleware.RequirePermission(user.PermissionPayrollCalculate)).
				Get("/expected", taxHandler.ExpectedTax)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(user.PermissionTaxManage))
				r.Post("/periods/{periodID}/import", taxHandler.ImportTaxData)
				r.Put("/periods/{periodID}/employees/{employeeID}", taxHandler.SetEmployeeTax)
			})
		})

		r.Route("/reports", func(r chi.Router) {
			r.Use(middleware.RequirePermission(user.PermissionReportsView))
			r.Get("/periods/{period}/contribution-bases", reportHandler.GetContributionBaseReport)
		})
	})
	return r
}
