package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/Skotchmaster/gigmarket/internal/apperrors"
	"github.com/Skotchmaster/gigmarket/internal/db"
	"github.com/Skotchmaster/gigmarket/internal/handlers"
	authmw "github.com/Skotchmaster/gigmarket/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/gigmarket/internal/middleware/logging"
	"github.com/Skotchmaster/gigmarket/internal/upload"
	"github.com/Skotchmaster/gigmarket/internal/validate"
)

// bodyLimit sits above the largest upload policy plus form overhead.
const bodyLimit = "10M"

// uploadRoutes maps multipart routes to the file fields they accept.
var uploadRoutes = map[string][]string{
	http.MethodPut + " /api/me":    {upload.FieldAvatar, upload.FieldCV},
	http.MethodPost + " /api/jobs": {upload.FieldAttachment},
}

type Deps struct {
	DB             *gorm.DB
	Logger         *slog.Logger
	Gate           *authmw.Gate
	AuthHandler    *handlers.AuthHandler
	ProfileHandler *handlers.ProfileHandler
	JobHandler     *handlers.JobHandler
	MessageHandler *handlers.MessageHandler
	PaymentHandler *handlers.PaymentHandler
	SearchHandler  *handlers.SearchHandler
	// UploadDir is served at /uploads when set.
	UploadDir string
	// AllowOrigins defaults to any origin when empty.
	AllowOrigins []string
}

func New(d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validate.New()
	e.HTTPErrorHandler = apperrors.HTTPErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), middleware.Secure())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  d.AllowOrigins,
		AllowHeaders:  []string{echo.HeaderAuthorization, echo.HeaderContentType},
		ExposeHeaders: []string{handlers.HeaderTotalCount},
	}))
	if d.Logger != nil {
		e.Use(loggingmw.RequestLogger(d.Logger))
	}
	e.Use(limitBody(bodyLimit))

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.DB != nil {
			if err := db.Ping(c.Request().Context(), d.DB); err != nil {
				return apperrors.Unavailable("database unavailable")
			}
		}
		return c.NoContent(http.StatusOK)
	})
	if d.UploadDir != "" {
		e.Static("/uploads", d.UploadDir)
	}

	api := e.Group("/api")

	api.POST("/auth/register", d.AuthHandler.Register)
	api.POST("/auth/login", d.AuthHandler.Login)

	api.GET("/jobs", d.JobHandler.GetJobs)
	api.GET("/jobs/search", d.SearchHandler.Search)
	api.GET("/jobs/:id", d.JobHandler.GetJob)

	// provider callback; authenticated by signature, not by the gate
	api.POST("/payments/webhook", d.PaymentHandler.Webhook)

	// The gate is group middleware so it runs before any handler reads
	// the body.
	secured := api.Group("", d.Gate.RequireLogin)

	secured.POST("/auth/logout", d.AuthHandler.LogOut)
	secured.GET("/me", d.AuthHandler.Me)
	secured.PUT("/me", d.ProfileHandler.UpdateMe)
	secured.POST("/jobs", d.JobHandler.CreateJob)
	secured.GET("/messages/:room", d.MessageHandler.GetRoom)
	secured.GET("/messages/:room/stream", d.MessageHandler.StreamRoom)
	secured.POST("/messages", d.MessageHandler.PostMessage)
	secured.POST("/payments/create-checkout", d.PaymentHandler.CreateCheckout)
}

// limitBody wraps echo's BodyLimit. On upload routes an oversized body is
// answered like any other upload rejection instead of a bare 413.
func limitBody(limit string) echo.MiddlewareFunc {
	capped := middleware.BodyLimit(limit)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		h := capped(next)
		return func(c echo.Context) error {
			err := h(c)
			if err == nil || !errors.Is(err, echo.ErrStatusRequestEntityTooLarge) {
				return err
			}
			if fields, ok := uploadRoutes[c.Request().Method+" "+c.Path()]; ok {
				return apperrors.UploadRejected(upload.TooLargeMessage(fields...), err)
			}
			return err
		}
	}
}
