package app

import (
	"context"
	"net/http"
	"time"

	"todocalendar/internal/auth"
	"todocalendar/internal/config"
	"todocalendar/internal/dto"
	"todocalendar/internal/handlers"
	"todocalendar/internal/repo"
	"todocalendar/internal/service"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"
)

// deps are the stores behind the HTTP API.
type deps struct {
	users      repo.UserRepo
	categories repo.CategoryRepo
	todos      repo.TodoRepo
	calendars  repo.CalendarRepo
	events     repo.EventRepo
	files      service.FileStore
	revoker    auth.Revoker
	ready      func(context.Context) error
}

func newRouter(cfg config.Config, logger *log.Logger, d deps) *gin.Engine {
	r := newEngine(cfg, logger)
	setup(r, cfg, logger, d)
	return r
}

// setup registers all routes on the given engine.
func setup(r *gin.Engine, cfg config.Config, logger *log.Logger, d deps) {
	r.GET("/", rootHandler(cfg))
	r.GET("/health", healthHandler(cfg, d.ready))
	r.GET("/version", versionHandler(cfg))
	r.GET("/swagger-doc.json", swaggerDocHandler())
	r.GET("/swagger", func(c *gin.Context) { c.Redirect(http.StatusFound, "/swagger/index.html") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL("/swagger-doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
		ginSwagger.PersistAuthorization(true),
	))
	r.Static(dto.MediaURL, cfg.Media.Root)

	api := r.Group("/api")
	api.GET("/", rootHandler(cfg))

	tokens := auth.NewTokens(cfg.JWT.Secret, cfg.JWT.AccessTTL.Duration(), cfg.JWT.RefreshTTL.Duration())
	userSvc := service.NewUserService(d.users)
	requireAuth := auth.RequireAuth(tokens, userSvc)

	authHandler := handlers.NewAuthHandler(userSvc, tokens, d.revoker, logger)
	registerAuthRoutes(api, requireAuth, authHandler)

	protected := api.Group("", requireAuth)

	todoSvc := service.NewTodoService(d.todos, d.categories, d.files)
	registerTodoRoutes(protected, handlers.NewTodoHandler(todoSvc, logger))

	calendarSvc := service.NewCalendarService(d.calendars, d.events, d.users, d.files, cfg.Location(), logger)
	registerCalendarRoutes(protected, handlers.NewCalendarHandler(calendarSvc, logger))
}

func rootHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "TodoCalendar API",
			"version": cfg.App.Version,
			"env":     cfg.App.Env,
			"docs":    "/swagger/index.html",
			"health":  "/health",
			"authentication": gin.H{
				"login":         "/api/auth/login",
				"register":      "/api/auth/register",
				"logout":        "/api/auth/logout",
				"profile":       "/api/auth/profile",
				"token_refresh": "/api/auth/token/refresh",
			},
			"todos": gin.H{
				"list":       "/api/todos/",
				"create":     "/api/todos/",
				"detail":     "/api/todos/{id}/",
				"toggle":     "/api/todos/{id}/toggle/",
				"categories": "/api/todos/categories/",
				"statistics": "/api/todos/statistics/",
				"upcoming":   "/api/todos/upcoming/",
			},
			"calendar": gin.H{
				"calendars":       "/api/calendar/calendars/",
				"events":          "/api/calendar/events/",
				"today_events":    "/api/calendar/events/today/",
				"upcoming_events": "/api/calendar/events/upcoming/",
				"statistics":      "/api/calendar/statistics/",
			},
		})
	}
}

func healthHandler(cfg config.Config, ready func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "env": cfg.App.Env, "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "env": cfg.App.Env})
	}
}

func versionHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": cfg.App.Version})
	}
}

func swaggerDocHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := swag.ReadDoc("swagger")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
	}
}

func registerAuthRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc, h *handlers.AuthHandler) {
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/token/refresh", h.Refresh)

	me := api.Group("/auth", requireAuth)
	me.POST("/logout", h.Logout)
	me.GET("/profile", h.Profile)
	me.PUT("/profile", h.UpdateProfile)
	me.PATCH("/profile", h.UpdateProfile)
	me.POST("/change-password", h.ChangePassword)
}

func registerTodoRoutes(api *gin.RouterGroup, h *handlers.TodoHandler) {
	api.GET("/todos/categories/", h.ListCategories)
	api.POST("/todos/categories/", h.CreateCategory)
	api.GET("/todos/categories/:id/", h.GetCategory)
	api.PUT("/todos/categories/:id/", h.UpdateCategory)
	api.PATCH("/todos/categories/:id/", h.UpdateCategory)
	api.DELETE("/todos/categories/:id/", h.DeleteCategory)

	api.GET("/todos/statistics/", h.Statistics)
	api.GET("/todos/upcoming/", h.Upcoming)

	api.GET("/todos/", h.List)
	api.POST("/todos/", h.Create)
	api.GET("/todos/:id/", h.Get)
	api.PUT("/todos/:id/", h.Update)
	api.PATCH("/todos/:id/", h.Update)
	api.DELETE("/todos/:id/", h.Delete)
	api.POST("/todos/:id/toggle/", h.Toggle)
	api.POST("/todos/:id/comments/", h.AddComment)
	api.POST("/todos/:id/attachments/", h.AddAttachment)
}

func registerCalendarRoutes(api *gin.RouterGroup, h *handlers.CalendarHandler) {
	api.GET("/calendar/calendars/", h.ListCalendars)
	api.POST("/calendar/calendars/", h.CreateCalendar)
	api.GET("/calendar/calendars/:id/", h.GetCalendar)
	api.PUT("/calendar/calendars/:id/", h.UpdateCalendar)
	api.PATCH("/calendar/calendars/:id/", h.UpdateCalendar)
	api.DELETE("/calendar/calendars/:id/", h.DeleteCalendar)

	api.GET("/calendar/statistics/", h.Statistics)
	api.GET("/calendar/events/today/", h.TodayEvents)
	api.GET("/calendar/events/upcoming/", h.UpcomingEvents)

	api.GET("/calendar/events/", h.ListEvents)
	api.POST("/calendar/events/", h.CreateEvent)
	api.GET("/calendar/events/:id/", h.GetEvent)
	api.PUT("/calendar/events/:id/", h.UpdateEvent)
	api.PATCH("/calendar/events/:id/", h.UpdateEvent)
	api.DELETE("/calendar/events/:id/", h.DeleteEvent)
	api.POST("/calendar/events/:id/participants/", h.AddParticipant)
	api.POST("/calendar/events/:id/attachments/", h.AddAttachment)
	api.POST("/calendar/events/:id/reminders/", h.AddReminder)
	api.POST("/calendar/events/:id/reminders/:reminder_id/send/", h.SendReminder)
}
