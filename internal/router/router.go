package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/dogrun-backend/internal/handler"    // handlers implementing each endpoint
	"github.com/iliyamo/dogrun-backend/internal/middleware" // principal resolution, role checks, rate limiting and caching
	"github.com/iliyamo/dogrun-backend/internal/model"
)

// Handlers groups everything RegisterRoutes wires into Echo.
type Handlers struct {
	Auth          *handler.AuthHandler
	Admin         *handler.AdminHandler
	Users         *handler.UserHandler
	Dogs          *handler.DogHandler
	Posts         *handler.PostHandler
	Entries       *handler.EntryHandler
	BusinessHours *handler.BusinessHourHandler
	Ready         echo.HandlerFunc
}

// Guards are the middlewares that differ between deployments.
type Guards struct {
	Resolver  middleware.PrincipalResolver
	RateLimit echo.MiddlewareFunc // applied to credential endpoints
	Cache     echo.MiddlewareFunc // applied to cacheable public reads
}

// RegisterRoutes registers every API route.  Member routes require a user
// token, /admin routes an admin token plus the minimum role noted per
// route.  Guards are attached per route rather than through groups, since
// a group's middleware also runs for its catch-all 404.
func RegisterRoutes(e *echo.Echo, h Handlers, g Guards) {
	limit := orPass(g.RateLimit)
	cache := orPass(g.Cache)
	user := middleware.UserAuth(g.Resolver)

	// Liveness and readiness probes for load balancers.
	e.GET("/healthz", handler.Health)
	if h.Ready != nil {
		e.GET("/readyz", h.Ready)
	}

	// ---- Public auth and application workflow ----
	pub := e.Group("/auth")
	pub.POST("/register", h.Auth.Register, limit)
	pub.POST("/login", h.Auth.Login, limit)
	pub.POST("/apply", h.Auth.Apply, limit)
	pub.GET("/application-status/:id", h.Auth.ApplicationStatus)

	e.GET("/posts", h.Posts.List)
	e.GET("/business-hours", h.BusinessHours.List, cache)

	// ---- Member endpoints ----
	e.GET("/users/me", h.Users.Me, user)
	e.PUT("/users/profile", h.Users.UpdateProfile, user)

	e.GET("/dogs", h.Dogs.List, user)
	e.POST("/dogs", h.Dogs.Create, user)
	e.PUT("/dogs/:id", h.Dogs.Update, user)
	e.DELETE("/dogs/:id", h.Dogs.Delete, user)

	e.POST("/posts", h.Posts.Create, user)
	e.POST("/posts/:id/like", h.Posts.Like, user)
	e.POST("/posts/:id/comments", h.Posts.Comment, user)

	e.POST("/entry/enter", h.Entries.Enter, user)
	e.POST("/entry/exit", h.Entries.Exit, user)
	e.GET("/entry/logs", h.Entries.Logs, user)

	// ---- Admin console ----
	e.POST("/admin/auth/login", h.Admin.Login, limit)

	admin := middleware.AdminAuth(g.Resolver)
	e.GET("/admin/auth/me", h.Admin.Me, admin)

	// Read-only views are open to every role.
	view := middleware.RequireAdminRole(model.RoleModerator)
	e.GET("/admin/applications", h.Admin.ListApplications, admin, view)
	e.GET("/admin/applications/stats", h.Admin.ApplicationStats, admin, view)
	e.GET("/admin/applications/:id", h.Admin.GetApplication, admin, view)
	e.GET("/admin/dashboard/stats", h.Admin.DashboardStats, admin, view)

	// Decisions and settings need admin or above.
	manage := middleware.RequireAdminRole(model.RoleAdmin)
	e.PUT("/admin/applications/:id/approve", h.Admin.Approve, admin, manage)
	e.PUT("/admin/applications/:id/reject", h.Admin.Reject, admin, manage)
	e.PUT("/admin/business-hours/:day", h.BusinessHours.Update, admin, manage)

	e.DELETE("/admin/users/:id", h.Admin.DeleteUser, admin, middleware.RequireAdminRole(model.RoleSuperAdmin))
}

func orPass(m echo.MiddlewareFunc) echo.MiddlewareFunc {
	if m == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return m
}
