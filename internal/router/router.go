package router

import (
	"github.com/labstack/echo/v4"

	"github.com/yogamaster/yoga-client/internal/handlers"
	"github.com/yogamaster/yoga-client/internal/middleware"
)

// SetupAuthRoutes registers the sign-in, sign-up and sign-out routes.
func SetupAuthRoutes(app *echo.Echo, auth *handlers.AuthHandler, oauth *handlers.OAuthHandler) {
	app.GET("/login", auth.Login)
	app.POST("/login", auth.SubmitLogin)
	app.GET("/register", auth.Register)
	app.POST("/register", auth.SubmitRegister)
	app.POST("/logout", auth.Logout)

	app.GET("/login/google", oauth.Login)
	app.GET("/oauth/callback", oauth.Callback)
}

// SetupCatalogRoutes registers the public browsing routes.
func SetupCatalogRoutes(app *echo.Echo, catalog *handlers.CatalogHandler) {
	app.GET("/classes", catalog.Classes)
	app.GET("/classes/:id", catalog.Class)
	app.GET("/instructors", catalog.Instructors)
}

// SetupGuardedRoutes registers the routes that require an
// authenticated session; the route guard gates all of them.
func SetupGuardedRoutes(app *echo.Echo, dashboard *handlers.DashboardHandler, source middleware.SessionSource) {
	guarded := app.Group("", middleware.RouteGuard(source))
	guarded.GET("/profile", dashboard.Profile)
	guarded.GET("/dashboard", dashboard.Dashboard)
	guarded.POST("/enroll", dashboard.Enroll)
	guarded.POST("/unenroll", dashboard.Unenroll)
}
