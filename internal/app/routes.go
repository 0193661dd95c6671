package app

import (
	"fmt"
	"net/http"

	_ "github.com/AviRoy1988/receipe-api/docs"
	"github.com/AviRoy1988/receipe-api/internal/auth"
	"github.com/AviRoy1988/receipe-api/internal/config"
	"github.com/AviRoy1988/receipe-api/internal/dto"
	"github.com/AviRoy1988/receipe-api/internal/handlers"
	"github.com/AviRoy1988/receipe-api/internal/middleware"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"
)

// Route names.
const (
	RouteUserCreate  = "user:create"
	RouteUserToken   = "user:token"
	RouteUserProfile = "user:profile"
	RouteUserLogout  = "user:logout"
)

var routePaths = map[string]string{
	RouteUserCreate:  "/api/user/create/",
	RouteUserToken:   "/api/user/token/",
	RouteUserProfile: "/api/user/me/",
	RouteUserLogout:  "/api/user/logout/",
}

// Reverse returns the path registered under a route name.
// It panics on an unknown name, which is a programming error.
func Reverse(name string) string {
	p, ok := routePaths[name]
	if !ok {
		panic(fmt.Sprintf("no route named %q", name))
	}
	return p
}

// Setup registers all routes on the given engine.
func Setup(r *gin.Engine, cfg config.Config, deps Deps) {
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, dto.ErrorResponse{Error: "method not allowed"})
	})

	r.GET("/", rootHandler(cfg))
	r.GET("/health", healthHandler(cfg))
	r.GET("/version", versionHandler(cfg))
	r.GET("/swagger-doc.json", swaggerDocHandler())
	r.GET("/swagger", func(c *gin.Context) { c.Redirect(http.StatusFound, "/swagger/index.html") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL("/swagger-doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
		ginSwagger.PersistAuthorization(true),
	))

	userHandler := handlers.NewUserHandler(deps.Users, deps.Tokens)
	registerUserRoutes(r, cfg, userHandler, auth.RequireToken(deps.Tokens, deps.Users))
}

func rootHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "User API",
			"version": cfg.App.Version,
			"env":     cfg.App.Env,
			"docs":    "/swagger/index.html",
			"spec":    "/swagger-doc.json",
			"health":  "/health",
			"api":     "/api",
		})
	}
}

func healthHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
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

func registerUserRoutes(r *gin.Engine, cfg config.Config, h *handlers.UserHandler, requireToken gin.HandlerFunc) {
	r.POST(Reverse(RouteUserCreate), h.Create)
	r.POST(Reverse(RouteUserToken),
		middleware.RateLimit(cfg.Auth.TokenRateLimitRPS, cfg.Auth.TokenRateLimitBurst),
		h.Token,
	)
	r.POST(Reverse(RouteUserLogout), requireToken, h.Logout)

	profile := Reverse(RouteUserProfile)
	r.GET(profile, requireToken, h.Profile)
	r.PATCH(profile, requireToken, h.UpdateProfile)
	r.PUT(profile, requireToken, h.ReplaceProfile)
}
