package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ddevcap/mcu-rankings/api/handler"
	"github.com/ddevcap/mcu-rankings/api/middleware"
	"github.com/ddevcap/mcu-rankings/catalog"
	"github.com/ddevcap/mcu-rankings/config"
	"github.com/ddevcap/mcu-rankings/search"
	"github.com/ddevcap/mcu-rankings/session"
	"github.com/ddevcap/mcu-rankings/static"
	"github.com/ddevcap/mcu-rankings/store"
)

// Services are the long-lived components the routes are served from.
type Services struct {
	Catalog  *catalog.Service
	Searcher *search.Searcher
	Gate     *session.Gate
	Health   *store.HealthChecker
	Hub      *handler.WSHub
}

// corsMiddleware returns gin-contrib/cors middleware for the app's origins.
// Origins from ExternalURL + CORSOrigins are accepted with credentials.
// Unknown origins get a wildcard Allow-Origin without credentials, so the
// read API stays usable from elsewhere without exposing sessions.
func corsMiddleware(cfg config.Config) gin.HandlerFunc {
	allowed := buildAllowedOrigins(cfg.ExternalURL)
	for _, o := range cfg.CORSOrigins {
		allowed[strings.ToLower(o)] = true
	}
	isTrusted := func(origin string) bool { return allowed[strings.ToLower(origin)] }

	methods := []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD"}
	headers := []string{"Origin", "Content-Type", "Content-Length", "Accept", "Authorization", middleware.RequestIDHeader}
	exposed := []string{"Content-Length", "Content-Type", middleware.RequestIDHeader}

	trusted := cors.New(cors.Config{
		AllowOriginWithContextFunc: func(_ *gin.Context, origin string) bool {
			return isTrusted(origin)
		},
		AllowMethods:     methods,
		AllowHeaders:     headers,
		ExposeHeaders:    exposed,
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	})
	public := cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    methods,
		AllowHeaders:    headers,
		ExposeHeaders:   exposed,
		MaxAge:          24 * time.Hour,
	})

	return func(c *gin.Context) {
		if isTrusted(c.GetHeader("Origin")) {
			trusted(c)
			return
		}
		public(c)
	}
}

// NewRouter builds the HTTP handler. The returned func stops the login
// rate limiter and must be called on shutdown.
func NewRouter(cfg config.Config, svc Services) (http.Handler, func(), error) {
	tmpl, err := handler.ParseTemplates()
	if err != nil {
		return nil, nil, fmt.Errorf("api: parsing templates: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(), corsMiddleware(cfg))
	r.Use(middleware.Session(svc.Gate))

	limiter := middleware.NewLoginLimiter(cfg)
	loginMW := limiter.Middleware()

	sessionH := handler.NewSessionHandler(svc.Gate, limiter, cfg.RequestTimeout)
	pageH := handler.NewPageHandler(svc.Catalog, sessionH, cfg.RequestTimeout)
	catalogH := handler.NewCatalogHandler(svc.Catalog, cfg.RequestTimeout)
	titleH := handler.NewTitleHandler(svc.Catalog, cfg.RequestTimeout)
	searchH := handler.NewSearchHandler(svc.Searcher, svc.Hub, cfg.SearchDebounce, cfg.RequestTimeout)
	systemH := handler.NewSystemHandler(svc.Health)
	assetH := handler.NewAssetHandler(static.Assets())

	// --- Pages ---
	r.GET("/", pageH.Catalog)
	r.GET("/all", pageH.Catalog)
	r.GET("/title/:id", pageH.Title)
	r.POST("/login", loginMW, pageH.Login)
	r.POST("/guest", pageH.Guest)
	r.POST("/logout", pageH.Logout)
	r.POST("/theme", pageH.Theme)
	r.GET("/static/*filepath", assetH.Serve)

	edit := r.Group("/title/:id", middleware.AdminOnly())
	{
		edit.POST("", pageH.Save)
		edit.POST("/score", pageH.SetScore)
	}

	// --- JSON API ---
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/session", sessionH.Get)
		apiGroup.POST("/session/login", loginMW, sessionH.Login)
		apiGroup.POST("/session/guest", sessionH.Guest)
		apiGroup.DELETE("/session", sessionH.Logout)
	}

	read := apiGroup.Group("", middleware.RequireSession())
	{
		read.GET("/catalog", catalogH.Get)
		read.GET("/titles/:id", titleH.Get)
		read.GET("/search", searchH.Get)
		read.GET("/search/ws", searchH.Socket)
	}

	admin := apiGroup.Group("/titles/:id", middleware.AdminOnly())
	{
		admin.PUT("", titleH.Put)
		admin.PUT("/score", titleH.PutScore)
		admin.POST("/score/toggle", titleH.ToggleModifier)
	}

	// Health probes, unauthenticated, for container orchestrators.
	r.GET("/health", systemH.HealthLive)
	r.GET("/ready", systemH.HealthReady)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})

	return r, limiter.Stop, nil
}

// buildAllowedOrigins returns a set of lower-cased origin strings that are
// allowed to make credentialed cross-origin requests. It derives the origins
// from the configured ExternalURL and also includes its http/https counterpart
// so that both schemes work during development.
func buildAllowedOrigins(externalURL string) map[string]bool {
	origins := make(map[string]bool)
	if externalURL == "" {
		return origins
	}
	parsed, err := url.Parse(externalURL)
	if err != nil {
		origins[strings.ToLower(externalURL)] = true
		return origins
	}
	origin := strings.ToLower(parsed.Scheme + "://" + parsed.Host)
	origins[origin] = true
	switch parsed.Scheme {
	case "https":
		origins["http://"+strings.ToLower(parsed.Host)] = true
	case "http":
		origins["https://"+strings.ToLower(parsed.Host)] = true
	}
	return origins
}
