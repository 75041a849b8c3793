package api

import (
	"github.com/Khushalgogia/joke-manager-v12/internal/api/handler"
	"github.com/Khushalgogia/joke-manager-v12/internal/api/middleware"
	"github.com/Khushalgogia/joke-manager-v12/internal/config"
	"github.com/gin-gonic/gin"
)

// Handlers groups the route handlers mounted by SetupRouter.
type Handlers struct {
	Health   *handler.HealthHandler
	Campaign *handler.CampaignHandler
	Search   *handler.SearchHandler
	Joke     *handler.JokeHandler
	Admin    *handler.AdminHandler
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(h Handlers, cfg *config.ServerConfig) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.CORS.AllowAllOrigins,
	}))

	r.GET("/health", h.Health.Health)

	v1 := r.Group("/api/v1")
	{
		// Campaigns
		v1.POST("/campaigns", h.Campaign.Generate)
		v1.GET("/campaigns", h.Campaign.ListCampaigns)
		v1.GET("/campaigns/:id", h.Campaign.GetCampaign)

		// Search
		v1.POST("/search", h.Search.TextSearch)
		v1.GET("/search", h.Search.TextSearchGet)
		v1.GET("/stats", h.Search.GetStats)

		// Jokes
		v1.GET("/jokes", h.Joke.ListJokes)
		v1.GET("/jokes/:id", h.Joke.GetJoke)
		v1.POST("/jokes", h.Joke.AddJoke)
		v1.PUT("/jokes/:id", h.Joke.UpdateJoke)
		v1.DELETE("/jokes/:id", h.Joke.DeleteJoke)
		v1.POST("/jokes/:id/refresh-bridge", h.Joke.RefreshBridge)

		// Segments
		v1.POST("/segments/import", h.Joke.ImportSegments)
		v1.POST("/segments/extract", h.Admin.ExtractSegments)

		// Admin
		admin := v1.Group("/admin")
		admin.POST("/fill-missing", h.Admin.FillMissing)
		admin.POST("/ingest", h.Admin.TriggerIngest)
		admin.GET("/ingest/status", h.Admin.GetIngestStatus)
	}

	return r
}
