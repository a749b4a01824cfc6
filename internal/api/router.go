package api

import (
	"github.com/gin-gonic/gin"

	"github.com/timmy/veris/internal/api/handler"
	"github.com/timmy/veris/internal/api/middleware"
	"github.com/timmy/veris/internal/service"
	"github.com/timmy/veris/internal/source"
)

// Deps are the services the router exposes. Similar, Crawler and Store may be nil.
type Deps struct {
	Pipeline    handler.Pipeline
	Fetcher     service.PageFetcher
	Claims      handler.ClaimReader
	Store       handler.StorePinger
	Similar     handler.SimilarSearcher
	Crawler     handler.Crawler
	Sources     map[string]source.Source
	MaxUploadMB int
	CORS        middleware.CORSConfig
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps *Deps, mode string) *gin.Engine {
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = int64(deps.MaxUploadMB) << 20

	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(deps.CORS))

	healthHandler := handler.NewHealthHandler(deps.Store)
	analyzeHandler := handler.NewAnalyzeHandler(deps.Pipeline, deps.Fetcher, deps.MaxUploadMB)
	claimsHandler := handler.NewClaimsHandler(deps.Claims, deps.Similar)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/analyze", analyzeHandler.Analyze)
		v1.POST("/verify-claim", analyzeHandler.VerifyClaim)

		v1.GET("/claims", claimsHandler.ListClaims)
		v1.GET("/claims/similar", claimsHandler.SimilarClaims)
		v1.GET("/claims/:id", claimsHandler.GetClaim)

		if deps.Crawler != nil {
			crawlHandler := handler.NewCrawlHandler(deps.Crawler, deps.Sources)
			v1.POST("/admin/crawl", crawlHandler.TriggerCrawl)
			v1.GET("/admin/crawl", crawlHandler.GetCrawlStatus)
		}
	}

	return r
}
