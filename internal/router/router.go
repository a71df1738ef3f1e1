package router

import (
	"net/http"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"

	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/handlers"
)

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func errorHandler(c *gin.Context, info ratelimit.Info) {
	c.JSON(http.StatusTooManyRequests, gin.H{
		"error":       "Too many requests. Try again later.",
		"retry_after": time.Until(info.ResetTime).Round(time.Second).String(),
	})
}

// Options tunes the batch trigger rate limit. A zero value allows five
// triggers per minute per client.
type Options struct {
	TriggerRate  time.Duration
	TriggerLimit uint
}

func Setup(log *zap.Logger, runs *handlers.RunsHandler, opts Options) *gin.Engine {
	if opts.TriggerRate <= 0 {
		opts.TriggerRate = time.Minute
	}
	if opts.TriggerLimit == 0 {
		opts.TriggerLimit = 5
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(log))
	router.Use(APIHeaders())

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
	})
	router.Use(func(c *gin.Context) {
		err := secureMiddleware.Process(c.Writer, c.Request)
		if err != nil {
			c.Abort()
			return
		}
	})

	rateLimitStore := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  opts.TriggerRate,
		Limit: opts.TriggerLimit,
	})
	limiter := ratelimit.RateLimiter(rateLimitStore, &ratelimit.Options{
		ErrorHandler: errorHandler,
		KeyFunc:      keyFunc,
	})

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		runRoutes := api.Group("/runs")
		{
			runRoutes.GET("", runs.ListRuns)
			runRoutes.POST("", limiter, runs.TriggerRun)
			runRoutes.GET("/:id", runs.GetRun)
			runRoutes.GET("/:id/units", runs.ListUnits)
			runRoutes.GET("/:id/correlation", runs.RunCorrelation)
		}

		unitRoutes := api.Group("/units")
		{
			unitRoutes.GET("/:id/metrics", runs.GetUnitMetrics)
			unitRoutes.GET("/:id/timeline", runs.UnitTimeline)
		}

		api.GET("/metrics/:key/timeline", runs.MetricTimeline)
	}

	return router
}
