package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	cachecontrol "go.eigsys.de/gin-cachecontrol/v2"
	"golang.org/x/time/rate"

	"vortturo/internal/dailyseed"
	"vortturo/internal/kvstore"
	"vortturo/internal/leaderboard"
)

// App carries the configuration and the injected components every request
// handler needs. Each request is a stateless invocation against these;
// no game state lives in process memory.
type App struct {
	Store     kvstore.Store
	Reader    *leaderboard.Reader
	Recorder  *leaderboard.Recorder
	Rebuilder *leaderboard.Rebuilder
	Purger    *leaderboard.Purger
	Seeds     *dailyseed.Generator

	Hosted   bool
	AdminKey string

	RateLimitRPS   int
	RateLimitBurst int
	LimiterMap     map[string]*rate.Limiter
	LimiterMutex   sync.Mutex

	StartTime time.Time
}

func newApp(store kvstore.Store, hosted bool) *App {
	return &App{
		Store:          store,
		Reader:         leaderboard.NewReader(store),
		Recorder:       leaderboard.NewRecorder(store),
		Rebuilder:      leaderboard.NewRebuilder(store),
		Purger:         leaderboard.NewPurger(store, hosted),
		Seeds:          dailyseed.NewGenerator(store),
		Hosted:         hosted,
		AdminKey:       os.Getenv("ADMIN_KEY"),
		RateLimitRPS:   getEnvInt("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),
		LimiterMap:     make(map[string]*rate.Limiter),
		StartTime:      time.Now(),
	}
}

func main() {
	_ = godotenv.Load()

	// A deployment-site identifier marks this process as hosted; local
	// development is its absence. The flag is resolved once at startup and
	// injected, never inferred per request.
	hosted := os.Getenv("DEPLOYMENT_ID") != "" || os.Getenv("ENV") == "production"
	logInfo("Starting Vortturo in %s mode", map[bool]string{true: "hosted", false: "local"}[hosted])

	store, err := openStore()
	if err != nil {
		logFatal("Failed to open store: %v", err)
	}

	app := newApp(store, hosted)
	router := setupRouter(app)
	startServer(router)
}

// openStore selects the storage backend: in-memory when STORE=memory,
// otherwise JSON files under DATA_DIR.
func openStore() (kvstore.Store, error) {
	if getEnv("STORE", "file") == "memory" {
		logInfo("Using in-memory store (no persistence across restarts)")
		return kvstore.NewMemoryStore(), nil
	}
	dataDir := getEnv("DATA_DIR", "data/kv")
	logInfo("Using file store at %s", dataDir)
	return kvstore.NewFileStore(dataDir)
}

func setupRouter(app *App) *gin.Engine {
	router := gin.Default()
	router.HandleMethodNotAllowed = true

	router.Use(ginGzip.Gzip(ginGzip.DefaultCompression,
		ginGzip.WithExcludedExtensions([]string{".svg", ".ico", ".png", ".jpg", ".jpeg", ".gif"})))

	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logWarn("Failed to set trusted proxies: %v", err)
	}

	router.Use(requestIDMiddleware())

	router.GET(RouteLeaderboard, app.leaderboardHandler)
	router.POST(RouteScores, app.rateLimitMiddleware(), app.submitScoreHandler)
	router.GET(RouteDailySeed, app.dailySeedHandler)
	router.POST(RouteRebuild, app.rateLimitMiddleware(), app.rebuildHandler)
	router.POST(RoutePurgeDev, app.rateLimitMiddleware(), app.purgeDevHandler)
	router.GET(RouteHealthz, app.healthzHandler)

	return router
}

func startServer(router *gin.Engine) {
	port := getEnv("PORT", "8080")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
		<-sigint
		logInfo("Shutdown signal received, shutting down server gracefully...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logWarn("HTTP server Shutdown: %v", err)
		}
		close(idleConnsClosed)
	}()

	logInfo("Server starting on http://localhost:%s", port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logFatal("Server failed to start: %v", err)
	}
	<-idleConnsClosed
	logInfo("Server shutdown complete")
}

// applyCacheHeaders sets the response caching policy. The all-time
// leaderboard tolerates short positive caching; everything else is
// real-time and must never be cached by intermediaries.
func applyCacheHeaders(c *gin.Context, cacheable bool) {
	if cacheable {
		cachecontrol.New(cachecontrol.Config{
			Public: true,
			MaxAge: cachecontrol.Duration(AllTimeCacheAge),
		})(c)
		c.Header("Vary", "Accept-Encoding")
	} else {
		cachecontrol.New(cachecontrol.Config{
			NoStore:        true,
			NoCache:        true,
			MustRevalidate: true,
		})(c)
	}
}
