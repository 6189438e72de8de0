package main

import (
	"fmt"
	"log"
	"os"

	"ocv-diagnostics/internal/api/handlers"
	"ocv-diagnostics/internal/api/middleware"
	"ocv-diagnostics/internal/config"
	"ocv-diagnostics/internal/store"

	"github.com/gin-gonic/gin"
)

func main() {
	// Get configuration: optional YAML file, environment overrides on top
	cfg := config.Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			log.Fatalf("Failed to load config %s: %v", path, err)
		}
		cfg = loaded
	}
	if port := os.Getenv("API_PORT"); port != "" {
		cfg.Server.Port = port
	}
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		cfg.DataDir = dataDir
	}

	// Log working directory and data paths for debugging
	wd, err := os.Getwd()
	if err == nil {
		log.Printf("Working directory: %s", wd)
	}
	if info, err := os.Stat(cfg.DataDir); err == nil && info.IsDir() {
		log.Printf("Data directory found: %s", cfg.DataDir)
	} else {
		log.Printf("Data directory not found at: %s (error: %v)", cfg.DataDir, err)
	}

	catalog, err := store.LoadCatalog(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to load pristine catalog: %v", err)
	}
	log.Printf("Loaded %d pristine profiles", len(catalog.List()))
	pool := store.NewPool(cfg.DataDir)

	// Set up Gin router
	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// Apply middleware
	router.Use(middleware.CORS(cfg.Server.CORSOrigins...))
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	// Initialize handlers
	profileHandler := handlers.NewProfileHandler(catalog)
	curveHandler := handlers.NewCurveHandler(catalog)
	estimateHandler := handlers.NewEstimateHandler(catalog, cfg.Fit)
	poolHandler := handlers.NewPoolHandler(catalog, pool)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API routes
	api := router.Group("/api/v1")
	{
		api.GET("/profiles", profileHandler.ListProfiles)

		api.POST("/curves", curveHandler.ComputeCurves)
		api.POST("/diagnostics/estimate", estimateHandler.EstimateDiagnostics)

		api.POST("/pool", poolHandler.SaveItem)
		api.GET("/pool", poolHandler.ListItems)
		api.GET("/pool/:id", poolHandler.GetItem)
	}

	// Serve static files from web/dist (if it exists)
	staticDir := cfg.Server.StaticDir
	if s := os.Getenv("STATIC_DIR"); s != "" {
		staticDir = s
	}
	if staticDir == "" {
		staticDir = "./web/dist"
	}

	if _, err := os.Stat(staticDir); err == nil {
		router.Static("/assets", staticDir+"/assets")
		router.StaticFile("/favicon.ico", staticDir+"/favicon.ico")

		// Serve index.html for all non-API routes (SPA routing)
		router.NoRoute(func(c *gin.Context) {
			path := c.Request.URL.Path
			if len(path) >= 4 && path[:4] == "/api" {
				c.JSON(404, gin.H{"error": "Not found"})
			} else {
				c.File(staticDir + "/index.html")
			}
		})
		log.Printf("Serving static files from %s", staticDir)
	} else {
		log.Printf("Static directory %s not found, skipping static file serving", staticDir)
	}

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Starting API server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
