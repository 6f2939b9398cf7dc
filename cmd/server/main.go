package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	config "github.com/maheshrc27/pageflow/configs"
	"github.com/maheshrc27/pageflow/internal/api/handlers"
	"github.com/maheshrc27/pageflow/internal/api/middleware"
	"github.com/maheshrc27/pageflow/internal/jobpool"
	job "github.com/maheshrc27/pageflow/internal/jobs"
	"github.com/maheshrc27/pageflow/internal/queue"
	"github.com/maheshrc27/pageflow/internal/repository"
	"github.com/maheshrc27/pageflow/internal/schedule"
	"github.com/maheshrc27/pageflow/internal/service"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := repository.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer closeDB(db)

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
			}
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-API-Key",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	jobRepo := repository.NewJobRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	historyRepo := repository.NewUploadHistoryRepository(db)
	appTokenRepo := repository.NewAppTokenRepository(db)
	apiKeyRepository := repository.NewApiKeyRepository(db)

	pool := jobpool.NewPool()
	resolver := schedule.NewResolver(templateRepo)

	facebookService := service.NewFacebookService(*cfg, appTokenRepo)
	uploadService := service.NewUploadService(*cfg)
	storyService := service.NewStoryService(*cfg)
	reelsService := service.NewReelsService(*cfg)
	watermarkService := service.NewWatermarkService(*cfg)
	mediaSyncService := service.NewMediaSyncService(*cfg)
	templateService := service.NewTemplateService(templateRepo)
	apiKeyService := service.NewApiKeyService(apiKeyRepository)
	jobService := service.NewJobService(pool, jobRepo, resolver)

	if err := jobService.RestorePool(context.Background()); err != nil {
		log.Fatalf("Failed to restore jobs: %v", err)
	}

	authMiddleware := middleware.NewAuthMiddleware(*cfg, apiKeyService)

	auth := handlers.NewAuthHandler(*cfg)
	app.Post("/login", auth.Login)
	app.Post("/logout", auth.Logout)

	tokens := handlers.NewTokenHandler(facebookService)
	app.Get("/auth/facebook", tokens.Login)
	app.Get("/auth/facebook/callback", tokens.LoginCallback)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	apiKeys := handlers.NewApiKeyHandler(apiKeyService)
	api.Post("/api_key/new", apiKeys.CreateApiKey)
	api.Get("/api_key/list", apiKeys.ListKeys)
	api.Post("/api_key/remove", apiKeys.RemoveAPIKey)

	jobsH := handlers.NewJobHandler(jobService)
	api.Post("/jobs/create", jobsH.CreateJob)
	api.Get("/jobs", jobsH.ListJobs)
	api.Get("/jobs/:kind/:page_id", jobsH.GetJob)
	api.Delete("/jobs/:kind/:page_id", jobsH.DeleteJob)
	api.Post("/jobs/:kind/:page_id/enable", jobsH.EnableJob)
	api.Post("/jobs/:kind/:page_id/disable", jobsH.DisableJob)
	api.Post("/jobs/:kind/:page_id/schedule/start", jobsH.StartSchedule)
	api.Post("/jobs/:kind/:page_id/schedule/stop", jobsH.StopSchedule)
	api.Post("/jobs/:kind/:page_id/cancel", jobsH.CancelUpload)
	api.Post("/jobs/:kind/:page_id/run", jobsH.RunNow)

	templates := handlers.NewTemplateHandler(templateService)
	api.Post("/templates/create", templates.CreateTemplate)
	api.Get("/templates", templates.ListTemplates)
	api.Get("/templates/:id", templates.GetTemplate)
	api.Put("/templates/:id", templates.UpdateTemplate)
	api.Delete("/templates/:id", templates.DeleteTemplate)
	api.Post("/templates/:id/set_default", templates.SetDefaultTemplate)

	api.Post("/tokens/save", tokens.SaveToken)
	api.Get("/tokens", tokens.ListTokens)
	api.Delete("/tokens/:app_name", tokens.DeleteToken)
	api.Get("/pages", tokens.ListPages)

	history := handlers.NewHistoryHandler(historyRepo)
	api.Get("/history", history.ListHistory)
	api.Get("/history/stats", history.Stats)

	// cron jobs
	scanJob := job.NewDispatchScanJob(pool, client)
	refreshTokenJob := job.NewTokenRefreshJob(appTokenRepo, facebookService)
	mediaSyncJob := job.NewMediaSyncJob(pool, mediaSyncService)

	//queue
	queueW := queue.NewQueue(*cfg, pool, jobService, uploadService, storyService,
		reelsService, watermarkService, facebookService, historyRepo, resolver)

	c := cron.New()
	c.AddFunc("@every 00h00m30s", scanJob.Scan)
	c.AddFunc("@every 06h00m00s", refreshTokenJob.RefreshTokens)
	c.AddFunc("@every 00h15m00s", mediaSyncJob.Sync)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypeUploadDispatch, queueW.HandleUploadTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on %s", cfg.ListenAddr)

	gracefulShutdown(app, db, jobService, pool)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB, jobService service.JobService, pool *jobpool.Pool) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	// Persist current scheduling state so next runs survive the restart.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, j := range pool.List() {
		if err := jobService.Persist(ctx, j); err != nil {
			log.Printf("Failed to persist job %s/%s: %v", j.Kind, j.PageID, err)
		}
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
