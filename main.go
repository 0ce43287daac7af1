package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lifeQuestAPI/handlers"
	"lifeQuestAPI/internal/workers"
	"lifeQuestAPI/middleware"
	"lifeQuestAPI/services"

	_ "net/http/pprof"
)

var (
	dbPool        *pgxpool.Pool
	eventRecorder *services.EventRecorder
	rewardService *services.RewardService
	questService  *services.QuestService
	dayService    *services.DayService
	userService   *services.UserService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to Postgres")

	eventRecorder = services.NewEventRecorder(dbPool)
	rewardService = services.NewRewardService(dbPool, eventRecorder)
	questService = services.NewQuestService(dbPool, rewardService, eventRecorder)
	dayService = services.NewDayService(dbPool, questService, rewardService, eventRecorder)
	userService = services.NewUserService(dbPool)

	middleware.InitPrometheus()
	services.InitMetrics()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	userHandler := handlers.NewUserHandler(userService, rewardService)
	questHandler := handlers.NewQuestHandler(questService)
	dayHandler := handlers.NewDayHandler(dayService)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()
	workers.StartExpirySweeper(dbPool)

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "lifeQuest-api"}`))
	}).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// User provisioning comes from the account system; no session required.
	api.HandleFunc("/users", userHandler.CreateUser).Methods("POST")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.IdentityMiddleware)

	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/user/hard-mode", userHandler.SetHardMode).Methods("PUT")
	protected.HandleFunc("/user/debuff", userHandler.ApplyDebuff).Methods("POST")
	protected.HandleFunc("/user/ledger", userHandler.GetLedger).Methods("GET")

	protected.HandleFunc("/quests/board", questHandler.GetQuestBoard).Methods("GET")
	protected.HandleFunc("/quests/bonus/reroll", questHandler.RerollBonus).Methods("POST")
	protected.HandleFunc("/quests/{instanceID}/progress", questHandler.SubmitProgress).Methods("POST")
	protected.HandleFunc("/quests/{instanceID}/fail", questHandler.FailQuest).Methods("POST")

	protected.HandleFunc("/day/status", dayHandler.GetDayStatus).Methods("GET")
	protected.HandleFunc("/day/close", dayHandler.CloseDay).Methods("POST")

	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "X-User-ID", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
