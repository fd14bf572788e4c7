package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"agrismart/internal/ai/gemini"
	"agrismart/internal/config"
	"agrismart/internal/database/minio"
	"agrismart/internal/database/postgres"
	"agrismart/internal/database/redis"
	"agrismart/internal/event"
	"agrismart/internal/handlers"
	"agrismart/internal/plantid"
	"agrismart/internal/repository"
	"agrismart/internal/services"
	"agrismart/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func setupLogging() (*os.File, error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("Recovered from panic: %v\n", r)
		}
	}()

	logDir := filepath.Join("/agrismart", "log")
	err := os.MkdirAll(logDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	currentTime := time.Now()
	logFileName := fmt.Sprintf("log_%s.log", currentTime.Format("2006-01-02"))
	logFile := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	log.SetOutput(file)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	return file, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using process environment")
	}

	logFile, err := setupLogging()
	if err != nil {
		fmt.Printf("Error setting up logging, falling back to stderr: %v\n", err)
	} else {
		defer logFile.Close()
	}

	cfg := config.New()

	// Postgres; keep retrying until the database comes up.
	db, err := postgres.ConnectAndCreateDB(cfg.PostgresCfg)
	if err != nil {
		log.Printf("Failed to connect to postgres, retrying: %v", err)
		postgres.RetryConnectOnFailed(30*time.Second, &db, cfg.PostgresCfg)
	}
	defer db.Close()

	// Redis (sessions)
	redisClient, err := redis.NewRedisClient(cfg.RedisCfg.Host, cfg.RedisCfg.Port, cfg.RedisCfg.Password, cfg.RedisCfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	// MinIO (crop images)
	minioClient, err := minio.NewMinioClient(cfg.MinioCfg)
	if err != nil {
		log.Fatalf("Failed to connect to minio: %v", err)
	}

	// RabbitMQ is optional; without it analysis events are dropped.
	var rabbitConn *event.RabbitMQConnection
	if cfg.RabbitMQCfg.Username != "" {
		rabbitConn, err = event.ConnectRabbitMQ(cfg.RabbitMQCfg)
		if err != nil {
			log.Printf("Failed to connect to RabbitMQ, analysis events disabled: %v", err)
			rabbitConn = nil
		} else {
			defer rabbitConn.Close()
		}
	}
	analysisPublisher := event.NewAnalysisPublisher(rabbitConn)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	cropRepo := repository.NewCropRepository(db)
	analysisRepo := repository.NewAnalysisRepository(db)
	sessionRepo := repository.NewSessionRepository(redisClient.GetClient())

	// Adapters
	advisor, err := gemini.NewAdvisor(cfg.GeminiCfg)
	if err != nil {
		log.Fatalf("Failed to initialize Gemini advisor: %v", err)
	}
	classifier := plantid.NewClient(cfg.PlantIDCfg)

	// Services
	jwtService := services.NewJWTService(cfg.AuthCfg.JWTSecret)
	userService := services.NewUserService(userRepo, cropRepo, analysisRepo, sessionRepo, jwtService)
	cropService := services.NewCropService(cropRepo, analysisRepo, classifier, advisor, minioClient, analysisPublisher)
	weatherService := services.NewWeatherService(cfg.WeatherCfg, advisor)

	// HTTP server
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(handlers.Recovery())
	r.Use(handlers.CORS(cfg.CORSOrigins))
	r.MaxMultipartMemory = handlers.MaxUploadSize

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, utils.CreateSuccessResponse(gin.H{"status": "ok"}))
	})

	middleware := handlers.NewMiddleware(jwtService, userService)
	handlers.NewAuthHandler(userService).RegisterRoutes(r, middleware)
	handlers.NewProfileHandler(userService).RegisterRoutes(r, middleware)
	handlers.NewCropHandler(cropService).RegisterRoutes(r, middleware)
	handlers.NewWeatherHandler(weatherService).RegisterRoutes(r, middleware)
	handlers.NewQueryHandler(advisor).RegisterRoutes(r, middleware)
	handlers.NewAdminHandler(userService).RegisterRoutes(r, middleware)

	log.Printf("Starting agrismart on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
