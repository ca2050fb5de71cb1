package app

import (
	"log"
	"time"

	"eventfeed/internal/config"
	"eventfeed/internal/middleware"
	"eventfeed/internal/model"
	"eventfeed/internal/repository"
	"eventfeed/internal/service"
	"eventfeed/internal/util"
	"eventfeed/internal/websocket"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func NewRouter(cfg *config.Config) *gin.Engine {
	// Set Gin mode
	if cfg.ServerPort == "5000" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	// CORS middleware
	r.Use(corsMiddleware(cfg.ClientURL))

	// Rate limiting middleware (if enabled)
	if cfg.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(float64(cfg.RateLimitRPS), cfg.RateLimitBurst)
		r.Use(rateLimiter.Middleware())
		log.Printf("Rate limiting enabled: %d req/sec, burst: %d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		panic("Failed to connect to database: " + err.Error())
	}

	// Auto migrate
	if err := db.AutoMigrate(&model.User{}, &model.Post{}, &model.Comment{}, &model.Like{}, &model.FileRecord{}, &model.Notification{}); err != nil {
		panic("Failed to migrate database: " + err.Error())
	}

	// Initialize Redis with retry logic
	redisClient := initRedisWithRetry(cfg)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db, redisClient)
	likeRepo := repository.NewLikeRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Initialize RabbitMQ with retry logic
	rabbitMQ := initRabbitMQWithRetry(cfg)

	// Initialize WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()
	log.Println("WebSocket hub started")

	// Bridge Redis fan-out channels into the local hub so every instance
	// delivers events published by any instance
	if redisClient != nil {
		go service.RunFanoutBridge(redisClient, wsHub)
	}

	// Initialize Cloudinary client
	var uploader service.AttachmentUploader
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		cloudinaryClient, err := util.NewCloudinaryClient(cfg)
		if err != nil {
			log.Printf("Warning: Failed to initialize Cloudinary: %v. Attachment uploads will be disabled.", err)
		} else {
			uploader = cloudinaryClient
			log.Println("Cloudinary initialized successfully")
		}
	} else {
		log.Println("Cloudinary credentials not configured. Attachment uploads will be disabled.")
	}

	// Initialize services
	counters := service.NewCounterResolver(commentRepo, likeRepo)
	broadcaster := service.NewBroadcaster(redisClient, wsHub)
	notificationService := service.NewNotificationService(notificationRepo, rabbitMQ, cfg.NotificationWorkers, cfg.NotificationQueueSize)
	notificationService.SetWSHub(wsHub)
	commentService := service.NewCommentService(commentRepo, userRepo, postRepo, counters, uploader, notificationService, broadcaster)
	likeService := service.NewLikeService(likeRepo, commentRepo, userRepo, notificationService)

	// Initialize notification worker if RabbitMQ is available
	if rabbitMQ != nil {
		notificationWorker := service.NewNotificationWorker(rabbitMQ, wsHub)
		if err := notificationWorker.Start(); err != nil {
			log.Printf("Warning: Failed to start notification worker: %v", err)
		} else {
			log.Println("Notification worker started successfully")
		}
	}

	// Initialize handlers
	commentHandler := NewCommentHandler(commentService)
	likeHandler := NewLikeHandler(likeService)
	notificationHandler := NewNotificationHandler(notificationService)

	// API routes
	api := r.Group("/api/v1")
	{
		// Post routes
		posts := api.Group("/posts")
		posts.Use(middleware.OptionalAuth(cfg.JWTSecret))
		{
			// Route with more segments must be registered before the
			// wildcard /:id routes
			posts.GET("/:id/comments/count", commentHandler.GetCommentCount)
			posts.GET("/:id/comments", commentHandler.GetCommentsByPost)
		}

		// Comment routes
		comments := api.Group("/comments")
		{
			// Public routes (like state personalized when a token is sent)
			public := comments.Group("")
			public.Use(middleware.OptionalAuth(cfg.JWTSecret))
			{
				public.GET("/:id", commentHandler.GetComment)
				public.GET("/:id/replies", commentHandler.GetReplies)
				public.GET("/:id/replies/all", commentHandler.GetAllReplies)
				public.GET("/:id/likes/count", likeHandler.GetLikeCount)
			}

			// Protected routes
			comments.Use(middleware.Auth(cfg.JWTSecret))
			{
				comments.POST("", commentHandler.CreateComment)
				comments.PUT("/:id", commentHandler.UpdateComment)
				comments.DELETE("/:id", commentHandler.DeleteComment)

				// Comment likes
				comments.POST("/:id/like", likeHandler.LikeComment)
				comments.DELETE("/:id/like", likeHandler.UnlikeComment)
				comments.GET("/:id/likes/me", likeHandler.CheckUserLiked)
			}
		}

		// Notification routes
		notifications := api.Group("/notifications")
		notifications.Use(middleware.Auth(cfg.JWTSecret))
		{
			notifications.GET("", notificationHandler.GetNotifications)
			notifications.GET("/unread/count", notificationHandler.GetUnreadCount)
			notifications.PUT("/:id/read", notificationHandler.MarkAsRead)
			notifications.PUT("/read-all", notificationHandler.MarkAllAsRead)
			notifications.DELETE("/:id", notificationHandler.DeleteNotification)
		}
	}

	// WebSocket route
	r.GET("/ws", func(c *gin.Context) {
		websocket.ServeWS(wsHub, cfg.JWTSecret).ServeHTTP(c.Writer, c.Request)
	})

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

func initDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.DatabaseURL
	if dsn == "" {
		dsn = "host=" + cfg.PostgresHost +
			" port=" + cfg.PostgresPort +
			" user=" + cfg.PostgresUser +
			" password=" + cfg.PostgresPassword +
			" dbname=" + cfg.PostgresDB +
			" sslmode=" + cfg.PostgresSSLMode
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	return db, nil
}

// initRabbitMQWithRetry attempts to connect to RabbitMQ with exponential backoff retry
func initRabbitMQWithRetry(cfg *config.Config) *util.RabbitMQClient {
	maxRetries := 10
	initialDelay := 2 * time.Second
	maxDelay := 30 * time.Second

	for attempt := 1; attempt <= maxRetries; attempt++ {
		rabbitMQ, err := util.NewRabbitMQClient(cfg)
		if err == nil {
			log.Printf("RabbitMQ connected successfully on attempt %d", attempt)
			return rabbitMQ
		}

		if attempt < maxRetries {
			delay := initialDelay * time.Duration(1<<uint(attempt-1))
			if delay > maxDelay {
				delay = maxDelay
			}

			log.Printf("Failed to connect to RabbitMQ (attempt %d/%d): %v. Retrying in %v...", attempt, maxRetries, err, delay)
			time.Sleep(delay)
		} else {
			log.Printf("Warning: Failed to connect to RabbitMQ after %d attempts: %v. Notifications will be pushed directly over WebSocket.", maxRetries, err)
		}
	}

	return nil
}

// initRedisWithRetry attempts to connect to Redis with exponential backoff retry
func initRedisWithRetry(cfg *config.Config) *util.RedisClient {
	maxRetries := 10
	initialDelay := 2 * time.Second
	maxDelay := 30 * time.Second

	for attempt := 1; attempt <= maxRetries; attempt++ {
		redisClient, err := util.NewRedisClient(cfg)
		if err == nil {
			log.Printf("Redis connected successfully on attempt %d", attempt)
			return redisClient
		}

		if attempt < maxRetries {
			delay := initialDelay * time.Duration(1<<uint(attempt-1))
			if delay > maxDelay {
				delay = maxDelay
			}

			log.Printf("Failed to connect to Redis (attempt %d/%d): %v. Retrying in %v...", attempt, maxRetries, err, delay)
			time.Sleep(delay)
		} else {
			log.Printf("Warning: Failed to connect to Redis after %d attempts: %v. Caching and cross-instance fan-out will be disabled.", maxRetries, err)
		}
	}

	return nil
}

func corsMiddleware(clientURL string) gin.HandlerFunc {
	// Allowed origins (whitelist)
	allowedOrigins := []string{
		clientURL,
		"http://localhost:3000",
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", clientURL)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
