package main

import (
	"log"
	"time"

	"storyquiz-service/internal/config"
	"storyquiz-service/internal/db"
	"storyquiz-service/internal/event"
	"storyquiz-service/internal/gutenberg"
	"storyquiz-service/internal/handlers"
	"storyquiz-service/internal/llm"
	"storyquiz-service/internal/repository"
	"storyquiz-service/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	mongoClient, err := db.Connect(cfg.MongoURI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	database := mongoClient.Database(cfg.MongoDatabase)

	var publisher *event.EventPublisher
	if cfg.RabbitMQURI != "" {
		publisher, err = event.NewEventPublisher(cfg.RabbitMQURI, cfg.RabbitMQExchange)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer publisher.Close()
	} else {
		log.Println("RabbitMQ not configured, quiz events will not be published")
	}

	quizRepo := repository.NewQuizRepository(database)
	fetcher := gutenberg.NewFetcher(cfg)
	generator := llm.NewGenerator(cfg)
	quizService := service.NewQuizService(quizRepo, fetcher, generator)
	quizHandler := handlers.NewQuizHandler(quizService)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "accept", "origin", "Cache-Control", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", quizHandler.Health)

	api := r.Group("/api/quiz")
	{
		api.POST("/generate", func(c *gin.Context) {
			quizHandler.GenerateQuiz(c)
			if publisher != nil {
				publisher.Publish("quiz.generated", gin.H{
					"status":    c.Writer.Status(),
					"timestamp": time.Now(),
				})
			}
		})

		api.POST("/submit", func(c *gin.Context) {
			quizHandler.SubmitQuiz(c)
			if publisher != nil {
				publisher.Publish("quiz.submitted", gin.H{
					"status":    c.Writer.Status(),
					"timestamp": time.Now(),
				})
			}
		})

		api.GET("/user/:id/results", quizHandler.GetUserResults)
		api.GET("/:storyId", quizHandler.GetQuiz)
	}

	log.Printf("Starting storyquiz service on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
