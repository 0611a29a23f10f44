package server

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nwishs/Images/internal/config"
	"github.com/nwishs/Images/internal/handler"
	"github.com/nwishs/Images/internal/queue"
	"github.com/nwishs/Images/internal/repository"
	"github.com/nwishs/Images/internal/service"
)

type Server struct {
	httpServer *http.Server
	cfg        *config.Config
	log        *zap.Logger
}

func New(cfg *config.Config, log *zap.Logger) (*Server, error) {
	awsCfg, err := config.NewAWSConfig(context.Background(), &cfg.S3)
	if err != nil {
		return nil, err
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	s3Repo := repository.NewS3Repository(s3Client, &cfg.S3, log)
	registry := repository.NewDynamoRegistry(dynamodb.NewFromConfig(awsCfg), cfg.Registry.Table, log)
	publisher := queue.NewPublisher(sqs.NewFromConfig(awsCfg), cfg.Queue.URL, log)

	imageService := service.NewImageService(s3Repo, registry, publisher, cfg, log)
	h := handler.NewHandler(imageService, log)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization", "X-Amz-Date", "X-Api-Key", "X-Amz-Security-Token"},
	}))

	router.GET("/health", h.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/images", h.IngestImages)
		api.GET("/images/:itemId", h.ListItemImages)
	}

	server := &Server{
		httpServer: &http.Server{
			Addr:           cfg.Server.Host + ":" + cfg.Server.Port,
			Handler:        router,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   60 * time.Second,
			MaxHeaderBytes: 1 << 20, // 1 MB
		},
		cfg: cfg,
		log: log,
	}

	log.Info("Server created successfully",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port))

	return server, nil
}

func (s *Server) Run() error {
	s.log.Info("Server is running",
		zap.String("address", s.httpServer.Addr))

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down server")
	return s.httpServer.Shutdown(ctx)
}
