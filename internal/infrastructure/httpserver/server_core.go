package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/configs"
	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/core/ports"
	customMiddleware "github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/infrastructure/httpserver/middleware"
)

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSCertFile  string
	TLSKeyFile   string
}

type ServerDeps struct {
	Interceptor    ports.Interceptor
	Sync           ports.SyncCoordinator
	Generations    ports.CacheGenerations
	Queue          ports.WriteQueue
	HealthCheckers []ports.HealthChecker
}

type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	offlineCfg     *configs.OfflineConfig
	logger         *logrus.Logger
	interceptor    ports.Interceptor
	syncSvc        ports.SyncCoordinator
	generations    ports.CacheGenerations
	queue          ports.WriteQueue
	middleware     *customMiddleware.MiddlewareCollection
	healthCheckers []ports.HealthChecker
}

func NewServer(serverConfig *ServerConfig, offlineCfg *configs.OfflineConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()

	server := &Server{
		echo:           e,
		config:         serverConfig,
		offlineCfg:     offlineCfg,
		logger:         logger,
		interceptor:    deps.Interceptor,
		syncSvc:        deps.Sync,
		generations:    deps.Generations,
		queue:          deps.Queue,
		healthCheckers: deps.HealthCheckers,
		middleware: customMiddleware.NewMiddlewareCollection(
			offlineCfg,
			logger,
			GetRequestsTotal(),
			GetRequestDuration(),
		),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
