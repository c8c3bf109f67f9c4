package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	// Control channel of the hosting page: background-sync trigger, version
	// takeover, full cache deletion, queue visibility.
	ctl := s.echo.Group("/offline")
	ctl.POST("/sync", s.triggerSync)
	ctl.POST("/control", s.controlMessage)
	ctl.GET("/queue", s.listQueue)

	// Everything else is the interception boundary.
	s.echo.Any("/*", s.interceptRequest)
}
