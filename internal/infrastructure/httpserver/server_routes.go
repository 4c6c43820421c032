package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)
	if s.config.UploadsDir != "" {
		s.echo.Static("/uploads", s.config.UploadsDir)
	}

	api := s.echo.Group("/api/v1")
	limited := s.middleware.RateLimit.Handler()

	products := api.Group("/products")
	products.GET("", s.listProducts)
	products.GET("/load-more", s.loadMoreProducts)
	products.GET("/:id", s.getProduct)
	products.POST("", s.createProduct, limited)
	products.PATCH("/:id", s.updateProduct, limited)
	products.DELETE("/:id", s.deleteProduct, limited)
	products.POST("/:id/image", s.uploadProductImage, limited)
}
