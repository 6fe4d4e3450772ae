package httpapi

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(
		s.requestContext(),
		s.tracing(),
		s.requestLogger(),
		cors(s.opts.CORSOrigin),
		s.recovery(),
	)

	r.GET("/health", s.health)
	if s.opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.opts.Metrics))
	}

	g := r.Group("/auth")
	g.POST("/register", s.register)
	g.POST("/login", s.login)
	g.GET("/me", s.requireAuth(), s.me)
	g.POST("/refresh", s.refresh)
	g.POST("/logout", s.logout)

	return r
}
