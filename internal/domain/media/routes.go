package media

import "github.com/gin-gonic/gin"

// RegisterPublicRoutes mounts the unauthenticated surface: status polling
// and the gallery listing.
func RegisterPublicRoutes(r *gin.RouterGroup, h *Handler) {
	m := r.Group("/media")
	{
		m.GET("", h.List)
		m.GET("/:id/status", h.Status)
	}
}

// RegisterProtectedRoutes mounts everything that mutates state; the caller
// wraps the group in auth middleware.
func RegisterProtectedRoutes(r *gin.RouterGroup, h *Handler) {
	m := r.Group("/media")
	{
		m.POST("", h.Upload)
		m.POST("/from-url", h.UploadFromURL)
		m.POST("/presign", h.Presign)
		m.POST("/:id/retry", h.Retry)
		m.PATCH("/:id", h.UpdateMetadata)
		m.DELETE("/:id", h.Delete)
	}
}
