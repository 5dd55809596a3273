package handler

import (
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Threads *ThreadHandler
	// IngestLimiter throttles thread creation; ingestion is the expensive
	// path. Optional.
	IngestLimiter gin.HandlerFunc
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	create := []gin.HandlerFunc{deps.Threads.Create}
	if deps.IngestLimiter != nil {
		create = append([]gin.HandlerFunc{deps.IngestLimiter}, create...)
	}
	api.POST("/threads", create...)
	api.GET("/threads", deps.Threads.List)
	api.DELETE("/threads/:id", deps.Threads.Delete)
	api.POST("/threads/:id/messages", deps.Threads.SendMessage)
	api.GET("/threads/:id/messages", deps.Threads.Messages)
}
