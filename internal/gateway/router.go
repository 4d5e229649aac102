// Package gateway is the HTTP surface of the service. It owns route wiring,
// multipart parsing and response shaping; all session and file state lives
// behind the registry and blob store it is handed.
package gateway

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quickshare/quickshare/internal/identity"
	"github.com/quickshare/quickshare/internal/session"
	"github.com/quickshare/quickshare/internal/storage"
	"github.com/quickshare/quickshare/pkg/config"
)

// Server carries the collaborators every handler needs.
type Server struct {
	registry *session.Registry
	blobs    storage.BlobStore
	issuer   *identity.Issuer
	cfg      *config.Config
}

// New creates a gateway server around the given registry and blob store.
func New(registry *session.Registry, blobs storage.BlobStore, issuer *identity.Issuer, cfg *config.Config) *Server {
	return &Server{
		registry: registry,
		blobs:    blobs,
		issuer:   issuer,
		cfg:      cfg,
	}
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(requestLogger())
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "quickshare",
			"time":    time.Now().UTC(),
		})
	})

	// Base variant: anonymous upload batches.
	router.GET("/", s.handleIndex)
	router.POST("/", s.handleUpload)
	router.GET("/d/:code", s.handleListing)
	router.POST("/download", s.handleListing)
	router.GET("/get_file/:code/:index", s.handleGetFile)
	router.GET("/get_all_files/:code", s.handleGetAllFiles)
	router.GET("/api/check/:code", s.handleCheck)

	// Room variant: multi-user sessions with history and identity.
	rooms := router.Group("/", s.identityMiddleware())
	{
		rooms.POST("/create-room", s.handleCreateRoom)
		rooms.POST("/join", s.handleJoinRoom)
		rooms.GET("/room/:code", s.handleRoomState)
		rooms.POST("/room/:code", s.handleRoomUpload)
		rooms.GET("/download/:code/:index", s.handleRoomDownload)
		rooms.GET("/api/timer/:code", s.handleCheck)
	}

	return router
}
