package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/quickshare/quickshare/internal/session"
	"github.com/quickshare/quickshare/internal/storage"
	"github.com/quickshare/quickshare/pkg/types"
	"github.com/quickshare/quickshare/pkg/utils"
)

// handleCreateRoom allocates a room session hosted by the caller's identity.
func (s *Server) handleCreateRoom(c *gin.Context) {
	host := callerIdentity(c)

	code, err := s.registry.Create(host)
	if err != nil {
		log.Error().Err(err).Msg("failed to create room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong, please try again"})
		return
	}

	s.recordActivity(code, host, "created the room")
	log.Info().Str("code", code).Str("host", host).Msg("room created")

	s.respondRoomState(c, code)
}

// handleJoinRoom resolves a submitted code to a room and records the join.
func (s *Server) handleJoinRoom(c *gin.Context) {
	code := c.PostForm("code")

	sess, err := s.registry.Get(code)
	if err != nil || !sess.IsRoom() {
		c.JSON(http.StatusNotFound, gin.H{"error": invalidCodeMessage})
		return
	}

	s.recordActivity(code, callerIdentity(c), "joined the room")
	s.respondRoomState(c, code)
}

// handleRoomState returns the room's files and history, newest event first.
func (s *Server) handleRoomState(c *gin.Context) {
	sess, err := s.registry.Get(c.Param("code"))
	if err != nil || !sess.IsRoom() {
		c.JSON(http.StatusNotFound, gin.H{"error": invalidCodeMessage})
		return
	}

	s.renderRoomState(c, sess)
}

// handleRoomUpload appends files to an existing room. Unlike the base
// variant a rejected batch rolls back only its own blobs; the room and its
// earlier files stay intact.
func (s *Server) handleRoomUpload(c *gin.Context) {
	code := c.Param("code")
	sender := callerIdentity(c)

	sess, err := s.registry.Get(code)
	if err != nil || !sess.IsRoom() {
		c.JSON(http.StatusNotFound, gin.H{"error": invalidCodeMessage})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.Limits.MaxTotalBytes)

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("Total size exceeds %s limit", utils.FormatBytes(s.cfg.Limits.MaxTotalBytes))})
		return
	}

	files := presentFiles(form.File["file"])
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files selected"})
		return
	}

	var written []string
	rollback := func() {
		for _, name := range written {
			if err := s.blobs.Delete(c.Request.Context(), name); err != nil {
				log.Error().Err(err).Str("name", name).Msg("rollback delete failed")
			}
		}
	}

	for _, fh := range files {
		// The timestamp component keeps repeat shares of the same filename
		// from overwriting each other within the room.
		storedName := storage.StampedName(code, time.Now().Unix(), utils.SanitizeFilename(fh.Filename))

		size, err := s.saveOne(c, fh, storedName)
		if err != nil {
			rollback()
			if errors.Is(err, storage.ErrTooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("Single file too large (max %s)", utils.FormatBytes(s.cfg.Limits.MaxSingleFileBytes))})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed, please try again"})
			return
		}
		written = append(written, storedName)

		rec := types.FileRecord{
			OriginalName: fh.Filename,
			StoredName:   storedName,
			SizeBytes:    size,
			HumanSize:    utils.FormatBytes(size),
			ContentType:  utils.FileTypeLabel(fh.Filename),
			Sender:       sender,
		}

		if err := s.registry.AppendFile(code, rec); err != nil {
			rollback()
			if errors.Is(err, session.ErrTooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("Total size exceeds %s limit", utils.FormatBytes(s.cfg.Limits.MaxTotalBytes))})
				return
			}
			c.JSON(http.StatusNotFound, gin.H{"error": invalidCodeMessage})
			return
		}

		s.recordActivity(code, sender, "shared "+utils.SanitizeFilename(fh.Filename))
	}

	s.respondRoomState(c, code)
}

// handleRoomDownload streams one room file by its position in share order.
func (s *Server) handleRoomDownload(c *gin.Context) {
	s.streamByIndex(c, c.Param("code"), c.Param("index"))
}

// recordActivity appends a history event, tolerating the session having
// expired between the guard and the append.
func (s *Server) recordActivity(code, who, action string) {
	err := s.registry.AppendHistory(code, types.ActivityEvent{
		Identity: who,
		Action:   action,
		At:       time.Now(),
	})
	if err != nil {
		log.Debug().Err(err).Str("code", code).Msg("dropped activity event")
	}
}

// respondRoomState re-reads the session and renders it, so the caller sees
// the state including its own just-made changes.
func (s *Server) respondRoomState(c *gin.Context, code string) {
	sess, err := s.registry.Get(code)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": invalidCodeMessage})
		return
	}
	s.renderRoomState(c, sess)
}

func (s *Server) renderRoomState(c *gin.Context, sess *types.Session) {
	c.JSON(http.StatusOK, gin.H{
		"code":     sess.Code,
		"identity": callerIdentity(c),
		"host":     sess.Host,
		"files":    sess.Files,
		"history":  sess.History,
		"timer":    types.NewCheckStatus(sess.CreatedAt, s.cfg.Expiry.SessionTTL, time.Now()),
	})
}
