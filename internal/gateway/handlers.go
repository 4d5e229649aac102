package gateway

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/quickshare/quickshare/internal/session"
	"github.com/quickshare/quickshare/internal/storage"
	"github.com/quickshare/quickshare/pkg/types"
	"github.com/quickshare/quickshare/pkg/utils"
)

const invalidCodeMessage = "Invalid or expired code"

func (s *Server) handleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":        "quickshare",
		"max_total_size": utils.FormatBytes(s.cfg.Limits.MaxTotalBytes),
		"max_file_size":  utils.FormatBytes(s.cfg.Limits.MaxSingleFileBytes),
		"session_ttl":    s.cfg.Expiry.SessionTTL.String(),
	})
}

// handleUpload accepts one multipart request with any number of "file"
// fields, allocates a code and persists the batch. Exceeding either size
// ceiling rolls back every file written in this batch, including the
// registry entry, so a rejected upload leaves nothing behind.
func (s *Server) handleUpload(c *gin.Context) {
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

	code, err := s.registry.Create("")
	if err != nil {
		log.Error().Err(err).Msg("failed to create session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong, please try again"})
		return
	}

	var written []string
	rollback := func() {
		for _, name := range written {
			if err := s.blobs.Delete(c.Request.Context(), name); err != nil {
				log.Error().Err(err).Str("name", name).Msg("rollback delete failed")
			}
		}
		s.registry.Remove(code)
	}

	for _, fh := range files {
		storedName := storage.StoredName(code, utils.SanitizeFilename(fh.Filename))

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
		}

		// The aggregate ceiling is checked per file inside the registry so
		// a concurrent reaper pass or a second request can never let a
		// batch sneak past it.
		if err := s.registry.AppendFile(code, rec); err != nil {
			rollback()
			if errors.Is(err, session.ErrTooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("Total size exceeds %s limit", utils.FormatBytes(s.cfg.Limits.MaxTotalBytes))})
				return
			}
			c.JSON(http.StatusNotFound, gin.H{"error": invalidCodeMessage})
			return
		}
	}

	sess, err := s.registry.Get(code)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": invalidCodeMessage})
		return
	}

	log.Info().Str("code", code).Int("files", len(sess.Files)).Msg("new upload")

	c.JSON(http.StatusOK, gin.H{
		"code":      code,
		"share_url": s.shareURL(c, code),
		"files":     sess.Files,
	})
}

// handleListing resolves a code (path param or form field) to its file
// listing.
func (s *Server) handleListing(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		code = c.PostForm("code")
	}

	sess, err := s.registry.Get(code)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": invalidCodeMessage})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":      code,
		"share_url": s.shareURL(c, code),
		"files":     sess.Files,
	})
}

func (s *Server) handleGetFile(c *gin.Context) {
	s.streamByIndex(c, c.Param("code"), c.Param("index"))
}

// handleGetAllFiles streams a session's files: a single file directly, more
// than one as a zip archive built on demand from the current blobs.
func (s *Server) handleGetAllFiles(c *gin.Context) {
	code := c.Param("code")
	sess, err := s.registry.Get(code)
	if err != nil || len(sess.Files) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": invalidCodeMessage})
		return
	}

	if len(sess.Files) == 1 {
		s.streamFile(c, sess.Files[0])
		return
	}

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "files_"+code+".zip"))
	c.Status(http.StatusOK)

	zw := zip.NewWriter(c.Writer)
	for _, rec := range sess.Files {
		rc, _, err := s.blobs.Get(c.Request.Context(), rec.StoredName)
		if err != nil {
			// A blob can vanish between the registry read and here; skip
			// it rather than abort the archive mid-stream.
			log.Warn().Err(err).Str("code", code).Str("name", rec.StoredName).Msg("skipping missing blob in archive")
			continue
		}

		w, err := zw.Create(rec.OriginalName)
		if err != nil {
			rc.Close()
			log.Error().Err(err).Str("code", code).Msg("failed to add archive entry")
			break
		}
		if _, err := io.Copy(w, rc); err != nil {
			rc.Close()
			log.Error().Err(err).Str("code", code).Msg("failed to write archive entry")
			break
		}
		rc.Close()
	}

	if err := zw.Close(); err != nil {
		log.Error().Err(err).Str("code", code).Msg("failed to finish archive")
	}
}

// handleCheck reports whether a code is still valid and how long it has
// left. Expiry is evaluated on this very read; the reaper's cadence plays
// no part in the answer.
func (s *Server) handleCheck(c *gin.Context) {
	sess, err := s.registry.Get(c.Param("code"))
	if err != nil {
		c.JSON(http.StatusOK, types.CheckStatus{Expired: true})
		return
	}

	c.JSON(http.StatusOK, types.NewCheckStatus(sess.CreatedAt, s.cfg.Expiry.SessionTTL, time.Now()))
}

// streamByIndex looks a file up by its position in the session's upload
// order and streams it as an attachment.
func (s *Server) streamByIndex(c *gin.Context, code, indexParam string) {
	sess, err := s.registry.Get(code)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": invalidCodeMessage})
		return
	}

	index, err := strconv.Atoi(indexParam)
	if err != nil || index < 0 || index >= len(sess.Files) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid file index"})
		return
	}

	s.streamFile(c, sess.Files[index])
}

// streamFile sends one stored blob as an attachment under its original name.
func (s *Server) streamFile(c *gin.Context, rec types.FileRecord) {
	rc, size, err := s.blobs.Get(c.Request.Context(), rec.StoredName)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": invalidCodeMessage})
		return
	}

	c.DataFromReader(http.StatusOK, size, "application/octet-stream", rc, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", rec.OriginalName),
	})
}

// saveOne writes one multipart file to the blob store.
func (s *Server) saveOne(c *gin.Context, fh *multipart.FileHeader, storedName string) (int64, error) {
	f, err := fh.Open()
	if err != nil {
		return 0, fmt.Errorf("failed to open multipart file: %w", err)
	}
	defer f.Close()

	return s.blobs.Put(c.Request.Context(), storedName, f)
}

// presentFiles filters out form parts with blank filenames, mirroring how
// browsers submit an empty file input.
func presentFiles(headers []*multipart.FileHeader) []*multipart.FileHeader {
	out := headers[:0:0]
	for _, fh := range headers {
		if fh != nil && fh.Filename != "" {
			out = append(out, fh)
		}
	}
	return out
}

func (s *Server) shareURL(c *gin.Context, code string) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/d/%s", scheme, c.Request.Host, code)
}
