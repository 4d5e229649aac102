package gateway

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// identityCookie is the cookie carrying the signed per-browser identity
// token for the room variant.
const identityCookie = "qs_identity"

// identityKey is where the verified display name lives on the gin context.
const identityKey = "identity"

// requestLogger logs one structured line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}

// identityMiddleware ensures every room request carries a per-browser
// identity. A valid cookie is reused; anything else (absent, tampered,
// signed by a previous boot) gets a freshly issued name and token. The core
// only ever sees the resulting display name.
func (s *Server) identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := c.Cookie(identityCookie); err == nil {
			if name, err := s.issuer.Verify(token); err == nil {
				c.Set(identityKey, name)
				c.Next()
				return
			}
		}

		name, token, err := s.issuer.Issue()
		if err != nil {
			log.Error().Err(err).Msg("failed to issue identity")
			c.AbortWithStatusJSON(500, gin.H{"error": "Something went wrong, please try again"})
			return
		}

		// Session cookie: lives as long as the browser session does.
		c.SetCookie(identityCookie, token, 0, "/", "", false, true)
		c.Set(identityKey, name)
		c.Next()
	}
}

// callerIdentity returns the display name placed by identityMiddleware.
func callerIdentity(c *gin.Context) string {
	return c.GetString(identityKey)
}
