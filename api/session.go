package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const sessionKey = "session_id"

type SessionOptions struct {
	CookieName string
	MaxAge     int
	Secure     bool
}

// SessionMiddleware ties every request to a browser session, issuing a new
// cookie when the request carries none or an unparsable one.
func SessionMiddleware(opts SessionOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(opts.CookieName)
		if err == nil {
			_, err = uuid.Parse(id)
		}
		if err != nil {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(opts.CookieName, id, opts.MaxAge, "/", "", opts.Secure, true)
		}
		c.Set(sessionKey, id)
		c.Next()
	}
}

// SessionID returns the id set by SessionMiddleware.
func SessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}
