package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Recovery turns a handler panic into the JSON 500 body the console expects,
// never an HTML error page.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			log.Error().
				Interface("panic", r).
				Str("method", c.Request.Method).
				Str("path", c.FullPath()).
				Str("request_id", RequestIDFrom(c)).
				Msg("handler panicked")
			Abort(c, http.StatusInternalServerError, "internal server error")
		}()
		c.Next()
	}
}
