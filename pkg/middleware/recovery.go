package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/manzanit0/studymap/pkg/alert"
)

func Recovery(n alert.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Re-panicking hands the panic to the notifier's recover after the
		// request has been aborted.
		defer n.Recover(c.Request.Context())
		defer func() {
			if r := recover(); r != nil {
				c.AbortWithStatus(http.StatusInternalServerError)
				panic(r)
			}
		}()

		c.Next()
	}
}
