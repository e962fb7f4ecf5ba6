package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// NewRelicAttributes tags the transaction started by nrgin with the request
// id, the trip id path parameter and any handler errors. It must be
// registered after nrgin.Middleware.
func NewRelicAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		txn := nrgin.Transaction(c)
		if txn == nil {
			c.Next()
			return
		}

		if id := GetRequestID(c); id != "" {
			txn.AddAttribute("request_id", id)
		}
		if tripID := c.Param("id"); tripID != "" {
			txn.AddAttribute("entity_id", tripID)
		}

		c.Next()

		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}
