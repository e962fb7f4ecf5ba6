package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour
	replayHeader      = "Idempotent-Replay"

	// CodeIdempotencyKeyReused is returned when a key comes back with a
	// different request body.
	CodeIdempotencyKeyReused = "IDEMPOTENCY_KEY_REUSED"
)

// storedCommand is what Redis keeps per idempotency key: the fingerprint of
// the request that claimed the key and the answer it got.
type storedCommand struct {
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status"`
	Body        []byte `json:"body"`
	RequestID   string `json:"request_id,omitempty"`
}

// captureWriter tees the handler's response body.
type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored response of a trip command sent
// again with the same Idempotency-Key. Keys are scoped by method and path,
// and bound to the request body: reusing a key with another body answers
// 422 IDEMPOTENCY_KEY_REUSED. 5xx responses are not stored and Redis
// failures let the request through.
func IdempotencyMiddleware(redisClient *redis.Client, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(idempotencyHeader)
		if key == "" || !isCommand(c.Request.Method) {
			c.Next()
			return
		}

		fingerprint, err := fingerprintBody(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "INVALID_BODY", "message": "request body could not be read"})
			return
		}

		ctx := c.Request.Context()
		log := logger.WithField("idempotency_key", key)
		redisKey := "idempotency:" + c.Request.Method + ":" + c.Request.URL.Path + ":" + key

		stored, err := loadCommand(ctx, redisClient, redisKey)
		if err != nil {
			log.WithError(err).Warn("Idempotency lookup failed")
			c.Next()
			return
		}

		if stored != nil {
			if stored.Fingerprint != fingerprint {
				log.Warn("Idempotency key reused with a different body")
				c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
					"error":   CodeIdempotencyKeyReused,
					"message": "Idempotency-Key was already used with a different request body",
				})
				return
			}
			c.Header(replayHeader, "true")
			if stored.RequestID != "" {
				c.Header("X-Original-Request-ID", stored.RequestID)
			}
			c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
			c.Abort()
			return
		}

		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		status := w.Status()
		if status >= http.StatusInternalServerError {
			return
		}
		record := storedCommand{
			Fingerprint: fingerprint,
			Status:      status,
			Body:        w.buf.Bytes(),
			RequestID:   w.Header().Get(RequestIDHeader),
		}
		if err := saveCommand(ctx, redisClient, redisKey, &record); err != nil {
			log.WithError(err).Warn("Failed to store idempotent response")
		}
	}
}

func isCommand(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

// fingerprintBody hashes the request body and puts it back for the handler.
func fingerprintBody(r *http.Request) (string, error) {
	if r.Body == nil {
		sum := sha256.Sum256(nil)
		return hex.EncodeToString(sum[:]), nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}

// loadCommand returns nil without error when the key is unused.
func loadCommand(ctx context.Context, client *redis.Client, key string) (*storedCommand, error) {
	data, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var stored storedCommand
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

func saveCommand(ctx context.Context, client *redis.Client, key string, record *storedCommand) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, data, idempotencyTTL).Err()
}
