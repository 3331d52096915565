package middleware

import (
	"bytes"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/forecast/ingestion/internal/infrastructure/cache"
	"github.com/forecast/ingestion/internal/infrastructure/logger"
)

// IdempotencyKeyHeader identifies a delivery attempt. Agents reuse the key
// when they retry a batch, so duplicate deliveries replay the first response
// instead of reprocessing the batch.
const IdempotencyKeyHeader = "X-Idempotency-Key"

// ReplayHeader marks a response served from the idempotency store
const ReplayHeader = "X-Idempotency-Replay"

// captureWriter buffers the response body so a successful response can be
// stored for replay
type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays stored responses for repeated delivery attempts.
// Requests without the key header pass through untouched. Store failures are
// logged and the request proceeds as a first delivery.
func Idempotency(store cache.ResponseStore, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		log := logger.FromContext(ctx)

		cached, found, err := store.Get(ctx, key)
		if err != nil {
			log.Warn("Idempotency store lookup failed, treating as first delivery",
				zap.String("idempotency_key", key), zap.Error(err))
		}
		if found {
			c.Header(ReplayHeader, "true")
			c.Data(cached.Status, cached.ContentType, cached.Body)
			c.Abort()
			return
		}

		writer := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = writer

		c.Next()

		status := writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		resp := &cache.CachedResponse{
			Status:      status,
			ContentType: writer.Header().Get("Content-Type"),
			Body:        writer.body.Bytes(),
		}
		if err := store.Put(ctx, key, resp, ttl); err != nil {
			log.Warn("Failed to store response for replay",
				zap.String("idempotency_key", key), zap.Error(err))
		}
	}
}
