package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour
	idempotencyNS     = "hail:idem:"
)

// storedReply is the replayable outcome of an idempotent request.
type storedReply struct {
	Status      int             `json:"status"`
	ContentType string          `json:"contentType"`
	Body        json.RawMessage `json:"body"`
}

// replyRecorder tees the response body so a successful outcome can be
// stored for replay.
type replyRecorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (r *replyRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored response for a repeated
// Idempotency-Key, so retried wallet top-ups, withdrawals and ride actions
// do not run twice. Requests without the header pass through untouched.
func IdempotencyMiddleware(client *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		redisKey := idempotencyNS + key

		data, err := client.Get(ctx, redisKey).Bytes()
		if err == nil {
			var reply storedReply
			if json.Unmarshal(data, &reply) == nil {
				c.Data(reply.Status, reply.ContentType, reply.Body)
				c.Abort()
				return
			}
		} else if err != redis.Nil {
			// Redis being down must not block the request path.
			c.Next()
			return
		}

		rec := &replyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		// Server errors are retryable and must not be pinned to the key.
		status := c.Writer.Status()
		if status >= http.StatusInternalServerError {
			return
		}

		reply := storedReply{
			Status:      status,
			ContentType: c.Writer.Header().Get("Content-Type"),
			Body:        rec.buf.Bytes(),
		}
		if data, err := json.Marshal(reply); err == nil {
			_ = client.Set(ctx, redisKey, data, idempotencyTTL).Err()
		}
	}
}
