package idempotency

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/leathercraft/inventory-service/pkg/errors"
	"github.com/leathercraft/inventory-service/pkg/logging"
	"github.com/leathercraft/inventory-service/pkg/metrics"
)

// Config configures the middleware. Metrics may be nil.
type Config struct {
	ServiceName     string
	Store           Store
	RequireKey      bool
	MaxKeyLength    int
	LockTimeout     time.Duration
	RetentionPeriod time.Duration
	MaxResponseSize int
	Metrics         *metrics.Metrics
	Logger          *logging.Logger
}

func DefaultConfig(serviceName string, store Store, logger *logging.Logger) *Config {
	return &Config{
		ServiceName:     serviceName,
		Store:           store,
		MaxKeyLength:    DefaultMaxKeyLength,
		LockTimeout:     DefaultLockTimeout,
		RetentionPeriod: DefaultRetentionPeriod,
		MaxResponseSize: DefaultMaxResponseSize,
		Logger:          logger,
	}
}

// per-request headers that must not be replayed
var skipReplayHeaders = map[string]bool{
	"X-Request-Id":     true,
	"X-Correlation-Id": true,
	"Content-Length":   true,
}

type captureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Middleware applies to POST, PUT, PATCH and DELETE. Errors are attached
// with c.Error so the error handler renders them.
func Middleware(config *Config) gin.HandlerFunc {
	logger := config.Logger.WithComponent("idempotency")

	return func(c *gin.Context) {
		if !isMutating(c.Request.Method) {
			c.Next()
			return
		}

		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if key == "" {
			if config.RequireKey {
				abort(c, errors.ErrBadRequest("Idempotency-Key header is required"))
				return
			}
			c.Next()
			return
		}
		if err := ValidateKey(key, config.MaxKeyLength); err != nil {
			abort(c, errors.ErrBadRequest(err.Error()).WithDetail(HeaderIdempotencyKey, key))
			return
		}

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		ctx := c.Request.Context()
		now := time.Now().UTC()
		candidate := &Key{
			Key:           key,
			ServiceID:     config.ServiceName,
			RequestMethod: c.Request.Method,
			RequestPath:   c.Request.URL.Path,
			Fingerprint:   Fingerprint(c.Request.Method, c.Request.URL.Path, body),
			CreatedAt:     now,
			ExpiresAt:     now.Add(config.RetentionPeriod),
		}

		stored, acquired, err := config.Store.Acquire(ctx, candidate, now.Add(-config.LockTimeout))
		if err != nil {
			logger.WithError(err).Error("Failed to acquire idempotency key", "key", key)
			config.record(c, "storage_error")
			abort(c, errors.ErrServiceUnavailable("idempotency store").Wrap(err))
			return
		}

		if !acquired {
			switch {
			case stored.Fingerprint != candidate.Fingerprint:
				config.record(c, "mismatch")
				abort(c, errors.ErrUnprocessable("request differs from the original request with this Idempotency-Key").
					WithDetail(HeaderIdempotencyKey, key))
			case stored.IsCompleted():
				config.record(c, "hit")
				replay(c, stored)
			default:
				config.record(c, "in_flight")
				abort(c, errors.ErrConflict("a request with this Idempotency-Key is still being processed").
					WithDetail(HeaderIdempotencyKey, key))
			}
			return
		}

		config.record(c, "miss")
		writer := &captureWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = writer

		c.Next()

		status := writer.Status()
		if !cacheable(status) {
			if err := config.Store.Release(ctx, stored.ID); err != nil {
				logger.WithError(err).Warn("Failed to release idempotency key", "key", key)
			}
			return
		}

		responseBody := writer.body.Bytes()
		if len(responseBody) > config.MaxResponseSize {
			responseBody = []byte(fmt.Sprintf(`{"message":"response too large to replay","size":%d}`, len(responseBody)))
		}
		if err := config.Store.Complete(ctx, stored.ID, status, responseBody, replayHeaders(writer.Header())); err != nil {
			config.record(c, "storage_error")
			logger.WithError(err).Error("Failed to store idempotent response", "key", key)
		}
	}
}

func (config *Config) record(c *gin.Context, outcome string) {
	if config.Metrics != nil {
		config.Metrics.RecordIdempotency(c.Request.Method, outcome)
	}
}

// Server errors and version conflicts are retryable, so the key is freed
// instead of pinning the failure.
func cacheable(status int) bool {
	return status < http.StatusInternalServerError && status != http.StatusConflict
}

func replay(c *gin.Context, stored *Key) {
	for k, v := range stored.ResponseHeaders {
		c.Header(k, v)
	}
	c.Header(HeaderReplayed, "true")
	c.Data(stored.ResponseCode, "application/json; charset=utf-8", stored.ResponseBody)
	c.Abort()
}

func replayHeaders(h http.Header) map[string]string {
	out := make(map[string]string)
	for k, v := range h {
		if len(v) == 0 || skipReplayHeaders[http.CanonicalHeaderKey(k)] || strings.EqualFold(k, "Content-Type") {
			continue
		}
		out[k] = v[0]
	}
	return out
}

func abort(c *gin.Context, appErr *errors.AppError) {
	_ = c.Error(appErr)
	c.Abort()
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
