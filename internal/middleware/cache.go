package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/cinebook/booking-core/internal/config"
)

// captureWriter duplicates the response body into a buffer while
// forwarding it to the client, so a successful response can be cached
// after it was written.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit <= 0 || cw.size < cw.limit {
		remain := cw.limit - cw.size
		if cw.limit <= 0 || int64(len(b)) <= remain {
			cw.buf.Write(b)
		} else if remain > 0 {
			cw.buf.Write(b[:remain])
		}
		cw.size += int64(len(b))
	}
	return cw.ResponseWriter.Write(b)
}

// NewReadCache returns a Redis response cache for GET endpoints. Only
// 200 responses are stored, keyed by route and path parameters, for the
// configured (short) TTL. Availability answers may therefore lag the
// inventory by at most one TTL; the booking endpoints themselves never
// pass through this middleware and always see the live engine. With
// caching disabled or Redis unavailable the middleware is a no-op.
func NewReadCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}

			key := cacheKey(cfg.Prefix, c)
			ctx := c.Request().Context()

			if payload, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if status, body, ok := decodeCached(payload); ok {
					c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, _ = c.Response().Write(body)
					return nil
				}
			}

			cw := &captureWriter{
				ResponseWriter: c.Response().Writer,
				status:         http.StatusOK,
				limit:          int64(cfg.MaxBodyBytes),
			}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status == http.StatusOK && (cw.limit <= 0 || cw.size <= cw.limit) {
				// Detached context: the request may be done but the
				// write to Redis should still finish.
				_ = rdb.SetEx(context.Background(), key, encodeCached(cw.status, cw.buf.Bytes()), cfg.TTL).Err()
			}
			return nil
		}
	}
}

// cacheKey hashes route plus parameter values so different shows cache
// under different keys while the key stays short and opaque.
func cacheKey(prefix string, c echo.Context) string {
	var sb strings.Builder
	sb.WriteString(c.Path())
	for _, v := range c.ParamValues() {
		sb.WriteByte('/')
		sb.WriteString(v)
	}
	sum := sha1.Sum([]byte(sb.String()))
	return fmt.Sprintf("%s:%x", prefix, sum[:])
}

// encodeCached packs "<status>\n<body>"; the body is JSON already.
func encodeCached(status int, body []byte) []byte {
	out := make([]byte, 0, len(body)+4)
	out = strconv.AppendInt(out, int64(status), 10)
	out = append(out, '\n')
	return append(out, body...)
}

func decodeCached(payload []byte) (status int, body []byte, ok bool) {
	i := bytes.IndexByte(payload, '\n')
	if i < 0 {
		return 0, nil, false
	}
	n, err := strconv.Atoi(string(payload[:i]))
	if err != nil {
		return 0, nil, false
	}
	return n, payload[i+1:], true
}
