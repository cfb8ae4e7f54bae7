package sanitize

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/coursehub/gatekeeper/pkg/apiresponses"
	"github.com/coursehub/gatekeeper/pkg/metrics"
)

// Auditor receives warning events for requests the detector rejects.
type Auditor interface {
	SuspiciousRequest(ctx context.Context, method, path, sourceIP, payload string)
}

// Middleware wires the payload cleaner and the suspicious-payload detector
// into the request chain.
type Middleware struct {
	log   *zap.SugaredLogger
	audit Auditor
}

// NewMiddleware constructs the sanitizer middleware. audit may be nil, in
// which case rejections are only logged.
func NewMiddleware(log *zap.SugaredLogger, audit Auditor) *Middleware {
	return &Middleware{log: log, audit: audit}
}

// RejectSuspicious returns a middleware that serializes the request payload
// (JSON body, query parameters and route parameters as one document) and
// rejects the request with 400 when it contains a bare SQL keyword. The
// request is never mutated here; rejection happens before cleaning.
func (m *Middleware) RejectSuspicious() gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, body, err := serializeRequest(c)
		if err != nil {
			apiresponses.RespondBadRequest(c, "request body could not be read")
			return
		}
		restoreBody(c, body)

		if ContainsSQLKeywords(payload) {
			metrics.SuspiciousRequests.Inc()
			ip := c.ClientIP()
			m.log.Warnw("rejected request with suspicious payload",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"ip", ip,
			)
			if m.audit != nil {
				m.audit.SuspiciousRequest(c.Request.Context(),
					c.Request.Method, c.Request.URL.Path, ip, snippet(payload))
			}
			apiresponses.RespondBadRequest(c, "request contains disallowed content")
			return
		}

		c.Next()
	}
}

// CleanRequest returns a middleware that rewrites the JSON request body,
// the query string and the route parameters through Clean before handing
// off. Bodies that are not valid JSON pass through untouched.
func (m *Middleware) CleanRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		if body, err := readBody(c); err == nil && len(body) > 0 {
			var decoded any
			if json.Unmarshal(body, &decoded) == nil {
				if cleaned, err := json.Marshal(Clean(decoded)); err == nil {
					body = cleaned
				}
			}
			restoreBody(c, body)
		}

		query := c.Request.URL.Query()
		changed := false
		for key, values := range query {
			for i, v := range values {
				if cleaned := cleanString(v); cleaned != v {
					values[i] = cleaned
					changed = true
				}
			}
			query[key] = values
		}
		if changed {
			c.Request.URL.RawQuery = query.Encode()
		}

		for i, p := range c.Params {
			if cleaned := cleanString(p.Value); cleaned != p.Value {
				c.Params[i].Value = cleaned
			}
		}

		c.Next()
	}
}

// serializeRequest builds the single string the detector scans: the JSON
// body, query parameters and route parameters marshalled as one document.
// It returns the raw body so callers can restore it.
func serializeRequest(c *gin.Context) (string, []byte, error) {
	body, err := readBody(c)
	if err != nil {
		return "", nil, err
	}

	doc := map[string]any{
		"query":  c.Request.URL.Query(),
		"params": paramsMap(c),
	}
	var decoded any
	if len(body) > 0 && json.Unmarshal(body, &decoded) == nil {
		doc["body"] = decoded
	} else if len(body) > 0 {
		doc["body"] = string(body)
	}

	serialized, err := json.Marshal(doc)
	if err != nil {
		return "", body, err
	}
	return string(serialized), body, nil
}

func paramsMap(c *gin.Context) map[string]string {
	if len(c.Params) == 0 {
		return nil
	}
	out := make(map[string]string, len(c.Params))
	for _, p := range c.Params {
		out[p.Key] = p.Value
	}
	return out
}

func readBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func restoreBody(c *gin.Context, body []byte) {
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
}

// snippet bounds the payload excerpt attached to audit events so the trail
// records enough for triage without storing the full request.
func snippet(payload string) string {
	const max = 512
	if len(payload) > max {
		return payload[:max]
	}
	return payload
}
