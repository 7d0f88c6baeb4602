package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huangang/campy/internal/services"
)

const auditBodyLimit = 2000

var sensitiveKeys = []string{"password", "token", "secret"}

// Audit records every write request after it has been handled.
func Audit(audit *services.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != http.MethodPost && method != http.MethodPut && method != http.MethodPatch && method != http.MethodDelete {
			c.Next()
			return
		}

		body := captureBody(c)
		c.Next()

		module, action := parseRouteInfo(c.FullPath(), method)
		status := c.Writer.Status()
		entry := services.AuditEntry{
			ProjectID: projectIDOf(c),
			Module:    module,
			Action:    action,
			Message:   formatAuditMessage(GetEmail(c), method, c.Request.URL.Path, status),
			Status:    status,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Extra: map[string]interface{}{
				"method": method,
				"path":   c.Request.URL.Path,
				"body":   body,
			},
		}
		if id := GetUserID(c); id > 0 {
			entry.UserID = &id
		}
		audit.Record(entry)
	}
}

// captureBody reads and restores the request body, returning a masked,
// truncated copy. Uploads are not captured.
func captureBody(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		return "[multipart]"
	}
	raw, _ := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))

	body := maskSensitiveFields(raw)
	if len(body) > auditBodyLimit {
		body = body[:auditBodyLimit] + "...[truncated]"
	}
	return body
}

// projectIDOf returns the project a /api/projects/:id route acts on.
func projectIDOf(c *gin.Context) *uint {
	if !strings.HasPrefix(c.FullPath(), "/api/projects/:id") {
		return nil
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return nil
	}
	v := uint(id)
	return &v
}

// parseRouteInfo names the resource and verb of a route:
// "/api/projects/:id/activities" with POST is ("activities", "create").
func parseRouteInfo(fullPath, method string) (module, action string) {
	var static []string
	for _, part := range strings.Split(strings.TrimPrefix(fullPath, "/api/"), "/") {
		if part != "" && !strings.HasPrefix(part, ":") && !strings.HasPrefix(part, "*") {
			static = append(static, part)
		}
	}
	switch {
	case len(static) == 0:
		module = "unknown"
	case static[0] == "projects" && len(static) > 1:
		module = static[1]
	default:
		module = static[0]
	}

	switch method {
	case http.MethodPost:
		action = "create"
	case http.MethodPut, http.MethodPatch:
		action = "update"
	case http.MethodDelete:
		action = "delete"
	default:
		action = strings.ToLower(method)
	}
	return module, action
}

func formatAuditMessage(email, method, path string, status int) string {
	outcome := "OK"
	if status < 200 || status >= 300 {
		outcome = "Failed"
	}
	if email == "" {
		email = "anonymous"
	}
	return fmt.Sprintf("%s %s %s -> %s", email, method, path, outcome)
}

// maskSensitiveFields hides credential values in a JSON body. Bodies that
// are not JSON objects are returned as-is.
func maskSensitiveFields(raw []byte) string {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return string(raw)
	}
	maskMap(doc)
	out, err := json.Marshal(doc)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

func maskMap(doc map[string]interface{}) {
	for k, v := range doc {
		if isSensitive(k) {
			doc[k] = "***"
			continue
		}
		if nested, ok := v.(map[string]interface{}); ok {
			maskMap(nested)
		}
	}
}

func isSensitive(key string) bool {
	key = strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}
