package auth

import "github.com/gin-gonic/gin"

// Role resolution happens upstream; the gateway forwards the acting user in
// headers. Fall back to body-level fields where a handler needs them.
const (
	HeaderUserID   = "X-User-Id"
	HeaderUserName = "X-User-Name"
)

// ActorID returns the acting user's id, or "" when the request is anonymous.
func ActorID(c *gin.Context) string {
	return c.GetHeader(HeaderUserID)
}

// ActorName returns the acting user's display name, falling back to the id.
func ActorName(c *gin.Context) string {
	if name := c.GetHeader(HeaderUserName); name != "" {
		return name
	}
	return c.GetHeader(HeaderUserID)
}
