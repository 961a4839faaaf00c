package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/scimkit/scimserver/internal/models"
)

// acceptedContentTypes are the media types SCIM bodies may arrive as,
// per RFC 7644 3.1: application/scim+json, with application/json
// tolerated for clients that never adopted the dedicated type.
var acceptedContentTypes = []string{"application/scim+json", "application/json"}

// ContentType rejects any body-bearing request whose Content-Type isn't
// one of acceptedContentTypes before the handler ever binds the body,
// so a malformed or unexpected payload surfaces as a SCIM error rather
// than a generic JSON bind failure.
func ContentType() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !hasBody(c.Request.Method) {
			c.Next()
			return
		}

		if !acceptableContentType(c.GetHeader("Content-Type")) {
			c.JSON(http.StatusBadRequest, models.NewSCIMError(http.StatusBadRequest, "invalidValue",
				"Content-Type must be application/scim+json or application/json"))
			c.Abort()
			return
		}

		c.Next()
	}
}

func hasBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

func acceptableContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	for _, accepted := range acceptedContentTypes {
		if strings.EqualFold(mediaType, accepted) {
			return true
		}
	}
	return false
}
