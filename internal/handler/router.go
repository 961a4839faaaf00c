package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/scimkit/scimserver/internal/middleware"
)

// Dispatch routes a request to the right SCIMHandler method using the
// tenant-relative path middleware.TenantMiddleware left in context,
// since tenant path prefixes are only known at runtime from the tenant
// document and can't be laid out as static gin routes.
func Dispatch(h *SCIMHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		rest, _ := c.Get(middleware.TenantPathKey)
		path, _ := rest.(string)
		segments := splitPath(path)
		method := c.Request.Method

		if len(segments) == 0 {
			h.handleSCIMError(c, http.StatusNotFound, "", "resource type not found")
			return
		}

		switch segments[0] {
		case "Users":
			dispatchResource(c, h, segments, method, h.GetUsers, h.CreateUser, h.GetUser, h.UpdateUser, h.PatchUser, h.DeleteUser)
		case "Groups":
			dispatchResource(c, h, segments, method, h.GetGroups, h.CreateGroup, h.GetGroup, h.UpdateGroup, h.PatchGroup, h.DeleteGroup)
		case "ServiceProviderConfig":
			if len(segments) == 1 && method == http.MethodGet {
				h.GetServiceProviderConfig(c)
				return
			}
			h.handleSCIMError(c, http.StatusMethodNotAllowed, "", "method not allowed")
		case "Schemas":
			if len(segments) == 1 && method == http.MethodGet {
				h.GetSchemas(c)
				return
			}
			h.handleSCIMError(c, http.StatusMethodNotAllowed, "", "method not allowed")
		case "ResourceTypes":
			if len(segments) == 1 && method == http.MethodGet {
				h.GetResourceTypes(c)
				return
			}
			h.handleSCIMError(c, http.StatusMethodNotAllowed, "", "method not allowed")
		default:
			h.handleSCIMError(c, http.StatusNotFound, "", "resource type not found")
		}
	}
}

func dispatchResource(c *gin.Context, h *SCIMHandler, segments []string, method string,
	list, create, get, update, patch, del gin.HandlerFunc) {
	switch len(segments) {
	case 1:
		switch method {
		case http.MethodGet:
			list(c)
		case http.MethodPost:
			create(c)
		default:
			h.handleSCIMError(c, http.StatusMethodNotAllowed, "", "method not allowed")
		}
	case 2:
		c.Params = append(c.Params, gin.Param{Key: "id", Value: segments[1]})
		switch method {
		case http.MethodGet:
			get(c)
		case http.MethodPut:
			update(c)
		case http.MethodPatch:
			patch(c)
		case http.MethodDelete:
			del(c)
		default:
			h.handleSCIMError(c, http.StatusMethodNotAllowed, "", "method not allowed")
		}
	default:
		h.handleSCIMError(c, http.StatusNotFound, "", "resource not found")
	}
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
