package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultStartIndex = 1
	DefaultCount      = 100
	MaxCount          = 200
)

// ParseSCIMPagination extracts startIndex/count from SCIM list-request query
// parameters, clamping to the bounds C8's search contract requires:
// startIndex is 1-based, count<0 is treated as 0, and counts above MaxCount
// are capped rather than rejected.
func ParseSCIMPagination(c *gin.Context) (startIndex, count int) {
	startIndex, _ = strconv.Atoi(c.DefaultQuery("startIndex", strconv.Itoa(DefaultStartIndex)))
	if startIndex < 1 {
		startIndex = 1
	}

	count, _ = strconv.Atoi(c.DefaultQuery("count", strconv.Itoa(DefaultCount)))
	if count < 0 {
		count = 0
	}
	if count > MaxCount {
		count = MaxCount
	}
	return
}
