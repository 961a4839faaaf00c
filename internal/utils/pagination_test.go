package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestParseSCIMPagination_Defaults(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request, _ = http.NewRequest("GET", "/", nil)
	startIndex, count := ParseSCIMPagination(c)
	assert.Equal(t, 1, startIndex)
	assert.Equal(t, 100, count)
}

func TestParseSCIMPagination_NegativeStartIndexClampsToOne(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request, _ = http.NewRequest("GET", "/?startIndex=-5", nil)
	startIndex, _ := ParseSCIMPagination(c)
	assert.Equal(t, 1, startIndex)
}

func TestParseSCIMPagination_NegativeCountClampsToZero(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request, _ = http.NewRequest("GET", "/?count=-1", nil)
	_, count := ParseSCIMPagination(c)
	assert.Equal(t, 0, count)
}

func TestParseSCIMPagination_ValidValues(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request, _ = http.NewRequest("GET", "/?startIndex=11&count=50", nil)
	startIndex, count := ParseSCIMPagination(c)
	assert.Equal(t, 11, startIndex)
	assert.Equal(t, 50, count)
}

func TestParseSCIMPagination_CountClampedToMax(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request, _ = http.NewRequest("GET", "/?count=5000", nil)
	_, count := ParseSCIMPagination(c)
	assert.Equal(t, MaxCount, count)
}
