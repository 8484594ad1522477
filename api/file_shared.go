package api

import (
	"net/http"
	"safedrop/file-api/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FileShared resolves a short code to the redacted public metadata of a
// file. Resolution has no side effects, only real downloads move the
// counters.
func (a *API) FileShared(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	code := c.Param("code")

	var file model.File

	err := a.DB.Where("short_code = ?", code).First(&file).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "File not found",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to resolve short code", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	// A past expiry wins over whatever status is stored
	if file.Expired() {
		c.AbortWithStatusJSON(http.StatusGone, gin.H{
			"error":     "This file has expired",
			"requestID": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, file.Public())
}
