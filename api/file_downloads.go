package api

import (
	"net/http"
	"safedrop/file-api/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FileDownloadCount returns how many completed downloads a file has
func (a *API) FileDownloadCount(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	fileID := c.Param("fileId")

	var count int64

	err := a.DB.Model(model.File{}).
		Where("id = ?", fileID).
		Select("downloaded_content").
		First(&count).
		Error
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

		zap.L().Error("Failed to fetch download count", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count": count,
	})
}
