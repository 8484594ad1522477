package api

import (
	"net/http"
	"safedrop/file-api/model"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FileQR renders the file's share URL as a PNG QR code
func (a *API) FileQR(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	fileID := c.Param("fileId")

	var file model.File

	err := a.DB.Where("id = ?", fileID).First(&file).Error
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

		zap.L().Error("Failed to fetch file from db", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	png, err := qrcode.Encode(file.ShortURL, qrcode.Medium, 256)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to encode QR code", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}
