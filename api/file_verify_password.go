package api

import (
	"net/http"
	"safedrop/file-api/model"
	"safedrop/file-api/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type verifyPasswordBody struct {
	FileID   uint   `json:"fileId"`
	Password string `json:"password"`
}

// FileVerifyPassword checks a file password ahead of download and, on
// success, returns the fuller metadata view including the storage path
func (a *API) FileVerifyPassword(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data verifyPasswordBody
	if err := c.ShouldBindJSON(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Malformed or invalid JSON request body",
			"requestID": requestID,
		})
		return
	}

	var file model.File

	err := a.DB.Where("id = ?", data.FileID).First(&file).Error
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

	if !file.IsPasswordProtected {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "File is not password protected",
			"requestID": requestID,
		})
		return
	}

	if file.Password == "" {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Password data missing",
			"requestID": requestID,
		})

		zap.L().Error("Protected file has no stored hash", zap.Uint("fileID", file.ID))
		return
	}

	if !security.VerifyPassword(data.Password, file.Password) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     "Incorrect password",
			"requestID": requestID,
		})
		return
	}

	view := file.Public()
	view.Path = file.Path

	c.JSON(http.StatusOK, view)
}
