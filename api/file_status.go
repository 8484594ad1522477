package api

import (
	"net/http"
	"safedrop/file-api/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type statusBody struct {
	Status string `json:"status"`
}

// FileUpdateStatus is an administrative override of a file's lifecycle
// status. Time-driven expiry still wins over a stored "active".
func (a *API) FileUpdateStatus(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	fileID := c.Param("fileId")

	var data statusBody
	if err := c.ShouldBindJSON(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Malformed or invalid JSON request body",
			"requestID": requestID,
		})
		return
	}

	if data.Status != model.StatusActive && data.Status != model.StatusExpired {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Status must be either active or expired",
			"requestID": requestID,
		})
		return
	}

	file, ok := a.loadFileForUpdate(c, requestID, fileID)
	if !ok {
		return
	}

	err := a.DB.Model(model.File{}).
		Where("id = ?", file.ID).
		Update("status", data.Status).
		Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to update file status", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	file.Status = data.Status
	c.JSON(http.StatusOK, file)
}

// loadFileForUpdate fetches the mutation target and writes the error
// response itself when the record can't be loaded
func (a *API) loadFileForUpdate(c *gin.Context, requestID string, fileID any) (*model.File, bool) {
	var file model.File

	err := a.DB.Where("id = ?", fileID).First(&file).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "File not found",
				"requestID": requestID,
			})
			return nil, false
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch file from db", zap.Error(err), zap.String("requestID", requestID))
		return nil, false
	}

	return &file, true
}
