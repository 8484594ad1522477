package api

import (
	"net/http"
	"safedrop/file-api/model"
	"safedrop/file-api/security"
	"safedrop/file-api/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type filePasswordBody struct {
	FileID   uint   `json:"fileId"`
	Password string `json:"password"`
}

// FileUpdatePassword sets or replaces a file's password, enabling
// protection in the same write so the flag and the hash can't diverge
func (a *API) FileUpdatePassword(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data filePasswordBody
	if err := c.ShouldBindJSON(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Malformed or invalid JSON request body",
			"requestID": requestID,
		})
		return
	}

	if err := validators.PasswordValidator(data.Password); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	file, ok := a.loadFileForUpdate(c, requestID, data.FileID)
	if !ok {
		return
	}

	hash, err := security.HashPassword(data.Password)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to hash file password", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	err = a.DB.Model(model.File{}).
		Where("id = ?", file.ID).
		Updates(map[string]any{
			"is_password_protected": true,
			"password":              hash,
		}).
		Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to update file password", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	file.IsPasswordProtected = true
	file.Password = hash
	c.JSON(http.StatusOK, file)
}
