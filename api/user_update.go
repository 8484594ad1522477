package api

import (
	"net/http"
	"safedrop/file-api/model"
	"safedrop/file-api/security"
	"safedrop/file-api/validators"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type userUpdateBody struct {
	Fullname string `json:"fullname"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *API) UserUpdate(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	authedID := c.MustGet("userID").(uint)

	targetID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid user ID",
			"requestID": requestID,
		})
		return
	}

	if uint(targetID) != authedID {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     "You can only update your own account",
			"requestID": requestID,
		})
		return
	}

	var data userUpdateBody
	if err := c.ShouldBindJSON(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Malformed or invalid JSON request body",
			"requestID": requestID,
		})
		return
	}

	updates := map[string]any{}

	if data.Fullname != "" {
		updates["fullname"] = data.Fullname
	}

	if data.Username != "" {
		updates["username"] = data.Username
	}

	// Hash-before-persist, no lifecycle hooks
	if data.Password != "" {
		if err := validators.PasswordValidator(data.Password); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":     err.Error(),
				"requestID": requestID,
			})
			return
		}

		hash, err := security.HashPassword(data.Password)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to hash password", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		updates["password"] = hash
	}

	if len(updates) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Nothing to update",
			"requestID": requestID,
		})
		return
	}

	err = a.DB.Model(model.User{}).
		Where("id = ?", authedID).
		Updates(updates).
		Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to update user", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	var user model.User
	if err := a.DB.First(&user, authedID).Error; err != nil && err != gorm.ErrRecordNotFound {
		zap.L().Error("Failed to reload updated user", zap.Error(err), zap.String("requestID", requestID))
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User updated successfully",
		"user":    user,
	})
}
