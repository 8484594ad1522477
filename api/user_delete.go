package api

import (
	"net/http"
	"safedrop/file-api/model"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserDelete removes a user account. Files the user uploaded stay
// around with a dangling owner reference, downloads of them simply stop
// counting towards anyone's stats.
func (a *API) UserDelete(c *gin.Context) {
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
			"error":     "You can only delete your own account",
			"requestID": requestID,
		})
		return
	}

	r := a.DB.Delete(model.User{}, authedID)
	if r.Error != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete user", zap.Error(r.Error), zap.String("requestID", requestID))
		return
	}

	if r.RowsAffected == 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "User not found",
			"requestID": requestID,
		})
		return
	}

	// Clear the weak owner reference on remaining files so later
	// downloads don't try to bump a deleted user's stats
	err = a.DB.Model(model.File{}).
		Where("created_by = ?", authedID).
		Update("created_by", 0).
		Error
	if err != nil {
		zap.L().Error("Failed to orphan remaining files", zap.Error(err), zap.String("requestID", requestID))
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User deleted successfully",
	})
}
