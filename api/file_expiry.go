package api

import (
	"net/http"
	"safedrop/file-api/model"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Default expiry when enabled without an explicit value: 7 days
const defaultExpiryHours = 168

// parseExpiry turns an expiry specification into an absolute timestamp.
// Values containing a 'T' are treated as RFC 3339 timestamps, anything
// else as a number of hours from now.
func parseExpiry(val string) time.Time {
	if strings.Contains(val, "T") {
		if t, err := time.Parse(time.RFC3339, val); err == nil {
			return t
		}
	}

	hours, err := strconv.Atoi(val)
	if err != nil || hours <= 0 {
		hours = defaultExpiryHours
	}

	return time.Now().Add(time.Duration(hours) * time.Hour)
}

type expiryBody struct {
	FileID    uint   `json:"fileId"`
	ExpiresAt string `json:"expiresAt"`
}

// FileUpdateExpiry sets or replaces a file's expiry timestamp
func (a *API) FileUpdateExpiry(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data expiryBody
	if err := c.ShouldBindJSON(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Malformed or invalid JSON request body",
			"requestID": requestID,
		})
		return
	}

	file, ok := a.loadFileForUpdate(c, requestID, data.FileID)
	if !ok {
		return
	}

	expiresAt := parseExpiry(data.ExpiresAt)

	err := a.DB.Model(model.File{}).
		Where("id = ?", file.ID).
		Updates(map[string]any{
			"has_expiry": true,
			"expires_at": expiresAt,
		}).
		Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to update file expiry", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	file.HasExpiry = true
	file.ExpiresAt = &expiresAt
	c.JSON(http.StatusOK, file)
}
