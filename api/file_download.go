package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"safedrop/file-api/model"
	"safedrop/file-api/security"
	"safedrop/file-api/storage"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type downloadBody struct {
	Password string `json:"password"`
}

// downloadPassword pulls the file password from the query string or,
// for POST requests, the JSON body
func downloadPassword(c *gin.Context) string {
	if p := c.Query("password"); p != "" {
		return p
	}

	if c.Request.Method != http.MethodPost {
		return ""
	}

	var data downloadBody
	if err := c.ShouldBindJSON(&data); err != nil {
		return ""
	}

	return data.Password
}

// FileDownload is the download gate: it authorizes the request against
// the record's status, expiry and password, then streams the bytes.
// Counters only move after a fully completed transfer.
func (a *API) FileDownload(c *gin.Context) {
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

	if file.Status != model.StatusActive {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     "This file is not available for download",
			"requestID": requestID,
		})
		return
	}

	if file.Expired() {
		// Lazy transition, the only place time is allowed to write status
		err := a.DB.Model(model.File{}).
			Where("id = ?", file.ID).
			Update("status", model.StatusExpired).
			Error
		if err != nil {
			zap.L().Error("Failed to persist expired status", zap.Error(err), zap.String("requestID", requestID))
		}

		c.AbortWithStatusJSON(http.StatusGone, gin.H{
			"error":     "This file has expired",
			"requestID": requestID,
		})
		return
	}

	if file.IsPasswordProtected {
		password := downloadPassword(c)
		if password == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Password required",
				"requestID": requestID,
			})
			return
		}

		if !security.VerifyPassword(password, file.Password) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":     "Incorrect password",
				"requestID": requestID,
			})
			return
		}
	}

	src, stat, err := a.Disk.Open(file.Path)
	if err != nil {
		if errors.Is(err, storage.ErrNotOnDisk) {
			// Valid record, missing blob. Integrity fault, not a logical 404.
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "File not found on server",
				"requestID": requestID,
			})

			zap.L().Warn("File record points at a missing blob", zap.Uint("fileID", file.ID), zap.String("path", file.Path))
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to open stored file", zap.Error(err), zap.String("requestID", requestID))
		return
	}
	defer src.Close()

	contentType := file.Type
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.DispositionName()))
	c.Header("Content-Length", strconv.FormatInt(stat.Size(), 10))
	c.Status(http.StatusOK)

	written, err := io.Copy(c.Writer, src)
	if err != nil || written != stat.Size() {
		// Client went away mid-stream, a partial transfer isn't a download
		zap.L().Debug("Transfer aborted before completion",
			zap.Uint("fileID", file.ID),
			zap.Int64("written", written),
			zap.String("requestID", requestID))
		return
	}

	err = a.DB.Model(model.File{}).
		Where("id = ?", file.ID).
		Update("downloaded_content", gorm.Expr("downloaded_content + 1")).
		Error
	if err != nil {
		zap.L().Error("Failed to increment download count", zap.Error(err), zap.String("requestID", requestID))
	}

	if file.CreatedBy != 0 {
		err = a.DB.Model(model.User{}).
			Where("id = ?", file.CreatedBy).
			Update("total_downloads", gorm.Expr("total_downloads + 1")).
			Error
		if err != nil {
			zap.L().Error("Failed to increment owner download stats", zap.Error(err), zap.String("requestID", requestID))
		}
	}
}
