package api

import (
	"net/http"
	"safedrop/file-api/model"
	"safedrop/file-api/security"
	"safedrop/file-api/storage"
	"safedrop/file-api/validators"
	"time"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shortCodeCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// makeShortCode generates a share code that isn't taken yet. Collisions
// at this length are nearly impossible but rechecking is cheap.
func (a *API) makeShortCode() (string, error) {
	for {
		code, err := gonanoid.Generate(shortCodeCharset, 10)
		if err != nil {
			return "", err
		}

		var taken bool
		err = a.DB.Model(model.File{}).
			Select("count(*) > 0").
			Where("short_code = ?", code).
			Find(&taken).
			Error
		if err != nil {
			return "", err
		}

		if !taken {
			return code, nil
		}
	}
}

// typeCounterColumn maps a MIME type to the user stat column it should
// bump, or "" when the type counts towards none of them
func typeCounterColumn(mimeType string) string {
	switch {
	case len(mimeType) > 6 && mimeType[:6] == "image/":
		return "image_count"
	case len(mimeType) > 6 && mimeType[:6] == "video/":
		return "video_count"
	case len(mimeType) > 12 && mimeType[:12] == "application/":
		return "document_count"
	default:
		return ""
	}
}

// FileUpload accepts a multipart batch of files plus protection/expiry
// options and creates one record per file. Files committed before a
// mid-batch failure are not rolled back.
func (a *API) FileUpload(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	form, err := c.MultipartForm()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid multipart form",
			"requestID": requestID,
		})

		zap.L().Debug("Failed to parse multipart form", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No files uploaded",
			"requestID": requestID,
		})
		return
	}

	if len(files) > viper.GetInt("upload.max_files") {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Too many files in one batch",
			"requestID": requestID,
		})
		return
	}

	var user model.User
	err = a.DB.Where("id = ?", c.PostForm("userId")).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "User not found",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to look up uploading user", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	isProtected := c.PostForm("isPasswordProtected") == "true"
	hasExpiry := c.PostForm("hasExpiry") == "true"

	var passwordHash string
	if isProtected {
		password := c.PostForm("password")
		if err := validators.PasswordValidator(password); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":     err.Error(),
				"requestID": requestID,
			})
			return
		}

		passwordHash, err = security.HashPassword(password)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to hash file password", zap.Error(err), zap.String("requestID", requestID))
			return
		}
	}

	var expiresAt *time.Time
	if hasExpiry {
		t := parseExpiry(c.PostForm("expiresAt"))
		expiresAt = &t
	}

	clientURL := viper.GetString("host.client_url")
	fileIDs := make([]uint, 0, len(files))

	for _, fh := range files {
		if code, err := validators.FileValidator(fh); err != nil {
			c.AbortWithStatusJSON(code, gin.H{
				"error":     err.Error(),
				"requestID": requestID,
			})
			return
		}

		storedName, err := storage.StorageName(fh.Filename)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to generate storage name", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		src, err := fh.Open()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to open uploaded file", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		path, err := a.Disk.Save(storedName, src)
		src.Close()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to write file to storage", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		shortCode, err := a.makeShortCode()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to generate short code", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		mimeType := validators.DetectType(fh)

		file := model.File{
			Path:                path,
			Name:                fh.Filename,
			Type:                mimeType,
			Size:                fh.Size,
			IsPasswordProtected: isProtected,
			Password:            passwordHash,
			HasExpiry:           hasExpiry,
			ExpiresAt:           expiresAt,
			Status:              model.StatusActive,
			ShortCode:           shortCode,
			ShortURL:            clientURL + "/f/" + shortCode,
			CreatedBy:           user.ID,
		}

		if err := a.DB.Create(&file).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to save file record to db", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		updates := map[string]any{
			"total_uploads": gorm.Expr("total_uploads + 1"),
		}
		if col := typeCounterColumn(mimeType); col != "" {
			updates[col] = gorm.Expr(col + " + 1")
		}

		err = a.DB.Model(model.User{}).
			Where("id = ?", user.ID).
			Updates(updates).
			Error
		if err != nil {
			zap.L().Error("Failed to increment upload stats", zap.Error(err), zap.String("requestID", requestID))
		}

		fileIDs = append(fileIDs, file.ID)
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Files uploaded successfully",
		"fileIds": fileIDs,
	})
}
