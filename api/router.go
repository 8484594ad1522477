// Package api contains all endpoints available
package api

import (
	"fmt"
	"safedrop/file-api/db"
	"safedrop/file-api/middleware"
	"safedrop/file-api/storage"
	"time"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	ginzap "github.com/gin-contrib/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

var store = persist.NewMemoryStore(time.Minute)

type API struct {
	DB     *gorm.DB
	Router *gin.Engine
	Disk   *storage.Disk
}

func NewRouter() (*API, error) {
	conn, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite database, %w", err)
	}

	disk, err := storage.NewDisk(viper.GetString("storage.path"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage backend, %w", err)
	}

	makeLogger()

	return NewRouterWith(conn, disk)
}

// NewRouterWith wires the route table onto externally provided
// dependencies. Tests use it with an in-memory database and a temp dir.
func NewRouterWith(conn *gorm.DB, disk *storage.Disk) (*API, error) {
	a := &API{
		DB:   conn,
		Disk: disk,
	}

	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     []string{viper.GetString("host.client_url")},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
			RequestsPerSecond: viper.GetInt("ratelimit.rps"),
			Burst:             viper.GetInt("ratelimit.burst"),
		}),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v, ok := c.Get("userID"); ok {
					fields = append(fields, zap.Any("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true
	a.Router.MaxMultipartMemory = 5 << 20

	jwt := middleware.NewJWTMiddleware(conn)
	maxUploadSize := viper.GetInt64("upload.max_size")
	maxFiles := viper.GetInt64("upload.max_files")

	main := router.Group("/api")
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		main.HEAD("/heartbeat", a.Heartbeat)

		// HEAD /api/validate		-> Validates a JWT token
		main.HEAD("/validate", jwt, a.Validate)
	}

	users := main.Group("/users", middleware.BodySizeLimiter(1<<20))
	{
		// POST /api/users/register	-> Registers a new user and returns a token
		users.POST("/register", a.UserRegister)

		// POST /api/users/login 	-> Logs in a user and returns a token
		users.POST("/login", a.UserLogin)

		// GET /api/users/logout	-> Ends a session (tokens are stateless, this is a no-op)
		users.GET("/logout", a.UserLogout)

		// GET /api/users/user/:userId	-> Returns a user's public profile and stats
		users.GET("/user/:userId", cacheFor(30), a.UserFetch)

		// PUT /api/users/user/:userId	-> Updates a user's profile
		users.PUT("/user/:userId", jwt, a.UserUpdate)

		// DELETE /api/users/user/:userId -> Deletes a user account
		users.DELETE("/user/:userId", jwt, a.UserDelete)
	}

	files := main.Group("/files")
	{
		// POST /api/files/upload	-> Uploads a batch of files with protection/expiry options
		files.POST("/upload", middleware.BodySizeLimiter(maxUploadSize*maxFiles), a.FileUpload)

		// GET|POST /api/files/download/:fileId -> Streams file bytes after the gate checks pass
		files.GET("/download/:fileId", a.FileDownload)
		files.POST("/download/:fileId", a.FileDownload)

		// GET /api/files/shared/:code	-> Resolves a short code to public metadata
		files.GET("/shared/:code", a.FileShared)

		// POST /api/files/verify-password -> Verifies a file password and returns full metadata
		files.POST("/verify-password", a.FileVerifyPassword)

		// GET /api/files/user-files	-> Lists the calling user's files
		files.GET("/user-files", jwt, a.FileList)

		// GET /api/files/search	-> Searches the calling user's files by name
		files.GET("/search", jwt, a.FileSearch)

		// PUT /api/files/status/:fileId -> Administrative status override
		files.PUT("/status/:fileId", jwt, a.FileUpdateStatus)

		// PUT /api/files/expiry	-> Sets or replaces a file's expiry
		files.PUT("/expiry", jwt, a.FileUpdateExpiry)

		// PUT /api/files/password	-> Sets or replaces a file's password
		files.PUT("/password", jwt, a.FileUpdatePassword)

		// POST /api/files/email	-> Mails a share link
		files.POST("/email", jwt, a.FileEmail)

		// GET /api/files/:fileId/qr	-> PNG QR code encoding the share URL
		files.GET("/:fileId/qr", a.FileQR)

		// GET /api/files/:fileId/downloads -> Download counter for a file
		files.GET("/:fileId/downloads", a.FileDownloadCount)

		// DELETE /api/files/:fileId	-> Deletes a file owned by a user
		files.DELETE("/:fileId", jwt, a.FileDelete)
	}

	return a, nil
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}

func cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(store, time.Second*time.Duration(sec))
}
