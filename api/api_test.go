package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"safedrop/file-api/model"
	"safedrop/file-api/storage"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	viper.Set("jwt.secret", "test-secret")
	viper.Set("jwt.expiry_days", 7)
	viper.Set("upload.max_size", int64(50<<20))
	viper.Set("upload.max_files", 5)
	viper.Set("host.client_url", "http://localhost:5173")
	viper.Set("ratelimit.rps", 1000)
	viper.Set("ratelimit.burst", 1000)

	os.Exit(m.Run())
}

func newTestAPI(t *testing.T) *API {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn))
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(model.User{}, model.File{}))

	uploads := t.TempDir()
	viper.Set("storage.path", uploads)

	disk, err := storage.NewDisk(uploads)
	require.NoError(t, err)

	a, err := NewRouterWith(conn, disk)
	require.NoError(t, err)

	return a
}

func doJSON(t *testing.T, a *API, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func register(t *testing.T, a *API, fullname, email, username string) (token string, userID uint) {
	t.Helper()

	rec := doJSON(t, a, http.MethodPost, "/api/users/register", "", gin.H{
		"fullname": fullname,
		"email":    email,
		"username": username,
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decode(t, rec)
	token = body["token"].(string)
	userID = uint(body["user"].(map[string]any)["id"].(float64))
	return token, userID
}

func doUpload(t *testing.T, a *API, userID uint, fields map[string]string, filename, contentType string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)

	require.NoError(t, w.WriteField("userId", strconv.FormatUint(uint64(userID), 10)))
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	return rec
}

func fileByID(t *testing.T, a *API, id uint) model.File {
	t.Helper()

	var f model.File
	require.NoError(t, a.DB.First(&f, id).Error)
	return f
}

func uploadedID(t *testing.T, rec *httptest.ResponseRecorder) uint {
	t.Helper()

	body := decode(t, rec)
	ids := body["fileIds"].([]any)
	require.Len(t, ids, 1)
	return uint(ids[0].(float64))
}

func TestHeartbeat(t *testing.T) {
	a := newTestAPI(t)

	req := httptest.NewRequest(http.MethodHead, "/api/heartbeat", nil)
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterLoginFlow(t *testing.T) {
	a := newTestAPI(t)

	token, userID := register(t, a, "Jane Doe", "jane@example.com", "jane")
	assert.NotEmpty(t, token)
	assert.NotZero(t, userID)

	// Same email again
	rec := doJSON(t, a, http.MethodPost, "/api/users/register", "", gin.H{
		"fullname": "Jane Clone",
		"email":    "jane@example.com",
		"username": "jane2",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Same username again
	rec = doJSON(t, a, http.MethodPost, "/api/users/register", "", gin.H{
		"fullname": "Jane Clone",
		"email":    "jane2@example.com",
		"username": "jane",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Wrong password must be rejected, not self-healed
	rec = doJSON(t, a, http.MethodPost, "/api/users/login", "", gin.H{
		"email":    "jane@example.com",
		"password": "wrongpass",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, a, http.MethodPost, "/api/users/login", "", gin.H{
		"email":    "jane@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.NotEmpty(t, body["token"])
	assert.NotNil(t, body["user"].(map[string]any)["lastLogin"])

	// The original hash must still verify after the failed attempt
	rec = doJSON(t, a, http.MethodPost, "/api/users/login", "", gin.H{
		"email":    "jane@example.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	a := newTestAPI(t)

	cases := []gin.H{
		{"fullname": "", "email": "a@b.com", "username": "x", "password": "secret123"},
		{"fullname": "A", "email": "not-an-email", "username": "x", "password": "secret123"},
		{"fullname": "A", "email": "a@b.com", "username": "x", "password": "short"},
	}

	for _, c := range cases {
		rec := doJSON(t, a, http.MethodPost, "/api/users/register", "", c)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "case: %v", c)
	}
}

func TestUserFetch(t *testing.T) {
	a := newTestAPI(t)

	_, userID := register(t, a, "Jane Doe", "jane@example.com", "jane")

	rec := doJSON(t, a, http.MethodGet, fmt.Sprintf("/api/users/user/%d", userID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "jane", body["username"])
	assert.NotContains(t, rec.Body.String(), "secret123")
	assert.NotContains(t, body, "password")

	rec = doJSON(t, a, http.MethodGet, "/api/users/user/99999", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProtectedUploadAndDownload(t *testing.T) {
	a := newTestAPI(t)

	token, userID := register(t, a, "Jane Doe", "jane@example.com", "jane")
	_ = token

	content := bytes.Repeat([]byte("safedrop"), 256<<10) // 2 MB
	rec := doUpload(t, a, userID, map[string]string{
		"isPasswordProtected": "true",
		"password":            "secret123",
		"hasExpiry":           "false",
	}, "report.pdf", "application/pdf", content)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	fileID := uploadedID(t, rec)
	file := fileByID(t, a, fileID)

	assert.Equal(t, "report.pdf", file.Name)
	assert.Equal(t, "application/pdf", file.Type)
	assert.Equal(t, int64(len(content)), file.Size)
	assert.True(t, file.IsPasswordProtected)
	assert.NotEmpty(t, file.Password)
	assert.NotEqual(t, "secret123", file.Password)
	assert.Equal(t, model.StatusActive, file.Status)
	assert.NotEmpty(t, file.ShortCode)
	assert.Equal(t, "http://localhost:5173/f/"+file.ShortCode, file.ShortURL)

	// Share resolution exposes protection flag but never hash or path
	rec = doJSON(t, a, http.MethodGet, "/api/files/shared/"+file.ShortCode, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	shared := decode(t, rec)
	assert.Equal(t, true, shared["isPasswordProtected"])
	assert.Equal(t, "report.pdf", shared["name"])
	assert.NotContains(t, rec.Body.String(), file.Password)
	assert.NotContains(t, rec.Body.String(), file.Path)

	// Unknown code
	rec = doJSON(t, a, http.MethodGet, "/api/files/shared/doesnotexist", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Password verification
	rec = doJSON(t, a, http.MethodPost, "/api/files/verify-password", "", gin.H{
		"fileId":   fileID,
		"password": "wrongpass",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, a, http.MethodPost, "/api/files/verify-password", "", gin.H{
		"fileId":   fileID,
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	verified := decode(t, rec)
	assert.Equal(t, file.Path, verified["path"])

	// Download gate: no password, wrong password, correct password
	dlPath := fmt.Sprintf("/api/files/download/%d", fileID)

	rec = doJSON(t, a, http.MethodGet, dlPath, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, a, http.MethodGet, dlPath+"?password=wrongpass", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, a, http.MethodGet, dlPath+"?password=secret123", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "report.pdf")
	assert.Equal(t, content, rec.Body.Bytes())

	// Password via POST body works the same
	rec = doJSON(t, a, http.MethodPost, dlPath, "", gin.H{"password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)

	// Two completed transfers, two counted downloads
	file = fileByID(t, a, fileID)
	assert.Equal(t, int64(2), file.DownloadedContent)

	var owner model.User
	require.NoError(t, a.DB.First(&owner, userID).Error)
	assert.Equal(t, int64(2), owner.TotalDownloads)
	assert.Equal(t, int64(1), owner.TotalUploads)
	assert.Equal(t, int64(1), owner.DocumentCount)
	assert.Equal(t, int64(0), owner.ImageCount)

	// Download count endpoint agrees
	rec = doJSON(t, a, http.MethodGet, fmt.Sprintf("/api/files/%d/downloads", fileID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode(t, rec)["count"])
}

func TestUploadPastExpiry(t *testing.T) {
	a := newTestAPI(t)

	_, userID := register(t, a, "Jane Doe", "jane@example.com", "jane")

	past := time.Now().Add(-time.Second).Format(time.RFC3339)
	rec := doUpload(t, a, userID, map[string]string{
		"isPasswordProtected": "false",
		"hasExpiry":           "true",
		"expiresAt":           past,
	}, "notes.txt", "text/plain", []byte("hello"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	fileID := uploadedID(t, rec)
	file := fileByID(t, a, fileID)
	require.True(t, file.HasExpiry)

	// The record exists but every later download is Gone
	rec = doJSON(t, a, http.MethodGet, fmt.Sprintf("/api/files/download/%d", fileID), "", nil)
	assert.Equal(t, http.StatusGone, rec.Code)

	// ... and the lazy transition got persisted
	file = fileByID(t, a, fileID)
	assert.Equal(t, model.StatusExpired, file.Status)
	assert.Equal(t, int64(0), file.DownloadedContent)

	// The share resolver reports Gone too, regardless of stored status
	rec = doJSON(t, a, http.MethodGet, "/api/files/shared/"+file.ShortCode, "", nil)
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestDownloadMissingBlob(t *testing.T) {
	a := newTestAPI(t)

	_, userID := register(t, a, "Jane Doe", "jane@example.com", "jane")

	rec := doUpload(t, a, userID, map[string]string{
		"isPasswordProtected": "false",
		"hasExpiry":           "false",
	}, "notes.txt", "text/plain", []byte("hello"))
	require.Equal(t, http.StatusCreated, rec.Code)

	fileID := uploadedID(t, rec)
	file := fileByID(t, a, fileID)

	// Pull the bytes out from under the record
	require.NoError(t, os.Remove(filepath.Join(viper.GetString("storage.path"), filepath.Base(file.Path))))

	rec = doJSON(t, a, http.MethodGet, fmt.Sprintf("/api/files/download/%d", fileID), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "File not found on server")

	file = fileByID(t, a, fileID)
	assert.Equal(t, int64(0), file.DownloadedContent)
}

func TestUploadValidation(t *testing.T) {
	a := newTestAPI(t)

	_, userID := register(t, a, "Jane Doe", "jane@example.com", "jane")

	// No files in the form
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("userId", strconv.FormatUint(uint64(userID), 10)))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown uploader
	rec = doUpload(t, a, 99999, nil, "notes.txt", "text/plain", []byte("hi"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Unsupported extension
	rec = doUpload(t, a, userID, nil, "evil.exe", "application/octet-stream", []byte("MZ"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Protection requested without a usable password
	rec = doUpload(t, a, userID, map[string]string{
		"isPasswordProtected": "true",
	}, "notes.txt", "text/plain", []byte("hi"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFileDelete(t *testing.T) {
	a := newTestAPI(t)

	ownerToken, ownerID := register(t, a, "Jane Doe", "jane@example.com", "jane")
	otherToken, _ := register(t, a, "John Doe", "john@example.com", "john")

	rec := doUpload(t, a, ownerID, map[string]string{
		"isPasswordProtected": "false",
		"hasExpiry":           "false",
	}, "notes.txt", "text/plain", []byte("hello"))
	require.Equal(t, http.StatusCreated, rec.Code)
	fileID := uploadedID(t, rec)
	file := fileByID(t, a, fileID)

	path := fmt.Sprintf("/api/files/%d", fileID)

	// No token
	rec = doJSON(t, a, http.MethodDelete, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Someone else's token
	rec = doJSON(t, a, http.MethodDelete, path, otherToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Owner
	rec = doJSON(t, a, http.MethodDelete, path, ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	err := a.DB.First(&model.File{}, fileID).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, statErr := os.Stat(filepath.Join(viper.GetString("storage.path"), filepath.Base(file.Path)))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFileMutators(t *testing.T) {
	a := newTestAPI(t)

	token, userID := register(t, a, "Jane Doe", "jane@example.com", "jane")

	rec := doUpload(t, a, userID, map[string]string{
		"isPasswordProtected": "false",
		"hasExpiry":           "false",
	}, "notes.txt", "text/plain", []byte("hello"))
	require.Equal(t, http.StatusCreated, rec.Code)
	fileID := uploadedID(t, rec)

	// Mutations require auth
	rec = doJSON(t, a, http.MethodPut, "/api/files/password", "", gin.H{"fileId": fileID, "password": "secret123"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Enable protection after the fact
	rec = doJSON(t, a, http.MethodPut, "/api/files/password", token, gin.H{"fileId": fileID, "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)

	file := fileByID(t, a, fileID)
	assert.True(t, file.IsPasswordProtected)
	assert.NotEmpty(t, file.Password)

	rec = doJSON(t, a, http.MethodGet, fmt.Sprintf("/api/files/download/%d", fileID), "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Set a relative expiry of one hour
	rec = doJSON(t, a, http.MethodPut, "/api/files/expiry", token, gin.H{"fileId": fileID, "expiresAt": "1"})
	require.Equal(t, http.StatusOK, rec.Code)

	file = fileByID(t, a, fileID)
	require.True(t, file.HasExpiry)
	require.NotNil(t, file.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *file.ExpiresAt, time.Minute)

	// Administrative status override
	rec = doJSON(t, a, http.MethodPut, fmt.Sprintf("/api/files/status/%d", fileID), token, gin.H{"status": "expired"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, a, http.MethodGet, fmt.Sprintf("/api/files/download/%d", fileID), "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, a, http.MethodPut, fmt.Sprintf("/api/files/status/%d", fileID), token, gin.H{"status": "bogus"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFileListAndSearch(t *testing.T) {
	a := newTestAPI(t)

	token, userID := register(t, a, "Jane Doe", "jane@example.com", "jane")
	_, otherID := register(t, a, "John Doe", "john@example.com", "john")

	for _, name := range []string{"alpha.txt", "beta.txt", "gamma.pdf"} {
		rec := doUpload(t, a, userID, map[string]string{
			"isPasswordProtected": "false",
			"hasExpiry":           "false",
		}, name, "text/plain", []byte("x"))
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec := doUpload(t, a, otherID, map[string]string{
		"isPasswordProtected": "false",
		"hasExpiry":           "false",
	}, "delta.txt", "text/plain", []byte("x"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, a, http.MethodGet, "/api/files/user-files", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var files []model.File
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
	assert.Len(t, files, 3)

	rec = doJSON(t, a, http.MethodGet, "/api/files/search?query=ALPHA", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
	require.Len(t, files, 1)
	assert.Equal(t, "alpha.txt", files[0].Name)

	rec = doJSON(t, a, http.MethodGet, "/api/files/search?query=delta", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
	assert.Empty(t, files)
}

func TestUserDeleteOrphansFiles(t *testing.T) {
	a := newTestAPI(t)

	token, userID := register(t, a, "Jane Doe", "jane@example.com", "jane")

	rec := doUpload(t, a, userID, map[string]string{
		"isPasswordProtected": "false",
		"hasExpiry":           "false",
	}, "notes.txt", "text/plain", []byte("hello"))
	require.Equal(t, http.StatusCreated, rec.Code)
	fileID := uploadedID(t, rec)

	rec = doJSON(t, a, http.MethodDelete, fmt.Sprintf("/api/users/user/%d", userID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// The file survives with a cleared owner reference
	file := fileByID(t, a, fileID)
	assert.Equal(t, uint(0), file.CreatedBy)

	// Downloads still work, they just don't count towards anyone
	rec = doJSON(t, a, http.MethodGet, fmt.Sprintf("/api/files/download/%d", fileID), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	file = fileByID(t, a, fileID)
	assert.Equal(t, int64(1), file.DownloadedContent)

	// The old token is rejected now
	rec = doJSON(t, a, http.MethodGet, "/api/files/user-files", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFileQR(t *testing.T) {
	a := newTestAPI(t)

	_, userID := register(t, a, "Jane Doe", "jane@example.com", "jane")

	rec := doUpload(t, a, userID, map[string]string{
		"isPasswordProtected": "false",
		"hasExpiry":           "false",
	}, "notes.txt", "text/plain", []byte("hello"))
	require.Equal(t, http.StatusCreated, rec.Code)
	fileID := uploadedID(t, rec)

	rec = doJSON(t, a, http.MethodGet, fmt.Sprintf("/api/files/%d/qr", fileID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "\x89PNG", rec.Body.String()[:4])

	rec = doJSON(t, a, http.MethodGet, "/api/files/99999/qr", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
