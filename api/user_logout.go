package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserLogout exists for clients that expect a logout endpoint. Sessions
// are stateless bearer tokens, the client simply discards its copy.
func (a *API) UserLogout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}
