package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Heartbeat reports that the server is alive
func (a *API) Heartbeat(c *gin.Context) {
	c.Status(http.StatusOK)
}

// Validate answers 200 when the JWT middleware let the request through
func (a *API) Validate(c *gin.Context) {
	c.Status(http.StatusOK)
}
