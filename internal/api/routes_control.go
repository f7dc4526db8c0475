package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// handleDeleteGame force-deletes a game. The deletion runs on the
// game's worker, so in-flight actions drain first.
func (s *Server) handleDeleteGame(c *gin.Context) {
	name := c.Param("name")
	if !s.disp.DropGame(c.Request.Context(), name) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such game", "name": name})
		return
	}
	log.Info().Str("game", name).Str("client_ip", c.ClientIP()).Msg("game deleted via API")
	c.JSON(http.StatusAccepted, gin.H{"deleted": name})
}

// announceRequest is the admin announcement payload.
type announceRequest struct {
	Text string `json:"text" binding:"required"`
}

// handleAnnounce sends a server text line to a game's members.
func (s *Server) handleAnnounce(c *gin.Context) {
	name := c.Param("name")

	var req announceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	if !s.disp.Announce(name, req.Text) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such game", "name": name})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"game": name})
}
