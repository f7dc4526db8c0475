package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/hexhaven-project/hexhaven/internal/config"
)

// handleGetConfig returns the current configuration with secrets
// blanked.
func (s *Server) handleGetConfig(c *gin.Context) {
	app := s.cfg.GetApplicationData()
	app.Security.AdminToken = ""

	c.JSON(http.StatusOK, gin.H{
		"server_data":      s.cfg.GetServerData(),
		"application_data": app,
	})
}

// handleSetServerData replaces the server configuration after
// validation. Port changes take effect on restart.
func (s *Server) handleSetServerData(c *gin.Context) {
	var data config.ServerData
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed server data"})
		return
	}

	trial := &config.Config{ServerData: data, ApplicationData: s.cfg.GetApplicationData()}
	result := config.Validate(trial)
	if !result.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"errors": result.Errors})
		return
	}

	s.cfg.SetServerData(data)
	if err := s.cfg.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist configuration"})
		return
	}

	log.Info().Str("client_ip", c.ClientIP()).Msg("server configuration updated via API")
	c.JSON(http.StatusOK, gin.H{"warnings": result.Warnings})
}

// handleSetAppData replaces the application configuration after
// validation.
func (s *Server) handleSetAppData(c *gin.Context) {
	var data config.ApplicationData
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed application data"})
		return
	}

	trial := &config.Config{ServerData: s.cfg.GetServerData(), ApplicationData: data}
	result := config.Validate(trial)
	if !result.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"errors": result.Errors})
		return
	}

	s.cfg.SetApplicationData(data)
	if err := s.cfg.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist configuration"})
		return
	}

	log.Info().Str("client_ip", c.ClientIP()).Msg("application configuration updated via API")
	c.JSON(http.StatusOK, gin.H{"warnings": result.Warnings})
}
