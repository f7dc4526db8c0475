package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hexhaven-project/hexhaven/internal/config"
	"github.com/hexhaven-project/hexhaven/internal/db"
)

// handlePing is the liveness probe.
func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleServerInfo returns the server's public identity and headline
// counters.
func (s *Server) handleServerInfo(c *gin.Context) {
	sd := s.cfg.GetServerData()
	c.JSON(http.StatusOK, gin.H{
		"name":        sd.Name,
		"location":    sd.Location,
		"version":     config.ServerVersionString,
		"game_port":   sd.GamePort,
		"uptime_sec":  int(time.Since(s.startedAt).Seconds()),
		"games":       s.table.Count(),
		"connections": s.reg.Count(),
	})
}

// handlePublicGames lists joinable game names, the same list the
// lobby sends on connect.
func (s *Server) handlePublicGames(c *gin.Context) {
	names := s.table.Names()
	c.JSON(http.StatusOK, gin.H{"games": names, "total": len(names)})
}

// registerRequest is the account creation payload.
type registerRequest struct {
	Nickname string `json:"nickname" binding:"required"`
	Password string `json:"password" binding:"required"`
	Email    string `json:"email"`
}

// handleRegister creates an account when open registration is on.
func (s *Server) handleRegister(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "accounts are not enabled"})
		return
	}
	if !s.cfg.GetServerData().OpenRegistration {
		c.JSON(http.StatusForbidden, gin.H{"error": "registration is closed"})
		return
	}

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nickname and password are required"})
		return
	}

	err := s.store.CreateAccount(req.Nickname, req.Password, req.Email)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{"nickname": req.Nickname})
	case errors.Is(err, db.ErrAccountExists):
		c.JSON(http.StatusConflict, gin.H{"error": "nickname already registered"})
	case errors.Is(err, db.ErrBadNickname), errors.Is(err, db.ErrPasswordLength):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "account creation failed"})
	}
}

// handlePlayerStats returns a player's recorded win/loss record.
func (s *Server) handlePlayerStats(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "accounts are not enabled"})
		return
	}

	nickname := c.Param("nickname")
	wins, losses, err := s.store.WinLoss(nickname)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"nickname": nickname,
		"wins":     wins,
		"losses":   losses,
	})
}
