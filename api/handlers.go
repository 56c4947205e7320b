package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"weatherbet/models"
	"weatherbet/odds"
	"weatherbet/repository"
	"weatherbet/service"
	"weatherbet/store"
)

type placeBetRequest struct {
	Category       models.Category `json:"category" binding:"required"`
	PredictedValue *float64        `json:"predicted_value"`
	Stake          int64           `json:"stake"`
	Mode           models.Mode     `json:"mode"`
}

func (s *Server) placeBet(c *gin.Context) {
	var req placeBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	bet, err := s.betting.PlaceBet(c.Request.Context(), models.PlaceBetInput{
		Owner:          s.owner(c),
		Category:       req.Category,
		PredictedValue: req.PredictedValue,
		Stake:          req.Stake,
		Mode:           req.Mode,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, bet)
}

func (s *Server) listBets(c *gin.Context) {
	filter := models.BetFilter{
		Owner:  s.owner(c),
		Status: models.Status(c.Query("status")),
	}
	if raw := c.Query("category"); raw != "" {
		category, err := models.ParseCategory(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Category = category
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		filter.Limit = limit
	}

	bets, err := s.betting.ListBets(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bets": bets})
}

func (s *Server) getBet(c *gin.Context) {
	bet, err := s.betting.GetBet(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if bet == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "bet not found"})
		return
	}

	c.JSON(http.StatusOK, bet)
}

// sweep runs an on-demand resolution pass, e.g. when a client regains focus
func (s *Server) sweep(c *gin.Context) {
	changed, err := s.resolution.SweepDueBets(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

func (s *Server) quota(c *gin.Context) {
	category, err := models.ParseCategory(c.Param("category"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	owner := s.owner(c)
	remaining, err := s.betting.RemainingQuota(c.Request.Context(), owner, category)
	if err != nil {
		writeError(c, err)
		return
	}
	allowed, err := s.betting.IsBettingAllowed(c.Request.Context(), owner, category)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"category":  category,
		"remaining": remaining,
		"allowed":   allowed,
	})
}

func (s *Server) quote(c *gin.Context) {
	category, err := models.ParseCategory(c.Param("category"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var value *float64
	if raw := c.Query("value"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "value must be a number"})
			return
		}
		value = &v
	}

	multiplier, err := s.odds.OddsFor(category, value)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  err.Error(),
			"reason": service.ReasonInvalidPrediction,
		})
		return
	}

	response := gin.H{
		"category": category,
		"odds":     multiplier,
	}
	if models.Mode(c.Query("mode")) == models.ModePro {
		if r := odds.ProRange(category, value, multiplier); r != nil {
			response["range"] = r
		}
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) wallet(c *gin.Context) {
	wallet, err := s.betting.GetBalance(c.Request.Context(), s.owner(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, wallet)
}

func (s *Server) stats(c *gin.Context) {
	stats, err := s.betting.GetStats(c.Request.Context(), s.owner(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// writeError maps service errors onto status codes
func writeError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  verr.Message,
			"reason": verr.Reason,
		})
	case errors.Is(err, store.ErrUnavailable):
		log.WithError(err).Warn("Store unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage is temporarily unavailable"})
	case errors.Is(err, repository.ErrBetNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "bet not found"})
	default:
		log.WithError(err).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
