package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	contractdomain "github.com/procurehub/procurehub/internal/contract/domain"
	"github.com/procurehub/procurehub/internal/dashboard"
)

func (s *Server) handleListContracts(c *gin.Context) {
	profile := currentProfile(c)

	contracts, err := s.contractSvc.List(c.Request.Context(), profile.OrgID, strings.TrimSpace(c.Query("status")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"contracts": contracts})
}

func (s *Server) handleCreateContract(c *gin.Context) {
	profile := currentProfile(c)

	var req contractdomain.CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	contract, err := s.contractSvc.Create(c.Request.Context(), profile.OrgID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, contract)
}

// handleExpiringContracts lists active contracts ending within the window,
// defaulting to the dashboard's 30-day horizon.
func (s *Server) handleExpiringContracts(c *gin.Context) {
	profile := currentProfile(c)

	window := dashboard.ExpiryWindow
	if raw := strings.TrimSpace(c.Query("window")); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			AbortWithError(c, newValidationError("window", "invalid_window", "malformed duration"))
			return
		}
		window = parsed
	}

	contracts, err := s.contractSvc.ExpiringWithin(c.Request.Context(), profile.OrgID, window)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"contracts": contracts})
}

func (s *Server) handleGetContract(c *gin.Context) {
	profile := currentProfile(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	contract, err := s.contractSvc.GetByID(c.Request.Context(), profile.OrgID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, contract)
}

func (s *Server) handleSetContractStatus(c *gin.Context) {
	profile := currentProfile(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	contract, err := s.contractSvc.SetStatus(c.Request.Context(), profile.OrgID, id, req.Status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, contract)
}
