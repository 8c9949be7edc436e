package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	vendordomain "github.com/procurehub/procurehub/internal/vendormgmt/domain"
)

func pathID(c *gin.Context, name string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param(name)))
	if err != nil {
		AbortWithError(c, newValidationError(name, "invalid_id", "malformed identifier"))
		return 0, false
	}
	return id, true
}

func (s *Server) handleListVendors(c *gin.Context) {
	profile := currentProfile(c)

	vendors, err := s.vendorSvc.List(c.Request.Context(), profile.OrgID, vendordomain.ListFilter{
		Status:   strings.TrimSpace(c.Query("status")),
		RiskTier: strings.TrimSpace(c.Query("risk_tier")),
		Category: strings.TrimSpace(c.Query("category")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"vendors": vendors})
}

func (s *Server) handleCreateVendor(c *gin.Context) {
	profile := currentProfile(c)

	var req vendordomain.CreateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	vendor, err := s.vendorSvc.Create(c.Request.Context(), profile.OrgID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, vendor)
}

func (s *Server) handleGetVendor(c *gin.Context) {
	profile := currentProfile(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	vendor, err := s.vendorSvc.GetByID(c.Request.Context(), profile.OrgID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, vendor)
}

func (s *Server) handleUpdateVendorScores(c *gin.Context) {
	profile := currentProfile(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req vendordomain.UpdateScoresRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	vendor, err := s.vendorSvc.UpdateScores(c.Request.Context(), profile.OrgID, id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, vendor)
}

func (s *Server) handleSetVendorStatus(c *gin.Context) {
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

	vendor, err := s.vendorSvc.SetStatus(c.Request.Context(), profile.OrgID, id, req.Status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, vendor)
}
