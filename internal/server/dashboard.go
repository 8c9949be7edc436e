package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleDashboardStats(c *gin.Context) {
	profile := currentProfile(c)

	stats, err := s.dashboardSvc.Stats(c.Request.Context(), profile.OrgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
