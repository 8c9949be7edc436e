package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleListOrganizations(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	items, err := s.organizationSvc.ListOrganizationsByUser(c.Request.Context(), user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"organizations": items})
}

func (s *Server) handleGetOrganization(c *gin.Context) {
	profile := currentProfile(c)
	if profile == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	org, err := s.organizationSvc.GetByID(c.Request.Context(), profile.OrgID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, org)
}
