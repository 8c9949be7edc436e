package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	profiledomain "github.com/procurehub/procurehub/internal/profile/domain"
)

type updateProfileRequest struct {
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Department *string `json:"department"`
	Title      *string `json:"title"`
}

func (s *Server) handleGetProfile(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	profile, err := s.resolver.Resolve(c.Request.Context(), user.ExternalID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if profile == nil {
		AbortWithError(c, profiledomain.ErrProfileNotFound)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// handleUpdateProfile patches the profile and re-resolves past the cache so
// the response carries the stored values.
func (s *Server) handleUpdateProfile(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	if _, err := s.profileSvc.Update(ctx, user.ExternalID, profiledomain.UpdateProfileRequest{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Department: req.Department,
		Title:      req.Title,
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	profile, err := s.resolver.ResolveFresh(ctx, user.ExternalID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (s *Server) handleRefreshProfile(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	profile, err := s.resolver.ResolveFresh(c.Request.Context(), user.ExternalID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if profile == nil {
		AbortWithError(c, profiledomain.ErrProfileNotFound)
		return
	}

	c.JSON(http.StatusOK, profile)
}
