package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/procurehub/procurehub/internal/bootstrap"
	profiledomain "github.com/procurehub/procurehub/internal/profile/domain"
	"go.uber.org/zap"
)

type signUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	CompanyName string `json:"company_name"`
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type sessionView struct {
	AuthID      string    `json:"auth_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type sessionResponse struct {
	IsAuthenticated bool                   `json:"is_authenticated"`
	Session         *sessionView           `json:"session,omitempty"`
	Profile         *profiledomain.Profile `json:"profile,omitempty"`
	ProfileError    string                 `json:"profile_error,omitempty"`
}

func sessionViewOf(sess *bootstrap.Session) *sessionView {
	if sess == nil {
		return nil
	}
	return &sessionView{
		AuthID:      sess.AuthID,
		Email:       sess.Email,
		DisplayName: sess.DisplayName,
		ExpiresAt:   sess.ExpiresAt,
	}
}

func (s *Server) handleSignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		AbortWithError(c, newValidationError("email", "required", "email is required"))
		return
	}
	if strings.TrimSpace(req.Password) == "" {
		AbortWithError(c, newValidationError("password", "required", "password is required"))
		return
	}

	sess, err := s.bootstrapSvc.SignUp(c.Request.Context(), bootstrap.SignUpRequest{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		CompanyName: req.CompanyName,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, sess.Token, sess.ExpiresAt)
	c.JSON(http.StatusCreated, sessionResponse{
		IsAuthenticated: true,
		Session:         sessionViewOf(sess),
	})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Password) == "" {
		AbortWithError(c, newValidationError("credentials", "required", "email and password are required"))
		return
	}

	if !s.allowLogin(c, req.Email) {
		return
	}

	sess, err := s.bootstrapSvc.SignIn(c.Request.Context(), req.Email, req.Password, req.RememberMe)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, sess.Token, sess.ExpiresAt)
	c.JSON(http.StatusOK, sessionResponse{
		IsAuthenticated: true,
		Session:         sessionViewOf(sess),
	})
}

// allowLogin checks both login buckets and aborts the request when either
// denies. Limiter outages fail open.
func (s *Server) allowLogin(c *gin.Context, email string) bool {
	if !s.loginLimiter.Enabled() {
		return true
	}

	ctx := c.Request.Context()
	byEmail, err := s.loginLimiter.AllowEmail(ctx, email)
	if err != nil {
		s.log.Warn("login limiter unavailable", zap.Error(err))
		return true
	}
	byAddr, err := s.loginLimiter.AllowAddr(ctx, c.ClientIP())
	if err != nil {
		s.log.Warn("login limiter unavailable", zap.Error(err))
		return true
	}

	if byEmail.Allowed && byAddr.Allowed {
		return true
	}

	retryAfter := byEmail.RetryAfter
	if byAddr.RetryAfter > retryAfter {
		retryAfter = byAddr.RetryAfter
	}
	if retryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds()+0.5)))
	}
	AbortWithError(c, ErrTooManyRequests)
	return false
}

func (s *Server) handleLogout(c *gin.Context) {
	token, ok := s.sessions.ReadToken(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.identityAdapter.SignOut(c.Request.Context(), token); err != nil {
		s.sessions.Clear(c)
		AbortWithError(c, err)
		return
	}

	s.sessions.Clear(c)
	c.Status(http.StatusNoContent)
}

// handleSession reports the caller's auth state. An absent or dead cookie is
// an anonymous visitor, not an error. Profile resolution failures surface in
// profile_error while the session itself stays valid.
func (s *Server) handleSession(c *gin.Context) {
	signedOut := func() {
		c.JSON(http.StatusOK, sessionResponse{IsAuthenticated: false})
	}

	token, ok := s.sessions.ReadToken(c)
	if !ok {
		signedOut()
		return
	}

	ctx := c.Request.Context()
	sess, err := s.identitySvc.Authenticate(ctx, token)
	if err != nil {
		s.sessions.Clear(c)
		signedOut()
		return
	}

	user, err := s.identitySvc.UserByID(ctx, sess.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := sessionResponse{
		IsAuthenticated: true,
		Session: &sessionView{
			AuthID:      user.ExternalID,
			Email:       user.Email,
			DisplayName: user.DisplayName,
			ExpiresAt:   sess.ExpiresAt,
		},
	}

	profile, err := s.resolver.Resolve(ctx, user.ExternalID)
	if err != nil {
		resp.ProfileError = err.Error()
	} else {
		resp.Profile = profile
	}

	c.JSON(http.StatusOK, resp)
}
