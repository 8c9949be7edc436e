package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	identitydomain "github.com/procurehub/procurehub/internal/identity/domain"
	"github.com/procurehub/procurehub/internal/identity/oauth"
)

const (
	oauthStateCookie    = "_oauth_state"
	oauthVerifierCookie = "_oauth_verifier"
	oauthCookieMaxAge   = 600
)

func (s *Server) oauthCallbackURI(provider string) string {
	return s.cfg.PublicBaseURL + "/v1/auth/oauth/" + provider + "/callback"
}

// handleOAuthRedirect starts the authorization-code flow. State and the PKCE
// verifier travel in short-lived cookies so the callback can validate them
// without server-side storage.
func (s *Server) handleOAuthRedirect(c *gin.Context) {
	provider := strings.ToLower(strings.TrimSpace(c.Param("provider")))

	result, err := s.oauthSvc.RedirectURL(c.Request.Context(), provider, oauth.RedirectRequest{
		RedirectURI: s.oauthCallbackURI(provider),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, result.State, oauthCookieMaxAge, "/", "", s.cfg.AuthCookieSecure, true)
	c.SetCookie(oauthVerifierCookie, result.CodeVerifier, oauthCookieMaxAge, "/", "", s.cfg.AuthCookieSecure, true)

	c.Redirect(http.StatusFound, result.URL)
}

func (s *Server) handleOAuthCallback(c *gin.Context) {
	provider := strings.ToLower(strings.TrimSpace(c.Param("provider")))
	code := strings.TrimSpace(c.Query("code"))
	state := strings.TrimSpace(c.Query("state"))

	expectedState, stateErr := c.Cookie(oauthStateCookie)
	verifier, verifierErr := c.Cookie(oauthVerifierCookie)
	clearOAuthCookies(c, s.cfg.AuthCookieSecure)

	if code == "" || stateErr != nil || verifierErr != nil ||
		subtle.ConstantTimeCompare([]byte(state), []byte(expectedState)) != 1 {
		AbortWithError(c, newValidationError("state", "invalid_oauth_state", "oauth state mismatch"))
		return
	}

	ctx := c.Request.Context()
	result, err := s.oauthSvc.Login(ctx, provider, oauth.LoginRequest{
		Code:         code,
		RedirectURI:  s.oauthCallbackURI(provider),
		CodeVerifier: verifier,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	login, err := s.identitySvc.FederatedLogin(ctx, identitydomain.FederatedLoginRequest{
		Provider:    result.ProviderName,
		Subject:     result.Identity.ExternalID,
		Email:       result.Identity.Email,
		DisplayName: result.Identity.DisplayName,
		AllowSignUp: result.AllowSignUp,
		UserAgent:   c.Request.UserAgent(),
		IPAddress:   c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// Route the fresh session through the adapter so bootstrap subscribers
	// observe the sign-in.
	sess, err := s.identityAdapter.AdoptSession(ctx, login.RawToken)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, login.RawToken, login.ExpiresAt)
	c.JSON(http.StatusOK, sessionResponse{
		IsAuthenticated: true,
		Session:         sessionViewOf(sess),
	})
}

func clearOAuthCookies(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, "", -1, "/", "", secure, true)
	c.SetCookie(oauthVerifierCookie, "", -1, "/", "", secure, true)
}
