package oauth

import (
	"os"
	"strings"
)

const (
	envPrefixGitHub = "AUTH_GITHUB_"
	envPrefixGoogle = "AUTH_GOOGLE_"
	envPrefixOAuth  = "AUTH_OAUTH_"
)

// ProviderConfig describes one federated sign-in provider.
type ProviderConfig struct {
	Name         string
	Type         string
	Enabled      bool
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	APIURL       string
	Scopes       []string
	AllowSignUp  bool
}

type providerEnvSpec struct {
	providerType string
	prefix       string
	displayName  string
}

var providerSpecs = []providerEnvSpec{
	{providerType: "github", prefix: envPrefixGitHub, displayName: "GitHub"},
	{providerType: "google", prefix: envPrefixGoogle, displayName: "Google"},
	{providerType: "oauth", prefix: envPrefixOAuth, displayName: "OAuth"},
}

// ParseProvidersFromEnv reads federated provider configuration from environment variables.
func ParseProvidersFromEnv() map[string]ProviderConfig {
	env := os.Environ()
	configs := make(map[string]ProviderConfig, len(providerSpecs))
	for _, spec := range providerSpecs {
		if !hasEnvPrefix(env, spec.prefix) {
			continue
		}
		cfg := parseProviderConfig(spec.providerType, spec.prefix, spec.displayName)
		configs[cfg.Type] = cfg
	}
	return configs
}

func parseProviderConfig(providerType string, prefix string, defaultName string) ProviderConfig {
	name := strings.TrimSpace(os.Getenv(prefix + "NAME"))
	if name == "" {
		name = defaultName
	}
	return ProviderConfig{
		Name:         name,
		Type:         providerType,
		Enabled:      getenvBool(prefix+"ENABLED", false),
		ClientID:     strings.TrimSpace(os.Getenv(prefix + "CLIENT_ID")),
		ClientSecret: strings.TrimSpace(os.Getenv(prefix + "CLIENT_SECRET")),
		AuthURL:      strings.TrimSpace(os.Getenv(prefix + "AUTH_URL")),
		TokenURL:     strings.TrimSpace(os.Getenv(prefix + "TOKEN_URL")),
		APIURL:       strings.TrimSpace(os.Getenv(prefix + "API_URL")),
		Scopes:       parseScopes(os.Getenv(prefix + "SCOPES")),
		AllowSignUp:  getenvBool(prefix+"ALLOW_SIGNUP", false),
	}
}

func getenvBool(key string, def bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func parseScopes(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(parts) == 0 {
		return nil
	}
	return parts
}

func hasEnvPrefix(env []string, prefix string) bool {
	for _, entry := range env {
		if strings.HasPrefix(entry, prefix) {
			return true
		}
	}
	return false
}
