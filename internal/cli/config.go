package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/ralt/relserve/internal/backend"
	"github.com/ralt/relserve/internal/backend/github"
	"github.com/ralt/relserve/internal/backend/index"
	"github.com/ralt/relserve/internal/backend/local"
	"github.com/ralt/relserve/internal/models"
	"github.com/ralt/relserve/internal/signer"
)

const envPrefix = "RELSERVE_"

// addConfigFlags registers the flags that override configuration values
func addConfigFlags(fs *pflag.FlagSet) {
	def := models.DefaultServerConfig()

	fs.String("listen", def.Listen, "Address to listen on")
	fs.String("base-path", def.BasePath, "Path prefix all routes are served under")
	fs.String("base-url", def.BaseURL, "Public URL used in generated links (derived from requests when empty)")
	fs.Bool("gzip", def.Gzip, "Compress responses")
	fs.Duration("cache-max-age", def.CacheMaxAge, "How long a release listing is reused (0 to only refresh on webhook)")
	fs.Bool("prefer-universal", def.PreferUniversal, "Serve universal macOS builds when available")

	fs.String("backend", def.Backend, "Release source: github, index or local")
	fs.String("github-owner", def.GitHubOwner, "GitHub repository owner")
	fs.String("github-repo", def.GitHubRepo, "GitHub repository name")
	fs.String("github-token", def.GitHubToken, "GitHub API token")
	fs.String("github-api-url", def.GitHubAPIURL, "GitHub API base URL")
	fs.Bool("proxy-assets", def.ProxyAssets, "Resolve GitHub download URLs through the API")
	fs.String("webhook-secret", def.WebhookSecret, "Secret enabling the refresh webhook")

	fs.String("index", def.IndexPath, "Release index file for the index backend")
	fs.String("dir", def.LocalDir, "Release directory for the local backend")

	fs.StringP("gpg-key", "k", def.GPGKeyPath, "Path to GPG private key used to sign RELEASES")
	fs.StringP("gpg-passphrase", "p", def.GPGPassphrase, "GPG key passphrase")
}

// loadConfig is readConfig followed by validation
func loadConfig(fs *pflag.FlagSet) (*models.ServerConfig, error) {
	cfg, err := readConfig(fs)
	if err != nil {
		return nil, err
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readConfig builds the configuration from defaults, the optional config
// file, the environment and explicitly set flags, in increasing precedence
func readConfig(fs *pflag.FlagSet) (*models.ServerConfig, error) {
	cfg := models.DefaultServerConfig()

	if path, _ := fs.GetString("config"); path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	applyFlagOverrides(fs, &cfg)

	return &cfg, nil
}

func loadConfigFile(path string, cfg *models.ServerConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.WrapError(models.ErrInvalidConfig, path, fmt.Errorf("failed to read config file: %w", err))
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return models.NewError(models.ErrInvalidConfig, path, "unsupported config format, expected .yaml, .yml or .toml")
	}
	if err != nil {
		return models.WrapError(models.ErrInvalidConfig, path, fmt.Errorf("failed to parse config file: %w", err))
	}
	return nil
}

// applyEnvOverrides applies RELSERVE_* variables. The conventional
// GITHUB_OWNER, GITHUB_REPO and GITHUB_TOKEN are honoured too, with the
// prefixed names taking precedence.
func applyEnvOverrides(cfg *models.ServerConfig) error {
	var errs []string

	applyString := func(key string, target *string) {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			*target = val
		}
	}
	applyBool := func(key string, target *bool) {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			b, err := strconv.ParseBool(val)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*target = b
		}
	}
	applyDuration := func(key string, target *time.Duration) {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			d, err := time.ParseDuration(val)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*target = d
		}
	}

	applyString("GITHUB_OWNER", &cfg.GitHubOwner)
	applyString("GITHUB_REPO", &cfg.GitHubRepo)
	applyString("GITHUB_TOKEN", &cfg.GitHubToken)

	applyString(envPrefix+"LISTEN", &cfg.Listen)
	applyString(envPrefix+"BASE_PATH", &cfg.BasePath)
	applyString(envPrefix+"BASE_URL", &cfg.BaseURL)
	applyBool(envPrefix+"GZIP", &cfg.Gzip)
	applyDuration(envPrefix+"CACHE_MAX_AGE", &cfg.CacheMaxAge)
	applyBool(envPrefix+"PREFER_UNIVERSAL", &cfg.PreferUniversal)
	applyString(envPrefix+"BACKEND", &cfg.Backend)
	applyString(envPrefix+"GITHUB_OWNER", &cfg.GitHubOwner)
	applyString(envPrefix+"GITHUB_REPO", &cfg.GitHubRepo)
	applyString(envPrefix+"GITHUB_TOKEN", &cfg.GitHubToken)
	applyString(envPrefix+"GITHUB_API_URL", &cfg.GitHubAPIURL)
	applyBool(envPrefix+"PROXY_ASSETS", &cfg.ProxyAssets)
	applyString(envPrefix+"WEBHOOK_SECRET", &cfg.WebhookSecret)
	applyString(envPrefix+"INDEX", &cfg.IndexPath)
	applyString(envPrefix+"DIR", &cfg.LocalDir)
	applyString(envPrefix+"GPG_KEY", &cfg.GPGKeyPath)
	applyString(envPrefix+"GPG_PASSPHRASE", &cfg.GPGPassphrase)

	if len(errs) > 0 {
		return models.NewError(models.ErrInvalidConfig, "environment", "%s", strings.Join(errs, "; "))
	}
	return nil
}

// applyFlagOverrides copies the flags the user actually set
func applyFlagOverrides(fs *pflag.FlagSet, cfg *models.ServerConfig) {
	applyString := func(name string, target *string) {
		if fs.Changed(name) {
			*target, _ = fs.GetString(name)
		}
	}
	applyBool := func(name string, target *bool) {
		if fs.Changed(name) {
			*target, _ = fs.GetBool(name)
		}
	}

	applyString("listen", &cfg.Listen)
	applyString("base-path", &cfg.BasePath)
	applyString("base-url", &cfg.BaseURL)
	applyBool("gzip", &cfg.Gzip)
	if fs.Changed("cache-max-age") {
		cfg.CacheMaxAge, _ = fs.GetDuration("cache-max-age")
	}
	applyBool("prefer-universal", &cfg.PreferUniversal)
	applyString("backend", &cfg.Backend)
	applyString("github-owner", &cfg.GitHubOwner)
	applyString("github-repo", &cfg.GitHubRepo)
	applyString("github-token", &cfg.GitHubToken)
	applyString("github-api-url", &cfg.GitHubAPIURL)
	applyBool("proxy-assets", &cfg.ProxyAssets)
	applyString("webhook-secret", &cfg.WebhookSecret)
	applyString("index", &cfg.IndexPath)
	applyString("dir", &cfg.LocalDir)
	applyString("gpg-key", &cfg.GPGKeyPath)
	applyString("gpg-passphrase", &cfg.GPGPassphrase)
}

func validateConfig(cfg *models.ServerConfig) error {
	invalid := func(format string, args ...any) error {
		return models.NewError(models.ErrInvalidConfig, "config", format, args...)
	}

	if cfg.Listen == "" {
		return invalid("listen address is required")
	}
	if cfg.CacheMaxAge < 0 {
		return invalid("cache-max-age cannot be negative")
	}

	// Normalize base path to "/prefix" or ""
	if base := strings.Trim(cfg.BasePath, "/"); base != "" {
		cfg.BasePath = "/" + base
	} else {
		cfg.BasePath = ""
	}

	switch cfg.Backend {
	case models.BackendGitHub:
		if cfg.GitHubOwner == "" || cfg.GitHubRepo == "" {
			return invalid("github backend requires github-owner and github-repo")
		}
	case models.BackendIndex:
		if cfg.IndexPath == "" {
			return invalid("index backend requires --index")
		}
	case models.BackendLocal:
		if cfg.LocalDir == "" {
			return invalid("local backend requires --dir")
		}
	default:
		return invalid("unknown backend %q, expected github, index or local", cfg.Backend)
	}

	return nil
}

// newBackend creates the configured release source
func newBackend(cfg *models.ServerConfig) (backend.Backend, error) {
	switch cfg.Backend {
	case models.BackendGitHub:
		return github.New(cfg.GitHubOwner, cfg.GitHubRepo,
			github.WithToken(cfg.GitHubToken),
			github.WithAPIURL(cfg.GitHubAPIURL),
			github.WithProxyAssets(cfg.ProxyAssets),
		)
	case models.BackendIndex:
		return index.New(cfg.IndexPath)
	case models.BackendLocal:
		return local.New(cfg.LocalDir)
	}
	return nil, models.NewError(models.ErrInvalidConfig, "config", "unknown backend %q", cfg.Backend)
}

// newSigner loads the signing key when one is configured
func newSigner(cfg *models.ServerConfig) (signer.Signer, error) {
	if cfg.GPGKeyPath == "" {
		return nil, nil
	}
	return signer.NewGPGSigner(cfg.GPGKeyPath, cfg.GPGPassphrase)
}
