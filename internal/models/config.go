package models

import "time"

// Backend kinds
const (
	BackendGitHub = "github"
	BackendIndex  = "index"
	BackendLocal  = "local"
)

// ServerConfig contains configuration for the release server
type ServerConfig struct {
	// HTTP
	Listen   string `yaml:"listen" toml:"listen"`
	BasePath string `yaml:"base_path" toml:"base_path"` // Path prefix inserted between host and routes
	BaseURL  string `yaml:"base_url" toml:"base_url"`   // Public URL override for generated links
	Gzip     bool   `yaml:"gzip" toml:"gzip"`

	// Resolution
	CacheMaxAge     time.Duration `yaml:"cache_max_age" toml:"cache_max_age"`
	PreferUniversal bool          `yaml:"prefer_universal" toml:"prefer_universal"`

	// Backend selection
	Backend string `yaml:"backend" toml:"backend"`

	// GitHub backend
	GitHubOwner   string `yaml:"github_owner" toml:"github_owner"`
	GitHubRepo    string `yaml:"github_repo" toml:"github_repo"`
	GitHubToken   string `yaml:"github_token" toml:"github_token"`
	GitHubAPIURL  string `yaml:"github_api_url" toml:"github_api_url"`
	ProxyAssets   bool   `yaml:"proxy_assets" toml:"proxy_assets"`
	WebhookSecret string `yaml:"webhook_secret" toml:"webhook_secret"`

	// Index and local backends
	IndexPath string `yaml:"index_path" toml:"index_path"`
	LocalDir  string `yaml:"local_dir" toml:"local_dir"`

	// Manifest signing
	GPGKeyPath    string `yaml:"gpg_key" toml:"gpg_key"`
	GPGPassphrase string `yaml:"gpg_passphrase" toml:"gpg_passphrase"`
}

// DefaultServerConfig returns the configuration used when nothing is set
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Listen:          ":5000",
		Gzip:            true,
		CacheMaxAge:     2 * time.Hour,
		PreferUniversal: true,
		Backend:         BackendGitHub,
		GitHubAPIURL:    "https://api.github.com",
		ProxyAssets:     true,
	}
}
