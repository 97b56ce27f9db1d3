package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Completion policies for deciding when the directory has been fully traversed
const (
	PolicyNextDisabled    = "next-disabled"
	PolicyMaxPage         = "max-page"
	PolicyMarkupUnchanged = "markup-unchanged"
)

// Config holds all configuration options for the kit crawler
type Config struct {
	// Target site contract
	Site SiteConfig `yaml:"site" json:"site"`

	// Login credentials
	Credentials CredentialsConfig `yaml:"credentials" json:"credentials"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SiteConfig describes the directory being crawled and how its pages behave
type SiteConfig struct {
	BaseURL          string        `yaml:"base_url" json:"base_url"`
	DirectoryURL     string        `yaml:"directory_url" json:"directory_url"`
	PageSize         int           `yaml:"page_size" json:"page_size"`
	CompletionPolicy string        `yaml:"completion_policy" json:"completion_policy"`
	SignalTimeout    time.Duration `yaml:"signal_timeout" json:"signal_timeout"`
	LoadTimeout      time.Duration `yaml:"load_timeout" json:"load_timeout"`
	LoginTimeout     time.Duration `yaml:"login_timeout" json:"login_timeout"`
	Headless         bool          `yaml:"headless" json:"headless"`
	Selectors        Selectors     `yaml:"selectors" json:"selectors"`
}

// Selectors are the fixed element locators of the target site
type Selectors struct {
	Username          string `yaml:"username" json:"username"`
	Password          string `yaml:"password" json:"password"`
	LoginButton       string `yaml:"login_button" json:"login_button"`
	ResultsTable      string `yaml:"results_table" json:"results_table"`
	PageSize          string `yaml:"page_size" json:"page_size"`
	PaginationLinks   string `yaml:"pagination_links" json:"pagination_links"`
	NextPage          string `yaml:"next_page" json:"next_page"`
	ActiveClass       string `yaml:"active_class" json:"active_class"`
	ThumbnailFragment string `yaml:"thumbnail_fragment" json:"thumbnail_fragment"`
}

// CredentialsConfig holds the directory login
type CredentialsConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	DownloadTimeout     time.Duration `yaml:"download_timeout" json:"download_timeout"`
	UserAgent           string        `yaml:"user_agent" json:"user_agent"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
	WriteManifest bool   `yaml:"write_manifest" json:"write_manifest"`
	WriteReport   bool   `yaml:"write_report" json:"write_report"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL:          "https://www.britishcycling.org.uk/",
			DirectoryURL:     "https://www.britishcycling.org.uk/club_kit_directory",
			PageSize:         100,
			CompletionPolicy: PolicyNextDisabled,
			SignalTimeout:    10 * time.Second,
			LoadTimeout:      30 * time.Second,
			LoginTimeout:     60 * time.Second,
			Headless:         true,
			Selectors: Selectors{
				Username:          "#username2",
				Password:          "#password2",
				LoginButton:       "#login_button",
				ResultsTable:      "#club_kits_table",
				PageSize:          "[name=club_kits_table_length]",
				PaginationLinks:   "ul.pagination a",
				NextPage:          "#club_kits_table_next",
				ActiveClass:       "button--active",
				ThumbnailFragment: "zuvvi",
			},
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 4,
			DownloadTimeout:     60 * time.Second,
			UserAgent:           "Mozilla/5.0 (X11; Linux x86_64; rv:124.0) Gecko/20100101 Firefox/124.0",
		},
		Output: OutputConfig{
			BaseDirectory: filepath.Join(os.TempDir(), "kit"),
			WriteManifest: true,
			WriteReport:   true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("CLUBKIT_USERNAME"); v != "" {
		c.Credentials.Username = v
	}
	if v := os.Getenv("CLUBKIT_PASSWORD"); v != "" {
		c.Credentials.Password = v
	}
	if v := os.Getenv("CLUBKIT_BASE_URL"); v != "" {
		c.Site.BaseURL = v
	}
	if v := os.Getenv("CLUBKIT_DIRECTORY_URL"); v != "" {
		c.Site.DirectoryURL = v
	}
	if v := os.Getenv("CLUBKIT_COMPLETION_POLICY"); v != "" {
		c.Site.CompletionPolicy = v
	}
	if v := os.Getenv("CLUBKIT_HEADLESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid CLUBKIT_HEADLESS: %w", err)
		}
		c.Site.Headless = b
	}
	if v := os.Getenv("CLUBKIT_OUTPUT_DIR"); v != "" {
		c.Output.BaseDirectory = v
	}
	if v := os.Getenv("CLUBKIT_CONCURRENT_DOWNLOADS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CLUBKIT_CONCURRENT_DOWNLOADS: %w", err)
		}
		c.Download.ConcurrentDownloads = n
	}
	if v := os.Getenv("CLUBKIT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"clubkit.yaml",
		"clubkit.yml",
		".clubkit.yaml",
		filepath.Join(home, ".config", "clubkit", "config.yaml"),
		filepath.Join(home, ".clubkit.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid. Credentials are not checked
// here because they may come from the credential store after loading.
func (c *Config) Validate() error {
	var errs []error

	if _, err := parseAbsoluteURL(c.Site.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("site base URL: %w", err))
	}
	if _, err := parseAbsoluteURL(c.Site.DirectoryURL); err != nil {
		errs = append(errs, fmt.Errorf("site directory URL: %w", err))
	}
	if c.Site.PageSize <= 0 {
		errs = append(errs, errors.New("page size must be positive"))
	}
	if !ValidPolicy(c.Site.CompletionPolicy) {
		errs = append(errs, fmt.Errorf("invalid completion policy %q", c.Site.CompletionPolicy))
	}
	if c.Site.SignalTimeout <= 0 {
		errs = append(errs, errors.New("signal timeout must be positive"))
	}
	if c.Site.LoadTimeout <= 0 {
		errs = append(errs, errors.New("load timeout must be positive"))
	}
	if c.Site.LoginTimeout <= 0 {
		errs = append(errs, errors.New("login timeout must be positive"))
	}

	s := c.Site.Selectors
	for name, sel := range map[string]string{
		"username":           s.Username,
		"password":           s.Password,
		"login_button":       s.LoginButton,
		"results_table":      s.ResultsTable,
		"page_size":          s.PageSize,
		"pagination_links":   s.PaginationLinks,
		"next_page":          s.NextPage,
		"active_class":       s.ActiveClass,
		"thumbnail_fragment": s.ThumbnailFragment,
	} {
		if strings.TrimSpace(sel) == "" {
			errs = append(errs, fmt.Errorf("selector %s is required", name))
		}
	}

	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.ConcurrentDownloads > 16 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 16"))
	}
	if c.Download.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// ValidateCredentials checks that a login is present
func (c *Config) ValidateCredentials() error {
	var errs []error
	if c.Credentials.Username == "" {
		errs = append(errs, errors.New("username is required"))
	}
	if c.Credentials.Password == "" {
		errs = append(errs, errors.New("password is required"))
	}
	return errors.Join(errs...)
}

// ValidPolicy reports whether p names a known completion policy
func ValidPolicy(p string) bool {
	switch p {
	case PolicyNextDisabled, PolicyMaxPage, PolicyMarkupUnchanged:
		return true
	}
	return false
}

// SiteOrigin returns the parsed base URL that row links are resolved against
func (c *Config) SiteOrigin() (*url.URL, error) {
	return parseAbsoluteURL(c.Site.BaseURL)
}

func parseAbsoluteURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%q is not an absolute URL", raw)
	}
	return u, nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only flags the user actually set should be present in the map.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.BaseDirectory = v
	}
	if v, ok := flags["concurrent"].(int); ok && v > 0 {
		c.Download.ConcurrentDownloads = v
	}
	if v, ok := flags["policy"].(string); ok && v != "" {
		c.Site.CompletionPolicy = v
	}
	if v, ok := flags["headless"].(bool); ok {
		c.Site.Headless = v
	}
	if v, ok := flags["load-timeout"].(time.Duration); ok && v > 0 {
		c.Site.LoadTimeout = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are fine
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".clubkit.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
