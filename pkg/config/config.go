package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source types a site can declare. When omitted, the type is auto-detected
// from the source URL (see autoDetectType).
const (
	SourceTypeLlmsTxt    = "llms.txt"
	SourceTypeXMLSitemap = "xml_sitemap"
	SourceTypeDirectURL  = "direct_url"
)

// Filter kinds. Both keep URLs containing a substring; they differ only in
// which YAML key carries the substring.
const (
	FilterURLPattern  = "url_pattern"
	FilterURLContains = "url_contains"
)

// Duration wraps time.Duration so YAML values can be either duration strings
// ("30s", "1h") or plain numbers interpreted as seconds.
type Duration struct {
	time.Duration
}

// UnmarshalYAML accepts either a string duration or numeric seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw interface{}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		d.Duration = parsed
		return nil
	case int:
		d.Duration = time.Duration(v) * time.Second
		return nil
	case float64:
		d.Duration = time.Duration(v * float64(time.Second))
		return nil
	default:
		return fmt.Errorf("unsupported duration type %T", raw)
	}
}

// MarshalYAML emits duration values as strings.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// AppConfig holds the full application configuration: global settings plus
// the list of configured sites.
type AppConfig struct {
	Settings Settings     `yaml:"settings"`
	Sites    []SiteConfig `yaml:"sites"`
}

// Settings holds the global crawl settings shared by all sites.
type Settings struct {
	BaseOutputDir string          `yaml:"base_output_dir,omitempty"`
	TokenEncoding string          `yaml:"token_encoding,omitempty"`
	Retry         RetryPolicy     `yaml:"retry,omitempty"`
	RateLimit     RateLimitPolicy `yaml:"rate_limit,omitempty"`
	HTTP          HTTPConfig      `yaml:"http,omitempty"`
	Limits        ResourceLimits  `yaml:"limits,omitempty"`
	Robots        RobotsPolicy    `yaml:"robots,omitempty"`
}

// RetryPolicy configures the manifest-fetch retry handler.
type RetryPolicy struct {
	MaxRetries        *int     `yaml:"max_retries,omitempty"`
	InitialBackoff    Duration `yaml:"initial_backoff,omitempty"`
	BackoffMultiplier float64  `yaml:"backoff_multiplier,omitempty"`
	MaxBackoff        Duration `yaml:"max_backoff,omitempty"`
	RetryOnStatus     []int    `yaml:"retry_on_status,omitempty"`
}

// RetryCount returns the configured retry count. Defaults to 3 when unset;
// an explicit zero disables retries.
func (p RetryPolicy) RetryCount() int {
	if p.MaxRetries == nil {
		return 3
	}
	return *p.MaxRetries
}

// RateLimitPolicy configures the minimum spacing between outbound requests.
// A zero delay disables waiting entirely.
type RateLimitPolicy struct {
	DelayBetweenRequests Duration `yaml:"delay_between_requests,omitempty"`
	Respect429           *bool    `yaml:"respect_429,omitempty"`
}

// ShouldRespect429 reports whether 429 responses should be handled by
// sleeping on the Retry-After hint. Defaults to true when unset.
func (p RateLimitPolicy) ShouldRespect429() bool {
	if p.Respect429 == nil {
		return true
	}
	return *p.Respect429
}

// RobotsPolicy configures robots.txt compliance checking.
type RobotsPolicy struct {
	Enabled           *bool    `yaml:"enabled,omitempty"`
	RespectCrawlDelay *bool    `yaml:"respect_crawl_delay,omitempty"`
	CacheDuration     Duration `yaml:"cache_duration,omitempty"`
}

// IsEnabled reports whether robots.txt checks are on. Defaults to true.
func (p RobotsPolicy) IsEnabled() bool {
	if p.Enabled == nil {
		return true
	}
	return *p.Enabled
}

// ShouldRespectCrawlDelay reports whether robots crawl-delay directives are
// honored. Defaults to true.
func (p RobotsPolicy) ShouldRespectCrawlDelay() bool {
	if p.RespectCrawlDelay == nil {
		return true
	}
	return *p.RespectCrawlDelay
}

// ResourceLimits bounds a single crawl session. Zero values mean unlimited
// except MinContentChars, which is a rejection threshold.
type ResourceLimits struct {
	MaxURLsPerSite   int      `yaml:"max_urls_per_site,omitempty"`
	MaxCrawlDuration Duration `yaml:"max_crawl_duration,omitempty"`
	MaxTotalSizeMB   float64  `yaml:"max_total_size_mb,omitempty"`
	MinContentChars  int      `yaml:"min_content_chars,omitempty"`
}

// HTTPConfig holds settings for raw HTTP requests (manifest, sub-sitemap and
// robots.txt fetches).
type HTTPConfig struct {
	UserAgent      string   `yaml:"user_agent,omitempty"`
	Accept         string   `yaml:"accept,omitempty"`
	AcceptEncoding string   `yaml:"accept_encoding,omitempty"`
	Timeout        Duration `yaml:"timeout,omitempty"`
}

// FilterConfig narrows a parsed URL set by substring match. Filters apply in
// sequence to the directly-parsed URL set only; for a sitemap index that is
// the sub-sitemap URLs, not the page URLs found after recursion.
type FilterConfig struct {
	Type    string `yaml:"type"`
	Pattern string `yaml:"pattern,omitempty"`
	Value   string `yaml:"value,omitempty"`
}

// Substring returns the match value regardless of which key carried it.
func (f FilterConfig) Substring() string {
	if f.Pattern != "" {
		return f.Pattern
	}
	return f.Value
}

// ExtractOptions are passed opaquely to the page renderer.
type ExtractOptions struct {
	ContentSelector string   `yaml:"content_selector,omitempty"`
	ExcludedTags    []string `yaml:"excluded_tags,omitempty"`
}

// SiteConfig describes one crawl target.
type SiteConfig struct {
	Name          string         `yaml:"name"`
	Domain        string         `yaml:"domain,omitempty"`
	Source        string         `yaml:"source"`
	Type          string         `yaml:"type,omitempty"`
	BaseDir       string         `yaml:"base_dir,omitempty"`
	OutputPattern string         `yaml:"output_pattern,omitempty"`
	Filters       []FilterConfig `yaml:"filters,omitempty"`
	Extract       ExtractOptions `yaml:"extract,omitempty"`
}

// OutputDir expands the site's output pattern with the domain and date.
func (s SiteConfig) OutputDir(now time.Time) string {
	pattern := s.OutputPattern
	if pattern == "" {
		pattern = "{domain}"
	}
	dir := strings.ReplaceAll(pattern, "{domain}", s.Domain)
	dir = strings.ReplaceAll(dir, "{date}", now.Format("2006-01-02"))
	return dir
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads and parses the YAML config file, expanding ${VAR} references
// from the environment and auto-filling missing site type/domain fields.
func Load(path string) (*AppConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file '%s': %w", path, err)
	}

	expanded := envVarPattern.ReplaceAllStringFunc(string(raw), func(match string) string {
		name := match[2 : len(match)-1]
		return os.Getenv(name)
	})

	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config file '%s': %w", path, err)
	}

	for i := range cfg.Sites {
		site := &cfg.Sites[i]
		if site.Source == "" {
			continue
		}
		if site.Type == "" {
			site.Type = autoDetectType(site.Source)
		}
		if site.Domain == "" {
			site.Domain = autoExtractDomain(site.Source)
		}
	}

	return &cfg, nil
}

// BaseOutputDir returns the base output directory. The BASE_OUTPUT_DIR
// environment variable takes precedence over the config file setting.
func (c *AppConfig) BaseOutputDir() string {
	if envDir := os.Getenv("BASE_OUTPUT_DIR"); envDir != "" {
		return envDir
	}
	if c.Settings.BaseOutputDir != "" {
		return c.Settings.BaseOutputDir
	}
	return "./docs"
}

// SiteBaseDir returns the base output directory for a specific site. A
// per-site base_dir overrides the global setting.
func (c *AppConfig) SiteBaseDir(site SiteConfig) string {
	if site.BaseDir != "" {
		return site.BaseDir
	}
	return c.BaseOutputDir()
}

// SiteByName looks up a site configuration by name.
func (c *AppConfig) SiteByName(name string) (SiteConfig, error) {
	for _, site := range c.Sites {
		if site.Name == name {
			return site, nil
		}
	}
	return SiteConfig{}, fmt.Errorf("site not found: %s", name)
}

// autoDetectType guesses the source type from the source URL.
func autoDetectType(source string) string {
	lower := strings.ToLower(strings.TrimSpace(source))
	if strings.HasSuffix(lower, ".txt") || strings.Contains(lower, "llms.txt") {
		return SourceTypeLlmsTxt
	}
	if strings.HasSuffix(lower, ".xml") || strings.Contains(lower, "sitemap") {
		return SourceTypeXMLSitemap
	}
	return SourceTypeDirectURL
}

// autoExtractDomain pulls the host out of the first non-comment line of the
// source. Returns "unknown" when nothing usable is found.
func autoExtractDomain(source string) string {
	var firstURL string
	for _, line := range strings.Split(source, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			firstURL = line
			break
		}
	}
	if firstURL == "" {
		return "unknown"
	}

	parsed, err := url.Parse(firstURL)
	if err != nil || parsed.Host == "" {
		return "unknown"
	}
	return parsed.Host
}
