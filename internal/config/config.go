package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cdnheaders/pkg/cdnheaders"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Version    string     `yaml:"version" env-default:"v1"`
	Gateway    Gateway    `yaml:"gateway"`
	Cache      Cache      `yaml:"cache"`
	CDN        CDN        `yaml:"cdn"`
	Cloudflare Cloudflare `yaml:"cloudflare"`
	Telemetry  Telemetry  `yaml:"telemetry"`
	Services   []Service  `yaml:"services"`
	Endpoints  []Endpoint `yaml:"endpoints"`
	Includes   []string   `yaml:"includes"`
}

type Gateway struct {
	Address            string `yaml:"address"              env:"GATEWAY_ADDR"              env-default:":8080"`
	Timeout            string `yaml:"timeout"              env:"GATEWAY_TIMEOUT"           env-default:"30s"`
	ReadTimeoutSec     int    `yaml:"read_timeout_sec"     env:"GATEWAY_READ_TIMEOUT"      env-default:"15"`
	WriteTimeoutSec    int    `yaml:"write_timeout_sec"    env:"GATEWAY_WRITE_TIMEOUT"     env-default:"15"`
	IdleTimeoutSec     int    `yaml:"idle_timeout_sec"     env:"GATEWAY_IDLE_TIMEOUT"      env-default:"60"`
	ShutdownTimeoutSec int    `yaml:"shutdown_timeout_sec" env:"GATEWAY_SHUTDOWN_TIMEOUT"  env-default:"15"`
	AuthCookie         string `yaml:"auth_cookie"          env:"GATEWAY_AUTH_COOKIE"       env-default:"auth_token"`
	SessionCookie      string `yaml:"session_cookie"       env:"GATEWAY_SESSION_COOKIE"    env-default:"cdn_session"`
	VerifyCSRF         bool   `yaml:"verify_csrf"          env:"GATEWAY_VERIFY_CSRF"`
}

// Cache configures the CSRF token store.
type Cache struct {
	Driver string `yaml:"driver"    env:"CACHE_DRIVER"    env-default:"memory"`
	Host   string `yaml:"host"      env:"CACHE_HOST"      env-default:"localhost"`
	Port   int    `yaml:"port"      env:"CACHE_PORT"      env-default:"6379"`
	Db     int    `yaml:"db"        env:"CACHE_DB"        env-default:"0"`
	Pass   string `yaml:"password"  env:"CACHE_PASSWORD"  env-default:""`
	TTL    string `yaml:"ttl"       env:"CACHE_TTL"       env-default:"2h"`
}

// CDN holds the header engine settings. Switches have no env-default tag:
// their defaults are seeded by Defaults so that an explicit false in YAML
// survives.
type CDN struct {
	Enabled              bool         `yaml:"enabled"                env:"CDN_HEADERS_ENABLED"`
	SkipAuthenticated    bool         `yaml:"skip_authenticated"     env:"CDN_HEADERS_SKIP_AUTH"`
	RemoveCookies        bool         `yaml:"remove_cookies"         env:"CDN_HEADERS_REMOVE_COOKIES"`
	RemoveVaryCookie     bool         `yaml:"remove_vary_cookie"     env:"CDN_HEADERS_REMOVE_VARY_COOKIE"`
	RemoveCSRFTokens     bool         `yaml:"remove_csrf_tokens"     env:"CDN_HEADERS_REMOVE_CSRF"`
	InjectCSRFLoader     bool         `yaml:"inject_csrf_loader"     env:"CDN_HEADERS_INJECT_CSRF_LOADER"`
	SurrogateControl     bool         `yaml:"surrogate_control"      env:"CDN_HEADERS_SURROGATE"`
	Logging              bool         `yaml:"logging"                env:"CDN_HEADERS_LOGGING"`
	DefaultDuration      Duration     `yaml:"default_duration"       env:"CDN_HEADERS_DEFAULT_DURATION"`
	StaleWhileRevalidate Duration     `yaml:"stale_while_revalidate" env:"CDN_HEADERS_SWR"`
	StaleIfError         Duration     `yaml:"stale_if_error"         env:"CDN_HEADERS_SIE"`
	Routes               RuleList     `yaml:"routes"                 env:"CDN_HEADERS_ROUTES"`
	Patterns             RuleList     `yaml:"patterns"               env:"CDN_HEADERS_PATTERNS"`
	ExcludedRoutes       []string     `yaml:"excluded_routes"        env:"CDN_HEADERS_EXCLUDED_ROUTES"`
	CustomHeaders        HeaderList   `yaml:"custom_headers"         env:"CDN_HEADERS_CUSTOM_HEADERS"`
	CSRFLoaderRoutes     LoaderRoutes `yaml:"csrf_loader_routes"     env:"CDN_HEADERS_CSRF_LOADER_ROUTES"`
	CSRFEndpoint         string       `yaml:"csrf_endpoint"          env:"CDN_HEADERS_CSRF_ENDPOINT" env-default:"/cdn-headers/csrf-token"`
}

type Cloudflare struct {
	ZoneID   string `yaml:"zone_id"   env:"CLOUDFLARE_ZONE_ID"`
	APIToken string `yaml:"api_token" env:"CLOUDFLARE_API_TOKEN"`
	BaseURL  string `yaml:"base_url"  env:"CLOUDFLARE_BASE_URL" env-default:"https://api.cloudflare.com/client/v4"`
	Timeout  string `yaml:"timeout"   env:"CLOUDFLARE_TIMEOUT"  env-default:"30s"`
}

type Telemetry struct {
	ServiceName string `yaml:"service_name" env:"OTEL_SERVICE_NAME"           env-default:"cdnheaders"`
	Endpoint    string `yaml:"endpoint"     env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure    bool   `yaml:"insecure"     env:"OTEL_EXPORTER_OTLP_INSECURE"`
}

type Service struct {
	Name     string `yaml:"name"`
	ProxyURL string `yaml:"proxy_url"`
	Timeout  string `yaml:"timeout"`
}

// Endpoint is a gateway route. Name is the route name the CDN rules match.
type Endpoint struct {
	Name         string   `yaml:"name"`
	Path         string   `yaml:"path"`
	Method       string   `yaml:"method"`
	Backend      *Backend `yaml:"backend,omitempty"`
	AuthRequired bool     `yaml:"auth_required,omitempty"`
}

type Backend struct {
	Service string `yaml:"service"`
	Path    string `yaml:"path"`
	Method  string `yaml:"method"`
}

type FinalConfig struct {
	Env        string
	Gateway    Gateway
	Cache      Cache
	CDN        cdnheaders.Config
	Cloudflare Cloudflare
	Telemetry  Telemetry
	Services   []Service
	Endpoints  []Endpoint
}

// Defaults returns the raw configuration before any file or env is applied.
func Defaults() Config {
	d := cdnheaders.DefaultConfig()
	return Config{
		Version: "v1",
		CDN: CDN{
			Enabled:           d.Enabled,
			SkipAuthenticated: d.SkipAuthenticated,
			RemoveCookies:     d.RemoveCookies,
			RemoveVaryCookie:  d.RemoveVaryCookie,
			RemoveCSRFTokens:  d.RemoveCSRFTokens,
			InjectCSRFLoader:  d.InjectCSRFLoader,
			DefaultDuration:   Duration(d.DefaultDuration),
			CSRFLoaderRoutes:  LoaderRoutes{loaderAuto},
			CSRFEndpoint:      d.CSRFEndpointPath,
		},
	}
}

// Load reads a config file, or inline YAML content, and applies env
// overrides on top.
func Load(pathOrContent string) (*Config, error) {
	cfg := Defaults()

	if fi, err := os.Stat(pathOrContent); err == nil && !fi.IsDir() {
		if err := cleanenv.ReadConfig(pathOrContent, &cfg); err != nil {
			return nil, fmt.Errorf("read config %q: %w", pathOrContent, err)
		}
	} else if isInline(pathOrContent) {
		if err := yaml.Unmarshal([]byte(pathOrContent), &cfg); err != nil {
			return nil, fmt.Errorf("parse config content: %w", err)
		}
	} else if pathOrContent != "" {
		return nil, fmt.Errorf("config %q not found", pathOrContent)
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	return &cfg, nil
}

func isInline(s string) bool {
	return strings.Contains(s, "\n") || strings.Contains(s, "gateway:") || strings.Contains(s, "cdn:")
}

// Build loads the configuration and resolves includes into a FinalConfig.
func Build(configPath string) (*FinalConfig, error) {
	raw, err := Load(configPath)
	if err != nil {
		return nil, err
	}

	services := append([]Service{}, raw.Services...)
	endpoints := append([]Endpoint{}, raw.Endpoints...)

	if len(raw.Includes) > 0 && raw.Version != "v1" {
		incServices, incEndpoints, err := loadIncludes(configPath, raw.Includes)
		if err != nil {
			return nil, err
		}
		services = append(services, incServices...)
		endpoints = append(endpoints, incEndpoints...)
	}

	for i, ep := range endpoints {
		if ep.Backend != nil && !serviceDeclared(services, ep.Backend.Service) {
			return nil, fmt.Errorf("endpoint %d (%s): unknown service %q", i, ep.Path, ep.Backend.Service)
		}
	}

	return &FinalConfig{
		Env:        appEnv(),
		Gateway:    raw.Gateway,
		Cache:      raw.Cache,
		CDN:        raw.CDN.Engine(),
		Cloudflare: raw.Cloudflare,
		Telemetry:  raw.Telemetry,
		Services:   services,
		Endpoints:  endpoints,
	}, nil
}

// Engine converts the raw settings into the engine configuration.
func (c CDN) Engine() cdnheaders.Config {
	out := cdnheaders.Config{
		Enabled:              c.Enabled,
		SkipAuthenticated:    c.SkipAuthenticated,
		RemoveCookies:        c.RemoveCookies,
		RemoveVaryCookie:     c.RemoveVaryCookie,
		RemoveCSRFTokens:     c.RemoveCSRFTokens,
		InjectCSRFLoader:     c.InjectCSRFLoader,
		SurrogateControl:     c.SurrogateControl,
		Logging:              c.Logging,
		DefaultDuration:      time.Duration(c.DefaultDuration),
		StaleWhileRevalidate: time.Duration(c.StaleWhileRevalidate),
		StaleIfError:         time.Duration(c.StaleIfError),
		RouteRules:           c.Routes.rules(),
		PathRules:            c.Patterns.rules(),
		ExcludedRoutes:       append([]string(nil), c.ExcludedRoutes...),
		CSRFEndpointPath:     c.CSRFEndpoint,
	}
	for _, h := range c.CustomHeaders {
		out.CustomHeaders = append(out.CustomHeaders, cdnheaders.Header{Name: h.Name, Value: h.Value})
	}
	if c.CSRFLoaderRoutes.Auto() {
		out.CSRFLoaderRoutes.Auto = true
	} else {
		out.CSRFLoaderRoutes.Routes = append([]string(nil), c.CSRFLoaderRoutes...)
	}
	return out
}

func (l RuleList) rules() []cdnheaders.Rule {
	out := make([]cdnheaders.Rule, 0, len(l))
	for _, r := range l {
		rule := cdnheaders.Rule{Pattern: r.Pattern, UseDefault: r.TTL == nil}
		if r.TTL != nil {
			rule.Duration = time.Duration(*r.TTL)
		}
		out = append(out, rule)
	}
	return out
}

func serviceDeclared(services []Service, name string) bool {
	for _, s := range services {
		if s.Name == name {
			return true
		}
	}
	return false
}

func appEnv() string {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env
	}
	return "dev"
}

func loadIncludes(mainPath string, patterns []string) ([]Service, []Endpoint, error) {
	baseDir := filepath.Dir(mainPath)
	env := appEnv()

	var allServices []Service
	var allEndpoints []Endpoint

	for _, pat := range patterns {
		pat = strings.ReplaceAll(pat, "{env}", env)

		glob := pat
		if !filepath.IsAbs(glob) {
			glob = filepath.Join(baseDir, glob)
		}

		matches, err := filepath.Glob(glob)
		if err != nil {
			return nil, nil, fmt.Errorf("glob %q: %w", pat, err)
		}

		for _, file := range matches {
			data, err := os.ReadFile(file)
			if err != nil {
				return nil, nil, fmt.Errorf("read included %q: %w", file, err)
			}

			var partial struct {
				Services  []Service  `yaml:"services"`
				Endpoints []Endpoint `yaml:"endpoints"`
			}
			if err := yaml.Unmarshal(data, &partial); err != nil {
				return nil, nil, fmt.Errorf("parse included %q: %w", file, err)
			}

			allServices = append(allServices, partial.Services...)
			allEndpoints = append(allEndpoints, partial.Endpoints...)
		}
	}

	return allServices, allEndpoints, nil
}

// Pretty renders the config as YAML with secrets masked.
func (fc *FinalConfig) Pretty() (string, error) {
	masked := *fc
	masked.Cache.Pass = mask(masked.Cache.Pass)
	masked.Cloudflare.APIToken = mask(masked.Cloudflare.APIToken)
	b, err := yaml.Marshal(masked)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(b), nil
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
