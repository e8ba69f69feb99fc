// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"math"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// LogConfig provides logger settings.
type LogConfig interface {
	GetEnv() string
	GetLogFile() string
	GetLogMaxSizeMB() int
	GetLogMaxBackups() int
	GetLogMaxAgeDays() int
}

// HTTPConfig provides settings for the shell HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
	GetRateLimitRPS() float64
	GetRateLimitBurst() int
	IsMetricsEnabled() bool
}

// APIConfig provides settings for the remote Casametrix API.
type APIConfig interface {
	GetAPIBaseURL() string
	GetAPITimeout() time.Duration
}

// AutocompleteConfig provides settings for the debounced autocomplete client.
type AutocompleteConfig interface {
	GetAutocompleteProvider() string
	GetAutocompleteDebounce() time.Duration
	GetAutocompleteMinChars() int
	GetAutocompleteLimit() int
	GetAutocompleteRPS() float64
	GetAutocompleteCacheTTL() time.Duration
	GetBANURL() string
	GetNominatimURL() string
	GetNominatimCountryCodes() string
}

// GeolocationConfig provides settings for the geolocation acquirer.
type GeolocationConfig interface {
	GetGeolocationProvider() string
	GetGeolocationTimeout() time.Duration
	GetGeolocationStatic() (lat, lng float64, ok bool)
	GetIPAPIURL() string
}

// MapConfig provides settings for the map synchronization controller.
type MapConfig interface {
	GetMapCloseZoom() float64
	GetMapMaxZoom() float64
	GetMapFitPadding() int
	GetMapViewport() (width, height int)
	GetMapTileURL() string
}

// ToastConfig provides settings for the notification queue.
type ToastConfig interface {
	GetToastTTL() time.Duration
	GetToastMaxDepth() int
}

// SessionConfig provides settings for browser sessions and token storage.
type SessionConfig interface {
	GetRedisURL() string
	GetSessionCookieName() string
	GetSessionTTL() time.Duration
	GetSessionCookieSecure() bool
}

// ViewConfig provides settings for the mounted view registry.
type ViewConfig interface {
	GetViewIdleTimeout() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                   string
	HTTPAddr              string
	CORSAllowAll          bool
	CORSOrigins           []string
	CORSAllowCreds        bool
	RateLimitRPS          float64
	RateLimitBurst        int
	MetricsEnabled        bool
	LogFile               string
	LogMaxSizeMB          int
	LogMaxBackups         int
	LogMaxAgeDays         int
	APIBaseURL            string
	APITimeout            time.Duration
	AutocompleteProvider  string
	AutocompleteDebounce  time.Duration
	AutocompleteMinChars  int
	AutocompleteLimit     int
	AutocompleteRPS       float64
	AutocompleteCacheTTL  time.Duration
	BANURL                string
	NominatimURL          string
	NominatimCountryCodes string
	GeolocationProvider   string
	GeolocationTimeout    time.Duration
	GeolocationStaticLat  float64
	GeolocationStaticLng  float64
	GeolocationStaticSet  bool
	IPAPIURL              string
	MapCloseZoom          float64
	MapMaxZoom            float64
	MapFitPadding         int
	MapViewportWidth      int
	MapViewportHeight     int
	MapTileURL            string
	ToastTTL              time.Duration
	ToastMaxDepth         int
	RedisURL              string
	SessionCookieName     string
	SessionTTL            time.Duration
	SessionCookieSecure   bool
	ViewIdleTimeout       time.Duration
}

// =============================================================================
// Interface Implementations
// =============================================================================

// LogConfig implementation
func (c *Config) GetEnv() string        { return c.Env }
func (c *Config) GetLogFile() string    { return c.LogFile }
func (c *Config) GetLogMaxSizeMB() int  { return c.LogMaxSizeMB }
func (c *Config) GetLogMaxBackups() int { return c.LogMaxBackups }
func (c *Config) GetLogMaxAgeDays() int { return c.LogMaxAgeDays }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string       { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool     { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string  { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool   { return c.CORSAllowCreds }
func (c *Config) GetRateLimitRPS() float64  { return c.RateLimitRPS }
func (c *Config) GetRateLimitBurst() int    { return c.RateLimitBurst }
func (c *Config) IsMetricsEnabled() bool    { return c.MetricsEnabled }

// APIConfig implementation
func (c *Config) GetAPIBaseURL() string        { return c.APIBaseURL }
func (c *Config) GetAPITimeout() time.Duration { return c.APITimeout }

// AutocompleteConfig implementation
func (c *Config) GetAutocompleteProvider() string        { return c.AutocompleteProvider }
func (c *Config) GetAutocompleteDebounce() time.Duration { return c.AutocompleteDebounce }
func (c *Config) GetAutocompleteMinChars() int           { return c.AutocompleteMinChars }
func (c *Config) GetAutocompleteLimit() int              { return c.AutocompleteLimit }
func (c *Config) GetAutocompleteRPS() float64            { return c.AutocompleteRPS }
func (c *Config) GetAutocompleteCacheTTL() time.Duration { return c.AutocompleteCacheTTL }
func (c *Config) GetBANURL() string                      { return c.BANURL }
func (c *Config) GetNominatimURL() string                { return c.NominatimURL }
func (c *Config) GetNominatimCountryCodes() string       { return c.NominatimCountryCodes }

// GeolocationConfig implementation
func (c *Config) GetGeolocationProvider() string        { return c.GeolocationProvider }
func (c *Config) GetGeolocationTimeout() time.Duration { return c.GeolocationTimeout }
func (c *Config) GetIPAPIURL() string                   { return c.IPAPIURL }
func (c *Config) GetGeolocationStatic() (float64, float64, bool) {
	return c.GeolocationStaticLat, c.GeolocationStaticLng, c.GeolocationStaticSet
}

// MapConfig implementation
func (c *Config) GetMapCloseZoom() float64  { return c.MapCloseZoom }
func (c *Config) GetMapMaxZoom() float64    { return c.MapMaxZoom }
func (c *Config) GetMapFitPadding() int     { return c.MapFitPadding }
func (c *Config) GetMapTileURL() string     { return c.MapTileURL }
func (c *Config) GetMapViewport() (int, int) {
	return c.MapViewportWidth, c.MapViewportHeight
}

// ToastConfig implementation
func (c *Config) GetToastTTL() time.Duration { return c.ToastTTL }
func (c *Config) GetToastMaxDepth() int      { return c.ToastMaxDepth }

// SessionConfig implementation
func (c *Config) GetRedisURL() string            { return c.RedisURL }
func (c *Config) GetSessionCookieName() string   { return c.SessionCookieName }
func (c *Config) GetSessionTTL() time.Duration   { return c.SessionTTL }
func (c *Config) GetSessionCookieSecure() bool   { return c.SessionCookieSecure }

// ViewConfig implementation
func (c *Config) GetViewIdleTimeout() time.Duration { return c.ViewIdleTimeout }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	env := getEnv("APP_ENV", "development")
	cookieSecure := strings.EqualFold(getEnv("SESSION_COOKIE_SECURE", ""), "true")
	if getEnv("SESSION_COOKIE_SECURE", "") == "" {
		cookieSecure = strings.EqualFold(env, "production")
	}

	width, height, err := parseViewport(getEnv("MAP_VIEWPORT", "800x320"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Env:                   env,
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		CORSAllowAll:          corsAllowAll,
		CORSOrigins:           corsOrigins,
		CORSAllowCreds:        strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RateLimitRPS:          mustFloat(getEnv("RATE_LIMIT_RPS", "20")),
		RateLimitBurst:        mustInt(getEnv("RATE_LIMIT_BURST", "40")),
		MetricsEnabled:        strings.EqualFold(getEnv("METRICS_ENABLED", "true"), "true"),
		LogFile:               getEnv("LOG_FILE", ""),
		LogMaxSizeMB:          mustInt(getEnv("LOG_MAX_SIZE_MB", "50")),
		LogMaxBackups:         mustInt(getEnv("LOG_MAX_BACKUPS", "5")),
		LogMaxAgeDays:         mustInt(getEnv("LOG_MAX_AGE_DAYS", "14")),
		APIBaseURL:            strings.TrimRight(strings.TrimSpace(getEnv("CASAMX_API_BASE_URL", "https://api.casametrix.com")), "/"),
		APITimeout:            mustDuration(getEnv("CASAMX_API_TIMEOUT", "15s")),
		AutocompleteProvider:  strings.ToLower(getEnv("AUTOCOMPLETE_PROVIDER", "casametrix")),
		AutocompleteDebounce:  mustDuration(getEnv("AUTOCOMPLETE_DEBOUNCE", "250ms")),
		AutocompleteMinChars:  mustInt(getEnv("AUTOCOMPLETE_MIN_CHARS", "3")),
		AutocompleteLimit:     mustInt(getEnv("AUTOCOMPLETE_LIMIT", "8")),
		AutocompleteRPS:       mustFloat(getEnv("AUTOCOMPLETE_RPS", "4")),
		AutocompleteCacheTTL:  mustDuration(getEnv("AUTOCOMPLETE_CACHE_TTL", "0s")),
		BANURL:                getEnv("BAN_URL", "https://api-adresse.data.gouv.fr/search/"),
		NominatimURL:          getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org/search"),
		NominatimCountryCodes: getEnv("NOMINATIM_COUNTRY_CODES", "fr"),
		GeolocationProvider:   strings.ToLower(getEnv("GEOLOCATION_PROVIDER", "ipapi")),
		GeolocationTimeout:    mustDuration(getEnv("GEOLOCATION_TIMEOUT", "10s")),
		IPAPIURL:              getEnv("IPAPI_URL", "http://ip-api.com/json/"),
		MapCloseZoom:          mustFloat(getEnv("MAP_CLOSE_ZOOM", "15")),
		MapMaxZoom:            mustFloat(getEnv("MAP_MAX_ZOOM", "19")),
		MapFitPadding:         mustInt(getEnv("MAP_FIT_PADDING", "40")),
		MapViewportWidth:      width,
		MapViewportHeight:     height,
		MapTileURL:            getEnv("MAP_TILE_URL", "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"),
		ToastTTL:              mustDuration(getEnv("TOAST_TTL", "5s")),
		ToastMaxDepth:         mustInt(getEnv("TOAST_MAX_DEPTH", "0")),
		RedisURL:              getEnv("REDIS_URL", ""),
		SessionCookieName:     getEnv("SESSION_COOKIE_NAME", "casamx_session"),
		SessionTTL:            mustDuration(getEnv("SESSION_TTL", "720h")),
		SessionCookieSecure:   cookieSecure,
		ViewIdleTimeout:       mustDuration(getEnv("VIEW_IDLE_TIMEOUT", "30m")),
	}

	latRaw, lngRaw := getEnv("GEOLOCATION_STATIC_LAT", ""), getEnv("GEOLOCATION_STATIC_LNG", "")
	if latRaw != "" || lngRaw != "" {
		lat, latErr := strconv.ParseFloat(latRaw, 64)
		lng, lngErr := strconv.ParseFloat(lngRaw, 64)
		if latErr != nil || lngErr != nil || math.Abs(lat) > 90 || math.Abs(lng) > 180 {
			return nil, fmt.Errorf("GEOLOCATION_STATIC_LAT and GEOLOCATION_STATIC_LNG must both be valid coordinates")
		}
		cfg.GeolocationStaticLat, cfg.GeolocationStaticLng, cfg.GeolocationStaticSet = lat, lng, true
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := url.ParseRequestURI(c.APIBaseURL); err != nil {
		return fmt.Errorf("CASAMX_API_BASE_URL is not a valid URL: %w", err)
	}
	switch c.AutocompleteProvider {
	case "casametrix", "ban", "nominatim":
	default:
		return fmt.Errorf("AUTOCOMPLETE_PROVIDER must be one of casametrix, ban, nominatim")
	}
	switch c.GeolocationProvider {
	case "ipapi", "static", "none":
	default:
		return fmt.Errorf("GEOLOCATION_PROVIDER must be one of ipapi, static, none")
	}
	if c.GeolocationProvider == "static" && !c.GeolocationStaticSet {
		return fmt.Errorf("GEOLOCATION_STATIC_LAT/LNG are required when GEOLOCATION_PROVIDER is static")
	}
	if c.AutocompleteMinChars < 1 {
		return fmt.Errorf("AUTOCOMPLETE_MIN_CHARS must be at least 1")
	}
	if c.AutocompleteDebounce < 0 || c.ToastTTL <= 0 || c.GeolocationTimeout <= 0 {
		return fmt.Errorf("AUTOCOMPLETE_DEBOUNCE, TOAST_TTL and GEOLOCATION_TIMEOUT must be positive durations")
	}
	if c.ToastMaxDepth < 0 {
		return fmt.Errorf("TOAST_MAX_DEPTH cannot be negative")
	}
	if c.CORSAllowAll && c.CORSAllowCreds {
		return fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func parseViewport(value string) (int, int, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(value)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("MAP_VIEWPORT must look like 800x320")
	}
	width, height := mustInt(w), mustInt(h)
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("MAP_VIEWPORT must have positive dimensions")
	}
	return width, height, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
