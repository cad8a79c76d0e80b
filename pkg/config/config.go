package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/travigo/mobility-monitor/pkg/redis_client"
	"github.com/travigo/mobility-monitor/pkg/transport"
	"github.com/travigo/mobility-monitor/pkg/util"
	"gopkg.in/yaml.v3"
)

const (
	DefaultRefreshInterval = "PT60S"
	DefaultIconConcurrency = 4
	DefaultLocationMaxAge  = "PT10M"
)

// Solingen city centre
var DefaultInitialLocation = transport.TransportLocation{Latitude: 51.1657, Longitude: 7.0672}

type Config struct {
	APIURL        string `yaml:"APIURL"`
	ApplicationID string `yaml:"ApplicationID"`
	RESTKey       string `yaml:"RESTKey"`

	// RefreshInterval is an ISO-8601 duration, eg. PT60S
	RefreshInterval string `yaml:"RefreshInterval"`
	LocationMaxAge  string `yaml:"LocationMaxAge"`

	MaxItems        int `yaml:"MaxItems"`
	IconConcurrency int `yaml:"IconConcurrency"`

	InitialLatitude  float64 `yaml:"InitialLatitude"`
	InitialLongitude float64 `yaml:"InitialLongitude"`

	Redis RedisConfig `yaml:"Redis"`
}

type RedisConfig struct {
	Address  string `yaml:"Address"`
	Password string `yaml:"Password"`
	Database string `yaml:"Database"`
}

func Default() Config {
	return Config{
		RefreshInterval:  DefaultRefreshInterval,
		LocationMaxAge:   DefaultLocationMaxAge,
		MaxItems:         transport.DefaultMaxItems,
		IconConcurrency:  DefaultIconConcurrency,
		InitialLatitude:  DefaultInitialLocation.Latitude,
		InitialLongitude: DefaultInitialLocation.Longitude,
	}
}

// Load builds the configuration from the defaults, the optional YAML file at path and
// finally the MOBILITY_* environment variables
func Load(path string) (Config, error) {
	config := Default()

	if path != "" {
		contents, err := os.ReadFile(path)
		if err != nil {
			return config, fmt.Errorf("read config %s: %w", path, err)
		}

		decoder := yaml.NewDecoder(bytes.NewReader(contents))
		if err := decoder.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
			return config, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := config.applyEnvironment(util.GetEnvironmentVariables()); err != nil {
		return config, err
	}

	return config, config.Validate()
}

func (c *Config) applyEnvironment(env map[string]string) error {
	c.APIURL = util.EnvironmentValue(env, "MOBILITY_API_URL", c.APIURL)
	c.ApplicationID = util.EnvironmentValue(env, "MOBILITY_APPLICATION_ID", c.ApplicationID)
	c.RESTKey = util.EnvironmentValue(env, "MOBILITY_REST_KEY", c.RESTKey)
	c.RefreshInterval = util.EnvironmentValue(env, "MOBILITY_REFRESH_INTERVAL", c.RefreshInterval)
	c.LocationMaxAge = util.EnvironmentValue(env, "MOBILITY_LOCATION_MAX_AGE", c.LocationMaxAge)

	c.Redis.Address = util.EnvironmentValue(env, "MOBILITY_REDIS_ADDRESS", c.Redis.Address)
	c.Redis.Password = util.EnvironmentValue(env, "MOBILITY_REDIS_PASSWORD", c.Redis.Password)
	c.Redis.Database = util.EnvironmentValue(env, "MOBILITY_REDIS_DATABASE", c.Redis.Database)

	if value := env["MOBILITY_MAX_ITEMS"]; value != "" {
		maxItems, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("MOBILITY_MAX_ITEMS: %w", err)
		}
		c.MaxItems = maxItems
	}

	if value := env["MOBILITY_INITIAL_LAT"]; value != "" {
		latitude, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("MOBILITY_INITIAL_LAT: %w", err)
		}
		c.InitialLatitude = latitude
	}

	if value := env["MOBILITY_INITIAL_LON"]; value != "" {
		longitude, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("MOBILITY_INITIAL_LON: %w", err)
		}
		c.InitialLongitude = longitude
	}

	return nil
}

func (c *Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("\"MOBILITY_API_URL\" not set")
	}

	parsedURL, err := url.Parse(c.APIURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return fmt.Errorf("invalid API URL %q", c.APIURL)
	}

	if c.MaxItems <= 0 {
		return fmt.Errorf("max items must be positive, got %d", c.MaxItems)
	}

	if _, err := c.RefreshRate(); err != nil {
		return err
	}
	if _, err := c.LocationMaxAgeDuration(); err != nil {
		return err
	}

	return c.InitialLocation().Validate()
}

func (c *Config) RefreshRate() (time.Duration, error) {
	rate, err := util.ParseISO8601Duration(c.RefreshInterval, time.Now())
	if err != nil {
		return 0, fmt.Errorf("refresh interval %q: %w", c.RefreshInterval, err)
	}
	if rate <= 0 {
		return 0, fmt.Errorf("refresh interval %q must be positive", c.RefreshInterval)
	}

	return rate, nil
}

// LocationMaxAgeDuration returns how long a pushed device location is trusted, zero when unset
func (c *Config) LocationMaxAgeDuration() (time.Duration, error) {
	if c.LocationMaxAge == "" {
		return 0, nil
	}

	maxAge, err := util.ParseISO8601Duration(c.LocationMaxAge, time.Now())
	if err != nil {
		return 0, fmt.Errorf("location max age %q: %w", c.LocationMaxAge, err)
	}

	return maxAge, nil
}

func (c *Config) InitialLocation() transport.TransportLocation {
	return transport.TransportLocation{Latitude: c.InitialLatitude, Longitude: c.InitialLongitude}
}

func (c *Config) RedisConnection() redis_client.Config {
	return redis_client.Config{
		Address:  c.Redis.Address,
		Password: c.Redis.Password,
		Database: c.Redis.Database,
	}
}
