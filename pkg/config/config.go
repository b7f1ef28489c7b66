package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DeviceConfig describes one appliance under test: its management address
// and the REST admin account used for API access.
type DeviceConfig struct {
	Management string `mapstructure:"management"`
	RestAdmin  struct {
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
	} `mapstructure:"rest_admin"`
}

type Config struct {
	Devices map[string]DeviceConfig `mapstructure:"devices"`

	Client struct {
		Realm             string        `mapstructure:"realm"`
		Timeout           time.Duration `mapstructure:"timeout"`
		InsecureSkipTLS   bool          `mapstructure:"insecure_skip_tls"`
		RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	} `mapstructure:"client"`

	Database struct {
		Driver          string        `mapstructure:"driver"`
		Host            string        `mapstructure:"host"`
		Port            int           `mapstructure:"port"`
		Username        string        `mapstructure:"username"`
		Password        string        `mapstructure:"password"`
		Database        string        `mapstructure:"database"`
		SSLMode         string        `mapstructure:"sslmode"`
		MaxConnections  int           `mapstructure:"max_connections"`
		MaxIdleConns    int           `mapstructure:"max_idle_connections"`
		ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
		ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
		Retry           struct {
			MaxAttempts     int           `mapstructure:"max_attempts"`
			InitialDelay    time.Duration `mapstructure:"initial_delay"`
			MaxDelay        time.Duration `mapstructure:"max_delay"`
			BackoffMultiple float64       `mapstructure:"backoff_multiple"`
		} `mapstructure:"retry"`
	} `mapstructure:"database"`

	API struct {
		Port    int    `mapstructure:"port"`
		TLSCert string `mapstructure:"tls_cert"`
		TLSKey  string `mapstructure:"tls_key"`
	} `mapstructure:"api"`

	Auth struct {
		TokenSecret string        `mapstructure:"token_secret"`
		TokenExpiry time.Duration `mapstructure:"token_expiry"`
		Realms      []string      `mapstructure:"realms"`
	} `mapstructure:"auth"`

	InitialAdmin struct {
		Enabled  bool   `mapstructure:"enabled"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
	} `mapstructure:"initial_admin"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

func Load() (*Config, error) {
	viper.SetDefault("client.realm", "Admin Users")
	viper.SetDefault("client.timeout", "10s")
	viper.SetDefault("client.insecure_skip_tls", true)
	viper.SetDefault("client.requests_per_second", 10.0)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.username", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.database", "ppsrest")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.max_idle_connections", 10)
	viper.SetDefault("database.conn_max_lifetime", "1h")
	viper.SetDefault("database.conn_max_idle_time", "10m")
	viper.SetDefault("database.retry.max_attempts", 30)
	viper.SetDefault("database.retry.initial_delay", "2s")
	viper.SetDefault("database.retry.max_delay", "30s")
	viper.SetDefault("database.retry.backoff_multiple", 1.5)
	viper.SetDefault("api.port", 8443)
	// Token secret MUST be explicitly configured - no insecure default
	if os.Getenv("PPSREST_AUTH_TOKEN_SECRET") == "" {
		log.Println("WARNING: token secret not configured. Set PPSREST_AUTH_TOKEN_SECRET environment variable.")
		viper.SetDefault("auth.token_secret", "development-secret-change-in-production")
	}
	viper.SetDefault("auth.token_expiry", "1h")
	viper.SetDefault("auth.realms", []string{"Admin Users"})
	viper.SetDefault("log.level", "info")

	viper.SetEnvPrefix("PPSREST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/ppsrest/")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Device resolves a device entry by ordinal. Device 1 is the entry named
// "device"; device N is "device_N", matching how the test framework named
// appliances in its settings file.
func (c *Config) Device(id int) (DeviceConfig, error) {
	name := "device"
	if id > 1 {
		name = fmt.Sprintf("device_%d", id)
	}
	return c.DeviceByName(name)
}

// DeviceByName resolves a device entry by its configured name.
func (c *Config) DeviceByName(name string) (DeviceConfig, error) {
	dev, ok := c.Devices[name]
	if !ok {
		return DeviceConfig{}, fmt.Errorf("device %q not found in configuration", name)
	}
	if dev.Management == "" {
		return DeviceConfig{}, fmt.Errorf("device %q has no management address", name)
	}
	return dev, nil
}
