package config

import (
	"reflect"
	"strings"
	"time"

	"asset-sync/core/logger"
	"asset-sync/core/reconcile"
	"asset-sync/core/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// OSS holds the object store credentials and bucket.
	OSS storage.Config `mapstructure:"oss"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Sync holds defaults for the sync workflow.
	Sync SyncConfig `mapstructure:"sync"`
	// Cache holds the header policy written with every object.
	Cache CacheConfig `mapstructure:"cache"`
}

// SyncConfig controls listing and execution of a run.
type SyncConfig struct {
	// Concurrency is the number of transfers in flight. 1 runs sequentially.
	Concurrency int `mapstructure:"concurrency" default:"1"`
	// PageSize is the number of keys requested per listing page.
	PageSize int `mapstructure:"page_size" default:"1000"`
}

// CacheConfig is the Cache-Control policy applied on copy, upload and header updates.
type CacheConfig struct {
	// MaxAgeSeconds is the max-age directive. Defaults to one year.
	MaxAgeSeconds int64 `mapstructure:"max_age_seconds" default:"31536000"`
	// Immutable adds the immutable directive.
	Immutable bool `mapstructure:"immutable" default:"true"`
	// ContentDisposition is written when not empty (e.g. inline, attachment).
	ContentDisposition string `mapstructure:"content_disposition" default:""`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env file if it exists
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. OSS_BUCKET_NAME -> oss.bucket_name)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, field.Tag.Get("default"))
	}
}

// Headers builds the header policy of a run started at now.
func (c CacheConfig) Headers(now time.Time) reconcile.CacheHeaderSet {
	return reconcile.NewCacheHeaderSet(time.Duration(c.MaxAgeSeconds)*time.Second, c.Immutable, c.ContentDisposition, now)
}
