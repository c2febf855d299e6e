package storage

import (
	"fmt"
	"strings"
)

// Driver names accepted in Config.Driver.
const (
	DriverMinio = "minio"
	DriverS3    = "s3"
)

// Config holds configuration for the object store.
// Keys map to OSS_* environment variables (e.g. access_key_id -> OSS_ACCESS_KEY_ID).
type Config struct {
	// Endpoint is the host of the storage service. Derived from Region when empty.
	Endpoint string `mapstructure:"endpoint" default:""`
	// AccessKeyID is the access key ID for authentication.
	AccessKeyID string `mapstructure:"access_key_id" default:""`
	// AccessKeySecret is the secret access key for authentication.
	AccessKeySecret string `mapstructure:"access_key_secret" default:""`
	// Region is the location of the bucket (e.g., oss-cn-shanghai).
	Region string `mapstructure:"region" default:"oss-cn-shanghai"`
	// BucketName is the bucket holding the site assets.
	BucketName string `mapstructure:"bucket_name" default:""`
	// UseSSL indicates whether to use SSL/TLS for connections.
	UseSSL bool `mapstructure:"use_ssl" default:"true"`
	// Driver selects the SDK used to talk to the store (minio, s3).
	Driver string `mapstructure:"driver" default:"minio"`
	// TimeoutSeconds is the connection timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}

// Validate checks that everything needed to reach the store is present.
// It never touches the network.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.AccessKeyID) == "" {
		missing = append(missing, "OSS_ACCESS_KEY_ID")
	}
	if strings.TrimSpace(c.AccessKeySecret) == "" {
		missing = append(missing, "OSS_ACCESS_KEY_SECRET")
	}
	if strings.TrimSpace(c.BucketName) == "" {
		missing = append(missing, "OSS_BUCKET_NAME")
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}

	switch c.Driver {
	case "", DriverMinio, DriverS3:
	default:
		return &ConfigurationError{Reason: fmt.Sprintf("unknown driver %q", c.Driver)}
	}
	return nil
}

// ResolvedEndpoint returns the configured endpoint without scheme,
// falling back to the public OSS endpoint of the region.
func (c Config) ResolvedEndpoint() string {
	endpoint := strings.TrimPrefix(c.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimSuffix(endpoint, "/")
	if endpoint == "" && c.Region != "" {
		endpoint = c.Region + ".aliyuncs.com"
	}
	return endpoint
}

// EndpointURL returns the resolved endpoint with a scheme matching UseSSL.
func (c Config) EndpointURL() string {
	scheme := "http"
	if c.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + c.ResolvedEndpoint()
}
