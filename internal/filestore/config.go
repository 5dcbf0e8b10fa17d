package filestore

import (
	"strconv"
	"strings"

	"github.com/koustreak/dbstream/internal/errs"
)

// Provider identifies the file storage backend.
type Provider string

const (
	ProviderMinIO Provider = "minio"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvEndpoint  = "DBSTREAM_S3_ENDPOINT"
	EnvAccessKey = "DBSTREAM_S3_ACCESS_KEY"
	EnvSecretKey = "DBSTREAM_S3_SECRET_KEY"
	EnvUseSSL    = "DBSTREAM_S3_USE_SSL"
	EnvRegion    = "DBSTREAM_S3_REGION"
)

// Config holds all settings needed to connect to a file storage backend.
type Config struct {
	// Provider is the storage backend (e.g. ProviderMinIO).
	Provider Provider

	// Endpoint is the host:port of the storage server.
	// Example: "localhost:9000" for local MinIO.
	Endpoint string

	AccessKey string
	SecretKey string

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool

	// Region is used by region-aware backends. Leave empty for MinIO.
	Region string
}

// DefaultConfig returns a local-dev config for MinIO.
func DefaultConfig(endpoint, accessKey, secretKey string) *Config {
	return &Config{
		Provider:  ProviderMinIO,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
	}
}

// ConfigFromEnv builds a MinIO config from the DBSTREAM_S3_* variables
// reported by lookup (normally os.LookupEnv).
func ConfigFromEnv(lookup func(string) (string, bool)) (*Config, error) {
	get := func(k string) string {
		v, _ := lookup(k)
		return strings.TrimSpace(v)
	}

	cfg := DefaultConfig(get(EnvEndpoint), get(EnvAccessKey), get(EnvSecretKey))
	cfg.Region = get(EnvRegion)
	if v := get(EnvUseSSL); v != "" {
		ssl, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, EnvUseSSL+" must be a boolean", err)
		}
		cfg.UseSSL = ssl
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports a missing endpoint or credentials.
func (c *Config) Validate() error {
	switch {
	case c.Endpoint == "":
		return errs.New(errs.ErrKindInvalidInput, "object store endpoint is required")
	case c.AccessKey == "" || c.SecretKey == "":
		return errs.New(errs.ErrKindInvalidInput, "object store credentials are required")
	}
	return nil
}
