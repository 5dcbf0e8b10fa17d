package filestore

import (
	"testing"

	"github.com/koustreak/dbstream/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjectURL(t *testing.T) {
	tests := []struct {
		in     string
		bucket string
		key    string
		ok     bool
	}{
		{"s3://exports/orders.csv", "exports", "orders.csv", true},
		{"S3://exports/2024/06/orders.bin", "exports", "2024/06/orders.bin", true},
		{"s3://exports/", "", "", false},
		{"s3://exports", "", "", false},
		{"s3:///orders.csv", "", "", false},
		{"/tmp/orders.csv", "", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			bucket, key, err := ParseObjectURL(tt.in)
			if !tt.ok {
				require.Error(t, err)
				assert.True(t, errs.IsInvalidInput(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestIsObjectURL(t *testing.T) {
	assert.True(t, IsObjectURL("s3://b/k"))
	assert.False(t, IsObjectURL("out.csv"))
	assert.False(t, IsObjectURL("file:s3://b/k"))
}

func env(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestConfigFromEnv(t *testing.T) {
	cfg, err := ConfigFromEnv(env(map[string]string{
		EnvEndpoint:  "minio:9000",
		EnvAccessKey: "minioadmin",
		EnvSecretKey: " minioadmin ",
		EnvUseSSL:    "true",
		EnvRegion:    "eu-west-1",
	}))
	require.NoError(t, err)

	assert.Equal(t, ProviderMinIO, cfg.Provider)
	assert.Equal(t, "minio:9000", cfg.Endpoint)
	assert.Equal(t, "minioadmin", cfg.SecretKey)
	assert.True(t, cfg.UseSSL)
	assert.Equal(t, "eu-west-1", cfg.Region)
}

func TestConfigFromEnvErrors(t *testing.T) {
	_, err := ConfigFromEnv(env(nil))
	assert.True(t, errs.IsInvalidInput(err), "missing endpoint")

	_, err = ConfigFromEnv(env(map[string]string{EnvEndpoint: "minio:9000"}))
	assert.True(t, errs.IsInvalidInput(err), "missing credentials")

	_, err = ConfigFromEnv(env(map[string]string{
		EnvEndpoint:  "minio:9000",
		EnvAccessKey: "a",
		EnvSecretKey: "b",
		EnvUseSSL:    "sometimes",
	}))
	assert.True(t, errs.IsInvalidInput(err), "bad bool")
}
