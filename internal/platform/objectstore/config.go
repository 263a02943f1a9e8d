package objectstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ccdi-ops/entremove-orchestrator/internal/platform/env"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Bucket    string
}

func ConfigFromEnv() (Config, error) {
	useSSL, err := env.Bool("ENTREMOVE_S3_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Endpoint:  env.String("ENTREMOVE_S3_ENDPOINT", "localhost:9000"),
		AccessKey: env.String("ENTREMOVE_S3_ACCESS_KEY", ""),
		SecretKey: env.String("ENTREMOVE_S3_SECRET_KEY", ""),
		Region:    env.String("ENTREMOVE_S3_REGION", "us-east-1"),
		UseSSL:    useSSL,
		Bucket:    env.String("ENTREMOVE_S3_BUCKET", ""),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("region is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	return nil
}
