// Package config loads per-binary configuration from INGEST_-prefixed
// environment variables and validates required fields.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "INGEST_"

// Lambda configures the API Gateway handler binary.
type Lambda struct {
	TableName string `koanf:"table_name" validate:"required"`
}

// Server configures the HTTP front door binary.
type Server struct {
	TableName string `koanf:"table_name" validate:"required"`
	Addr      string `koanf:"addr" validate:"required"`
}

// Processor configures the SQS consumer binary.
type Processor struct {
	QueueName string `koanf:"queue_name" validate:"required"`
	IngestURL string `koanf:"ingest_url" validate:"required,url"`
}

func LoadLambda() (Lambda, error) {
	var cfg Lambda
	if err := load(&cfg); err != nil {
		return Lambda{}, err
	}
	if cfg.TableName == "" {
		// The provisioning sets TABLE_NAME on the function, unprefixed.
		cfg.TableName = os.Getenv("TABLE_NAME")
	}
	if err := check(cfg); err != nil {
		return Lambda{}, err
	}
	return cfg, nil
}

func LoadServer() (Server, error) {
	cfg := Server{Addr: ":8080"}
	if err := load(&cfg); err != nil {
		return Server{}, err
	}
	if cfg.TableName == "" {
		cfg.TableName = os.Getenv("TABLE_NAME")
	}
	if err := check(cfg); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func LoadProcessor() (Processor, error) {
	var cfg Processor
	if err := load(&cfg); err != nil {
		return Processor{}, err
	}
	if err := check(cfg); err != nil {
		return Processor{}, err
	}
	return cfg, nil
}

func load(out any) error {
	k := koanf.New(".")
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	if err := k.Unmarshal("", out); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

func check(cfg any) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

const defaultServiceName = "movie-ingest"

// ServiceName returns the copilot-style app-env-svc name when the copilot
// environment variables are present, or name otherwise.
func ServiceName(name string) string {
	if name == "" {
		name = defaultServiceName
	}

	app, ok := os.LookupEnv("COPILOT_APPLICATION_NAME")
	if !ok {
		return name
	}

	envName, ok := os.LookupEnv("COPILOT_ENVIRONMENT_NAME")
	if !ok {
		return name
	}

	svc, ok := os.LookupEnv("COPILOT_SERVICE_NAME")
	if !ok {
		return name
	}

	return fmt.Sprintf("%s-%s-%s", app, envName, svc)
}
