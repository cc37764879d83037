// Package config loads all process configuration once at startup. No other
// package reads environment state; components receive what they need from
// this struct.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Addr            string
	InferenceAddr   string
	DatabaseURL     string
	PolicyPath      string
	DataDir         string
	ReportDir       string
	EventsDir       string
	TrainerURL      string
	ExperimentName  string
	ModelName       string
	KafkaBrokers    []string
	KafkaTopic      string
	S3Bucket        string
	S3Prefix        string
	AuthSecret      string
	AllowDebugToken bool
	DebugToken      string
}

const (
	defaultAddr          = ":8071"
	defaultInferenceAddr = ":8072"
	defaultPolicyPath    = "policies/promotion.yaml"
	defaultDataDir       = "shared/data"
	defaultReportDir     = "shared/reports"
	defaultEventsDir     = "shared/events"
	defaultExperiment    = "fraud-demo"
	defaultModelName     = "fraud_detector"
)

func Load() (Config, error) {
	cfg := Config{
		Addr:            getEnv("CP_ADDR", defaultAddr),
		InferenceAddr:   getEnv("CP_INFERENCE_ADDR", defaultInferenceAddr),
		DatabaseURL:     firstNonEmpty(os.Getenv("CP_DATABASE_URL"), os.Getenv("DATABASE_URL")),
		PolicyPath:      getEnv("CP_POLICY_PATH", defaultPolicyPath),
		DataDir:         getEnv("CP_DATA_DIR", defaultDataDir),
		ReportDir:       getEnv("CP_REPORT_DIR", defaultReportDir),
		EventsDir:       getEnv("CP_EVENTS_DIR", defaultEventsDir),
		TrainerURL:      os.Getenv("CP_TRAINER_URL"),
		ExperimentName:  getEnv("CP_EXPERIMENT_NAME", defaultExperiment),
		ModelName:       getEnv("CP_MODEL_NAME", defaultModelName),
		KafkaBrokers:    splitList(os.Getenv("CP_KAFKA_BROKERS")),
		KafkaTopic:      os.Getenv("CP_KAFKA_TOPIC"),
		S3Bucket:        os.Getenv("CP_S3_BUCKET"),
		S3Prefix:        os.Getenv("CP_S3_PREFIX"),
		AuthSecret:      os.Getenv("CP_AUTH_SECRET"),
		AllowDebugToken: getBool("CP_ALLOW_DEBUG_TOKEN", false),
		DebugToken:      os.Getenv("CP_DEBUG_TOKEN"),
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return Config{}, fmt.Errorf("CP_KAFKA_TOPIC required when CP_KAFKA_BROKERS set")
	}
	if cfg.AllowDebugToken && cfg.DebugToken == "" {
		return Config{}, fmt.Errorf("CP_DEBUG_TOKEN required when CP_ALLOW_DEBUG_TOKEN=true")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
