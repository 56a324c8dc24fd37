// Package config loads runtime configuration: a required DATABASE_URL (and a
// handful of optional tuning env vars), plus an optional JSON overlay file
// validated against an embedded schema.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/fmcsa-watch/chameleon-backend/pkg/log"
)

// ErrDatabaseURLMissing is returned by Init when DATABASE_URL is unset.
var ErrDatabaseURLMissing = errors.New("DATABASE_URL environment variable is required")

// Keys holds the process-wide configuration, populated by Init.
type Keys struct {
	DatabaseURL     string
	ExternalAPIBase string
	FetchTimeout    time.Duration
	DefaultThreshold float64
	MetricsAddr     string
	S3Bucket        string
	S3Prefix        string
	NATSURL         string
}

var defaults = Keys{
	ExternalAPIBase:  "https://data.transportation.gov",
	FetchTimeout:     120 * time.Second,
	DefaultThreshold: 30.0,
}

// Init loads ./.env if present (missing is not an error), reads environment
// variables into Keys, and applies a JSON overlay file when overlayPath is
// non-empty, validating it against the embedded schema first.
func Init(overlayPath string) (Keys, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("config: .env present but unreadable: %v", err)
	}

	k := defaults
	k.DatabaseURL = os.Getenv("DATABASE_URL")
	if k.DatabaseURL == "" {
		return k, ErrDatabaseURLMissing
	}
	if v := os.Getenv("EXTERNAL_API_BASE"); v != "" {
		k.ExternalAPIBase = v
	}
	if v := os.Getenv("FETCH_TIMEOUT_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			k.FetchTimeout = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("DEFAULT_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			k.DefaultThreshold = f
		}
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		k.MetricsAddr = v
	}
	if v := os.Getenv("EXPORT_S3_BUCKET"); v != "" {
		k.S3Bucket = v
	}
	if v := os.Getenv("EXPORT_S3_PREFIX"); v != "" {
		k.S3Prefix = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		k.NATSURL = v
	}

	if overlayPath == "" {
		return k, nil
	}

	raw, err := os.ReadFile(overlayPath)
	if err != nil {
		if os.IsNotExist(err) {
			return k, nil
		}
		return k, fmt.Errorf("config: read overlay: %w", err)
	}
	if err := Validate(bytes.NewReader(raw)); err != nil {
		return k, fmt.Errorf("config: validate overlay: %w", err)
	}
	var overlay struct {
		ExternalAPIBase  *string  `json:"external_api_base"`
		FetchTimeout     *int     `json:"fetch_timeout_seconds"`
		DefaultThreshold *float64 `json:"default_threshold"`
		MetricsAddr      *string  `json:"metrics_addr"`
		S3Bucket         *string  `json:"s3_bucket"`
		S3Prefix         *string  `json:"s3_prefix"`
		NATSURL          *string  `json:"nats_url"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&overlay); err != nil {
		return k, fmt.Errorf("config: decode overlay: %w", err)
	}
	if overlay.ExternalAPIBase != nil {
		k.ExternalAPIBase = *overlay.ExternalAPIBase
	}
	if overlay.FetchTimeout != nil {
		k.FetchTimeout = time.Duration(*overlay.FetchTimeout) * time.Second
	}
	if overlay.DefaultThreshold != nil {
		k.DefaultThreshold = *overlay.DefaultThreshold
	}
	if overlay.MetricsAddr != nil {
		k.MetricsAddr = *overlay.MetricsAddr
	}
	if overlay.S3Bucket != nil {
		k.S3Bucket = *overlay.S3Bucket
	}
	if overlay.S3Prefix != nil {
		k.S3Prefix = *overlay.S3Prefix
	}
	if overlay.NATSURL != nil {
		k.NATSURL = *overlay.NATSURL
	}

	return k, nil
}
