package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/akarpov/deskpad/internal/flagx"
	"github.com/akarpov/deskpad/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Intervals
// rely on timex.Duration so JSON can specify them either as strings like
// "3s" or as integer nanoseconds.
type JsonConfig struct {
	DatabaseDSN      string         `json:"database_dsn"`
	TokenSecret      string         `json:"token_secret"`
	TokenTTL         timex.Duration `json:"token_ttl"`
	DayCheckInterval timex.Duration `json:"day_check_interval"`
	S3Bucket         string         `json:"s3_bucket"`
	S3Region         string         `json:"s3_region"`
	S3Endpoint       string         `json:"s3_endpoint"`
	S3AccessKey      string         `json:"s3_access_key"`
	S3SecretKey      string         `json:"s3_secret_key"`
	BackupInterval   timex.Duration `json:"backup_interval"`
	BackupPassphrase string         `json:"backup_passphrase"`
}

// parseJson overlays cfg with values from the JSON file given via -c or
// -config. Absent flags mean no JSON is loaded; only fields present in the
// file override. Read or unmarshal errors panic, the caller decides
// whether to recover.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.TokenSecret != "" {
		cfg.TokenSecret = jc.TokenSecret
	}
	if jc.TokenTTL.Duration != 0 {
		cfg.TokenTTL = time.Duration(jc.TokenTTL.Duration)
	}
	if jc.DayCheckInterval.Duration != 0 {
		cfg.DayCheckInterval = time.Duration(jc.DayCheckInterval.Duration)
	}
	if jc.S3Bucket != "" {
		cfg.S3Bucket = jc.S3Bucket
	}
	if jc.S3Region != "" {
		cfg.S3Region = jc.S3Region
	}
	if jc.S3Endpoint != "" {
		cfg.S3Endpoint = jc.S3Endpoint
	}
	if jc.S3AccessKey != "" {
		cfg.S3AccessKey = jc.S3AccessKey
	}
	if jc.S3SecretKey != "" {
		cfg.S3SecretKey = jc.S3SecretKey
	}
	if jc.BackupInterval.Duration != 0 {
		cfg.BackupInterval = time.Duration(jc.BackupInterval.Duration)
	}
	if jc.BackupPassphrase != "" {
		cfg.BackupPassphrase = jc.BackupPassphrase
	}
}
