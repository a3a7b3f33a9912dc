package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/Sebastian-Webster/discord-cloud-storage/internal/flagx"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/timex"
)

// JsonConfig is the DTO for JSON configuration files. Interval fields use
// timex.Duration, which accepts both strings such as "60s" and integer
// nanoseconds. After unmarshalling, non-zero fields are copied into the
// runtime Config.
type JsonConfig struct {
	EndpointAddrHTTP       string         `json:"endpoint_addr_http"`
	EndpointAddrGRPCHealth string         `json:"endpoint_addr_grpc_health"`
	DatabaseDSN            string         `json:"database_dsn"`
	SecretKey              string         `json:"secret_key"`
	EncryptionPassphrase   string         `json:"encryption_passphrase"`
	TokenValidityDuration  timex.Duration `json:"token_validity_duration"`
	TempDir                string         `json:"temp_dir"`
	StorageBackend         string         `json:"storage_backend"`
	DiscordBotToken        string         `json:"discord_bot_token"`
	DiscordChannelID       string         `json:"discord_channel_id"`
	DiscordAPIBase         string         `json:"discord_api_base"`
	S3RootUser             string         `json:"s3_root_user"`
	S3RootPassword         string         `json:"s3_root_password"`
	S3Bucket               string         `json:"s3_bucket"`
	S3Region               string         `json:"s3_region"`
	S3BaseEndpoint         string         `json:"s3_base_endpoint"`
	ChunkSize              int64          `json:"chunk_size"`
	UploadConcurrency      int            `json:"upload_concurrency"`
	DownloadConcurrency    int            `json:"download_concurrency"`
	DeleteConcurrency      int            `json:"delete_concurrency"`
	MaxUploadRetries       int            `json:"max_upload_retries"`
	MaxWorkerRestarts      int            `json:"max_worker_restarts"`
	RequestTimeout         timex.Duration `json:"request_timeout"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path is taken from the -c or -config command-line flags; if
// neither is set, no JSON file is loaded. An unreadable or invalid file
// panics: a misconfigured server must not start.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPCHealth, c.EndpointAddrGRPCHealth)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.EncryptionPassphrase, c.EncryptionPassphrase)
	setString(&config.TempDir, c.TempDir)
	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.DiscordBotToken, c.DiscordBotToken)
	setString(&config.DiscordChannelID, c.DiscordChannelID)
	setString(&config.DiscordAPIBase, c.DiscordAPIBase)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	if c.TokenValidityDuration.Duration != 0 {
		config.TokenValidityDuration = time.Duration(c.TokenValidityDuration.Duration)
	}
	if c.RequestTimeout.Duration != 0 {
		config.RequestTimeout = time.Duration(c.RequestTimeout.Duration)
	}
	if c.ChunkSize != 0 {
		config.ChunkSize = c.ChunkSize
	}
	setInt(&config.UploadConcurrency, c.UploadConcurrency)
	setInt(&config.DownloadConcurrency, c.DownloadConcurrency)
	setInt(&config.DeleteConcurrency, c.DeleteConcurrency)
	setInt(&config.MaxUploadRetries, c.MaxUploadRetries)
	setInt(&config.MaxWorkerRestarts, c.MaxWorkerRestarts)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
