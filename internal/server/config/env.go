package config

import (
	"os"
	"strconv"
	"time"
)

// parseEnv overlays configuration from environment variables. cmd/server
// imports godotenv/autoload, so a .env file next to the binary feeds this
// layer too.
func parseEnv(config *Config) {
	envString(&config.EndpointAddrHTTP, "HTTP_ADDR")
	envString(&config.EndpointAddrGRPCHealth, "GRPC_HEALTH_ADDR")
	envString(&config.DatabaseDSN, "DATABASE_DSN")
	envString(&config.SecretKey, "SECRET_KEY")
	envString(&config.EncryptionPassphrase, "ENCRYPTION_PASSPHRASE")
	envString(&config.TempDir, "TEMP_DIR")
	envString(&config.StorageBackend, "STORAGE_BACKEND")
	envString(&config.DiscordBotToken, "DISCORD_BOT_TOKEN")
	envString(&config.DiscordChannelID, "DISCORD_CHANNEL_ID")
	envString(&config.DiscordAPIBase, "DISCORD_API_BASE")
	envString(&config.S3RootUser, "S3_ROOT_USER")
	envString(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	envString(&config.S3Bucket, "S3_BUCKET")
	envString(&config.S3Region, "S3_REGION")
	envString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	envInt64(&config.ChunkSize, "CHUNK_SIZE")
	envInt(&config.UploadConcurrency, "UPLOAD_CONCURRENCY")
	envInt(&config.DownloadConcurrency, "DOWNLOAD_CONCURRENCY")
	envInt(&config.DeleteConcurrency, "DELETE_CONCURRENCY")
	envInt(&config.MaxUploadRetries, "MAX_UPLOAD_RETRIES")
	envInt(&config.MaxWorkerRestarts, "MAX_WORKER_RESTARTS")
	envDuration(&config.TokenValidityDuration, "TOKEN_VALIDITY_DURATION")
	envDuration(&config.RequestTimeout, "REQUEST_TIMEOUT")
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func envInt64(dst *int64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = parsed
		}
	}
}

func envDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}
