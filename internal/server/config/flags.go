package config

import (
	"flag"
	"os"

	"github.com/Sebastian-Webster/discord-cloud-storage/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-g string   gRPC health bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-k string   chunk encryption passphrase
//	-t string   temp directory root
//	-o string   storage backend ("discord" or "s3")
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Numeric
// tunables are configured via JSON or the environment only.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-d", "-s", "-k", "-t", "-o"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run the HTTP API")
	fs.StringVar(&config.EndpointAddrGRPCHealth, "g", config.EndpointAddrGRPCHealth, "address and port for the gRPC health endpoint")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.EncryptionPassphrase, "k", config.EncryptionPassphrase, "chunk encryption passphrase")
	fs.StringVar(&config.TempDir, "t", config.TempDir, "temp directory root")
	fs.StringVar(&config.StorageBackend, "o", config.StorageBackend, "storage backend")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
