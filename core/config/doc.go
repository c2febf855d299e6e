// Package config provides configuration management for asset-sync.
//
// Values come from environment variables, optionally seeded from a .env file
// next to the binary. Every key has a default declared in its struct tag.
//
// # Configuration Structure
//
//   - OSS: object store credentials, bucket, endpoint and driver (OSS_*)
//   - Log: logging level and format (LOG_*)
//   - Sync: concurrency and listing page size (SYNC_*)
//   - Cache: Cache-Control policy (CACHE_*)
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    return err
//	}
//	if err := cfg.OSS.Validate(); err != nil {
//	    return err
//	}
package config
