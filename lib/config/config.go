// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ledgerfs/ledgerfs/lib/chunk"
	"github.com/ledgerfs/ledgerfs/lib/ledger"
)

// Config is the master configuration for LedgerFS.
type Config struct {
	// Vault configures chunking and the data root.
	Vault VaultConfig `yaml:"vault"`

	// Ledger configures the hash-chained block ledger.
	Ledger LedgerConfig `yaml:"ledger"`

	// Store configures the blob store backend.
	Store StoreConfig `yaml:"store"`

	// Fuse configures the filesystem mount.
	Fuse FuseConfig `yaml:"fuse"`
}

// VaultConfig configures chunking and the data root.
type VaultConfig struct {
	// Root is the base directory for LedgerFS data. Other paths
	// default to subpaths of it and may reference it as
	// ${LEDGERFS_ROOT}.
	Root string `yaml:"root"`

	// ChunkSize is the fixed chunk size in bytes. All files in a
	// vault are split at this size; changing it on an existing vault
	// only affects new writes. Default 1024.
	ChunkSize int `yaml:"chunk_size"`
}

// LedgerConfig configures the block ledger.
type LedgerConfig struct {
	// Path is the ledger document file.
	// Default: ${LEDGERFS_ROOT}/ledger.cbor
	Path string `yaml:"path"`

	// Difficulty is the number of leading zero hex digits a block
	// hash must carry. Existing blocks were mined at the difficulty
	// in force when they were appended; raising it later makes old
	// blocks fail verification. Default 3.
	Difficulty int `yaml:"difficulty"`

	// MaxNonce caps the mining search per block. Zero means
	// unbounded.
	MaxNonce uint64 `yaml:"max_nonce"`
}

// StoreConfig configures the blob store backend and its wrappers.
type StoreConfig struct {
	// Backend selects the implementation: memory, badger, ipfs, or
	// s3. Default badger.
	Backend string `yaml:"backend"`

	// CacheSize is the entry capacity of the in-process read cache
	// in front of the backend. Zero disables the cache.
	CacheSize int `yaml:"cache_size"`

	// Badger configures the badger backend.
	Badger BadgerConfig `yaml:"badger"`

	// IPFS configures the Kubo backend.
	IPFS IPFSConfig `yaml:"ipfs"`

	// S3 configures the object-store backend.
	S3 S3Config `yaml:"s3"`

	// Sealed configures age encryption at rest. Leaving both fields
	// empty disables it. Incompatible with the ipfs backend, which
	// owns its own addressing.
	Sealed SealedConfig `yaml:"sealed"`
}

// BadgerConfig configures the embedded badger blob store.
type BadgerConfig struct {
	// Path is the database directory.
	// Default: ${LEDGERFS_ROOT}/blobs
	Path string `yaml:"path"`

	// Compression selects the at-rest algorithm for new blobs:
	// none, lz4, or zstd. Default zstd.
	Compression string `yaml:"compression"`

	// NoSync disables synchronous writes.
	NoSync bool `yaml:"no_sync"`

	// MinimumFreeBytes refuses to open the store when the
	// filesystem has less free space. Zero disables the check.
	MinimumFreeBytes uint64 `yaml:"minimum_free_bytes"`
}

// IPFSConfig configures the Kubo-backed blob store.
type IPFSConfig struct {
	// APIURL is the Kubo RPC endpoint.
	// Default: http://127.0.0.1:5001
	APIURL string `yaml:"api_url"`

	// Timeout bounds each API call, as a Go duration string
	// ("30s", "2m"). Empty means the store's default.
	Timeout string `yaml:"timeout"`
}

// S3Config configures the object-store backed blob store.
type S3Config struct {
	// Endpoint overrides endpoint resolution. Set for MinIO; leave
	// empty for AWS.
	Endpoint string `yaml:"endpoint"`

	// Region is the bucket's region.
	Region string `yaml:"region"`

	// Bucket holds the blobs. It must already exist.
	Bucket string `yaml:"bucket"`

	// AccessKeyID and SecretAccessKey form a static credential
	// pair. Empty AccessKeyID defers to the SDK's ambient chain.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`

	// PathStyle forces path-style addressing. Required for MinIO.
	PathStyle bool `yaml:"path_style"`
}

// SealedConfig configures age encryption at rest.
type SealedConfig struct {
	// Recipients are age X25519 public keys new blobs are encrypted
	// to. Required to write.
	Recipients []string `yaml:"recipients"`

	// IdentityFile is the path of an age identities file used for
	// decryption. Required to read.
	IdentityFile string `yaml:"identity_file"`
}

// FuseConfig configures the filesystem mount.
type FuseConfig struct {
	// Mountpoint is the directory the vault is mounted onto. The
	// directory must exist.
	Mountpoint string `yaml:"mountpoint"`

	// AllowOther lets users other than the mounting one access the
	// filesystem. Requires user_allow_other in /etc/fuse.conf.
	AllowOther bool `yaml:"allow_other"`
}

// Default returns the default configuration: a single-machine vault
// with badger blobs and the ledger under ~/.local/share/ledgerfs.
// These defaults make every field usable before a file is loaded;
// the file overrides whatever it names.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".local", "share", "ledgerfs")

	return &Config{
		Vault: VaultConfig{
			Root:      defaultRoot,
			ChunkSize: chunk.DefaultSize,
		},
		Ledger: LedgerConfig{
			Path:       filepath.Join(defaultRoot, "ledger.cbor"),
			Difficulty: ledger.DefaultDifficulty,
		},
		Store: StoreConfig{
			Backend: "badger",
			Badger: BadgerConfig{
				Path:        filepath.Join(defaultRoot, "blobs"),
				Compression: "zstd",
			},
			IPFS: IPFSConfig{
				APIURL: "http://127.0.0.1:5001",
			},
		},
	}
}

// Load loads configuration from the file named by the
// LEDGERFS_CONFIG environment variable.
//
// This is the only way to load configuration without an explicit
// path. There are no fallbacks: if LEDGERFS_CONFIG is not set, Load
// fails.
func Load() (*Config, error) {
	configPath := os.Getenv("LEDGERFS_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("LEDGERFS_CONFIG environment variable not set; " +
			"set it to the path of your ledgerfs.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment
// variables do not override config values; the only expansion
// performed is ${HOME} and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the
// current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, c)
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in
// path fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"LEDGERFS_ROOT": c.Vault.Root,
		"HOME":          os.Getenv("HOME"),
	}

	c.Vault.Root = expandVars(c.Vault.Root, vars)
	vars["LEDGERFS_ROOT"] = c.Vault.Root // Update for dependent paths.

	c.Ledger.Path = expandVars(c.Ledger.Path, vars)
	c.Store.Badger.Path = expandVars(c.Store.Badger.Path, vars)
	c.Store.Sealed.IdentityFile = expandVars(c.Store.Sealed.IdentityFile, vars)
	c.Fuse.Mountpoint = expandVars(c.Fuse.Mountpoint, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// backends and compressions are the accepted enum values.
var (
	backends     = []string{"memory", "badger", "ipfs", "s3"}
	compressions = []string{"", "none", "lz4", "zstd"}
)

// Validate checks the configuration for errors. All problems are
// reported at once via errors.Join, so an operator fixes the file in
// one pass.
func (c *Config) Validate() error {
	var errs []error

	if c.Vault.Root == "" {
		errs = append(errs, fmt.Errorf("vault.root is required"))
	}
	if c.Vault.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("vault.chunk_size must be positive, got %d", c.Vault.ChunkSize))
	}

	if c.Ledger.Path == "" {
		errs = append(errs, fmt.Errorf("ledger.path is required"))
	}
	if c.Ledger.Difficulty < 1 || c.Ledger.Difficulty > 64 {
		errs = append(errs, fmt.Errorf("ledger.difficulty must be between 1 and 64, got %d", c.Ledger.Difficulty))
	}

	if !contains(backends, c.Store.Backend) {
		errs = append(errs, fmt.Errorf("store.backend must be one of: %v", backends))
	}
	if c.Store.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("store.cache_size must not be negative, got %d", c.Store.CacheSize))
	}

	switch c.Store.Backend {
	case "badger":
		if c.Store.Badger.Path == "" {
			errs = append(errs, fmt.Errorf("store.badger.path is required for the badger backend"))
		}
		if !contains(compressions, c.Store.Badger.Compression) {
			errs = append(errs, fmt.Errorf("store.badger.compression must be one of: none, lz4, zstd"))
		}
	case "ipfs":
		if c.Store.IPFS.APIURL == "" {
			errs = append(errs, fmt.Errorf("store.ipfs.api_url is required for the ipfs backend"))
		}
		if c.Store.IPFS.Timeout != "" {
			if _, err := time.ParseDuration(c.Store.IPFS.Timeout); err != nil {
				errs = append(errs, fmt.Errorf("store.ipfs.timeout: %w", err))
			}
		}
	case "s3":
		if c.Store.S3.Bucket == "" {
			errs = append(errs, fmt.Errorf("store.s3.bucket is required for the s3 backend"))
		}
		if c.Store.S3.Region == "" {
			errs = append(errs, fmt.Errorf("store.s3.region is required for the s3 backend"))
		}
	}

	if c.SealedEnabled() && c.Store.Backend == "ipfs" {
		errs = append(errs, fmt.Errorf("store.sealed cannot wrap the ipfs backend: " +
			"CIDs are derived from stored bytes, so ciphertext would change every address"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// SealedEnabled reports whether encryption at rest is configured.
func (c *Config) SealedEnabled() bool {
	return len(c.Store.Sealed.Recipients) > 0 || c.Store.Sealed.IdentityFile != ""
}

// EnsurePaths creates the configured data directories if they don't
// exist. Remote backends need nothing created; the ledger's parent
// directory is always ensured.
func (c *Config) EnsurePaths() error {
	paths := []string{
		c.Vault.Root,
		filepath.Dir(c.Ledger.Path),
	}
	if c.Store.Backend == "badger" {
		paths = append(paths, c.Store.Badger.Path)
	}

	for _, path := range paths {
		if path == "" || path == "." {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}

	return nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
