// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aplane-algo/zilstore/internal/kdf"
	"github.com/aplane-algo/zilstore/internal/keyerr"

	"gopkg.in/yaml.v3"
)

// DefaultRPCURL is the public developer network endpoint
const DefaultRPCURL = "https://dev-api.zilliqa.com"

// DataDirEnv overrides the default data directory
const DataDirEnv = "ZILSTORE_DATA"

// Config holds zilstore configuration settings
type Config struct {
	KDF              string `yaml:"kdf" description:"KDF for new keystore records (scrypt, pbkdf2)" default:"scrypt"`
	ScryptN          int    `yaml:"scrypt_n" description:"scrypt cost, power of two" default:"8192"`
	ScryptR          int    `yaml:"scrypt_r" description:"scrypt block size" default:"8"`
	ScryptP          int    `yaml:"scrypt_p" description:"scrypt parallelism" default:"1"`
	PBKDF2Iterations int    `yaml:"pbkdf2_iterations" description:"PBKDF2-HMAC-SHA256 iteration count" default:"262144"`

	KeystoreDir    string `yaml:"keystore_dir" description:"Keystore directory (relative to data dir)" default:"keystore"`
	DecryptWorkers int    `yaml:"decrypt_workers" description:"Concurrent decryptions when loading a wallet" default:"2"`

	RPCURL            string  `yaml:"rpc_url" description:"JSON-RPC endpoint" default:"https://dev-api.zilliqa.com"`
	RPCTimeoutSeconds int     `yaml:"rpc_timeout_seconds" description:"Per-request timeout" default:"30"`
	RPCRateLimit      float64 `yaml:"rpc_rate_limit" description:"Max requests per second (0 = unlimited)" default:"0"`

	PassphraseCommand    []string          `yaml:"passphrase_command,omitempty" description:"Helper argv that prints the keystore passphrase"`
	PassphraseCommandEnv map[string]string `yaml:"passphrase_command_env,omitempty" description:"Environment passed to the passphrase helper"`

	LockMemory bool `yaml:"lock_memory" description:"Lock process memory with mlockall before decrypting keys" default:"false"`
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() Config {
	return Config{
		KDF:               string(kdf.Scrypt),
		ScryptN:           kdf.DefaultScryptN,
		ScryptR:           kdf.DefaultScryptR,
		ScryptP:           kdf.DefaultScryptP,
		PBKDF2Iterations:  kdf.DefaultIterations,
		KeystoreDir:       "keystore",
		DecryptWorkers:    2,
		RPCURL:            DefaultRPCURL,
		RPCTimeoutSeconds: 30,
	}
}

// GetDataDir returns the data directory.
// Resolution order: -d flag > ZILSTORE_DATA env var > ~/.zilstore
func GetDataDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envDir := os.Getenv(DataDirEnv); envDir != "" {
		return envDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".zilstore")
}

// GetConfigPath returns the path to config.yaml in dataDir, or "" if dataDir is empty
func GetConfigPath(dataDir string) string {
	if dataDir == "" {
		return ""
	}
	return filepath.Join(dataDir, "config.yaml")
}

// ResolvePath makes a relative path absolute against baseDir and expands a leading ~.
func ResolvePath(path, baseDir string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	if filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}

// LoadConfig loads config.yaml from dataDir.
// A missing file yields the defaults; keystore_dir is resolved against dataDir.
func LoadConfig(dataDir string) (Config, error) {
	config, err := LoadConfigFromPath(GetConfigPath(dataDir))
	if err != nil {
		return config, err
	}
	config.KeystoreDir = ResolvePath(config.KeystoreDir, dataDir)
	if len(config.PassphraseCommand) > 0 {
		config.PassphraseCommand[0] = ResolvePath(config.PassphraseCommand[0], dataDir)
		if err := config.PassphraseHelper().Validate(); err != nil {
			return Config{}, err
		}
	}
	return config, nil
}

// LoadConfigFromPath loads configuration from path.
// An empty path or missing file returns DefaultConfig.
func LoadConfigFromPath(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay config file values
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("%w: failed to parse config file: %v", keyerr.ErrConfiguration, err)
	}

	config.fillDefaults()
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// fillDefaults replaces zero values left by explicit empty keys
func (c *Config) fillDefaults() {
	d := DefaultConfig()
	if c.KDF == "" {
		c.KDF = d.KDF
	}
	if c.ScryptN == 0 {
		c.ScryptN = d.ScryptN
	}
	if c.ScryptR == 0 {
		c.ScryptR = d.ScryptR
	}
	if c.ScryptP == 0 {
		c.ScryptP = d.ScryptP
	}
	if c.PBKDF2Iterations == 0 {
		c.PBKDF2Iterations = d.PBKDF2Iterations
	}
	if c.KeystoreDir == "" {
		c.KeystoreDir = d.KeystoreDir
	}
	if c.DecryptWorkers == 0 {
		c.DecryptWorkers = d.DecryptWorkers
	}
	if c.RPCURL == "" {
		c.RPCURL = d.RPCURL
	}
	if c.RPCTimeoutSeconds == 0 {
		c.RPCTimeoutSeconds = d.RPCTimeoutSeconds
	}
}

// Validate checks every field. All failures wrap keyerr.ErrConfiguration.
func (c *Config) Validate() error {
	if _, err := kdf.ParseKind(c.KDF); err != nil {
		return err
	}

	// Validate against a placeholder salt; only the cost parameters matter here
	salt := []byte{0}
	scrypt := kdf.ScryptParams{N: c.ScryptN, R: c.ScryptR, P: c.ScryptP, KeyLen: kdf.DefaultDKLen, SaltBuf: salt}
	if err := scrypt.Validate(); err != nil {
		return err
	}
	pbkdf2 := kdf.PBKDF2Params{C: c.PBKDF2Iterations, KeyLen: kdf.DefaultDKLen, SaltBuf: salt}
	if err := pbkdf2.Validate(); err != nil {
		return err
	}

	if c.DecryptWorkers < 1 {
		return fmt.Errorf("%w: decrypt_workers must be at least 1", keyerr.ErrConfiguration)
	}
	u, err := url.Parse(c.RPCURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: rpc_url must be an http(s) URL, got %q", keyerr.ErrConfiguration, c.RPCURL)
	}
	if c.RPCTimeoutSeconds < 0 {
		return fmt.Errorf("%w: rpc_timeout_seconds must not be negative", keyerr.ErrConfiguration)
	}
	if c.RPCRateLimit < 0 {
		return fmt.Errorf("%w: rpc_rate_limit must not be negative", keyerr.ErrConfiguration)
	}
	return nil
}

// KDFKind returns the configured KDF for new records
func (c *Config) KDFKind() kdf.Kind {
	kind, err := kdf.ParseKind(c.KDF)
	if err != nil {
		return kdf.Scrypt
	}
	return kind
}

// PassphraseHelper returns the configured passphrase helper, or nil
func (c *Config) PassphraseHelper() *PassphraseCommand {
	if len(c.PassphraseCommand) == 0 {
		return nil
	}
	return &PassphraseCommand{Argv: c.PassphraseCommand, Env: c.PassphraseCommandEnv}
}

// RPCTimeout returns the per-request timeout
func (c *Config) RPCTimeout() time.Duration {
	return time.Duration(c.RPCTimeoutSeconds) * time.Second
}

// DisplayConfig prints the effective configuration
func DisplayConfig(dataDir string) {
	config, err := LoadConfig(dataDir)

	fmt.Println("Current Configuration:")
	fmt.Println("=====================")
	fmt.Printf("Data dir:    %s\n", dataDir)
	fmt.Printf("Config file: %s\n", GetConfigPath(dataDir))
	if err != nil {
		fmt.Printf("Error:       %v\n", err)
		fmt.Println()
		return
	}
	fmt.Printf("KDF:         %s\n", config.KDF)
	fmt.Printf("scrypt:      n=%d r=%d p=%d\n", config.ScryptN, config.ScryptR, config.ScryptP)
	fmt.Printf("pbkdf2:      c=%d\n", config.PBKDF2Iterations)
	fmt.Printf("Keystore:    %s\n", config.KeystoreDir)
	fmt.Printf("Workers:     %d\n", config.DecryptWorkers)
	fmt.Printf("RPC URL:     %s\n", config.RPCURL)
	fmt.Printf("RPC timeout: %s\n", config.RPCTimeout())
	if config.RPCRateLimit > 0 {
		fmt.Printf("RPC limit:   %.1f req/s\n", config.RPCRateLimit)
	} else {
		fmt.Printf("RPC limit:   unlimited\n")
	}
	if len(config.PassphraseCommand) > 0 {
		fmt.Printf("Passphrase:  %s\n", config.PassphraseCommand[0])
	}
	fmt.Printf("Memory lock: %v\n", config.LockMemory)
	fmt.Println()
}
