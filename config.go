package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/foodshare/food-recognition-service/classification"
	"github.com/joho/godotenv"
)

// Config holds process settings read from the environment.
type Config struct {
	Host           string
	Port           int
	Debug          bool
	AssetsRoot     string
	ModelFile      string
	ModelPathEnv   string
	OnnxLibPath    string
	PoolSize       int
	WarmPool       bool
	AcquireTimeout time.Duration
	IntraOpThreads int
	InterOpThreads int
	ChannelOrder   classification.ChannelOrder
	MaxBodyBytes   int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

const (
	DefaultPort           = 5000
	DefaultPoolSize       = 4
	DefaultAcquireTimeout = 5 * time.Second
	DefaultMaxBodyBytes   = 50 << 20
	DefaultServerTimeout  = 60 * time.Second
)

// LoadConfig seeds the environment from a .env file when one exists and
// parses the settings.
func LoadConfig() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	return configFromEnv(os.Getenv)
}

// loadDotEnv applies path to the environment without overriding variables
// that are already set. A missing file is not an error; a malformed one is.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func configFromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Host:           "0.0.0.0",
		Port:           DefaultPort,
		Debug:          true,
		ModelFile:      classification.DefaultModelFile,
		OnnxLibPath:    defaultOnnxLibPath(),
		PoolSize:       DefaultPoolSize,
		AcquireTimeout: DefaultAcquireTimeout,
		IntraOpThreads: runtime.NumCPU(),
		InterOpThreads: runtime.NumCPU(),
		ChannelOrder:   classification.OrderBGR,
		MaxBodyBytes:   DefaultMaxBodyBytes,
		ReadTimeout:    DefaultServerTimeout,
		WriteTimeout:   DefaultServerTimeout,
	}

	if v := getenv("HOST"); v != "" {
		cfg.Host = v
	}
	if v := getenv("ASSETS_ROOT"); v != "" {
		cfg.AssetsRoot = v
	}
	if v := getenv("MODEL_FILE"); v != "" {
		cfg.ModelFile = v
	}
	cfg.ModelPathEnv = getenv("MODEL_PATH")
	if v := getenv("ONNXRUNTIME_LIB"); v != "" {
		cfg.OnnxLibPath = v
	}
	if v := getenv("CHANNEL_ORDER"); v != "" {
		order, ok := classification.ParseChannelOrder(v)
		if !ok {
			return nil, fmt.Errorf("invalid CHANNEL_ORDER %q: want bgr or rgb", v)
		}
		cfg.ChannelOrder = order
	}

	var err error
	if cfg.Port, err = intEnv(getenv, "PORT", cfg.Port); err != nil {
		return nil, err
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid PORT %d", cfg.Port)
	}
	if cfg.Debug, err = boolEnv(getenv, "DEBUG", cfg.Debug); err != nil {
		return nil, err
	}
	if cfg.PoolSize, err = intEnv(getenv, "POOL_SIZE", cfg.PoolSize); err != nil {
		return nil, err
	}
	if cfg.PoolSize < 0 {
		return nil, fmt.Errorf("invalid POOL_SIZE %d: must not be negative", cfg.PoolSize)
	}
	if cfg.WarmPool, err = boolEnv(getenv, "WARM_POOL", cfg.WarmPool); err != nil {
		return nil, err
	}
	if cfg.IntraOpThreads, err = intEnv(getenv, "INTRA_OP_THREADS", cfg.IntraOpThreads); err != nil {
		return nil, err
	}
	if cfg.InterOpThreads, err = intEnv(getenv, "INTER_OP_THREADS", cfg.InterOpThreads); err != nil {
		return nil, err
	}
	maxBody, err := intEnv(getenv, "MAX_BODY_BYTES", int(cfg.MaxBodyBytes))
	if err != nil {
		return nil, err
	}
	cfg.MaxBodyBytes = int64(maxBody)
	if cfg.AcquireTimeout, err = durationEnv(getenv, "ACQUIRE_TIMEOUT", cfg.AcquireTimeout); err != nil {
		return nil, err
	}
	if cfg.ReadTimeout, err = durationEnv(getenv, "READ_TIMEOUT", cfg.ReadTimeout); err != nil {
		return nil, err
	}
	if cfg.WriteTimeout, err = durationEnv(getenv, "WRITE_TIMEOUT", cfg.WriteTimeout); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Addr is the listen address; the host defaults to all interfaces.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ModelPath resolves the model artifact. It is called for every session
// that gets built, so a model dropped in after startup is picked up.
func (c *Config) ModelPath() string {
	if c.ModelPathEnv != "" {
		return c.ModelPathEnv
	}
	root := c.AssetsRoot
	if root == "" {
		root = installRoot()
	}
	return filepath.Join(root, "public", "models", c.ModelFile)
}

func installRoot() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

func intEnv(getenv func(string) string, key string, def int) (int, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func boolEnv(getenv func(string) string, key string, def bool) (bool, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

func durationEnv(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
