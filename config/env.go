package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Env holds the generator settings that may come from the environment.
type Env struct {
	Config   string
	Out      string
	Package  string
	Type     string
	CacheDir string
	LogLevel string
	Debug    bool
}

// LoadEnv reads the given .env files (".env" when none are given) and returns the
// settings found in the environment. Missing files are skipped and variables already
// set in the process environment win.
func LoadEnv(files ...string) *Env {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		// Non-fatal: a .env file is optional.
		_ = godotenv.Load(f)
	}

	return &Env{
		Config:   Get("DIC_CONFIG", "services.yaml"),
		Out:      Get("DIC_OUT", "container.gen.go"),
		Package:  Get("DIC_PACKAGE", "main"),
		Type:     Get("DIC_TYPE", "Container"),
		CacheDir: Get("DIC_CACHE_DIR", ".dic"),
		LogLevel: Get("DIC_LOG_LEVEL", "info"),
		Debug:    GetBool("DIC_DEBUG", false),
	}
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return defaultVal
}

// GetBool parses a boolean env value, falling back to defaultVal when unset or invalid.
func GetBool(key string, defaultVal bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}
