package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	envWithDefault = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*):-(.*?)\}`)
	envBraced      = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)
	envSimple      = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)
)

// expandEnvVars replaces ${VAR}, ${VAR:-default}, and $VAR references in s
// with values from the process environment, leaving unmatched variables as
// an empty string (braced/simple) or their default (with-default form).
func expandEnvVars(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	s = envWithDefault.ReplaceAllStringFunc(s, func(match string) string {
		parts := envWithDefault.FindStringSubmatch(match)
		if val, ok := os.LookupEnv(parts[1]); ok {
			return val
		}
		return parts[2]
	})
	s = envBraced.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envBraced.FindStringSubmatch(match)[1])
	})
	s = envSimple.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envSimple.FindStringSubmatch(match)[1])
	})
	return s
}

// loadDotEnv loads .env.local then .env into the process environment,
// ignoring a missing file.
func loadDotEnv() {
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return
		}
	}
}

// applyEnvOverrides overlays SGR__-prefixed, __-nested environment
// variables onto the global sections of cfg (not per-agent definitions,
// which only YAML can name). Example: SGR__LLM__API_KEY, SGR__EXECUTION__MAX_ITERATIONS.
func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("SGR__LLM__API_KEY"); ok {
		cfg.LLM.APIKey = v
	}
	if v, ok := os.LookupEnv("SGR__LLM__BASE_URL"); ok {
		cfg.LLM.BaseURL = v
	}
	if v, ok := os.LookupEnv("SGR__LLM__MODEL"); ok {
		cfg.LLM.Model = v
	}
	if v, ok := envInt("SGR__LLM__MAX_TOKENS"); ok {
		cfg.LLM.MaxTokens = v
	}
	if v, ok := envFloat("SGR__LLM__TEMPERATURE"); ok {
		cfg.LLM.Temperature = v
	}
	if v, ok := os.LookupEnv("SGR__LLM__PROXY"); ok {
		cfg.LLM.Proxy = v
	}
	if v, ok := os.LookupEnv("SGR__LLM__STRATEGY"); ok {
		cfg.LLM.Strategy = v
	}

	if cfg.Search == nil {
		cfg.Search = &SearchConfig{}
	}
	if v, ok := os.LookupEnv("SGR__SEARCH__TAVILY_API_KEY"); ok {
		cfg.Search.TavilyAPIKey = v
	}
	if v, ok := os.LookupEnv("SGR__SEARCH__TAVILY_API_BASE_URL"); ok {
		cfg.Search.TavilyAPIBaseURL = v
	}

	if v, ok := envInt("SGR__EXECUTION__MAX_ITERATIONS"); ok {
		cfg.Execution.MaxIterations = v
	}
	if v, ok := envInt("SGR__EXECUTION__MAX_SEARCHES"); ok {
		cfg.Execution.MaxSearches = v
	}
	if v, ok := envInt("SGR__EXECUTION__MAX_CLARIFICATIONS"); ok {
		cfg.Execution.MaxClarifications = v
	}
	if v, ok := os.LookupEnv("SGR__EXECUTION__LOGS_DIR"); ok {
		cfg.Execution.LogsDir = v
	}
	if v, ok := os.LookupEnv("SGR__EXECUTION__REPORTS_DIR"); ok {
		cfg.Execution.ReportsDir = v
	}
	if v, ok := os.LookupEnv("SGR__EXECUTION__SESSION_TTL"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Execution.SessionTTL = d
		}
	}

	if v, ok := os.LookupEnv("SGR__SERVER__HOST"); ok {
		cfg.Server.Host = v
	}
	if v, ok := envInt("SGR__SERVER__PORT"); ok {
		cfg.Server.Port = v
	}
}

func envInt(name string) (int, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(name string) (float64, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
