package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string            `toml:"environment"` // "development" or "production"
	Server      ServerConfig      `toml:"server"`
	Storage     StorageConfig     `toml:"storage"`
	Logging     LoggingConfig     `toml:"logging"`
	Scripts     ScriptsConfig     `toml:"scripts"`
	Sessions    SessionsConfig    `toml:"sessions"`
	Browser     BrowserConfig     `toml:"browser"`
	Interpreter InterpreterConfig `toml:"interpreter"`
	Credentials CredentialsConfig `toml:"credentials"`
	Messaging   MessagingConfig   `toml:"messaging"`
	Helpers     HelpersConfig     `toml:"helpers"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
	Host string `toml:"host" validate:"required"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=debug info warn error"` // "debug", "info", "warn", "error"
	Output []string `toml:"output"`                                      // "stdout", "file"
}

// ScriptsConfig configures the file-backed automation script catalogue.
// Scripts are read fresh for every job so operators can edit them without
// a restart.
type ScriptsConfig struct {
	Dir string `toml:"dir" validate:"required"` // Directory containing <portal>.script files
}

// SessionsConfig governs per-requester browser sessions and their artifacts.
type SessionsConfig struct {
	ArtifactDir   string        `toml:"artifact_dir" validate:"required"` // Root directory for screenshot artifacts
	MaxAge        time.Duration `toml:"max_age"`                          // Idle age after which a session is swept
	SweepSchedule string        `toml:"sweep_schedule"`                   // Cron expression for the periodic sweep
	DeliveryGrace time.Duration `toml:"delivery_grace"`                   // Wait after last artifact delivery before cleanup
}

type BrowserConfig struct {
	Headless           bool          `toml:"headless"`
	NoSandbox          bool          `toml:"no_sandbox"`
	UserAgent          string        `toml:"user_agent"`
	NavigationTimeout  time.Duration `toml:"navigation_timeout"`   // Hard failure past this point
	WindowLoadWait     time.Duration `toml:"window_load_wait"`     // Fixed delay after opening a status entry window
	ScreenshotQuality  int           `toml:"screenshot_quality" validate:"gte=1,lte=100"`
}

type InterpreterConfig struct {
	// Delay applied after an unrecognized opcode before execution continues.
	// Looks like a debugging leftover in the original behavior; kept
	// configurable so it can be set to 0.
	UnknownOpcodeDelay time.Duration `toml:"unknown_opcode_delay"`
}

// CredentialsConfig configures the encrypted credential store.
type CredentialsConfig struct {
	SeedDir string `toml:"seed_dir"`                // Directory containing credential seed files (TOML)
	Key     string `toml:"key" validate:"required"` // Hex-encoded 32-byte AES key for field decryption
}

// MessagingConfig configures the outbound messaging channel client and the
// inbound webhook verification token.
type MessagingConfig struct {
	APIBase      string        `toml:"api_base"`
	CorpID       string        `toml:"corp_id"`
	CorpSecret   string        `toml:"corp_secret"`
	AgentID      int           `toml:"agent_id"`
	WebhookToken string        `toml:"webhook_token"`
	SendTimeout  time.Duration `toml:"send_timeout"`
}

// HelpersConfig maps portal IDs to out-of-process alternate-strategy
// commands. A portal listed here bypasses the script interpreter entirely.
type HelpersConfig struct {
	Commands map[string]string `toml:"commands"` // portal ID -> executable path
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in mstrack.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Scripts: ScriptsConfig{
			Dir: "./scripts",
		},
		Sessions: SessionsConfig{
			ArtifactDir: "./data/artifacts",
			// Must comfortably exceed one job's worst-case duration so the
			// sweep never races an in-flight job's session.
			MaxAge:        30 * time.Minute,
			SweepSchedule: "*/5 * * * *",
			DeliveryGrace: 5 * time.Second,
		},
		Browser: BrowserConfig{
			Headless:          true,
			NoSandbox:         false,
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			NavigationTimeout: 30 * time.Second,
			WindowLoadWait:    3 * time.Second,
			ScreenshotQuality: 90,
		},
		Interpreter: InterpreterConfig{
			UnknownOpcodeDelay: 30 * time.Second,
		},
		Credentials: CredentialsConfig{
			SeedDir: "./credentials",
			Key:     "",
		},
		Messaging: MessagingConfig{
			APIBase:     "https://qyapi.weixin.qq.com",
			SendTimeout: 15 * time.Second,
		},
		Helpers: HelpersConfig{
			Commands: map[string]string{},
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier
// files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks the resolved configuration for structural problems.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Sessions.MaxAge <= 0 {
		return fmt.Errorf("invalid configuration: sessions.max_age must be positive")
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("MSTRACK_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("MSTRACK_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("MSTRACK_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if badgerPath := os.Getenv("MSTRACK_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if level := os.Getenv("MSTRACK_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if dir := os.Getenv("MSTRACK_SCRIPTS_DIR"); dir != "" {
		config.Scripts.Dir = dir
	}
	if dir := os.Getenv("MSTRACK_ARTIFACT_DIR"); dir != "" {
		config.Sessions.ArtifactDir = dir
	}
	if maxAge := os.Getenv("MSTRACK_SESSION_MAX_AGE"); maxAge != "" {
		if d, err := time.ParseDuration(maxAge); err == nil {
			config.Sessions.MaxAge = d
		}
	}

	if key := os.Getenv("MSTRACK_CREDENTIALS_KEY"); key != "" {
		config.Credentials.Key = key
	}

	if corpID := os.Getenv("MSTRACK_MESSAGING_CORP_ID"); corpID != "" {
		config.Messaging.CorpID = corpID
	}
	if secret := os.Getenv("MSTRACK_MESSAGING_CORP_SECRET"); secret != "" {
		config.Messaging.CorpSecret = secret
	}
	if agentID := os.Getenv("MSTRACK_MESSAGING_AGENT_ID"); agentID != "" {
		if id, err := strconv.Atoi(agentID); err == nil {
			config.Messaging.AgentID = id
		}
	}

	if headless := os.Getenv("MSTRACK_BROWSER_HEADLESS"); headless != "" {
		if b, err := strconv.ParseBool(headless); err == nil {
			config.Browser.Headless = b
		}
	}
	if timeout := os.Getenv("MSTRACK_BROWSER_NAVIGATION_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Browser.NavigationTimeout = d
		}
	}
}
