package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from the standard config path.
// Search order:
//  1. $NUDGE_CONFIG (if set, an explicit override path)
//  2. $XDG_CONFIG_HOME/nudge/config.yaml
//  3. ~/.config/nudge/config.yaml
//
// If no file exists, returns DefaultConfig(). Layering is: shipped
// defaults, then the user file (if present) is decoded on top of them.
func Load() (*Config, error) {
	if p := os.Getenv("NUDGE_CONFIG"); p != "" {
		return LoadFromFile(p)
	}
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return LoadFromFile(p)
		}
	}
	return DefaultConfig(), nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader reads configuration from an io.Reader. Unknown keys are
// rejected, matching spec §6 ("Unknown keys are rejected on load").
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if err := validatePatterns(cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// DefaultConfig returns the default configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Endpoint:  "http://localhost:11434/v1/chat/completions",
			Model:     "gpt-4o-mini",
			APIKeyEnv: "NUDGE_API_KEY",
			Timeout:   Duration{8 * time.Second},
		},
		Context: ContextConfig{
			HistoryWindow:          200,
			IncludeCWDListing:      true,
			IncludeExitCode:        true,
			IncludeSystemInfo:      true,
			SimilarCommandsEnabled: true,
			SimilarCommandsWindow:  500,
			SimilarCommandsMax:     5,
			MaxFilesInListing:      40,
			MaxTotalTokens:         2000,
			Priorities: PrioritiesConfig{
				History: 80,
				CWD:     60,
				Plugins: 45,
			},
		},
		Trigger: TriggerConfig{
			Mode:              "manual",
			Hotkey:            `\C-p`,
			AutoDelay:         Duration{400 * time.Millisecond},
			ZshGhostOwner:     "nudge",
			ZshOverlayBackend: "rprompt",
		},
		Cache: CacheConfig{
			Capacity:    500,
			PrefixBytes: 80,
			TTLAuto:     Duration{3 * time.Second},
			TTLManual:   Duration{15 * time.Second},
			TTLNegative: Duration{2 * time.Second},
			StaleRatio:  0.8,
		},
		Diagnosis: DiagnosisConfig{
			Enabled:        true,
			CaptureStderr:  true,
			MaxStderrBytes: 4000,
			InteractiveCommands: []string{
				"vim", "vi", "nano", "emacs", "less", "more", "top", "htop", "ssh", "tmux", "screen",
			},
			Timeout: Duration{8 * time.Second},
		},
		Privacy: PrivacyConfig{
			SanitizeEnabled: true,
			BlockDangerous:  true,
		},
		Plugins: PluginsConfig{
			Git: GitPluginConfig{
				PluginBaseConfig: PluginBaseConfig{Enabled: true, Timeout: Duration{100 * time.Millisecond}, Priority: 50},
				Depth:            "standard",
			},
			Docker: DockerPluginConfig{
				PluginBaseConfig: PluginBaseConfig{Enabled: true, Timeout: Duration{100 * time.Millisecond}, Priority: 40},
			},
			Node: NodePluginConfig{
				PluginBaseConfig: PluginBaseConfig{Enabled: true, Timeout: Duration{100 * time.Millisecond}, Priority: 45},
			},
			Rust: RustPluginConfig{
				PluginBaseConfig: PluginBaseConfig{Enabled: true, Timeout: Duration{100 * time.Millisecond}, Priority: 45},
			},
			Python: PythonPluginConfig{
				PluginBaseConfig: PluginBaseConfig{Enabled: true, Timeout: Duration{100 * time.Millisecond}, Priority: 45},
			},
		},
		Log: LogConfig{
			Level:       "info",
			FileEnabled: false,
		},
	}
}

// applyEnvOverrides checks environment variables and overrides config values.
// The model API key may be supplied directly or indirectly via an env var
// named by api_key_env, per spec §4.7.
func applyEnvOverrides(cfg *Config) {
	if cfg.Model.APIKey == "" && cfg.Model.APIKeyEnv != "" {
		if v := os.Getenv(cfg.Model.APIKeyEnv); v != "" {
			cfg.Model.APIKey = v
		}
	}
	if v := os.Getenv("NUDGE_ENDPOINT"); v != "" {
		cfg.Model.Endpoint = v
	}
}

// validatePatterns rejects malformed user-supplied regular expressions at
// load time, per spec §4.6 ("malformed patterns are rejected at config
// load"). The actual compilation is delegated to the sanitizer/safety
// packages' pattern helpers via compileCheck to avoid an import cycle;
// here we only check that every supplied string is independently
// well-formed using the standard regexp compiler.
func validatePatterns(cfg *Config) error {
	for _, p := range cfg.Privacy.CustomPatterns {
		if err := checkRegexp(p); err != nil {
			return fmt.Errorf("config: privacy.custom_patterns: %w", err)
		}
	}
	for _, p := range cfg.Privacy.CustomBlocked {
		if err := checkRegexp(p); err != nil {
			return fmt.Errorf("config: privacy.custom_blocked: %w", err)
		}
	}
	return nil
}

// configSearchPaths returns the ordered list of config file paths to try.
func configSearchPaths() []string {
	home, _ := os.UserHomeDir()
	var paths []string

	xdg := xdgConfigHome(home)
	paths = append(paths, filepath.Join(xdg, "nudge", "config.yaml"))

	defaultXDG := filepath.Join(home, ".config")
	if xdg != defaultXDG {
		paths = append(paths, filepath.Join(defaultXDG, "nudge", "config.yaml"))
	}

	return paths
}

// xdgConfigHome returns XDG_CONFIG_HOME or ~/.config as fallback.
func xdgConfigHome(home string) string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	return filepath.Join(home, ".config")
}
