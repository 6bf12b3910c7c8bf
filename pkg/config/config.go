package config

// Config is the root configuration structure, matching the option table
// in spec §3. Unknown keys in the YAML source are rejected at load time.
type Config struct {
	Model      ModelConfig      `yaml:"model"`
	Context    ContextConfig    `yaml:"context"`
	Trigger    TriggerConfig    `yaml:"trigger"`
	Cache      CacheConfig      `yaml:"cache"`
	Diagnosis  DiagnosisConfig  `yaml:"diagnosis"`
	Privacy    PrivacyConfig    `yaml:"privacy"`
	Plugins    PluginsConfig    `yaml:"plugins"`
	Log        LogConfig        `yaml:"log"`
}

// ModelConfig holds upstream chat-call parameters.
type ModelConfig struct {
	Endpoint  string   `yaml:"endpoint"`
	Model     string   `yaml:"model"`
	APIKey    string   `yaml:"api_key"`
	APIKeyEnv string   `yaml:"api_key_env"`
	Timeout   Duration `yaml:"timeout"`
}

// ContextConfig controls the gatherer's policy.
type ContextConfig struct {
	HistoryWindow          int            `yaml:"history_window"`
	IncludeCWDListing      bool           `yaml:"include_cwd_listing"`
	IncludeExitCode        bool           `yaml:"include_exit_code"`
	IncludeSystemInfo      bool           `yaml:"include_system_info"`
	SimilarCommandsEnabled bool           `yaml:"similar_commands_enabled"`
	SimilarCommandsWindow  int            `yaml:"similar_commands_window"`
	SimilarCommandsMax     int            `yaml:"similar_commands_max"`
	MaxFilesInListing      int            `yaml:"max_files_in_listing"`
	MaxTotalTokens         int            `yaml:"max_total_tokens"`
	Priorities             PrioritiesConfig `yaml:"priorities"`
}

// PrioritiesConfig assigns truncation priorities to gatherer sources.
type PrioritiesConfig struct {
	History int `yaml:"history"`
	CWD     int `yaml:"cwd"`
	Plugins int `yaml:"plugins"`
}

// TriggerConfig is reported to front-ends via the info surface; it never
// drives daemon-side control flow.
type TriggerConfig struct {
	Mode              string   `yaml:"mode"`
	Hotkey            string   `yaml:"hotkey"`
	AutoDelay         Duration `yaml:"auto_delay"`
	ZshGhostOwner     string   `yaml:"zsh_ghost_owner"`
	ZshOverlayBackend string   `yaml:"zsh_overlay_backend"`
}

// CacheConfig controls the suggestion cache.
type CacheConfig struct {
	Capacity      int      `yaml:"capacity"`
	PrefixBytes   int      `yaml:"prefix_bytes"`
	TTLAuto       Duration `yaml:"ttl_auto"`
	TTLManual     Duration `yaml:"ttl_manual"`
	TTLNegative   Duration `yaml:"ttl_negative"`
	StaleRatio    float64  `yaml:"stale_ratio"`
}

// DiagnosisConfig controls the error-diagnosis pipeline.
type DiagnosisConfig struct {
	Enabled             bool     `yaml:"enabled"`
	CaptureStderr       bool     `yaml:"capture_stderr"`
	MaxStderrBytes      int      `yaml:"max_stderr_bytes"`
	InteractiveCommands []string `yaml:"interactive_commands"`
	Timeout             Duration `yaml:"timeout"`
}

// PrivacyConfig controls the sanitizer and safety post-check.
type PrivacyConfig struct {
	SanitizeEnabled bool     `yaml:"sanitize_enabled"`
	CustomPatterns  []string `yaml:"custom_patterns"`
	BlockDangerous  bool     `yaml:"block_dangerous"`
	CustomBlocked   []string `yaml:"custom_blocked"`
}

// PluginsConfig carries per-plugin configuration for the five project
// context plugins.
type PluginsConfig struct {
	Git    GitPluginConfig    `yaml:"git"`
	Docker DockerPluginConfig `yaml:"docker"`
	Node   NodePluginConfig   `yaml:"node"`
	Rust   RustPluginConfig   `yaml:"rust"`
	Python PythonPluginConfig `yaml:"python"`
}

// PluginBaseConfig is embedded by each plugin's config.
type PluginBaseConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Timeout  Duration `yaml:"timeout"`
	Priority int      `yaml:"priority"`
}

// GitPluginConfig controls the git plugin, including its contribution depth.
type GitPluginConfig struct {
	PluginBaseConfig `yaml:",inline"`
	Depth            string `yaml:"depth"` // "light", "standard", "detailed"
}

// DockerPluginConfig controls the docker plugin.
type DockerPluginConfig struct {
	PluginBaseConfig `yaml:",inline"`
}

// NodePluginConfig controls the node plugin.
type NodePluginConfig struct {
	PluginBaseConfig `yaml:",inline"`
}

// RustPluginConfig controls the rust plugin.
type RustPluginConfig struct {
	PluginBaseConfig `yaml:",inline"`
}

// PythonPluginConfig controls the python plugin.
type PythonPluginConfig struct {
	PluginBaseConfig `yaml:",inline"`
}

// LogConfig controls observability.
type LogConfig struct {
	Level      string `yaml:"level"`
	FileEnabled bool  `yaml:"file_enabled"`
}
