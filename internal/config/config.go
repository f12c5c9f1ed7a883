package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no config path is given.
const DefaultFile = "blockci.yaml"

// Config holds the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Agent    AgentConfig    `yaml:"agent"`
	Storage  StorageConfig  `yaml:"storage"`
	Executor ExecutorConfig `yaml:"executor"`
}

// ServerConfig configures the run server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// AgentConfig configures the remote agent and how to reach one.
type AgentConfig struct {
	ID   string `yaml:"id"`   // recorded in ledger blocks
	Addr string `yaml:"addr"` // listen address of cmd/agent
	URL  string `yaml:"url"`  // when set, steps run on this agent

	// Token is the shared secret between orchestrator and agent.
	Token string `yaml:"token"`
}

// StorageConfig locates logs, the ledger and signing keys.
type StorageConfig struct {
	LogDir     string `yaml:"log_dir"`
	LedgerPath string `yaml:"ledger"`
	KeyDir     string `yaml:"key_dir"`
}

// ExecutorConfig configures the local command runner.
type ExecutorConfig struct {
	Shell       string `yaml:"shell"`
	StepTimeout string `yaml:"step_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Addr: ":8080"},
		Agent:    AgentConfig{ID: "local-agent", Addr: ":9090"},
		Storage:  StorageConfig{LogDir: "./logs", LedgerPath: "./ledger.jsonl", KeyDir: "./keys"},
		Executor: ExecutorConfig{Shell: "sh", StepTimeout: "5m"},
	}
}

// Load reads configuration from path (or DefaultFile when empty) and then
// environment variables. Environment variables take precedence.
// A missing default file is not an error; a missing explicit file is.
func Load(path string) (*Config, error) {
	cfg := Default()

	file := path
	if file == "" {
		file = DefaultFile
	}
	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", file, err)
		}
	case errors.Is(err, os.ErrNotExist) && path == "":
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	applyEnv(cfg)

	if _, err := cfg.StepTimeout(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// StepTimeout parses Executor.StepTimeout. "0" disables the timeout.
func (c *Config) StepTimeout() (time.Duration, error) {
	if c.Executor.StepTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Executor.StepTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid step_timeout %q: %w", c.Executor.StepTimeout, err)
	}
	if d == 0 {
		return -1, nil
	}
	return d, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Addr = getEnvOrDefault("BLOCKCI_SERVER_ADDR", cfg.Server.Addr)
	if port := os.Getenv("PORT"); port != "" && os.Getenv("BLOCKCI_SERVER_ADDR") == "" {
		cfg.Server.Addr = ":" + port
	}
	cfg.Agent.ID = getEnvOrDefault("BLOCKCI_AGENT_ID", cfg.Agent.ID)
	cfg.Agent.Addr = getEnvOrDefault("BLOCKCI_AGENT_ADDR", cfg.Agent.Addr)
	cfg.Agent.URL = getEnvOrDefault("BLOCKCI_AGENT_URL", cfg.Agent.URL)
	cfg.Agent.Token = getEnvOrDefault("BLOCKCI_AGENT_TOKEN", cfg.Agent.Token)
	cfg.Storage.LogDir = getEnvOrDefault("BLOCKCI_LOG_DIR", cfg.Storage.LogDir)
	cfg.Storage.LedgerPath = getEnvOrDefault("BLOCKCI_LEDGER", cfg.Storage.LedgerPath)
	cfg.Storage.KeyDir = getEnvOrDefault("BLOCKCI_KEY_DIR", cfg.Storage.KeyDir)
	cfg.Executor.Shell = getEnvOrDefault("BLOCKCI_SHELL", cfg.Executor.Shell)
	cfg.Executor.StepTimeout = getEnvOrDefault("BLOCKCI_STEP_TIMEOUT", cfg.Executor.StepTimeout)
}

// getEnvOrDefault returns the environment variable value if set,
// otherwise returns the default value.
func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}
