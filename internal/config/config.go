package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Output  Output  `yaml:"output"`
	Server  Server  `yaml:"server"`
	Ingest  Ingest  `yaml:"ingest"`
	Sweep   Sweep   `yaml:"sweep"`
	Decay   Decay   `yaml:"decay"`
	Logging Logging `yaml:"logging"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Ingest struct {
	Feeds    []Feed  `yaml:"feeds"`
	BaseHeat float64 `yaml:"base_heat"`
	DaysBack int     `yaml:"days_back"`
}

type Feed struct {
	URL      string `yaml:"url"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
}

type Sweep struct {
	Schedule    string  `yaml:"schedule"`
	WindowHours float64 `yaml:"window_hours"`
	TrendWindow float64 `yaml:"trend_window_hours"`
}

type Decay struct {
	CacheTTLMinutes int `yaml:"cache_ttl_minutes"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for storyheat.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "storyheat")
}

// DataDir returns the XDG data directory for storyheat.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "storyheat")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/storyheat/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'storyheat init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Server: Server{
			Port:           8090,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Ingest: Ingest{
			BaseHeat: 10,
			DaysBack: 2,
		},
		Sweep: Sweep{
			Schedule:    "@every 15m",
			WindowHours: 24,
			TrendWindow: 6,
		},
		Decay:   Decay{CacheTTLMinutes: 5},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
