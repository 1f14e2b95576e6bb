// Package config loads and persists the engine's configuration: the
// engine/grid section, seeded color presets, the Art-Net sink, and the
// protocol ports. A config.json is looked for first in the user's config
// directory, falling back to the install directory; if neither exists, a
// default configuration is written out to the former (spec.md §6.3).
// Values may be overridden by environment variables, loaded via godotenv
// from a ".env" file when present, for deployment wrappers that prefer
// env-driven configuration over editing config.json directly.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rgbcct/panelfx/internal/artnet"
	"github.com/rgbcct/panelfx/internal/colormanager"
	"github.com/rgbcct/panelfx/internal/colorspace"
	"github.com/rgbcct/panelfx/internal/grid"
	"github.com/rgbcct/panelfx/internal/logger"
)

// EngineConfig is the engine/grid section.
type EngineConfig struct {
	TargetFPS       int               `json:"targetFPS"`
	Columns         int               `json:"columns"`
	RowsPerColumn   int               `json:"rowsPerColumn"`
	InitialTopology grid.TopologyMode `json:"initialTopology"`
}

// ProtocolConfig is the external-surface ports section.
type ProtocolConfig struct {
	CommandPort int `json:"commandPort"`
	HTTPPort    int `json:"httpPort"`
}

// AppConfig is the whole persisted configuration document.
type AppConfig struct {
	Engine     EngineConfig            `json:"engine"`
	Presets    []colormanager.ConfigEntry `json:"presets"`
	ArtNet     artnet.Config           `json:"artnet"`
	Protocol   ProtocolConfig          `json:"protocol"`
	DataDir    string                  `json:"dataDir"`
	ConfigPath string                  `json:"-"`
}

// DefaultConfig matches the defaults named across spec.md §5/§6.
func DefaultConfig() AppConfig {
	return AppConfig{
		Engine: EngineConfig{
			TargetFPS:       60,
			Columns:         2,
			RowsPerColumn:   7,
			InitialTopology: grid.Circular,
		},
		Presets: []colormanager.ConfigEntry{
			{Name: "white", Solid: &whiteColor},
			{Name: "warmWhite", Solid: &warmWhiteColor},
			{
				Name:  "rainbow",
				Space: colormanager.HSV,
				Gradient: []colormanager.Stop{
					{Position: 0, Color: redColor},
					{Position: 1, Color: blueColor},
				},
			},
		},
		ArtNet: artnet.DefaultConfig(),
		Protocol: ProtocolConfig{
			CommandPort: 7890,
			HTTPPort: 8080,
		},
		DataDir: "",
	}
}

var (
	whiteColor     = rgbcct(255, 255, 255, 255, 0)
	warmWhiteColor = rgbcct(255, 214, 170, 0, 255)
	redColor       = rgbcct(255, 0, 0, 0, 0)
	blueColor      = rgbcct(0, 0, 255, 0, 0)
)

// Manager owns the loaded configuration and the path it was loaded from
// or will be saved to.
type Manager struct {
	config     AppConfig
	installDir string
	log        logger.Logger
}

// NewManager creates a configuration manager rooted at installDir (used
// only as the fallback search/save location).
func NewManager(installDir string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Manager{installDir: installDir, log: log}
}

// Load tries the default config directory, then the install directory;
// if both are empty, it writes and returns DefaultConfig. After loading
// from a file (or defaulting), environment variables are applied as
// overrides, with a ".env" file (if present in the working directory)
// loaded first via godotenv so deployment wrappers can set either.
func (m *Manager) Load() AppConfig {
	_ = godotenv.Load()

	defaultDir := m.DefaultConfigDir()
	defaultPath := filepath.Join(defaultDir, "config.json")
	installPath := filepath.Join(m.installDir, "config", "config.json")

	if m.tryLoadFromPath(defaultPath) {
		m.config.ConfigPath = defaultPath
		m.applyEnvOverrides()
		return m.config
	}

	if m.tryLoadFromPath(installPath) {
		m.config.ConfigPath = installPath
		m.applyEnvOverrides()
		return m.config
	}

	m.log.Warn("no config file found at %s or %s, writing defaults", defaultPath, installPath)
	m.config = DefaultConfig()
	m.config.ConfigPath = defaultPath
	if err := m.Save(); err != nil {
		m.log.Error("failed to persist default config: %v", err)
	}
	m.applyEnvOverrides()
	return m.config
}

func (m *Manager) tryLoadFromPath(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var cfg AppConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		m.log.Error("failed to parse config at %s: %v", path, err)
		return false
	}
	m.config = cfg
	return true
}

// applyEnvOverrides lets PANELFX_* environment variables override
// individual scalar fields without requiring a full config.json rewrite.
func (m *Manager) applyEnvOverrides() {
	if v := os.Getenv("PANELFX_TARGET_FPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			m.config.Engine.TargetFPS = n
		}
	}
	if v := os.Getenv("PANELFX_COLUMNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			m.config.Engine.Columns = n
		}
	}
	if v := os.Getenv("PANELFX_ROWS_PER_COLUMN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			m.config.Engine.RowsPerColumn = n
		}
	}
	if v := os.Getenv("PANELFX_INITIAL_TOPOLOGY"); v != "" {
		m.config.Engine.InitialTopology = grid.TopologyMode(v)
	}
	if v := os.Getenv("PANELFX_ARTNET_HOST"); v != "" {
		m.config.ArtNet.Host = v
	}
	if v := os.Getenv("PANELFX_ARTNET_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			m.config.ArtNet.Port = n
		}
	}
	if v := os.Getenv("PANELFX_COMMAND_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			m.config.Protocol.CommandPort = n
		}
	}
	if v := os.Getenv("PANELFX_HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			m.config.Protocol.HTTPPort = n
		}
	}
	if v := os.Getenv("PANELFX_DATA_DIR"); v != "" {
		m.config.DataDir = v
	}
}

// Save persists the current config to the default directory, falling
// back to the install directory on failure.
func (m *Manager) Save() error {
	defaultDir := m.DefaultConfigDir()
	defaultPath := filepath.Join(defaultDir, "config.json")

	if err := os.MkdirAll(defaultDir, 0755); err == nil {
		if data, err := json.MarshalIndent(m.config, "", "  "); err == nil {
			if err := os.WriteFile(defaultPath, data, 0644); err == nil {
				m.config.ConfigPath = defaultPath
				return nil
			}
		}
	}

	installDir := filepath.Join(m.installDir, "config")
	installPath := filepath.Join(installDir, "config.json")
	if err := os.MkdirAll(installDir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(installPath, data, 0644); err != nil {
		return err
	}
	m.config.ConfigPath = installPath
	return nil
}

// DefaultConfigDir is "<home>/.panelfx", falling back to installDir/config
// if the user's home directory cannot be resolved.
func (m *Manager) DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(m.installDir, "config")
	}
	return filepath.Join(home, ".panelfx")
}

// Get returns the currently loaded configuration.
func (m *Manager) Get() AppConfig { return m.config }

// Update replaces the configuration and persists it.
func (m *Manager) Update(cfg AppConfig) error {
	m.config = cfg
	return m.Save()
}

// InstallDir returns the directory the running executable lives in, used
// as the Manager's fallback search/save location.
func InstallDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

func rgbcct(r, g, b, cool, warm int) colorspace.RGBCCT {
	return colorspace.RGBCCT{R: r, G: g, B: b, Cool: cool, Warm: warm}
}
