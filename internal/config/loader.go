package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd
var osLookupEnv = os.LookupEnv

const (
	userConfigDir    = ".config/gdaserver"
	projectConfigDir = ".gdaserver"
	configFileName   = "config.yaml"

	// EnvStatusPort overrides the configured status port.
	EnvStatusPort = "GDA_SERVER_STATUS_PORT"
)

// LoadConfig loads the server configuration by layering default, user, and project settings.
func LoadConfig() (ServerConfig, error) {
	// 1. Start with the default configuration
	config := GetDefaultConfig()

	// 2. User-specific configuration, optional
	userConfigPath, err := getUserConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not determine user config path: %v\n", err)
	} else if _, statErr := os.Stat(userConfigPath); !os.IsNotExist(statErr) {
		userConfig, err := loadConfigFromFile(userConfigPath)
		if err != nil {
			return ServerConfig{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
		}
		config = mergeConfigs(config, userConfig)
	}

	// 3. Project-specific configuration, optional
	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not determine project config path: %v\n", err)
	} else if _, statErr := os.Stat(projectConfigPath); !os.IsNotExist(statErr) {
		projectConfig, err := loadConfigFromFile(projectConfigPath)
		if err != nil {
			return ServerConfig{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
		}
		config = mergeConfigs(config, projectConfig)
	}

	return finalize(config)
}

// LoadConfigFromPath layers a single configuration file over the defaults.
func LoadConfigFromPath(path string) (ServerConfig, error) {
	fileConfig, err := loadConfigFromFile(path)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("error loading config from %s: %w", path, err)
	}
	return finalize(mergeConfigs(GetDefaultConfig(), fileConfig))
}

func finalize(config ServerConfig) (ServerConfig, error) {
	if err := applyEnvOverrides(&config); err != nil {
		return ServerConfig{}, err
	}
	applyObjectServerDefaults(&config)
	if err := Validate(config); err != nil {
		return ServerConfig{}, err
	}
	return config, nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

// loadConfigFromFile loads a ServerConfig from a YAML file.
func loadConfigFromFile(filePath string) (ServerConfig, error) {
	var config ServerConfig
	data, err := os.ReadFile(filePath)
	if err != nil {
		return ServerConfig{}, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return ServerConfig{}, err
	}
	return config, nil
}

// mergeConfigs merges 'overlay' config into 'base' config. Scalars are
// overridden when set in overlay. Infrastructure entries are merged by role and
// object servers by profile; base order is kept and new entries are appended.
func mergeConfigs(base, overlay ServerConfig) ServerConfig {
	merged := base

	if overlay.StatusPort != 0 {
		merged.StatusPort = overlay.StatusPort
	}
	if overlay.StatusHost != "" {
		merged.StatusHost = overlay.StatusHost
	}
	if overlay.SettleDelay != 0 {
		merged.SettleDelay = overlay.SettleDelay
	}
	if overlay.KillTimeout != 0 {
		merged.KillTimeout = overlay.KillTimeout
	}
	if overlay.ShutdownTimeout != 0 {
		merged.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.ReadyTimeout != 0 {
		merged.ReadyTimeout = overlay.ReadyTimeout
	}
	if overlay.RunDir != "" {
		merged.RunDir = overlay.RunDir
	}
	if overlay.HealthReport {
		merged.HealthReport = true
	}
	if overlay.MetricsAddress != "" {
		merged.MetricsAddress = overlay.MetricsAddress
	}

	merged.Preflight = mergeByKey(base.Preflight, overlay.Preflight, func(p PreflightCheck) string { return p.Name })
	merged.Infrastructure = mergeByKey(base.Infrastructure, overlay.Infrastructure, func(d InfrastructureDefinition) string { return string(d.Role) })
	merged.ObjectServers = mergeByKey(base.ObjectServers, overlay.ObjectServers, func(d ObjectServerDefinition) string { return d.Profile })

	return merged
}

func mergeByKey[T any](base, overlay []T, key func(T) string) []T {
	out := make([]T, 0, len(base)+len(overlay))
	index := make(map[string]int, len(base))
	for _, item := range base {
		index[key(item)] = len(out)
		out = append(out, item)
	}
	for _, item := range overlay {
		if i, exists := index[key(item)]; exists {
			out[i] = item
			continue
		}
		index[key(item)] = len(out)
		out = append(out, item)
	}
	return out
}

func applyEnvOverrides(config *ServerConfig) error {
	if raw, ok := osLookupEnv(EnvStatusPort); ok && raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvStatusPort, raw, err)
		}
		config.StatusPort = port
	}
	return nil
}

func applyObjectServerDefaults(config *ServerConfig) {
	for i := range config.ObjectServers {
		if config.ObjectServers[i].Kind == "" {
			config.ObjectServers[i].Kind = ObjectServerKindExec
		}
	}
}

// SelectProfiles narrows the object servers to the given profiles, keeping
// configuration order. An empty selection keeps every object server.
func SelectProfiles(config ServerConfig, profiles []string) (ServerConfig, error) {
	if len(profiles) == 0 {
		return config, nil
	}

	wanted := make(map[string]bool, len(profiles))
	for _, p := range profiles {
		wanted[p] = true
	}

	selected := make([]ObjectServerDefinition, 0, len(profiles))
	for _, def := range config.ObjectServers {
		if wanted[def.Profile] {
			selected = append(selected, def)
			delete(wanted, def.Profile)
		}
	}
	for _, p := range profiles {
		if wanted[p] {
			return ServerConfig{}, fmt.Errorf("profile %q is not configured", p)
		}
	}

	config.ObjectServers = selected
	return config, nil
}
