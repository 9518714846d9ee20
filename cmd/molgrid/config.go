package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/samcharles93/molgrid/internal/engine"
	"github.com/samcharles93/molgrid/pkg/gridmaker"
)

const envMolgridConfig = "MOLGRID_CONFIG"

// Config represents the molgrid configuration file (~/.config/molgrid/config.yaml).
// All fields are pointers so we can distinguish "not set" from zero values.
type Config struct {
	// Grid defaults
	Resolution     *float64 `yaml:"resolution"`
	Dimension      *float64 `yaml:"dimension"`
	RadiusMultiple *float64 `yaml:"radius_multiple"`
	Binary         *bool    `yaml:"binary_occupancy"`
	Spherize       *bool    `yaml:"spherical_mask"`

	// Type maps
	ReceptorMap string `yaml:"receptor_map"`
	LigandMap   string `yaml:"ligand_map"`

	// Backend
	Backend string `yaml:"backend"`
	Workers *int64 `yaml:"workers"`

	// Cache
	CachePath string `yaml:"cache"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

// fileConfig is loaded once by the root command.
var fileConfig Config

func configPath() string {
	if p := strings.TrimSpace(os.Getenv(envMolgridConfig)); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "molgrid", "config.yaml")
}

// LoadConfig reads the config file. Returns a zero Config if the file doesn't exist.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// applyLoggingConfig applies config file defaults to the logging flags
// when they were not set explicitly.
func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyEngineConfig applies config file defaults to the backend, type map
// and cache flags.
func applyEngineConfig(c *cli.Command, cfg Config) {
	if cfg.Backend != "" && !c.IsSet("backend") {
		backendName = cfg.Backend
	}
	if cfg.Workers != nil && !c.IsSet("workers") {
		workers = *cfg.Workers
	}
	if cfg.ReceptorMap != "" && !c.IsSet("recmap") {
		receptorMap = cfg.ReceptorMap
	}
	if cfg.LigandMap != "" && !c.IsSet("ligmap") {
		ligandMap = cfg.LigandMap
	}
	if cfg.CachePath != "" && !c.IsSet("cache") {
		cachePath = cfg.CachePath
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	applyEngineConfig(c, cfg)
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}

// gridParams resolves the grid settings. Later sources win: built-in
// defaults, the config file, the --settings file, explicit flags.
func gridParams(c *cli.Command, cfg Config) (gridmaker.Params, error) {
	p := gridmaker.DefaultParams()
	p.Center = nil
	if cfg.Resolution != nil {
		p.Resolution = float32(*cfg.Resolution)
	}
	if cfg.Dimension != nil {
		p.Dimension = float32(*cfg.Dimension)
	}
	if cfg.RadiusMultiple != nil {
		p.RadiusMultiple = float32(*cfg.RadiusMultiple)
	}
	if cfg.Binary != nil {
		p.BinaryOccupancy = *cfg.Binary
	}
	if cfg.Spherize != nil {
		p.SphericalMask = *cfg.Spherize
	}

	if settingsPath != "" {
		data, err := os.ReadFile(settingsPath)
		if err != nil {
			return p, err
		}
		// yaml is a superset of json, so one decoder reads both.
		if err := yaml.Unmarshal(data, &p); err != nil {
			return p, fmt.Errorf("parse settings %s: %w", settingsPath, err)
		}
	}

	if c.IsSet("resolution") {
		p.Resolution = float32(resolution)
	}
	if c.IsSet("dimension") {
		p.Dimension = float32(dimension)
	}
	if c.IsSet("radius-multiple") {
		p.RadiusMultiple = float32(radiusMultiple)
	}
	if c.IsSet("binary") {
		p.BinaryOccupancy = binary
	}
	if c.IsSet("spherize") {
		p.SphericalMask = spherize
	}
	if c.IsSet("subgrid-dim") {
		p.SubgridDim = float32(subgridDim)
	}
	if c.IsSet("batch-size") {
		p.BatchSize = batchSize
	}
	if c.IsSet("stride") {
		p.Stride = stride
	}
	if strings.TrimSpace(centerFlag) != "" {
		center, err := parseVec3(centerFlag)
		if err != nil {
			return p, err
		}
		p.Center = &center
	}
	return p, nil
}

func engineLoader() engine.Loader {
	return engine.Loader{
		ReceptorPath: receptorMap,
		LigandPath:   ligandMap,
		NoReceptor:   noReceptor,
		Backend:      backendName,
		Workers:      int(workers),
	}
}

func parseVec3(s string) ([3]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return [3]float64{}, fmt.Errorf("centre %q: expected x,y,z", s)
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return [3]float64{}, fmt.Errorf("centre %q: %w", s, err)
		}
		v[i] = f
	}
	return v, nil
}
