package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	koanfjson "github.com/knadh/koanf/parsers/json"
	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	modbusctrl "github.com/Agrid-Dev/parasweep/internal/controllers/modbus"
	mqttctrl "github.com/Agrid-Dev/parasweep/internal/controllers/mqtt"
	"github.com/Agrid-Dev/parasweep/internal/driver"
	"github.com/Agrid-Dev/parasweep/internal/ports"
	"github.com/Agrid-Dev/parasweep/internal/store"
	"github.com/Agrid-Dev/parasweep/internal/sweep"
	"github.com/Agrid-Dev/parasweep/internal/thermal"
)

// EnvPrefix marks the environment variables read by LoadConfig.
const EnvPrefix = "PARASWEEP_"

type Config struct {
	LogLevel    string            `koanf:"log_level"`
	Project     ProjectConfig     `koanf:"project"`
	Sweep       SweepConfig       `koanf:"sweep"`
	Timing      TimingConfig      `koanf:"timing"`
	Ledger      LedgerConfig      `koanf:"ledger"`
	Thermal     ThermalConfig     `koanf:"thermal"`
	Controllers ControllersConfig `koanf:"controllers"`
}

type ProjectConfig struct {
	Name string `koanf:"name"`
	Path string `koanf:"path"`
}

type SweepConfig struct {
	Route       string     `koanf:"route"` // "direct" | "compliance" (or 0 | 1)
	LoadsOn     bool       `koanf:"loads_on"`
	HVACNetwork string     `koanf:"hvac_network"`
	ModelIndex  int        `koanf:"model_index"`
	Form        sweep.Form `koanf:"form"`
}

type TimingConfig struct {
	Poll             time.Duration `koanf:"poll"`
	Timeout          time.Duration `koanf:"timeout"`
	LoadsSettle      time.Duration `koanf:"loads_settle"`
	DirectSettle     time.Duration `koanf:"direct_settle"`
	ComplianceSettle time.Duration `koanf:"compliance_settle"`
}

type LedgerConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"` // defaults to <project>/.parasweep/ledger.db
}

type ThermalConfig struct {
	Model      thermal.Building  `koanf:"model"`
	Climate    thermal.Climate   `koanf:"climate"`
	Operation  thermal.Operation `koanf:"operation"`
	Plant      thermal.Plant     `koanf:"plant"`
	Notional   thermal.Envelope  `koanf:"notional"`
	WriteDelay time.Duration     `koanf:"write_delay"`
}

type ControllersConfig struct {
	HTTP   HTTPConfig   `koanf:"http"`
	MQTT   MQTTConfig   `koanf:"mqtt"`
	MODBUS ModbusConfig `koanf:"modbus"`
}

type HTTPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

type MQTTConfig struct {
	Enabled         bool          `koanf:"enabled"`
	BrokerURL       string        `koanf:"broker_url"`
	ClientID        string        `koanf:"client_id"`
	BaseTopic       string        `koanf:"base_topic"`
	QoS             byte          `koanf:"qos"`
	RetainProgress  bool          `koanf:"retain_progress"`
	PublishInterval time.Duration `koanf:"publish_interval"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
}

type ModbusConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
	UnitID  byte   `koanf:"unit_id"`
}

// Default returns the configuration used when no file or environment
// override is present.
func Default() Config {
	tp := thermal.DefaultParams()
	tm := driver.DefaultTiming()
	return Config{
		LogLevel: "info",
		Project:  ProjectConfig{Name: "default", Path: "."},
		Sweep: SweepConfig{
			Route: sweep.RouteDirect.String(),
			Form: sweep.Form{
				Wall:   sweep.FieldInput{Start: "0.2", End: "0.2", Step: "0.1"},
				Window: sweep.FieldInput{Start: "1.6", End: "1.6", Step: "0.1"},
				Roof:   sweep.FieldInput{Start: "0.15", End: "0.15", Step: "0.05"},
				Floor:  sweep.FieldInput{Start: "0.25", End: "0.25", Step: "0.05"},
			},
		},
		Timing: TimingConfig{
			Poll:             tm.Poll,
			Timeout:          tm.Timeout,
			LoadsSettle:      tm.LoadsSettle,
			DirectSettle:     tm.DirectSettle,
			ComplianceSettle: tm.ComplianceSettle,
		},
		Ledger: LedgerConfig{Enabled: true},
		Thermal: ThermalConfig{
			Model:     tp.Models[0],
			Climate:   tp.Climate,
			Operation: tp.Operation,
			Plant:     tp.Plant,
			Notional:  tp.Notional,
		},
		Controllers: ControllersConfig{
			HTTP:   HTTPConfig{Addr: ":8080"},
			MQTT:   MQTTConfig{PublishInterval: 1 * time.Second},
			MODBUS: ModbusConfig{Addr: "127.0.0.1:1502", UnitID: 1},
		},
	}
}

// LoadConfig layers defaults, the config file at path and PARASWEEP_*
// environment variables, in that order. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := loadFile(k, path); err != nil {
			return Config{}, err
		}
	}

	envProvider := env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return envKeyTransform(strings.TrimPrefix(key, EnvPrefix)), value
		},
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	applyPortFallback(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

func loadFile(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Config file missing → use defaults
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		parser = koanfyaml.Parser()
	case ".json":
		parser = koanfjson.Parser()
	default:
		return fmt.Errorf("unsupported config extension %q", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return fmt.Errorf("parse %s: %w", ext, err)
	}
	return nil
}

// applyPortFallback supports PORT (common in containers) when no explicit
// HTTP address was given in the environment.
func applyPortFallback(cfg *Config) {
	if os.Getenv(EnvPrefix+"CONTROLLERS_HTTP_ADDR") != "" {
		return
	}
	if v := os.Getenv("PORT"); v != "" {
		// listen on all interfaces on that port
		cfg.Controllers.HTTP.Addr = ":" + v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Project.Name == "" {
		cfg.Project.Name = "default"
	}
	if cfg.Project.Path == "" {
		cfg.Project.Path = "."
	}
	if cfg.Controllers.HTTP.Addr == "" {
		cfg.Controllers.HTTP.Addr = ":8080"
	}
	if !cfg.Controllers.HTTP.Enabled && !cfg.Controllers.MQTT.Enabled && !cfg.Controllers.MODBUS.Enabled {
		cfg.Controllers.HTTP.Enabled = true
	}
	if cfg.Controllers.MQTT.PublishInterval == 0 {
		cfg.Controllers.MQTT.PublishInterval = 1 * time.Second
	}
	if cfg.Controllers.MODBUS.UnitID == 0 {
		cfg.Controllers.MODBUS.UnitID = 1
	}
}

func (c Config) ProjectRef() ports.Project {
	return ports.Project{Name: c.Project.Name, Path: c.Project.Path}
}

// DriverOptions resolves the sweep settings. An unknown route is reported
// here, before any scenario runs.
func (c Config) DriverOptions() (driver.Options, error) {
	route, err := sweep.ParseRoute(c.Sweep.Route)
	if err != nil {
		return driver.Options{}, err
	}
	return driver.Options{
		ModelIndex:  c.Sweep.ModelIndex,
		Route:       route,
		LoadsOn:     c.Sweep.LoadsOn,
		HVACNetwork: c.Sweep.HVACNetwork,
		Timing: driver.Timing{
			Poll:             c.Timing.Poll,
			Timeout:          c.Timing.Timeout,
			LoadsSettle:      c.Timing.LoadsSettle,
			DirectSettle:     c.Timing.DirectSettle,
			ComplianceSettle: c.Timing.ComplianceSettle,
		},
	}, nil
}

func (c Config) ThermalParams() thermal.Params {
	return thermal.Params{
		Project:    c.ProjectRef(),
		Models:     []thermal.Building{c.Thermal.Model},
		Climate:    c.Thermal.Climate,
		Operation:  c.Thermal.Operation,
		Plant:      c.Thermal.Plant,
		Notional:   c.Thermal.Notional,
		WriteDelay: c.Thermal.WriteDelay,
	}
}

// LedgerPath is empty when the ledger is disabled.
func (c Config) LedgerPath() string {
	if !c.Ledger.Enabled {
		return ""
	}
	if c.Ledger.Path != "" {
		return c.Ledger.Path
	}
	return store.DefaultPath(c.Project.Path)
}

func (c Config) MQTT() mqttctrl.Config {
	m := c.Controllers.MQTT
	return mqttctrl.Config{
		Project:         c.Project.Name,
		BrokerURL:       m.BrokerURL,
		ClientID:        m.ClientID,
		BaseTopic:       m.BaseTopic,
		QoS:             m.QoS,
		RetainProgress:  m.RetainProgress,
		PublishInterval: m.PublishInterval,
		Username:        m.Username,
		Password:        m.Password,
	}
}

func (c Config) Modbus() modbusctrl.Config {
	return modbusctrl.Config{
		Addr:     c.Controllers.MODBUS.Addr,
		UnitID:   c.Controllers.MODBUS.UnitID,
		Defaults: c.Sweep.Form,
	}
}

// section is a config key that owns nested keys. Leaf keys are not listed.
type section map[string]section

var sections = section{
	"project": {},
	"sweep": {
		"form": {"wall": {}, "window": {}, "roof": {}, "floor": {}},
	},
	"timing": {},
	"ledger": {},
	"thermal": {
		"model":     {"envelope": {}},
		"climate":   {},
		"operation": {},
		"plant":     {},
		"notional":  {},
	},
	"controllers": {"http": {}, "mqtt": {}, "modbus": {}},
}

// envKeyTransform maps an environment key (prefix already removed) to a
// dotted config key: SWEEP_LOADS_ON -> sweep.loads_on,
// THERMAL_PLANT_CHILLER_COP -> thermal.plant.chiller_cop. Keys naming a
// section with no leaf fall back to the plain lowercase key.
func envKeyTransform(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	if k == "" {
		return ""
	}

	var path []string
	rest := k
	node := sections
descend:
	for {
		for name, child := range node {
			if rest == name {
				// section without a leaf key
				return k
			}
			if strings.HasPrefix(rest, name+"_") {
				path = append(path, name)
				rest = strings.TrimPrefix(rest, name+"_")
				node = child
				continue descend
			}
		}
		break
	}
	return strings.Join(append(path, rest), ".")
}
