// Package config loads udsctl settings from a TOML or YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/seagrayinc/linuds/internal/usbbulk"
	"github.com/seagrayinc/linuds/pkg/isotp"
	"github.com/seagrayinc/linuds/pkg/lin"
)

// Interface names accepted in Config.Interface.
const (
	InterfaceUSB  = "usb"
	InterfaceUART = "uart"
	InterfaceHID  = "hid"
	InterfaceSim  = "sim"
)

var ErrInvalid = errors.New("invalid config")

// Duration decodes from strings such as "250ms" in both file formats.
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	Interface string        `toml:"interface" yaml:"interface"`
	Output    string        `toml:"output" yaml:"output"`
	USB       USBConfig     `toml:"usb" yaml:"usb"`
	UART      UARTConfig    `toml:"uart" yaml:"uart"`
	HID       HIDConfig     `toml:"hid" yaml:"hid"`
	LIN       LINConfig     `toml:"lin" yaml:"lin"`
	UDS       UDSConfig     `toml:"uds" yaml:"uds"`
	Metrics   MetricsConfig `toml:"metrics" yaml:"metrics"`
	Sim       SimConfig     `toml:"sim" yaml:"sim"`
}

type USBConfig struct {
	VendorID  uint16 `toml:"vendor_id" yaml:"vendor_id"`
	ProductID uint16 `toml:"product_id" yaml:"product_id"`
	Serial    string `toml:"serial" yaml:"serial"`
}

type UARTConfig struct {
	Port    string   `toml:"port" yaml:"port"`
	Baud    int      `toml:"baud" yaml:"baud"`
	Timeout Duration `toml:"timeout" yaml:"timeout"`
}

type HIDConfig struct {
	VendorID  uint16 `toml:"vendor_id" yaml:"vendor_id"`
	ProductID uint16 `toml:"product_id" yaml:"product_id"`
	ReportID  uint8  `toml:"report_id" yaml:"report_id"`
}

type LINConfig struct {
	Instance uint16 `toml:"instance" yaml:"instance"`
	Bitrate  uint32 `toml:"bitrate" yaml:"bitrate"`
	NAD      uint8  `toml:"nad" yaml:"nad"`
}

type UDSConfig struct {
	Delay        Duration `toml:"delay" yaml:"delay"`
	Timeout      Duration `toml:"timeout" yaml:"timeout"`
	PollInterval Duration `toml:"poll_interval" yaml:"poll_interval"`
}

type MetricsConfig struct {
	Listen string `toml:"listen" yaml:"listen"`
}

// SimConfig describes the simulated ECU. DIDs maps hex identifiers to hex values.
type SimConfig struct {
	NAD      uint8             `toml:"nad" yaml:"nad"`
	DIDs     map[string]string `toml:"dids" yaml:"dids"`
	ReadOnly []string          `toml:"read_only" yaml:"read_only"`
	Latency  int               `toml:"latency" yaml:"latency"`
}

func Default() Config {
	return Config{
		Interface: InterfaceUSB,
		Output:    "table",
		USB: USBConfig{
			VendorID:  usbbulk.DefaultVendorID,
			ProductID: usbbulk.DefaultProductID,
		},
		UART: UARTConfig{
			Baud:    115200,
			Timeout: Duration(2 * time.Second),
		},
		HID: HIDConfig{
			VendorID:  usbbulk.DefaultVendorID,
			ProductID: usbbulk.DefaultProductID,
		},
		LIN: LINConfig{
			Bitrate: lin.DefaultBitrate,
			NAD:     isotp.AddressWildcard,
		},
		UDS: UDSConfig{
			Timeout:      Duration(2 * time.Second),
			PollInterval: Duration(isotp.DefaultPollInterval),
		},
		Metrics: MetricsConfig{
			Listen: ":9464",
		},
		Sim: SimConfig{
			NAD: 0x0A,
		},
	}
}

// DefaultPath returns ~/.config/linuds/udsctl.toml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "udsctl.toml")
	}
	return filepath.Join(dir, "linuds", "udsctl.toml")
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := Decode(&cfg, data, filepath.Ext(path)); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Decode parses data into cfg; ext selects the format (".toml", ".yaml" or ".yml").
func Decode(cfg *Config, data []byte, ext string) error {
	switch strings.ToLower(ext) {
	case ".toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Interface {
	case InterfaceUSB, InterfaceHID, InterfaceSim:
	case InterfaceUART:
		if c.UART.Port == "" {
			return fmt.Errorf("%w: uart.port is required for the uart interface", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown interface %q", ErrInvalid, c.Interface)
	}

	if c.LIN.NAD > isotp.AddressWildcard {
		return fmt.Errorf("%w: lin.nad 0x%02X out of range", ErrInvalid, c.LIN.NAD)
	}
	if c.Sim.NAD >= isotp.AddressWildcard {
		return fmt.Errorf("%w: sim.nad 0x%02X out of range", ErrInvalid, c.Sim.NAD)
	}
	if c.LIN.Bitrate < 1000 || c.LIN.Bitrate > 20000 {
		return fmt.Errorf("%w: lin.bitrate %d outside 1000-20000", ErrInvalid, c.LIN.Bitrate)
	}
	if c.UDS.Delay < 0 || c.UDS.Timeout < 0 || c.UDS.PollInterval < 0 {
		return fmt.Errorf("%w: uds durations must not be negative", ErrInvalid)
	}

	if _, err := c.Sim.Parse(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// SimDID is one parsed simulator data identifier.
type SimDID struct {
	ID       uint16
	Value    []byte
	ReadOnly bool
}

// Parse decodes the hex identifiers and values of the simulator table.
func (s SimConfig) Parse() ([]SimDID, error) {
	readOnly := make(map[uint16]bool, len(s.ReadOnly))
	for _, raw := range s.ReadOnly {
		id, err := ParseID(raw)
		if err != nil {
			return nil, fmt.Errorf("sim.read_only: %w", err)
		}
		readOnly[id] = true
	}

	out := make([]SimDID, 0, len(s.DIDs))
	for rawID, rawValue := range s.DIDs {
		id, err := ParseID(rawID)
		if err != nil {
			return nil, fmt.Errorf("sim.dids: %w", err)
		}
		value, err := isotp.ParseBytes(rawValue)
		if err != nil {
			return nil, fmt.Errorf("sim.dids[%s]: %w", rawID, err)
		}
		out = append(out, SimDID{ID: id, Value: value, ReadOnly: readOnly[id]})
	}
	return out, nil
}

// ParseID parses a 16-bit identifier given in hex, with or without a 0x prefix.
func ParseID(raw string) (uint16, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")
	v, err := strconv.ParseUint(raw, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("identifier %q: %w", raw, err)
	}
	return uint16(v), nil
}
