// Package config loads the rig description: pin bindings, transports and
// daemon settings. Values come from built-in defaults, then an optional YAML
// file, then MIDI2MOTOR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/madskjeldgaard/midi2motor/internal/command"
	"github.com/madskjeldgaard/midi2motor/internal/midi"
	"github.com/madskjeldgaard/midi2motor/internal/motor"
)

// Config is the top-level daemon configuration.
type Config struct {
	IdleTimeout    time.Duration `yaml:"idle_timeout" env:"MIDI2MOTOR_IDLE_TIMEOUT"`
	Poll           time.Duration `yaml:"poll"`
	PWMFrequencyHz int           `yaml:"pwm_frequency_hz"`
	GPIOChip       string        `yaml:"gpio_chip"`
	Drivers        []Driver      `yaml:"drivers"`
	MIDI           MIDI          `yaml:"midi"`
	Serial         Serial        `yaml:"serial"`
	MQTT           MQTT          `yaml:"mqtt"`
	HTTP           string        `yaml:"http" env:"MIDI2MOTOR_HTTP"`
	Heartbeat      time.Duration `yaml:"heartbeat"`
	Logging        Logging       `yaml:"logging"`
}

// Driver binds one driver chip. Bridge inputs are PWM-capable pin names
// (e.g. "GPIO12"); Sleep is a line offset on GPIOChip. An empty Decay
// means slow.
type Driver struct {
	AIN1  string `yaml:"ain1"`
	AIN2  string `yaml:"ain2"`
	BIN1  string `yaml:"bin1"`
	BIN2  string `yaml:"bin2"`
	Sleep int    `yaml:"sleep"`
	Decay string `yaml:"decay"`
}

// MIDI configures the DIN/UART MIDI input.
type MIDI struct {
	Enabled bool   `yaml:"enabled"`
	Device  string `yaml:"device" env:"MIDI2MOTOR_MIDI_DEVICE"`
	Baud    int    `yaml:"baud"`
	// Channel is 1..16; 0 accepts all channels.
	Channel int    `yaml:"channel"`
	NoteMap string `yaml:"note_map"`
	// Notes, when set, replaces the named table.
	Notes map[int]NoteTarget `yaml:"notes,omitempty"`
}

// NoteTarget is one explicit note table entry.
type NoteTarget struct {
	Motor  int    `yaml:"motor"`
	Bridge string `yaml:"bridge"`
}

// Serial configures the line-based text command port.
type Serial struct {
	Enabled bool   `yaml:"enabled"`
	Device  string `yaml:"device" env:"MIDI2MOTOR_SERIAL_DEVICE"`
	Baud    int    `yaml:"baud"`
}

// MQTT configures the broker connection. An empty Broker disables MQTT.
type MQTT struct {
	Broker       string `yaml:"broker" env:"MIDI2MOTOR_MQTT_BROKER"`
	ClientID     string `yaml:"client_id"`
	CommandTopic string `yaml:"command_topic"`
	EventTopic   string `yaml:"event_topic"`
	SystemTopic  string `yaml:"system_topic"`
}

// Logging configures the logger.
type Logging struct {
	Level      string `yaml:"level" env:"MIDI2MOTOR_LOG_LEVEL"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns the configuration for the reference two-chip board.
func Default() Config {
	return Config{
		IdleTimeout:    2 * time.Second,
		Poll:           10 * time.Millisecond,
		PWMFrequencyHz: 20000,
		GPIOChip:       "gpiochip0",
		// On a Pi, GPIO12/18 share hardware PWM0 and GPIO13/19 share PWM1.
		// Only one pin per channel is used; the rest are DMA-driven.
		Drivers: []Driver{
			{AIN1: "GPIO12", AIN2: "GPIO13", BIN1: "GPIO5", BIN2: "GPIO6", Sleep: 4, Decay: "slow"},
			{AIN1: "GPIO20", AIN2: "GPIO21", BIN1: "GPIO22", BIN2: "GPIO23", Sleep: 16, Decay: "slow"},
		},
		MIDI: MIDI{
			Enabled: true,
			Device:  "/dev/ttyAMA0",
			Baud:    31250,
			NoteMap: midi.NoteMapDefault,
		},
		Serial: Serial{
			Device: "/dev/ttyUSB0",
			Baud:   115200,
		},
		MQTT: MQTT{
			ClientID:     "midi2motor",
			CommandTopic: "motors/midi2motor/commands",
			EventTopic:   "motors/midi2motor/events",
			SystemTopic:  "motors/midi2motor/system",
		},
		HTTP:      ":8080",
		Heartbeat: 15 * time.Minute,
		Logging: Logging{
			Level:      "info",
			Format:     "console",
			Output:     "stderr",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Load reads path (skipped when empty) over the defaults, applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("env overrides: %w", err)
	}

	for i := range cfg.Drivers {
		if cfg.Drivers[i].Decay == "" {
			cfg.Drivers[i].Decay = motor.SlowDecay.String()
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Marshal renders cfg as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// NoteTable resolves the note map: explicit Notes win over NoteMap.
func (m MIDI) NoteTable() (midi.NoteMap, error) {
	if len(m.Notes) == 0 {
		table, ok := midi.NoteMapByName(m.NoteMap)
		if !ok {
			return nil, fmt.Errorf("unknown note_map %q", m.NoteMap)
		}
		return table, nil
	}

	table := midi.NoteMap{}
	for note, target := range m.Notes {
		if note < 0 || note > 127 {
			return nil, fmt.Errorf("note %d out of range 0..127", note)
		}
		if target.Motor < 1 || target.Motor > 2 {
			return nil, fmt.Errorf("note %d: motor %d must be 1 or 2", note, target.Motor)
		}
		b := strings.ToUpper(target.Bridge)
		if b != "A" && b != "B" {
			return nil, fmt.Errorf("note %d: bridge %q must be A or B", note, target.Bridge)
		}
		table[uint8(note)] = midi.Target{Motor: target.Motor, Bridge: command.Bridge(b[0])}
	}
	return table, nil
}

// Validate checks the configuration for values the daemon cannot run with.
func (c Config) Validate() error {
	var err error
	if c.IdleTimeout <= 0 {
		err = multierr.Append(err, errors.New("idle_timeout must be positive"))
	}
	if c.Poll <= 0 {
		err = multierr.Append(err, errors.New("poll must be positive"))
	}
	if c.PWMFrequencyHz <= 0 {
		err = multierr.Append(err, errors.New("pwm_frequency_hz must be positive"))
	}
	if len(c.Drivers) < 1 || len(c.Drivers) > 2 {
		err = multierr.Append(err, fmt.Errorf("need 1 or 2 drivers, got %d", len(c.Drivers)))
	}
	for i, d := range c.Drivers {
		for name, pin := range map[string]string{"ain1": d.AIN1, "ain2": d.AIN2, "bin1": d.BIN1, "bin2": d.BIN2} {
			if pin == "" {
				err = multierr.Append(err, fmt.Errorf("drivers[%d].%s is empty", i, name))
			}
		}
		if d.Sleep < 0 {
			err = multierr.Append(err, fmt.Errorf("drivers[%d].sleep must be a line offset", i))
		}
		if _, ok := motor.ParseDecayMode(d.Decay); !ok {
			err = multierr.Append(err, fmt.Errorf("drivers[%d].decay %q must be slow or fast", i, d.Decay))
		}
	}
	if c.MIDI.Enabled {
		if c.MIDI.Device == "" {
			err = multierr.Append(err, errors.New("midi.device is empty"))
		}
		if c.MIDI.Channel < 0 || c.MIDI.Channel > 16 {
			err = multierr.Append(err, fmt.Errorf("midi.channel %d must be 0..16", c.MIDI.Channel))
		}
		if _, tableErr := c.MIDI.NoteTable(); tableErr != nil {
			err = multierr.Append(err, fmt.Errorf("midi: %w", tableErr))
		}
	}
	if c.Serial.Enabled && c.Serial.Device == "" {
		err = multierr.Append(err, errors.New("serial.device is empty"))
	}
	if c.MQTT.Broker != "" && c.MQTT.CommandTopic == "" {
		err = multierr.Append(err, errors.New("mqtt.command_topic is empty"))
	}
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
