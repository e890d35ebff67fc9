package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/madskjeldgaard/midi2motor/internal/command"
	"github.com/madskjeldgaard/midi2motor/internal/midi"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "midi2motor.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadNoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IdleTimeout != 2*time.Second {
		t.Errorf("IdleTimeout: got %v, want 2s", cfg.IdleTimeout)
	}
	if len(cfg.Drivers) != 2 {
		t.Errorf("Drivers: got %d, want 2", len(cfg.Drivers))
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
idle_timeout: 5s
drivers:
  - {ain1: GPIO5, ain2: GPIO6, bin1: GPIO7, bin2: GPIO8, sleep: 9, decay: fast}
midi:
  enabled: true
  device: /dev/ttyS0
  note_map: swapped
mqtt:
  broker: tcp://broker:1883
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IdleTimeout != 5*time.Second {
		t.Errorf("IdleTimeout: got %v", cfg.IdleTimeout)
	}
	if len(cfg.Drivers) != 1 || cfg.Drivers[0].Decay != "fast" || cfg.Drivers[0].Sleep != 9 {
		t.Errorf("Drivers: got %+v", cfg.Drivers)
	}
	if cfg.MIDI.Device != "/dev/ttyS0" || cfg.MIDI.Baud != 31250 {
		t.Errorf("MIDI: got %+v", cfg.MIDI)
	}
	if cfg.MQTT.Broker != "tcp://broker:1883" || cfg.MQTT.CommandTopic == "" {
		t.Errorf("MQTT: got %+v", cfg.MQTT)
	}
}

func TestLoadDriverWithoutDecayIsSlow(t *testing.T) {
	path := writeConfig(t, `
drivers:
  - {ain1: GPIO12, ain2: GPIO13, bin1: GPIO5, bin2: GPIO6, sleep: 4}
  - {ain1: GPIO20, ain2: GPIO21, bin1: GPIO22, bin2: GPIO23, sleep: 16, decay: fast}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Drivers[0].Decay != "slow" {
		t.Errorf("drivers[0].decay: got %q, want slow", cfg.Drivers[0].Decay)
	}
	if cfg.Drivers[1].Decay != "fast" {
		t.Errorf("drivers[1].decay: got %q, want fast", cfg.Drivers[1].Decay)
	}
}

// bcmHardwarePWM maps the BCM header pins that share a hardware PWM
// channel.
var bcmHardwarePWM = map[string]int{"GPIO12": 0, "GPIO18": 0, "GPIO13": 1, "GPIO19": 1}

func TestDefaultPinsUseEachHardwarePWMOnce(t *testing.T) {
	used := map[int]string{}
	for i, d := range Default().Drivers {
		for _, pin := range []string{d.AIN1, d.AIN2, d.BIN1, d.BIN2} {
			ch, ok := bcmHardwarePWM[pin]
			if !ok {
				continue
			}
			if prev, dup := used[ch]; dup {
				t.Errorf("driver %d: %s shares PWM%d with %s", i+1, pin, ch, prev)
			}
			used[ch] = pin
		}
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MIDI2MOTOR_IDLE_TIMEOUT", "750ms")
	t.Setenv("MIDI2MOTOR_HTTP", ":9090")
	t.Setenv("MIDI2MOTOR_MQTT_BROKER", "tcp://env:1883")
	t.Setenv("MIDI2MOTOR_LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, "http: \":1234\"\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IdleTimeout != 750*time.Millisecond {
		t.Errorf("IdleTimeout: got %v", cfg.IdleTimeout)
	}
	if cfg.HTTP != ":9090" {
		t.Errorf("HTTP: got %q, env should win over file", cfg.HTTP)
	}
	if cfg.MQTT.Broker != "tcp://env:1883" {
		t.Errorf("MQTT.Broker: got %q", cfg.MQTT.Broker)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level: got %q", cfg.Logging.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadBadYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "drivers: [oops")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"idle", func(c *Config) { c.IdleTimeout = 0 }, "idle_timeout"},
		{"poll", func(c *Config) { c.Poll = -1 }, "poll"},
		{"no drivers", func(c *Config) { c.Drivers = nil }, "need 1 or 2 drivers"},
		{"three drivers", func(c *Config) { c.Drivers = append(c.Drivers, c.Drivers[0]) }, "need 1 or 2 drivers"},
		{"empty pin", func(c *Config) { c.Drivers[0].BIN2 = "" }, "drivers[0].bin2 is empty"},
		{"decay", func(c *Config) { c.Drivers[1].Decay = "coast" }, "drivers[1].decay"},
		{"midi channel", func(c *Config) { c.MIDI.Channel = 17 }, "midi.channel"},
		{"note map", func(c *Config) { c.MIDI.NoteMap = "crossed" }, "unknown note_map"},
		{"serial device", func(c *Config) { c.Serial = Serial{Enabled: true} }, "serial.device"},
		{"mqtt topic", func(c *Config) { c.MQTT.Broker = "tcp://x:1883"; c.MQTT.CommandTopic = "" }, "command_topic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestNoteTableExplicit(t *testing.T) {
	m := MIDI{Notes: map[int]NoteTarget{
		36: {Motor: 2, Bridge: "b"},
		37: {Motor: 1, Bridge: "A"},
	}}
	table, err := m.NoteTable()
	if err != nil {
		t.Fatalf("NoteTable: %v", err)
	}
	if len(table) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(table))
	}
	if table[36] != (midi.Target{Motor: 2, Bridge: command.BridgeB}) {
		t.Errorf("note 36: got %+v", table[36])
	}
}

func TestNoteTableExplicitInvalid(t *testing.T) {
	tests := []map[int]NoteTarget{
		{200: {Motor: 1, Bridge: "A"}},
		{60: {Motor: 3, Bridge: "A"}},
		{60: {Motor: 1, Bridge: "C"}},
	}
	for i, notes := range tests {
		if _, err := (MIDI{Notes: notes}).NoteTable(); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestMarshalRoundTripsDurations(t *testing.T) {
	data, err := Default().Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), "idle_timeout: 2s") {
		t.Errorf("expected human-readable duration, got:\n%s", data)
	}
}
