// Package config loads the phone's settings from defaults, an optional JSON
// file and command-line flags, in that order of precedence (flags win).
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"
)

// Pins holds BCM pin numbers. A negative pin is unset.
type Pins struct {
	Pulse    int `json:"pulse"`
	Rotation int `json:"rotation"`
	Handset  int `json:"handset"`

	Speaker int `json:"speaker"`
	Redial  int `json:"redial"`
	Random  int `json:"random"`

	LedRed   int `json:"led_red"`
	LedGreen int `json:"led_green"`
	LedBlue  int `json:"led_blue"`
}

// Inputs returns the input pins in a fixed order.
func (p Pins) Inputs() []int {
	return []int{p.Pulse, p.Rotation, p.Handset, p.Speaker, p.Redial, p.Random}
}

// Sounds names the system sound files.
type Sounds struct {
	ShortRing string `json:"short_ring"`
	Ring      string `json:"ring"`
	Invalid   string `json:"invalid"`
}

// Config is the complete daemon configuration.
type Config struct {
	ConfigFile string `json:"-"`
	PrintState bool   `json:"-"`

	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	Poll             Duration `json:"poll"`
	HandsetDebounce  Duration `json:"handset_debounce"`
	PulseDebounce    Duration `json:"pulse_debounce"`
	RotationDebounce Duration `json:"rotation_debounce"`
	ButtonDebounce   Duration `json:"button_debounce"`
	DialTimeout      Duration `json:"dial_timeout"`
	Heartbeat        Duration `json:"heartbeat"`

	Broker   string `json:"broker"`
	ClientID string `json:"client_id"`
	HTTPAddr string `json:"http"`

	NumbersDir string `json:"numbers_dir"`
	Sounds     Sounds `json:"sounds"`
	ParamsDB   string `json:"params_db"`

	PlayCommand  string `json:"play_command"`
	MixerCommand string `json:"mixer_command"`
	MixerControl string `json:"mixer_control"`

	StatsdAddr      string   `json:"statsd_addr"`
	StatsdNamespace string   `json:"statsd_namespace"`
	StatsdTags      []string `json:"statsd_tags"`

	Chip           string `json:"chip"`
	Pins           Pins   `json:"pins"`
	RandomInverted bool   `json:"random_inverted"`
}

// Default returns the settings for the Raspberry Pi build of the phone.
func Default() Config {
	return Config{
		LogLevel: "info",

		Poll:             Duration(5 * time.Millisecond),
		HandsetDebounce:  Duration(100 * time.Millisecond),
		PulseDebounce:    Duration(80 * time.Millisecond),
		RotationDebounce: Duration(10 * time.Millisecond),
		ButtonDebounce:   Duration(50 * time.Millisecond),
		DialTimeout:      Duration(3 * time.Second),
		Heartbeat:        Duration(15 * time.Minute),

		Broker:   "tcp://localhost:1883",
		ClientID: "rotary-phone",
		HTTPAddr: ":80",

		NumbersDir: "/var/lib/rotary-phone/numbers",
		Sounds: Sounds{
			ShortRing: "/var/lib/rotary-phone/system/short_ring.wav",
			Ring:      "/var/lib/rotary-phone/system/ring.wav",
			Invalid:   "/var/lib/rotary-phone/system/keinAnschluss.wav",
		},
		ParamsDB: "/var/lib/rotary-phone/params.db",

		PlayCommand:  "aplay",
		MixerCommand: "amixer",
		MixerControl: "PCM",

		StatsdNamespace: "rotary_phone.",

		Chip: "gpiochip0",
		Pins: Pins{
			Pulse:    22,
			Rotation: 27,
			Handset:  17,
			Speaker:  23,
			Redial:   24,
			Random:   25,
			LedRed:   5,
			LedGreen: 6,
			LedBlue:  13,
		},
		RandomInverted: true,
	}
}

// Load parses args (without the program name).
func Load(args []string) (Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("rotary-phone", flag.ContinueOnError)
	fs.StringVar(&cfg.ConfigFile, "config", "", "Path to JSON config file (optional)")
	fs.BoolVar(&cfg.PrintState, "print-state", false, "Print current line state and exit")

	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Append logs to this file instead of stderr")

	fs.Var(&cfg.Poll, "poll", "GPIO polling interval")
	fs.Var(&cfg.HandsetDebounce, "handset-debounce", "Handset switch debounce")
	fs.Var(&cfg.PulseDebounce, "pulse-debounce", "Minimum spacing of dial pulses")
	fs.Var(&cfg.RotationDebounce, "rotation-debounce", "Rotation contact debounce")
	fs.Var(&cfg.ButtonDebounce, "button-debounce", "Front button debounce")
	fs.Var(&cfg.DialTimeout, "dial-timeout", "Pause after the last digit that completes a number")
	fs.Var(&cfg.Heartbeat, "heartbeat", "Heartbeat interval (0 to disable)")

	fs.StringVar(&cfg.Broker, "broker", cfg.Broker, "MQTT broker address (empty to disable)")
	fs.StringVar(&cfg.ClientID, "client-id", cfg.ClientID, "MQTT client ID")
	fs.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "HTTP status address (empty to disable)")

	fs.StringVar(&cfg.NumbersDir, "numbers", cfg.NumbersDir, "Directory of <number>_<description>.wav files")
	fs.StringVar(&cfg.Sounds.ShortRing, "sound-short-ring", cfg.Sounds.ShortRing, "Startup sound")
	fs.StringVar(&cfg.Sounds.Ring, "sound-ring", cfg.Sounds.Ring, "Ring sound")
	fs.StringVar(&cfg.Sounds.Invalid, "sound-invalid", cfg.Sounds.Invalid, "Invalid number sound")
	fs.StringVar(&cfg.ParamsDB, "params-db", cfg.ParamsDB, "SQLite parameter database")

	fs.StringVar(&cfg.PlayCommand, "player", cfg.PlayCommand, "Sound player command")
	fs.StringVar(&cfg.MixerCommand, "mixer", cfg.MixerCommand, "Volume mixer command (empty to disable)")
	fs.StringVar(&cfg.MixerControl, "mixer-control", cfg.MixerControl, "Mixer control name")

	fs.StringVar(&cfg.StatsdAddr, "statsd", cfg.StatsdAddr, "DogStatsD address (empty to disable)")
	fs.StringVar(&cfg.StatsdNamespace, "statsd-namespace", cfg.StatsdNamespace, "Metric namespace")
	fs.Var((*stringList)(&cfg.StatsdTags), "statsd-tags", "Comma-separated metric tags")

	fs.StringVar(&cfg.Chip, "chip", cfg.Chip, "GPIO chip")
	fs.IntVar(&cfg.Pins.Pulse, "pin-pulse", cfg.Pins.Pulse, "BCM pin of the dial pulse contact")
	fs.IntVar(&cfg.Pins.Rotation, "pin-rotation", cfg.Pins.Rotation, "BCM pin of the dial rotation contact")
	fs.IntVar(&cfg.Pins.Handset, "pin-handset", cfg.Pins.Handset, "BCM pin of the handset switch")
	fs.IntVar(&cfg.Pins.Speaker, "pin-speaker", cfg.Pins.Speaker, "BCM pin of the speaker button")
	fs.IntVar(&cfg.Pins.Redial, "pin-redial", cfg.Pins.Redial, "BCM pin of the redial button")
	fs.IntVar(&cfg.Pins.Random, "pin-random", cfg.Pins.Random, "BCM pin of the random call button")
	fs.IntVar(&cfg.Pins.LedRed, "pin-led-red", cfg.Pins.LedRed, "BCM pin of the red LED")
	fs.IntVar(&cfg.Pins.LedGreen, "pin-led-green", cfg.Pins.LedGreen, "BCM pin of the green LED")
	fs.IntVar(&cfg.Pins.LedBlue, "pin-led-blue", cfg.Pins.LedBlue, "BCM pin of the blue LED")
	fs.BoolVar(&cfg.RandomInverted, "random-inverted", cfg.RandomInverted, "Random button closes to high")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.ConfigFile != "" {
		// remember explicit flags so they can win over the file
		set := map[string]string{}
		fs.Visit(func(f *flag.Flag) {
			set[f.Name] = f.Value.String()
		})

		if err := cfg.loadFile(cfg.ConfigFile); err != nil {
			return Config{}, err
		}

		for name, value := range set {
			if err := fs.Set(name, value); err != nil {
				return Config{}, fmt.Errorf("reapply flag -%s: %w", name, err)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to load config file: %w", err)
	}
	defer file.Close()

	dec := json.NewDecoder(file)
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks timing values and the pin map.
func (c *Config) Validate() error {
	var errs []error

	if c.Poll <= 0 {
		errs = append(errs, errors.New("poll must be positive"))
	}
	if c.DialTimeout <= 0 {
		errs = append(errs, errors.New("dial_timeout must be positive"))
	}
	for name, d := range map[string]Duration{
		"handset_debounce":  c.HandsetDebounce,
		"pulse_debounce":    c.PulseDebounce,
		"rotation_debounce": c.RotationDebounce,
		"button_debounce":   c.ButtonDebounce,
		"heartbeat":         c.Heartbeat,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	if c.NumbersDir == "" {
		errs = append(errs, errors.New("numbers_dir is required"))
	}
	if err := c.Pins.validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (p Pins) validate() error {
	var (
		missingFields []string
		usedPins      = map[int]string{}
		conflicts     []string
	)

	v := reflect.ValueOf(p)
	t := reflect.TypeOf(p)

	for i := 0; i < v.NumField(); i++ {
		fieldName := t.Field(i).Tag.Get("json")
		pin := int(v.Field(i).Int())

		if pin < 0 {
			missingFields = append(missingFields, "pins."+fieldName)
			continue
		}

		if other, exists := usedPins[pin]; exists {
			conflicts = append(conflicts, fmt.Sprintf("pins.%s and pins.%s both use pin %d", fieldName, other, pin))
		} else {
			usedPins[pin] = fieldName
		}
	}

	var errs []error
	if len(missingFields) > 0 {
		errs = append(errs, errors.New("missing required pins: "+strings.Join(missingFields, ", ")))
	}
	if len(conflicts) > 0 {
		errs = append(errs, errors.New("conflicting pins: "+strings.Join(conflicts, ", ")))
	}
	return errors.Join(errs...)
}
