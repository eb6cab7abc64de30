package phone

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/rotary-phone/internal/audio"
	"github.com/sweeney/rotary-phone/internal/command"
	"github.com/sweeney/rotary-phone/internal/directory"
	"github.com/sweeney/rotary-phone/internal/led"
	"github.com/sweeney/rotary-phone/internal/logic"
	"github.com/sweeney/rotary-phone/internal/metrics"
	"github.com/sweeney/rotary-phone/internal/params"
)

// Front panel button names.
const (
	ButtonSpeaker = "Speaker"
	ButtonRedial  = "Redial"
	ButtonRandom  = "Random"
)

// startupVolume is applied before the startup ring.
const startupVolume = 50

var (
	// ErrBusy is returned when an incoming call cannot start.
	ErrBusy = errors.New("phone busy")
	// ErrNotDialing is returned when a number is submitted outside Dialing.
	ErrNotDialing = errors.New("phone not dialing")
)

// Pins are the BCM input pins. All contacts close to ground except a
// RandomInverted button.
type Pins struct {
	Pulse    int
	Rotation int
	Handset  int

	Speaker        int
	Redial         int
	Random         int
	RandomInverted bool
}

// Sounds are the system sound files.
type Sounds struct {
	ShortRing string
	Ring      string
	Invalid   string
}

// Config is the controller's static configuration.
type Config struct {
	Call           logic.CallConfig
	ButtonDebounce time.Duration
	Pins           Pins
	Sounds         Sounds
}

// Directory resolves and lists dialable numbers.
type Directory interface {
	Lookup(number string) (string, bool)
	Random(p directory.Picker) (string, bool)
	Refresh() error
}

// Random drives ring jitter and random calls.
type Random interface {
	Uniform(min, max int64) int64
	Intn(n int) int
}

// Params reads and changes tunable parameters.
type Params interface {
	FloatOr(name string, def float64) float64
	Set(name, raw string) error
}

// Deps are the controller's collaborators. Metrics, Random and NewCallID
// are optional.
type Deps struct {
	Directory Directory
	Player    audio.Player
	Renderer  led.Renderer
	Params    Params
	Metrics   metrics.Recorder
	Random    Random
	NewCallID func() string
}

// Controller owns one of each core component and reacts to their events.
type Controller struct {
	cfg Config

	machine  *logic.CallMachine
	buttons  *logic.ButtonArray
	animator *led.Animator

	dir     Directory
	player  audio.Player
	params  Params
	metrics metrics.Recorder
	rnd     Random
	newID   func() string

	speaker SpeakerMode
	volume  int
	callID  string
	counts  Counts
	events  []Event

	renderFailing bool

	startTime     time.Time
	lastHeartbeat time.Time
}

// New builds a controller. Call Start before the first Tick.
func New(cfg Config, deps Deps, now time.Time) (*Controller, error) {
	if deps.Directory == nil || deps.Player == nil || deps.Renderer == nil || deps.Params == nil {
		return nil, errors.New("phone: directory, player, renderer and params are required")
	}

	c := &Controller{
		cfg:           cfg,
		dir:           deps.Directory,
		player:        deps.Player,
		params:        deps.Params,
		metrics:       deps.Metrics,
		rnd:           deps.Random,
		newID:         deps.NewCallID,
		speaker:       SpeakerNormal,
		volume:        -1,
		startTime:     now,
		lastHeartbeat: now,
	}
	if c.metrics == nil {
		c.metrics = metrics.Noop{}
	}
	if c.rnd == nil {
		c.rnd = logic.NewRandSource(now.UnixNano())
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}

	c.buttons = logic.NewButtonArray(cfg.ButtonDebounce)
	for _, b := range []struct {
		name     string
		pin      int
		inverted bool
	}{
		{ButtonSpeaker, cfg.Pins.Speaker, false},
		{ButtonRedial, cfg.Pins.Redial, false},
		{ButtonRandom, cfg.Pins.Random, cfg.Pins.RandomInverted},
	} {
		if err := c.buttons.Add(b.name, b.pin, b.inverted); err != nil {
			return nil, fmt.Errorf("add button %s: %w", b.name, err)
		}
	}

	c.machine = logic.NewCallMachine(cfg.Call, c.dir, c.player, c.rnd, now)
	c.machine.SetListener(&listener{c: c})
	c.animator = led.NewAnimator(deps.Renderer)

	return c, nil
}

// Start plays the startup ring, shows the idle pattern and applies the
// stored parameters.
func (c *Controller) Start(now time.Time) {
	c.setVolume(startupVolume)
	if c.cfg.Sounds.ShortRing != "" {
		if err := c.player.Play(c.cfg.Sounds.ShortRing, false); err != nil {
			log.Warn().Err(err).Str("path", c.cfg.Sounds.ShortRing).Msg("startup sound failed")
		}
	}
	c.animator.Apply(PatternFor(logic.StateIdle))
	c.ApplyParams()
	c.renderLED(now)
}

// ApplyParams pushes ring timing and the current speaker volume from the
// parameter store into the running components.
func (c *Controller) ApplyParams() {
	d := c.params.FloatOr(params.RingDuration, 5000)
	v := c.params.FloatOr(params.RingVariation, 2000)
	c.machine.SetRingTiming(millis(d), millis(v))
	c.applySpeakerVolume()
	log.Debug().Float64("ring_ms", d).Float64("variation_ms", v).Str("speaker", c.speaker.String()).Msg("parameters applied")
}

// Tick runs one polling iteration: buttons, call machine, audio, LED.
func (c *Controller) Tick(pins logic.PinLevels, now time.Time) []Event {
	c.events = nil

	for _, b := range c.buttons.Poll(pins, now) {
		c.onButton(b, now)
	}

	c.machine.Update(logic.DialInput{
		HandsetUp: !pins.Level(c.cfg.Pins.Handset),
		Rotating:  !pins.Level(c.cfg.Pins.Rotation),
		Pulse:     !pins.Level(c.cfg.Pins.Pulse),
	}, now)

	if err := c.player.Update(); err != nil {
		log.Warn().Err(err).Msg("audio update failed")
	}

	c.renderLED(now)

	return c.takeEvents()
}

// Handle executes an operator command between ticks.
func (c *Controller) Handle(cmd command.Command, now time.Time) ([]Event, error) {
	c.events = nil
	c.metrics.Incr("command", "command:"+string(cmd.Kind))

	var err error
	switch cmd.Kind {
	case command.KindRing:
		if !c.machine.StartCall(cmd.Number, now) {
			err = fmt.Errorf("%w: %s", ErrBusy, c.machine.State())
		}
	case command.KindDial:
		if !c.machine.DialNumber(cmd.Number, now) {
			err = fmt.Errorf("%w: %s", ErrNotDialing, c.machine.State())
		}
	case command.KindHangup:
		c.machine.StopCall(now)
	case command.KindRefresh:
		err = c.dir.Refresh()
	case command.KindSetParam:
		if err = c.params.Set(cmd.Name, cmd.Value); err == nil {
			c.ApplyParams()
		}
	default:
		err = fmt.Errorf("%w: %q", command.ErrUnknownCommand, cmd.Kind)
	}

	c.renderLED(now)
	return c.takeEvents(), err
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (c *Controller) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}
	if now.Sub(c.lastHeartbeat) < interval {
		return nil
	}

	c.lastHeartbeat = now
	hb := &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(c.startTime),
		Counts:    c.counts,
	}

	c.metrics.Gauge("uptime_seconds", hb.Uptime.Seconds())
	c.metrics.Gauge("calls.total", float64(hb.Counts.Calls))
	c.metrics.Gauge("calls.missed", float64(hb.Counts.Missed))
	return hb
}

// State returns the call state.
func (c *Controller) State() logic.CallState {
	return c.machine.State()
}

// Counts returns the running totals.
func (c *Controller) Counts() Counts {
	return c.counts
}

// Speaker returns the speaker mode.
func (c *Controller) Speaker() SpeakerMode {
	return c.speaker
}

// Status is a point-in-time view of the controller.
type Status struct {
	State          logic.CallState
	HandsetUp      bool
	Dialing        bool
	PulseCount     int
	DialBuffer     string
	LastNumber     string
	IncomingNumber string
	CallID         string
	Speaker        SpeakerMode
	Volume         int
	LED            led.Pattern
	Counts         Counts
	RingStart      time.Time
	RingDuration   time.Duration
}

// Status returns the current view for status consumers.
func (c *Controller) Status() Status {
	ringStart, ringDuration := c.machine.RingWindow()
	return Status{
		State:          c.machine.State(),
		HandsetUp:      c.machine.HandsetUp(),
		Dialing:        c.machine.Dialing(),
		PulseCount:     c.machine.PulseCount(),
		DialBuffer:     c.machine.DialBuffer(),
		LastNumber:     c.machine.LastNumber(),
		IncomingNumber: c.machine.IncomingNumber(),
		CallID:         c.callID,
		Speaker:        c.speaker,
		Volume:         c.volume,
		LED:            c.animator.Pattern(),
		Counts:         c.counts,
		RingStart:      ringStart,
		RingDuration:   ringDuration,
	}
}

func (c *Controller) onButton(b logic.ButtonEvent, now time.Time) {
	c.emit(Event{Kind: EventButton, Time: now, Button: b.Name, Pressed: b.Pressed})
	if !b.Pressed {
		return
	}

	c.counts.ButtonPresses++
	c.metrics.Incr("button.press", "button:"+b.Name)
	log.Info().Str("button", b.Name).Msg("button pressed")

	switch b.Name {
	case ButtonSpeaker:
		c.speaker = c.speaker.Next()
		c.applySpeakerVolume()
		log.Info().Str("mode", c.speaker.String()).Int("volume", c.volume).Msg("speaker mode changed")
	case ButtonRedial:
		if c.machine.State() != logic.StateDialing {
			return
		}
		if !c.machine.Redial(now) {
			log.Info().Msg("nothing to redial")
		}
	case ButtonRandom:
		if c.machine.State() != logic.StateIdle {
			return
		}
		number, ok := c.dir.Random(c.rnd)
		if !ok {
			log.Warn().Msg("random call: directory is empty")
			return
		}
		if !c.machine.StartCall(number, now) {
			log.Info().Str("number", number).Msg("random call rejected")
		}
	}
}

func (c *Controller) onStateChanged(tr logic.Transition) {
	switch tr.To {
	case logic.StateDialing, logic.StateRinging:
		c.callID = c.newID()
	}

	c.count(tr)
	c.metrics.Incr("call.transition", "from:"+tr.From.String(), "to:"+tr.To.String())
	log.Info().
		Str("from", tr.From.String()).
		Str("to", tr.To.String()).
		Str("trigger", tr.Trigger.String()).
		Str("number", tr.Number).
		Str("call_id", c.callID).
		Msg("call state changed")

	switch tr.To {
	case logic.StateCalling:
		c.player.Stop()
		c.applySpeakerVolume()
		if tr.AudioPath != "" {
			c.play(tr.AudioPath, false)
		} else {
			log.Warn().Str("number", tr.Number).Msg("no recording for number")
		}
	case logic.StateInvalidNumber:
		c.applySpeakerVolume()
		c.play(c.cfg.Sounds.Invalid, true)
	case logic.StateIdle:
		c.player.Stop()
	case logic.StateRinging:
		c.setVolume(int(c.params.FloatOr(params.VolumeSpeaker, 100)))
		c.play(c.cfg.Sounds.Ring, true)
	}

	c.animator.Apply(PatternFor(tr.To))

	c.emit(Event{
		Kind:      EventState,
		Time:      tr.Time,
		CallID:    c.callID,
		From:      tr.From,
		To:        tr.To,
		Trigger:   tr.Trigger,
		Number:    tr.Number,
		AudioPath: tr.AudioPath,
	})

	if tr.To == logic.StateIdle {
		c.callID = ""
	}
}

func (c *Controller) count(tr logic.Transition) {
	switch {
	case tr.To == logic.StateCalling && tr.From == logic.StateDialing:
		c.counts.Calls++
	case tr.To == logic.StateCalling && tr.From == logic.StateRinging:
		c.counts.Answered++
	case tr.To == logic.StateInvalidNumber:
		c.counts.Invalid++
	case tr.To == logic.StateRinging:
		c.counts.Incoming++
	case tr.From == logic.StateRinging && tr.Trigger == logic.TriggerRingTimeout:
		c.counts.Missed++
	}
}

func (c *Controller) play(path string, loop bool) {
	if err := c.player.Play(path, loop); err != nil {
		log.Error().Err(err).Str("path", path).Msg("playback failed")
	}
}

func (c *Controller) applySpeakerVolume() {
	var name string
	var def float64
	switch c.speaker {
	case SpeakerSilent:
		name, def = params.VolumeSilent, 20
	case SpeakerLoud:
		name, def = params.VolumeSpeaker, 100
	default:
		name, def = params.VolumeNormal, 50
	}
	c.setVolume(int(c.params.FloatOr(name, def)))
}

func (c *Controller) setVolume(percent int) {
	if err := c.player.SetVolume(percent); err != nil {
		log.Warn().Err(err).Int("volume", percent).Msg("failed to set volume")
		return
	}
	c.volume = percent
	c.metrics.Gauge("volume", float64(percent))
}

func (c *Controller) renderLED(now time.Time) {
	_, err := c.animator.Update(now)
	switch {
	case err != nil && !c.renderFailing:
		log.Warn().Err(err).Msg("led render failed")
		c.renderFailing = true
	case err == nil && c.renderFailing:
		log.Info().Msg("led render recovered")
		c.renderFailing = false
	}
}

func (c *Controller) emit(e Event) {
	c.events = append(c.events, e)
}

func (c *Controller) takeEvents() []Event {
	events := c.events
	c.events = nil
	return events
}

// maxMillis caps parameter durations well inside time.Duration's range.
const maxMillis = float64(24 * time.Hour / time.Millisecond)

func millis(ms float64) time.Duration {
	if ms > maxMillis {
		ms = maxMillis
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// listener receives call machine notifications on behalf of the controller.
type listener struct {
	c *Controller
}

func (l *listener) StateChanged(tr logic.Transition) {
	l.c.onStateChanged(tr)
}

func (l *listener) DigitDialed(digit int, now time.Time) {
	l.c.metrics.Incr("call.digit")
	log.Debug().Int("digit", digit).Msg("digit dialed")
	l.c.emit(Event{Kind: EventDigit, Time: now, CallID: l.c.callID, Digit: digit})
}

func (l *listener) NumberDialed(number string, now time.Time) {
	log.Info().Str("number", number).Msg("number dialed")
	l.c.emit(Event{Kind: EventNumber, Time: now, CallID: l.c.callID, Number: number})
}

func (l *listener) HandsetChanged(up bool, now time.Time) {
	log.Info().Bool("up", up).Msg("handset changed")
	l.c.emit(Event{Kind: EventHandset, Time: now, CallID: l.c.callID, HandsetUp: up})
}
