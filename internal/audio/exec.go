package audio

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ExecConfig names the external programs used for playback and volume.
// "{}" in MixerArgs is replaced by the volume percentage; the sound path is
// appended to PlayArgs.
type ExecConfig struct {
	PlayCommand  string
	PlayArgs     []string
	MixerCommand string
	MixerArgs    []string
}

// DefaultExecConfig uses ALSA's aplay and amixer.
func DefaultExecConfig() ExecConfig {
	return ExecConfig{
		PlayCommand:  "aplay",
		PlayArgs:     []string{"-q"},
		MixerCommand: "amixer",
		MixerArgs:    []string{"-q", "sset", "PCM", "{}%"},
	}
}

// minLoopRun is the shortest run of a looping sound that is restarted. A
// player that exits sooner, or fails, cannot play the file.
const minLoopRun = 250 * time.Millisecond

// ExecPlayer plays sounds by running an external player process.
// It is owned by the polling loop and not safe for concurrent use.
type ExecPlayer struct {
	cfg ExecConfig

	cmd     *exec.Cmd
	done    chan struct{}
	exitErr *error // set before done is closed
	started time.Time
	path    string
	loop    bool

	volume int
}

// NewExecPlayer creates a player. Nothing is started until Play.
func NewExecPlayer(cfg ExecConfig) *ExecPlayer {
	return &ExecPlayer{cfg: cfg, volume: -1}
}

// Play starts path.
func (p *ExecPlayer) Play(path string, loop bool) error {
	p.Stop()
	p.path = path
	p.loop = loop
	return p.start()
}

func (p *ExecPlayer) start() error {
	args := append(append([]string(nil), p.cfg.PlayArgs...), p.path)
	cmd := exec.Command(p.cfg.PlayCommand, args...)
	if err := cmd.Start(); err != nil {
		p.loop = false
		return fmt.Errorf("start %s: %w", p.cfg.PlayCommand, err)
	}

	done := make(chan struct{})
	exitErr := new(error)
	path := p.path
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Debug().Err(err).Str("path", path).Msg("player exited")
			*exitErr = err
		}
		close(done)
	}()

	p.cmd = cmd
	p.done = done
	p.exitErr = exitErr
	p.started = time.Now()
	log.Debug().Str("path", p.path).Bool("loop", p.loop).Msg("playing")
	return nil
}

// Stop kills the player process without waiting for it; the process is
// reaped in the background.
func (p *ExecPlayer) Stop() {
	p.loop = false
	if p.cmd == nil {
		return
	}
	if !p.finished() {
		if err := p.cmd.Process.Kill(); err != nil {
			log.Warn().Err(err).Msg("failed to stop player")
		}
	}
	p.cmd = nil
	p.done = nil
	p.exitErr = nil
}

// IsPlaying reports whether the player process runs or a loop is active.
func (p *ExecPlayer) IsPlaying() bool {
	if p.cmd == nil {
		return false
	}
	return p.loop || !p.finished()
}

// Update restarts a looping sound whose process has exited. A loop whose
// last run failed or ended within minLoopRun is given up.
func (p *ExecPlayer) Update() error {
	if p.cmd == nil || !p.loop || !p.finished() {
		return nil
	}
	ran := time.Since(p.started)
	if err := *p.exitErr; err != nil || ran < minLoopRun {
		p.loop = false
		log.Warn().Err(err).Str("path", p.path).Dur("ran", ran).Msg("looping sound stopped, player cannot play it")
		return nil
	}
	return p.start()
}

// SetVolume runs the mixer command. An unchanged volume is not re-applied.
func (p *ExecPlayer) SetVolume(percent int) error {
	percent = clampVolume(percent)
	if percent == p.volume {
		return nil
	}
	if p.cfg.MixerCommand == "" {
		p.volume = percent
		return nil
	}

	args := make([]string, len(p.cfg.MixerArgs))
	for i, a := range p.cfg.MixerArgs {
		args[i] = strings.ReplaceAll(a, "{}", strconv.Itoa(percent))
	}
	if out, err := exec.Command(p.cfg.MixerCommand, args...).CombinedOutput(); err != nil {
		return fmt.Errorf("set volume %d%%: %w: %s", percent, err, strings.TrimSpace(string(out)))
	}
	p.volume = percent
	return nil
}

// Volume returns the last applied volume, or -1 before the first SetVolume.
func (p *ExecPlayer) Volume() int {
	return p.volume
}

func (p *ExecPlayer) finished() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}
