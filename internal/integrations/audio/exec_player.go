package audio

import (
	"fmt"
	"os/exec"
	"sync"

	log "github.com/sirupsen/logrus"
)

// ExecPlayer spielt Clips mit einem externen Programm ab (Standard: aplay)
type ExecPlayer struct {
	command string

	mu      sync.Mutex
	playing bool
	cmd     *exec.Cmd
	done    chan struct{}
}

// NewExecPlayer erstellt einen Player; {file} im Befehl wird durch den Clip-Pfad ersetzt
func NewExecPlayer(command string) (*ExecPlayer, error) {
	args := expand(command, nil)
	if len(args) == 0 {
		return nil, fmt.Errorf("empty player command")
	}
	if _, err := exec.LookPath(args[0]); err != nil {
		return nil, fmt.Errorf("player %s not found: %w", args[0], err)
	}
	return &ExecPlayer{command: command}, nil
}

// IsPlaying meldet, ob der letzte gestartete Clip noch läuft
func (p *ExecPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Play startet die Wiedergabe im Hintergrund
func (p *ExecPlayer) Play(clip Clip) error {
	if !usable(clip.Path) {
		return fmt.Errorf("%s: %w", clip.Path, ErrNoClip)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return ErrPlayerBusy
	}

	args := expand(p.command, map[string]string{"file": clip.Path})
	cmd := exec.Command(args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", args[0], err)
	}

	done := make(chan struct{})
	p.playing = true
	p.cmd = cmd
	p.done = done

	go func() {
		if err := cmd.Wait(); err != nil {
			log.WithError(err).WithField("clip", clip.Path).Warn("Audio playback exited with error")
		}
		p.mu.Lock()
		if p.cmd == cmd {
			p.playing = false
			p.cmd = nil
		}
		p.mu.Unlock()
		close(done)
	}()

	log.Debugf("Playing %s", clip.Path)
	return nil
}

// Stop bricht eine laufende Wiedergabe ab und wartet auf deren Ende
func (p *ExecPlayer) Stop() {
	p.mu.Lock()
	cmd, done := p.cmd, p.done
	p.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
	<-done
}

// Wait blockiert, bis der aktuelle Clip zu Ende ist
func (p *ExecPlayer) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}
