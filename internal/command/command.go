// Package command carries operator requests from the web and MQTT
// goroutines into the single polling loop.
package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sweeney/rotary-phone/internal/logic"
)

// Kind identifies a command.
type Kind string

const (
	KindRing     Kind = "ring"
	KindDial     Kind = "dial"
	KindHangup   Kind = "hangup"
	KindRefresh  Kind = "refresh"
	KindSetParam Kind = "set"
)

var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrMissingNumber   = errors.New("number required")
	ErrMalformedNumber = errors.New("malformed number")
	ErrMissingName     = errors.New("set requires a parameter name")
	ErrQueueFull       = errors.New("command queue full")
)

// Command is one operator request.
type Command struct {
	Kind   Kind   `json:"command"`
	Number string `json:"number,omitempty"`
	Name   string `json:"name,omitempty"`
	Value  string `json:"value,omitempty"`

	// Source records where the command came from ("http", "mqtt").
	Source string `json:"-"`
}

// Ring requests an incoming call from number.
func Ring(number string) Command {
	return Command{Kind: KindRing, Number: number}
}

// Dial submits number as if it had been dialed with the handset up.
func Dial(number string) Command {
	return Command{Kind: KindDial, Number: number}
}

// Hangup stops whatever the phone is doing.
func Hangup() Command {
	return Command{Kind: KindHangup}
}

// Refresh rescans the number directory.
func Refresh() Command {
	return Command{Kind: KindRefresh}
}

// SetParam changes a stored parameter. value is parsed by the parameter's kind.
func SetParam(name, value string) Command {
	return Command{Kind: KindSetParam, Name: name, Value: value}
}

// Validate checks that the command carries what its kind needs.
func (c Command) Validate() error {
	switch c.Kind {
	case KindRing, KindDial:
		return validNumber(c.Number)
	case KindHangup, KindRefresh:
	case KindSetParam:
		if c.Name == "" {
			return ErrMissingName
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, c.Kind)
	}
	return nil
}

// validNumber accepts 1 to logic.MaxDigits ASCII digits.
func validNumber(n string) error {
	if n == "" {
		return ErrMissingNumber
	}
	if len(n) > logic.MaxDigits {
		return fmt.Errorf("%w: %d digits, at most %d", ErrMalformedNumber, len(n), logic.MaxDigits)
	}
	for i := 0; i < len(n); i++ {
		if n[i] < '0' || n[i] > '9' {
			return fmt.Errorf("%w: %q", ErrMalformedNumber, n)
		}
	}
	return nil
}

func (c Command) String() string {
	switch c.Kind {
	case KindRing, KindDial:
		return string(c.Kind) + " " + c.Number
	case KindSetParam:
		return "set " + c.Name + "=" + c.Value
	default:
		return string(c.Kind)
	}
}

// Parse decodes a JSON command such as {"command":"ring","number":"12"}.
// The command name is case-insensitive.
func Parse(data []byte) (Command, error) {
	var c Command
	if err := json.Unmarshal(data, &c); err != nil {
		return Command{}, fmt.Errorf("decode command: %w", err)
	}
	c.Kind = Kind(strings.ToLower(strings.TrimSpace(string(c.Kind))))
	c.Number = strings.TrimSpace(c.Number)
	if err := c.Validate(); err != nil {
		return Command{}, err
	}
	return c, nil
}

// Queue is a bounded channel of commands. Producers never block the
// polling loop; a full queue rejects the command.
type Queue struct {
	ch chan Command
}

// NewQueue creates a queue holding up to size pending commands.
func NewQueue(size int) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{ch: make(chan Command, size)}
}

// Submit validates and enqueues c without blocking.
func (q *Queue) Submit(c Command) error {
	if err := c.Validate(); err != nil {
		return err
	}
	select {
	case q.ch <- c:
		return nil
	default:
		return ErrQueueFull
	}
}

// C returns the receive side, read by the polling loop.
func (q *Queue) C() <-chan Command {
	return q.ch
}
