// Package directory maps dialable numbers to sound files. A numbers
// directory holds files named <number>_<description>.wav.
package directory

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Ext is the sound file extension the directory accepts.
const Ext = ".wav"

// Entry is one dialable number.
type Entry struct {
	Number      string
	Description string
	Path        string
}

// Picker chooses an index in [0, n).
type Picker interface {
	Intn(n int) int
}

// Directory is the scanned numbers directory. It is safe for concurrent use.
type Directory struct {
	dir string

	mu      sync.RWMutex
	entries map[string]Entry
	numbers []string
}

// New scans dir and returns the directory.
func New(dir string) (*Directory, error) {
	d := &Directory{dir: dir, entries: map[string]Entry{}}
	if err := d.Refresh(); err != nil {
		return nil, err
	}
	return d, nil
}

// Dir returns the scanned path.
func (d *Directory) Dir() string {
	return d.dir
}

// Refresh rescans the directory. On error the previous entries are kept.
func (d *Directory) Refresh() error {
	files, err := os.ReadDir(d.dir)
	if err != nil {
		return fmt.Errorf("read numbers dir: %w", err)
	}

	entries := make(map[string]Entry)
	var numbers []string
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		e, ok := ParseName(f.Name())
		if !ok {
			log.Warn().Str("file", f.Name()).Msg("skipping malformed number file")
			continue
		}
		if prev, dup := entries[e.Number]; dup {
			log.Warn().Str("number", e.Number).Str("file", f.Name()).Str("kept", filepath.Base(prev.Path)).Msg("duplicate number")
			continue
		}
		e.Path = filepath.Join(d.dir, f.Name())
		entries[e.Number] = e
		numbers = append(numbers, e.Number)
	}
	sort.Strings(numbers)

	d.mu.Lock()
	d.entries = entries
	d.numbers = numbers
	d.mu.Unlock()

	log.Info().Str("dir", d.dir).Int("numbers", len(numbers)).Msg("number directory loaded")
	return nil
}

// ParseName splits a file name of the form <number>_<description>.wav.
// The number must be at least one digit.
func ParseName(name string) (Entry, bool) {
	if !strings.EqualFold(filepath.Ext(name), Ext) {
		return Entry{}, false
	}
	base := strings.TrimSuffix(name, filepath.Ext(name))

	number, desc, found := strings.Cut(base, "_")
	if !found || number == "" {
		return Entry{}, false
	}
	for _, r := range number {
		if r < '0' || r > '9' {
			return Entry{}, false
		}
	}
	return Entry{Number: number, Description: strings.ReplaceAll(desc, "_", " ")}, true
}

// Lookup returns the sound file for number.
func (d *Directory) Lookup(number string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entries[number]
	return e.Path, ok
}

// Entry returns the full entry for number.
func (d *Directory) Entry(number string) (Entry, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entries[number]
	return e, ok
}

// Numbers returns all numbers, sorted.
func (d *Directory) Numbers() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, len(d.numbers))
	copy(out, d.numbers)
	return out
}

// Entries returns all entries sorted by number.
func (d *Directory) Entries() []Entry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Entry, 0, len(d.numbers))
	for _, n := range d.numbers {
		out = append(out, d.entries[n])
	}
	return out
}

// Random picks a number. ok is false when the directory is empty.
func (d *Directory) Random(p Picker) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.numbers) == 0 {
		return "", false
	}
	return d.numbers[p.Intn(len(d.numbers))], true
}
