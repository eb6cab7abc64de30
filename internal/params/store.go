package params

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrUnknownParam is returned for names that were never added.
	ErrUnknownParam = errors.New("unknown parameter")
	// ErrKindMismatch is returned when a value does not match the declared kind.
	ErrKindMismatch = errors.New("parameter kind mismatch")
	// ErrNotFinite is returned for NaN and infinite float values.
	ErrNotFinite = errors.New("parameter value not finite")
)

// Parameter names used by the phone.
const (
	VolumeNormal  = "volumes_normal"
	VolumeSilent  = "volumes_silent"
	VolumeSpeaker = "volumes_speaker"
	RingDuration  = "ringDuration"
	RingVariation = "ringVariation"
)

// Entry is one parameter as listed by All.
type Entry struct {
	Name  string
	Value Value
}

// Store keeps parameters in memory and writes every change through to SQLite.
// It is safe for concurrent use.
type Store struct {
	db *sql.DB

	mu     sync.RWMutex
	values map[string]Value
	order  []string
}

const schema = `CREATE TABLE IF NOT EXISTS params (
	name  TEXT PRIMARY KEY,
	kind  TEXT NOT NULL,
	value TEXT NOT NULL
)`

// Open opens (or creates) the parameter database at path. ":memory:" gives a
// throwaway store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases from splitting per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create params table: %w", err)
	}

	return &Store{
		db:     db,
		values: make(map[string]Value),
	}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// AddFloat declares a float parameter. A stored value wins over def;
// otherwise def is persisted.
func (s *Store) AddFloat(name string, def float64) error {
	return s.add(name, FloatValue(def))
}

// AddString declares a string parameter. A stored value wins over def;
// otherwise def is persisted.
func (s *Store) AddString(name, def string) error {
	return s.add(name, StringValue(def))
}

func (s *Store) add(name string, def Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.values[name]; !exists {
		s.order = append(s.order, name)
	}

	var kind, raw string
	err := s.db.QueryRow(`SELECT kind, value FROM params WHERE name = ?`, name).Scan(&kind, &raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.values[name] = def
		return s.persist(name, def)
	case err != nil:
		s.values[name] = def
		return fmt.Errorf("failed to load %s: %w", name, err)
	}

	v, perr := parseValue(def.kind, raw)
	if Kind(kind) != def.kind || perr != nil {
		// the declaration changed type; start over from the default
		s.values[name] = def
		return s.persist(name, def)
	}
	s.values[name] = v
	return nil
}

// Float returns a float parameter. ok is false for unknown names and string
// parameters.
func (s *Store) Float(name string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, exists := s.values[name]
	if !exists {
		return 0, false
	}
	return v.Float()
}

// FloatOr returns a float parameter or def when it is missing.
func (s *Store) FloatOr(name string, def float64) float64 {
	if f, ok := s.Float(name); ok {
		return f
	}
	return def
}

// String returns a string parameter. ok is false for unknown names and float
// parameters.
func (s *Store) String(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, exists := s.values[name]
	if !exists {
		return "", false
	}
	return v.Str()
}

// SetFloat changes a float parameter.
func (s *Store) SetFloat(name string, f float64) error {
	return s.setValue(name, FloatValue(f))
}

// SetString changes a string parameter.
func (s *Store) SetString(name, str string) error {
	return s.setValue(name, StringValue(str))
}

// Set parses raw by the parameter's declared kind and stores it.
func (s *Store) Set(name, raw string) error {
	s.mu.RLock()
	cur, exists := s.values[name]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}

	v, err := parseValue(cur.kind, strings.TrimSpace(raw))
	if errors.Is(err, ErrNotFinite) {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err != nil {
		return fmt.Errorf("%w: %s expects %s: %v", ErrKindMismatch, name, cur.kind, err)
	}
	return s.setValue(name, v)
}

func (s *Store) setValue(name string, v Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, exists := s.values[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	if cur.kind != v.kind {
		return fmt.Errorf("%w: %s is %s", ErrKindMismatch, name, cur.kind)
	}
	if f, ok := v.Float(); ok && !finite(f) {
		return fmt.Errorf("%s: %w", name, ErrNotFinite)
	}
	if err := s.persist(name, v); err != nil {
		return err
	}
	s.values[name] = v
	return nil
}

// All returns every parameter in declaration order.
func (s *Store) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, Entry{Name: name, Value: s.values[name]})
	}
	return out
}

func (s *Store) persist(name string, v Value) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO params (name, kind, value) VALUES (?, ?, ?)`,
		name, string(v.kind), v.String())
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", name, err)
	}
	return nil
}

// AddDefaults declares the phone's parameters with their default values.
func AddDefaults(s *Store) error {
	defaults := []struct {
		name string
		def  float64
	}{
		{VolumeNormal, 50},
		{VolumeSilent, 20},
		{VolumeSpeaker, 100},
		{RingDuration, 5000},
		{RingVariation, 2000},
	}
	for _, d := range defaults {
		if err := s.AddFloat(d.name, d.def); err != nil {
			return err
		}
	}
	return nil
}
