// Package prefs persists exported console variables in a SQLite database.
package prefs

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/GarageGames/Torque3D-sub044/console"
)

var log = commonlog.GetLogger("torque.prefs")

// ErrNotFound indicates the requested variable was never saved.
var ErrNotFound = errors.New("preference not found")

// Pref is one stored variable.
type Pref struct {
	Name    string
	Value   console.Value
	Updated time.Time
}

// Store handles SQLite storage of preference variables.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Open opens (creating if needed) the preference database at dbPath.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS prefs (
		name    TEXT PRIMARY KEY COLLATE NOCASE,
		kind    INTEGER NOT NULL,
		value   TEXT NOT NULL,
		updated INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Path returns the database location.
func (s *Store) Path() string { return s.dbPath }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save writes every variable of d matching pattern and returns how many
// were stored.
func (s *Store) Save(d *console.Dictionary, pattern string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vars := d.Match(pattern)
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.Prepare("INSERT OR REPLACE INTO prefs (name, kind, value, updated) VALUES (?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, v := range vars {
		if _, err := stmt.Exec(v.Name().String(), int(v.Value().Kind()), v.GetString(), now); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("saving %s: %w", v.Name(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	log.Infof("saved %d variables matching %s to %s", len(vars), pattern, s.dbPath)
	return len(vars), nil
}

// Load assigns every stored variable matching pattern into d and returns
// how many were restored. Constants in d are left untouched.
func (s *Store) Load(d *console.Dictionary, pattern string) (int, error) {
	prefs, err := s.List(pattern)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range prefs {
		v := d.Variable(p.Name)
		if v == nil || v.IsConstant() {
			continue
		}
		v.SetValue(p.Value)
		n++
	}
	return n, nil
}

// Get returns the stored value of one variable.
func (s *Store) Get(name string) (*Pref, error) {
	row := s.db.QueryRow("SELECT name, kind, value, updated FROM prefs WHERE name = ?", name)
	p, err := scanPref(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", name, err)
	}
	return p, nil
}

// List returns stored variables matching pattern, ordered by name.
func (s *Store) List(pattern string) ([]Pref, error) {
	rows, err := s.db.Query("SELECT name, kind, value, updated FROM prefs ORDER BY name COLLATE NOCASE")
	if err != nil {
		return nil, fmt.Errorf("listing prefs: %w", err)
	}
	defer rows.Close()

	var out []Pref
	for rows.Next() {
		p, err := scanPref(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning pref: %w", err)
		}
		if console.MatchPattern(pattern, p.Name) {
			out = append(out, *p)
		}
	}
	return out, rows.Err()
}

// Delete removes stored variables matching pattern.
func (s *Store) Delete(pattern string) (int, error) {
	prefs, err := s.List(pattern)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range prefs {
		if _, err := s.db.Exec("DELETE FROM prefs WHERE name = ?", p.Name); err != nil {
			return 0, fmt.Errorf("deleting %s: %w", p.Name, err)
		}
	}
	return len(prefs), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPref(row scanner) (*Pref, error) {
	var (
		p       Pref
		kind    int
		text    string
		updated int64
	)
	if err := row.Scan(&p.Name, &kind, &text, &updated); err != nil {
		return nil, err
	}
	p.Value = decodeValue(console.Kind(kind), text)
	p.Updated = time.Unix(updated, 0)
	return &p, nil
}

func decodeValue(kind console.Kind, text string) console.Value {
	switch kind {
	case console.KindInt:
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return console.IntValue(i)
		}
	case console.KindFloat:
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return console.FloatValue(f)
		}
	}
	return console.StringValue(text)
}

// RegisterCommands installs savePrefs(pattern) and loadPrefs(pattern)
// console functions backed by s. An empty pattern selects def.
func (s *Store) RegisterCommands(rt *console.Runtime, def string) {
	pick := func(argv []string) string {
		if len(argv) > 0 && argv[0] != "" {
			return argv[0]
		}
		return def
	}
	rt.Global.AddIntCommand("savePrefs", func(_ *console.Object, argv []string) int64 {
		n, err := s.Save(rt.Globals(), pick(argv))
		if err != nil {
			rt.Errorf("savePrefs: %s", err)
			return -1
		}
		return int64(n)
	}, "savePrefs([pattern])", 0, 1)
	rt.Global.AddIntCommand("loadPrefs", func(_ *console.Object, argv []string) int64 {
		n, err := s.Load(rt.Globals(), pick(argv))
		if err != nil {
			rt.Errorf("loadPrefs: %s", err)
			return -1
		}
		return int64(n)
	}, "loadPrefs([pattern])", 0, 1)
}
