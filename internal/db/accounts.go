package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// Schema versions. Each released schema has a frozen version number;
// Open migrates any older database forward to the current one.
const (
	SchemaVersion1000 = 1000 // original: accounts with plaintext-compatible storage
	SchemaVersion1200 = 1200 // adds game result records
	SchemaVersion2000 = 2000 // adds password schemes and bcrypt storage

	CurrentSchemaVersion = SchemaVersion2000
)

// Password storage schemes.
const (
	PWSchemeNone   = 0 // no hashing; legacy rows only
	PWSchemeBCrypt = 1
)

// Per-scheme password length caps. The cap protects the fixed-width
// storage column, not the hash input.
const (
	MaxPasswordLengthNone   = 20
	MaxPasswordLengthBCrypt = 76
)

// BCrypt work factor bounds; the cost must land inside them.
const (
	BCryptMinWorkFactor     = 9
	BCryptMaxWorkFactor     = 31
	BCryptDefaultWorkFactor = 12
)

// MaxAccountNicknameLength matches the session layer's nickname cap.
const MaxAccountNicknameLength = 20

// Store errors.
var (
	ErrAccountExists   = errors.New("account already exists")
	ErrAccountNotFound = errors.New("account not found")
	ErrBadCredentials  = errors.New("bad credentials")
	ErrPasswordLength  = errors.New("password too long")
	ErrBadNickname     = errors.New("bad account nickname")
)

// Store is the account store. All methods are safe for concurrent use;
// the underlying Database serializes writes.
type Store struct {
	db         *Database
	workFactor int
}

// NewStore opens the account store over an open database, migrating
// the schema forward if needed. A workFactor of 0 selects the default;
// out-of-range factors are a configuration error.
func NewStore(db *Database, workFactor int) (*Store, error) {
	if workFactor == 0 {
		workFactor = BCryptDefaultWorkFactor
	}
	if workFactor < BCryptMinWorkFactor || workFactor > BCryptMaxWorkFactor {
		return nil, fmt.Errorf("bcrypt work factor %d out of range %d..%d",
			workFactor, BCryptMinWorkFactor, BCryptMaxWorkFactor)
	}
	s := &Store{db: db, workFactor: workFactor}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// SchemaVersion returns the database's current schema version.
func (s *Store) SchemaVersion() (int, error) {
	return s.readSchemaVersion()
}

func (s *Store) readSchemaVersion() (int, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("corrupt schema version %q", v)
	}
	return n, nil
}

// migrate walks the database forward one schema version at a time.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create meta table: %w", err)
	}

	version, err := s.readSchemaVersion()
	if err != nil {
		return err
	}

	if version == 0 {
		if err := s.applySchema1000(); err != nil {
			return err
		}
		version = SchemaVersion1000
	}
	if version < SchemaVersion1200 {
		if err := s.applySchema1200(); err != nil {
			return err
		}
		version = SchemaVersion1200
	}
	if version < SchemaVersion2000 {
		if err := s.applySchema2000(); err != nil {
			return err
		}
		version = SchemaVersion2000
	}

	if err := s.writeSchemaVersion(version); err != nil {
		return err
	}
	log.Info().Int("schema_version", version).Msg("account store ready")
	return nil
}

func (s *Store) writeSchemaVersion(v int) error {
	_, err := s.db.Exec(
		`INSERT INTO meta (key, value) VALUES ('schema_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		strconv.Itoa(v))
	if err != nil {
		return fmt.Errorf("failed to write schema version: %w", err)
	}
	return nil
}

func (s *Store) applySchema1000() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS accounts (
		nickname   TEXT PRIMARY KEY COLLATE NOCASE,
		password   TEXT NOT NULL,
		email      TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("schema 1000: %w", err)
	}
	return nil
}

func (s *Store) applySchema1200() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS game_results (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		game_name   TEXT NOT NULL,
		nickname    TEXT NOT NULL,
		won         INTEGER NOT NULL,
		vp          INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("schema 1200: %w", err)
	}
	return nil
}

func (s *Store) applySchema2000() error {
	// pw_scheme 0 keeps legacy rows readable; new rows always use bcrypt
	_, err := s.db.Exec(`ALTER TABLE accounts ADD COLUMN pw_scheme INTEGER NOT NULL DEFAULT 0`)
	if err != nil && !strings.Contains(err.Error(), "duplicate column") {
		return fmt.Errorf("schema 2000: %w", err)
	}
	return nil
}

// MaxPasswordLength returns the password cap for a storage scheme.
func MaxPasswordLength(scheme int) int {
	if scheme == PWSchemeBCrypt {
		return MaxPasswordLengthBCrypt
	}
	return MaxPasswordLengthNone
}

// IsPasswordLengthOK reports whether a password fits within the cap
// of the given storage scheme.
func IsPasswordLengthOK(password string, scheme int) bool {
	return len(password) <= MaxPasswordLength(scheme)
}

// CreateAccount registers a new account with a bcrypt-hashed password.
func (s *Store) CreateAccount(nickname, password, email string) error {
	if nickname == "" || len(nickname) > MaxAccountNicknameLength ||
		strings.ContainsAny(nickname, "|,;\n\t ") {
		return ErrBadNickname
	}
	if !IsPasswordLengthOK(password, PWSchemeBCrypt) {
		return fmt.Errorf("%w: %d > %d", ErrPasswordLength, len(password), MaxPasswordLengthBCrypt)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.workFactor)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO accounts (nickname, password, email, created_at, pw_scheme)
		 VALUES (?, ?, ?, ?, ?)`,
		nickname, string(hash), email, time.Now().Unix(), PWSchemeBCrypt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return ErrAccountExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	log.Info().Str("nickname", nickname).Msg("account created")
	return nil
}

// Authenticate verifies a nickname and password. A nickname with no
// account authenticates successfully when the server allows unregistered
// players; that policy lives in the session layer, so absence is
// reported distinctly as ErrAccountNotFound.
func (s *Store) Authenticate(nickname, password string) error {
	var stored string
	var scheme int
	err := s.db.QueryRow(
		`SELECT password, pw_scheme FROM accounts WHERE nickname = ?`, nickname).
		Scan(&stored, &scheme)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up account: %w", err)
	}

	if !IsPasswordLengthOK(password, scheme) {
		// cannot possibly match; reject without touching the hash
		return ErrBadCredentials
	}

	switch scheme {
	case PWSchemeBCrypt:
		if bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) != nil {
			return ErrBadCredentials
		}
	default:
		if stored != password {
			return ErrBadCredentials
		}
	}
	return nil
}

// Exists reports whether an account is registered for the nickname.
func (s *Store) Exists(nickname string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM accounts WHERE nickname = ?`, nickname).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up account: %w", err)
	}
	return true, nil
}

// Count returns the number of registered accounts.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return n, nil
}

// RecordGameResult stores one player's outcome of a finished game.
func (s *Store) RecordGameResult(gameName, nickname string, won bool, vp int) error {
	w := 0
	if won {
		w = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO game_results (game_name, nickname, won, vp, finished_at)
		 VALUES (?, ?, ?, ?, ?)`,
		gameName, nickname, w, vp, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to record game result: %w", err)
	}
	return nil
}

// WinLoss returns a player's recorded wins and losses.
func (s *Store) WinLoss(nickname string) (wins, losses int, err error) {
	err = s.db.QueryRow(
		`SELECT COALESCE(SUM(won), 0), COALESCE(SUM(1 - won), 0)
		 FROM game_results WHERE nickname = ?`, nickname).
		Scan(&wins, &losses)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read win/loss: %w", err)
	}
	return wins, losses, nil
}
