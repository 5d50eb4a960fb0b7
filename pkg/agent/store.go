package agent

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"
	_ "modernc.org/sqlite"
)

// Summary is the learning artifact of one finished session.
type Summary struct {
	Opponent         string
	Recognized       string
	OffersReceived   int
	OffersMade       int
	Accepted         bool
	AgreementUtility float64
	Stubborn         bool
}

// Store persists session summaries across negotiation sessions.
// Failures to persist are never fatal to the session.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the session store at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		opponent TEXT,
		recognized TEXT,
		offers_received INTEGER,
		offers_made INTEGER,
		accepted INTEGER,
		agreement_utility REAL,
		stubborn INTEGER,
		ended_at DATETIME
	)`)
	if err != nil {
		return fmt.Errorf("init session store: %w", err)
	}
	return nil
}

// SaveSession writes one session summary and returns its generated id.
func (s *Store) SaveSession(ctx context.Context, sum Summary) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		id, sum.Opponent, sum.Recognized, sum.OffersReceived, sum.OffersMade,
		sum.Accepted, sum.AgreementUtility, sum.Stubborn, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	klog.V(2).InfoS("Session persisted", "id", id, "opponent", sum.Opponent, "recognized", sum.Recognized)
	return id, nil
}

// RecognizedFor returns the most recently recognized archetype for an
// opponent, or the empty string when the opponent is unknown.
func (s *Store) RecognizedFor(ctx context.Context, opponent string) (string, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT recognized FROM sessions WHERE opponent = ? AND recognized != '' ORDER BY ended_at DESC LIMIT 1",
		opponent,
	)
	var recognized string
	if err := row.Scan(&recognized); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("query opponent history: %w", err)
	}
	return recognized, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
