// Package audit writes a best-effort, append-only forensic trail of the
// engine's cycle-detection decisions to Postgres via pgx. It is strictly
// write-only: nothing here is ever read back at process startup, since
// the engine's in-memory state is deliberately not reconstructed from
// persisted history (see DESIGN.md). A disconnected or unreachable
// database degrades the engine to observability-less operation, never
// to a crash.
package audit

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/instagibbs/anticycle/internal/cycle"
)

// Log is a pgx-backed sink for cycle-detection events.
type Log struct {
	pool *pgxpool.Pool
}

// Connect opens a pool against connStr and verifies connectivity with a
// ping, adapted from the teacher's db.Connect.
func Connect(ctx context.Context, connStr string) (*Log, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("audit: unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("audit: ping failed: %w", err)
	}
	log.Println("audit: connected to Postgres forensic log")
	return &Log{pool: pool}, nil
}

// Close releases the pool.
func (l *Log) Close() {
	if l.pool != nil {
		l.pool.Close()
	}
}

// InitSchema creates the audit tables if they do not already exist. Unlike
// the teacher's InitSchema, this does not load an external schema.sql: the
// full DDL is small enough to inline and keep self-contained.
func (l *Log) InitSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS cycle_events (
			id BIGSERIAL PRIMARY KEY,
			event_id TEXT NOT NULL,
			observed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			utxo TEXT NOT NULL,
			cycled_count INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS resubmit_events (
			id BIGSERIAL PRIMARY KEY,
			event_id TEXT NOT NULL,
			observed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			utxo TEXT NOT NULL,
			txid TEXT NOT NULL,
			ok BOOLEAN NOT NULL
		);
		CREATE TABLE IF NOT EXISTS epoch_wipe_events (
			id BIGSERIAL PRIMARY KEY,
			event_id TEXT NOT NULL,
			observed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			reason TEXT NOT NULL
		);
	`
	_, err := l.pool.Exec(ctx, ddl)
	if err != nil {
		return fmt.Errorf("audit: schema init failed: %w", err)
	}
	return nil
}

// recordCycleDetected, recordResubmit, and recordEpochWipe are best-effort:
// a write failure is logged and swallowed, never propagated to the event
// loop (spec's forensic trail must never become a liveness dependency).
//
// Each row gets its own event_id (a v4 UUID), generated here rather than
// left to the database, so the same correlation ID that shows up in this
// process's logs is the one a reviewer finds in the row later.

func (l *Log) recordCycleDetected(u cycle.UTXO, count uint32) {
	id := uuid.New().String()
	const q = `INSERT INTO cycle_events (event_id, utxo, cycled_count) VALUES ($1, $2, $3)`
	if _, err := l.pool.Exec(context.Background(), q, id, u.String(), count); err != nil {
		log.Printf("audit: failed to record cycle event %s: %v", id, err)
	}
}

func (l *Log) recordResubmit(u cycle.UTXO, txid string, ok bool) {
	id := uuid.New().String()
	const q = `INSERT INTO resubmit_events (event_id, utxo, txid, ok) VALUES ($1, $2, $3, $4)`
	if _, err := l.pool.Exec(context.Background(), q, id, u.String(), txid, ok); err != nil {
		log.Printf("audit: failed to record resubmit event %s: %v", id, err)
	}
}

func (l *Log) recordEpochWipe(reason string) {
	id := uuid.New().String()
	const q = `INSERT INTO epoch_wipe_events (event_id, reason) VALUES ($1, $2)`
	if _, err := l.pool.Exec(context.Background(), q, id, reason); err != nil {
		log.Printf("audit: failed to record epoch wipe %s: %v", id, err)
	}
}

// Hooks adapts the Log into cycle.Hooks. OnAdmissionRefuse is
// intentionally left nil: a refusal is a non-event from a forensics
// perspective, nothing was admitted or broadcast.
func (l *Log) Hooks() cycle.Hooks {
	return cycle.Hooks{
		OnCycleDetected: l.recordCycleDetected,
		OnResubmit:      l.recordResubmit,
		OnEpochWipe:     l.recordEpochWipe,
	}
}
