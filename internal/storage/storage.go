package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AlrightyTighty/baddle-backend/internal"
)

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id          BIGSERIAL PRIMARY KEY,
	room_code   TEXT        NOT NULL,
	rounds      INTEGER     NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS game_results (
	game_id   BIGINT  NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	player_id TEXT    NOT NULL,
	name      TEXT    NOT NULL,
	score     INTEGER NOT NULL,
	place     INTEGER NOT NULL,
	PRIMARY KEY (game_id, player_id)
);

CREATE INDEX IF NOT EXISTS game_results_score_idx ON game_results (score DESC);
`

// LeaderboardEntry is one archived player result.
type LeaderboardEntry struct {
	Name       string    `json:"name"`
	Score      int       `json:"score"`
	Place      int       `json:"place"`
	RoomCode   string    `json:"room_code"`
	FinishedAt time.Time `json:"finished_at"`
}

// Storage archives finished games in Postgres.
type Storage struct {
	db *pgxpool.Pool
}

// New connects to dsn and makes sure the schema exists.
func New(ctx context.Context, dsn string) (*Storage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	s := &Storage{db: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Storage) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *Storage) Close() {
	s.db.Close()
}

// RecordGame stores a finished game and its standings in one transaction.
func (s *Storage) RecordGame(ctx context.Context, result internal.GameResult) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var gameID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO games (room_code, rounds, finished_at) VALUES ($1, $2, $3) RETURNING id`,
		result.Code, result.Rounds, result.FinishedAt,
	).Scan(&gameID)
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}

	batch := &pgx.Batch{}
	for _, st := range result.Standings {
		batch.Queue(
			`INSERT INTO game_results (game_id, player_id, name, score, place)
			 VALUES ($1, $2, $3, $4, $5)`,
			gameID, st.PlayerID, st.Name, st.Score, st.Position,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert game results: %w", err)
	}

	return tx.Commit(ctx)
}

// Leaderboard returns the highest archived scores, newest first on ties.
func (s *Storage) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT r.name, r.score, r.place, g.room_code, g.finished_at
		 FROM game_results r
		 JOIN games g ON r.game_id = g.id
		 ORDER BY r.score DESC, g.finished_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (LeaderboardEntry, error) {
		var e LeaderboardEntry
		err := row.Scan(&e.Name, &e.Score, &e.Place, &e.RoomCode, &e.FinishedAt)
		return e, err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// GamesPlayed counts archived games.
func (s *Storage) GamesPlayed(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM games`).Scan(&n)
	return n, err
}
