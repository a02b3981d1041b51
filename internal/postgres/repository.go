package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/daily-meme-quiz/internal/config"
	"github.com/daily-meme-quiz/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository archives puzzles, completed runs and leaderboard snapshots
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS daily_puzzles (
			puzzle_date DATE PRIMARY KEY,
			reused_due_to_exhaustion BOOLEAN NOT NULL DEFAULT FALSE,
			questions JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS run_results (
			run_id VARCHAR(64) PRIMARY KEY,
			puzzle_date DATE NOT NULL,
			player_id VARCHAR(255) NOT NULL,
			username VARCHAR(255) NOT NULL DEFAULT '',
			score BIGINT NOT NULL,
			classification VARCHAR(16) NOT NULL,
			answers JSONB,
			completed_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS leaderboard_snapshots (
			puzzle_date DATE NOT NULL,
			player_id VARCHAR(255) NOT NULL,
			username VARCHAR(255) NOT NULL DEFAULT '',
			score BIGINT NOT NULL,
			rank INT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (puzzle_date, player_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_results_player ON run_results(player_id, completed_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_run_results_date ON run_results(puzzle_date, classification)`,
		`CREATE INDEX IF NOT EXISTS idx_leaderboard_snapshots_rank ON leaderboard_snapshots(puzzle_date, rank)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// SavePuzzle stores a generated puzzle. The first archived puzzle for a date wins.
func (r *Repository) SavePuzzle(ctx context.Context, puzzle *domain.DailyPuzzle) error {
	questions, err := json.Marshal(puzzle.Questions)
	if err != nil {
		return fmt.Errorf("marshaling questions: %w", err)
	}

	query := `
		INSERT INTO daily_puzzles (puzzle_date, reused_due_to_exhaustion, questions, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (puzzle_date) DO NOTHING
	`
	_, err = r.pool.Exec(ctx, query, puzzle.Date, puzzle.ReusedDueToExhaustion, questions, puzzle.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving puzzle: %w", err)
	}
	return nil
}

const insertRunQuery = `
	INSERT INTO run_results (run_id, puzzle_date, player_id, username, score, classification, answers, completed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (run_id) DO NOTHING
`

// RecordRun archives one completed run. Redelivered runs are ignored.
func (r *Repository) RecordRun(ctx context.Context, run domain.RunResult) error {
	answers, err := json.Marshal(run.Answers)
	if err != nil {
		return fmt.Errorf("marshaling answers: %w", err)
	}

	_, err = r.pool.Exec(ctx, insertRunQuery,
		run.RunID,
		run.Date,
		run.PlayerID,
		run.Username,
		run.Score,
		string(run.Classification),
		answers,
		run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// RecordRuns archives many runs in one round trip
func (r *Repository) RecordRuns(ctx context.Context, runs []domain.RunResult) error {
	if len(runs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, run := range runs {
		answers, err := json.Marshal(run.Answers)
		if err != nil {
			return fmt.Errorf("marshaling answers: %w", err)
		}
		batch.Queue(insertRunQuery,
			run.RunID,
			run.Date,
			run.PlayerID,
			run.Username,
			run.Score,
			string(run.Classification),
			answers,
			run.CompletedAt,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range runs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch recording runs: %w", err)
		}
	}
	return nil
}

// GetPlayerRuns lists a player's archived runs, newest first
func (r *Repository) GetPlayerRuns(ctx context.Context, playerID string, limit int) ([]domain.RunResult, error) {
	query := `
		SELECT run_id, to_char(puzzle_date, 'YYYY-MM-DD'), player_id, username, score, classification, answers, completed_at
		FROM run_results
		WHERE player_id = $1
		ORDER BY completed_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("getting player runs: %w", err)
	}
	defer rows.Close()

	runs := []domain.RunResult{}
	for rows.Next() {
		var run domain.RunResult
		var classification string
		var answers []byte
		err := rows.Scan(
			&run.RunID,
			&run.Date,
			&run.PlayerID,
			&run.Username,
			&run.Score,
			&classification,
			&answers,
			&run.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.Classification = domain.Classification(classification)
		if len(answers) > 0 {
			if err := json.Unmarshal(answers, &run.Answers); err != nil {
				return nil, fmt.Errorf("unmarshaling answers: %w", err)
			}
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// UpsertLeaderboard replaces the archived snapshot rows for a date
func (r *Repository) UpsertLeaderboard(ctx context.Context, date string, entries []domain.LeaderboardEntry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO leaderboard_snapshots (puzzle_date, player_id, username, score, rank, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (puzzle_date, player_id)
		DO UPDATE SET username = $3, score = $4, rank = $5, updated_at = $6
	`
	now := time.Now()

	for _, e := range entries {
		batch.Queue(query, date, e.PlayerID, e.Username, e.Score, e.Rank, now)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range entries {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch upserting leaderboard: %w", err)
		}
	}
	return nil
}

// GetLeaderboard reads an archived snapshot in rank order
func (r *Repository) GetLeaderboard(ctx context.Context, date string, limit int) ([]domain.LeaderboardEntry, error) {
	query := `
		SELECT player_id, username, score, rank
		FROM leaderboard_snapshots
		WHERE puzzle_date = $1
		ORDER BY rank ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, date, limit)
	if err != nil {
		return nil, fmt.Errorf("getting leaderboard snapshot: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var entry domain.LeaderboardEntry
		if err := rows.Scan(&entry.PlayerID, &entry.Username, &entry.Score, &entry.Rank); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
