package token

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/goblinlaunch/goblinbot/core/logger"
	"github.com/goblinlaunch/goblinbot/internal/wizard"
)

// Store persists deployed tokens and their creators.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps the shared database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Record is one deployed token.
type Record struct {
	ID              int64           `db:"id"`
	TelegramID      int64           `db:"telegram_id"`
	TokenName       string          `db:"token_name"`
	TokenSymbol     string          `db:"token_symbol"`
	ContractAddress string          `db:"contract_address"`
	WalletAddress   sql.NullString  `db:"wallet_address"`
	TxHash          string          `db:"tx_hash"`
	ImageURL        sql.NullString  `db:"image_url"`
	Description     sql.NullString  `db:"description"`
	BuyInEth        sql.NullFloat64 `db:"buyin_eth"`
	CreatedAt       time.Time       `db:"created_at"`
}

// Stats aggregates a creator's deployments.
type Stats struct {
	TotalTokens   int             `db:"total_tokens"`
	TotalBuyInEth sql.NullFloat64 `db:"total_buyin_eth"`
	FirstDeploy   sql.NullTime    `db:"first_deploy"`
	LastDeploy    sql.NullTime    `db:"last_deploy"`
}

// SaveDeployed records a successful deployment, creating or refreshing the
// creator's user row first.
func (s *Store) SaveDeployed(ctx context.Context, rec wizard.DeployedToken) error {
	start := time.Now()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save token: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO users (telegram_id, username, last_seen_at)
        VALUES ($1, NULLIF($2, ''), now())
        ON CONFLICT (telegram_id) DO UPDATE SET
            username = COALESCE(NULLIF(EXCLUDED.username, ''), users.username),
            last_seen_at = now()`,
		rec.TelegramID, rec.Username,
	)
	if err != nil {
		return fmt.Errorf("upsert user %d: %w", rec.TelegramID, err)
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO tokens (
            telegram_id, token_name, token_symbol, contract_address,
            wallet_address, tx_hash, image_url, description, buyin_eth
        ) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9)`,
		rec.TelegramID, rec.TokenName, rec.TokenSymbol, rec.ContractAddress,
		rec.WalletAddress, rec.TxHash, rec.ImageURL, rec.Description, rec.BuyInEth,
	)
	if err != nil {
		return fmt.Errorf("insert token %s: %w", rec.ContractAddress, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save token: %w", err)
	}

	logger.DB.Info("token saved",
		slog.String("event", "token.save"),
		slog.Int64("telegram_id", rec.TelegramID),
		slog.String("symbol", rec.TokenSymbol),
		slog.String("contract", rec.ContractAddress),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}

// ListByUser returns the user's deployments, newest first.
func (s *Store) ListByUser(ctx context.Context, telegramID int64, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []Record
	err := s.db.SelectContext(ctx, &out, `
        SELECT * FROM tokens
        WHERE telegram_id = $1
        ORDER BY created_at DESC
        LIMIT $2`,
		telegramID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list tokens for %d: %w", telegramID, err)
	}
	return out, nil
}

// GlobalStats aggregates deployments across all creators.
type GlobalStats struct {
	TotalTokens   int             `db:"total_tokens"`
	TotalCreators int             `db:"total_creators"`
	TotalBuyInEth sql.NullFloat64 `db:"total_buyin_eth"`
	LastDeploy    sql.NullTime    `db:"last_deploy"`
}

// StatsGlobal aggregates the whole deployment history.
func (s *Store) StatsGlobal(ctx context.Context) (GlobalStats, error) {
	var st GlobalStats
	err := s.db.GetContext(ctx, &st, `
        SELECT
            count(*)                    AS total_tokens,
            count(DISTINCT telegram_id) AS total_creators,
            sum(buyin_eth)              AS total_buyin_eth,
            max(created_at)             AS last_deploy
        FROM tokens`,
	)
	if err != nil {
		return GlobalStats{}, fmt.Errorf("global token stats: %w", err)
	}
	return st, nil
}

// StatsByUser aggregates the user's deployment history. A user with no
// deployments gets zero stats, not an error.
func (s *Store) StatsByUser(ctx context.Context, telegramID int64) (Stats, error) {
	var st Stats
	err := s.db.GetContext(ctx, &st, `
        SELECT
            count(*)        AS total_tokens,
            sum(buyin_eth)  AS total_buyin_eth,
            min(created_at) AS first_deploy,
            max(created_at) AS last_deploy
        FROM tokens
        WHERE telegram_id = $1`,
		telegramID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Stats{}, nil
	}
	if err != nil {
		return Stats{}, fmt.Errorf("token stats for %d: %w", telegramID, err)
	}
	return st, nil
}
