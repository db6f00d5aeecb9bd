package draft

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

// Store persists wizard drafts in Postgres. One row per user; the row is
// replaced on every step and removed when the session ends. Secrets never
// touch this table.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps the shared database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type row struct {
	UserID int64  `db:"user_id"`
	Step   string `db:"step"`

	TokenName   string `db:"token_name"`
	TokenSymbol string `db:"token_symbol"`

	ImageAnswered bool           `db:"image_answered"`
	ImageURL      sql.NullString `db:"image_url"`
	ImageFileID   sql.NullString `db:"image_file_id"`
	ImageCID      sql.NullString `db:"image_cid"`

	DescAnswered bool           `db:"description_answered"`
	Description  sql.NullString `db:"description"`

	BuyInAnswered bool            `db:"buyin_answered"`
	BuyInEth      sql.NullFloat64 `db:"buyin_eth"`

	WalletAddress sql.NullString `db:"wallet_address"`

	Username  sql.NullString `db:"username"`
	FirstName sql.NullString `db:"first_name"`
	LastName  sql.NullString `db:"last_name"`
	FromGroup bool           `db:"from_group"`
	GroupID   sql.NullInt64  `db:"group_id"`

	UpdatedAt time.Time `db:"updated_at"`
}

func toRow(userID int64, step wizard.Step, f wizard.Fields) row {
	r := row{
		UserID:        userID,
		Step:          string(step),
		TokenName:     f.TokenName,
		TokenSymbol:   f.TokenSymbol,
		ImageAnswered: f.Image.Answered,
		DescAnswered:  f.Description.Answered,
		BuyInAnswered: f.BuyInEth.Answered,
		FromGroup:     f.FromGroup,
		Username:      nullStr(f.Username),
		FirstName:     nullStr(f.FirstName),
		LastName:      nullStr(f.LastName),
		WalletAddress: nullStr(f.WalletAddress),
		UpdatedAt:     time.Now().UTC(),
	}
	if f.Image.Valid {
		r.ImageURL = nullStr(f.Image.Value.URL)
		r.ImageFileID = nullStr(f.Image.Value.FileID)
		r.ImageCID = nullStr(f.Image.Value.CID)
	}
	if f.Description.Valid {
		r.Description = sql.NullString{String: f.Description.Value, Valid: true}
	}
	if f.BuyInEth.Valid {
		r.BuyInEth = sql.NullFloat64{Float64: f.BuyInEth.Value, Valid: true}
	}
	if f.GroupID != 0 {
		r.GroupID = sql.NullInt64{Int64: f.GroupID, Valid: true}
	}
	return r
}

func fromRow(r row) wizard.Fields {
	f := wizard.Fields{
		TokenName:   r.TokenName,
		TokenSymbol: r.TokenSymbol,
		Username:    r.Username.String,
		FirstName:   r.FirstName.String,
		LastName:    r.LastName.String,
		FromGroup:   r.FromGroup,
		GroupID:     r.GroupID.Int64,
	}
	if r.ImageAnswered {
		if r.ImageURL.Valid || r.ImageFileID.Valid {
			f.Image = wizard.Of(wizard.ImageRef{
				URL:    r.ImageURL.String,
				FileID: r.ImageFileID.String,
				CID:    r.ImageCID.String,
			})
		} else {
			f.Image = wizard.Skipped[wizard.ImageRef]()
		}
	}
	if r.DescAnswered {
		if r.Description.Valid {
			f.Description = wizard.Of(r.Description.String)
		} else {
			f.Description = wizard.Skipped[string]()
		}
	}
	if r.BuyInAnswered {
		if r.BuyInEth.Valid {
			f.BuyInEth = wizard.Of(r.BuyInEth.Float64)
		} else {
			f.BuyInEth = wizard.Skipped[float64]()
		}
	}
	if r.WalletAddress.Valid {
		f.WalletAddress = r.WalletAddress.String
	}
	return f
}

const upsertSQL = `
INSERT INTO token_drafts (
    user_id, step, token_name, token_symbol,
    image_answered, image_url, image_file_id, image_cid,
    description_answered, description,
    buyin_answered, buyin_eth,
    wallet_address, username, first_name, last_name,
    from_group, group_id, updated_at
) VALUES (
    :user_id, :step, :token_name, :token_symbol,
    :image_answered, :image_url, :image_file_id, :image_cid,
    :description_answered, :description,
    :buyin_answered, :buyin_eth,
    :wallet_address, :username, :first_name, :last_name,
    :from_group, :group_id, :updated_at
)
ON CONFLICT (user_id) DO UPDATE SET
    step = EXCLUDED.step,
    token_name = EXCLUDED.token_name,
    token_symbol = EXCLUDED.token_symbol,
    image_answered = EXCLUDED.image_answered,
    image_url = EXCLUDED.image_url,
    image_file_id = EXCLUDED.image_file_id,
    image_cid = EXCLUDED.image_cid,
    description_answered = EXCLUDED.description_answered,
    description = EXCLUDED.description,
    buyin_answered = EXCLUDED.buyin_answered,
    buyin_eth = EXCLUDED.buyin_eth,
    wallet_address = EXCLUDED.wallet_address,
    username = EXCLUDED.username,
    first_name = EXCLUDED.first_name,
    last_name = EXCLUDED.last_name,
    from_group = EXCLUDED.from_group,
    group_id = EXCLUDED.group_id,
    updated_at = EXCLUDED.updated_at`

// Upsert replaces the user's draft row.
func (s *Store) Upsert(ctx context.Context, userID int64, step wizard.Step, f wizard.Fields) error {
	start := time.Now()
	_, err := s.db.NamedExecContext(ctx, upsertSQL, toRow(userID, step, f))
	if err != nil {
		return fmt.Errorf("upsert draft for %d: %w", userID, err)
	}
	logger.DB.Debug("draft upserted",
		slog.String("event", "draft.upsert"),
		slog.Int64("user_id", userID),
		slog.String("step", string(step)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}

// Get loads the user's draft, reporting false when there is none.
func (s *Store) Get(ctx context.Context, userID int64) (wizard.Step, wizard.Fields, bool, error) {
	var r row
	err := s.db.GetContext(ctx, &r, `SELECT * FROM token_drafts WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", wizard.Fields{}, false, nil
	}
	if err != nil {
		return "", wizard.Fields{}, false, fmt.Errorf("get draft for %d: %w", userID, err)
	}
	return wizard.Step(r.Step), fromRow(r), true, nil
}

// Delete removes the user's draft. Deleting a missing draft is not an error.
func (s *Store) Delete(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM token_drafts WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete draft for %d: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		logger.DB.Debug("draft deleted",
			slog.String("event", "draft.delete"),
			slog.Int64("user_id", userID),
		)
	}
	return nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
