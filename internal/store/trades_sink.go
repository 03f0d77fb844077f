// Package store persists closed trades to PostgreSQL for post-hoc
// analysis of backtest and live runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Sokalledcoder/Auction-trader/internal/domain"
)

// Sink persists closed trades and reads them back for reporting.
type Sink interface {
	Insert(ctx context.Context, trade domain.ClosedTrade) error
	InsertBatch(ctx context.Context, trades []domain.ClosedTrade) error
	ListBySymbol(ctx context.Context, symbol string, limit int) ([]domain.ClosedTrade, error)
	CountByExitReason(ctx context.Context, symbol string) (map[string]int64, error)
}

// record mirrors the row shape in the closed_trades table, carrying a
// JSONB metadata column for whatever strategy-specific notes the
// caller wants attached to a trade (currently unused but kept for
// parity with the row's attributes column).
type record struct {
	Metadata map[string]interface{} `json:"metadata"`
}

// PostgresSink implements Sink against a closed_trades table.
type PostgresSink struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPostgresSink builds a sink bound to db, wrapping every query in a
// context timeout.
func NewPostgresSink(db *sqlx.DB, timeout time.Duration) *PostgresSink {
	return &PostgresSink{db: db, timeout: timeout}
}

// Insert writes a single closed trade.
func (s *PostgresSink) Insert(ctx context.Context, trade domain.ClosedTrade) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	metadataJSON, err := json.Marshal(record{Metadata: map[string]interface{}{}})
	if err != nil {
		return fmt.Errorf("marshal closed trade metadata: %w", err)
	}

	query := `
		INSERT INTO closed_trades
			(symbol, side, entry_ts_ms, entry_price, exit_ts_ms, exit_price,
			 quantity, realized_pnl, fees_paid, funding_paid, exit_reason,
			 strategy_tag, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = s.db.ExecContext(ctx, query,
		trade.Symbol, trade.Side.String(), int64(trade.EntryTimeMs), trade.EntryPrice,
		int64(trade.ExitTimeMs), trade.ExitPrice, trade.Quantity, trade.RealizedPnL,
		trade.FeesPaid, trade.FundingPaid, trade.ExitReason.String(),
		trade.StrategyTag, metadataJSON)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate closed trade: %w", err)
		}
		return fmt.Errorf("insert closed trade: %w", err)
	}

	return nil
}

// InsertBatch writes all trades in a single transaction.
func (s *PostgresSink) InsertBatch(ctx context.Context, trades []domain.ClosedTrade) error {
	if len(trades) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout*time.Duration(len(trades)/100+1))
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin closed trade batch transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO closed_trades
			(symbol, side, entry_ts_ms, entry_price, exit_ts_ms, exit_price,
			 quantity, realized_pnl, fees_paid, funding_paid, exit_reason,
			 strategy_tag, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`)
	if err != nil {
		return fmt.Errorf("prepare closed trade batch statement: %w", err)
	}
	defer stmt.Close()

	metadataJSON, err := json.Marshal(record{Metadata: map[string]interface{}{}})
	if err != nil {
		return fmt.Errorf("marshal closed trade metadata: %w", err)
	}

	for _, trade := range trades {
		_, err = stmt.ExecContext(ctx,
			trade.Symbol, trade.Side.String(), int64(trade.EntryTimeMs), trade.EntryPrice,
			int64(trade.ExitTimeMs), trade.ExitPrice, trade.Quantity, trade.RealizedPnL,
			trade.FeesPaid, trade.FundingPaid, trade.ExitReason.String(),
			trade.StrategyTag, metadataJSON)
		if err != nil {
			return fmt.Errorf("insert closed trade in batch: %w", err)
		}
	}

	return tx.Commit()
}

// ListBySymbol returns the most recent trades for a symbol, newest
// first.
func (s *PostgresSink) ListBySymbol(ctx context.Context, symbol string, limit int) ([]domain.ClosedTrade, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT symbol, side, entry_ts_ms, entry_price, exit_ts_ms, exit_price,
		       quantity, realized_pnl, fees_paid, funding_paid, exit_reason,
		       strategy_tag
		FROM closed_trades
		WHERE symbol = $1
		ORDER BY exit_ts_ms DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query closed trades by symbol: %w", err)
	}
	defer rows.Close()

	var trades []domain.ClosedTrade
	for rows.Next() {
		trade, err := scanClosedTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan closed trade: %w", err)
		}
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate closed trades: %w", err)
	}

	return trades, nil
}

// CountByExitReason groups a symbol's trade count by exit reason.
func (s *PostgresSink) CountByExitReason(ctx context.Context, symbol string) (map[string]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT exit_reason, COUNT(*)
		FROM closed_trades
		WHERE symbol = $1
		GROUP BY exit_reason
		ORDER BY exit_reason`

	rows, err := s.db.QueryContext(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("count closed trades by exit reason: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var reason string
		var count int64
		if err := rows.Scan(&reason, &count); err != nil {
			return nil, fmt.Errorf("scan exit reason count: %w", err)
		}
		counts[reason] = count
	}

	return counts, nil
}

func scanClosedTrade(rows *sql.Rows) (domain.ClosedTrade, error) {
	var trade domain.ClosedTrade
	var side, exitReason string
	var entryTs, exitTs int64

	err := rows.Scan(
		&trade.Symbol, &side, &entryTs, &trade.EntryPrice,
		&exitTs, &trade.ExitPrice, &trade.Quantity, &trade.RealizedPnL,
		&trade.FeesPaid, &trade.FundingPaid, &exitReason, &trade.StrategyTag)
	if err != nil {
		return domain.ClosedTrade{}, err
	}

	trade.EntryTimeMs = domain.TimestampMs(entryTs)
	trade.ExitTimeMs = domain.TimestampMs(exitTs)
	trade.Side = parsePositionSide(side)
	trade.ExitReason = parseExitReason(exitReason)

	return trade, nil
}

func parsePositionSide(s string) domain.PositionSide {
	switch s {
	case "long":
		return domain.Long
	case "short":
		return domain.Short
	default:
		return domain.Flat
	}
}

func parseExitReason(s string) domain.ExitReason {
	switch s {
	case "stop":
		return domain.ExitStop
	case "tp1":
		return domain.ExitTP1
	case "tp2":
		return domain.ExitTP2
	case "signal_flip":
		return domain.ExitSignalFlip
	case "time_limit":
		return domain.ExitTimeLimit
	case "manual":
		return domain.ExitManual
	default:
		return domain.ExitNone
	}
}
