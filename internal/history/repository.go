package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Record is one executed (or attempted) swap.
type Record struct {
	WalletAddress string    `json:"walletAddress"`
	FromSymbol    string    `json:"fromSymbol"`
	ToSymbol      string    `json:"toSymbol"`
	FromAmount    string    `json:"fromAmount"`
	ToAmount      string    `json:"toAmount"`
	TxHash        string    `json:"txHash,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Repository defines persistent storage for swap history.
type Repository interface {
	Save(ctx context.Context, r Record) error
	ListByWallet(ctx context.Context, walletAddress string, limit int) ([]Record, error)
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL swap history repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Save(ctx context.Context, rec Record) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO swap_history (wallet_address, from_symbol, to_symbol, from_amount, to_amount, tx_hash, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
		rec.WalletAddress, rec.FromSymbol, rec.ToSymbol, rec.FromAmount, rec.ToAmount, rec.TxHash, rec.Status)
	if err != nil {
		return fmt.Errorf("saving swap record: %w", err)
	}
	return nil
}

func (r *PgRepository) ListByWallet(ctx context.Context, walletAddress string, limit int) ([]Record, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT wallet_address, from_symbol, to_symbol, from_amount, to_amount, tx_hash, status, created_at
		 FROM swap_history
		 WHERE wallet_address = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		walletAddress, limit)
	if err != nil {
		return nil, fmt.Errorf("listing swap history for %s: %w", walletAddress, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.WalletAddress, &rec.FromSymbol, &rec.ToSymbol,
			&rec.FromAmount, &rec.ToAmount, &rec.TxHash, &rec.Status, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning swap record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
