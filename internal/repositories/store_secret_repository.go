package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"timeclock_backend/internal/models"

	"github.com/lib/pq" // For pq.Error
)

// StoreSecretRepository owns the versioned secret material codes are
// derived from. Reads return one consistent (secret, generation) row
// snapshot; rotation is a single-row atomic swap, so a verifier can never
// observe an old secret paired with a new generation.
type StoreSecretRepository interface {
	GetByStoreID(storeID int64) (*models.StoreSecret, error)
	// Rotate swaps in newSecret and increments the generation atomically.
	// The first call for a store provisions the row at generation 1.
	Rotate(executor SQLExecutor, storeID int64, newSecret []byte) (*models.StoreSecret, error)
	StoreExists(storeID int64) (bool, error)
}

type storeSecretRepository struct {
	db *sql.DB
}

// NewStoreSecretRepository creates a new instance of StoreSecretRepository.
func NewStoreSecretRepository(db *sql.DB) StoreSecretRepository {
	return &storeSecretRepository{db: db}
}

func (r *storeSecretRepository) GetByStoreID(storeID int64) (*models.StoreSecret, error) {
	secret := &models.StoreSecret{}
	query := `SELECT store_id, secret, generation, created_at, rotated_at
	          FROM store_secrets
	          WHERE store_id = $1`

	err := r.db.QueryRow(query, storeID).Scan(
		&secret.StoreID, &secret.Secret, &secret.Generation,
		&secret.CreatedAt, &secret.RotatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting secret for store %d: %v", ErrDatabaseError, storeID, err)
	}
	return secret, nil
}

func (r *storeSecretRepository) Rotate(executor SQLExecutor, storeID int64, newSecret []byte) (*models.StoreSecret, error) {
	// Upsert keeps provisioning and rotation one statement; the generation
	// bump and secret swap commit together or not at all.
	query := `INSERT INTO store_secrets (store_id, secret, generation, created_at, rotated_at)
	          VALUES ($1, $2, 1, NOW(), NOW())
	          ON CONFLICT (store_id) DO UPDATE
	          SET secret = EXCLUDED.secret,
	              generation = store_secrets.generation + 1,
	              rotated_at = NOW()
	          RETURNING store_id, secret, generation, created_at, rotated_at`

	secret := &models.StoreSecret{}
	err := executor.QueryRow(query, storeID, newSecret).Scan(
		&secret.StoreID, &secret.Secret, &secret.Generation,
		&secret.CreatedAt, &secret.RotatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return nil, fmt.Errorf("%w: store %d not found (constraint: %s)", ErrNotFound, storeID, pqErr.Constraint)
		}
		return nil, fmt.Errorf("%w: rotating secret for store %d: %v", ErrDatabaseError, storeID, err)
	}
	return secret, nil
}

func (r *storeSecretRepository) StoreExists(storeID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM stores WHERE id = $1)`, storeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: checking store %d: %v", ErrDatabaseError, storeID, err)
	}
	return exists, nil
}
