package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/mentor-scheduling-api/internal/models"
)

// AvailabilityRepository persists weekly availability documents, one per user.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// GetByUser returns the stored availability for a user or sql.ErrNoRows.
func (r *AvailabilityRepository) GetByUser(ctx context.Context, userID string) (*models.Availability, error) {
	const query = `SELECT id, user_id, days, timezone, created_at, updated_at FROM availabilities WHERE user_id = $1`
	var row models.AvailabilityRow
	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get availability: %w", err)
	}
	return decodeAvailability(row)
}

// Upsert replaces the user's availability wholesale.
func (r *AvailabilityRepository) Upsert(ctx context.Context, availability *models.Availability) error {
	days := availability.Days
	if days == nil {
		days = []models.DayPattern{}
	}
	payload, err := json.Marshal(days)
	if err != nil {
		return fmt.Errorf("encode availability days: %w", err)
	}

	now := time.Now().UTC()
	row := models.AvailabilityRow{
		ID:        uuid.NewString(),
		UserID:    availability.UserID,
		Days:      types.JSONText(payload),
		Timezone:  availability.Timezone,
		CreatedAt: now,
		UpdatedAt: now,
	}

	const query = `INSERT INTO availabilities (id, user_id, days, timezone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET days = EXCLUDED.days,
		    timezone = EXCLUDED.timezone,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`
	var stored struct {
		ID        string    `db:"id"`
		CreatedAt time.Time `db:"created_at"`
	}
	if err := r.db.GetContext(ctx, &stored, query, row.ID, row.UserID, row.Days, row.Timezone, row.CreatedAt, row.UpdatedAt); err != nil {
		return fmt.Errorf("upsert availability: %w", err)
	}

	availability.ID = stored.ID
	availability.Days = days
	availability.CreatedAt = stored.CreatedAt
	availability.UpdatedAt = now
	return nil
}

func decodeAvailability(row models.AvailabilityRow) (*models.Availability, error) {
	days := []models.DayPattern{}
	if len(row.Days) > 0 {
		if err := row.Days.Unmarshal(&days); err != nil {
			return nil, fmt.Errorf("decode availability days: %w", err)
		}
	}
	tz := row.Timezone
	if tz == "" {
		tz = models.DefaultTimezone
	}
	return &models.Availability{
		ID:        row.ID,
		UserID:    row.UserID,
		Days:      days,
		Timezone:  tz,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}
