package postgres

import (
	"context"
	"errors"
	"time"

	"wdms/delivery-service/internal/models"
	"wdms/delivery-service/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

const entryDateFormat = "2006-01-02"

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) VerifyManagerPIN(ctx context.Context, username, pin string) (models.Manager, error) {
	var manager models.Manager
	var pinHash string
	row := s.pool.QueryRow(ctx, `
		SELECT id, plant_id, role, username, pin_hash, created_at
		FROM managers
		WHERE lower(username) = lower($1)
	`, username)
	if err := row.Scan(&manager.ID, &manager.PlantID, &manager.Role, &manager.Username, &pinHash, &manager.Created); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Manager{}, store.ErrInvalidCredentials
		}
		return models.Manager{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(pinHash), []byte(pin)); err != nil {
		return models.Manager{}, store.ErrInvalidCredentials
	}

	return manager, nil
}

func (s *Store) GetOwnerSession(ctx context.Context, token string) (models.Owner, error) {
	var owner models.Owner
	row := s.pool.QueryRow(ctx, `
		SELECT p.user_id, p.plant_id, p.email
		FROM owner_sessions s
		JOIN profiles p ON p.user_id = s.user_id
		WHERE s.token = $1 AND s.expires_at > NOW() AND p.role = 'owner'
	`, token)
	if err := row.Scan(&owner.UserID, &owner.PlantID, &owner.Email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Owner{}, store.ErrOwnerSessionNotFound
		}
		return models.Owner{}, err
	}
	return owner, nil
}

func (s *Store) ListActiveDrivers(ctx context.Context, plantID string) ([]models.Driver, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, plant_id, is_active
		FROM drivers
		WHERE plant_id = $1 AND is_active = TRUE
		ORDER BY name ASC
	`, plantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []models.Driver
	for rows.Next() {
		var driver models.Driver
		if err := rows.Scan(&driver.ID, &driver.Name, &driver.PlantID, &driver.IsActive); err != nil {
			return nil, err
		}
		drivers = append(drivers, driver)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return drivers, nil
}

func (s *Store) CreateDriver(ctx context.Context, input store.CreateDriverInput) (models.Driver, error) {
	var driver models.Driver
	row := s.pool.QueryRow(ctx, `
		INSERT INTO drivers (id, plant_id, name, is_active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id, name, plant_id, is_active
	`, uuid.NewString(), input.PlantID, input.Name)
	if err := row.Scan(&driver.ID, &driver.Name, &driver.PlantID, &driver.IsActive); err != nil {
		return models.Driver{}, err
	}
	return driver, nil
}

func (s *Store) DeactivateDriver(ctx context.Context, plantID, driverID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE drivers
		SET is_active = FALSE
		WHERE id = $1 AND plant_id = $2
	`, driverID, plantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrDriverNotFound
	}
	return nil
}

// SubmitEntry writes the day's entry for a (manager, driver) pair. The
// unique constraint on (manager_id, driver_id, entry_date) is the
// authoritative guard: a second submission for the same day becomes an
// in-place count update instead of a duplicate row, even under concurrent
// first submissions.
func (s *Store) SubmitEntry(ctx context.Context, input store.SubmitEntryInput) (models.BottleEntry, error) {
	var exists bool
	row := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM drivers WHERE id = $1 AND plant_id = $2 AND is_active = TRUE
		)
	`, input.DriverID, input.PlantID)
	if err := row.Scan(&exists); err != nil {
		return models.BottleEntry{}, err
	}
	if !exists {
		return models.BottleEntry{}, store.ErrDriverNotFound
	}

	entryDate := input.EntryDate.UTC().Truncate(24 * time.Hour)
	var entry models.BottleEntry
	var scannedDate time.Time
	row = s.pool.QueryRow(ctx, `
		INSERT INTO bottle_entries (id, driver_id, manager_id, bottle_count, entry_date)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (manager_id, driver_id, entry_date)
		DO UPDATE SET bottle_count = EXCLUDED.bottle_count
		RETURNING id, driver_id, manager_id, bottle_count, entry_date, created_at
	`, uuid.NewString(), input.DriverID, input.ManagerID, input.BottleCount, entryDate)
	if err := row.Scan(&entry.ID, &entry.DriverID, &entry.ManagerID, &entry.BottleCount, &scannedDate, &entry.CreatedAt); err != nil {
		return models.BottleEntry{}, err
	}
	entry.EntryDate = scannedDate.Format(entryDateFormat)
	return entry, nil
}

func (s *Store) LastEntryForDay(ctx context.Context, managerID, driverID string, day time.Time) (models.BottleEntry, error) {
	var entry models.BottleEntry
	var scannedDate time.Time
	row := s.pool.QueryRow(ctx, `
		SELECT id, driver_id, manager_id, bottle_count, entry_date, created_at
		FROM bottle_entries
		WHERE manager_id = $1 AND driver_id = $2 AND entry_date = $3
		ORDER BY created_at DESC
		LIMIT 1
	`, managerID, driverID, day.UTC().Truncate(24*time.Hour))
	if err := row.Scan(&entry.ID, &entry.DriverID, &entry.ManagerID, &entry.BottleCount, &scannedDate, &entry.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.BottleEntry{}, store.ErrEntryNotFound
		}
		return models.BottleEntry{}, err
	}
	entry.EntryDate = scannedDate.Format(entryDateFormat)
	return entry, nil
}

func (s *Store) UpdateEntry(ctx context.Context, input store.UpdateEntryInput) (models.BottleEntry, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.BottleEntry{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var ownerID string
	row := tx.QueryRow(ctx, `
		SELECT manager_id FROM bottle_entries WHERE id = $1
	`, input.EntryID)
	if err = row.Scan(&ownerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrEntryNotFound
		}
		return models.BottleEntry{}, err
	}
	if ownerID != input.ManagerID {
		err = store.ErrEntryForbidden
		return models.BottleEntry{}, err
	}

	var entry models.BottleEntry
	var scannedDate time.Time
	row = tx.QueryRow(ctx, `
		UPDATE bottle_entries
		SET bottle_count = $2
		WHERE id = $1
		RETURNING id, driver_id, manager_id, bottle_count, entry_date, created_at
	`, input.EntryID, input.BottleCount)
	if err = row.Scan(&entry.ID, &entry.DriverID, &entry.ManagerID, &entry.BottleCount, &scannedDate, &entry.CreatedAt); err != nil {
		return models.BottleEntry{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.BottleEntry{}, err
	}
	entry.EntryDate = scannedDate.Format(entryDateFormat)
	return entry, nil
}

func (s *Store) CreateManager(ctx context.Context, input store.CreateManagerInput) (models.Manager, error) {
	pinHash, err := bcrypt.GenerateFromPassword([]byte(input.PIN), bcrypt.DefaultCost)
	if err != nil {
		return models.Manager{}, err
	}

	var manager models.Manager
	row := s.pool.QueryRow(ctx, `
		INSERT INTO managers (id, plant_id, username, role, pin_hash)
		VALUES ($1, $2, $3, 'manager', $4)
		RETURNING id, plant_id, role, username, created_at
	`, uuid.NewString(), input.PlantID, input.Username, string(pinHash))
	if err := row.Scan(&manager.ID, &manager.PlantID, &manager.Role, &manager.Username, &manager.Created); err != nil {
		if isUniqueViolation(err) {
			return models.Manager{}, store.ErrUsernameTaken
		}
		return models.Manager{}, err
	}
	return manager, nil
}

func (s *Store) UpdateManager(ctx context.Context, input store.UpdateManagerInput) (models.Manager, error) {
	var pinHash string
	if input.PIN != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(input.PIN), bcrypt.DefaultCost)
		if err != nil {
			return models.Manager{}, err
		}
		pinHash = string(hashed)
	}

	var manager models.Manager
	row := s.pool.QueryRow(ctx, `
		UPDATE managers
		SET username = COALESCE(NULLIF($3, ''), username),
		    pin_hash = COALESCE(NULLIF($4, ''), pin_hash)
		WHERE id = $1 AND plant_id = $2
		RETURNING id, plant_id, role, username, created_at
	`, input.ManagerID, input.PlantID, input.Username, pinHash)
	if err := row.Scan(&manager.ID, &manager.PlantID, &manager.Role, &manager.Username, &manager.Created); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Manager{}, store.ErrManagerNotFound
		}
		if isUniqueViolation(err) {
			return models.Manager{}, store.ErrUsernameTaken
		}
		return models.Manager{}, err
	}
	return manager, nil
}

func (s *Store) DeleteManager(ctx context.Context, plantID, managerID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM managers WHERE id = $1 AND plant_id = $2
	`, managerID, plantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrManagerNotFound
	}
	return nil
}

func (s *Store) ListManagers(ctx context.Context, plantID string) ([]models.Manager, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, plant_id, role, username, created_at
		FROM managers
		WHERE plant_id = $1
		ORDER BY username ASC
	`, plantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var managers []models.Manager
	for rows.Next() {
		var manager models.Manager
		if err := rows.Scan(&manager.ID, &manager.PlantID, &manager.Role, &manager.Username, &manager.Created); err != nil {
			return nil, err
		}
		managers = append(managers, manager)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return managers, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
