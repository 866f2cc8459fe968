package store

import (
	"context"
	"time"

	"wdms/delivery-service/internal/models"
)

type SubmitEntryInput struct {
	ManagerID   string
	PlantID     string
	DriverID    string
	BottleCount int
	EntryDate   time.Time
}

type UpdateEntryInput struct {
	ManagerID   string
	EntryID     string
	BottleCount int
}

type CreateManagerInput struct {
	PlantID  string
	Username string
	PIN      string
}

type UpdateManagerInput struct {
	PlantID   string
	ManagerID string
	Username  string
	PIN       string
}

type CreateDriverInput struct {
	PlantID string
	Name    string
}

type Store interface {
	// VerifyManagerPIN performs the single credential lookup. No rows and a
	// hash mismatch are indistinguishable to the caller.
	VerifyManagerPIN(ctx context.Context, username, pin string) (models.Manager, error)

	// GetOwnerSession resolves a primary-auth bearer token to an owner
	// profile. Authorization policy lives behind this call.
	GetOwnerSession(ctx context.Context, token string) (models.Owner, error)

	ListActiveDrivers(ctx context.Context, plantID string) ([]models.Driver, error)
	CreateDriver(ctx context.Context, input CreateDriverInput) (models.Driver, error)
	DeactivateDriver(ctx context.Context, plantID, driverID string) error

	SubmitEntry(ctx context.Context, input SubmitEntryInput) (models.BottleEntry, error)
	LastEntryForDay(ctx context.Context, managerID, driverID string, day time.Time) (models.BottleEntry, error)
	UpdateEntry(ctx context.Context, input UpdateEntryInput) (models.BottleEntry, error)

	CreateManager(ctx context.Context, input CreateManagerInput) (models.Manager, error)
	UpdateManager(ctx context.Context, input UpdateManagerInput) (models.Manager, error)
	DeleteManager(ctx context.Context, plantID, managerID string) error
	ListManagers(ctx context.Context, plantID string) ([]models.Manager, error)
}
