package models

import "time"

// Manager is a plant-scoped PIN-authenticated operator. The PIN hash never
// leaves the store layer.
type Manager struct {
	ID       string    `json:"id"`
	PlantID  string    `json:"plant_id"`
	Role     string    `json:"role"`
	Username string    `json:"username"`
	Created  time.Time `json:"created_at"`
}

// Owner is a primary-authenticated plant owner, resolved from an owner
// session token by the backend.
type Owner struct {
	UserID  string `json:"user_id"`
	PlantID string `json:"plant_id"`
	Email   string `json:"email"`
}

type Driver struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	PlantID  string `json:"plant_id"`
	IsActive bool   `json:"is_active"`
}

// BottleEntry is one daily delivery-count record for a driver. At most one
// row exists per (manager, driver, entry date).
type BottleEntry struct {
	ID          string    `json:"id"`
	DriverID    string    `json:"driver_id"`
	ManagerID   string    `json:"manager_id"`
	BottleCount int       `json:"bottle_count"`
	EntryDate   string    `json:"entry_date"`
	CreatedAt   time.Time `json:"created_at"`
}

const RoleManager = "manager"
