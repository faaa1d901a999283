package models

import "time"

// Coords is a position on the world map.
type Coords struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Location struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	Coords      *Coords   `json:"coords"` // nil until placed on the map
	CreatedAt   time.Time `json:"created_at"`
	OwnerID     string    `json:"owner_id"`
}
