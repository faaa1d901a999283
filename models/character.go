package models

import "time"

type Character struct {
	ID                  string    `json:"_id"`
	Name                string    `json:"name"`
	Role                string    `json:"role"`
	PhysicalDescription string    `json:"physical_description"`
	PersonalityTraits   string    `json:"personality_traits"`
	Backstory           string    `json:"backstory"`
	Color               string    `json:"color"`
	CreatedAt           time.Time `json:"created_at"`
	OwnerID             string    `json:"owner_id"`
	LocationID          string    `json:"location_id,omitempty"`
}
