package domain

import "time"

// SoftwareProduct represents a licensable product unit (an Expert Advisor, or
// "EA") registered under one owning mentor account. Products are scoped to
// their owner and can only be deleted while no license key references them.
type SoftwareProduct struct {
	ID        string    `json:"id" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	OwnerID   string    `json:"owner_id" validate:"required"`
	CreatedAt time.Time `json:"created_at"`
}
