package school

import (
	"time"

	"github.com/volatiletech/null/v8"
)

type Bus struct {
	ID          string      `json:"id"`
	PlateNumber string      `json:"plateNumber"`
	Name        string      `json:"name"`
	Capacity    int         `json:"capacity"`
	DriverID    null.String `json:"driverId"`
	Route       []string    `json:"route,omitempty"`
	IsActive    bool        `json:"isActive"`
}

func (b Bus) Key() string { return b.ID }

// Location is a GPS fix pushed by a driver.
type Location struct {
	BusID     string    `json:"busId"`
	DriverID  string    `json:"driverId,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Speed     float64   `json:"speed"`
	Heading   float64   `json:"heading"`
	At        time.Time `json:"at"`
}
