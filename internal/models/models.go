// Package models holds the read-model DTOs the HTTP handler serializes to JSON. They are
// distinct from gtfs.Route/gtfs.Stop (the routing-core feed contract) and from
// network.Route/network.Stop (the RAPTOR-internal equivalence classes) — these are display
// shapes for the /lines and /stops endpoints only.
package models

type Line struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	StopCount int    `json:"stop_count,omitempty"`
}

type Stop struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Sequence int     `json:"sequence,omitempty"`
}
