package types

import "time"

// Reading is one historical tank reading as returned by the SENSiT call
// history API. LevelPercent is vendor-computed (0-100).
type Reading struct {
	ReadingDate  time.Time
	LevelPercent float64
	LevelLitres  int
}

// Snapshot is the combined metadata and latest level for a tank. The vendor
// returns both in a single GetLatestLevel call so they are always fetched
// and cached together.
type Snapshot struct {
	Name         string
	SerialNumber string
	Model        string
	Capacity     int
	LevelLitres  int
	LevelPercent float64
	LastRead     time.Time
}
