package seeder

import (
	"time"

	"github.com/okian/pulselog/internal/domain/types"
	"github.com/okian/pulselog/pkg/logger"
)

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Athletes   int           // Number of synthetic athletes
	Days       int           // Days of history per athlete, ending today
	Workers    int           // Athletes seeded concurrently
	Timeout    time.Duration // HTTP request timeout
	Settle     time.Duration // Wait before reading dashboards back
	Seed       uint64        // Seed for the generator
	OutputFile string        // Optional JSON dump of the generated plans
	Verbose    bool          // Log every athlete
	Logger     logger.Logger // Defaults to the global logger
}

// Archetype is the training pattern an athlete is generated with.
type Archetype string

// Archetypes, one per insight rule the seeder wants to trigger.
const (
	Steady       Archetype = "steady"
	Overreaching Archetype = "overreaching"
	ShortSleeper Archetype = "short_sleeper"
	Tapering     Archetype = "tapering"
)

// Archetypes lists every archetype in generation order.
var Archetypes = []Archetype{Steady, Overreaching, ShortSleeper, Tapering}

// Plan is everything the seeder submits for one athlete.
type Plan struct {
	AthleteID string               `json:"athlete_id"`
	Archetype Archetype            `json:"archetype"`
	Profile   types.ProfileRequest `json:"profile"`
	Meets     []types.MeetRequest  `json:"meets"`
	Logs      []types.LogRequest   `json:"logs"`
}

// Stats holds run statistics.
type Stats struct {
	AthletesSeeded int
	LogsSubmitted  int
	LogsQueued     int
	LogsDeferred   int
	MeetsScheduled int
	Failures       int
	Readiness      map[string]int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}
