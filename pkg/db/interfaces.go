package db

import (
	"github.com/jakechorley/mass-rota/pkg/core/services"
)

// Database defines the interface for all database operations.
// Both the postgres.DB and sqlite.DB stores implement this interface.
type Database interface {
	services.RosterProvider
	services.EligibilityProvider
	services.RequirementProvider
	services.AssignmentStore

	services.RosterWriter

	Close() error
}

// Sources binds every provider of the engine to one database
func Sources(d Database) services.Sources {
	return services.Sources{
		Roster:       d,
		Eligibility:  d,
		Requirements: d,
		Assignments:  d,
	}
}
