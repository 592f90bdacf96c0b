package session

import (
	"fmt"
	"time"

	"github.com/rodneysantos/toy-robot/sim/engine"
	"github.com/rodneysantos/toy-robot/sim/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData is the stored form of a session
type PersistedSessionData struct {
	ID             string              `json:"id"`
	ConfigID       string              `json:"config_id"`
	Table          *engine.TableConfig `json:"table"`
	CreatedAt      time.Time           `json:"created_at"`
	LastAccessedAt time.Time           `json:"last_accessed_at"`
	Robot          engine.Snapshot     `json:"robot"`
}

func toPersisted(session *service.Session) PersistedSessionData {
	return PersistedSessionData{
		ID:             session.ID,
		ConfigID:       session.ConfigID,
		Table:          session.Config,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		Robot:          session.Robot.Snapshot(),
	}
}

func fromPersisted(data PersistedSessionData) (*service.Session, error) {
	session, err := service.NewSession(data.ID, data.ConfigID, data.Table)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild session %s: %w", data.ID, err)
	}

	if err := session.Robot.Restore(data.Robot, session.Table); err != nil {
		return nil, fmt.Errorf("failed to restore robot for session %s: %w", data.ID, err)
	}

	session.CreatedAt = data.CreatedAt
	session.LastAccessedAt = data.LastAccessedAt
	return session, nil
}
