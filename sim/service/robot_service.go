package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rodneysantos/toy-robot/sim/engine"
)

// RobotService defines all robot-related operations
type RobotService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Robot Commands
	Execute(ctx context.Context, sessionID, command, args string) (*CommandResult, error)
	ExecuteLine(ctx context.Context, sessionID, line string) (*CommandResult, error)
	RunScript(ctx context.Context, sessionID, script string, reset bool) (*ScriptResult, error)
	Report(ctx context.Context, sessionID string) (*CommandResult, error)
	Reset(ctx context.Context, sessionID string) (*RobotStatus, error)

	// Robot State
	GetState(ctx context.Context, sessionID string) (*RobotStatus, error)
	GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.TableConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.TableConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, configID string, config *engine.TableConfig) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
	Count() int
}

// ConfigManager handles table configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.TableConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.TableConfig
	SaveConfig(name string, config *engine.TableConfig) error
}

// Session is one table with one robot on it
type Session struct {
	ID             string
	ConfigID       string
	Config         *engine.TableConfig
	Table          *engine.Table
	Robot          *engine.Robot
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

// NewSession builds a session with an unplaced robot on a table sized by config
func NewSession(id, configID string, config *engine.TableConfig) (*Session, error) {
	if config == nil {
		config = engine.DefaultTableConfig()
	}
	table, err := engine.NewTableFromConfig(config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if configID == "" {
		configID = config.Name
	}

	now := time.Now()
	return &Session{
		ID:       id,
		ConfigID: configID,
		Config:   config,
		Table:    table,
		// REPORT output is returned to callers, not printed
		Robot:          engine.NewRobot(engine.WithOutput(io.Discard)),
		CreatedAt:      now,
		LastAccessedAt: now,
	}, nil
}
