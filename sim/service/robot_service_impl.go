package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rodneysantos/toy-robot/script"
	"github.com/rodneysantos/toy-robot/sim/engine"
	"github.com/rodneysantos/toy-robot/telemetry"
)

// robotServiceImpl implements the RobotService interface
type robotServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	metrics  *telemetry.Metrics
	logger   zerolog.Logger
	mu       sync.RWMutex
}

// Option configures the robot service
type Option func(*robotServiceImpl)

// WithMetrics records command metrics on m
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *robotServiceImpl) {
		s.metrics = m
	}
}

// WithLogger sets the service logger. Defaults to the global zerolog logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *robotServiceImpl) {
		s.logger = logger
	}
}

// NewRobotService creates a new robot service instance
func NewRobotService(sessions SessionManager, configs ConfigManager, opts ...Option) RobotService {
	s := &robotServiceImpl{
		sessions: sessions,
		configs:  configs,
		logger:   log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics.SetActiveSessions(sessions.Count())
	return s
}

// CreateSession creates a new robot session on the named table configuration
func (s *robotServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.TableConfig
	var err error
	configID := configName
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				return nil, s.configNotFound(configName)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
		configID = s.getConfigID(config.Name)
	}

	// Let the session manager generate the ID
	sess, err := s.sessions.Create("", configID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.metrics.SetActiveSessions(s.sessions.Count())

	s.logger.Info().Str("session", sess.ID).Str("config", configID).Msg("session created")
	return sessionInfo(sess), nil
}

// configNotFound builds a helpful error listing the available config ids
func (s *robotServiceImpl) configNotFound(name string) error {
	available, err := s.configs.ListConfigs()
	if err == nil && len(available) > 0 {
		ids := make([]string, 0, len(available))
		for _, cfg := range available {
			ids = append(ids, cfg.ConfigID)
		}
		return fmt.Errorf("%w: '%s'. Available configs: %s", ErrConfigNotFound, name, strings.Join(ids, ", "))
	}
	return fmt.Errorf("%w: '%s'. Use /api/configs to list available configurations", ErrConfigNotFound, name)
}

// getConfigID returns the config id for a display name, falling back to the name
func (s *robotServiceImpl) getConfigID(name string) string {
	available, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range available {
			if cfg.Name == name {
				return cfg.ConfigID
			}
		}
	}
	if name == "" {
		return "default"
	}
	return name
}

// GetSession retrieves session information
func (s *robotServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *robotServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *robotServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	s.metrics.SetActiveSessions(s.sessions.Count())
	s.logger.Info().Str("session", sessionID).Msg("session deleted")
	return nil
}

// Execute runs a single command against the session's robot. A rejected PLACE
// is recorded in the history and returned as an error wrapping the engine error.
func (s *robotServiceImpl) Execute(ctx context.Context, sessionID, command, args string) (*CommandResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	result, err := s.execute(sess, command, args)
	s.save(sess.ID, "command")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", strings.TrimSpace(command+" "+args), err)
	}
	return result, nil
}

// ExecuteLine parses a "NAME [ARGS]" line and executes it
func (s *robotServiceImpl) ExecuteLine(ctx context.Context, sessionID, line string) (*CommandResult, error) {
	cmd, err := script.ParseLine(line)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, sessionID, cmd.Name, cmd.Args)
}

// Report runs REPORT and returns its output in the result
func (s *robotServiceImpl) Report(ctx context.Context, sessionID string) (*CommandResult, error) {
	return s.Execute(ctx, sessionID, string(engine.CommandReport), "")
}

// execute runs one command and records metrics. Caller holds s.mu.
func (s *robotServiceImpl) execute(sess *Session, command, args string) (*CommandResult, error) {
	from := sess.Robot.State()
	err := sess.Robot.Execute(command, args, sess.Table)

	result := &CommandResult{
		SessionID: sess.ID,
		Command:   command,
		Args:      args,
		From:      from,
		State:     sess.Robot.State(),
	}
	if entry := sess.Robot.LastEntry(); entry != nil {
		result.Seq = entry.Seq
		result.Applied = entry.Applied
	}
	if engine.CommandName(command) == engine.CommandReport {
		result.Report = sess.Robot.Report()
	}

	switch {
	case err != nil:
		result.Error = err.Error()
		s.metrics.ObserveCommand(command, telemetry.OutcomeError)
		s.metrics.PlacementFailed(placementReason(err))
		s.logger.Debug().Str("session", sess.ID).Str("command", command).Str("args", args).Err(err).Msg("command rejected")
	case result.Applied:
		s.metrics.ObserveCommand(command, telemetry.OutcomeApplied)
	default:
		s.metrics.ObserveCommand(metricCommand(command), telemetry.OutcomeIgnored)
		if engine.CommandName(command) == engine.CommandMove && from.Placed {
			s.metrics.MoveDropped()
		}
	}

	return result, err
}

// RunScript executes a multi-line script against the session's robot. Blank
// lines are skipped; the whole script drives the one robot. Execution stops at
// the first rejected command.
func (s *robotServiceImpl) RunScript(ctx context.Context, sessionID, text string, reset bool) (*ScriptResult, error) {
	batches, err := script.ParseString(text)
	if err != nil {
		return nil, err
	}

	var commands []script.Command
	for _, batch := range batches {
		commands = append(commands, batch.Commands...)
	}
	if len(commands) == 0 && !reset {
		return nil, ErrEmptyScript
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	result := &ScriptResult{
		SessionID: sess.ID,
		Requested: len(commands),
		Reports:   []string{},
		Steps:     make([]ScriptStep, 0, len(commands)),
		Reset:     reset,
	}

	if reset {
		sess.Robot.Reset()
	}

	if len(commands) > MaxScriptCommands {
		result.Truncated = true
		result.Limit = MaxScriptCommands
		commands = commands[:MaxScriptCommands]
	}

	outcome := telemetry.OutcomeApplied
	for _, cmd := range commands {
		if err := ctx.Err(); err != nil {
			result.Error = err.Error()
			outcome = telemetry.OutcomeError
			break
		}

		res, err := s.execute(sess, cmd.Name, cmd.Args)
		if err != nil {
			result.Error = fmt.Sprintf("line %d: %v", cmd.Line, err)
			result.StoppedOnLine = cmd.Line
			outcome = telemetry.OutcomeError
			break
		}

		result.Executed++
		if res.Applied {
			result.Applied++
		}
		if engine.CommandName(cmd.Name) == engine.CommandReport {
			result.Reports = append(result.Reports, res.Report)
		}

		step := ScriptStep{
			Line:    cmd.Line,
			Command: cmd.Name,
			Args:    cmd.Args,
			From:    res.From.Position,
			To:      res.State.Position,
			Applied: res.Applied,
			Report:  res.Report,
		}
		if res.State.Placed {
			step.Heading = res.State.Heading.String()
		}
		result.Steps = append(result.Steps, step)
	}

	result.State = sess.Robot.State()
	s.metrics.ScriptRun(outcome)
	s.save(sess.ID, "script")

	s.logger.Debug().
		Str("session", sess.ID).
		Int("executed", result.Executed).
		Int("requested", result.Requested).
		Str("report", sess.Robot.Report()).
		Msg("script finished")

	return result, nil
}

// Reset takes the session's robot off the table
func (s *robotServiceImpl) Reset(ctx context.Context, sessionID string) (*RobotStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Robot.Reset()
	s.save(sess.ID, "reset")
	return robotStatus(sess), nil
}

// GetState retrieves the current robot state
func (s *robotServiceImpl) GetState(ctx context.Context, sessionID string) (*RobotStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return robotStatus(sess), nil
}

// GetHistory returns paginated command history
func (s *robotServiceImpl) GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	return paginateHistory(sess.Robot.History(), opts), nil
}

func paginateHistory(history []engine.HistoryEntry, opts HistoryOptions) *HistoryResponse {
	total := len(history)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order != "asc" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	entries := []engine.HistoryEntry{}
	if start < total {
		if opts.Order == "desc" {
			// most recent first
			for i := total - 1 - start; i >= total-end; i-- {
				entries = append(entries, history[i])
			}
		} else {
			entries = append(entries, history[start:end]...)
		}
	}

	return &HistoryResponse{
		Entries:     entries,
		Total:       total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}
}

// ListConfigs returns available table configurations
func (s *robotServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific table configuration
func (s *robotServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.TableConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a table configuration
func (s *robotServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.TableConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// getSession looks a session up and marks it accessed
func (s *robotServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
		}
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

func (s *robotServiceImpl) save(sessionID, after string) {
	if err := s.sessions.Save(sessionID); err != nil {
		s.logger.Warn().Err(err).Str("session", sessionID).Msgf("failed to persist session after %s", after)
	}
}

func sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigID:       sess.ConfigID,
		Table:          sess.Config,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		State:          sess.Robot.State(),
		Report:         sess.Robot.Report(),
		Commands:       len(sess.Robot.History()),
	}
}

func robotStatus(sess *Session) *RobotStatus {
	width, height := sess.Table.Dimensions()
	return &RobotStatus{
		SessionID: sess.ID,
		State:     sess.Robot.State(),
		Report:    sess.Robot.Report(),
		Width:     width,
		Height:    height,
	}
}

// placementReason maps a PLACE error to a metric label
func placementReason(err error) string {
	var dirErr *engine.InvalidDirectionError
	switch {
	case errors.As(err, &dirErr):
		return "invalid_direction"
	case errors.Is(err, engine.ErrOutOfBounds):
		return "out_of_bounds"
	case errors.Is(err, engine.ErrMalformedPlace):
		return "malformed"
	case errors.Is(err, engine.ErrInvalidPosition):
		return "invalid_position"
	default:
		return "other"
	}
}

// metricCommand keeps label cardinality bounded for unknown commands
func metricCommand(command string) string {
	if engine.CommandName(command).IsKnown() {
		return command
	}
	return "UNKNOWN"
}
