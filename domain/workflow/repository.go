package workflow

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ErrConcurrentUpdate is returned by Repository.Update when the
// conditional WHERE on updated_at matched zero rows — another writer
// flushed a transition after the caller's in-memory copy was loaded.
var ErrConcurrentUpdate = errors.New("workflow: concurrent session update")

// Repository handles durable storage for Session (§6: read by id,
// conditional update on updated_at, list by project_id).
type Repository struct {
	db bun.IDB
}

// NewRepository constructs a Repository.
func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new session with whatever Status the caller set,
// filling in a SessionID and empty step collections where they are unset.
func (r *Repository) Create(ctx context.Context, s *Session) error {
	if s.SessionID == "" {
		s.SessionID = uuid.NewString()
	}
	if s.CompletedSteps == nil {
		s.CompletedSteps = []string{}
	}
	if s.StepOutputs == nil {
		s.StepOutputs = map[string]string{}
	}
	if s.RetryCounters == nil {
		s.RetryCounters = map[string]int{}
	}
	_, err := r.db.NewInsert().Model(s).Exec(ctx)
	return err
}

// FindByID returns a session by id, or nil if none exists.
func (r *Repository) FindByID(ctx context.Context, sessionID string) (*Session, error) {
	s := new(Session)
	err := r.db.NewSelect().Model(s).Where("session_id = ?", sessionID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// FindRunningByProject returns the running session for a project, if
// any — the check behind the §5 start guard.
func (r *Repository) FindRunningByProject(ctx context.Context, projectID string) (*Session, error) {
	s := new(Session)
	err := r.db.NewSelect().
		Model(s).
		Where("project_id = ?", projectID).
		Where("status = ?", StatusRunning).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// FindLatestByProject returns the most recently updated session for a
// project regardless of status, or nil if the project has never run —
// how mode=resume/auto locate what to resume.
func (r *Repository) FindLatestByProject(ctx context.Context, projectID string) (*Session, error) {
	s := new(Session)
	err := r.db.NewSelect().
		Model(s).
		Where("project_id = ?", projectID).
		Order("updated_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// ListRunning returns every session currently in status=running, across
// all projects — the poll-loop task's work queue for one scheduler tick.
func (r *Repository) ListRunning(ctx context.Context) ([]*Session, error) {
	var sessions []*Session
	err := r.db.NewSelect().
		Model(&sessions).
		Where("status = ?", StatusRunning).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// FindStale returns running sessions whose updated_at is older than
// olderThan — sessions stuck mid-step because the process that last
// called Advance on them died before persisting a transition.
func (r *Repository) FindStale(ctx context.Context, olderThan time.Time) ([]*Session, error) {
	var sessions []*Session
	err := r.db.NewSelect().
		Model(&sessions).
		Where("status = ?", StatusRunning).
		Where("updated_at < ?", olderThan).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// Update persists s conditionally on the UpdatedAt value the caller last
// observed (optimistic concurrency, §5). It stamps a fresh UpdatedAt and
// returns ErrConcurrentUpdate if no row matched the previous timestamp.
func (r *Repository) Update(ctx context.Context, s *Session, previousUpdatedAt time.Time) error {
	next := time.Now()
	res, err := r.db.NewUpdate().
		Model(s).
		WherePK().
		Where("updated_at = ?", previousUpdatedAt).
		Set("status = ?", s.Status).
		Set("current_step = ?", s.CurrentStep).
		Set("completed_steps = ?", pgArray(s.CompletedSteps)).
		Set("step_outputs = ?", s.StepOutputs).
		Set("retry_counters = ?", s.RetryCounters).
		Set("updated_at = ?", next).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrConcurrentUpdate
	}
	s.UpdatedAt = next
	return nil
}

// pgArray is a small helper kept separate from the Set call above purely
// for readability; bun marshals a []string the same way with or without
// it, but naming the conversion documents intent at the call site.
func pgArray(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
