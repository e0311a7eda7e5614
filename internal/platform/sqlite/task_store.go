package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/phrazzld/taskd/internal/platform/logger"
	"github.com/phrazzld/taskd/internal/store"
	"github.com/phrazzld/taskd/internal/task"
)

const taskColumns = `id, name, description, tags, metadata, room_id, world_id, entity_id, created_at, updated_at`

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// TaskStore implements task.TaskStore on SQLite. Tags and metadata are JSON
// text filtered with the JSON1 functions.
type TaskStore struct {
	db     store.DBTX
	clock  clockwork.Clock
	logger *slog.Logger
}

// Option configures a TaskStore.
type Option func(*TaskStore)

// WithClock sets the clock used for record timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(s *TaskStore) {
		s.clock = clock
	}
}

// NewTaskStore creates a TaskStore on a database connection or transaction
// owned by the caller. If logger is nil, the default logger is used.
func NewTaskStore(db store.DBTX, logger *slog.Logger, opts ...Option) *TaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &TaskStore{
		db:     db,
		clock:  clockwork.NewRealClock(),
		logger: logger.With(slog.String("component", "task_store")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithTx returns a store that runs every statement inside tx.
func (s *TaskStore) WithTx(tx *sql.Tx) *TaskStore {
	return s.withDB(tx)
}

func (s *TaskStore) withDB(db store.DBTX) *TaskStore {
	return &TaskStore{
		db:     db,
		clock:  s.clock,
		logger: s.logger,
	}
}

var _ task.TaskStore = (*TaskStore)(nil)

// CreateTask inserts t, generating an id and record timestamps when unset.
func (s *TaskStore) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if strings.TrimSpace(t.Name) == "" {
		return task.Task{}, fmt.Errorf("%w: task name is required", store.ErrInvalidEntity)
	}

	t = t.Clone()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	now := s.clock.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()

	tags, err := store.EncodeJSON(t.Tags, "[]")
	if err != nil {
		return task.Task{}, err
	}
	metadata, err := store.EncodeJSON(t.Metadata, "{}")
	if err != nil {
		return task.Task{}, err
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		t.ID.String(),
		t.Name,
		t.Description,
		tags,
		metadata,
		nullID(t.RoomID),
		nullID(t.WorldID),
		nullID(t.EntityID),
		t.CreatedAt.Format(timeLayout),
		t.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		log.Error("failed to create task",
			slog.String("task_id", t.ID.String()),
			slog.String("task_name", t.Name),
			slog.String("error", err.Error()))
		if IsUniqueViolation(err) {
			return task.Task{}, fmt.Errorf("%w: %s", store.ErrTaskExists, t.ID)
		}
		return task.Task{}, fmt.Errorf("failed to create task %s: %w", t.ID, MapError(err))
	}

	log.Debug("task created",
		slog.String("task_id", t.ID.String()),
		slog.String("task_name", t.Name))
	return t, nil
}

// GetTask retrieves a task by id.
func (s *TaskStore) GetTask(ctx context.Context, id uuid.UUID) (task.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`
	t, err := scanTask(s.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", id.String()))
			return task.Task{}, fmt.Errorf("%w: %s", store.ErrTaskNotFound, id)
		}
		log.Error("failed to get task",
			slog.String("task_id", id.String()),
			slog.String("error", err.Error()))
		return task.Task{}, fmt.Errorf("failed to get task %s: %w", id, MapError(err))
	}
	return t, nil
}

// GetTasks returns the tasks matching f ordered by creation time.
func (s *TaskStore) GetTasks(ctx context.Context, f task.Filter) ([]task.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	where, args := filterClause(f)
	query := `SELECT ` + taskColumns + ` FROM tasks` + where + ` ORDER BY created_at, id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks",
			slog.Any("tags", f.Tags),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to query tasks: %w", MapError(err))
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Error("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	tasks := make([]task.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row", slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tasks: %w", err)
	}

	log.Debug("tasks retrieved", slog.Int("count", len(tasks)))
	return tasks, nil
}

// UpdateTask applies u inside a transaction. On a transaction-bound store it
// joins the caller's transaction.
func (s *TaskStore) UpdateTask(ctx context.Context, id uuid.UUID, u task.Update) (task.Task, error) {
	return store.Transact(ctx, s.db, func(ctx context.Context, db store.DBTX) (task.Task, error) {
		return s.withDB(db).updateTask(ctx, id, u)
	})
}

func (s *TaskStore) updateTask(ctx context.Context, id uuid.UUID, u task.Update) (task.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	t, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return task.Task{}, fmt.Errorf("%w: %s", store.ErrTaskNotFound, id)
		}
		return task.Task{}, fmt.Errorf("failed to load task %s: %w", id, MapError(err))
	}

	u.Apply(&t)
	if strings.TrimSpace(t.Name) == "" {
		return task.Task{}, fmt.Errorf("%w: task name is required", store.ErrInvalidEntity)
	}
	t.UpdatedAt = s.clock.Now().UTC()

	tags, err := store.EncodeJSON(t.Tags, "[]")
	if err != nil {
		return task.Task{}, err
	}
	metadata, err := store.EncodeJSON(t.Metadata, "{}")
	if err != nil {
		return task.Task{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET name = ?, description = ?, tags = ?, metadata = ?, updated_at = ?
		WHERE id = ?
	`, t.Name, t.Description, tags, metadata, t.UpdatedAt.Format(timeLayout), id.String())
	if err != nil {
		log.Error("failed to update task",
			slog.String("task_id", id.String()),
			slog.String("error", err.Error()))
		return task.Task{}, fmt.Errorf("%w: task %s: %v", store.ErrUpdateFailed, id, MapError(err))
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return task.Task{}, fmt.Errorf("%w: %s", store.ErrTaskNotFound, id)
	}

	log.Debug("task updated", slog.String("task_id", id.String()))
	return t, nil
}

// DeleteTask removes the task with the given id.
func (s *TaskStore) DeleteTask(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id.String())
	if err != nil {
		log.Error("failed to delete task",
			slog.String("task_id", id.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: task %s: %v", store.ErrDeleteFailed, id, MapError(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", store.ErrTaskNotFound, id)
	}

	log.Debug("task deleted", slog.String("task_id", id.String()))
	return nil
}

func filterClause(f task.Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	for _, tag := range f.Tags {
		clauses = append(clauses, `EXISTS (SELECT 1 FROM json_each(tasks.tags) WHERE json_each.value = ?)`)
		args = append(args, tag)
	}
	if f.Name != "" {
		clauses = append(clauses, `name = ?`)
		args = append(args, f.Name)
	}
	if f.RoomID != nil {
		clauses = append(clauses, `room_id = ?`)
		args = append(args, f.RoomID.String())
	}
	if f.EntityID != nil {
		clauses = append(clauses, `entity_id = ?`)
		args = append(args, f.EntityID.String())
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (task.Task, error) {
	var (
		t                         task.Task
		id                        string
		tags, metadata            string
		roomID, worldID, entityID sql.NullString
		createdAt, updatedAt      string
	)
	err := row.Scan(
		&id,
		&t.Name,
		&t.Description,
		&tags,
		&metadata,
		&roomID,
		&worldID,
		&entityID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return task.Task{}, err
	}

	if t.ID, err = uuid.Parse(id); err != nil {
		return task.Task{}, fmt.Errorf("task id %q: %w", id, err)
	}
	t.Tags = []string{}
	if err := store.DecodeJSON([]byte(tags), &t.Tags); err != nil {
		return task.Task{}, fmt.Errorf("task %s tags: %w", t.ID, err)
	}
	if err := store.DecodeJSON([]byte(metadata), &t.Metadata); err != nil {
		return task.Task{}, fmt.Errorf("task %s metadata: %w", t.ID, err)
	}
	for _, ref := range []struct {
		raw sql.NullString
		dst **uuid.UUID
	}{
		{roomID, &t.RoomID},
		{worldID, &t.WorldID},
		{entityID, &t.EntityID},
	} {
		if *ref.dst, err = parseNullID(ref.raw); err != nil {
			return task.Task{}, fmt.Errorf("task %s: %w", t.ID, err)
		}
	}
	if t.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return task.Task{}, fmt.Errorf("task %s created_at: %w", t.ID, err)
	}
	if t.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return task.Task{}, fmt.Errorf("task %s updated_at: %w", t.ID, err)
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

func nullID(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}

func parseNullID(s sql.NullString) (*uuid.UUID, error) {
	if !s.Valid {
		return nil, nil
	}
	id, err := uuid.Parse(s.String)
	if err != nil {
		return nil, fmt.Errorf("invalid uuid %q: %w", s.String, err)
	}
	return &id, nil
}
