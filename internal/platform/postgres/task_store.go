package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/phrazzld/taskd/internal/platform/logger"
	"github.com/phrazzld/taskd/internal/store"
	"github.com/phrazzld/taskd/internal/task"
)

const taskColumns = `id, name, description, tags, metadata, room_id, world_id, entity_id, created_at, updated_at`

// TaskStore implements task.TaskStore on PostgreSQL. Tags and metadata are
// stored as JSONB; tag filters use containment so the GIN index applies.
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

	tags, metadata, err := encodeColumns(t)
	if err != nil {
		return task.Task{}, err
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6, $7, $8, $9, $10)
	`
	_, err = s.db.ExecContext(ctx, query,
		t.ID,
		t.Name,
		t.Description,
		tags,
		metadata,
		nullID(t.RoomID),
		nullID(t.WorldID),
		nullID(t.EntityID),
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create task",
			slog.String("task_id", t.ID.String()),
			slog.String("task_name", t.Name),
			slog.String("error", err.Error()))
		return task.Task{}, fmt.Errorf("failed to create task %s: %w",
			t.ID, MapUniqueViolation(err, "task", store.ErrTaskExists))
	}

	log.Debug("task created",
		slog.String("task_id", t.ID.String()),
		slog.String("task_name", t.Name))
	return t, nil
}

// GetTask retrieves a task by id.
func (s *TaskStore) GetTask(ctx context.Context, id uuid.UUID) (task.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	t, err := scanTask(s.db.QueryRowContext(ctx, query, id))
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

	where, args, err := filterClause(f)
	if err != nil {
		return nil, err
	}

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
		log.Error("error iterating task rows", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to read tasks: %w", err)
	}

	log.Debug("tasks retrieved", slog.Int("count", len(tasks)))
	return tasks, nil
}

// UpdateTask applies u under a row lock. On a *sql.DB it opens its own
// transaction; on a transaction-bound store it joins the caller's.
func (s *TaskStore) UpdateTask(ctx context.Context, id uuid.UUID, u task.Update) (task.Task, error) {
	return store.Transact(ctx, s.db, func(ctx context.Context, db store.DBTX) (task.Task, error) {
		return s.withDB(db).updateTask(ctx, id, u)
	})
}

func (s *TaskStore) updateTask(ctx context.Context, id uuid.UUID, u task.Update) (task.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 FOR UPDATE`
	t, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return task.Task{}, fmt.Errorf("%w: %s", store.ErrTaskNotFound, id)
		}
		log.Error("failed to lock task for update",
			slog.String("task_id", id.String()),
			slog.String("error", err.Error()))
		return task.Task{}, fmt.Errorf("failed to load task %s: %w", id, MapError(err))
	}

	u.Apply(&t)
	if strings.TrimSpace(t.Name) == "" {
		return task.Task{}, fmt.Errorf("%w: task name is required", store.ErrInvalidEntity)
	}
	t.UpdatedAt = s.clock.Now().UTC()

	tags, metadata, err := encodeColumns(t)
	if err != nil {
		return task.Task{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET name = $2, description = $3, tags = $4::jsonb, metadata = $5::jsonb, updated_at = $6
		WHERE id = $1
	`, t.ID, t.Name, t.Description, tags, metadata, t.UpdatedAt)
	if err != nil {
		log.Error("failed to update task",
			slog.String("task_id", id.String()),
			slog.String("error", err.Error()))
		return task.Task{}, fmt.Errorf("%w: task %s: %v", store.ErrUpdateFailed, id, MapError(err))
	}
	if err := CheckRowsAffected(result, "task"); err != nil {
		if IsNotFoundError(err) {
			return task.Task{}, fmt.Errorf("%w: %s", store.ErrTaskNotFound, id)
		}
		return task.Task{}, err
	}

	log.Debug("task updated", slog.String("task_id", id.String()))
	return t, nil
}

// DeleteTask removes the task with the given id.
func (s *TaskStore) DeleteTask(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("task_id", id.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: task %s: %v", store.ErrDeleteFailed, id, MapError(err))
	}
	if err := CheckRowsAffected(result, "task"); err != nil {
		if IsNotFoundError(err) {
			return fmt.Errorf("%w: %s", store.ErrTaskNotFound, id)
		}
		return err
	}

	log.Debug("task deleted", slog.String("task_id", id.String()))
	return nil
}

func filterClause(f task.Filter) (string, []any, error) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if len(f.Tags) > 0 {
		tags, err := store.EncodeJSON(f.Tags, "[]")
		if err != nil {
			return "", nil, err
		}
		add("tags @> $%d::jsonb", tags)
	}
	if f.Name != "" {
		add("name = $%d", f.Name)
	}
	if f.RoomID != nil {
		add("room_id = $%d", *f.RoomID)
	}
	if f.EntityID != nil {
		add("entity_id = $%d", *f.EntityID)
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (task.Task, error) {
	var (
		t                         task.Task
		tags, metadata            []byte
		roomID, worldID, entityID uuid.NullUUID
	)
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&tags,
		&metadata,
		&roomID,
		&worldID,
		&entityID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return task.Task{}, err
	}

	t.Tags = []string{}
	if err := store.DecodeJSON(tags, &t.Tags); err != nil {
		return task.Task{}, fmt.Errorf("task %s tags: %w", t.ID, err)
	}
	if err := store.DecodeJSON(metadata, &t.Metadata); err != nil {
		return task.Task{}, fmt.Errorf("task %s metadata: %w", t.ID, err)
	}
	t.RoomID = fromNullID(roomID)
	t.WorldID = fromNullID(worldID)
	t.EntityID = fromNullID(entityID)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

func encodeColumns(t task.Task) (tags, metadata string, err error) {
	if tags, err = store.EncodeJSON(t.Tags, "[]"); err != nil {
		return "", "", err
	}
	if metadata, err = store.EncodeJSON(t.Metadata, "{}"); err != nil {
		return "", "", err
	}
	return tags, metadata, nil
}

func nullID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func fromNullID(id uuid.NullUUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	v := id.UUID
	return &v
}
