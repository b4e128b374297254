// Package app wires configuration, storage, sessions and sign-in into the
// pieces the dashboard and the CLI subcommands share.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"twinflow/internal/auth"
	"twinflow/internal/config"
	"twinflow/internal/session"
	"twinflow/internal/storage"
	"twinflow/internal/task"
	"twinflow/internal/urgency"
)

type Options struct {
	ConfigPath string
	Debug      bool
	// LogToFile sends logs to the configured log file. Otherwise warnings go to stderr.
	LogToFile bool
	Clock     urgency.Clock
}

type App struct {
	Config   config.Config
	Store    *storage.Store
	Tasks    *task.Store
	Sessions *session.Manager
	Auth     *auth.Service
	Clock    urgency.Clock

	logFile io.Closer
}

// Open loads the config, sets up logging and opens the database. The in-memory
// task store is seeded from the saved tasks.
func Open(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.LoadOrCreate(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	a := &App{Config: cfg, Clock: opts.Clock}
	if a.Clock == nil {
		a.Clock = urgency.SystemClock{}
	}
	if err := a.setupLogging(opts); err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.Store = store

	saved, err := store.FetchTasks(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("fetch tasks: %w", err)
	}
	a.Tasks, err = task.NewStore(saved...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	timeout, _ := cfg.AuthTimeout()
	a.Auth = auth.NewService(auth.NewAccounts(store), newOAuth(cfg.Auth), timeout)
	a.Sessions = session.NewManager(store, storage.ErrFlagNotFound)

	slog.Debug("opened", "config", opts.ConfigPath, "db", cfg.DBPath, "tasks", len(saved))
	return a, nil
}

func newOAuth(c config.Auth) *auth.OAuth {
	clients := map[auth.Provider]auth.OAuthClient{}
	if c.GoogleClientID != "" {
		clients[auth.ProviderGoogle] = auth.GoogleClient(c.GoogleClientID, c.GoogleClientSecret)
	}
	if c.MicrosoftClientID != "" {
		clients[auth.ProviderMicrosoft] = auth.MicrosoftClient(c.MicrosoftClientID, c.MicrosoftClientSecret, c.MicrosoftTenant)
	}
	return auth.NewOAuth(c.CallbackAddr, clients)
}

func (a *App) setupLogging(opts Options) error {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	if !opts.LogToFile || a.Config.LogFile == "" {
		if !opts.Debug {
			level = slog.LevelWarn
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(a.Config.LogFile), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(a.Config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	a.logFile = f
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})))
	return nil
}

func (a *App) Close() error {
	var errs []error
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
	}
	return errors.Join(errs...)
}

// ProjectDue returns the header due date. A non-empty override (YYYY-MM-DD)
// wins over project_due in the config.
func (a *App) ProjectDue(override string) (time.Time, error) {
	if override != "" {
		d, err := task.ParseDate(override)
		if err != nil {
			return time.Time{}, fmt.Errorf("due %q: %w", override, err)
		}
		return d, nil
	}
	return a.Config.Due()
}

// AddTask creates a task from d and writes it through to the database.
func (a *App) AddTask(ctx context.Context, d task.Draft) (task.Task, error) {
	t, err := task.New(d, a.Clock.Now())
	if err != nil {
		return task.Task{}, err
	}
	if err := a.Tasks.Add(t); err != nil {
		return task.Task{}, err
	}
	if err := a.Store.SaveTask(ctx, t); err != nil {
		return task.Task{}, fmt.Errorf("save task: %w", err)
	}
	slog.Info("task added", "id", t.ID, "title", t.Title)
	return t, nil
}

// Toggle flips completion of the task with the given id, or of the only task
// whose id starts with it.
func (a *App) Toggle(ctx context.Context, id string) (task.Task, error) {
	full, err := a.resolveID(id)
	if err != nil {
		return task.Task{}, err
	}
	t, err := a.Tasks.ToggleCompletion(full)
	if err != nil {
		return task.Task{}, err
	}
	if err := a.Store.SaveTask(ctx, t); err != nil {
		return task.Task{}, fmt.Errorf("save task: %w", err)
	}
	slog.Info("task toggled", "id", t.ID, "status", t.Status)
	return t, nil
}

func (a *App) resolveID(prefix string) (string, error) {
	if _, err := a.Tasks.Get(prefix); err == nil {
		return prefix, nil
	}
	var match string
	for _, t := range a.Tasks.List() {
		if prefix != "" && strings.HasPrefix(t.ID, prefix) {
			if match != "" {
				return "", fmt.Errorf("id prefix %q is ambiguous", prefix)
			}
			match = t.ID
		}
	}
	if match == "" {
		return "", &task.NotFoundError{ID: prefix}
	}
	return match, nil
}
