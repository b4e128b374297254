package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"twinflow/internal/app"
	"twinflow/internal/config"
	"twinflow/internal/task"
	"twinflow/internal/ui"
	"twinflow/internal/urgency"
	"twinflow/internal/view"
)

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "twinflow",
		Usage: "Team task dashboard for the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ResolveConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.StringFlag{
				Name:  "due",
				Usage: "Project due date shown in the header (YYYY-MM-DD)",
			},
		},
		Action: runDashboard,
		Commands: []*cli.Command{
			newTasksCommand(),
			newStatusCommand(),
			newAddCommand(),
			newToggleCommand(),
			newSignOutCommand(),
		},
	}
}

// openApp opens the shared state. The dashboard owns the terminal, so it logs to a file.
func openApp(ctx context.Context, cmd *cli.Command, logToFile bool) (*app.App, error) {
	return app.Open(ctx, app.Options{
		ConfigPath: cmd.String("config"),
		Debug:      cmd.Bool("debug"),
		LogToFile:  logToFile,
	})
}

func out(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func runDashboard(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	due, err := a.ProjectDue(cmd.String("due"))
	if err != nil {
		return err
	}
	sess, err := a.Sessions.Load(ctx)
	if err != nil {
		slog.Warn("could not restore session", "error", err)
	}
	return ui.Run(ctx, ui.Deps{
		Config:     a.Config,
		Tasks:      a.Tasks,
		Saver:      a.Store,
		Auth:       a.Auth,
		Sessions:   a.Sessions,
		Session:    sess,
		Clock:      a.Clock,
		ProjectDue: due,
	})
}

func newTasksCommand() *cli.Command {
	return &cli.Command{
		Name:  "tasks",
		Usage: "List tasks",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "all, pending, in-progress or completed"},
			&cli.StringFlag{Name: "search", Aliases: []string{"q"}, Usage: "Match title or description"},
		},
		Action: runTasksList,
	}
}

func runTasksList(ctx context.Context, cmd *cli.Command) error {
	filter, err := view.ParseStatusFilter(cmd.String("status"))
	if err != nil {
		return err
	}
	a, err := openApp(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	list := view.Filter(a.Tasks.List(), view.Query{Status: filter, Search: cmd.String("search")})
	w := out(cmd)
	if len(list) == 0 {
		fmt.Fprintln(w, "No tasks found.")
		return nil
	}

	now := a.Clock.Now()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tDUE\tASSIGNEE\tTITLE")
	for _, t := range list {
		due := "-"
		if !t.DueDate.IsZero() {
			due = fmt.Sprintf("%s (%s)", t.DueString(), urgency.At(t.DueDate, now).Label())
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID,
			t.Status.Label(),
			t.Priority,
			due,
			t.Assignee,
			t.Title,
		)
	}
	return tw.Flush()
}

func newStatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show counts, badges and the project due date",
		Action: runStatus,
	}
}

func runStatus(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	due, err := a.ProjectDue(cmd.String("due"))
	if err != nil {
		return err
	}
	sess, err := a.Sessions.Load(ctx)
	if err != nil {
		return err
	}

	w := out(cmd)
	if sess.SignedIn() {
		fmt.Fprintf(w, "Signed in:  %s <%s> via %s\n", sess.Identity.Name, sess.Identity.Email, sess.Provider.Label())
	} else {
		fmt.Fprintln(w, "Signed in:  no")
	}

	m := view.Build(a.Tasks.List(), view.Query{}, a.Clock.Now())
	parts := make([]string, 0, len(view.Filters()))
	for _, f := range view.Filters() {
		parts = append(parts, fmt.Sprintf("%s %d", f.Label(), m.Counts.For(f)))
	}
	fmt.Fprintf(w, "Tasks:      %s\n", strings.Join(parts, " • "))

	parts = parts[:0]
	for _, p := range task.Priorities() {
		parts = append(parts, fmt.Sprintf("%s %d", p, m.Badges.ByPriority[p]))
	}
	fmt.Fprintf(w, "Open:       %s • urgent %d • overdue %d\n", strings.Join(parts, " • "), m.Badges.Urgent, m.Badges.Overdue)

	if !due.IsZero() {
		sig := urgency.Evaluate(due, a.Clock)
		flag := ""
		if sig.Urgent {
			flag = " (urgent)"
		}
		fmt.Fprintf(w, "Project:    %s, %s%s\n", due.Format("2006-01-02"), sig.Label(), flag)
	}
	return nil
}

func newAddCommand() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Add a task",
		ArgsUsage: "<title>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "priority", Aliases: []string{"p"}, Usage: "low, medium or high"},
			&cli.StringFlag{Name: "status", Usage: "pending or in-progress"},
			&cli.StringFlag{Name: "assignee", Aliases: []string{"a"}},
			&cli.StringFlag{Name: "due-date", Aliases: []string{"d"}, Usage: "Due date (YYYY-MM-DD), default today"},
			&cli.StringFlag{Name: "description", Aliases: []string{"m"}},
		},
		Action: runAdd,
	}
}

func runAdd(ctx context.Context, cmd *cli.Command) error {
	title := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("usage: twinflow add <title>")
	}
	d := task.Draft{
		Title:       title,
		Description: cmd.String("description"),
		Priority:    task.Priority(cmd.String("priority")),
		Status:      task.Status(cmd.String("status")),
		Assignee:    cmd.String("assignee"),
	}
	if v := cmd.String("due-date"); v != "" {
		due, err := task.ParseDate(v)
		if err != nil {
			return fmt.Errorf("due %q: %w", v, err)
		}
		d.DueDate = due
	}

	a, err := openApp(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.AddTask(ctx, d)
	if err != nil {
		return err
	}
	fmt.Fprintf(out(cmd), "Added %s %q\n", t.ID, t.Title)
	return nil
}

func newToggleCommand() *cli.Command {
	return &cli.Command{
		Name:      "toggle",
		Usage:     "Toggle a task between completed and pending",
		ArgsUsage: "<task_id>",
		Action:    runToggle,
	}
}

func runToggle(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("usage: twinflow toggle <task_id>")
	}
	a, err := openApp(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.Toggle(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(out(cmd), "%q is now %s\n", t.Title, t.Status.Label())
	return nil
}

func newSignOutCommand() *cli.Command {
	return &cli.Command{
		Name:  "signout",
		Usage: "Forget the signed-in user",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := openApp(ctx, cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.Sessions.Clear(ctx); err != nil {
				return err
			}
			fmt.Fprintln(out(cmd), "Signed out.")
			return nil
		},
	}
}
