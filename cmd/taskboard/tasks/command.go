package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openkcm/taskboard-client/internal/business"
	"github.com/openkcm/taskboard-client/internal/cmdutils"
	"github.com/openkcm/taskboard-client/pkg/taskboard"
)

func Cmd(buildInfo string, out *cmdutils.Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage the tasks of a project",
	}

	cmd.AddCommand(
		listCmd(buildInfo, out),
		createCmd(buildInfo, out),
		getCmd(buildInfo, out),
		updateCmd(buildInfo, out),
		deleteCmd(buildInfo),
		transitionCmd(buildInfo, out),
	)

	return cmd
}

func command(use, short, buildInfo string, fn func(context.Context, *business.App) error) *cobra.Command {
	return cmdutils.CobraCommand(use, short, short+".", buildInfo, cmdutils.RunAsJob, business.WithApp(fn))
}

type taskRef struct {
	project string
	task    string
}

func (r *taskRef) bind(cmd *cobra.Command, withTask bool) {
	cmd.Flags().StringVar(&r.project, "project", "", "project id")
	_ = cmd.MarkFlagRequired("project")

	if withTask {
		cmd.Flags().StringVar(&r.task, "id", "", "task id")
		_ = cmd.MarkFlagRequired("id")
	}
}

func listCmd(buildInfo string, out *cmdutils.Output) *cobra.Command {
	var ref taskRef

	cmd := command("list", "List the tasks of a project", buildInfo, func(ctx context.Context, app *business.App) error {
		tasks, err := app.Client.ListTasks(ctx, ref.project)
		if err != nil {
			return err
		}

		return out.Print(tasks)
	})

	ref.bind(cmd, false)

	return cmd
}

func createCmd(buildInfo string, out *cmdutils.Output) *cobra.Command {
	var (
		ref      taskRef
		task     taskboard.NewTask
		priority string
		deadline string
	)

	cmd := command("create", "Create a task", buildInfo, func(ctx context.Context, app *business.App) error {
		task.Priority = taskboard.Priority(priority)
		if deadline != "" {
			d, err := parseDeadline(deadline)
			if err != nil {
				return err
			}
			task.Deadline = &d
		}

		id, err := app.Client.CreateTask(ctx, ref.project, task)
		if err != nil {
			return err
		}

		return out.Print(map[string]string{"id": id})
	})

	ref.bind(cmd, false)
	cmd.Flags().StringVar(&task.Title, "title", "", "task title")
	cmd.Flags().StringVar(&task.Description, "description", "", "task description")
	cmd.Flags().StringVar(&priority, "priority", string(taskboard.PriorityMedium), "LOW, MEDIUM or HIGH")
	cmd.Flags().StringVar(&deadline, "deadline", "", "deadline as RFC 3339 timestamp or YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func getCmd(buildInfo string, out *cmdutils.Output) *cobra.Command {
	var ref taskRef

	cmd := command("get", "Show a task", buildInfo, func(ctx context.Context, app *business.App) error {
		task, err := app.Client.GetTask(ctx, ref.project, ref.task)
		if err != nil {
			return err
		}

		return out.Print(task)
	})

	ref.bind(cmd, true)

	return cmd
}

func updateCmd(buildInfo string, out *cmdutils.Output) *cobra.Command {
	var (
		ref                                 taskRef
		title, description, priority, state string
		assignee, deadline                  string
	)

	var cmd *cobra.Command
	cmd = command("update", "Update the given fields of a task", buildInfo, func(ctx context.Context, app *business.App) error {
		patch, err := buildPatch(cmd, title, description, priority, state, assignee, deadline)
		if err != nil {
			return err
		}

		task, err := app.Client.UpdateTask(ctx, ref.project, ref.task, patch)
		if err != nil {
			return err
		}

		return out.Print(task)
	})

	ref.bind(cmd, true)
	cmd.Flags().StringVar(&title, "title", "", "new title, at least 3 characters")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&priority, "priority", "", "LOW, MEDIUM or HIGH")
	cmd.Flags().StringVar(&state, "state", "", "NOT STARTED, IN PROGRESS, SUBMITTED FOR VALIDATION or COMPLETED")
	cmd.Flags().StringVar(&assignee, "assignee", "", "id of the member to assign")
	cmd.Flags().StringVar(&deadline, "deadline", "", "deadline as RFC 3339 timestamp or YYYY-MM-DD")

	return cmd
}

// buildPatch sets only the fields whose flags were given.
func buildPatch(cmd *cobra.Command, title, description, priority, state, assignee, deadline string) (taskboard.TaskPatch, error) {
	var patch taskboard.TaskPatch
	flags := cmd.Flags()

	if flags.Changed("title") {
		patch.Title = &title
	}
	if flags.Changed("description") {
		patch.Description = &description
	}
	if flags.Changed("priority") {
		p := taskboard.Priority(priority)
		patch.Priority = &p
	}
	if flags.Changed("state") {
		s := taskboard.TaskState(state)
		patch.State = &s
	}
	if flags.Changed("assignee") {
		patch.AssignedTo = &taskboard.UserRef{ID: assignee}
	}
	if flags.Changed("deadline") {
		d, err := parseDeadline(deadline)
		if err != nil {
			return taskboard.TaskPatch{}, err
		}
		patch.Deadline = &d
	}

	return patch, nil
}

func deleteCmd(buildInfo string) *cobra.Command {
	var ref taskRef

	cmd := command("delete", "Delete a task", buildInfo, func(ctx context.Context, app *business.App) error {
		return app.Client.DeleteTask(ctx, ref.project, ref.task)
	})

	ref.bind(cmd, true)

	return cmd
}

func transitionCmd(buildInfo string, out *cmdutils.Output) *cobra.Command {
	var (
		ref   taskRef
		state string
	)

	cmd := command("transition", "Move a task to another state", buildInfo, func(ctx context.Context, app *business.App) error {
		task, err := app.Client.TransitionTask(ctx, ref.project, ref.task, taskboard.TaskState(state))
		if err != nil {
			return err
		}

		return out.Print(task)
	})

	ref.bind(cmd, true)
	cmd.Flags().StringVar(&state, "state", "", "NOT STARTED, IN PROGRESS, SUBMITTED FOR VALIDATION or COMPLETED")
	_ = cmd.MarkFlagRequired("state")

	return cmd
}

func parseDeadline(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing deadline %q: %w", value, err)
	}

	return t, nil
}
