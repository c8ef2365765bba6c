package taskboard

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

func (c *Client) ListTasks(ctx context.Context, projectID string) ([]Task, error) {
	endpoint, err := c.projectURL(projectID, nil, "tasks")
	if err != nil {
		return nil, err
	}

	var tasks []Task
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &tasks); err != nil {
		return nil, err
	}

	return tasks, nil
}

// CreateTask adds a task to the project and returns its id.
func (c *Client) CreateTask(ctx context.Context, projectID string, t NewTask) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}

	endpoint, err := c.projectURL(projectID, nil, "tasks")
	if err != nil {
		return "", err
	}

	var created createdResponse
	if err := c.do(ctx, http.MethodPost, endpoint, t, &created); err != nil {
		return "", err
	}

	return created.ID, nil
}

func (c *Client) GetTask(ctx context.Context, projectID, taskID string) (Task, error) {
	endpoint, err := c.taskURL(projectID, taskID)
	if err != nil {
		return Task{}, err
	}

	var task Task
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &task); err != nil {
		return Task{}, err
	}

	return task, nil
}

// UpdateTask validates the patch locally and returns the updated task.
func (c *Client) UpdateTask(ctx context.Context, projectID, taskID string, patch TaskPatch) (Task, error) {
	if err := patch.Validate(); err != nil {
		return Task{}, err
	}

	endpoint, err := c.taskURL(projectID, taskID)
	if err != nil {
		return Task{}, err
	}

	var task Task
	if err := c.do(ctx, http.MethodPatch, endpoint, patch, &task); err != nil {
		return Task{}, err
	}

	return task, nil
}

// TransitionTask moves a task to another state. Assignees may only change
// the state, which is what this sends.
func (c *Client) TransitionTask(ctx context.Context, projectID, taskID string, state TaskState) (Task, error) {
	if !state.Valid() {
		return Task{}, invalid(fmt.Sprintf("unknown state %q", state))
	}

	return c.UpdateTask(ctx, projectID, taskID, TaskPatch{State: &state})
}

func (c *Client) DeleteTask(ctx context.Context, projectID, taskID string) error {
	endpoint, err := c.taskURL(projectID, taskID)
	if err != nil {
		return err
	}

	return c.do(ctx, http.MethodDelete, endpoint, nil, nil)
}

func (c *Client) taskURL(projectID, taskID string) (string, error) {
	id, err := segment("task_id", taskID)
	if err != nil {
		return "", err
	}

	return c.projectURL(projectID, nil, "tasks", id)
}

func (c *Client) Me(ctx context.Context) (User, error) {
	endpoint, err := c.url(nil, "users", "me")
	if err != nil {
		return User{}, err
	}

	var user User
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &user); err != nil {
		return User{}, err
	}

	return user, nil
}

// MyTaskCount counts the tasks assigned to the caller in the given state.
func (c *Client) MyTaskCount(ctx context.Context, state TaskState) (int, error) {
	if !state.Valid() {
		return 0, invalid(fmt.Sprintf("unknown state %q", state))
	}

	endpoint, err := c.url(url.Values{"state": {string(state)}}, "users", "me", "task-count")
	if err != nil {
		return 0, err
	}

	var out []struct {
		Count int `json:"nb_of_tasks"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return 0, err
	}

	if len(out) == 0 {
		return 0, nil
	}

	return out[0].Count, nil
}
