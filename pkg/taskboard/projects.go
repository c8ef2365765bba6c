package taskboard

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

const (
	DefaultProductivityLimit = 3
	DefaultDeadlineWindow    = 5
)

func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	endpoint, err := c.url(nil, "projects")
	if err != nil {
		return nil, err
	}

	var projects []Project
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &projects); err != nil {
		return nil, err
	}

	return projects, nil
}

// CreateProject creates a project managed by the caller and returns its id.
func (c *Client) CreateProject(ctx context.Context, p NewProject) (string, error) {
	if p.Title == "" {
		return "", invalid("title is required")
	}

	endpoint, err := c.url(nil, "projects")
	if err != nil {
		return "", err
	}

	var created createdResponse
	if err := c.do(ctx, http.MethodPost, endpoint, p, &created); err != nil {
		return "", err
	}

	return created.ID, nil
}

func (c *Client) GetProject(ctx context.Context, projectID string) (Project, error) {
	endpoint, err := c.projectURL(projectID, nil)
	if err != nil {
		return Project{}, err
	}

	var project Project
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &project); err != nil {
		return Project{}, err
	}

	return project, nil
}

func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	endpoint, err := c.projectURL(projectID, nil)
	if err != nil {
		return err
	}

	return c.do(ctx, http.MethodDelete, endpoint, nil, nil)
}

func (c *Client) AddMember(ctx context.Context, projectID, email string) (Project, error) {
	return c.membership(ctx, http.MethodPost, projectID, "members", email)
}

func (c *Client) RemoveMember(ctx context.Context, projectID, email string) (Project, error) {
	return c.membership(ctx, http.MethodDelete, projectID, "members", email)
}

func (c *Client) PromoteManager(ctx context.Context, projectID, email string) (Project, error) {
	return c.membership(ctx, http.MethodPost, projectID, "managers", email)
}

func (c *Client) DemoteManager(ctx context.Context, projectID, email string) (Project, error) {
	return c.membership(ctx, http.MethodDelete, projectID, "managers", email)
}

func (c *Client) membership(ctx context.Context, method, projectID, collection, email string) (Project, error) {
	emailSegment, err := segment("user_email", email)
	if err != nil {
		return Project{}, err
	}

	endpoint, err := c.projectURL(projectID, nil, collection, emailSegment)
	if err != nil {
		return Project{}, err
	}

	var body any
	if method == http.MethodPost {
		body = struct{}{}
	}

	var project Project
	if err := c.do(ctx, method, endpoint, body, &project); err != nil {
		return Project{}, err
	}

	return project, nil
}

// UserProductivity returns the members with the most completed tasks.
func (c *Client) UserProductivity(ctx context.Context, projectID string, limit int) ([]Productivity, error) {
	if limit <= 0 {
		limit = DefaultProductivityLimit
	}

	var out []Productivity
	err := c.projectGet(ctx, projectID, url.Values{"limit": {strconv.Itoa(limit)}}, &out, "tasks-productivity")

	return out, err
}

func (c *Client) TotalTasks(ctx context.Context, projectID string) (int, error) {
	var out []struct {
		TotalTasks int `json:"total_tasks"`
	}
	if err := c.projectGet(ctx, projectID, nil, &out, "total-tasks"); err != nil {
		return 0, err
	}

	if len(out) == 0 {
		return 0, nil
	}

	return out[0].TotalTasks, nil
}

func (c *Client) StatePriorityBreakdown(ctx context.Context, projectID string) ([]StatePriorityCount, error) {
	var out []StatePriorityCount
	err := c.projectGet(ctx, projectID, nil, &out, "tasks-state-priority-breakdown")

	return out, err
}

func (c *Client) StateDistribution(ctx context.Context, projectID string) ([]StateShare, error) {
	var out []StateShare
	err := c.projectGet(ctx, projectID, nil, &out, "tasks-state-distribution")

	return out, err
}

// TasksNearingDeadlines returns the open tasks due within the next inXDays days.
func (c *Client) TasksNearingDeadlines(ctx context.Context, projectID string, inXDays int) ([]DeadlineTask, error) {
	if inXDays <= 0 {
		inXDays = DefaultDeadlineWindow
	}

	var out []DeadlineTask
	err := c.projectGet(ctx, projectID, url.Values{"inXDays": {strconv.Itoa(inXDays)}}, &out, "tasks-nearing-deadlines")

	return out, err
}

// Stats fetches every analytics endpoint of a project.
func (c *Client) Stats(ctx context.Context, projectID string) (ProjectStats, error) {
	var (
		stats ProjectStats
		err   error
	)

	if stats.TotalTasks, err = c.TotalTasks(ctx, projectID); err != nil {
		return ProjectStats{}, err
	}
	if stats.Productivity, err = c.UserProductivity(ctx, projectID, DefaultProductivityLimit); err != nil {
		return ProjectStats{}, err
	}
	if stats.StatePriority, err = c.StatePriorityBreakdown(ctx, projectID); err != nil {
		return ProjectStats{}, err
	}
	if stats.StateDistribution, err = c.StateDistribution(ctx, projectID); err != nil {
		return ProjectStats{}, err
	}
	if stats.NearingDeadlines, err = c.TasksNearingDeadlines(ctx, projectID, DefaultDeadlineWindow); err != nil {
		return ProjectStats{}, err
	}

	return stats, nil
}

func (c *Client) projectGet(ctx context.Context, projectID string, query url.Values, out any, elem ...string) error {
	endpoint, err := c.projectURL(projectID, query, elem...)
	if err != nil {
		return err
	}

	return c.do(ctx, http.MethodGet, endpoint, nil, out)
}

// projectURL builds projects/{id}/elem... Elements must already be encoded.
func (c *Client) projectURL(projectID string, query url.Values, elem ...string) (string, error) {
	id, err := segment("id", projectID)
	if err != nil {
		return "", err
	}

	return c.url(query, append([]string{"projects", id}, elem...)...)
}
