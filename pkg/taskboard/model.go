package taskboard

import (
	"fmt"
	"time"

	"github.com/openkcm/taskboard-client/internal/serviceerr"
)

type TaskState string

const (
	StateNotStarted             TaskState = "NOT STARTED"
	StateInProgress             TaskState = "IN PROGRESS"
	StateSubmittedForValidation TaskState = "SUBMITTED FOR VALIDATION"
	StateCompleted              TaskState = "COMPLETED"
)

var TaskStates = []TaskState{
	StateNotStarted,
	StateInProgress,
	StateSubmittedForValidation,
	StateCompleted,
}

func (s TaskState) Valid() bool {
	for _, known := range TaskStates {
		if s == known {
			return true
		}
	}

	return false
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func (p Priority) Valid() bool {
	for _, known := range Priorities {
		if p == known {
			return true
		}
	}

	return false
}

type Role string

const (
	RoleMember  Role = "member"
	RoleManager Role = "manager"
)

type Member struct {
	ID        string `json:"_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
}

type Project struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Members     []Member  `json:"members"`
	CreatedAt   time.Time `json:"created_at"`
}

type NewProject struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type ProjectRef struct {
	ID    string `json:"_id"`
	Title string `json:"project_title"`
}

type UserRef struct {
	ID        string `json:"_id"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
}

type Task struct {
	ID          string     `json:"_id"`
	Project     ProjectRef `json:"project"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AssignedTo  *UserRef   `json:"assigned_to"`
	State       TaskState  `json:"state"`
	Priority    Priority   `json:"priority"`
	Deadline    time.Time  `json:"deadline"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type NewTask struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	Deadline    *time.Time `json:"deadline,omitempty"`
}

func (t NewTask) Validate() error {
	if t.Title == "" {
		return invalid("title is required")
	}
	if !t.Priority.Valid() {
		return invalid(fmt.Sprintf("unknown priority %q", t.Priority))
	}

	return nil
}

const minTitleLength = 3

// TaskPatch changes the set fields of a task. Nil fields are left as is.
type TaskPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	State       *TaskState `json:"state,omitempty"`
	AssignedTo  *UserRef   `json:"assigned_to,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
}

func (p TaskPatch) Validate() error {
	if p == (TaskPatch{}) {
		return invalid("nothing to update")
	}
	if p.Title != nil && len([]rune(*p.Title)) < minTitleLength {
		return invalid(fmt.Sprintf("title must be at least %d characters", minTitleLength))
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return invalid(fmt.Sprintf("unknown priority %q", *p.Priority))
	}
	if p.State != nil && !p.State.Valid() {
		return invalid(fmt.Sprintf("unknown state %q", *p.State))
	}
	if p.AssignedTo != nil && p.AssignedTo.ID == "" {
		return invalid("assignee id is required")
	}

	return nil
}

type User struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type Productivity struct {
	FirstName      string `json:"first_name"`
	TasksCompleted int    `json:"tasks_completed"`
}

type StatePriority struct {
	State    TaskState `json:"state"`
	Priority Priority  `json:"priority"`
}

type StatePriorityCount struct {
	Key   StatePriority `json:"_id"`
	Count int           `json:"number_task"`
}

type StateShare struct {
	State      TaskState `json:"state"`
	Count      int       `json:"nb_of_tasks"`
	Percentage float64   `json:"percentage"`
}

type DeadlineTask struct {
	Title    string    `json:"title"`
	Deadline time.Time `json:"deadline"`
}

// ProjectStats bundles the analytics of one project.
type ProjectStats struct {
	TotalTasks        int                  `json:"total_tasks"`
	Productivity      []Productivity       `json:"productivity"`
	StatePriority     []StatePriorityCount `json:"state_priority"`
	StateDistribution []StateShare         `json:"state_distribution"`
	NearingDeadlines  []DeadlineTask       `json:"nearing_deadlines"`
}

func invalid(description string) error {
	return &serviceerr.Error{Err: serviceerr.CodeInvalidRequest, Description: description}
}
