package entity

import (
	"time"

	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/query"
	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/record"
)

// Task is the canonical task entry. Deadline and Parent are optional.
type Task struct {
	ID          string
	Title       string
	Description string
	Status      string
	Priority    string
	Assignee    string
	Parent      string
	Deadline    *time.Time
}

type taskPayload struct {
	ID           text `json:"id"`
	TaskID       text `json:"taskId"`
	Title        text `json:"title"`
	Name         text `json:"name"`
	TaskName     text `json:"taskName"`
	Description  text `json:"description"`
	Status       text `json:"status"`
	Priority     text `json:"priority"`
	Assignee     text `json:"assignee"`
	AssigneeID   text `json:"assigneeId"`
	AssignedTo   text `json:"assignedTo"`
	Parent       text `json:"parent"`
	ParentID     text `json:"parentId"`
	ParentTaskID text `json:"parentTaskId"`
	Deadline     text `json:"deadline"`
	DueDate      text `json:"dueDate"`
}

func (p taskPayload) task() Task {
	t := Task{
		ID:          first(p.ID, p.TaskID),
		Title:       first(p.Title, p.Name, p.TaskName),
		Description: first(p.Description),
		Status:      record.NormalizeEnum(string(p.Status)),
		Priority:    record.NormalizeEnum(string(p.Priority)),
		Assignee:    first(p.Assignee, p.AssigneeID, p.AssignedTo),
		Parent:      first(p.Parent, p.ParentID, p.ParentTaskID),
	}

	if d, ok := parseDate(first(p.Deadline, p.DueDate)); ok {
		t.Deadline = &d
	}

	return t
}

// DecodeTasks parses a task list payload.
func DecodeTasks(body []byte) ([]Task, error) {
	payloads, err := decodeList[taskPayload](body)
	if err != nil {
		return nil, err
	}

	tasks := make([]Task, len(payloads))
	for i, p := range payloads {
		tasks[i] = p.task()
	}

	return tasks, nil
}

// ToRecord converts the task into a pipeline record.
func (t Task) ToRecord() record.Record {
	rec := record.New(t.ID)

	setText(&rec, "title", t.Title)
	setText(&rec, "description", t.Description)
	setEnum(&rec, "status", t.Status)
	setEnum(&rec, "priority", t.Priority)
	setText(&rec, "assignee", t.Assignee)
	setText(&rec, "parent", t.Parent)

	if t.Deadline != nil {
		rec.Set("deadline", record.Date(*t.Deadline))
	}

	return rec
}

// TaskSchema describes the task list. Default order is earliest deadline
// first; tasks without a deadline go last.
func TaskSchema() *query.Schema {
	return query.NewSchema(string(Tasks)).
		Field("title", record.KindString).
		Field("description", record.KindString).
		Field("status", record.KindEnum).
		Field("priority", record.KindEnum).
		Field("assignee", record.KindString).
		Field("parent", record.KindString).
		Field("deadline", record.KindDate).
		Search("title", "description").
		SortDefault(query.SortBy("deadline", query.Ascending))
}
