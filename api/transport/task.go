package transport

import "github.com/fastygo/taskhub/domain"

// TaskView is a task as seen by one user.
type TaskView struct {
	domain.Task
	IsSubscribed bool `json:"is_subscribed"`
}

func NewTaskView(task domain.Task, userID string) TaskView {
	view := TaskView{Task: task}
	for _, subscriber := range task.Subscribers {
		if subscriber.UserID == userID {
			view.IsSubscribed = true
			break
		}
	}
	return view
}

func NewTaskViews(tasks []domain.Task, userID string) []TaskView {
	views := make([]TaskView, len(tasks))
	for i, task := range tasks {
		views[i] = NewTaskView(task, userID)
	}
	return views
}
