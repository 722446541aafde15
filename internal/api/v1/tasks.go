package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/flowboard/internal/domain"
	"github.com/gosuda/flowboard/internal/engine"
)

// UnlockedTaskBody reports a task whose dependency lock was released by
// the mutation, with any members auto-assigned in the process.
type UnlockedTaskBody struct {
	Task     *domain.Task `json:"task"`
	Assigned []uuid.UUID  `json:"assigned,omitempty"`
}

// ProgressionBody reports what the workflow evaluation did to the card.
type ProgressionBody struct {
	Advanced  bool `json:"advanced"`
	FromStage int  `json:"from_stage,omitempty"`
	ToStage   int  `json:"to_stage,omitempty"`
	Completed bool `json:"completed"`
}

// TaskMutationBody is the common response for task-affecting mutations:
// the updated card plus the side effects the client needs to render.
type TaskMutationBody struct {
	Card        *domain.Card       `json:"card"`
	Task        *domain.Task       `json:"task,omitempty"`
	Unlocked    []UnlockedTaskBody `json:"unlocked,omitempty"`
	Progression ProgressionBody    `json:"progression"`
}

func taskMutationBody(res *engine.TaskMutationResult) *TaskMutationBody {
	body := &TaskMutationBody{
		Card: res.Card,
		Task: res.Task,
		Progression: ProgressionBody{
			Advanced:  res.Progression.Advanced,
			FromStage: res.Progression.FromStage,
			ToStage:   res.Progression.ToStage,
			Completed: res.Progression.Completed,
		},
	}
	for _, u := range res.Unlocked {
		body.Unlocked = append(body.Unlocked, UnlockedTaskBody{Task: u.Task, Assigned: u.Assigned})
	}
	return body
}

type CreateTaskInput struct {
	CardID uuid.UUID `path:"cardID" doc:"Card ID"`
	Body   struct {
		Title              string      `json:"title" minLength:"1" maxLength:"500" doc:"Task title"`
		DueDate            *time.Time  `json:"due_date,omitempty" doc:"Due date"`
		Position           *int        `json:"position,omitempty" minimum:"1" doc:"Insert position (1-based, defaults to end)"`
		AssignedTo         []uuid.UUID `json:"assigned_to,omitempty" doc:"Assigned user IDs"`
		DependsOn          *uuid.UUID  `json:"depends_on,omitempty" doc:"Predecessor task ID on the same card"`
		AutoAssignOnUnlock bool        `json:"auto_assign_on_unlock,omitempty" doc:"Assign users automatically when the task unlocks"`
		AssignToOnUnlock   []uuid.UUID `json:"assign_to_on_unlock,omitempty" doc:"Users to auto-assign on unlock"`
	}
}

type TaskMutationOutput struct {
	Body *TaskMutationBody
}

type UpdateTaskInput struct {
	CardID uuid.UUID `path:"cardID" doc:"Card ID"`
	TaskID uuid.UUID `path:"taskID" doc:"Task ID"`
	Body   struct {
		Title              *string      `json:"title,omitempty" maxLength:"500" doc:"Task title"`
		DueDate            *time.Time   `json:"due_date,omitempty" doc:"Due date"`
		AssignedTo         *[]uuid.UUID `json:"assigned_to,omitempty" doc:"Users to add to the assignee set"`
		DependsOn          *uuid.UUID   `json:"depends_on,omitempty" doc:"Predecessor task ID; null clears the dependency"`
		DependsOnSet       bool         `json:"depends_on_set,omitempty" doc:"Set to true to apply depends_on, including clearing it with null"`
		AutoAssignOnUnlock *bool        `json:"auto_assign_on_unlock,omitempty" doc:"Assign users automatically when the task unlocks"`
		AssignToOnUnlock   *[]uuid.UUID `json:"assign_to_on_unlock,omitempty" doc:"Users to auto-assign on unlock"`
		Completed          *bool        `json:"completed,omitempty" doc:"Target completion state"`
	}
}

type CompleteTaskInput struct {
	CardID uuid.UUID `path:"cardID" doc:"Card ID"`
	TaskID uuid.UUID `path:"taskID" doc:"Task ID"`
}

type DeleteTaskInput struct {
	CardID uuid.UUID `path:"cardID" doc:"Card ID"`
	TaskID uuid.UUID `path:"taskID" doc:"Task ID"`
}

type ReorderTaskInput struct {
	CardID uuid.UUID `path:"cardID" doc:"Card ID"`
	TaskID uuid.UUID `path:"taskID" doc:"Task ID"`
	Body   struct {
		Position int `json:"position" minimum:"1" doc:"Target position (1-based)"`
	}
}

type AddSubtaskInput struct {
	CardID uuid.UUID `path:"cardID" doc:"Card ID"`
	TaskID uuid.UUID `path:"taskID" doc:"Task ID"`
	Body   struct {
		Text     string `json:"text" minLength:"1" maxLength:"500" doc:"Subtask text"`
		Position *int   `json:"position,omitempty" minimum:"1" doc:"Insert position (1-based, defaults to end)"`
	}
}

type SubtaskOutput struct {
	Body *domain.Subtask
}

type UpdateSubtaskInput struct {
	CardID    uuid.UUID `path:"cardID" doc:"Card ID"`
	TaskID    uuid.UUID `path:"taskID" doc:"Task ID"`
	SubtaskID uuid.UUID `path:"subtaskID" doc:"Subtask ID"`
	Body      struct {
		Text      *string `json:"text,omitempty" maxLength:"500" doc:"Subtask text"`
		Completed *bool   `json:"completed,omitempty" doc:"Target completion state"`
	}
}

type DeleteSubtaskInput struct {
	CardID    uuid.UUID `path:"cardID" doc:"Card ID"`
	TaskID    uuid.UUID `path:"taskID" doc:"Task ID"`
	SubtaskID uuid.UUID `path:"subtaskID" doc:"Subtask ID"`
}

func RegisterTaskRoutes(api huma.API, eng Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "create-task",
		Method:      http.MethodPost,
		Path:        "/cards/{cardID}/tasks",
		Summary:     "Create a task on a card",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *CreateTaskInput) (*TaskMutationOutput, error) {
		actor, err := actorFromContext(ctx)
		if err != nil {
			return nil, err
		}

		res, err := eng.CreateTask(ctx, actor, input.CardID, engine.TaskSpec{
			Title:              input.Body.Title,
			DueDate:            input.Body.DueDate,
			Position:           input.Body.Position,
			AssignedTo:         input.Body.AssignedTo,
			DependsOn:          input.Body.DependsOn,
			AutoAssignOnUnlock: input.Body.AutoAssignOnUnlock,
			AssignToOnUnlock:   input.Body.AssignToOnUnlock,
		})
		if err != nil {
			return nil, mapEngineError(err, "failed to create task")
		}

		return &TaskMutationOutput{Body: taskMutationBody(res)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/cards/{cardID}/tasks/{taskID}",
		Summary:     "Update a task",
		Description: "Completing a task here releases dependent tasks and may advance the card to the next workflow stage.",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *UpdateTaskInput) (*TaskMutationOutput, error) {
		actor, err := actorFromContext(ctx)
		if err != nil {
			return nil, err
		}

		res, err := eng.UpdateTask(ctx, actor, input.CardID, input.TaskID, engine.TaskUpdate{
			Title:              input.Body.Title,
			DueDate:            input.Body.DueDate,
			AssignedTo:         input.Body.AssignedTo,
			DependsOn:          input.Body.DependsOn,
			DependsOnSet:       input.Body.DependsOnSet,
			AutoAssignOnUnlock: input.Body.AutoAssignOnUnlock,
			AssignToOnUnlock:   input.Body.AssignToOnUnlock,
			Completed:          input.Body.Completed,
		})
		if err != nil {
			return nil, mapEngineError(err, "failed to update task")
		}

		return &TaskMutationOutput{Body: taskMutationBody(res)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-task",
		Method:      http.MethodPost,
		Path:        "/cards/{cardID}/tasks/{taskID}/complete",
		Summary:     "Complete a task",
		Description: "Fails with 403 when the task is still locked by an incomplete predecessor.",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *CompleteTaskInput) (*TaskMutationOutput, error) {
		actor, err := actorFromContext(ctx)
		if err != nil {
			return nil, err
		}

		completed := true
		res, err := eng.UpdateTask(ctx, actor, input.CardID, input.TaskID, engine.TaskUpdate{Completed: &completed})
		if err != nil {
			return nil, mapEngineError(err, "failed to complete task")
		}

		return &TaskMutationOutput{Body: taskMutationBody(res)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/cards/{cardID}/tasks/{taskID}",
		Summary:     "Delete a task",
		Description: "Tasks depending on the deleted task are detached and unlocked.",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *DeleteTaskInput) (*struct{}, error) {
		actor, err := actorFromContext(ctx)
		if err != nil {
			return nil, err
		}

		if err := eng.DeleteTask(ctx, actor, input.CardID, input.TaskID); err != nil {
			return nil, mapEngineError(err, "failed to delete task")
		}

		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reorder-task",
		Method:      http.MethodPatch,
		Path:        "/cards/{cardID}/tasks/{taskID}/position",
		Summary:     "Move a task to a new position within its card",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *ReorderTaskInput) (*TaskMutationOutput, error) {
		actor, err := actorFromContext(ctx)
		if err != nil {
			return nil, err
		}

		res, err := eng.ReorderTask(ctx, actor, input.CardID, input.TaskID, input.Body.Position)
		if err != nil {
			return nil, mapEngineError(err, "failed to reorder task")
		}

		return &TaskMutationOutput{Body: taskMutationBody(res)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-subtask",
		Method:      http.MethodPost,
		Path:        "/cards/{cardID}/tasks/{taskID}/subtasks",
		Summary:     "Add a subtask to a task",
		Tags:        []string{"Subtasks"},
	}, func(ctx context.Context, input *AddSubtaskInput) (*SubtaskOutput, error) {
		actor, err := actorFromContext(ctx)
		if err != nil {
			return nil, err
		}

		sub, err := eng.AddSubtask(ctx, actor, input.CardID, input.TaskID, input.Body.Text, input.Body.Position)
		if err != nil {
			return nil, mapEngineError(err, "failed to add subtask")
		}

		return &SubtaskOutput{Body: sub}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-subtask",
		Method:      http.MethodPatch,
		Path:        "/cards/{cardID}/tasks/{taskID}/subtasks/{subtaskID}",
		Summary:     "Update a subtask",
		Tags:        []string{"Subtasks"},
	}, func(ctx context.Context, input *UpdateSubtaskInput) (*SubtaskOutput, error) {
		actor, err := actorFromContext(ctx)
		if err != nil {
			return nil, err
		}

		sub, err := eng.UpdateSubtask(ctx, actor, input.CardID, input.TaskID, input.SubtaskID, engine.SubtaskUpdate{
			Text:      input.Body.Text,
			Completed: input.Body.Completed,
		})
		if err != nil {
			return nil, mapEngineError(err, "failed to update subtask")
		}

		return &SubtaskOutput{Body: sub}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-subtask",
		Method:      http.MethodDelete,
		Path:        "/cards/{cardID}/tasks/{taskID}/subtasks/{subtaskID}",
		Summary:     "Delete a subtask",
		Tags:        []string{"Subtasks"},
	}, func(ctx context.Context, input *DeleteSubtaskInput) (*struct{}, error) {
		actor, err := actorFromContext(ctx)
		if err != nil {
			return nil, err
		}

		if err := eng.DeleteSubtask(ctx, actor, input.CardID, input.TaskID, input.SubtaskID); err != nil {
			return nil, mapEngineError(err, "failed to delete subtask")
		}

		return nil, nil
	})
}
