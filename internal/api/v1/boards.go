package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/flowboard/internal/domain"
	"github.com/gosuda/flowboard/internal/engine"
)

type CreateBoardInput struct {
	Body struct {
		Name string `json:"name" minLength:"1" maxLength:"200" doc:"Board name"`
	}
}

type CreateBoardOutput struct {
	Body struct {
		Board *domain.Board  `json:"board"`
		Lists []*domain.List `json:"lists" doc:"Default workflow stage lists"`
	}
}

type ListBoardsOutput struct {
	Body []*domain.Board
}

type GetBoardInput struct {
	ID uuid.UUID `path:"id" doc:"Board ID"`
}

type GetBoardOutput struct {
	Body struct {
		Board *domain.Board  `json:"board"`
		Lists []*domain.List `json:"lists"`
	}
}

type BoardActivityInput struct {
	ID     uuid.UUID `path:"id" doc:"Board ID"`
	Limit  int       `query:"limit" minimum:"1" maximum:"200" default:"50" doc:"Page size"`
	Offset int       `query:"offset" minimum:"0" default:"0" doc:"Page offset"`
}

type BoardActivityOutput struct {
	Body []*domain.ActivityEntry
}

type CreateListInput struct {
	BoardID uuid.UUID `path:"id" doc:"Board ID"`
	Body    struct {
		Title string `json:"title" minLength:"1" maxLength:"200" doc:"List title"`
		Type  string `json:"type,omitempty" doc:"List type (todo, in_progress, review, done, custom)"`
	}
}

type CreateListOutput struct {
	Body *domain.List
}

type ArchiveListInput struct {
	BoardID uuid.UUID `path:"id" doc:"Board ID"`
	ListID  uuid.UUID `path:"listID" doc:"List ID"`
}

type ReorderListInput struct {
	BoardID uuid.UUID `path:"id" doc:"Board ID"`
	ListID  uuid.UUID `path:"listID" doc:"List ID"`
	Body    struct {
		Position int `json:"position" minimum:"1" doc:"Target position (1-based)"`
	}
}

// loadAuthorizedBoard fetches a board and checks the actor can see it.
// Used by the read-only endpoints; mutations go through the engine which
// does its own permission checks.
func loadAuthorizedBoard(ctx context.Context, store DataStore, actor domain.ActorContext, boardID uuid.UUID) (*domain.Board, error) {
	board, err := store.Boards().GetByID(ctx, boardID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, huma.Error404NotFound("board not found")
		}
		return nil, huma.Error500InternalServerError("failed to get board", err)
	}
	if !engine.HasBoardAccess(actor, board) {
		return nil, huma.Error403Forbidden("no access to board")
	}
	return board, nil
}

func RegisterBoardRoutes(api huma.API, store DataStore, eng Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "create-board",
		Method:      http.MethodPost,
		Path:        "/boards",
		Summary:     "Create a board with its default workflow stages",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *CreateBoardInput) (*CreateBoardOutput, error) {
		actor, err := actorFromContext(ctx)
		if err != nil {
			return nil, err
		}

		board, lists, err := eng.CreateBoard(ctx, actor, input.Body.Name)
		if err != nil {
			return nil, mapEngineError(err, "failed to create board")
		}

		out := &CreateBoardOutput{}
		out.Body.Board = board
		out.Body.Lists = lists
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-boards",
		Method:      http.MethodGet,
		Path:        "/boards",
		Summary:     "List boards the current user belongs to",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, _ *struct{}) (*ListBoardsOutput, error) {
		actor, err := actorFromContext(ctx)
		if err != nil {
			return nil, err
		}

		boards, err := store.Boards().List(ctx, actor.UserID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list boards", err)
		}

		return &ListBoardsOutput{Body: boards}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/boards/{id}",
		Summary:     "Get a board and its lists",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *GetBoardInput) (*GetBoardOutput, error) {
		actor, err := actorFromContext(ctx)
		if err != nil {
			return nil, err
		}

		board, err := loadAuthorizedBoard(ctx, store, actor, input.ID)
		if err != nil {
			return nil, err
		}

		lists, err := store.Lists().ListByBoard(ctx, board.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list board lists", err)
		}

		out := &GetBoardOutput{}
		out.Body.Board = board
		out.Body.Lists = lists
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "board-activity",
		Method:      http.MethodGet,
		Path:        "/boards/{id}/activity",
		Summary:     "Get the activity feed of a board",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *BoardActivityInput) (*BoardActivityOutput, error) {
		actor, err := actorFromContext(ctx)
		if err != nil {
			return nil, err
		}

		if _, err := loadAuthorizedBoard(ctx, store, actor, input.ID); err != nil {
			return nil, err
		}

		entries, err := store.Activity().ListByBoard(ctx, input.ID, input.Limit, input.Offset)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list activity", err)
		}

		return &BoardActivityOutput{Body: entries}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-list",
		Method:      http.MethodPost,
		Path:        "/boards/{id}/lists",
		Summary:     "Create a list on a board",
		Tags:        []string{"Lists"},
	}, func(ctx context.Context, input *CreateListInput) (*CreateListOutput, error) {
		actor, err := actorFromContext(ctx)
		if err != nil {
			return nil, err
		}

		typ := domain.ListType(input.Body.Type)
		if input.Body.Type == "" {
			typ = domain.ListTypeCustom
		}
		switch typ {
		case domain.ListTypeTodo, domain.ListTypeInProgress, domain.ListTypeReview, domain.ListTypeDone, domain.ListTypeCustom:
		default:
			return nil, huma.Error400BadRequest("unknown list type: " + input.Body.Type)
		}

		list, err := eng.CreateList(ctx, actor, input.BoardID, input.Body.Title, typ)
		if err != nil {
			return nil, mapEngineError(err, "failed to create list")
		}

		return &CreateListOutput{Body: list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "archive-list",
		Method:      http.MethodPost,
		Path:        "/boards/{id}/lists/{listID}/archive",
		Summary:     "Archive a list",
		Tags:        []string{"Lists"},
	}, func(ctx context.Context, input *ArchiveListInput) (*struct{}, error) {
		actor, err := actorFromContext(ctx)
		if err != nil {
			return nil, err
		}

		if err := eng.ArchiveList(ctx, actor, input.BoardID, input.ListID); err != nil {
			return nil, mapEngineError(err, "failed to archive list")
		}

		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reorder-list",
		Method:      http.MethodPatch,
		Path:        "/boards/{id}/lists/{listID}/position",
		Summary:     "Move a list to a new position on its board",
		Tags:        []string{"Lists"},
	}, func(ctx context.Context, input *ReorderListInput) (*struct{}, error) {
		actor, err := actorFromContext(ctx)
		if err != nil {
			return nil, err
		}

		if err := eng.ReorderList(ctx, actor, input.BoardID, input.ListID, input.Body.Position); err != nil {
			return nil, mapEngineError(err, "failed to reorder list")
		}

		return nil, nil
	})
}
