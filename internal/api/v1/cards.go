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

type CreateCardInput struct {
	ListID uuid.UUID `path:"listID" doc:"List ID"`
	Body   struct {
		Title    string `json:"title" minLength:"1" maxLength:"500" doc:"Card title"`
		Priority string `json:"priority,omitempty" doc:"Card priority (low, medium, high, urgent)"`
	}
}

type CreateCardOutput struct {
	Body *domain.Card
}

type GetCardInput struct {
	ID uuid.UUID `path:"id" doc:"Card ID"`
}

type GetCardOutput struct {
	Body *domain.Card
}

type ListCardsInput struct {
	ListID uuid.UUID `path:"listID" doc:"List ID"`
}

type ListCardsOutput struct {
	Body []*domain.Card
}

type DeleteCardInput struct {
	ID uuid.UUID `path:"id" doc:"Card ID"`
}

type MoveCardInput struct {
	ID   uuid.UUID `path:"id" doc:"Card ID"`
	Body struct {
		TargetListID uuid.UUID `json:"target_list_id" doc:"Destination list ID (must be on the same board)"`
		Position     int       `json:"position" minimum:"1" doc:"Target position in the destination list (1-based)"`
	}
}

type MoveCardOutput struct {
	Body *domain.Card
}

type ReorderCardInput struct {
	ID   uuid.UUID `path:"id" doc:"Card ID"`
	Body struct {
		Position int `json:"position" minimum:"1" doc:"Target position (1-based)"`
	}
}

type ReorderCardOutput struct {
	Body *domain.Card
}

type CardActivityInput struct {
	ID uuid.UUID `path:"id" doc:"Card ID"`
}

type CardActivityOutput struct {
	Body []*domain.ActivityEntry
}

type AddChecklistItemInput struct {
	ID   uuid.UUID `path:"id" doc:"Card ID"`
	Body struct {
		Text string `json:"text" minLength:"1" maxLength:"500" doc:"Checklist item text"`
	}
}

type AddChecklistItemOutput struct {
	Body *domain.ChecklistItem
}

type ToggleChecklistItemInput struct {
	ID     uuid.UUID `path:"id" doc:"Card ID"`
	ItemID uuid.UUID `path:"itemID" doc:"Checklist item ID"`
	Body   struct {
		Completed bool `json:"completed" doc:"Target completion state"`
	}
}

type ToggleChecklistItemOutput struct {
	Body *TaskMutationBody
}

type RemoveChecklistItemInput struct {
	ID     uuid.UUID `path:"id" doc:"Card ID"`
	ItemID uuid.UUID `path:"itemID" doc:"Checklist item ID"`
}

// loadAuthorizedCard fetches a card through its list and board and checks
// read access. Mutations go through the engine instead.
func loadAuthorizedCard(ctx context.Context, store DataStore, actor domain.ActorContext, cardID uuid.UUID) (*domain.Card, error) {
	card, err := store.Cards().GetByID(ctx, cardID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, huma.Error404NotFound("card not found")
		}
		return nil, huma.Error500InternalServerError("failed to get card", err)
	}

	list, err := store.Lists().GetByID(ctx, card.ListID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get list", err)
	}
	board, err := store.Boards().GetByID(ctx, list.BoardID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get board", err)
	}

	if !engine.HasCardAccess(actor, board, card) {
		return nil, huma.Error403Forbidden("no access to card")
	}
	return card, nil
}

func RegisterCardRoutes(api huma.API, store DataStore, eng Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "create-card",
		Method:      http.MethodPost,
		Path:        "/lists/{listID}/cards",
		Summary:     "Create a card on a list",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *CreateCardInput) (*CreateCardOutput, error) {
		actor, err := actorFromContext(ctx)
		if err != nil {
			return nil, err
		}

		priority := domain.CardPriority(input.Body.Priority)
		if input.Body.Priority == "" {
			priority = domain.CardPriorityMedium
		}
		switch priority {
		case domain.CardPriorityLow, domain.CardPriorityMedium, domain.CardPriorityHigh, domain.CardPriorityUrgent:
		default:
			return nil, huma.Error400BadRequest("unknown priority: " + input.Body.Priority)
		}

		card, err := eng.CreateCard(ctx, actor, input.ListID, input.Body.Title, priority)
		if err != nil {
			return nil, mapEngineError(err, "failed to create card")
		}

		return &CreateCardOutput{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-cards",
		Method:      http.MethodGet,
		Path:        "/lists/{listID}/cards",
		Summary:     "List the cards of a list in position order",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *ListCardsInput) (*ListCardsOutput, error) {
		actor, err := actorFromContext(ctx)
		if err != nil {
			return nil, err
		}

		list, err := store.Lists().GetByID(ctx, input.ListID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("list not found")
			}
			return nil, huma.Error500InternalServerError("failed to get list", err)
		}
		if _, err := loadAuthorizedBoard(ctx, store, actor, list.BoardID); err != nil {
			return nil, err
		}

		cards, err := store.Cards().ListByList(ctx, input.ListID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list cards", err)
		}

		return &ListCardsOutput{Body: cards}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-card",
		Method:      http.MethodGet,
		Path:        "/cards/{id}",
		Summary:     "Get a card with its tasks and checklist",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *GetCardInput) (*GetCardOutput, error) {
		actor, err := actorFromContext(ctx)
		if err != nil {
			return nil, err
		}

		card, err := loadAuthorizedCard(ctx, store, actor, input.ID)
		if err != nil {
			return nil, err
		}

		return &GetCardOutput{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-card",
		Method:      http.MethodDelete,
		Path:        "/cards/{id}",
		Summary:     "Delete a card",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *DeleteCardInput) (*struct{}, error) {
		actor, err := actorFromContext(ctx)
		if err != nil {
			return nil, err
		}

		if err := eng.DeleteCard(ctx, actor, input.ID); err != nil {
			return nil, mapEngineError(err, "failed to delete card")
		}

		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-card",
		Method:      http.MethodPost,
		Path:        "/cards/{id}/move",
		Summary:     "Move a card to another list on the same board",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *MoveCardInput) (*MoveCardOutput, error) {
		actor, err := actorFromContext(ctx)
		if err != nil {
			return nil, err
		}

		card, err := eng.MoveCardToList(ctx, actor, input.ID, input.Body.TargetListID, input.Body.Position)
		if err != nil {
			return nil, mapEngineError(err, "failed to move card")
		}

		return &MoveCardOutput{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reorder-card",
		Method:      http.MethodPatch,
		Path:        "/cards/{id}/position",
		Summary:     "Move a card to a new position within its list",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *ReorderCardInput) (*ReorderCardOutput, error) {
		actor, err := actorFromContext(ctx)
		if err != nil {
			return nil, err
		}

		card, err := eng.ReorderCard(ctx, actor, input.ID, input.Body.Position)
		if err != nil {
			return nil, mapEngineError(err, "failed to reorder card")
		}

		return &ReorderCardOutput{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "card-activity",
		Method:      http.MethodGet,
		Path:        "/cards/{id}/activity",
		Summary:     "Get the activity feed of a card",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *CardActivityInput) (*CardActivityOutput, error) {
		actor, err := actorFromContext(ctx)
		if err != nil {
			return nil, err
		}

		if _, err := loadAuthorizedCard(ctx, store, actor, input.ID); err != nil {
			return nil, err
		}

		entries, err := store.Activity().ListByCard(ctx, input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list activity", err)
		}

		return &CardActivityOutput{Body: entries}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-checklist-item",
		Method:      http.MethodPost,
		Path:        "/cards/{id}/checklist",
		Summary:     "Add a checklist item to a card",
		Tags:        []string{"Checklist"},
	}, func(ctx context.Context, input *AddChecklistItemInput) (*AddChecklistItemOutput, error) {
		actor, err := actorFromContext(ctx)
		if err != nil {
			return nil, err
		}

		item, err := eng.AddChecklistItem(ctx, actor, input.ID, input.Body.Text)
		if err != nil {
			return nil, mapEngineError(err, "failed to add checklist item")
		}

		return &AddChecklistItemOutput{Body: item}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-checklist-item",
		Method:      http.MethodPatch,
		Path:        "/cards/{id}/checklist/{itemID}",
		Summary:     "Set the completion state of a checklist item",
		Tags:        []string{"Checklist"},
	}, func(ctx context.Context, input *ToggleChecklistItemInput) (*ToggleChecklistItemOutput, error) {
		actor, err := actorFromContext(ctx)
		if err != nil {
			return nil, err
		}

		res, err := eng.ToggleChecklistItem(ctx, actor, input.ID, input.ItemID, input.Body.Completed)
		if err != nil {
			return nil, mapEngineError(err, "failed to toggle checklist item")
		}

		return &ToggleChecklistItemOutput{Body: taskMutationBody(res)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-checklist-item",
		Method:      http.MethodDelete,
		Path:        "/cards/{id}/checklist/{itemID}",
		Summary:     "Remove a checklist item from a card",
		Tags:        []string{"Checklist"},
	}, func(ctx context.Context, input *RemoveChecklistItemInput) (*struct{}, error) {
		actor, err := actorFromContext(ctx)
		if err != nil {
			return nil, err
		}

		if err := eng.RemoveChecklistItem(ctx, actor, input.ID, input.ItemID); err != nil {
			return nil, mapEngineError(err, "failed to remove checklist item")
		}

		return nil, nil
	})
}
