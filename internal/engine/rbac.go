package engine

import (
	"github.com/gosuda/flowboard/internal/domain"
)

// Action is a closed set of things a user can do to a board, list or card.
type Action string

const (
	ActionRead          Action = "read"
	ActionWrite         Action = "write"
	ActionDelete        Action = "delete"
	ActionManageMembers Action = "manage_members"
)

// boardRoleCan is the static capability matrix for board-level roles.
func boardRoleCan(role domain.BoardRole, action Action) bool {
	switch role {
	case domain.BoardRoleOwner, domain.BoardRoleAdmin:
		return true
	case domain.BoardRoleEditor:
		return action == ActionRead || action == ActionWrite
	case domain.BoardRoleViewer:
		return action == ActionRead
	default:
		return false
	}
}

// cardRoleCan is the static capability matrix for card-level roles.
func cardRoleCan(role domain.CardRole, action Action) bool {
	switch role {
	case domain.CardRoleLead, domain.CardRoleProjectManager:
		return true
	case domain.CardRoleContributor:
		return action == ActionRead || action == ActionWrite
	case domain.CardRoleViewer, domain.CardRoleCommenter:
		return action == ActionRead
	default:
		return false
	}
}

// HasBoardAccess reports whether the actor may see the board at all:
// global superadmin/admin, board creator, or board member.
func HasBoardAccess(actor domain.ActorContext, board *domain.Board) bool {
	if actor.GlobalRole.Bypass() {
		return true
	}
	if board.CreatedBy == actor.UserID {
		return true
	}
	_, ok := board.MemberRole(actor.UserID)
	return ok
}

// HasCardAccess extends HasBoardAccess with guest access: a user listed on
// the card's member set may see the card even without board membership.
func HasCardAccess(actor domain.ActorContext, board *domain.Board, card *domain.Card) bool {
	if HasBoardAccess(actor, board) {
		return true
	}
	_, ok := card.MemberRole(actor.UserID)
	return ok
}

// HasBoardPermission resolves an action against the actor's board role.
// Board creators act as owners even when absent from the member set.
// Pure query; callers reject with ErrForbidden when it returns false.
func HasBoardPermission(actor domain.ActorContext, board *domain.Board, action Action) bool {
	if actor.GlobalRole.Bypass() {
		return true
	}
	if board.CreatedBy == actor.UserID {
		return true
	}
	role, ok := board.MemberRole(actor.UserID)
	if !ok {
		return false
	}
	return boardRoleCan(role, action)
}

// HasCardPermission resolves an action for a card-scoped operation. The most
// specific role wins: a card member role takes precedence over the board
// role; without a card role the board role applies.
func HasCardPermission(actor domain.ActorContext, board *domain.Board, card *domain.Card, action Action) bool {
	if actor.GlobalRole.Bypass() {
		return true
	}
	if role, ok := card.MemberRole(actor.UserID); ok {
		return cardRoleCan(role, action)
	}
	return HasBoardPermission(actor, board, action)
}

// cardActor is a convenience guard used by the service: access plus
// permission in one call.
func canActOnCard(actor domain.ActorContext, board *domain.Board, card *domain.Card, action Action) bool {
	return HasCardAccess(actor, board, card) && HasCardPermission(actor, board, card, action)
}
