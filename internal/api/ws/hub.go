package ws

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gosuda/flowboard/internal/domain"
	"github.com/gosuda/flowboard/internal/engine"
	"github.com/gosuda/flowboard/internal/server/middleware"
	redisstore "github.com/gosuda/flowboard/internal/store/redis"
)

// Hub manages WebSocket connections backed by Redis pub/sub. Clients
// subscribe to a board channel and receive the card events the engine
// broadcasts on task mutations, unlocks, and workflow advancement.
type Hub struct {
	pubsub *redisstore.PubSub
	boards domain.BoardRepository
}

// NewHub creates a new WebSocket hub.
func NewHub(pubsub *redisstore.PubSub, boards domain.BoardRepository) *Hub {
	return &Hub{pubsub: pubsub, boards: boards}
}

// ServeBoard handles WebSocket connections for board updates.
// Subscribes to Redis channel "board:<boardID>".
func (h *Hub) ServeBoard(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "missing actor", http.StatusUnauthorized)
		return
	}

	boardID, err := uuid.Parse(chi.URLParam(r, "boardID"))
	if err != nil {
		http.Error(w, "invalid board id", http.StatusBadRequest)
		return
	}

	board, err := h.boards.GetByID(r.Context(), boardID)
	if err != nil {
		http.Error(w, "board not found", http.StatusNotFound)
		return
	}
	if !engine.HasBoardAccess(actor, board) {
		http.Error(w, "no access to board", http.StatusForbidden)
		return
	}

	h.stream(w, r, redisstore.BoardChannel(boardID))
}

// ServeCard handles WebSocket connections for a single card's updates.
// Subscribes to Redis channel "card:<cardID>". Access is checked at the
// board level; card guests must use the board channel of a board they
// belong to.
func (h *Hub) ServeCard(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "missing actor", http.StatusUnauthorized)
		return
	}

	boardID, err := uuid.Parse(chi.URLParam(r, "boardID"))
	if err != nil {
		http.Error(w, "invalid board id", http.StatusBadRequest)
		return
	}
	cardID, err := uuid.Parse(chi.URLParam(r, "cardID"))
	if err != nil {
		http.Error(w, "invalid card id", http.StatusBadRequest)
		return
	}

	board, err := h.boards.GetByID(r.Context(), boardID)
	if err != nil {
		http.Error(w, "board not found", http.StatusNotFound)
		return
	}
	if !engine.HasBoardAccess(actor, board) {
		http.Error(w, "no access to board", http.StatusForbidden)
		return
	}

	h.stream(w, r, redisstore.CardChannel(cardID))
}

// stream accepts the WebSocket upgrade and forwards messages from the
// Redis channel until either side goes away.
func (h *Hub) stream(w http.ResponseWriter, r *http.Request, channel string) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	messages, cleanup, err := h.pubsub.Subscribe(ctx, channel)
	if err != nil {
		log.Error().Err(err).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg, msgOK := <-messages:
			if !msgOK {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				log.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}
