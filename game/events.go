package game

import "github.com/roneel47/4Sure-sub000/domain"

type EventType string

const (
	EventPlayerAssigned    EventType = "playerAssigned"
	EventRoomState         EventType = "roomState"
	EventAllPlayersJoined  EventType = "allPlayersJoined"
	EventGameStarted       EventType = "gameStarted"
	EventTurnAdvanced      EventType = "turnAdvanced"
	EventGameOver          EventType = "gameOver"
	EventPlayerReconnected EventType = "playerReconnected"
	EventPlayerLeft        EventType = "playerLeft"
	EventOperationRejected EventType = "operationRejected"
)

// Reasons carried by turnAdvanced, gameOver and playerLeft.
const (
	ReasonGuessMissed  = "guess"
	ReasonForfeitTurn  = "forfeit"
	ReasonCodeCracked  = "cracked"
	ReasonOpponentGone = "opponentDisconnected"
	ReasonDisconnected = "disconnected"
	ReasonLeft         = "left"
)

// Event is one semantic room event. Only the fields relevant to Type are set.
type Event struct {
	Type           EventType         `json:"type"`
	RoomID         string            `json:"roomId,omitempty"`
	PlayerHandle   string            `json:"playerHandle,omitempty"`
	StartingPlayer string            `json:"startingPlayer,omitempty"`
	TargetMap      map[string]string `json:"targetMap,omitempty"`
	NextPlayer     string            `json:"nextPlayer,omitempty"`
	Winner         string            `json:"winner,omitempty"`
	Reason         string            `json:"reason,omitempty"`
}

// Assignment binds a connection to a handle. Replaced names the connection that held the
// handle before, if any.
type Assignment struct {
	ConnectionID string `json:"connectionId"`
	Handle       string `json:"handle"`
	Replaced     string `json:"replaced,omitempty"`
}

// Notification is everything one successful operation broadcasts: an optional
// assignment for the requesting connection, at most one semantic event, and the room as
// stored after the operation. Deliveries keep that order.
type Notification struct {
	RoomID   string       `json:"roomId"`
	Assigned *Assignment  `json:"assigned,omitempty"`
	Event    *Event       `json:"event,omitempty"`
	Room     *domain.Room `json:"room"`
}
