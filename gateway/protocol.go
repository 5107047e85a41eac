package gateway

import (
	"encoding/json"

	"github.com/roneel47/4Sure-sub000/game"
)

const (
	MsgJoin         = "join"
	MsgSubmitSecret = "submitSecret"
	MsgMakeGuess    = "makeGuess"
	MsgForfeitTurn  = "forfeitTurn"
	MsgLeave        = "leave"
)

// Reason codes only the gateway produces.
const (
	ReasonNotJoined   = "NotJoined"
	ReasonBadRequest  = "BadRequest"
	ReasonRateLimited = "RateLimited"
)

// ClientMessage is every inbound frame. Fields not used by Type are ignored.
type ClientMessage struct {
	Type            string `json:"type"`
	RoomID          string `json:"roomId,omitempty"`
	CapacityHint    int    `json:"capacityHint,omitempty"`
	RejoiningHandle string `json:"rejoiningHandle,omitempty"`
	PlayerHandle    string `json:"playerHandle,omitempty"`
	Secret          string `json:"secret,omitempty"`
	Guess           string `json:"guess,omitempty"`
	Seq             int    `json:"seq,omitempty"`
}

// ServerMessage is every outbound frame: a flat object keyed by "type".
type ServerMessage struct {
	game.Event
	Room *game.RoomView `json:"room,omitempty"`
	// Request names the inbound message type an operationRejected answers.
	Request string `json:"request,omitempty"`
	Message string `json:"message,omitempty"`
}

func encode(m ServerMessage) []byte {
	data, err := json.Marshal(m)
	if err != nil {
		// every field is a plain value, so this is a programming error
		panic(err)
	}
	return data
}

func assignedMessage(roomID, handle string) []byte {
	return encode(ServerMessage{Event: game.Event{Type: game.EventPlayerAssigned, RoomID: roomID, PlayerHandle: handle}})
}

func stateMessage(view game.RoomView) []byte {
	return encode(ServerMessage{Event: game.Event{Type: game.EventRoomState, RoomID: view.RoomID}, Room: &view})
}

func rejectedMessage(request, reason, message string) []byte {
	return encode(ServerMessage{
		Event:   game.Event{Type: game.EventOperationRejected, Reason: reason},
		Request: request,
		Message: message,
	})
}
