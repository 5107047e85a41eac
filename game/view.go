package game

import "github.com/roneel47/4Sure-sub000/domain"

type PlayerView struct {
	Handle       string         `json:"handle"`
	Slot         int            `json:"slot"`
	Connected    bool           `json:"connected"`
	HasSetSecret bool           `json:"hasSetSecret"`
	IsReady      bool           `json:"isReady"`
	Secret       string         `json:"secret,omitempty"`
	GuessesMade  []domain.Guess `json:"guessesMade"`
}

// RoomView is the room as one viewer may see it. Connection ids never leave the server
// and the only secret present is the viewer's own.
type RoomView struct {
	RoomID          string            `json:"roomId"`
	Capacity        int               `json:"capacity"`
	Status          domain.RoomStatus `json:"status"`
	Turn            string            `json:"turn,omitempty"`
	TurnSeq         int               `json:"turnSeq"`
	TargetMap       map[string]string `json:"targetMap,omitempty"`
	Winner          string            `json:"winner,omitempty"`
	SecretsSetCount int               `json:"secretsSetCount"`
	Players         []PlayerView      `json:"players"`
	You             string            `json:"you,omitempty"`
}

// NewRoomView renders room for viewer. An empty viewer gets a view without any secret.
func NewRoomView(room *domain.Room, viewer string) RoomView {
	v := RoomView{
		RoomID:          room.ID,
		Capacity:        room.Capacity,
		Status:          room.Status,
		Turn:            room.Turn,
		TurnSeq:         room.TurnSeq,
		Winner:          room.Winner,
		SecretsSetCount: room.SecretsSetCount,
		Players:         make([]PlayerView, 0, len(room.Players)),
		You:             viewer,
	}
	if len(room.TargetMap) > 0 {
		v.TargetMap = make(map[string]string, len(room.TargetMap))
		for k, t := range room.TargetMap {
			v.TargetMap[k] = t
		}
	}

	for _, h := range room.Handles() {
		p := room.Players[h]
		pv := PlayerView{
			Handle:       p.Handle,
			Slot:         p.Slot,
			Connected:    p.Connected(),
			HasSetSecret: p.HasSetSecret,
			IsReady:      p.IsReady,
			GuessesMade:  append([]domain.Guess{}, p.GuessesMade...),
		}
		if viewer != "" && h == viewer {
			pv.Secret = p.Secret
		}
		v.Players = append(v.Players, pv)
	}
	return v
}
