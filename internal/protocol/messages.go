// Package protocol encodes and decodes the JSON frames exchanged over a
// room websocket.
package protocol

import (
	"encoding/json"

	"plateroom-server/internal/order"
)

// Client -> server message types.
const (
	TypeUpdateDish    = "update_dish"
	TypeCompleteRound = "complete_round"
	TypePing          = "ping"
)

// Server -> client message types.
const (
	TypeOrderData      = "order_data"
	TypeUpdateRound    = "update_round"
	TypeRoundCompleted = "round_completed"
	TypeError          = "error"
	TypePong           = "pong"
)

// ClientMessage is one of UpdateDish, CompleteRound or Ping.
type ClientMessage interface {
	clientMessage()
}

// UpdateDish adjusts the current round by signed per-dish deltas.
type UpdateDish struct {
	Deltas order.Quantities
}

// CompleteRound asks for the current round to be committed.
type CompleteRound struct{}

type Ping struct{}

func (UpdateDish) clientMessage()    {}
func (CompleteRound) clientMessage() {}
func (Ping) clientMessage()          {}

type clientEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ServerMessage is the envelope of every frame sent to clients.
type ServerMessage struct {
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type OrderData struct {
	Order        order.Order      `json:"order"`
	CurrentRound order.Quantities `json:"current_round"`
}

type RoundCompleted struct {
	Number int `json:"number"`
}
