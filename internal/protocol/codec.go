package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"plateroom-server/internal/order"
)

// ProtocolError reports an inbound frame that could not be decoded.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	return "INVALID_MESSAGE: " + e.Reason
}

func (e *ProtocolError) Unwrap() error { return e.Err }

func protocolError(err error, format string, args ...any) *ProtocolError {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...), Err: err}
}

// Decode parses a client frame. Any failure is a *ProtocolError.
func Decode(data []byte) (ClientMessage, error) {
	var env clientEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, protocolError(err, "malformed JSON")
	}

	switch env.Type {
	case TypeUpdateDish:
		if isAbsent(env.Data) {
			return nil, protocolError(nil, "update_dish requires a data object")
		}
		var deltas order.Quantities
		if err := json.Unmarshal(env.Data, &deltas); err != nil {
			return nil, protocolError(err, "update_dish data must map dish ids to integer deltas")
		}
		return UpdateDish{Deltas: deltas}, nil
	case TypeCompleteRound:
		return CompleteRound{}, nil
	case TypePing:
		return Ping{}, nil
	case "":
		return nil, protocolError(nil, "missing message type")
	default:
		return nil, protocolError(nil, "unknown message type '%s'", env.Type)
	}
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func encode(msg ServerMessage) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", msg.Type, err)
	}
	return data, nil
}

func EncodeOrderData(o order.Order, current order.Quantities) ([]byte, error) {
	return encode(ServerMessage{
		Type: TypeOrderData,
		Data: OrderData{Order: o, CurrentRound: current.Clone()},
	})
}

func EncodeUpdateRound(current order.Quantities) ([]byte, error) {
	return encode(ServerMessage{Type: TypeUpdateRound, Data: current.Clone()})
}

func EncodeRoundCompleted(round order.Round) ([]byte, error) {
	return encode(ServerMessage{Type: TypeRoundCompleted, Data: RoundCompleted{Number: round.Number}})
}

func EncodeError(message string) ([]byte, error) {
	return encode(ServerMessage{Type: TypeError, Message: message})
}

func EncodePong() ([]byte, error) {
	return encode(ServerMessage{Type: TypePong})
}
