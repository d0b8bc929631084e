package server

import "plateroom-server/internal/room"

// ErrorMessage is the JSON body of a rejected admission.
type ErrorMessage struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type HealthResponse struct {
	Status      string            `json:"status"`
	Database    map[string]string `json:"database"`
	Rooms       room.Stats        `json:"rooms"`
	Connections int               `json:"connections"`
}
