package types

import wire "github.com/DoyleJ11/twenty-questions-backend/pkg/types"

type ClientMessage struct {
	Type       string `json:"type"`
	Code       string `json:"code,omitempty"`
	Name       string `json:"name,omitempty"`
	Word       string `json:"word,omitempty"`
	Text       string `json:"text,omitempty"`
	QuestionID int    `json:"question_id,omitempty"`
	Answer     string `json:"answer,omitempty"`
}

type ServerMessage struct {
	Type    string     `json:"type"`           // see pkg/types for the full list
	Room    string     `json:"room,omitempty"` // set on messages coming from a room
	Version int        `json:"version,omitempty"`
	Payload any        `json:"payload,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func Error(room, code, message string) ServerMessage {
	return ServerMessage{Type: wire.Error, Room: room, Error: &ErrorBody{Code: code, Message: message}}
}
