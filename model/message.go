package model

import "time"

// Message is the unit the gateway routes. The shape mirrors the client wire
// format: every field is a string except Read, and Contain carries hex for
// binary types. The server always regenerates ID before routing.
type Message struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	From    string `json:"from"`
	Read    bool   `json:"read"`
	Contain string `json:"contain"`
}

// QueuedMessage wraps a Message while it waits in a recipient's mailbox.
type QueuedMessage struct {
	Message   Message   `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// ActionMessage is the control frame routed for message-deletion requests.
type ActionMessage struct {
	ID        string `json:"message_id"`
	From      string `json:"from"`
	Action    string `json:"action"`
	CreatedAt string `json:"date"`
}
