package models

import (
	"encoding/json"
	"time"
)

// Activity event types.
const (
	EventLogin    = "login"
	EventRegister = "register"
	EventLogout   = "logout"
	EventUnlink   = "unlink"
)

type Activity struct {
	ID        string
	UserID    string
	EventType string
	Metadata  json.RawMessage
	CreatedAt time.Time
}
