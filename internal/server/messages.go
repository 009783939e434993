package server

import (
	"github.com/GriffinCanCode/confirmscout/internal/activity"
	"github.com/GriffinCanCode/confirmscout/internal/monitor"
)

// Command is a client request on the websocket.
type Command struct {
	Type    string `json:"type"` // click, scroll, cancel, start, stop, status
	TraceID string `json:"trace_id,omitempty"`
}

// Command types.
const (
	CmdClick  = "click"
	CmdScroll = "scroll"
	CmdCancel = "cancel"
	CmdStart  = "start"
	CmdStop   = "stop"
	CmdStatus = "status"
)

// HelloMessage is the first message on a new connection.
type HelloMessage struct {
	Type     string           `json:"type"`
	Status   monitor.Status   `json:"status"`
	Activity []activity.Entry `json:"activity"`
}

type ActivityMessage struct {
	Type  string         `json:"type"`
	Entry activity.Entry `json:"entry"`
}

type StatusMessage struct {
	Type   string         `json:"type"`
	Status monitor.Status `json:"status"`
}

type ClickedMessage struct {
	Type      string            `json:"type"`
	Detection monitor.Detection `json:"detection"`
}

type AckMessage struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Command string `json:"command,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorBody is the JSON body of a failed REST call.
type ErrorBody struct {
	Error   ErrorDetail `json:"error"`
	TraceID string      `json:"trace_id,omitempty"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
