package telegram

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

type CallbackAction string

const ActionComplete CallbackAction = "complete"

// Older clients put "complete_<id>" into callback buttons. Messages
// with such keyboards may live in chat history for months, so the
// decoder keeps accepting them.
const legacyCompletePrefix = "complete_"

var (
	ErrInvalidCallbackData   = errors.New("invalid callback data")
	ErrUnknownCallbackAction = errors.New("unknown callback action")
)

// CallbackPayload is the structured callback format carried by inline
// keyboard buttons. Telegram limits callback data to 64 bytes, which
// comfortably fits the JSON encoding.
type CallbackPayload struct {
	Action CallbackAction `json:"action"`
	TaskID int64          `json:"task_id"`
}

func EncodeCallbackData(payload CallbackPayload) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return string(data)
}

func DecodeCallbackData(data string) (CallbackPayload, error) {
	if rest, ok := strings.CutPrefix(data, legacyCompletePrefix); ok {
		taskID, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || taskID <= 0 {
			return CallbackPayload{}, ErrInvalidCallbackData
		}
		return CallbackPayload{Action: ActionComplete, TaskID: taskID}, nil
	}

	if !strings.HasPrefix(data, "{") {
		return CallbackPayload{}, ErrInvalidCallbackData
	}

	var payload CallbackPayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return CallbackPayload{}, ErrInvalidCallbackData
	}
	if payload.TaskID <= 0 {
		return CallbackPayload{}, ErrInvalidCallbackData
	}
	if payload.Action != ActionComplete {
		return CallbackPayload{}, ErrUnknownCallbackAction
	}
	return payload, nil
}
