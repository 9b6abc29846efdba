package telegram

import (
	"errors"
	"testing"
)

func TestDecodeCallbackData(t *testing.T) {
	t.Parallel()

	t.Run("structured", func(t *testing.T) {
		t.Parallel()

		payload, err := DecodeCallbackData(`{"action":"complete","task_id":42}`)
		if err != nil {
			t.Fatalf("DecodeCallbackData: %v", err)
		}
		if payload.Action != ActionComplete || payload.TaskID != 42 {
			t.Fatalf("unexpected payload: %+v", payload)
		}
	})

	t.Run("roundtrip", func(t *testing.T) {
		t.Parallel()

		encoded := EncodeCallbackData(CallbackPayload{Action: ActionComplete, TaskID: 7})
		payload, err := DecodeCallbackData(encoded)
		if err != nil {
			t.Fatalf("DecodeCallbackData: %v", err)
		}
		if payload.TaskID != 7 {
			t.Fatalf("expected task id 7, got %d", payload.TaskID)
		}
	})

	t.Run("legacy_prefix", func(t *testing.T) {
		t.Parallel()

		payload, err := DecodeCallbackData("complete_15")
		if err != nil {
			t.Fatalf("DecodeCallbackData: %v", err)
		}
		if payload.Action != ActionComplete || payload.TaskID != 15 {
			t.Fatalf("unexpected payload: %+v", payload)
		}
	})

	t.Run("legacy_garbage", func(t *testing.T) {
		t.Parallel()

		_, err := DecodeCallbackData("complete_abc")
		if !errors.Is(err, ErrInvalidCallbackData) {
			t.Fatalf("expected ErrInvalidCallbackData, got %v", err)
		}
	})

	t.Run("unknown_action", func(t *testing.T) {
		t.Parallel()

		_, err := DecodeCallbackData(`{"action":"snooze","task_id":3}`)
		if !errors.Is(err, ErrUnknownCallbackAction) {
			t.Fatalf("expected ErrUnknownCallbackAction, got %v", err)
		}
	})

	t.Run("missing_task_id", func(t *testing.T) {
		t.Parallel()

		_, err := DecodeCallbackData(`{"action":"complete"}`)
		if !errors.Is(err, ErrInvalidCallbackData) {
			t.Fatalf("expected ErrInvalidCallbackData, got %v", err)
		}
	})

	t.Run("not_json", func(t *testing.T) {
		t.Parallel()

		_, err := DecodeCallbackData("whatever")
		if !errors.Is(err, ErrInvalidCallbackData) {
			t.Fatalf("expected ErrInvalidCallbackData, got %v", err)
		}
	})
}
