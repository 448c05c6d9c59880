package pipeline

import (
	"fmt"

	"go.aimuz.me/filipimo/internal/types"
)

// Event drives the pipeline state machine.
type Event string

const (
	EventStartSpeech Event = "start-speech"
	EventTranscript  Event = "transcript"
	EventSpeechEnd   Event = "speech-end"
	EventStartScan   Event = "start-scan"
	EventScanDone    Event = "scan-done"
	EventScanFailed  Event = "scan-failed"
	EventSettle      Event = "settle"
	EventPending     Event = "pending"
	EventTranslated  Event = "translated"
	EventRetarget    Event = "retarget"
	EventClear       Event = "clear"
)

// Transition returns the state reached from current on event. Invalid
// transitions return current and an error.
//
// Starting a capture and clearing are accepted from every state; that is
// what makes the last user action win between speech and scan.
func Transition(current types.State, event Event) (types.State, error) {
	switch event {
	case EventClear:
		return types.StateIdle, nil
	case EventStartScan:
		return types.StateCapturingScan, nil
	case EventStartSpeech:
		if current == types.StateCapturingSpeech {
			return current, invalidTransition(current, event)
		}
		return types.StateCapturingSpeech, nil
	}

	switch current {
	case types.StateIdle:
		return current, invalidTransition(current, event)
	case types.StateCapturingSpeech:
		switch event {
		case EventTranscript, EventSettle, EventTranslated:
			return current, nil
		case EventSpeechEnd:
			return types.StateReady, nil
		default:
			return current, invalidTransition(current, event)
		}
	case types.StateCapturingScan:
		switch event {
		case EventScanDone:
			return types.StateReady, nil
		case EventScanFailed:
			return types.StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case types.StateTranslating:
		switch event {
		case EventSettle:
			return current, nil
		case EventTranslated:
			return types.StateReady, nil
		case EventRetarget:
			return types.StateReady, nil
		default:
			return current, invalidTransition(current, event)
		}
	case types.StateReady:
		switch event {
		case EventSettle, EventPending:
			return types.StateTranslating, nil
		case EventTranslated, EventRetarget:
			return current, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state types.State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
