package response

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Outcome tags a normalized result.
type Outcome int

const (
	// OutcomeNone is a successful call that carried no payload.
	OutcomeNone Outcome = iota
	// OutcomeObject is a successful call that returned a single object.
	OutcomeObject
	// OutcomeList is a successful call that returned an ordered sequence.
	OutcomeList
	// OutcomeError is a failed call; Err carries the tagged error.
	OutcomeError
)

// Result is the single value every engine call produces. Callers never see
// raw status codes or unparsed bodies.
type Result struct {
	Outcome Outcome
	Object  map[string]any
	List    []any
	Err     *Error
}

// maxErrorBody caps how much of an unparseable error body ends up in the
// human-readable message.
const maxErrorBody = 512

// Normalize maps a raw transport result onto exactly one tagged outcome.
// It is a pure function: same inputs, same result, no side effects.
//
// A successful response whose body is not JSON (the engine serves some
// resources as plain text) becomes an object with a single "text" field, so
// the payload is never silently lost.
func Normalize(status int, body []byte, transportErr error) Result {
	if transportErr != nil {
		return failure(KindUnreachable, "no connection to engine: %v", transportErr)
	}
	if status >= 200 && status < 300 {
		return normalizeSuccess(body)
	}
	return normalizeFailure(status, body)
}

func normalizeSuccess(body []byte) Result {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Result{Outcome: OutcomeNone}
	}
	var payload any
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return Result{Outcome: OutcomeObject, Object: map[string]any{"text": string(trimmed)}}
	}
	switch v := payload.(type) {
	case map[string]any:
		// create/update responses nest the payload in a result field
		if nested, ok := v["result"]; ok {
			return wrap(nested)
		}
		return Result{Outcome: OutcomeObject, Object: v}
	case []any:
		return Result{Outcome: OutcomeList, List: v}
	default:
		return Result{Outcome: OutcomeNone}
	}
}

func wrap(payload any) Result {
	switch v := payload.(type) {
	case map[string]any:
		return Result{Outcome: OutcomeObject, Object: v}
	case []any:
		return Result{Outcome: OutcomeList, List: v}
	default:
		return Result{Outcome: OutcomeNone}
	}
}

func normalizeFailure(status int, body []byte) Result {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"message", "error", "detail"} {
			if msg, ok := payload[key].(string); ok && msg != "" {
				return failure(KindApplication, "%s", msg)
			}
		}
	}
	text := string(bytes.TrimSpace(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody] + "..."
	}
	if text == "" {
		return failure(KindApplication, "engine answered with status %d", status)
	}
	return failure(KindApplication, "engine answered with status %d: %s", status, text)
}

func failure(kind Kind, format string, args ...any) Result {
	return Result{Outcome: OutcomeError, Err: &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}}
}
