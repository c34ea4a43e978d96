package shortcuts

import (
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/dshills/keystrike/internal/input/key"
)

// ErrInvalidMessage is returned for malformed inbound messages.
var ErrInvalidMessage = errors.New("invalid message")

// DecodeAddRequest decodes a JSON shortcut.add message:
//
//	{"shortcut": "g i", "eventName": "inbox", "selector": "body", "throttle": true, "data": {...}}
//
// throttle may be true (global window), a number of milliseconds, or absent
// or false for debounce. A non-string shortcut fails with key.ErrInvalidArgument.
func DecodeAddRequest(raw []byte) (AddRequest, error) {
	msg, err := parseMessage(raw)
	if err != nil {
		return AddRequest{}, err
	}

	shortcut, err := stringField(msg, "shortcut", true)
	if err != nil {
		return AddRequest{}, err
	}
	eventName, err := stringField(msg, "eventName", true)
	if err != nil {
		return AddRequest{}, err
	}
	selector, err := stringField(msg, "selector", false)
	if err != nil {
		return AddRequest{}, err
	}

	req := AddRequest{
		Shortcut:  shortcut,
		EventName: eventName,
		Selector:  selector,
	}

	th := msg.Get("throttle")
	switch th.Type {
	case gjson.Null, gjson.False:
	case gjson.True:
		req.Throttle = ThrottleDefault
	case gjson.Number:
		if th.Int() <= 0 {
			return AddRequest{}, fmt.Errorf("%w: throttle must be positive, got %s", ErrInvalidMessage, th.Raw)
		}
		req.Throttle = ThrottleAfter(time.Duration(th.Int()) * time.Millisecond)
	default:
		return AddRequest{}, fmt.Errorf("%w: throttle must be a bool or milliseconds, got %s", ErrInvalidMessage, th.Raw)
	}

	if data := msg.Get("data"); data.Exists() {
		req.Data = data.Value()
	}
	return req, nil
}

// DecodeRemoveRequest decodes a JSON shortcut.remove message:
//
//	{"shortcut": "g i", "eventName": "inbox", "selector": "body"}
func DecodeRemoveRequest(raw []byte) (RemoveRequest, error) {
	msg, err := parseMessage(raw)
	if err != nil {
		return RemoveRequest{}, err
	}

	shortcut, err := stringField(msg, "shortcut", true)
	if err != nil {
		return RemoveRequest{}, err
	}
	eventName, err := stringField(msg, "eventName", false)
	if err != nil {
		return RemoveRequest{}, err
	}
	selector, err := stringField(msg, "selector", false)
	if err != nil {
		return RemoveRequest{}, err
	}

	return RemoveRequest{Shortcut: shortcut, EventName: eventName, Selector: selector}, nil
}

func parseMessage(raw []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("%w: not valid JSON", ErrInvalidMessage)
	}
	msg := gjson.ParseBytes(raw)
	if !msg.IsObject() {
		return gjson.Result{}, fmt.Errorf("%w: expected an object", ErrInvalidMessage)
	}
	return msg, nil
}

func stringField(msg gjson.Result, name string, required bool) (string, error) {
	v := msg.Get(name)
	switch {
	case v.Type == gjson.String:
		return v.String(), nil
	case !v.Exists() && !required:
		return "", nil
	case !v.Exists():
		return "", fmt.Errorf("%w: missing %s", key.ErrInvalidArgument, name)
	default:
		return "", fmt.Errorf("%w: %s must be a string, got %s", key.ErrInvalidArgument, name, v.Raw)
	}
}

// decodeAdd accepts an AddRequest or a raw JSON message.
func decodeAdd(payload any) (AddRequest, error) {
	switch p := payload.(type) {
	case AddRequest:
		return p, nil
	case *AddRequest:
		if p == nil {
			return AddRequest{}, fmt.Errorf("%w: nil request", ErrInvalidMessage)
		}
		return *p, nil
	case []byte:
		return DecodeAddRequest(p)
	case string:
		return DecodeAddRequest([]byte(p))
	default:
		return AddRequest{}, fmt.Errorf("%w: unsupported payload %T", ErrInvalidMessage, payload)
	}
}

// decodeRemove accepts a RemoveRequest, a bare shortcut string or a raw JSON
// message.
func decodeRemove(payload any) (RemoveRequest, error) {
	switch p := payload.(type) {
	case RemoveRequest:
		return p, nil
	case *RemoveRequest:
		if p == nil {
			return RemoveRequest{}, fmt.Errorf("%w: nil request", ErrInvalidMessage)
		}
		return *p, nil
	case []byte:
		return DecodeRemoveRequest(p)
	case string:
		if gjson.Valid(p) && gjson.Parse(p).IsObject() {
			return DecodeRemoveRequest([]byte(p))
		}
		return RemoveRequest{Shortcut: p}, nil
	default:
		return RemoveRequest{}, fmt.Errorf("%w: unsupported payload %T", ErrInvalidMessage, payload)
	}
}
