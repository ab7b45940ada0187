// Package codec converts browser actions to and from a generic envelope of a kind
// and a field map, as found in JSON request bodies, YAML scripts and MCP tool
// arguments.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/tabstate/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// ErrInvalidPayload is returned when a payload does not fit its action.
var ErrInvalidPayload = errors.New("invalid action payload")

// Envelope is the wire form of an action.
type Envelope struct {
	Kind    string         `json:"kind" yaml:"kind"`
	Payload map[string]any `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// DecodeFunc builds an action from its payload.
type DecodeFunc func(payload map[string]any) (domain.Action, error)

// Registry maps action kinds to decoders.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]DecodeFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]DecodeFunc)}
}

// Register sets the decoder for kind, replacing any previous one.
func (r *Registry) Register(kind string, fn DecodeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[kind] = fn
}

// Decode builds the action named by kind. Unknown kinds return an error wrapping
// domain.ErrUnknownAction.
func (r *Registry) Decode(kind string, payload map[string]any) (domain.Action, error) {
	r.mu.RLock()
	fn, ok := r.decoders[kind]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownAction, kind)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	action, err := fn(payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return action, nil
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.decoders))
	for k := range r.decoders {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Register adds a decoder for T that maps payload fields onto T's json field names.
// Tab actions must name a tab.
func Register[T domain.Action](r *Registry) {
	var zero T
	r.Register(zero.Kind(), func(payload map[string]any) (domain.Action, error) {
		var out T
		if err := decodeInto(payload, &out); err != nil {
			return nil, err
		}
		if ta, ok := any(out).(domain.TabAction); ok && ta.Target() == "" {
			return nil, fmt.Errorf("%w: %s is required", ErrInvalidPayload, domain.KeyTabID)
		}
		return out, nil
	})
}

// decodeInto decodes payload into out. Numbers and booleans given as strings are
// accepted, unknown fields are not.
func decodeInto(payload map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

var std = NewStandard()

// NewStandard returns a registry with every browser action.
func NewStandard() *Registry {
	r := NewRegistry()

	r.Register(domain.KindAddTab, decodeAddTab)
	Register[domain.SelectTab](r)
	Register[domain.RemoveTab](r)
	Register[domain.RemoveAllTabs](r)

	Register[domain.UpdateURL](r)
	Register[domain.UpdateProgress](r)
	Register[domain.UpdateTitle](r)
	Register[domain.UpdateLoading](r)
	Register[domain.UpdateSearchTerms](r)
	Register[domain.UpdateSecurityInfo](r)
	Register[domain.UpdateBackNavigation](r)
	Register[domain.UpdateForwardNavigation](r)
	Register[domain.AddHitResult](r)
	Register[domain.ConsumeHitResult](r)

	Register[domain.LinkEngineSession](r)
	Register[domain.UnlinkEngineSession](r)
	Register[domain.EngineError](r)
	Register[domain.Crash](r)
	Register[domain.RestoreCrashed](r)
	Register[domain.LoadURL](r)
	Register[domain.GoBack](r)
	Register[domain.GoForward](r)
	Register[domain.Reload](r)
	return r
}

// Decode decodes an action with the standard registry.
func Decode(kind string, payload map[string]any) (domain.Action, error) {
	return std.Decode(kind, payload)
}

// DecodeEnvelope decodes env with the standard registry.
func DecodeEnvelope(env Envelope) (domain.Action, error) {
	return std.Decode(env.Kind, env.Payload)
}

// Kinds lists the kinds known to the standard registry.
func Kinds() []string {
	return std.Kinds()
}

// Encode returns the envelope of action. The payload uses the same field names
// Decode accepts.
func Encode(action domain.Action) (Envelope, error) {
	if action == nil {
		return Envelope{}, fmt.Errorf("%w: nil action", ErrInvalidPayload)
	}
	raw, err := json.Marshal(action)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", action.Kind(), err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", action.Kind(), err)
	}
	if len(payload) == 0 {
		payload = nil
	}
	return Envelope{Kind: action.Kind(), Payload: payload}, nil
}
