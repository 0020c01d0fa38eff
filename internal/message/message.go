package message

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"wellbot/internal/emotion"
)

// Known message tags sent by the voice service.
const (
	TypeUserMessage      = "user_message"
	TypeAssistantMessage = "assistant_message"
	TypeAudioOutput      = "audio_output"
	TypeAssistantEnd     = "assistant_end"
	TypeUserInterruption = "user_interruption"
	TypeChatMetadata     = "chat_metadata"
	TypeError            = "error"
)

var (
	ErrInvalidJSON = errors.New("invalid json")
	ErrMissingType = errors.New("missing type")
)

// Field is one top-level key/value pair, value rendered for display.
type Field struct {
	Key   string
	Value string
}

// Inbound is one decoded record received from the voice service.
type Inbound struct {
	raw  []byte
	root gjson.Result
	typ  string
}

func Parse(data []byte) (*Inbound, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: not an object", ErrInvalidJSON)
	}

	t := root.Get("type")
	if t.Type != gjson.String {
		return nil, ErrMissingType
	}

	return &Inbound{raw: data, root: root, typ: t.Str}, nil
}

func (m *Inbound) Type() string { return m.typ }

func (m *Inbound) Raw() []byte { return m.raw }

func (m *Inbound) Role() (string, bool) {
	return m.str("message.role")
}

func (m *Inbound) Content() (string, bool) {
	return m.str("message.content")
}

// Scores returns models.prosody.scores in the order the service sent them.
func (m *Inbound) Scores() (emotion.ScoreSet, bool) {
	r := m.root.Get("models.prosody.scores")
	if !r.IsObject() {
		return nil, false
	}

	var set emotion.ScoreSet
	r.ForEach(func(key, value gjson.Result) bool {
		set = append(set, emotion.Score{Name: key.String(), Value: value.Float()})
		return true
	})
	return set, true
}

// Fields lists top-level pairs in document order.
func (m *Inbound) Fields() []Field {
	var out []Field
	m.root.ForEach(func(key, value gjson.Result) bool {
		out = append(out, Field{Key: key.String(), Value: display(value)})
		return true
	})
	return out
}

// Get exposes an arbitrary path for message types with their own payload.
func (m *Inbound) Get(path string) gjson.Result {
	return m.root.Get(path)
}

func (m *Inbound) str(path string) (string, bool) {
	r := m.root.Get(path)
	if !r.Exists() || r.Type == gjson.Null {
		return "", false
	}
	return r.String(), true
}

func display(v gjson.Result) string {
	if v.Type == gjson.String {
		return v.Str
	}
	return v.Raw
}
