package report

import (
	"errors"
	"fmt"
	"strings"

	"wellbot/internal/display"
	"wellbot/internal/emotion"
	"wellbot/internal/message"
)

// TopEmotions is how many ranked emotions a report lists.
const TopEmotions = 3

var ErrMalformedMessage = errors.New("malformed message")

var (
	heavyRule = strings.Repeat("=", 60)
	lightRule = strings.Repeat("-", 60)
)

// Report is the operator-facing text for one message and, when the
// message changes who is speaking, the frame to draw.
type Report struct {
	Seq   int
	Text  string
	Frame *display.Frame
}

// Classifier numbers inbound messages and formats them.
// It is not safe for concurrent use.
type Classifier struct {
	count int
}

func NewClassifier() *Classifier { return &Classifier{} }

func (c *Classifier) Count() int { return c.count }

func (c *Classifier) Classify(msg *message.Inbound) (Report, error) {
	c.count++

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\nMessage %d\n%s\n", heavyRule, c.count, lightRule)

	rep := Report{Seq: c.count}

	switch msg.Type() {
	case message.TypeUserMessage, message.TypeAssistantMessage:
		frame, err := c.conversation(&b, msg)
		if err != nil {
			rep.Text = b.String()
			return rep, err
		}
		rep.Frame = frame

	case message.TypeAudioOutput:
		fmt.Fprintf(&b, "type: %s\n", msg.Type())

	default:
		for _, f := range msg.Fields() {
			fmt.Fprintf(&b, "%s: %s\n", f.Key, f.Value)
		}
	}

	b.WriteString(heavyRule + "\n")
	rep.Text = b.String()
	return rep, nil
}

func (c *Classifier) conversation(b *strings.Builder, msg *message.Inbound) (*display.Frame, error) {
	role, ok := msg.Role()
	if !ok {
		return nil, fmt.Errorf("%w: %s without message.role", ErrMalformedMessage, msg.Type())
	}
	content, ok := msg.Content()
	if !ok {
		return nil, fmt.Errorf("%w: %s without message.content", ErrMalformedMessage, msg.Type())
	}

	fmt.Fprintf(b, "role: %s\ncontent: %s\ntype: %s\n", role, content, msg.Type())

	var labels [3]string
	if scores, ok := msg.Scores(); ok {
		top := emotion.TopN(scores, TopEmotions)

		fmt.Fprintf(b, "%s\nTop %d Emotions:\n", lightRule, TopEmotions)
		for _, s := range top {
			fmt.Fprintf(b, "%s: %.4f\n", s.Name, s.Value)
		}
		labels = emotion.Labels(top)
	}

	switch display.Role(role) {
	case display.RoleUser:
		return &display.Frame{Role: display.RoleUser}, nil
	case display.RoleAssistant:
		return &display.Frame{
			Role:     display.RoleAssistant,
			Content:  content,
			Emotions: labels,
		}, nil
	}

	return nil, nil
}
