package pairing

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var templatesYAML []byte

// Action is an interactive button attached to an introduction.
type Action struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
	Style string `yaml:"style"`
}

// Message is a rendered introduction. Text is the plain fallback; the other
// fields feed the rich layout.
type Message struct {
	Text     string
	Headline string
	Body     string
	Footer   string
	Actions  []Action
}

// Templates is the parsed message catalogue.
type Templates struct {
	Greetings []string `yaml:"greetings"`
	Headline  string   `yaml:"headline"`
	Body      string   `yaml:"body"`
	Footer    string   `yaml:"footer"`
	Actions   []Action `yaml:"actions"`
}

// ParseTemplates decodes a catalogue and checks it has at least one greeting.
func ParseTemplates(raw []byte) (*Templates, error) {
	var t Templates
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("parse message templates: %w", err)
	}
	if len(t.Greetings) == 0 {
		return nil, fmt.Errorf("parse message templates: no greetings")
	}
	return &t, nil
}

// DefaultTemplates returns the embedded catalogue.
func DefaultTemplates() *Templates {
	t, err := ParseTemplates(templatesYAML)
	if err != nil {
		panic(err)
	}
	return t
}

// Render builds the introduction for name about partner, picking the
// greeting with rnd.
func (t *Templates) Render(name, partner string, rnd Random) Message {
	r := strings.NewReplacer("{name}", name, "{partner}", partner)
	actions := make([]Action, len(t.Actions))
	copy(actions, t.Actions)
	return Message{
		Text:     r.Replace(t.Greetings[rnd.IntN(len(t.Greetings))]),
		Headline: r.Replace(t.Headline),
		Body:     r.Replace(t.Body),
		Footer:   r.Replace(t.Footer),
		Actions:  actions,
	}
}
