package pairing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/coffee-chat/internal/directory"
	"github.com/oggyb/coffee-chat/internal/pairing"
)

type fixedPick int

func (fixedPick) Shuffle(int, func(i, j int)) {}
func (f fixedPick) IntN(n int) int              { return int(f) % n }

func TestDefaultTemplates_Render(t *testing.T) {
	tpl := pairing.DefaultTemplates()
	require.Len(t, tpl.Greetings, 3)

	msg := tpl.Render("Ada", "Grace", fixedPick(1))
	assert.Contains(t, msg.Text, "Hey Ada!")
	assert.Contains(t, msg.Text, "matched with Grace")
	assert.Contains(t, msg.Headline, "*Grace*")
	assert.NotContains(t, msg.Body, "{")

	var ids []string
	for _, a := range msg.Actions {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{directory.ActionSnoozeWeek, directory.ActionSnoozeMonth, directory.ActionOptOut}, ids)
	assert.Equal(t, "danger", msg.Actions[2].Style)
}

func TestParseTemplates_RequiresGreeting(t *testing.T) {
	_, err := pairing.ParseTemplates([]byte("headline: hi\n"))
	assert.Error(t, err)

	_, err = pairing.ParseTemplates([]byte("greetings: [\n"))
	assert.Error(t, err)
}
