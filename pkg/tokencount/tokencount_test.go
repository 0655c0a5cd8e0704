package tokencount

import (
	"testing"

	"github.com/webverify/agentrt/pkg/types"
)

func TestCountEmptyString(t *testing.T) {
	c := New()
	if got := c.Count(""); got != 0 {
		t.Errorf("Count(\"\") = %d, want 0", got)
	}
}

func TestCountIsPositiveForText(t *testing.T) {
	c := New()
	got := c.Count("click the submit button to continue checkout")
	if got <= 0 {
		t.Errorf("Count(non-empty text) = %d, want > 0", got)
	}
}

func TestCountGrowsWithLongerText(t *testing.T) {
	c := New()
	short := c.Count("hello")
	long := c.Count("hello there, this is a much longer sentence with many more words in it")
	if long <= short {
		t.Errorf("expected longer text to count more tokens: short=%d long=%d", short, long)
	}
}

func TestCountMessagesIncludesOverhead(t *testing.T) {
	c := New()
	messages := []*types.Message{
		types.NewSystemMessage("you are a helpful agent"),
		types.NewUserMessage("click the login button"),
	}

	total := c.CountMessages(messages)

	sumOfParts := c.Count("system") + c.Count("you are a helpful agent") +
		c.Count("user") + c.Count("click the login button")

	if total <= sumOfParts {
		t.Errorf("expected CountMessages to add per-message overhead on top of raw content tokens: total=%d sumOfParts=%d", total, sumOfParts)
	}
}

func TestCountMessagesEmpty(t *testing.T) {
	c := New()
	got := c.CountMessages(nil)
	if got < 0 {
		t.Errorf("CountMessages(nil) = %d, want >= 0", got)
	}
}
