package cleaner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBasicClean(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"the the cat  is,ok", "The cat is, ok"},
		{"um so we uh went home", "So we went home"},
		{"i mean, it works. and it ships", "It works. And it ships"},
		{"basically the the the plan is fine", "The plan is fine"},
		{"Hello , world !how are you?fine", "Hello, world! How are you? Fine"},
		{"sooo, here we go", "Here we go"},
		{"it is is what it is", "It is what it is"},
		{"  padded text  ", "Padded text"},
		{"", ""},
		{"   ", ""},
		{"3.5 stays put", "3.5 stays put"},
		{"Use e.g., apples and pears.", "Use e. G., apples and pears."},
		{"Is it done?: yes", "Is it done?: yes"},
		{"we went, um, home", "We went, home"},
		{"um, right, like, you know, whatever", "Whatever"},
		{"It works. uh, and it ships", "It works. And it ships"},
		{"keep,, my commas", "Keep,, my commas"},
		{"we um, left", "We, left"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, BasicClean(c.in), "input %q", c.in)
	}
}

func TestBasicClean_Idempotent(t *testing.T) {
	inputs := []string{
		"the the cat  is,ok",
		"so so, yes",
		"um, right, like, you know, whatever",
		"This is is a test.this is only a test!ok?",
		"oh oh oh no",
		"Hmm... well, i mean ,that's literally it .",
		"über über cool. ça va",
		"one\n\ntwo\tthree",
	}
	for _, in := range inputs {
		once := BasicClean(in)
		assert.Equal(t, once, BasicClean(once), "input %q", in)
	}
}

func TestCollapseRepeats(t *testing.T) {
	assert.Equal(t, "the cat", collapseRepeats("the the the cat"))
	assert.Equal(t, "The cat", collapseRepeats("The the cat"))
	assert.Equal(t, "the, the cat", collapseRepeats("the, the cat"))
	assert.Equal(t, "this is", collapseRepeats("this is"))
	assert.Equal(t, "a", collapseRepeats("a"))
}
