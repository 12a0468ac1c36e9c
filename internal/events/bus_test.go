package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelNaming(t *testing.T) {
	assert.Equal(t, "poll:p1", ChannelForPoll("p1"))
	assert.Equal(t, "p1", PollFromChannel("poll:p1"))
	assert.Equal(t, "unrelated", PollFromChannel("unrelated"))
}
