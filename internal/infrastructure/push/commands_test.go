package push

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/internal/testutil"
)

func TestSessionCommands(t *testing.T) {
	channel := testutil.NewRecordingPush()
	commands := SessionCommands(channel)
	ctx := context.Background()

	event, reply, err := commands.Execute(ctx, "s1", ClientFrame{Type: "join", TaskID: "7"})
	require.NoError(t, err)
	assert.Equal(t, FrameJoined, event)
	assert.Equal(t, GroupAck{TaskID: "7", Group: "task:7"}, reply)
	assert.True(t, channel.IsMember("s1", "task:7"))

	event, _, err = commands.Execute(ctx, "s1", ClientFrame{Type: "leave", TaskID: "7"})
	require.NoError(t, err)
	assert.Equal(t, FrameLeft, event)
	assert.False(t, channel.IsMember("s1", "task:7"))

	event, _, err = commands.Execute(ctx, "s1", ClientFrame{Type: "ping"})
	require.NoError(t, err)
	assert.Equal(t, FramePong, event)

	_, _, err = commands.Execute(ctx, "s1", ClientFrame{Type: "join"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))

	_, _, err = commands.Execute(ctx, "s1", ClientFrame{Type: "dance"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
}
