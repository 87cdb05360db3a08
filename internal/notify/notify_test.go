package notify

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyQueuesAndLogs(t *testing.T) {
	var buf bytes.Buffer
	n := New(zerolog.New(&buf), 4)

	n.Errorf("template %q not found", "Claude")
	n.Infof("connected")

	toasts := n.Drain()
	require.Len(t, toasts, 2)
	assert.Equal(t, Error, toasts[0].Level)
	assert.Equal(t, `template "Claude" not found`, toasts[0].Message)
	assert.Equal(t, Info, toasts[1].Level)
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), "connected")
}

func TestNotifyNeverBlocks(t *testing.T) {
	n := New(zerolog.Nop(), 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			n.Warnf("warning %d", i)
		}
		close(done)
	}()
	<-done

	toasts := n.Drain()
	require.Len(t, toasts, 1)
	assert.Equal(t, "warning 0", toasts[0].Message)
	assert.Empty(t, n.Drain())
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "info", Info.String())
	assert.Equal(t, "warn", Warn.String())
	assert.Equal(t, "error", Error.String())
}
