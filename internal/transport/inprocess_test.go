package transport

import (
	"testing"
	"time"

	"github.com/mrivas/taskpool/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInProcess_SendAccept(t *testing.T) {
	tr := New()
	sender := protocol.SenderMetadata{Index: "0", CarrierID: "c0"}

	_, ok := tr.Accept()
	assert.False(t, ok, "no request queued yet")

	require.NoError(t, tr.Send(protocol.New(sender, protocol.TaskPullRequest)))

	msg, ok := tr.Accept()
	require.True(t, ok)
	assert.Equal(t, protocol.TaskPullRequest, msg.Cmd)

	_, ok = tr.Accept()
	assert.False(t, ok, "buffer drained")
}

func TestInProcess_RespondReceive(t *testing.T) {
	tr := New()
	sender := protocol.SenderMetadata{Index: "0", CarrierID: "c0"}

	done := make(chan protocol.Message, 1)
	go func() {
		msg, ok := tr.Receive()
		if ok {
			done <- msg
		} else {
			close(done)
		}
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, tr.Respond(protocol.New(sender, protocol.Ack)))

	select {
	case msg, ok := <-done:
		require.True(t, ok)
		assert.Equal(t, protocol.Ack, msg.Cmd)
	case <-time.After(time.Second):
		t.Fatal("receive did not unblock")
	}
}

func TestInProcess_ReceiveUnblocksOnInactive(t *testing.T) {
	tr := New()

	resultCh := make(chan bool, 1)
	go func() {
		_, ok := tr.Receive()
		resultCh <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	tr.SetActive(false)

	select {
	case ok := <-resultCh:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("receive did not unblock on deactivation")
	}
}

func TestSendAndReceive_HappyPath(t *testing.T) {
	tr := New()
	sender := protocol.SenderMetadata{Index: "0", CarrierID: "c0"}

	go func() {
		req, ok := tr.Accept()
		if !ok {
			return
		}
		_ = tr.Respond(protocol.New(req.Sender, protocol.Ack))
	}()

	expect := protocol.Ack
	msg, ok, err := SendAndReceive(tr, protocol.New(sender, protocol.Heartbeat), &expect)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, protocol.Ack, msg.Cmd)
}

func TestSendAndReceive_UnexpectedCmd(t *testing.T) {
	tr := New()
	sender := protocol.SenderMetadata{Index: "0", CarrierID: "c0"}

	go func() {
		req, ok := tr.Accept()
		if !ok {
			return
		}
		_ = tr.Respond(protocol.New(req.Sender, protocol.Stop))
	}()

	expect := protocol.Ack
	_, ok, err := SendAndReceive(tr, protocol.New(sender, protocol.Heartbeat), &expect)
	require.True(t, ok)
	require.ErrorIs(t, err, ErrUnexpectedCmd)
}

func TestSendAndReceive_InactiveShortCircuit(t *testing.T) {
	tr := New()
	tr.SetActive(false)
	sender := protocol.SenderMetadata{Index: "0", CarrierID: "c0"}

	_, ok, err := SendAndReceive(tr, protocol.New(sender, protocol.Heartbeat), nil)
	assert.NoError(t, err)
	assert.False(t, ok)
}
