package conn

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/ValentinKolb/dIPC/ipc/frame"
	"github.com/ValentinKolb/dIPC/ipc/socket"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type receivedMessage struct {
	msgType int64
	payload []byte
}

// peerHarness wires a PeerConnection to the server end of a pipe and gives
// the test the raw client end to write frames into.
type peerHarness struct {
	client net.Conn
	peer   *PeerConnection

	messages chan receivedMessage
	errs     chan error
	loopDone chan struct{}
}

func newPeerHarness(t *testing.T) *peerHarness {
	t.Helper()

	clientEnd, serverEnd := net.Pipe()
	h := &peerHarness{
		client:   clientEnd,
		messages: make(chan receivedMessage, 16),
		errs:     make(chan error, 1),
		loopDone: make(chan struct{}),
	}

	h.peer = NewPeer(
		testConfig(),
		socket.New(serverEnd),
		func(p *PeerConnection, msgType int64, payload []byte) {
			h.messages <- receivedMessage{msgType: msgType, payload: bytes.Clone(payload)}
		},
		func(p *PeerConnection, err error) {
			h.errs <- err
		},
		"test-worker",
		[]string{"Register", "Echo"},
	)

	go func() {
		defer close(h.loopDone)
		h.peer.ProcessMessages()
	}()

	t.Cleanup(func() {
		_ = h.client.Close()
		_ = h.peer.Close()
		<-h.loopDone
	})
	return h
}

// writeRawFrame writes one frame with an arbitrary cookie through the raw
// client end, bypassing the Connection write path.
func (h *peerHarness) writeRawFrame(t *testing.T, cookie uint64, msgType int64, payload []byte) {
	t.Helper()
	header := frame.Header{Cookie: cookie, Type: msgType, Length: uint64(len(payload))}
	buf := header.Append(make([]byte, 0, frame.HeaderSize+len(payload)))
	buf = append(buf, payload...)
	_, err := h.client.Write(buf)
	require.NoError(t, err)
}

func (h *peerHarness) expectMessage(t *testing.T) receivedMessage {
	t.Helper()
	select {
	case m := <-h.messages:
		return m
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message dispatch")
		return receivedMessage{}
	}
}

func (h *peerHarness) expectError(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.errs:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for connection error")
		return nil
	}
}

func TestProcessMessagesDispatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newPeerHarness(t)

	frames := []receivedMessage{
		{msgType: 0, payload: []byte("register")},
		{msgType: 1, payload: nil},
		{msgType: 7, payload: []byte{0x00, 0xff, 0x00}},
	}
	for _, f := range frames {
		h.writeRawFrame(t, testCookie, f.msgType, f.payload)
	}

	// Frames are dispatched in arrival order, one at a time.
	for _, want := range frames {
		got := h.expectMessage(t)
		require.Equal(t, want.msgType, got.msgType)
		require.True(t, bytes.Equal(want.payload, got.payload))
	}

	// Closing the remote end delivers exactly one error and ends the loop.
	require.NoError(t, h.client.Close())
	require.ErrorIs(t, h.expectError(t), io.EOF)
	<-h.loopDone

	select {
	case err := <-h.errs:
		t.Fatalf("duplicate error notification: %v", err)
	default:
	}
}

func TestCookieMismatchFromUnidentifiedPeer(t *testing.T) {
	// The read loop keeps running past the end of the test body and is only
	// stopped by the harness cleanup, so verify leaks after cleanups run.
	t.Cleanup(func() { goleak.VerifyNone(t) })

	h := newPeerHarness(t)
	require.False(t, h.peer.Registered())

	// A wrong-cookie frame from an unidentified peer is consumed and
	// dropped; the loop keeps going.
	h.writeRawFrame(t, testCookie^1, 3, []byte("bogus"))
	h.writeRawFrame(t, testCookie, 4, []byte("good"))

	got := h.expectMessage(t)
	require.Equal(t, int64(4), got.msgType)
	require.Equal(t, []byte("good"), got.payload)

	select {
	case m := <-h.messages:
		t.Fatalf("wrong-cookie frame was dispatched: %+v", m)
	default:
	}
}

func TestCookieMismatchFromRegisteredPeerIsFatal(t *testing.T) {
	defer goleak.VerifyNone(t)

	fatalCh := make(chan string, 1)
	origFatalf := fatalf
	fatalf = func(format string, args ...interface{}) {
		fatalCh <- fmt.Sprintf(format, args...)
	}
	defer func() { fatalf = origFatalf }()

	h := newPeerHarness(t)
	h.peer.Register()
	require.True(t, h.peer.Registered())

	h.writeRawFrame(t, testCookie^1, 3, nil)

	select {
	case msg := <-fatalCh:
		require.Contains(t, msg, "test-worker")
	case <-time.After(5 * time.Second):
		t.Fatal("fatal path not taken")
	}

	// The loop stopped: nothing was dispatched and no error-handler call
	// was made for the integrity violation.
	<-h.loopDone
	select {
	case m := <-h.messages:
		t.Fatalf("frame dispatched after fatal cookie mismatch: %+v", m)
	case err := <-h.errs:
		t.Fatalf("unexpected error-handler invocation: %v", err)
	default:
	}
}

func TestOversizedHeaderStopsReadLoop(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newPeerHarness(t)

	header := frame.Header{
		Cookie: testCookie,
		Type:   1,
		Length: testConfig().MaxMessageSize + 1,
	}
	_, err := h.client.Write(header.Append(nil))
	require.NoError(t, err)

	var oversize *frame.OversizeError
	require.ErrorAs(t, h.expectError(t), &oversize)
	<-h.loopDone

	select {
	case m := <-h.messages:
		t.Fatalf("oversized frame was dispatched: %+v", m)
	default:
	}
}

func TestRegisterIsOneWay(t *testing.T) {
	defer goleak.VerifyNone(t)

	a, b := net.Pipe()
	defer a.Close()

	peer := NewPeer(
		testConfig(),
		socket.New(b),
		func(*PeerConnection, int64, []byte) {},
		func(*PeerConnection, error) {},
		"worker",
		nil,
	)
	defer peer.Close()

	require.False(t, peer.Registered())
	peer.Register()
	require.True(t, peer.Registered())
	peer.Register()
	require.True(t, peer.Registered())
	require.Equal(t, "worker", peer.DebugLabel())
}

func TestPeerEchoOverConnection(t *testing.T) {
	defer goleak.VerifyNone(t)

	clientEnd, serverEnd := net.Pipe()
	client := New(testConfig(), socket.New(clientEnd))
	defer client.Close()

	loopDone := make(chan struct{})
	peer := NewPeer(
		testConfig(),
		socket.New(serverEnd),
		func(p *PeerConnection, msgType int64, payload []byte) {
			p.Register()
			p.WriteMessageAsync(msgType, payload, nil)
		},
		func(*PeerConnection, error) {},
		"echo",
		nil,
	)
	defer peer.Close()

	go func() {
		defer close(loopDone)
		peer.ProcessMessages()
	}()

	for i := 0; i < 10; i++ {
		payload := bytes.Repeat([]byte{byte(i)}, i*100)
		require.NoError(t, client.WriteMessage(int64(i), payload))

		header, reply, err := client.ReadMessage()
		require.NoError(t, err)
		require.Equal(t, int64(i), header.Type)
		require.True(t, bytes.Equal(payload, reply))
	}

	require.NoError(t, client.Close())
	<-loopDone
}
