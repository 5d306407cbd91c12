package bus

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarvis/internal/dispatch"
	"jarvis/internal/handler"
	"jarvis/internal/intent"
)

type hub struct {
	conns chan *websocket.Conn
}

func newHub(t *testing.T) (*hub, string) {
	t.Helper()
	h := &hub{conns: make(chan *websocket.Conn, 1)}
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.conns <- c
	}))
	t.Cleanup(srv.Close)
	return h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func (h *hub) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-h.conns:
		t.Cleanup(func() { c.Close() })
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no connection")
		return nil
	}
}

type fakeTranscriber struct{ text string }

func (f fakeTranscriber) Transcribe(context.Context, []float32) (string, error) {
	return f.text, nil
}

func TestListenAndReply(t *testing.T) {
	h, url := newHub(t)
	ctx := context.Background()

	b, err := Dial(ctx, url, "", nil, nil)
	require.NoError(t, err)
	defer b.Close()
	peer := h.accept(t)

	require.NoError(t, peer.WriteJSON(Message{From: "phone", To: "other", Content: "not for us"}))
	require.NoError(t, peer.WriteJSON(Message{From: "phone", To: "jarvis", Kind: KindReply, Content: "echo"}))
	require.NoError(t, peer.WriteJSON(Message{From: "phone", To: "jarvis", Kind: KindRequest, Content: " open firefox "}))

	text, err := b.Listen(ctx)
	require.NoError(t, err)
	assert.Equal(t, "open firefox", text)

	require.NoError(t, b.Speak("Opened firefox"))

	var reply Message
	require.NoError(t, peer.ReadJSON(&reply))
	assert.Equal(t, Message{From: "jarvis", To: "phone", Kind: KindReply, Content: "Opened firefox"}, reply)
}

func TestSpeakBeforeAnyRequestBroadcasts(t *testing.T) {
	h, url := newHub(t)
	b, err := Dial(context.Background(), url, "kitchen", nil, nil)
	require.NoError(t, err)
	defer b.Close()
	peer := h.accept(t)

	require.NoError(t, b.Speak("Reminder: tea"))

	var reply Message
	require.NoError(t, peer.ReadJSON(&reply))
	assert.Equal(t, Broadcast, reply.To)
	assert.Equal(t, "kitchen", reply.From)
}

func TestListenAudio(t *testing.T) {
	h, url := newHub(t)
	ctx := context.Background()

	decode := func(b []byte) ([]float32, error) {
		if string(b) == "bad" {
			return nil, errors.New("unsupported")
		}
		return []float32{0.1}, nil
	}
	b, err := Dial(ctx, url, "", decode, fakeTranscriber{text: "what is 2 plus 2"})
	require.NoError(t, err)
	defer b.Close()
	peer := h.accept(t)

	require.NoError(t, peer.WriteJSON(Message{From: "phone", Audio: []byte("RIFF....")}))
	text, err := b.Listen(ctx)
	require.NoError(t, err)
	assert.Equal(t, "what is 2 plus 2", text)

	require.NoError(t, peer.WriteJSON(Message{From: "phone", Audio: []byte("bad")}))
	_, err = b.Listen(ctx)
	assert.ErrorIs(t, err, dispatch.ErrUnrecognized)
}

func TestListenAudioUnsupported(t *testing.T) {
	h, url := newHub(t)
	b, err := Dial(context.Background(), url, "", nil, nil)
	require.NoError(t, err)
	defer b.Close()
	peer := h.accept(t)

	require.NoError(t, peer.WriteJSON(Message{From: "phone", Audio: []byte("x")}))
	_, err = b.Listen(context.Background())
	assert.ErrorIs(t, err, dispatch.ErrRecognizerService)
}

func TestListenSkipsMalformed(t *testing.T) {
	h, url := newHub(t)
	b, err := Dial(context.Background(), url, "", nil, nil)
	require.NoError(t, err)
	defer b.Close()
	peer := h.accept(t)

	require.NoError(t, peer.WriteMessage(websocket.TextMessage, []byte("{not json")))
	require.NoError(t, peer.WriteJSON(Message{From: "phone", Content: "hello"}))

	text, err := b.Listen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestListenCancel(t *testing.T) {
	h, url := newHub(t)
	b, err := Dial(context.Background(), url, "", nil, nil)
	require.NoError(t, err)
	defer b.Close()
	h.accept(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = b.Listen(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestListenAfterAbruptDisconnect(t *testing.T) {
	h, url := newHub(t)
	b, err := Dial(context.Background(), url, "", nil, nil)
	require.NoError(t, err)
	defer b.Close()
	peer := h.accept(t)

	require.NoError(t, peer.UnderlyingConn().Close())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = b.Listen(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case <-b.Lost():
	default:
		t.Fatal("connection not reported lost")
	}
	assert.ErrorIs(t, b.Err(), ErrDisconnected)

	// later calls do not touch the failed connection again
	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	_, err = b.Listen(ctx2)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestListenAfterCloseFrame(t *testing.T) {
	h, url := newHub(t)
	b, err := Dial(context.Background(), url, "", nil, nil)
	require.NoError(t, err)
	defer b.Close()
	peer := h.accept(t)

	require.NoError(t, peer.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))

	select {
	case <-b.Lost():
		t.Fatal("lost before reading")
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = b.Listen(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, b.Err(), ErrDisconnected)
}

type countingListener struct {
	*Bus
	calls atomic.Int64
}

func (c *countingListener) Listen(ctx context.Context) (string, error) {
	c.calls.Add(1)
	return c.Bus.Listen(ctx)
}

type echoProcessor struct{}

func (echoProcessor) Process(_ context.Context, text string) (intent.Intent, handler.Response) {
	return intent.Chat, handler.Say(text)
}

func TestLoopIdlesAfterDisconnect(t *testing.T) {
	h, url := newHub(t)
	b, err := Dial(context.Background(), url, "", nil, nil)
	require.NoError(t, err)
	defer b.Close()
	peer := h.accept(t)

	require.NoError(t, peer.UnderlyingConn().Close())

	in := &countingListener{Bus: b}
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, dispatch.NewLoop(in, b, echoProcessor{}).Run(ctx))
	assert.LessOrEqual(t, in.calls.Load(), int64(2))
}
