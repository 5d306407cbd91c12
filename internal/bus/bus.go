// Package bus connects jarvis to a websocket message bus as a shard: text or
// audio requests come in, spoken replies go back out as text.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"jarvis/internal/dispatch"
	"jarvis/internal/voice"
)

const (
	DefaultShard = "jarvis"
	Broadcast    = "ALL"

	KindRequest = "request"
	KindReply   = "reply"
)

type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
	Audio   []byte `json:"audio,omitempty"`
}

var (
	ErrDisconnected = errors.New("bus connection lost")

	errMalformed = errors.New("malformed message")
)

// Decoder turns an encoded audio payload into mono 16 kHz PCM.
type Decoder func([]byte) ([]float32, error)

type Bus struct {
	conn  *websocket.Conn
	shard string

	decode Decoder
	tr     voice.Transcriber

	wmu      sync.Mutex
	lastFrom string

	lost     chan struct{}
	lostOnce sync.Once
	lostErr  error
}

// Dial connects to the bus. Audio requests need both decode and tr; without
// them only text requests are accepted.
func Dial(ctx context.Context, wsURL, shard string, decode Decoder, tr voice.Transcriber) (*Bus, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, err
	}
	if shard == "" {
		shard = DefaultShard
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}

	log.Info("Connected to bus", "url", wsURL, "shard", shard)
	return &Bus{conn: conn, shard: shard, decode: decode, tr: tr, lost: make(chan struct{})}, nil
}

// Lost is closed once the connection can no longer be read from.
func (b *Bus) Lost() <-chan struct{} { return b.lost }

// Err reports why the connection was lost, wrapping ErrDisconnected.
func (b *Bus) Err() error {
	select {
	case <-b.lost:
		return b.lostErr
	default:
		return nil
	}
}

func (b *Bus) fail(err error) {
	b.lostOnce.Do(func() {
		b.lostErr = fmt.Errorf("%w: %v", ErrDisconnected, err)
		log.Error("Bus connection lost", "err", err)
		close(b.lost)
	})
}

func (b *Bus) Close() error {
	return b.conn.Close()
}

func (b *Bus) addressed(m *Message) bool {
	return m.To == "" || m.To == b.shard || m.To == Broadcast
}

// Listen blocks until a request addressed to this shard arrives. Once the
// connection is lost it blocks until ctx is done; watch Lost to react.
func (b *Bus) Listen(ctx context.Context) (string, error) {
	select {
	case <-b.lost:
		<-ctx.Done()
		return "", ctx.Err()
	default:
	}

	stop := context.AfterFunc(ctx, func() {
		_ = b.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		m, err := b.read()
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if errors.Is(err, errMalformed) {
				log.Warn("Malformed bus message", "err", err)
				continue
			}
			// a failed websocket never reads again
			b.fail(err)
			<-ctx.Done()
			return "", ctx.Err()
		}

		if !b.addressed(m) || m.Kind == KindReply || m.From == b.shard {
			continue
		}

		b.wmu.Lock()
		b.lastFrom = m.From
		b.wmu.Unlock()

		if len(m.Audio) == 0 {
			return strings.TrimSpace(m.Content), nil
		}
		return b.transcribe(ctx, m.Audio)
	}
}

func (b *Bus) transcribe(ctx context.Context, payload []byte) (string, error) {
	if b.decode == nil || b.tr == nil {
		return "", fmt.Errorf("%w: audio requests are not supported", dispatch.ErrRecognizerService)
	}
	pcm, err := b.decode(payload)
	if err != nil {
		return "", fmt.Errorf("%w: decode audio: %v", dispatch.ErrUnrecognized, err)
	}
	log.Debug("Received audio message", "samples", len(pcm))
	return voice.Transcribe(ctx, b.tr, pcm)
}

func (b *Bus) read() (*Message, error) {
	_, raw, err := b.conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	return &m, nil
}

// Speak sends text as a reply to the shard that spoke last, or to everyone
// if nobody has.
func (b *Bus) Speak(text string) error {
	b.wmu.Lock()
	defer b.wmu.Unlock()

	to := b.lastFrom
	if to == "" {
		to = Broadcast
	}
	return b.write(&Message{From: b.shard, To: to, Kind: KindReply, Content: text})
}

func (b *Bus) write(m *Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	return b.conn.WriteMessage(websocket.TextMessage, data)
}
