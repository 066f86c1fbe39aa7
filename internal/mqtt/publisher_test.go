package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"surfsup-server/internal/modules/climate/types"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func completedToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func pendingToken() *fakeToken { return &fakeToken{done: make(chan struct{})} }

func (t *fakeToken) Wait() bool { <-t.done; return true }

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient implements the parts of mqtt.Client the publisher uses.
type fakeClient struct {
	mqtt.Client

	mu           sync.Mutex
	connected    bool
	connectToken *fakeToken
	publishErr   error
	messages     []published
	disconnects  int
}

func (c *fakeClient) Connect() mqtt.Token {
	if c.connectToken.err == nil {
		c.mu.Lock()
		c.connected = true
		c.mu.Unlock()
	}
	return c.connectToken
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, published{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return completedToken(c.publishErr)
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.disconnects++
}

func testPublisher(client *fakeClient) *Publisher {
	p := newPublisher("surfsup/status", slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.client = client
	return p
}

func testSummary() types.Summary {
	return types.Summary{
		ReferenceDate: "2017-08-23",
		WindowStart:   "2016-08-23",
		Stations:      9,
		Measurements:  19550,
		MostActive:    &types.StationActivity{Station: "USC00519281", Count: 2772},
		GeneratedAt:   time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
	}
}

func TestPublishStatus_retainedJSON(t *testing.T) {
	client := &fakeClient{connectToken: completedToken(nil)}
	p := testPublisher(client)

	if err := p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() = %v", err)
	}
	if err := p.PublishStatus(testSummary()); err != nil {
		t.Fatalf("PublishStatus() = %v", err)
	}

	if len(client.messages) != 1 {
		t.Fatalf("published %d messages; want 1", len(client.messages))
	}
	msg := client.messages[0]
	if msg.topic != "surfsup/status" || msg.qos != 1 || !msg.retained {
		t.Errorf("message = topic %q qos %d retained %v; want surfsup/status, 1, true", msg.topic, msg.qos, msg.retained)
	}

	var got types.Summary
	if err := json.Unmarshal(msg.payload, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got.ReferenceDate != "2017-08-23" || got.Measurements != 19550 {
		t.Errorf("payload = %+v", got)
	}
	if got.MostActive == nil || got.MostActive.Station != "USC00519281" {
		t.Errorf("most_active = %+v; want USC00519281", got.MostActive)
	}
}

func TestPublishStatus_notConnected(t *testing.T) {
	client := &fakeClient{connectToken: completedToken(nil)}
	p := testPublisher(client)

	if err := p.PublishStatus(testSummary()); err == nil {
		t.Fatal("PublishStatus() before Connect = nil; want error")
	}
	if len(client.messages) != 0 {
		t.Errorf("published %d messages while disconnected", len(client.messages))
	}
}

func TestPublishStatus_brokerError(t *testing.T) {
	boom := errors.New("not authorized")
	client := &fakeClient{connectToken: completedToken(nil), publishErr: boom}
	p := testPublisher(client)

	if err := p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() = %v", err)
	}
	if err := p.PublishStatus(testSummary()); !errors.Is(err, boom) {
		t.Errorf("PublishStatus() = %v; want %v", err, boom)
	}
}

func TestConnect_error(t *testing.T) {
	boom := errors.New("connection refused")
	p := testPublisher(&fakeClient{connectToken: completedToken(boom)})

	if err := p.Connect(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Connect() = %v; want %v", err, boom)
	}
	if p.IsConnected() {
		t.Error("IsConnected() = true after failed connect")
	}
}

func TestConnect_contextDeadline(t *testing.T) {
	p := testPublisher(&fakeClient{connectToken: pendingToken()})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := p.Connect(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Connect() = %v; want %v", err, context.DeadlineExceeded)
	}
}

func TestDisconnect_idempotent(t *testing.T) {
	client := &fakeClient{connectToken: completedToken(nil)}
	p := testPublisher(client)

	if err := p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() = %v", err)
	}
	p.Disconnect()
	p.Disconnect()

	if p.IsConnected() {
		t.Error("IsConnected() = true after Disconnect")
	}
	if client.disconnects != 2 {
		t.Errorf("client.Disconnect called %d times; want 2", client.disconnects)
	}
	if err := p.Connect(context.Background()); err == nil {
		t.Error("Connect() after Disconnect = nil; want error")
	}
}
