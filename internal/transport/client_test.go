package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer accepts one websocket connection and hands it to the test.
func fakeServer(t *testing.T) (string, <-chan *websocket.Conn) {
	t.Helper()
	conns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/showdown/websocket" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/showdown/websocket", conns
}

func accept(t *testing.T, conns <-chan *websocket.Conn) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-conns:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(5 * time.Second):
		t.Fatal("no connection")
		return nil
	}
}

func dialTest(t *testing.T) (*Client, *websocket.Conn) {
	t.Helper()
	url, conns := fakeServer(t)
	c, err := Dial(context.Background(), url, zerolog.Nop())
	require.NoError(t, err)
	return c, accept(t, conns)
}

func TestDial_BadURL(t *testing.T) {
	url, _ := fakeServer(t)
	_, err := Dial(context.Background(), strings.Replace(url, "/showdown/websocket", "/nope", 1), zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestClient_WritePrefixesGlobalRoom(t *testing.T) {
	c, server := dialTest(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx, func(string) {})

	require.NoError(t, c.Write("/join lobby"))
	require.NoError(t, c.Write("/trn bot,0,token"))

	server.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := server.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "|/join lobby", string(msg))

	_, msg, err = server.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "|/trn bot,0,token", string(msg))
}

func TestClient_RunDeliversFramesInOrder(t *testing.T) {
	c, server := dialTest(t)

	frames := make(chan string, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx, func(frame string) { frames <- frame })

	sent := []string{
		"|challstr|4|abc",
		">lobby\n|init|chat\n|title|Lobby",
		"|updateuser| bot|1|1|{}",
	}
	for _, frame := range sent {
		require.NoError(t, server.WriteMessage(websocket.TextMessage, []byte(frame)))
	}

	for _, want := range sent {
		select {
		case got := <-frames:
			assert.Equal(t, want, got)
		case <-time.After(5 * time.Second):
			t.Fatalf("missing frame %q", want)
		}
	}
}

func TestClient_CancelStopsRun(t *testing.T) {
	c, _ := dialTest(t)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx, func(string) {}) }()

	cancel()
	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop")
	}
	assert.ErrorIs(t, c.Write("/join lobby"), ErrClosed)
}

func TestClient_ServerCloseFailsRun(t *testing.T) {
	c, server := dialTest(t)

	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(context.Background(), func(string) {}) }()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	require.NoError(t, server.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)))

	select {
	case err := <-runErr:
		var closeErr *websocket.CloseError
		require.ErrorAs(t, err, &closeErr)
		assert.Equal(t, websocket.CloseNormalClosure, closeErr.Code)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop")
	}
}

func TestClient_WriteDoesNotBlockWhenBufferFull(t *testing.T) {
	c, _ := dialTest(t)
	defer c.Close()

	// Without Run nothing drains the buffer.
	for i := 0; i < sendBufferSize; i++ {
		require.NoError(t, c.Write("move 1"))
	}
	assert.ErrorIs(t, c.Write("move 1"), ErrSendBufferFull)
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	c, _ := dialTest(t)
	c.Close()
	assert.NoError(t, c.Close())
	assert.ErrorIs(t, c.Write("x"), ErrClosed)
}

func TestClient_ServerDropFailsRunPromptly(t *testing.T) {
	c, server := dialTest(t)

	runErr := make(chan error, 1)
	start := time.Now()
	go func() { runErr <- c.Run(context.Background(), func(string) {}) }()

	// No close frame: the TCP connection just goes away.
	server.UnderlyingConn().Close()

	select {
	case err := <-runErr:
		require.Error(t, err)
		assert.Less(t, time.Since(start), pingInterval)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not report the lost connection")
	}
}
