package debugserve

import (
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentra/internal/disasm"
	"sentra/internal/value"
)

func TestTraceBroadcastsDecodedInstructionToConnectedClient(t *testing.T) {
	addr := "127.0.0.1:18181"
	srv := Start(addr)
	defer srv.Close()
	time.Sleep(50 * time.Millisecond)

	u := url.URL{Scheme: "ws", Host: addr, Path: "/"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	defer conn.Close()
	time.Sleep(20 * time.Millisecond)

	chunk := value.NewChunk()
	chunk.Write(byte(value.OpNil), 1)
	chunk.WriteOp(value.OpReturn, 1)

	srv.Trace(chunk, 0)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ins disasm.Instruction
	require.NoError(t, json.Unmarshal(msg, &ins))
	assert.Equal(t, "OP_NIL", ins.Name)
}

func TestTraceWithNoClientsDoesNotBlock(t *testing.T) {
	srv := Start("127.0.0.1:18182")
	defer srv.Close()

	chunk := value.NewChunk()
	chunk.WriteOp(value.OpReturn, 1)
	srv.Trace(chunk, 0)
}
