package rcon

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// mockServer is a minimal in-process remote console server. It accepts
// one connection at a time and answers auth and exec packets.
type mockServer struct {
	listener net.Listener
	password string

	// respond answers an exec command. Returning false suppresses the
	// reply entirely.
	respond func(conn net.Conn, id int32, command string) bool
}

func newMockServer(t *testing.T, password string) *mockServer {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &mockServer{
		listener: listener,
		password: password,
	}

	t.Cleanup(func() {
		listener.Close()
	})

	go s.serve()

	return s
}

func (s *mockServer) addr() string {
	return s.listener.Addr().String()
}

func (s *mockServer) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}

		go s.handle(conn)
	}
}

func (s *mockServer) handle(conn net.Conn) {
	defer conn.Close()

	for {
		p, err := readPacket(conn)
		if err != nil {
			return
		}

		switch p.typ {
		case typeAuth:
			if p.payload == s.password {
				writePacket(conn, packet{id: p.id, typ: typeResponseValue})
				writePacket(conn, packet{id: p.id, typ: typeAuthResponse})
			} else {
				writePacket(conn, packet{id: -1, typ: typeAuthResponse})
				return
			}
		case typeExecCommand:
			if s.respond != nil {
				if !s.respond(conn, p.id, p.payload) {
					continue
				}
			} else {
				writePacket(conn, packet{id: p.id, typ: typeResponseValue})
			}
		}
	}
}

func TestExecute(t *testing.T) {
	server := newMockServer(t, "hunter2")
	server.respond = func(conn net.Conn, id int32, command string) bool {
		require.Equal(t, "list", command)
		writePacket(conn, packet{id: id, typ: typeResponseValue, payload: "There are 2 of a max of 20 players online: Alice, Bob"})
		return true
	}

	client := New(Config{
		Address:  server.addr(),
		Password: "hunter2",
		Timeout:  time.Second,
	})

	response, err := client.Execute(context.Background(), "list")
	require.NoError(t, err)
	require.Equal(t, "There are 2 of a max of 20 players online: Alice, Bob", response)
}

func TestPlayers(t *testing.T) {
	server := newMockServer(t, "hunter2")
	server.respond = func(conn net.Conn, id int32, command string) bool {
		writePacket(conn, packet{id: id, typ: typeResponseValue, payload: "There are 2 of a max of 20 players online: Alice, Bob"})
		return true
	}

	client := New(Config{
		Address:  server.addr(),
		Password: "hunter2",
		Timeout:  time.Second,
	})

	players, err := client.Players(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"Alice", "Bob"}, players)
}

func TestAuthFailed(t *testing.T) {
	server := newMockServer(t, "hunter2")

	client := New(Config{
		Address:  server.addr(),
		Password: "wrong",
		Timeout:  time.Second,
	})

	_, err := client.Execute(context.Background(), "list")
	require.ErrorIs(t, err, ErrAuthFailed)

	// The failed session is not reused, the next call authenticates
	// again and fails again.
	_, err = client.Execute(context.Background(), "list")
	require.ErrorIs(t, err, ErrAuthFailed)
}

func TestTimeout(t *testing.T) {
	server := newMockServer(t, "hunter2")
	server.respond = func(conn net.Conn, id int32, command string) bool {
		return false
	}

	client := New(Config{
		Address:  server.addr(),
		Password: "hunter2",
		Timeout:  200 * time.Millisecond,
	})

	_, err := client.Execute(context.Background(), "list")
	require.ErrorIs(t, err, ErrTimeout)

	// The session has been torn down, a new request works again once
	// the server responds.
	server.respond = nil

	_, err = client.Execute(context.Background(), "list")
	require.NoError(t, err)
}

func TestSplitReads(t *testing.T) {
	server := newMockServer(t, "hunter2")
	server.respond = func(conn net.Conn, id int32, command string) bool {
		buf := &bytes.Buffer{}
		writePacket(buf, packet{id: id, typ: typeResponseValue, payload: "split across reads"})

		data := buf.Bytes()

		conn.Write(data[:5])
		time.Sleep(50 * time.Millisecond)
		conn.Write(data[5:])

		return true
	}

	client := New(Config{
		Address:  server.addr(),
		Password: "hunter2",
		Timeout:  time.Second,
	})

	response, err := client.Execute(context.Background(), "say hi")
	require.NoError(t, err)
	require.Equal(t, "split across reads", response)
}

func TestMultiPacketResponse(t *testing.T) {
	server := newMockServer(t, "hunter2")
	server.respond = func(conn net.Conn, id int32, command string) bool {
		writePacket(conn, packet{id: id - 1000, typ: typeResponseValue, payload: "first"})
		writePacket(conn, packet{id: id, typ: typeResponseValue, payload: "second"})
		return true
	}

	client := New(Config{
		Address:  server.addr(),
		Password: "hunter2",
		Timeout:  time.Second,
	})

	response, err := client.Execute(context.Background(), "info")
	require.NoError(t, err)
	require.Equal(t, "first\nsecond", response)
}

func TestDesync(t *testing.T) {
	server := newMockServer(t, "hunter2")
	server.respond = func(conn net.Conn, id int32, command string) bool {
		conn.Write([]byte{0x01, 0x00, 0x00, 0x00, 0xff, 0xff})
		return true
	}

	client := New(Config{
		Address:  server.addr(),
		Password: "hunter2",
		Timeout:  time.Second,
	})

	_, err := client.Execute(context.Background(), "list")
	require.ErrorIs(t, err, ErrDesync)
}

func TestParseListResponse(t *testing.T) {
	players := ParseListResponse("There are 2 of a max of 20 players online: Alice, Bob")
	require.Equal(t, []string{"Alice", "Bob"}, players)

	players = ParseListResponse("There are 0 of a max of 20 players online:")
	require.Empty(t, players)

	// Unexpected formats fail soft.
	require.Empty(t, ParseListResponse(""))
	require.Empty(t, ParseListResponse("some unrelated chatter"))
}
