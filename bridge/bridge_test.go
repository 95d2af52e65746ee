package bridge

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/craftwatch/core/console"
	"github.com/craftwatch/core/process"
	"github.com/craftwatch/core/rcon"
	"github.com/craftwatch/core/sched"

	"github.com/stretchr/testify/require"
)

func testProcessConfig(command ...string) process.Config {
	return process.Config{
		Command:     command,
		StartGrace:  200 * time.Millisecond,
		StopTimeout: time.Second,
	}
}

func TestBridgeCommandEcho(t *testing.T) {
	b, err := New(Config{
		Process: testProcessConfig("cat"),
	})
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Start())

	require.Eventually(t, func() bool {
		return b.State() == process.StateRunning
	}, 5*time.Second, 50*time.Millisecond)

	_, lastID := b.ReadConsole(0)

	require.NoError(t, b.Command("say hello"))

	require.Eventually(t, func() bool {
		entries, _ := b.ReadConsole(lastID)
		return len(entries) >= 2
	}, 5*time.Second, 50*time.Millisecond)

	entries, newLast := b.ReadConsole(lastID)

	require.Equal(t, console.OriginCommand, entries[0].Origin)
	require.Equal(t, "say hello", entries[0].Text)
	require.Equal(t, console.OriginStdout, entries[1].Origin)
	require.Greater(t, newLast, lastID)

	require.NoError(t, b.Stop(context.Background()))
}

func TestBridgeCommandNotRunning(t *testing.T) {
	b, err := New(Config{
		Process: testProcessConfig("cat"),
	})
	require.NoError(t, err)
	defer b.Close()

	err = b.Command("say hello")
	require.ErrorIs(t, err, process.ErrNotRunning)
}

func TestBridgePlayersFromConsole(t *testing.T) {
	join := `echo '[14:08:06 INFO]: Alice[/10.0.0.1:25565] logged in with entity id 687 at (0,0,0)'; sleep 5`

	b, err := New(Config{
		Process: testProcessConfig("sh", "-c", join),
	})
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Start())

	require.Eventually(t, func() bool {
		players := b.Players(context.Background())
		return len(players) == 1 && players[0].Name == "Alice"
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, b.Stop(context.Background()))
}

func TestBridgeRconUnavailable(t *testing.T) {
	b, err := New(Config{
		Process: testProcessConfig("cat"),
	})
	require.NoError(t, err)
	defer b.Close()

	_, err = b.RconCommand(context.Background(), "list")
	require.ErrorIs(t, err, ErrRconUnavailable)
}

func TestBridgeRconFallback(t *testing.T) {
	b, err := New(Config{
		Process:    testProcessConfig("cat"),
		RCONEnable: true,
		RCON: rcon.Config{
			// Nothing is listening here.
			Address: "127.0.0.1:1",
			Timeout: 200 * time.Millisecond,
		},
		RCONFallback: true,
	})
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Start())

	require.Eventually(t, func() bool {
		return b.State() == process.StateRunning
	}, 5*time.Second, 50*time.Millisecond)

	_, lastID := b.ReadConsole(0)

	response, err := b.RconCommand(context.Background(), "say hi")
	require.NoError(t, err)
	require.Empty(t, response)

	entries, _ := b.ReadConsole(lastID)
	require.NotEmpty(t, entries)
	require.Equal(t, console.OriginCommand, entries[0].Origin)
	require.Equal(t, "say hi", entries[0].Text)

	require.NoError(t, b.Stop(context.Background()))
}

func TestBridgePlayersFromRcon(t *testing.T) {
	addr := startListServer(t, "secret", "There are 2 of a max of 20 players online: Alice, Bob")

	b, err := New(Config{
		Process:    testProcessConfig("sleep", "10"),
		RCONEnable: true,
		RCON: rcon.Config{
			Address:  addr,
			Password: "secret",
			Timeout:  time.Second,
		},
	})
	require.NoError(t, err)
	defer b.Close()

	players := b.Players(context.Background())

	require.Len(t, players, 2)
	require.Equal(t, "Alice", players[0].Name)
	require.Equal(t, "Bob", players[1].Name)
	require.True(t, players[0].Online)
	require.True(t, players[1].Online)
}

func TestBridgePollDisabledAfterFailures(t *testing.T) {
	b, err := New(Config{
		Process:    testProcessConfig("sleep", "10"),
		RCONEnable: true,
		RCON: rcon.Config{
			Address: "127.0.0.1:1",
			Timeout: 100 * time.Millisecond,
		},
	})
	require.NoError(t, err)
	defer b.Close()

	for i := 0; i < 4; i++ {
		b.Players(context.Background())
	}

	require.True(t, b.pollDisabled())
}

func TestBridgeJobs(t *testing.T) {
	store := sched.NewDummyStore()

	b, err := New(Config{
		Process:        testProcessConfig("cat"),
		SchedulerStore: store,
	})
	require.NoError(t, err)
	defer b.Close()

	job, err := b.AddJob(sched.Job{
		Kind:     sched.KindInterval,
		Command:  "save-all",
		Enabled:  true,
		Interval: time.Hour,
	})
	require.NoError(t, err)

	jobs := b.Jobs()
	require.Len(t, jobs, 1)
	require.Equal(t, job.ID, jobs[0].ID)

	_, err = b.EnableJob(job.ID, false)
	require.NoError(t, err)

	got, err := b.Job(job.ID)
	require.NoError(t, err)
	require.False(t, got.Enabled)

	require.NoError(t, b.DeleteJob(job.ID))
	require.Empty(t, b.Jobs())
}

func TestBridgeJobDispatchNotRunning(t *testing.T) {
	b, err := New(Config{
		Process: testProcessConfig("cat"),
	})
	require.NoError(t, err)
	defer b.Close()

	err = b.dispatchJob("save-all")
	require.ErrorIs(t, err, process.ErrNotRunning)
}

// startListServer runs a minimal remote console endpoint that accepts any
// auth with the given password and answers every command with reply.
func startListServer(t *testing.T, password, reply string) string {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	t.Cleanup(func() {
		listener.Close()
	})

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}

			go func(conn net.Conn) {
				defer conn.Close()

				for {
					id, typ, payload, err := readRconPacket(conn)
					if err != nil {
						return
					}

					switch typ {
					case 3: // auth
						if payload == password {
							writeRconPacket(conn, id, 2, "")
						} else {
							writeRconPacket(conn, -1, 2, "")
						}
					case 2: // exec
						writeRconPacket(conn, id, 0, reply)
					}
				}
			}(conn)
		}
	}()

	return listener.Addr().String()
}

func readRconPacket(conn net.Conn) (int32, int32, string, error) {
	head := make([]byte, 4)
	if _, err := io.ReadFull(conn, head); err != nil {
		return 0, 0, "", err
	}

	size := int32(binary.LittleEndian.Uint32(head))

	body := make([]byte, size)
	if _, err := io.ReadFull(conn, body); err != nil {
		return 0, 0, "", err
	}

	id := int32(binary.LittleEndian.Uint32(body[0:4]))
	typ := int32(binary.LittleEndian.Uint32(body[4:8]))

	return id, typ, string(body[8 : size-2]), nil
}

func TestBridgeConsoleCursor(t *testing.T) {
	const total = 20000

	b, err := New(Config{
		Process:         testProcessConfig("cat"),
		ConsoleCapacity: total,
	})
	require.NoError(t, err)
	defer b.Close()

	go func() {
		for i := 0; i < total; i++ {
			b.buffer.Append(console.OriginStdout, "line")
		}
	}()

	received := 0
	cursor := uint64(0)

	deadline := time.Now().Add(10 * time.Second)

	for received < total && time.Now().Before(deadline) {
		entries, next := b.ReadConsole(cursor)

		for _, entry := range entries {
			require.Equal(t, cursor+1, entry.ID)
			cursor = entry.ID
		}

		received += len(entries)

		require.Equal(t, cursor, next)
	}

	require.Equal(t, total, received)
}

type recordingNotifier struct {
	lock   sync.Mutex
	titles []string
}

func (n *recordingNotifier) Notify(title, message string) {
	n.lock.Lock()
	defer n.lock.Unlock()

	n.titles = append(n.titles, title)
}

func (n *recordingNotifier) count(title string) int {
	n.lock.Lock()
	defer n.lock.Unlock()

	count := 0

	for _, t := range n.titles {
		if t == title {
			count++
		}
	}

	return count
}

func TestBridgeStopNotification(t *testing.T) {
	notifier := &recordingNotifier{}

	b, err := New(Config{
		Process:  testProcessConfig("cat"),
		Notifier: notifier,
	})
	require.NoError(t, err)
	defer b.Close()

	// Stopping an already stopped server is a no-op and must not notify.
	require.NoError(t, b.Stop(context.Background()))
	require.Equal(t, 0, notifier.count("Server stopped"))

	require.NoError(t, b.Start())

	require.Eventually(t, func() bool {
		return b.State() == process.StateRunning
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, b.Stop(context.Background()))
	require.Equal(t, 1, notifier.count("Server stopped"))

	require.NoError(t, b.Stop(context.Background()))
	require.Equal(t, 1, notifier.count("Server stopped"))
}

func writeRconPacket(conn net.Conn, id, typ int32, payload string) {
	size := int32(4 + 4 + len(payload) + 2)

	buf := make([]byte, 0, 4+size)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(size))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(id))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(typ))
	buf = append(buf, payload...)
	buf = append(buf, 0x00, 0x00)

	conn.Write(buf)
}
