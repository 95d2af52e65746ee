// Package rcon implements a client for the binary remote console protocol
// spoken by most game servers. It is independent of the supervised
// process's stdio and is used for commands that must return a
// deterministic reply.
package rcon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/craftwatch/core/log"
)

// Config is the configuration of an RCON client.
type Config struct {
	Address  string        // host:port of the remote console listener.
	Password string        // Password sent in the auth handshake.
	Timeout  time.Duration // Per-request deadline, connect included.

	// ListCommand is the command issued by Players. Defaults to "list".
	ListCommand string

	// ParseList turns the textual reply of ListCommand into player
	// names. It must fail soft: an unexpected format yields an empty
	// list, never an error. Defaults to ParseListResponse.
	ParseList func(response string) []string

	Logger log.Logger
}

// Client talks to one remote console. A session is established lazily on
// the first request and reused until a protocol error tears it down. At
// most one request is in flight at a time; the protocol has no correlation
// discipline for multiplexed requests on one connection.
type Client struct {
	address     string
	password    string
	timeout     time.Duration
	listCommand string
	parseList   func(string) []string
	logger      log.Logger

	lock   sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	reqID  int32
}

// New returns a new RCON client. The session is not connected yet.
func New(config Config) *Client {
	c := &Client{
		address:     config.Address,
		password:    config.Password,
		timeout:     config.Timeout,
		listCommand: config.ListCommand,
		parseList:   config.ParseList,
		logger:      config.Logger,
	}

	if c.timeout <= 0 {
		c.timeout = 3 * time.Second
	}

	if len(c.listCommand) == 0 {
		c.listCommand = "list"
	}

	if c.parseList == nil {
		c.parseList = ParseListResponse
	}

	if c.logger == nil {
		c.logger = log.New("RCON")
	}

	return c
}

// Execute sends a command and blocks until the response bearing the same
// request id arrives or the deadline expires. On any protocol error the
// session is torn down and recreated on the next call; a desynchronized
// binary stream can't be trusted after a partial read.
func (c *Client) Execute(ctx context.Context, command string) (string, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if c.conn == nil {
		if err := c.connect(deadline); err != nil {
			return "", err
		}
	}

	c.conn.SetDeadline(deadline)

	id := c.nextID()

	if err := writePacket(c.conn, packet{id: id, typ: typeExecCommand, payload: command}); err != nil {
		c.teardown()
		return "", c.wrap(err)
	}

	// Replies may span several packets. Collect bodies until the packet
	// bearing our request id arrives.
	bodies := []string{}

	for {
		p, err := readPacket(c.reader)
		if err != nil {
			c.teardown()
			return "", c.wrap(err)
		}

		bodies = append(bodies, p.payload)

		if p.id == id {
			break
		}

		if p.id > id {
			c.teardown()
			return "", fmt.Errorf("%w: unexpected request id %d", ErrDesync, p.id)
		}
	}

	return strings.Join(bodies, "\n"), nil
}

// Players issues the list-players command and parses its reply. Transport
// errors are returned, parse failures are not: an unexpected reply format
// yields an empty list.
func (c *Client) Players(ctx context.Context) ([]string, error) {
	response, err := c.Execute(ctx, c.listCommand)
	if err != nil {
		return nil, err
	}

	return c.parseList(response), nil
}

// Close tears the session down. The client stays usable, the next request
// reconnects.
func (c *Client) Close() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.teardown()
}

// connect dials the remote console and performs the auth handshake. The
// server echoes the auth packet's request id on success and replies with
// id -1 on failure.
func (c *Client) connect(deadline time.Time) error {
	dialer := net.Dialer{Deadline: deadline}

	conn, err := dialer.Dial("tcp", c.address)
	if err != nil {
		return c.wrap(err)
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)

	c.conn.SetDeadline(deadline)

	id := c.nextID()

	if err := writePacket(c.conn, packet{id: id, typ: typeAuth, payload: c.password}); err != nil {
		c.teardown()
		return c.wrap(err)
	}

	// Some servers send an empty response value packet ahead of the
	// actual auth response.
	for {
		p, err := readPacket(c.reader)
		if err != nil {
			c.teardown()
			return c.wrap(err)
		}

		if p.typ == typeResponseValue && p.id == id {
			continue
		}

		if p.typ != typeAuthResponse {
			c.teardown()
			return fmt.Errorf("%w: unexpected packet type %d during auth", ErrDesync, p.typ)
		}

		if p.id == -1 {
			c.teardown()
			return ErrAuthFailed
		}

		if p.id != id {
			c.teardown()
			return fmt.Errorf("%w: auth response for unknown request id %d", ErrDesync, p.id)
		}

		break
	}

	c.logger.Debug().WithField("address", c.address).Log("Session established")

	return nil
}

func (c *Client) teardown() {
	if c.conn != nil {
		c.conn.Close()
	}

	c.conn = nil
	c.reader = nil
}

func (c *Client) nextID() int32 {
	c.reqID++
	return c.reqID
}

// wrap maps transport errors to the package's error taxonomy.
func (c *Client) wrap(err error) error {
	if errors.Is(err, ErrDesync) {
		return err
	}

	var neterr net.Error
	if errors.As(err, &neterr) && neterr.Timeout() {
		return fmt.Errorf("%w: %s", ErrTimeout, err)
	}

	return err
}

// ParseListResponse parses the conventional reply to the "list" command,
// "There are 2 of a max of 20 players online: Alice, Bob". The parse is
// best-effort; anything unexpected yields an empty list.
func ParseListResponse(response string) []string {
	_, names, found := strings.Cut(response, ":")
	if !found {
		return []string{}
	}

	players := []string{}

	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if len(name) != 0 {
			players = append(players, name)
		}
	}

	return players
}
