package client

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ArtAndreev/timed-computing-service/codec"
	"github.com/ArtAndreev/timed-computing-service/task"
)

// Client is one connection to the computing service.
type Client struct {
	name string

	conn net.Conn
	r    *bufio.Reader

	mu  sync.Mutex
	buf bytes.Buffer
}

func Dial(ctx context.Context, name, addr string) (*Client, error) {
	var d net.Dialer

	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("cannot dial %s: %w", addr, err)
	}

	return New(name, conn), nil
}

func New(name string, conn net.Conn) *Client {
	return &Client{
		name: name,

		conn: conn,
		r:    bufio.NewReader(conn),
	}
}

func (c *Client) GetName() string {
	return c.name
}

// Send writes one request frame. It is safe to call concurrently with Recv.
func (c *Client) Send(req task.Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.buf.Reset()
	codec.EncodeRequest(req, &c.buf)

	if _, err := c.conn.Write(c.buf.Bytes()); err != nil {
		return fmt.Errorf("cannot send request %d: %w", req.ID, err)
	}

	return nil
}

// Recv blocks until the next response line arrives.
func (c *Client) Recv() (task.Response, error) {
	line, err := c.r.ReadBytes('\n')
	if err != nil {
		return task.Response{}, err
	}

	return codec.ParseResponse(line)
}

// CloseWrite tells the service no more requests follow, responses can still be read.
func (c *Client) CloseWrite() error {
	if cw, ok := c.conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}

	return nil
}

func (c *Client) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

func (c *Client) Close() error {
	return c.conn.Close()
}
