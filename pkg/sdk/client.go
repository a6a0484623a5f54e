// Package sdk provides the client-side library for reading the Celerix
// compliance portal. It supports remote connections via TCP/TLS and an
// embedded mode that runs the portal in-process.
package sdk

import (
	"bufio"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/celerix-dev/celerix-compliance/pkg/query"
)

// Client is a remote client for the portal daemon.
// It implements the PortalStore interface.
type Client struct {
	addr   string
	useTLS bool
	conn   net.Conn
	reader *bufio.Reader
	mu     sync.Mutex // Protects concurrent access to the connection
}

var _ PortalStore = (*Client)(nil)

// Connect establishes a TLS-encrypted connection to a remote daemon.
// If CELERIX_DISABLE_TLS is set to "true", it falls back to plain TCP.
func Connect(addr string) (*Client, error) {
	return Dial(addr, os.Getenv("CELERIX_DISABLE_TLS") != "true")
}

// Dial connects to addr, with or without TLS.
func Dial(addr string, useTLS bool) (*Client, error) {
	c := &Client{addr: addr, useTLS: useTLS}
	if err := c.reconnect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) reconnect() error {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	var conn net.Conn
	var err error

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 60 * time.Second,
	}

	if c.useTLS {
		config := &tls.Config{
			InsecureSkipVerify: true, // self-signed certs for internal traffic
		}
		conn, err = tls.DialWithDialer(dialer, "tcp", c.addr, config)
	} else {
		conn, err = dialer.Dial("tcp", c.addr)
	}

	if err != nil {
		return err
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

// remoteError maps a server "ERR" message back to the sentinel it carries.
func remoteError(msg string) error {
	for _, sentinel := range []error{ErrNotFound, ErrUnknownDataset} {
		if strings.Contains(msg, sentinel.Error()) {
			return fmt.Errorf("%w: %s", sentinel, msg)
		}
	}
	return errors.New(msg)
}

// Internal helper for TCP communication
func (c *Client) sendAndReceive(cmd string) (string, error) {
	return c.exchange(cmd, true)
}

// exchange sends cmd and reads one reply line. A command that is not
// idempotent is never resent once it was written: the server may already
// have applied it.
func (c *Client) exchange(cmd string, idempotent bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	var resp string

	// Try up to 3 times with exponential backoff
	for i := 0; i < 3; i++ {
		if c.conn == nil {
			if reconnectErr := c.reconnect(); reconnectErr != nil {
				err = fmt.Errorf("reconnect failed: %w", reconnectErr)
				time.Sleep(time.Duration(i*100) * time.Millisecond)
				continue
			}
		}

		_ = c.conn.SetDeadline(time.Now().Add(30 * time.Second))

		_, err = fmt.Fprint(c.conn, cmd+"\n")
		if err == nil {
			resp, err = c.reader.ReadString('\n')
			if err == nil {
				resp = strings.TrimSpace(resp)
				if strings.HasPrefix(resp, "ERR") {
					return "", remoteError(strings.TrimPrefix(resp, "ERR "))
				}
				return resp, nil
			}
			if !idempotent {
				c.conn.Close()
				c.conn = nil
				return "", fmt.Errorf("reply to %q lost, not retried: %w", cmd, err)
			}
		}

		slog.Warn("celerix sdk request failed, reconnecting", "attempt", i+1, "error", err)

		// Force a reconnect on the next iteration
		if closeErr := c.reconnect(); closeErr != nil {
			slog.Warn("celerix sdk reconnect failed", "error", closeErr)
		}

		time.Sleep(time.Duration((i+1)*200) * time.Millisecond)
	}

	return "", fmt.Errorf("failed after 3 attempts. last error: %w", err)
}

// call sends cmd and decodes the JSON payload of an OK reply into out.
func (c *Client) call(cmd string, out any) error {
	resp, err := c.sendAndReceive(cmd)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(strings.TrimPrefix(resp, "OK ")), out)
}

func (c *Client) Ping() error {
	resp, err := c.sendAndReceive("PING")
	if err != nil {
		return err
	}
	if resp != "PONG" {
		return fmt.Errorf("unexpected ping reply %q", resp)
	}
	return nil
}

func (c *Client) Datasets() ([]string, error) {
	var list []string
	err := c.call("DATASETS", &list)
	return list, err
}

func (c *Client) List(dataset string, req Request) (Result[json.RawMessage], error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Result[json.RawMessage]{}, err
	}
	var out Result[json.RawMessage]
	err = c.call(fmt.Sprintf("LIST %s %s", dataset, payload), &out)
	return out, err
}

func (c *Client) Get(dataset, id string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.call(fmt.Sprintf("GET %s %s", dataset, id), &out)
	return out, err
}

func (c *Client) Stats(dataset string, q query.Query) (query.Stats, error) {
	payload, err := json.Marshal(q)
	if err != nil {
		return query.Stats{}, err
	}
	var out query.Stats
	err = c.call(fmt.Sprintf("STATS %s %s", dataset, payload), &out)
	return out, err
}

func (c *Client) Delete(dataset, id string) error {
	_, err := c.exchange(fmt.Sprintf("DEL %s %s", dataset, id), false)
	return err
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	fmt.Fprintln(c.conn, "QUIT")
	err := c.conn.Close()
	c.conn = nil
	return err
}
