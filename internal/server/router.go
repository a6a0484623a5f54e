// Package server implements the line-oriented TCP protocol. Each request is a
// single line; each reply is "PONG", "OK <json>" or "ERR <message>".
//
//	PING
//	DATASETS
//	LIST <dataset> [request-json]
//	GET <dataset> <id>
//	STATS <dataset> [query-json]
//	DEL <dataset> <id>
//	QUIT
package server

import (
	"bufio"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/celerix-dev/celerix-compliance/internal/portal"
	"github.com/celerix-dev/celerix-compliance/pkg/query"
)

// MaxConnections bounds concurrently served connections.
const MaxConnections = 100

type Router struct {
	portal *portal.Portal
	cert   *tls.Certificate

	mu       sync.Mutex
	listener net.Listener
	closed   bool
}

func NewRouter(p *portal.Portal) *Router {
	return &Router{portal: p}
}

// SetCertificate sets the TLS certificate for the router
func (r *Router) SetCertificate(cert tls.Certificate) {
	r.cert = &cert
}

// Addr returns the listening address, or nil before Listen.
func (r *Router) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Stop closes the listener; Listen then returns nil.
func (r *Router) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.listener == nil {
		return nil
	}
	return r.listener.Close()
}

// Listen starts the TCP server
func (r *Router) Listen(port string) error {
	var listener net.Listener
	var err error

	if r.cert != nil {
		config := &tls.Config{Certificates: []tls.Certificate{*r.cert}, MinVersion: tls.VersionTLS12}
		listener, err = tls.Listen("tcp", ":"+port, config)
	} else {
		listener, err = net.Listen("tcp", ":"+port)
	}
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return listener.Close()
	}
	r.listener = listener
	r.mu.Unlock()
	defer listener.Close()

	semaphore := make(chan struct{}, MaxConnections)

	for {
		conn, err := listener.Accept()
		if errors.Is(err, net.ErrClosed) {
			return nil
		}
		if err != nil {
			slog.Warn("accept failed", "error", err)
			continue
		}

		// Set aggressive timeouts for light traffic to prevent resource exhaustion
		_ = conn.SetDeadline(time.Now().Add(5 * time.Minute))

		go func(c net.Conn) {
			semaphore <- struct{}{}
			defer func() {
				<-semaphore
				c.Close()
			}()
			r.handleConnection(c)
		}(conn)
	}
}

func (r *Router) handleConnection(conn net.Conn) {
	reader := bufio.NewReader(conn)
	actor := portal.Actor{Name: "tcp"}
	if host, _, err := net.SplitHostPort(conn.RemoteAddr().String()); err == nil {
		actor.IP = host
	}

	for {
		// Set a deadline for the next command
		_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))

		line, err := reader.ReadString('\n')
		if err != nil {
			return // Connection closed or timeout
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		command, rest, _ := strings.Cut(line, " ")
		command = strings.ToUpper(command)
		if command == "QUIT" {
			return
		}
		r.dispatch(conn, actor, command, strings.TrimSpace(rest))
	}
}

func (r *Router) dispatch(w io.Writer, actor portal.Actor, command, args string) {
	switch command {
	case "PING":
		fmt.Fprintln(w, "PONG")

	case "DATASETS":
		reply(w, r.portal.Datasets(), nil)

	case "LIST":
		d, arg, err := r.dataset(args)
		if err != nil {
			replyErr(w, err)
			return
		}
		var req portal.Request
		if arg != "" {
			if err := json.Unmarshal([]byte(arg), &req); err != nil {
				fmt.Fprintln(w, "ERR invalid json request")
				return
			}
		}
		reply(w, d.Search(req), nil)

	case "GET":
		d, id, err := r.dataset(args)
		if err == nil && id == "" {
			err = errors.New("usage: GET <dataset> <id>")
		}
		if err != nil {
			replyErr(w, err)
			return
		}
		rec, err := d.Lookup(id)
		reply(w, rec, err)

	case "STATS":
		d, arg, err := r.dataset(args)
		if err != nil {
			replyErr(w, err)
			return
		}
		var q query.Query
		if arg != "" {
			if err := json.Unmarshal([]byte(arg), &q); err != nil {
				fmt.Fprintln(w, "ERR invalid json query")
				return
			}
		}
		reply(w, d.Summarize(q), nil)

	case "DEL":
		d, id, err := r.dataset(args)
		if err == nil && id == "" {
			err = errors.New("usage: DEL <dataset> <id>")
		}
		if err != nil {
			replyErr(w, err)
			return
		}
		if err := d.Remove(actor, id); err != nil {
			replyErr(w, err)
			return
		}
		fmt.Fprintln(w, "OK")

	default:
		fmt.Fprintln(w, "ERR unknown command", command)
	}
}

// dataset resolves the first argument and returns the remainder.
func (r *Router) dataset(args string) (portal.Dataset, string, error) {
	name, rest, _ := strings.Cut(args, " ")
	if name == "" {
		return nil, "", errors.New("missing dataset")
	}
	d, err := r.portal.Dataset(name)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s", err, name)
	}
	return d, strings.TrimSpace(rest), nil
}

func reply(w io.Writer, v any, err error) {
	if err != nil {
		replyErr(w, err)
		return
	}
	res, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintln(w, "ERR internal error")
		return
	}
	fmt.Fprintln(w, "OK", string(res))
}

func replyErr(w io.Writer, err error) {
	fmt.Fprintln(w, "ERR", err)
}
