package server

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"time"

	"typedkv/internal/cmd"
	"typedkv/internal/logger"
	"typedkv/internal/resp"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Client represents a client connection with buffered I/O
type Client struct {
	id     string
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	server *Server
	log    *logrus.Entry
}

func newClient(conn net.Conn, s *Server) *Client {
	id := uuid.NewString()
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
		_ = tcpConn.SetKeepAlive(true)
	}
	return &Client{
		id:     id,
		conn:   conn,
		reader: bufio.NewReaderSize(conn, s.cfg.ReadBuffer),
		writer: bufio.NewWriterSize(conn, s.cfg.WriteBuffer),
		server: s,
		log: logger.WithFields(logrus.Fields{
			"conn":   id,
			"remote": conn.RemoteAddr().String(),
		}),
	}
}

// ID returns the unique connection ID
func (c *Client) ID() string { return c.id }

// serve runs the read-execute-reply loop until the peer leaves or a frame
// cannot be parsed. Replies are flushed once the read buffer is drained, so
// a pipelined batch goes out in one write.
func (c *Client) serve() {
	c.log.Debug("Connection accepted")
	defer c.log.Debug("Connection closed")

	for {
		words, err := resp.ReadCommand(c.reader, c.server.cfg.MaxArgs)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				c.log.WithError(err).Debug("Protocol error")
				_ = c.write(resp.Err("ERR Protocol error: " + strings.TrimPrefix(err.Error(), "resp: ")))
				_ = c.writer.Flush()
			}
			return
		}

		quit := strings.EqualFold(words[0], "QUIT")
		var reply resp.Value
		if quit {
			reply = resp.OK()
		} else {
			reply = c.execute(words)
		}

		if err := c.write(reply); err != nil {
			c.log.WithError(err).Debug("Write failed")
			return
		}
		if quit || c.reader.Buffered() == 0 {
			if err := c.writer.Flush(); err != nil {
				c.log.WithError(err).Debug("Flush failed")
				return
			}
		}
		if quit {
			return
		}
	}
}

// execute runs one command and records it
func (c *Client) execute(words []string) resp.Value {
	start := time.Now()
	name := strings.ToUpper(words[0])
	command, known := c.server.registry.Get(name)
	if !known {
		name = "unknown"
	}

	var (
		reply resp.Value
		err   error
	)
	if journal := c.server.cfg.Journal; journal != nil && known && !command.ReadOnly {
		reply, err = c.executeJournaled(journal, words)
	} else {
		reply, err = c.server.registry.Execute(words)
	}
	if err != nil {
		reply = cmd.ErrorReply(err)
	}
	c.server.stats.RecordCommand(name, time.Since(start), err != nil)

	if err != nil {
		c.log.WithFields(logrus.Fields{"command": name, "error": reply.Str}).Debug("Command failed")
	}
	return reply
}

// executeJournaled runs a write command and logs it before any other write can run
func (c *Client) executeJournaled(journal Journal, words []string) (resp.Value, error) {
	c.server.writeMu.Lock()
	defer c.server.writeMu.Unlock()

	reply, err := c.server.registry.Execute(words)
	if err != nil {
		return reply, err
	}
	if jerr := journal.Log(words); jerr != nil {
		c.log.WithError(jerr).Error("Failed to journal command")
		return resp.Value{}, &cmd.CommandError{Message: "MISCONF Errors writing to the AOF file: " + jerr.Error()}
	}
	return reply, nil
}

func (c *Client) write(v resp.Value) error {
	return resp.Encode(c.writer, v)
}
