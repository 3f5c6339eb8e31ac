// Package action implements the AT command transaction protocol: one
// command in flight at a time, a polled wait for its final result, and
// classification of the response into a ResultCode with an optional typed
// payload.
package action

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"i4.energy/across/ltem/at"
)

const (
	// DefaultTimeout is the budget used when a dispatch does not set one.
	DefaultTimeout = 500 * time.Millisecond
	// DefaultPollInterval is the pause between two empty reads.
	DefaultPollInterval = 10 * time.Millisecond
	// MaxCommandLen bounds a command including its terminator.
	MaxCommandLen = 256
	// MaxResponseLen bounds the bytes a single transaction may receive.
	MaxResponseLen = 1024

	readChunk = 64
)

//go:generate go tool mockgen -destination=mock_invoker.go -package=action . Invoker

// Invoker is implemented by anything that can run an AT transaction.
// Feature modules depend on Invoker rather than on *Dispatcher.
type Invoker interface {
	Dispatch(ctx context.Context, cmd string, opts ...Option) Result
}

// Unreader is implemented by ports that can take back bytes read past the
// end of a transaction. The next Read serves them first.
type Unreader interface {
	Unread(p []byte)
}

// Option configures a single dispatch.
type Option func(*options)

type options struct {
	timeout time.Duration
	parser  Parser
}

// WithTimeout sets the timeout budget of the dispatch. Zero selects the
// dispatcher default.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithParser sets the parser applied to a successful response.
func WithParser(p Parser) Option {
	return func(o *options) {
		o.parser = p
	}
}

// WithPrefix is shorthand for WithParser(PrefixParser(prefix)).
func WithPrefix(prefix string) Option {
	return WithParser(PrefixParser(prefix))
}

// Config holds the settings of a Dispatcher.
type Config struct {
	// Logger receives one debug record per transaction. Nil discards.
	Logger *slog.Logger
	// DefaultTimeout replaces the package DefaultTimeout when set.
	DefaultTimeout time.Duration
	// PollInterval replaces DefaultPollInterval when set.
	PollInterval time.Duration
	// OnURC is called for every unsolicited result code seen while a
	// transaction is open, including URCs that arrive in the same read as
	// the final result.
	OnURC func(line string)
}

func (c *Config) setDefaults() {
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = DefaultTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
}

// Dispatcher runs AT transactions over a byte stream. At most one
// transaction is open at a time; a dispatch issued while another is open is
// rejected with BadRequest instead of being queued.
type Dispatcher struct {
	port   io.ReadWriter
	config Config
	busy   atomic.Bool
}

var _ Invoker = (*Dispatcher)(nil)

// NewDispatcher returns a Dispatcher that writes commands to port and polls
// port for responses. Reads from port must not block for long: an empty
// read (0, nil) or io.EOF means "nothing yet".
func NewDispatcher(port io.ReadWriter, config Config) *Dispatcher {
	config.setDefaults()
	return &Dispatcher{
		port:   port,
		config: config,
	}
}

// Busy reports whether a transaction is open.
func (d *Dispatcher) Busy() bool {
	return d.busy.Load()
}

// transaction is the state of one dispatched command.
type transaction struct {
	id       uuid.UUID
	cmd      string
	prefix   string
	parser   Parser
	start    time.Time
	deadline time.Time

	rx       []byte
	received int
	lines    []string
	closed   bool
}

// Dispatch writes cmd to the modem and waits for its final result.
//
// Dispatch blocks until a final result line arrives, the timeout budget (or
// the ctx deadline, whichever is earlier) runs out, or the response turns out
// to be garbled. It never queues: if another transaction is open it returns
// BadRequest and leaves the open transaction alone.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd string, opts ...Option) Result {
	o := options{timeout: d.config.DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.timeout <= 0 {
		o.timeout = d.config.DefaultTimeout
	}

	cmd = strings.TrimSpace(cmd)
	switch {
	case cmd == "":
		return Result{Code: BadRequest, Command: cmd, Cause: ErrEmptyCommand}
	case len(cmd)+len(at.Terminator) > MaxCommandLen:
		return Result{Code: BadRequest, Command: cmd, Cause: ErrCommandTooLong}
	}

	if !d.busy.CompareAndSwap(false, true) {
		return Result{Code: BadRequest, Command: cmd, Cause: ErrTransactionOpen}
	}
	defer d.busy.Store(false)

	txn := &transaction{
		id:     uuid.New(),
		cmd:    cmd,
		prefix: at.ResponsePrefix(cmd),
		parser: o.parser,
		start:  time.Now(),
		rx:     make([]byte, 0, MaxResponseLen),
	}
	txn.deadline = txn.start.Add(o.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(txn.deadline) {
		txn.deadline = dl
	}

	res := d.run(ctx, txn)
	res.Duration = time.Since(txn.start)

	attrs := []any{
		slog.String("txn_id", txn.id.String()),
		slog.String("cmd", cmd),
		slog.String("code", res.Code.String()),
		slog.Duration("duration", res.Duration),
	}
	if res.Cause != nil {
		attrs = append(attrs, slog.String("cause", res.Cause.Error()))
	}
	d.config.Logger.Debug("action complete", attrs...)

	return res
}

func (d *Dispatcher) run(ctx context.Context, txn *transaction) Result {
	if _, err := d.port.Write([]byte(txn.cmd + at.Terminator)); err != nil {
		return txn.close(ProtocolError, err)
	}

	buf := make([]byte, readChunk)
	for {
		n, err := d.port.Read(buf)
		if n > 0 {
			if res, done := d.feed(txn, buf[:n]); done {
				return res
			}
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return txn.close(ProtocolError, err)
		}

		if !time.Now().Before(txn.deadline) || ctx.Err() != nil {
			return txn.close(Timeout, nil)
		}

		if n == 0 {
			wait := min(d.config.PollInterval, time.Until(txn.deadline))
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
			case <-timer.C:
			}
			timer.Stop()
		}
	}
}

// feed appends received bytes to the transaction and classifies any complete
// lines. It reports true once the transaction is closed.
func (d *Dispatcher) feed(txn *transaction, p []byte) (Result, bool) {
	txn.received += len(p)
	if txn.received > MaxResponseLen {
		return txn.close(ProtocolError, ErrResponseOverflow), true
	}
	for _, b := range p {
		if b < 0x20 && b != '\r' && b != '\n' && b != '\t' {
			return txn.close(ProtocolError, ErrGarbled), true
		}
	}
	txn.rx = append(txn.rx, p...)

	for {
		advance, token, _ := at.Splitter(txn.rx, false)
		if advance == 0 {
			break
		}
		txn.rx = txn.rx[advance:]

		line := string(token)
		if line != at.Prompt {
			line = strings.TrimSpace(line)
		}
		if line == "" {
			continue
		}
		if classifyLine(line, txn.cmd, txn.prefix) == kindURC {
			if d.config.OnURC != nil {
				d.config.OnURC(line)
			}
			continue
		}
		txn.lines = append(txn.lines, line)

		if code, terminal := Classify(txn.lines, txn.cmd); terminal {
			res := txn.close(code, nil)
			d.drain(txn)
			return res, true
		}
	}
	return Result{}, false
}

// drain handles bytes that arrived after the final result line. Complete
// URC lines go to OnURC, other complete lines have no transaction left and
// are dropped. A trailing partial line is handed back to the port when it
// implements Unreader.
func (d *Dispatcher) drain(txn *transaction) {
	for {
		advance, token, _ := at.Splitter(txn.rx, false)
		if advance == 0 {
			break
		}
		txn.rx = txn.rx[advance:]

		line := strings.TrimSpace(string(token))
		if line == "" {
			continue
		}
		if classifyLine(line, txn.cmd, txn.prefix) == kindURC {
			if d.config.OnURC != nil {
				d.config.OnURC(line)
			}
			continue
		}
		d.config.Logger.Debug("dropping line after final result",
			slog.String("txn_id", txn.id.String()), slog.String("line", line))
	}
	if len(txn.rx) == 0 {
		return
	}
	if u, ok := d.port.(Unreader); ok {
		u.Unread(txn.rx)
	} else {
		d.config.Logger.Debug("discarding partial line after final result",
			slog.String("txn_id", txn.id.String()), slog.Int("bytes", len(txn.rx)))
	}
	txn.rx = txn.rx[:0]
}

// close ends the transaction and builds its result. On Success the parser,
// if any, runs over the information lines; a parser error turns the result
// into a ProtocolError.
func (txn *transaction) close(code ResultCode, cause error) Result {
	txn.closed = true
	res := Result{
		Code:    code,
		Command: txn.cmd,
		Cause:   cause,
	}
	for _, line := range txn.lines {
		switch classifyLine(line, txn.cmd, txn.prefix) {
		case kindFinal, kindPrompt:
			res.Final = line
		case kindData:
			res.Lines = append(res.Lines, line)
		}
	}
	if code == Success && txn.parser != nil {
		v, err := txn.parser.Parse(res.Lines)
		if err != nil {
			res.Code = ProtocolError
			res.Cause = err
			return res
		}
		res.Value = v
	}
	return res
}
