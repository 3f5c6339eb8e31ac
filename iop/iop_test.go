package iop_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"i4.energy/across/ltem/action"
	"i4.energy/across/ltem/iop"
)

var _ action.Unreader = (*iop.Buffer)(nil)

// chunkPort hands out one chunk per Read and (0, nil) once empty.
type chunkPort struct {
	chunks  []string
	written bytes.Buffer
}

func (p *chunkPort) Read(b []byte) (int, error) {
	if len(p.chunks) == 0 {
		return 0, nil
	}
	n := copy(b, p.chunks[0])
	if n < len(p.chunks[0]) {
		p.chunks[0] = p.chunks[0][n:]
	} else {
		p.chunks = p.chunks[1:]
	}
	return n, nil
}

func (p *chunkPort) Write(b []byte) (int, error) {
	return p.written.Write(b)
}

func TestNotStarted(t *testing.T) {
	b := iop.New(&chunkPort{}, nil)

	_, err := b.Read(make([]byte, 8))
	assert.ErrorIs(t, err, iop.ErrNotStarted)
	_, err = b.Write([]byte("AT\r"))
	assert.ErrorIs(t, err, iop.ErrNotStarted)
	assert.ErrorIs(t, b.Poll(), iop.ErrNotStarted)
}

func TestPollQueuesURCs(t *testing.T) {
	port := &chunkPort{chunks: []string{
		"RDY\r\n",
		"+CFUN: 1\r\n+CPIN: READY\r\n",
		"OK\r\n",
		"APP RDY\r\n+QIU",
	}}
	b := iop.New(port, nil)
	b.Start()

	require.NoError(t, b.Poll())

	assert.Equal(t, []string{"RDY", "+CPIN: READY", "APP RDY"}, b.TakeURCs())
	assert.Empty(t, b.TakeURCs(), "TakeURCs clears the queue")

	// The partial line is served to the next reader.
	buf := make([]byte, 16)
	n, err := b.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "+QIU", string(buf[:n]))
}

func TestReadPassesThrough(t *testing.T) {
	port := &chunkPort{chunks: []string{"OK\r\n"}}
	b := iop.New(port, nil)
	b.Start()

	n, err := b.Write([]byte("AT\r"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "AT\r", port.written.String())

	buf := make([]byte, 16)
	n, err = b.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "OK\r\n", string(buf[:n]))
}

func TestURCQueueBounded(t *testing.T) {
	b := iop.New(&chunkPort{}, nil)
	for i := range iop.DefaultURCCapacity + 3 {
		b.PushURC(fmt.Sprintf("+QIURC: \"recv\",%d", i))
	}

	urcs := b.TakeURCs()
	require.Len(t, urcs, iop.DefaultURCCapacity)
	assert.Equal(t, "+QIURC: \"recv\",3", urcs[0], "oldest entries are dropped first")
	assert.Equal(t, 3, b.Dropped())
}

type failingPort struct{ chunkPort }

func (p *failingPort) Read([]byte) (int, error) {
	return 0, errors.New("bridge fault")
}

func TestPollReadError(t *testing.T) {
	b := iop.New(&failingPort{}, nil)
	b.Start()
	assert.EqualError(t, b.Poll(), "bridge fault")
}

func TestUnreadServedFirst(t *testing.T) {
	port := &chunkPort{chunks: []string{"RC: \"recv\",2\r\n"}}
	b := iop.New(port, nil)
	b.Start()

	b.Unread([]byte("+QIU"))
	require.NoError(t, b.Poll())

	assert.Equal(t, []string{"+QIURC: \"recv\",2"}, b.TakeURCs())
}

func TestDispatchKeepsTrailingURCs(t *testing.T) {
	port := &chunkPort{chunks: []string{
		"\r\nOK\r\n\r\nAPP RDY\r\n+QIURC: \"recv\"",
		",1\r\n",
	}}
	b := iop.New(port, nil)
	b.Start()
	d := action.NewDispatcher(b, action.Config{
		PollInterval: time.Millisecond,
		OnURC:        b.PushURC,
	})

	res := d.Dispatch(context.Background(), "AT")
	require.Equal(t, action.Success, res.Code, "cause: %v", res.Cause)
	assert.Equal(t, []string{"APP RDY"}, b.TakeURCs())

	require.NoError(t, b.Poll())
	assert.Equal(t, []string{"+QIURC: \"recv\",1"}, b.TakeURCs())
}
