package channel

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/roach88/navbridge/internal/wire"
)

// Frame is the JSON envelope exchanged over a Pipe.
//
// Exactly one shape is populated per frame:
//   - request: ID (zero for notifications), Method, Args
//   - reply:   ID, Result or Error
//   - event:   Event, Body
type Frame struct {
	ID     int64           `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Args   map[string]any  `json:"args,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RemoteError    `json:"error,omitempty"`
	Event  string          `json:"event,omitempty"`
	Body   map[string]any  `json:"body,omitempty"`
}

// isReply reports whether the frame answers a request.
func (f *Frame) isReply() bool {
	return f.ID != 0 && f.Method == "" && f.Event == ""
}

// Pipe is a Channel speaking Content-Length framed JSON, the same base
// framing the LSP uses. Requests carry positive ids; replies are matched by id.
type Pipe struct {
	reader *bufio.Reader
	writer io.Writer
	closer io.Closer
	logger *slog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  atomic.Int64
	pending map[int64]ReplyFunc
	sink    EventSink

	closed atomic.Bool
	done   chan struct{}
}

// PipeOption configures a Pipe.
type PipeOption func(*Pipe)

// WithPipeLogger sets the logger used for framing diagnostics.
func WithPipeLogger(l *slog.Logger) PipeOption {
	return func(p *Pipe) {
		p.logger = l
	}
}

// NewPipe creates a pipe over r/w. c, if non-nil, is closed by Close.
func NewPipe(r io.Reader, w io.Writer, c io.Closer, opts ...PipeOption) *Pipe {
	p := &Pipe{
		reader:  bufio.NewReaderSize(r, 64*1024),
		writer:  w,
		closer:  c,
		logger:  slog.Default(),
		pending: make(map[int64]ReplyFunc),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins reading frames. Events and replies are handled on the
// reading goroutine, one frame at a time, preserving host order.
func (p *Pipe) Start(ctx context.Context) {
	go p.readLoop(ctx)
}

// Done is closed when the pipe shuts down.
func (p *Pipe) Done() <-chan struct{} {
	return p.done
}

// Close shuts the pipe down. Pending replies receive ErrShutdown.
func (p *Pipe) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	close(p.done)

	p.mu.Lock()
	pending := p.pending
	p.pending = make(map[int64]ReplyFunc)
	p.mu.Unlock()

	for _, reply := range pending {
		reply(nil, ErrShutdown)
	}

	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}

// Call implements Channel.
func (p *Pipe) Call(method string, args map[string]any, reply ReplyFunc) {
	if p.closed.Load() {
		if reply != nil {
			reply(nil, ErrShutdown)
		}
		return
	}

	frame := &Frame{Method: method, Args: args}
	if reply != nil {
		frame.ID = p.nextID.Add(1)
		p.mu.Lock()
		p.pending[frame.ID] = reply
		p.mu.Unlock()
	}

	if err := p.send(frame); err != nil {
		if reply != nil {
			p.mu.Lock()
			_, stillPending := p.pending[frame.ID]
			delete(p.pending, frame.ID)
			p.mu.Unlock()
			if stillPending {
				reply(nil, fmt.Errorf("send %s: %w", method, err))
			}
		}
	}
}

// Listen implements Channel.
func (p *Pipe) Listen(sink EventSink) {
	p.mu.Lock()
	p.sink = sink
	p.mu.Unlock()
}

func (p *Pipe) send(f *Frame) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return WriteFrame(p.writer, f)
}

func (p *Pipe) readLoop(ctx context.Context) {
	defer p.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		default:
		}

		f, err := ReadFrame(p.reader)
		if err != nil {
			if p.closed.Load() || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return
			}
			p.logger.Warn("dropping malformed frame", "error", err)
			continue
		}
		p.route(f)
	}
}

// route hands a frame to its pending reply or the event sink.
func (p *Pipe) route(f *Frame) {
	if f.isReply() {
		p.mu.Lock()
		reply, ok := p.pending[f.ID]
		delete(p.pending, f.ID)
		p.mu.Unlock()
		if !ok {
			p.logger.Debug("reply for unknown request", "id", f.ID)
			return
		}
		if f.Error != nil {
			reply(nil, f.Error)
			return
		}
		var value any
		if len(f.Result) > 0 {
			if err := json.Unmarshal(f.Result, &value); err != nil {
				reply(nil, fmt.Errorf("decode result: %w", err))
				return
			}
		}
		reply(value, nil)
		return
	}

	if f.Event != "" {
		p.mu.Lock()
		sink := p.sink
		p.mu.Unlock()
		if sink != nil {
			sink(wire.NewEvent(f.Event, f.Body))
		}
		return
	}

	p.logger.Debug("ignoring frame with no reply id or event", "method", f.Method)
}

// WriteFrame writes one Content-Length framed JSON message.
func WriteFrame(w io.Writer, f *Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(data))
	if _, err := io.WriteString(w, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

// MaxFrameSize bounds the body of a single frame.
const MaxFrameSize = 16 << 20

// ReadFrame reads one Content-Length framed JSON message. Bodies larger
// than MaxFrameSize are skipped and reported as ErrFrameTooLarge.
func ReadFrame(r *bufio.Reader) (*Frame, error) {
	contentLength := 0
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(name), "content-length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("bad Content-Length %q: %w", value, err)
			}
			contentLength = n
		}
	}
	if contentLength <= 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}
	if contentLength > MaxFrameSize {
		// Skip the body so the next frame still starts on a header.
		if _, err := io.CopyN(io.Discard, r, int64(contentLength)); err != nil {
			return nil, fmt.Errorf("skip oversized body: %w", err)
		}
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, contentLength)
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var f Frame
	if err := json.Unmarshal(body, &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return &f, nil
}
