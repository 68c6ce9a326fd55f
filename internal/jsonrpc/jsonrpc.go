// Package jsonrpc implements the Content-Length framing LSP clients and
// servers speak and the minimal "jsonrpc":"2.0" envelope validation the
// protocol requires on top of it.
//
// Grounded on original_source/src/language_server_api.cc's
// ReadJsonRpcContentFrom (header-then-body byte reader) and
// MessageRegistry::Parse (the jsonrpc-version check).
package jsonrpc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// FramingError reports a malformed Content-Length header or a body that
// ended before the declared length was reached.
type FramingError struct {
	Reason string
}

func (e *FramingError) Error() string { return "jsonrpc: framing error: " + e.Reason }

// ProtocolError reports a well-framed message whose JSON-RPC envelope is
// invalid: a body that is not JSON, or a missing or wrong jsonrpc version.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return "jsonrpc: protocol error: " + e.Reason }

const contentLengthPrefix = "Content-Length: "

// Envelope is the outer shape every request/notification/response
// shares. Params and Result are left as raw JSON so a handler can
// unmarshal into its own expected type.
type Envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// ResponseError is the LSP/JSON-RPC error object.
type ResponseError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ReadContent reads one Content-Length-framed message from r and
// returns its body verbatim, with no assumption about what the body
// contains. This is pure framing: ReadContent(w) after a WriteContent(w,
// body) returns exactly body, for any byte string at all.
func ReadContent(r *bufio.Reader) ([]byte, error) {
	contentLength, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, &FramingError{Reason: fmt.Sprintf("reading %d-byte body: %v", contentLength, err)}
	}
	return body, nil
}

// WriteContent frames body as a Content-Length message and writes it to
// w verbatim, the write-side counterpart to ReadContent.
func WriteContent(w io.Writer, body []byte) error {
	if _, err := fmt.Fprintf(w, "%s%d\r\n\r\n", contentLengthPrefix, len(body)); err != nil {
		return fmt.Errorf("jsonrpc: write header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("jsonrpc: write body: %w", err)
	}
	return nil
}

// ReadMessage reads one Content-Length-framed message from r via
// ReadContent and validates its jsonrpc envelope on top, returning a
// *FramingError for a malformed header/body (from ReadContent) and a
// *ProtocolError for a body that isn't a valid jsonrpc 2.0 envelope.
func ReadMessage(r *bufio.Reader) (*Envelope, error) {
	body, err := ReadContent(r)
	if err != nil {
		return nil, err
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &ProtocolError{Reason: fmt.Sprintf("invalid JSON body: %v", err)}
	}
	if env.JSONRPC != "2.0" {
		return nil, &ProtocolError{Reason: fmt.Sprintf(`bad or missing jsonrpc version %q`, env.JSONRPC)}
	}
	return &env, nil
}

// readHeader consumes "Content-Length: N\r\n\r\n" and returns N. Any
// other header line besides Content-Length is skipped, matching LSP's
// allowance for additional (ignored) headers.
func readHeader(r *bufio.Reader) (int, error) {
	contentLength := -1
	firstLine := true
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			// A clean EOF before any byte of a new message arrived means
			// the peer closed the stream between messages, not mid-frame.
			if errors.Is(err, io.EOF) && firstLine && line == "" {
				return 0, io.EOF
			}
			return 0, &FramingError{Reason: fmt.Sprintf("reading header line: %v", err)}
		}
		firstLine = false
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if strings.HasPrefix(line, contentLengthPrefix) {
			n, err := strconv.Atoi(strings.TrimPrefix(line, contentLengthPrefix))
			if err != nil {
				return 0, &FramingError{Reason: fmt.Sprintf("non-numeric Content-Length %q", line)}
			}
			contentLength = n
		}
	}
	if contentLength < 0 {
		return 0, &FramingError{Reason: "missing Content-Length header"}
	}
	return contentLength, nil
}

// WriteMessage frames env as a Content-Length message and writes it to w.
func WriteMessage(w io.Writer, env *Envelope) error {
	if env.JSONRPC == "" {
		env.JSONRPC = "2.0"
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("jsonrpc: marshal envelope: %w", err)
	}
	return WriteContent(w, body)
}

// Notify writes a notification (no id) for method with the given params.
func Notify(w io.Writer, method string, params any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("jsonrpc: marshal params for %s: %w", method, err)
	}
	return WriteMessage(w, &Envelope{Method: method, Params: raw})
}

// Respond writes a successful response to the request identified by id.
func Respond(w io.Writer, id json.RawMessage, result any) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("jsonrpc: marshal result: %w", err)
	}
	return WriteMessage(w, &Envelope{ID: id, Result: raw})
}

// RespondError writes an error response to the request identified by id.
func RespondError(w io.Writer, id json.RawMessage, code int, message string) error {
	return WriteMessage(w, &Envelope{ID: id, Error: &ResponseError{Code: code, Message: message}})
}

// ServeStdin reads envelopes from r until EOF, passing each to handle.
// Any FramingError or ProtocolError is fatal here: the editor process on
// the other end of stdin is assumed dead or speaking a broken protocol,
// and there is nothing left to recover into, matching the original's
// LOG_S(FATAL); exit(1) on a bad read.
func ServeStdin(r io.Reader, handle func(*Envelope)) {
	br := bufio.NewReader(r)
	for {
		env, err := ReadMessage(br)
		if errors.Is(err, io.EOF) {
			slog.Error("jsonrpc.stdin.eof", "reason", "parent process closed stdin")
			os.Exit(1)
		}
		if err != nil {
			slog.Error("jsonrpc.stdin.fatal", "err", err)
			os.Exit(1)
		}
		handle(env)
	}
}
