// Package streamclient consumes the generation event stream from the API.
package streamclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

const (
	dataPrefix  = "data: "
	eventPrefix = "event:"

	// maxLineSize bounds a single unterminated line, matching the upstream model client.
	maxLineSize = 1024 * 1024
)

// ErrLineTooLong is returned when the server sends more than maxLineSize
// bytes without a newline.
var ErrLineTooLong = errors.New("stream line exceeds 1MB")

// Handlers receive decoded records. Any of them may be nil.
type Handlers struct {
	OnStatus   func(message string, step int)
	OnEnhanced func(prompt string)
	OnChunk    func(content string)
	OnDone     func(projectID string)
	OnError    func(message string)
}

type record struct {
	Content   string  `json:"content"`
	Message   *string `json:"message"`
	Step      int     `json:"step"`
	ProjectID string  `json:"projectId"`
	Prompt    *string `json:"prompt"`
}

// Decoder splits an event stream into records. Input may be cut at any byte;
// an incomplete trailing line is kept until the next Feed. A line that is
// not valid JSON is skipped without touching what was already accumulated.
type Decoder struct {
	h        Handlers
	residual []byte
	event    string
	html     strings.Builder

	projectID string
	errMsg    string
	done      bool
}

// NewDecoder returns a decoder dispatching to h.
func NewDecoder(h Handlers) *Decoder {
	return &Decoder{h: h}
}

// Feed consumes the next slice of the stream. Complete lines are dispatched
// even when the call returns ErrLineTooLong; the oversized line is dropped.
func (d *Decoder) Feed(p []byte) error {
	d.residual = append(d.residual, p...)
	for {
		i := bytes.IndexByte(d.residual, '\n')
		if i < 0 {
			if len(d.residual) > maxLineSize {
				d.residual = nil
				return ErrLineTooLong
			}
			return nil
		}
		line := strings.TrimSuffix(string(d.residual[:i]), "\r")
		d.residual = d.residual[i+1:]
		d.line(line)
	}
}

func (d *Decoder) line(line string) {
	switch {
	case line == "":
		d.event = ""
	case strings.HasPrefix(line, eventPrefix):
		d.event = strings.TrimSpace(strings.TrimPrefix(line, eventPrefix))
	case strings.HasPrefix(line, dataPrefix):
		var rec record
		if err := json.Unmarshal([]byte(line[len(dataPrefix):]), &rec); err != nil {
			return
		}
		d.dispatch(rec)
	}
}

func (d *Decoder) dispatch(rec record) {
	switch {
	case rec.ProjectID != "":
		d.done = true
		d.projectID = rec.ProjectID
		if d.h.OnDone != nil {
			d.h.OnDone(rec.ProjectID)
		}
	case rec.Content != "":
		d.html.WriteString(rec.Content)
		if d.h.OnChunk != nil {
			d.h.OnChunk(rec.Content)
		}
	case rec.Message != nil && d.event == "error":
		d.errMsg = *rec.Message
		if d.h.OnError != nil {
			d.h.OnError(*rec.Message)
		}
	case rec.Message != nil:
		if d.h.OnStatus != nil {
			d.h.OnStatus(*rec.Message, rec.Step)
		}
	case rec.Prompt != nil:
		if d.h.OnEnhanced != nil {
			d.h.OnEnhanced(*rec.Prompt)
		}
	}
}

// HTML returns every chunk received so far, concatenated.
func (d *Decoder) HTML() string {
	return d.html.String()
}

// Result summarizes a finished stream.
type Result struct {
	HTML      string
	ProjectID string
	Done      bool
	Error     string
}

// Result reports what the stream delivered. Done is false when the
// connection ended without a completion record.
func (d *Decoder) Result() Result {
	return Result{HTML: d.html.String(), ProjectID: d.projectID, Done: d.done, Error: d.errMsg}
}

// Consume reads r to the end, feeding the decoder. A stream that ends
// without a completion record is not an error; check Result().Done.
func (d *Decoder) Consume(ctx context.Context, r io.Reader) error {
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			if ferr := d.Feed(buf[:n]); ferr != nil {
				return ferr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
