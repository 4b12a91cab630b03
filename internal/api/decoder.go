package api

import (
	"bytes"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dmelo/agentchat/internal/models"
)

// FrameKind identifies the type of a decoded stream frame
type FrameKind int

const (
	// FrameToken carries a chunk of explanation text
	FrameToken FrameKind = iota
	// FrameCode carries a generated code block
	FrameCode
	// FrameComplete carries the full final answer
	FrameComplete
	// FrameError carries a failure reported by the backend
	FrameError
	// FrameEnd marks the end of the stream
	FrameEnd
)

// Frame is one decoded protocol unit from the response stream
type Frame struct {
	Kind    FrameKind
	Text    string                // token, code, or error text
	Payload *models.QueryResponse // set for FrameComplete
}

// FrameDecoder turns raw stream chunks into frames. Chunks do not align
// with line boundaries, so the decoder carries the trailing incomplete
// line between Feed calls. Once the end sentinel is seen, all further
// input is ignored.
type FrameDecoder struct {
	carry []byte
	done  bool
}

// NewFrameDecoder creates a decoder for one response stream
func NewFrameDecoder() *FrameDecoder {
	return &FrameDecoder{}
}

// Done reports whether the end sentinel has been observed
func (d *FrameDecoder) Done() bool {
	return d.done
}

// Feed consumes the next chunk and returns the frames completed by it,
// in order. Decoding never fails: a payload that is not valid JSON is
// surfaced as a token frame carrying the raw text.
func (d *FrameDecoder) Feed(chunk []byte) []Frame {
	if d.done {
		return nil
	}

	d.carry = append(d.carry, chunk...)

	var frames []Frame
	for {
		idx := bytes.IndexByte(d.carry, '\n')
		if idx < 0 {
			break
		}

		line := string(d.carry[:idx])
		d.carry = d.carry[idx+1:]

		frame, ok := decodeLine(line)
		if !ok {
			continue
		}

		frames = append(frames, frame)
		if frame.Kind == FrameEnd {
			d.done = true
			d.carry = nil
			break
		}
	}

	return frames
}

// decodeLine decodes a single complete line. Blank separator lines and
// lines without the data prefix produce no frame.
func decodeLine(line string) (Frame, bool) {
	line = strings.TrimRight(line, "\r")
	if !strings.HasPrefix(line, models.StreamDataPrefix) {
		return Frame{}, false
	}

	data := line[len(models.StreamDataPrefix):]
	if data == models.StreamDoneMarker {
		return Frame{Kind: FrameEnd}, true
	}

	parsed := gjson.Parse(data)
	if !gjson.Valid(data) || !parsed.IsObject() {
		// Malformed payload: never drop data, emit it as a token
		return Frame{Kind: FrameToken, Text: data}, true
	}

	switch parsed.Get("type").String() {
	case models.EventTypeToken:
		return Frame{Kind: FrameToken, Text: parsed.Get("content").String()}, true
	case models.EventTypeCode:
		return Frame{Kind: FrameCode, Text: parsed.Get("content").String()}, true
	case models.EventTypeComplete:
		return Frame{Kind: FrameComplete, Payload: payloadFromResult(parsed.Get("data"))}, true
	case models.EventTypeError:
		return Frame{Kind: FrameError, Text: parsed.Get("content").String()}, true
	default:
		// Unknown kind: degrade to a raw token rather than dropping it
		return Frame{Kind: FrameToken, Text: data}, true
	}
}

// payloadFromResult maps the "data" object of a complete frame onto the
// wire type
func payloadFromResult(result gjson.Result) *models.QueryResponse {
	return &models.QueryResponse{
		Explanation:     result.Get("explanation").String(),
		GeneratedCode:   result.Get("generated_code").String(),
		ExecutionResult: result.Get("execution_result").String(),
	}
}
