package api

import (
	"testing"
)

func feedAll(d *FrameDecoder, chunks ...string) []Frame {
	var frames []Frame
	for _, chunk := range chunks {
		frames = append(frames, d.Feed([]byte(chunk))...)
	}
	return frames
}

func TestFrameDecoderTokenSequence(t *testing.T) {
	d := NewFrameDecoder()

	stream := "data: {\"type\": \"token\", \"content\": \"Hel\"}\n\n" +
		"data: {\"type\": \"token\", \"content\": \"lo\"}\n\n" +
		"data: [DONE]\n\n"

	frames := feedAll(d, stream)

	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	if frames[0].Kind != FrameToken || frames[0].Text != "Hel" {
		t.Errorf("frame 0: got kind=%d text=%q", frames[0].Kind, frames[0].Text)
	}
	if frames[1].Kind != FrameToken || frames[1].Text != "lo" {
		t.Errorf("frame 1: got kind=%d text=%q", frames[1].Kind, frames[1].Text)
	}
	if frames[2].Kind != FrameEnd {
		t.Errorf("frame 2: expected end frame, got kind=%d", frames[2].Kind)
	}
	if !d.Done() {
		t.Error("decoder should be done after end sentinel")
	}
}

func TestFrameDecoderSplitAtEveryByte(t *testing.T) {
	stream := "data: {\"type\": \"token\", \"content\": \"Hello\"}\n\n" +
		"data: {\"type\": \"code\", \"content\": \"print(1)\"}\n\n" +
		"data: {\"type\": \"complete\", \"data\": {\"explanation\": \"Hello\", \"generated_code\": \"print(1)\"}}\n\n" +
		"data: [DONE]\n\n"

	// Splitting the stream at any byte boundary must yield the same
	// frames as feeding it whole
	want := feedAll(NewFrameDecoder(), stream)

	for split := 1; split < len(stream); split++ {
		d := NewFrameDecoder()
		got := feedAll(d, stream[:split], stream[split:])

		if len(got) != len(want) {
			t.Fatalf("split at %d: expected %d frames, got %d", split, len(want), len(got))
		}
		for i := range want {
			if got[i].Kind != want[i].Kind || got[i].Text != want[i].Text {
				t.Fatalf("split at %d, frame %d: got kind=%d text=%q, want kind=%d text=%q",
					split, i, got[i].Kind, got[i].Text, want[i].Kind, want[i].Text)
			}
		}
	}
}

func TestFrameDecoderCompletePayload(t *testing.T) {
	d := NewFrameDecoder()

	frames := feedAll(d,
		"data: {\"type\": \"complete\", \"data\": {\"explanation\": \"done\", \"generated_code\": \"x = 1\", \"execution_result\": \"ok\"}}\n")

	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0].Kind != FrameComplete {
		t.Fatalf("expected complete frame, got kind=%d", frames[0].Kind)
	}
	payload := frames[0].Payload
	if payload == nil {
		t.Fatal("complete frame missing payload")
	}
	if payload.Explanation != "done" || payload.GeneratedCode != "x = 1" || payload.ExecutionResult != "ok" {
		t.Errorf("unexpected payload: %+v", payload)
	}
}

func TestFrameDecoderMalformedPayloadBecomesToken(t *testing.T) {
	d := NewFrameDecoder()

	frames := feedAll(d, "data: {not json at all\n")

	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0].Kind != FrameToken || frames[0].Text != "{not json at all" {
		t.Errorf("got kind=%d text=%q", frames[0].Kind, frames[0].Text)
	}
}

func TestFrameDecoderUnknownTypeBecomesToken(t *testing.T) {
	d := NewFrameDecoder()

	frames := feedAll(d, "data: {\"type\": \"surprise\", \"content\": \"x\"}\n")

	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0].Kind != FrameToken {
		t.Errorf("expected token frame, got kind=%d", frames[0].Kind)
	}
}

func TestFrameDecoderIgnoresInputAfterEnd(t *testing.T) {
	d := NewFrameDecoder()

	feedAll(d, "data: [DONE]\n")
	frames := feedAll(d, "data: {\"type\": \"token\", \"content\": \"late\"}\n")

	if len(frames) != 0 {
		t.Errorf("expected no frames after end sentinel, got %d", len(frames))
	}
}

func TestFrameDecoderErrorFrame(t *testing.T) {
	d := NewFrameDecoder()

	frames := feedAll(d, "data: {\"type\": \"error\", \"content\": \"index unavailable\"}\n")

	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0].Kind != FrameError || frames[0].Text != "index unavailable" {
		t.Errorf("got kind=%d text=%q", frames[0].Kind, frames[0].Text)
	}
}

func TestFrameDecoderSkipsNonDataLines(t *testing.T) {
	d := NewFrameDecoder()

	frames := feedAll(d, "\n: comment\nevent: whatever\ndata: {\"type\": \"token\", \"content\": \"x\"}\n")

	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0].Text != "x" {
		t.Errorf("got text %q", frames[0].Text)
	}
}

func TestFrameDecoderCRLFLines(t *testing.T) {
	d := NewFrameDecoder()

	frames := feedAll(d, "data: {\"type\": \"token\", \"content\": \"x\"}\r\ndata: [DONE]\r\n")

	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if frames[0].Kind != FrameToken || frames[1].Kind != FrameEnd {
		t.Errorf("got kinds %d, %d", frames[0].Kind, frames[1].Kind)
	}
}

func TestFrameDecoderIncompleteLineHeldBack(t *testing.T) {
	d := NewFrameDecoder()

	frames := d.Feed([]byte("data: {\"type\": \"token\", \"content\": \"x\"}"))
	if len(frames) != 0 {
		t.Fatalf("incomplete line should produce no frames, got %d", len(frames))
	}

	frames = d.Feed([]byte("\n"))
	if len(frames) != 1 || frames[0].Text != "x" {
		t.Fatalf("expected held-back line to complete, got %v", frames)
	}
}
