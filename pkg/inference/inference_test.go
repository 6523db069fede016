package inference

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

func TestParseEmotion(t *testing.T) {
	tests := []struct {
		name        string
		chunks      []string
		wantText    string
		wantEmotion string
		wantOK      bool
	}{
		{"single chunk", []string{"[EMOTION:happy] Hi there"}, "Hi there", "happy", true},
		{"no tag", []string{"Hi there"}, "Hi there", "", false},
		{"split inside prefix", []string{"[EMO", "TION:Sad]", " I see."}, "I see.", "sad", true},
		{"split inside name", []string{"[EMOTION:frie", "ndly]  It depends", " on your role."}, "It depends on your role.", "friendly", true},
		{"whitespace after tag in later chunk", []string{"[EMOTION:calm]", "   ", "\nOkay."}, "Okay.", "calm", true},
		{"never closed", []string{"[EMOTION:happy Hi", " there"}, "[EMOTION:happy Hi there", "", false},
		{"tag not at start", []string{"Well [EMOTION:angry] no"}, "Well [EMOTION:angry] no", "", false},
		{"only once", []string{"[EMOTION:happy]", "[EMOTION:sad] twice"}, "[EMOTION:sad] twice", "happy", true},
		{"short prefix of tag", []string{"[EM"}, "[EM", "", false},
		{"bracket but other tag", []string{"[NOTE] hi"}, "[NOTE] hi", "", false},
		{"uppercase name", []string{"[EMOTION:AUTHORITATIVE]Listen."}, "Listen.", "authoritative", true},
		{"trailing text kept verbatim", []string{"[EMOTION:happy] a ", "b "}, "a b ", "happy", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, emotion, ok := ParseEmotion(tt.chunks...)
			if text != tt.wantText {
				t.Errorf("text = %q, want %q", text, tt.wantText)
			}
			if emotion != tt.wantEmotion || ok != tt.wantOK {
				t.Errorf("emotion = %q/%v, want %q/%v", emotion, ok, tt.wantEmotion, tt.wantOK)
			}
		})
	}
}

type fakeModel struct {
	chunks      []string
	streamErr   error
	completion  string
	completeErr error

	gotSystem string
	gotUser   string
}

func (f *fakeModel) Stream(ctx context.Context, system, user string, onChunk func(string)) error {
	f.gotSystem, f.gotUser = system, user
	for _, c := range f.chunks {
		onChunk(c)
	}
	return f.streamErr
}

func (f *fakeModel) Complete(ctx context.Context, user string) (string, error) {
	f.gotUser = user
	return f.completion, f.completeErr
}

func TestClientGetResponse(t *testing.T) {
	m := &fakeModel{chunks: []string{"[EMOTION:friendly] It depends", " on your role."}}
	c := NewClient(m, time.Second, nil)

	resp, err := c.GetResponse(context.Background(), "What's my salary?")
	if err != nil {
		t.Fatalf("GetResponse: %v", err)
	}
	if resp.Text != "It depends on your role." || resp.Emotion != "friendly" {
		t.Fatalf("resp = %+v", resp)
	}
	if m.gotSystem != SystemInstruction || m.gotUser != "What's my salary?" {
		t.Fatalf("sent system=%q user=%q", m.gotSystem, m.gotUser)
	}
}

func TestClientErrors(t *testing.T) {
	transport := errors.New("connection reset")

	t.Run("stream failure", func(t *testing.T) {
		c := NewClient(&fakeModel{streamErr: transport}, 0, nil)
		_, err := c.GetResponse(context.Background(), "hi")
		var ie *Error
		if !errors.As(err, &ie) || ie.Op != "stream" || !errors.Is(err, transport) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("empty stream", func(t *testing.T) {
		c := NewClient(&fakeModel{chunks: []string{"[EMOTION:calm] "}}, 0, nil)
		_, err := c.GetResponse(context.Background(), "hi")
		if !errors.Is(err, ErrEmptyResponse) {
			t.Fatalf("err = %v, want ErrEmptyResponse", err)
		}
	})

	t.Run("complete failure", func(t *testing.T) {
		c := NewClient(&fakeModel{completeErr: transport}, 0, nil)
		_, err := c.Complete(context.Background(), "hi")
		var ie *Error
		if !errors.As(err, &ie) || ie.Op != "complete" {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestClientCompleteKeepsTag(t *testing.T) {
	c := NewClient(&fakeModel{completion: "[EMOTION:happy] Sure."}, 0, nil)
	got, err := c.Complete(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "[EMOTION:happy] Sure." {
		t.Fatalf("got %q", got)
	}
}

func sseChunk(content string) string {
	return fmt.Sprintf(`data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4","choices":[{"index":0,"delta":{"content":%q},"finish_reason":null}]}`+"\n\n", content)
}

func TestOpenAIStream(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseChunk("[EMOTION:happy]"))
		io.WriteString(w, sseChunk(" Hi there"))
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client := openai.NewClient(option.WithAPIKey("test"), option.WithBaseURL(srv.URL))
	c := NewClient(NewOpenAI(client, ""), 5*time.Second, nil)

	resp, err := c.GetResponse(context.Background(), "hello")
	if err != nil {
		t.Fatalf("GetResponse: %v", err)
	}
	if resp.Text != "Hi there" || resp.Emotion != "happy" {
		t.Fatalf("resp = %+v", resp)
	}
	if !strings.Contains(body, `"model":"gpt-4"`) || !strings.Contains(body, "[EMOTION:emotion_name]") {
		t.Fatalf("unexpected request body: %s", body)
	}
}

func TestOpenAIStreamServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"message":"bad","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	client := openai.NewClient(
		option.WithAPIKey("test"),
		option.WithBaseURL(srv.URL),
		option.WithMaxRetries(0),
	)
	c := NewClient(NewOpenAI(client, "gpt-4"), 5*time.Second, nil)

	if _, err := c.GetResponse(context.Background(), "hello"); err == nil {
		t.Fatal("expected error")
	}
}
