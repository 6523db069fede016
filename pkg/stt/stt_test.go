package stt

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

func TestCleanTranscript(t *testing.T) {
	tests := []struct {
		in       string
		want     string
		wantKind Kind
		wantErr  bool
	}{
		{"  What's my salary? ", "What's my salary?", 0, false},
		{"[BLANK_AUDIO]", "", Unintelligible, true},
		{"(music) hello [laughs]", "hello", 0, false},
		{"   ", "", NoSpeech, true},
	}
	for _, tt := range tests {
		got, err := cleanTranscript(tt.in)
		if tt.wantErr {
			if !IsKind(err, tt.wantKind) {
				t.Errorf("cleanTranscript(%q) err = %v, want kind %s", tt.in, err, tt.wantKind)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("cleanTranscript(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestRecognitionErrorWraps(t *testing.T) {
	cause := errors.New("timeout")
	err := error(&RecognitionError{Kind: Service, Err: cause})
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to reach the cause")
	}
	if !strings.Contains(err.Error(), "service error") {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestRemoteRecognize(t *testing.T) {
	var gotModel string
	var gotWAV bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		mr := multipart.NewReader(r.Body, params["boundary"])
		for {
			part, err := mr.NextPart()
			if err != nil {
				break
			}
			data, _ := io.ReadAll(part)
			switch part.FormName() {
			case "model":
				gotModel = string(data)
			case "file":
				gotWAV = strings.HasPrefix(string(data), "RIFF")
			}
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":" What's my salary? "}`)
	}))
	defer srv.Close()

	client := openai.NewClient(option.WithAPIKey("test"), option.WithBaseURL(srv.URL))
	r := NewRemote(client, "", "")

	got, err := r.Recognize(context.Background(), make([]float32, 1600))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if got != "What's my salary?" {
		t.Fatalf("got %q", got)
	}
	if gotModel != DefaultRemoteModel || !gotWAV {
		t.Fatalf("model=%q wav=%v", gotModel, gotWAV)
	}
}

func TestRemoteRecognizeEmpty(t *testing.T) {
	r := NewRemote(openai.NewClient(option.WithAPIKey("test")), "", "")
	_, err := r.Recognize(context.Background(), nil)
	if !IsKind(err, NoSpeech) {
		t.Fatalf("err = %v, want NoSpeech", err)
	}
}
