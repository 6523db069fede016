package ipc

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"venture/internal/input"
)

func collect(t *testing.T, msg ControlMessage) ([]input.Event, error) {
	t.Helper()
	out := make(chan input.Event, 32)
	err := Feeder{Out: out}.Handle(context.Background(), msg)
	close(out)

	var events []input.Event
	for e := range out {
		events = append(events, e)
	}
	return events, err
}

func TestFeederCommands(t *testing.T) {
	tests := []struct {
		msg  ControlMessage
		want []input.Event
	}{
		{ControlMessage{Cmd: "key", Args: []string{"TAB"}}, []input.Event{
			input.Press(input.KeyTab, 0),
			{Kind: input.KeyUp, Key: input.KeyTab},
		}},
		{ControlMessage{Cmd: "key", Args: []string{"t", "shift"}}, []input.Event{
			input.Press("t", input.ModShift),
			{Kind: input.KeyUp, Key: "t", Mods: input.ModShift},
		}},
		{ControlMessage{Cmd: "type", Args: []string{"hi", "W"}}, []input.Event{
			{Kind: input.KeyDown, Key: "h", Text: "h"},
			{Kind: input.KeyUp, Key: "h"},
			{Kind: input.KeyDown, Key: "i", Text: "i"},
			{Kind: input.KeyUp, Key: "i"},
			{Kind: input.KeyDown, Key: input.KeySpace, Text: " "},
			{Kind: input.KeyUp, Key: input.KeySpace},
			{Kind: input.KeyDown, Key: "w", Mods: input.ModShift, Text: "W"},
			{Kind: input.KeyUp, Key: "w", Mods: input.ModShift},
		}},
		{ControlMessage{Cmd: "click"}, []input.Event{{Kind: input.MouseDown, Button: input.ButtonLeft}}},
		{ControlMessage{Cmd: "look", Args: []string{"-30"}}, []input.Event{{Kind: input.MouseMotion, DX: -30}}},
		{ControlMessage{Cmd: "move", Args: []string{"w", "1"}}, []input.Event{
			{Kind: input.KeyDown, Key: "w"},
			{Kind: input.KeyUp, Key: "w"},
		}},
		{ControlMessage{Cmd: "quit"}, []input.Event{{Kind: input.Quit}}},
	}
	for _, tt := range tests {
		got, err := collect(t, tt.msg)
		if err != nil {
			t.Errorf("%+v: %v", tt.msg, err)
			continue
		}
		if fmt.Sprint(got) != fmt.Sprint(tt.want) {
			t.Errorf("%+v = %+v, want %+v", tt.msg, got, tt.want)
		}
	}
}

func TestFeederErrors(t *testing.T) {
	tests := []ControlMessage{
		{Cmd: "dance"},
		{Cmd: "key"},
		{Cmd: "key", Args: []string{"v", "alt"}},
		{Cmd: "look", Args: []string{"left"}},
		{Cmd: "move", Args: []string{"x"}},
		{Cmd: "move", Args: []string{"wa"}},
		{Cmd: "move", Args: []string{"w", "-2"}},
	}
	for _, msg := range tests {
		if _, err := collect(t, msg); err == nil {
			t.Errorf("%+v: expected error", msg)
		}
	}

	if _, err := collect(t, ControlMessage{Cmd: "dance"}); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("err = %v, want ErrUnknownCommand", err)
	}
}

func TestServerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctl.sock")
	got := make(chan ControlMessage, 1)

	srv, err := Listen(path, func(_ context.Context, msg ControlMessage) error {
		if msg.Cmd == "fail" {
			return errors.New("not now")
		}
		got <- msg
		return nil
	})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	if err := Send(path, ControlMessage{Cmd: "type", Args: []string{"hello"}}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case msg := <-got:
		if msg.Cmd != "type" || strings.Join(msg.Args, " ") != "hello" {
			t.Fatalf("msg = %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler not called")
	}

	if err := Send(path, ControlMessage{Cmd: "fail"}); err == nil || err.Error() != "not now" {
		t.Fatalf("Send(fail) = %v", err)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Serve = %v", err)
	}
	srv.Close()
}
