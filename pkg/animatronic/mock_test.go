package animatronic

import (
	"context"
	"errors"
	"testing"
)

func TestMockControllerRecordsCommands(t *testing.T) {
	m := NewMockController(nil)
	ctx := context.Background()

	if err := m.Connect(ctx); err != nil {
		t.Fatal(err)
	}

	for _, cmd := range []string{CmdStart, CmdTalkStart, CmdTalkStop, CmdStop} {
		if err := m.SendCommand(ctx, cmd); err != nil {
			t.Fatal(err)
		}
	}

	got := m.Commands()
	want := []string{CmdStart, CmdTalkStart, CmdTalkStop, CmdStop}
	if len(got) != len(want) {
		t.Fatalf("commands = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("command %d = %q, want %q", i, got[i], want[i])
		}
	}

	m.Reset()
	if len(m.Commands()) != 0 {
		t.Fatal("Reset left commands behind")
	}

	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestMockControllerInjectedFailure(t *testing.T) {
	m := NewMockController(nil)
	ctx := context.Background()

	sentinel := errors.New("ble: disconnected")
	m.FailWith = sentinel

	if err := m.SendCommand(ctx, CmdTalkStart); !errors.Is(err, sentinel) {
		t.Fatalf("SendCommand = %v, want injected error", err)
	}
	if len(m.Commands()) != 0 {
		t.Fatal("failed command was recorded")
	}
}
