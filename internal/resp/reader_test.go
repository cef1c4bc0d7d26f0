package resp_test

import (
	"strings"
	"testing"

	"github.com/AnhadSachdeva/Key-Value-Store/internal/resp"
)

func commandStrings(t *testing.T, v resp.Value) []string {
	t.Helper()

	if v.Type != resp.TypeArray {
		t.Fatalf("expected array, got type %c", v.Type)
	}
	out := make([]string, len(v.Array))
	for i, el := range v.Array {
		if el.Type != resp.TypeBulkString {
			t.Fatalf("element %d: expected bulk string, got type %c", i, el.Type)
		}
		out[i] = string(el.String)
	}
	return out
}

func TestDecoder_ReadCommand_RESPArray(t *testing.T) {
	d := resp.NewDecoder(strings.NewReader("*3\r\n$3\r\nSET\r\n$3\r\nkey\r\n$5\r\nvalue\r\n"))

	v, err := d.ReadCommand()
	if err != nil {
		t.Fatalf("ReadCommand failed: %v", err)
	}

	got := commandStrings(t, v)
	want := []string{"SET", "key", "value"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("arg %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDecoder_ReadCommand_Inline(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"simple", "PING\r\n", []string{"PING"}},
		{"with args", "SET key value\r\n", []string{"SET", "key", "value"}},
		{"extra whitespace", "  GET   key  \r\n", []string{"GET", "key"}},
		{"bare LF tolerated", "DBSIZE\n", []string{"DBSIZE"}},
		{"empty line", "\r\n", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := resp.NewDecoder(strings.NewReader(tt.input))
			v, err := d.ReadCommand()
			if err != nil {
				t.Fatalf("ReadCommand failed: %v", err)
			}

			got := commandStrings(t, v)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("arg %d: got %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDecoder_ReadCommand_Pipelined(t *testing.T) {
	d := resp.NewDecoder(strings.NewReader("*1\r\n$4\r\nPING\r\nGET key\r\n"))

	first, err := d.ReadCommand()
	if err != nil {
		t.Fatalf("first ReadCommand failed: %v", err)
	}
	if got := commandStrings(t, first); got[0] != "PING" {
		t.Errorf("first command: got %v", got)
	}

	second, err := d.ReadCommand()
	if err != nil {
		t.Fatalf("second ReadCommand failed: %v", err)
	}
	got := commandStrings(t, second)
	if len(got) != 2 || got[0] != "GET" || got[1] != "key" {
		t.Errorf("second command: got %v", got)
	}
}

func TestDecoder_ReadValue_AllTypes(t *testing.T) {
	d := resp.NewDecoder(strings.NewReader("+OK\r\n-ERR boom\r\n:42\r\n$-1\r\n"))

	v, err := d.ReadValue()
	if err != nil || v.Type != resp.TypeSimpleString || string(v.String) != "OK" {
		t.Errorf("simple string: got %+v, err %v", v, err)
	}

	v, err = d.ReadValue()
	if err != nil || v.Type != resp.TypeError || string(v.String) != "ERR boom" {
		t.Errorf("error: got %+v, err %v", v, err)
	}

	v, err = d.ReadValue()
	if err != nil || v.Type != resp.TypeInteger || v.Integer != 42 {
		t.Errorf("integer: got %+v, err %v", v, err)
	}

	v, err = d.ReadValue()
	if err != nil || v.Type != resp.TypeBulkString || !v.IsNull {
		t.Errorf("null bulk: got %+v, err %v", v, err)
	}
}

func TestDecoder_MalformedBulkString(t *testing.T) {
	d := resp.NewDecoder(strings.NewReader("*1\r\n$5\r\nhelloXX"))

	if _, err := d.ReadCommand(); err == nil {
		t.Error("expected error for bulk string without CRLF terminator")
	}
}
