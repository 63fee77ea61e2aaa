package packet

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestWriterReaderFields(t *testing.T) {
	w := NewWriterWithOpcode(S_OPCODE_SNAPSHOT)
	w.WriteH(2)
	w.WriteDU(7)
	w.WriteF(1.5)
	w.WriteF(-3.25)
	w.WriteD(-9)
	w.WriteS("pilot")

	r := NewReader(w.Bytes())
	if r.Opcode() != S_OPCODE_SNAPSHOT {
		t.Fatalf("opcode = %d", r.Opcode())
	}
	if r.ReadH() != 2 || r.ReadDU() != 7 || r.ReadF() != 1.5 || r.ReadF() != -3.25 || r.ReadD() != -9 {
		t.Fatal("numeric fields did not survive")
	}
	if s := r.ReadS(); s != "pilot" {
		t.Fatalf("ReadS = %q", s)
	}
	if r.Remaining() != 0 || r.Short() {
		t.Fatalf("remaining=%d short=%v", r.Remaining(), r.Short())
	}
}

func TestReaderShortPayload(t *testing.T) {
	r := NewReader([]byte{C_OPCODE_INPUT, 0x01, 0x02})
	if v := r.ReadF(); v != 0 {
		t.Fatalf("short read returned %v", v)
	}
	if !r.Short() {
		t.Fatal("short read not flagged")
	}
}

func TestReaderUnterminatedString(t *testing.T) {
	r := NewReader([]byte{C_OPCODE_HELLO, 'a', 'c', 'e'})
	if s := r.ReadS(); s != "ace" {
		t.Fatalf("ReadS = %q", s)
	}
	if !r.Short() {
		t.Fatal("missing terminator not flagged")
	}

	r = NewReader([]byte{C_OPCODE_HELLO, 0})
	if s := r.ReadS(); s != "" || r.Short() {
		t.Fatalf("empty string = %q short=%v", s, r.Short())
	}
}

func TestCharsetRoundTrip(t *testing.T) {
	big5, err := LookupCharset("big5")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	w := NewWriterWithOpcode(C_OPCODE_HELLO).WithCharset(big5)
	w.WriteS("天堂")
	if strings.Contains(string(w.Bytes()), "天堂") {
		t.Fatal("string written as UTF-8")
	}
	r := NewReaderCharset(w.Bytes(), big5)
	if got := r.ReadS(); got != "天堂" {
		t.Fatalf("ReadS = %q", got)
	}

	if _, err := LookupCharset("klingon"); err == nil {
		t.Fatal("unknown charset accepted")
	}
	if cs, _ := LookupCharset(""); cs.Name() != "utf-8" {
		t.Fatalf("default charset %q", cs.Name())
	}
}

func TestRegistryDispatch(t *testing.T) {
	reg := NewRegistry[string](UTF8, zap.NewNop())
	var got []string
	reg.Register(C_OPCODE_HELLO, []SessionState{StateConnected}, func(sess string, r *Reader) error {
		got = append(got, sess+":"+r.ReadS())
		return nil
	})
	reg.Register(C_OPCODE_PING, []SessionState{StateJoined}, func(string, *Reader) error {
		return errors.New("bad nonce")
	})
	reg.Register(C_OPCODE_BYE, []SessionState{StateJoined}, func(string, *Reader) error {
		panic("boom")
	})

	hello := NewWriterWithOpcode(C_OPCODE_HELLO)
	hello.WriteS("ace")
	if err := reg.Dispatch("s1", StateConnected, hello.Bytes()); err != nil {
		t.Fatalf("dispatch hello: %v", err)
	}
	if len(got) != 1 || got[0] != "s1:ace" {
		t.Fatalf("handler saw %v", got)
	}

	if err := reg.Dispatch("s1", StateJoined, hello.Bytes()); err == nil {
		t.Fatal("state gate not enforced")
	}
	if err := reg.Dispatch("s1", StateJoined, []byte{200}); err != nil {
		t.Fatalf("unknown opcode should be ignored: %v", err)
	}
	if err := reg.Dispatch("s1", StateJoined, nil); err == nil {
		t.Fatal("empty packet accepted")
	}
	if err := reg.Dispatch("s1", StateJoined, []byte{C_OPCODE_PING}); err == nil || !strings.Contains(err.Error(), "bad nonce") {
		t.Fatalf("handler error lost: %v", err)
	}
	if err := reg.Dispatch("s1", StateJoined, []byte{C_OPCODE_BYE}); err == nil {
		t.Fatal("panic not converted to error")
	}
}
