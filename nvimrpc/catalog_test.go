package nvimrpc

import (
	"context"
	"testing"

	"github.com/agrinman/nvimrpc/msgpack"
	"github.com/agrinman/nvimrpc/rpcframe"
)

func validAPIInfoValue() msgpack.Value {
	version := msgpack.Map()
	version.MapSet(msgpack.Str("major"), msgpack.Uint(0))
	version.MapSet(msgpack.Str("minor"), msgpack.Uint(10))
	version.MapSet(msgpack.Str("patch"), msgpack.Uint(2))
	version.MapSet(msgpack.Str("api_level"), msgpack.Uint(11))
	version.MapSet(msgpack.Str("api_compatible"), msgpack.Uint(0))
	version.MapSet(msgpack.Str("api_prerelease"), msgpack.Bool(false))
	version.MapSet(msgpack.Str("build"), msgpack.Str("deadbeef"))

	fn := msgpack.Map()
	fn.MapSet(msgpack.Str("name"), msgpack.Str("nvim_eval"))
	fn.MapSet(msgpack.Str("since"), msgpack.Uint(1))
	fn.MapSet(msgpack.Str("method"), msgpack.Bool(false))
	fn.MapSet(msgpack.Str("return_type"), msgpack.Str("Object"))
	fn.MapSet(msgpack.Str("parameters"), msgpack.ArrayOf(
		msgpack.ArrayOf(msgpack.Str("String"), msgpack.Str("expr")),
	))

	metadata := msgpack.Map()
	metadata.MapSet(msgpack.Str("version"), version)
	metadata.MapSet(msgpack.Str("functions"), msgpack.ArrayOf(fn))

	return msgpack.ArrayOf(msgpack.Int(1), metadata)
}

func TestParseAPIInfoValid(t *testing.T) {
	catalog, err := parseAPIInfo(validAPIInfoValue())
	if err != nil {
		t.Fatal(err)
	}
	if catalog.ChannelID != 1 {
		t.Fatalf("channel id = %d", catalog.ChannelID)
	}
	if catalog.Version.Major != 0 || catalog.Version.Minor != 10 || catalog.Version.Patch != 2 {
		t.Fatalf("version = %+v", catalog.Version)
	}
	if catalog.Version.APILevel != 11 {
		t.Fatalf("api level = %d", catalog.Version.APILevel)
	}
	fn, ok := catalog.FindFunction("nvim_eval")
	if !ok {
		t.Fatal("nvim_eval not found")
	}
	if fn.ReturnType != "Object" || len(fn.Parameters) != 1 || fn.Parameters[0].Name != "expr" {
		t.Fatalf("got %+v", fn)
	}
	if _, ok := catalog.FindFunction("nvim_does_not_exist"); ok {
		t.Fatal("unexpected hit")
	}
}

func TestParseAPIInfoWrongShape(t *testing.T) {
	cases := map[string]msgpack.Value{
		"not an array":        msgpack.Str("nope"),
		"wrong array length":  msgpack.ArrayOf(msgpack.Int(1)),
		"channel id not int":  msgpack.ArrayOf(msgpack.Str("one"), msgpack.Map()),
		"metadata not a map":  msgpack.ArrayOf(msgpack.Int(1), msgpack.ArrayOf()),
		"missing version key": msgpack.ArrayOf(msgpack.Int(1), msgpack.Map()),
	}
	for name, v := range cases {
		if _, err := parseAPIInfo(v); err != ErrMalformedMetadata {
			t.Fatalf("%s: got %v, want ErrMalformedMetadata", name, err)
		}
	}
}

func TestParseAPIInfoMissingFunctionsKey(t *testing.T) {
	version := msgpack.Map()
	version.MapSet(msgpack.Str("major"), msgpack.Uint(0))
	metadata := msgpack.Map()
	metadata.MapSet(msgpack.Str("version"), version)
	if _, err := parseAPIInfo(msgpack.ArrayOf(msgpack.Int(1), metadata)); err != ErrMalformedMetadata {
		t.Fatalf("got %v, want ErrMalformedMetadata", err)
	}
}

func TestParseAPIInfoMalformedFunctionEntry(t *testing.T) {
	version := msgpack.Map()
	version.MapSet(msgpack.Str("major"), msgpack.Uint(0))
	metadata := msgpack.Map()
	metadata.MapSet(msgpack.Str("version"), version)
	metadata.MapSet(msgpack.Str("functions"), msgpack.ArrayOf(msgpack.Str("not a map")))
	if _, err := parseAPIInfo(msgpack.ArrayOf(msgpack.Int(1), metadata)); err != ErrMalformedMetadata {
		t.Fatalf("got %v, want ErrMalformedMetadata", err)
	}
}

func TestRefreshAPIInfoPreservesPriorCatalogOnMalformed(t *testing.T) {
	c, mock := newTestClient(t, Config{})

	done := make(chan struct{})
	var firstErr error
	go func() {
		firstErr = c.RefreshAPIInfo(context.Background())
		close(done)
	}()
	req := waitForWrittenFrame(t, mock).(rpcframe.Request)
	feedFrame(t, mock, rpcframe.Response{MsgID: req.MsgID, Error: msgpack.Nil(), Result: validAPIInfoValue()})
	<-done
	if firstErr != nil {
		t.Fatal(firstErr)
	}
	original, ok := c.APIInfo()
	if !ok {
		t.Fatal("expected a catalog after the first refresh")
	}

	done2 := make(chan struct{})
	var secondErr error
	go func() {
		secondErr = c.RefreshAPIInfo(context.Background())
		close(done2)
	}()
	req2 := waitForWrittenFrame(t, mock).(rpcframe.Request)
	feedFrame(t, mock, rpcframe.Response{MsgID: req2.MsgID, Error: msgpack.Nil(), Result: msgpack.Str("not shaped like api info")})
	<-done2
	if secondErr != ErrMalformedMetadata {
		t.Fatalf("got %v, want ErrMalformedMetadata", secondErr)
	}

	after, ok := c.APIInfo()
	if !ok {
		t.Fatal("catalog should still be present after a failed refresh")
	}
	if after.ChannelID != original.ChannelID {
		t.Fatalf("catalog was replaced: got %+v, want %+v", after, original)
	}
}
