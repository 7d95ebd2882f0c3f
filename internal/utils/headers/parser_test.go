package headers

import (
	"reflect"
	"testing"
)

func TestParseHeaders(t *testing.T) {
	in := []string{"User-Agent: Bot", "Accept: text/html", "BadHeader", ": novalue", "X-Empty:"}
	out := ParseHeaders(in)
	expected := map[string]string{"User-Agent": "Bot", "Accept": "text/html", "X-Empty": ""}
	if !reflect.DeepEqual(out, expected) {
		t.Fatalf("unexpected parse result: %#v", out)
	}
}

func TestParseHeadersEmpty(t *testing.T) {
	if out := ParseHeaders(nil); len(out) != 0 {
		t.Fatalf("expected empty map for nil input, got %#v", out)
	}
}
