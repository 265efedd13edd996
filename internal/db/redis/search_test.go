package redis

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/joelhooks/joelclaw-sub003/internal/db"
)

func TestBuildCategoryFilter(t *testing.T) {
	if got := buildCategoryFilter(""); got != "" {
		t.Errorf("empty category filter = %q", got)
	}
	if got := buildCategoryFilter("conventions"); got != "@category:{conventions}" {
		t.Errorf("filter = %q", got)
	}
	if got := buildCategoryFilter("infra-ops"); got != `@category:{infra\-ops}` {
		t.Errorf("filter = %q, want the dash escaped", got)
	}
}

func TestEscapeQuery(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain words", "plain words"},
		{"a-b", `a\-b`},
		{"x | y", `x \| y`},
		{"@field", `\@field`},
		{"100%", `100\%`},
	}
	for _, tc := range cases {
		if got := escapeQuery(tc.in); got != tc.want {
			t.Errorf("escapeQuery(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestVectorToBytes(t *testing.T) {
	got := vectorToBytes([]float32{1.5, -2.25})
	if len(got) != 8 {
		t.Fatalf("length = %d, want 8", len(got))
	}
	first := math.Float32frombits(binary.LittleEndian.Uint32([]byte(got)[:4]))
	second := math.Float32frombits(binary.LittleEndian.Uint32([]byte(got)[4:]))
	if first != 1.5 || second != -2.25 {
		t.Errorf("decoded = %v, %v", first, second)
	}
}

func TestClassifySearchErrNonRedis(t *testing.T) {
	err := classifySearchErr(errors.New("dial tcp 127.0.0.1:6379: connect: connection refused"))
	if !errors.Is(err, db.ErrUnreachable) {
		t.Errorf("err = %v, want ErrUnreachable for network failures", err)
	}
}
