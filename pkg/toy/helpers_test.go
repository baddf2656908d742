package toy

import (
	"encoding/binary"
	"math"
	"testing"

	tmath "github.com/Faultbox/toyexport/pkg/math"
)

// byteReader walks encoded output in tests. The format is write-only, so
// this lives with the tests.
type byteReader struct {
	t   *testing.T
	buf []byte
}

func newByteReader(t *testing.T, data []byte) *byteReader {
	t.Helper()
	return &byteReader{t: t, buf: data}
}

func (r *byteReader) take(n int) []byte {
	r.t.Helper()
	if len(r.buf) < n {
		r.t.Fatalf("unexpected end of data: need %d bytes, have %d", n, len(r.buf))
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b
}

func (r *byteReader) empty() bool { return len(r.buf) == 0 }

func (r *byteReader) u8() int  { return int(r.take(1)[0]) }
func (r *byteReader) u16() int { return int(binary.LittleEndian.Uint16(r.take(2))) }
func (r *byteReader) u32() int { return int(binary.LittleEndian.Uint32(r.take(4))) }

func (r *byteReader) f32() float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(r.take(4)))
}

func (r *byteReader) v3() tmath.Vec3 {
	return tmath.Vec3{X: r.f32(), Y: r.f32(), Z: r.f32()}
}

func (r *byteReader) v4() tmath.Vec4 {
	return tmath.Vec4{r.f32(), r.f32(), r.f32(), r.f32()}
}

func (r *byteReader) str() string {
	n := r.u8()
	return string(r.take(n))
}

func (r *byteReader) tag() string {
	return string(r.take(TagSize))
}

// section reads TAG | LEN | BODY and returns a reader over the body.
func (r *byteReader) section() (string, *byteReader) {
	r.t.Helper()
	tag := r.tag()
	n := r.u32()
	return tag, &byteReader{t: r.t, buf: r.take(n)}
}

// expectSection reads a section and checks its tag.
func (r *byteReader) expectSection(want string) *byteReader {
	r.t.Helper()
	tag, body := r.section()
	if tag != want {
		r.t.Fatalf("expected section %q, got %q", want, tag)
	}
	return body
}

// readMagic checks the file header and returns the version.
func (r *byteReader) readMagic() int {
	r.t.Helper()
	if got := string(r.take(len(Magic))); got != Magic {
		r.t.Fatalf("magic = %q, want %q", got, Magic)
	}
	return r.u8()
}

func triangle(a, b, c tmath.Vec3, colors ...tmath.Vec4) Face {
	corner := func(p tmath.Vec3, i int) RawVertex {
		v := RawVertex{Position: p}
		if len(colors) > 0 {
			v.Colors = []tmath.Vec4{colors[i%len(colors)]}
		}
		return v
	}
	return Face{corner(a, 0), corner(b, 1), corner(c, 2)}
}

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
