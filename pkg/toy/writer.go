// Package toy writes TOY scene files: a compact, tagged, length-prefixed
// binary format describing meshes, skinning data, skeletal animation and
// scene graphs for lightweight runtimes.
//
// A file is the magic header followed by sections:
//
//	FILE    := "TOY" VERSION:u8 SECTION*
//	SECTION := TAG:char[4] LEN:u32 BODY:byte[LEN]
//
// All numbers are little-endian with no padding.
package toy

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	tmath "github.com/Faultbox/toyexport/pkg/math"
)

// Magic is the file signature written before the version byte.
const Magic = "TOY"

// Version is the format version written by default.
const Version uint8 = 3

// VersionLinearColors marks files whose color layers were converted from
// sRGB to linear before encoding.
const VersionLinearColors uint8 = 4

// TagSize is the length of every section tag.
const TagSize = 4

// MaxStringLen is the longest string the 1-byte length prefix can describe.
const MaxStringLen = 255

// section is an open section accumulating its body.
type section struct {
	tag string
	buf bytes.Buffer
}

// Writer encodes primitive values and nested sections.
//
// Every section is buffered in memory until EndSection, because its length
// prefix has to be known before its body. The whole file is held until Close,
// so a failed export never reaches the sink.
//
// The first error is sticky: once a write fails, later writes are ignored and
// Err and Close report that error.
type Writer struct {
	sink   io.Writer
	root   bytes.Buffer
	stack  []*section
	debug  bool
	err    error
	closed bool
}

// NewWriter creates a writer emitting binary data to sink.
// With debug set, every write emits an indented text line instead.
func NewWriter(sink io.Writer, debug bool) *Writer {
	return &Writer{sink: sink, debug: debug}
}

// Debug reports whether the writer produces a text dump.
func (w *Writer) Debug() bool {
	return w.debug
}

// Depth returns the number of open sections.
func (w *Writer) Depth() int {
	return len(w.stack)
}

// Err returns the first error encountered, if any.
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *Writer) out() *bytes.Buffer {
	if n := len(w.stack); n > 0 {
		return &w.stack[n-1].buf
	}
	return &w.root
}

func (w *Writer) ok() bool {
	if w.closed {
		w.fail(ErrWriterClosed)
	}
	return w.err == nil
}

func (w *Writer) line(s string) {
	out := w.out()
	out.WriteString(strings.Repeat("  ", len(w.stack)))
	out.WriteString(s)
	out.WriteByte('\n')
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

func (w *Writer) writeFloats(fs ...float32) {
	if !w.ok() {
		return
	}
	if w.debug {
		parts := make([]string, len(fs))
		for i, f := range fs {
			parts[i] = formatFloat(f)
		}
		if len(fs) == 1 {
			w.line(parts[0])
		} else {
			w.line("[" + strings.Join(parts, ", ") + "]")
		}
		return
	}

	out := w.out()
	var b [4]byte
	for _, f := range fs {
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(f))
		out.Write(b[:])
	}
}

func (w *Writer) writeUint(v int, max int, size int, field string) {
	if !w.ok() {
		return
	}
	if v < 0 || v > max {
		w.fail(fmt.Errorf("%w: %s %d not in [0, %d]", ErrValueOutOfRange, field, v, max))
		return
	}
	if w.debug {
		w.line(strconv.Itoa(v))
		return
	}

	out := w.out()
	switch size {
	case 1:
		out.WriteByte(byte(v))
	case 2:
		out.Write(binary.LittleEndian.AppendUint16(nil, uint16(v)))
	case 4:
		out.Write(binary.LittleEndian.AppendUint32(nil, uint32(v)))
	}
}

// WriteU8 writes an unsigned byte.
func (w *Writer) WriteU8(v int) {
	w.writeUint(v, math.MaxUint8, 1, "u8")
}

// WriteU16 writes an unsigned 16-bit integer.
func (w *Writer) WriteU16(v int) {
	w.writeUint(v, math.MaxUint16, 2, "u16")
}

// WriteU32 writes an unsigned 32-bit integer.
func (w *Writer) WriteU32(v int) {
	w.writeUint(v, math.MaxUint32, 4, "u32")
}

// WriteF32 writes an IEEE 754 single precision float.
func (w *Writer) WriteF32(f float32) {
	w.writeFloats(f)
}

// EncodeUF16 quantizes a unit float to 16 bits. Values outside [0, 1] are
// clamped, not rejected; NaN encodes as 0.
func EncodeUF16(v float32) uint16 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return math.MaxUint16
	}
	q := math.Round(float64(v) * 65536)
	if q > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(q)
}

// WriteUF16 writes a unit float as 16-bit fixed point.
func (w *Writer) WriteUF16(v float32) {
	if !w.ok() {
		return
	}
	q := EncodeUF16(v)
	if w.debug {
		w.line(fmt.Sprintf("[%d, %s]", q, formatFloat(v)))
		return
	}
	w.out().Write(binary.LittleEndian.AppendUint16(nil, q))
}

// WriteV3 writes three packed floats.
func (w *Writer) WriteV3(v tmath.Vec3) {
	w.writeFloats(v.X, v.Y, v.Z)
}

// WriteV4 writes four packed floats.
func (w *Writer) WriteV4(v tmath.Vec4) {
	w.writeFloats(v[0], v[1], v[2], v[3])
}

// WriteQuat writes a quaternion as four packed floats in X, Y, Z, W order.
func (w *Writer) WriteQuat(q tmath.Quat) {
	w.writeFloats(q.X, q.Y, q.Z, q.W)
}

// WriteString writes a 1-byte length followed by the raw UTF-8 bytes.
func (w *Writer) WriteString(s string) {
	if !w.ok() {
		return
	}
	if len(s) > MaxStringLen {
		w.fail(fmt.Errorf("%w: %q is %d bytes", ErrStringTooLong, truncate(s, 32), len(s)))
		return
	}
	if w.debug {
		w.line("'" + s + "'")
		return
	}

	out := w.out()
	out.WriteByte(byte(len(s)))
	out.WriteString(s)
}

// WriteTag writes a 4-byte ASCII tag verbatim.
func (w *Writer) WriteTag(tag string) {
	if !w.ok() {
		return
	}
	if err := checkTag(tag); err != nil {
		w.fail(err)
		return
	}
	if w.debug {
		w.line("<" + tag + ">")
		return
	}
	w.out().WriteString(tag)
}

// WriteMagic writes the file signature and format version. The signature is
// raw in both modes, so a debug dump starts with "TOY3".
func (w *Writer) WriteMagic(version uint8) {
	if !w.ok() {
		return
	}
	w.out().WriteString(Magic)
	w.WriteU8(int(version))
}

// StartSection opens a nested section. Writes go to the section body until
// the matching EndSection.
func (w *Writer) StartSection(tag string) {
	if !w.ok() {
		return
	}
	if err := checkTag(tag); err != nil {
		w.fail(err)
		return
	}
	w.stack = append(w.stack, &section{tag: tag})
}

// EndSection closes the innermost section and writes TAG | LEN | BODY to its
// parent.
func (w *Writer) EndSection() {
	if !w.ok() {
		return
	}
	n := len(w.stack)
	if n == 0 {
		w.fail(fmt.Errorf("%w: EndSection without StartSection", ErrUnbalancedSections))
		return
	}

	s := w.stack[n-1]
	w.stack = w.stack[:n-1]

	w.WriteTag(s.tag)
	w.WriteU32(s.buf.Len())
	if w.err == nil {
		w.out().Write(s.buf.Bytes())
	}
}

// Close checks the section stack is balanced and flushes the file to the
// sink. Nothing is written if any earlier write failed.
func (w *Writer) Close() error {
	if w.closed {
		return ErrWriterClosed
	}
	if len(w.stack) > 0 {
		tags := make([]string, len(w.stack))
		for i, s := range w.stack {
			tags[i] = s.tag
		}
		w.fail(fmt.Errorf("%w: %d open at close (%s)", ErrUnbalancedSections, len(w.stack), strings.Join(tags, " > ")))
	}
	w.closed = true
	if w.err != nil {
		return w.err
	}

	if _, err := w.sink.Write(w.root.Bytes()); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

func checkTag(tag string) error {
	if len(tag) != TagSize {
		return fmt.Errorf("%w: %q", ErrInvalidTag, tag)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
