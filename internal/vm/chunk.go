package vm

import (
	"encoding/binary"

	"github.com/nova-lang/nova/internal/rtvalue"
)

// Chunk is a sequence of bytecode instructions plus its constant and
// name pools, one per compiled function (internal/codegen produces one
// Chunk per ir.Function): Code/Constants/Lines/File, with
// byte-patching helpers, and a separate Names pool for the
// function/global/intrinsic names OpCall/OpGetGlobal/OpCallIntrinsic
// reference — keeping them apart avoids a runtime box/unbox on every
// global or intrinsic dispatch.
type Chunk struct {
	Code      []byte
	Constants []rtvalue.Value
	Names     []string
	Lines     []int
	File      string
}

func NewChunk(file string) *Chunk {
	return &Chunk{File: file}
}

// Write appends a single byte, recording line for diagnostics.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

func (c *Chunk) WriteOp(op Opcode, line int) int {
	pos := len(c.Code)
	c.Write(byte(op), line)
	return pos
}

// WriteUint16 appends a big-endian 2-byte operand (a constant, local
// slot, name, or jump-target index).
func (c *Chunk) WriteUint16(v uint16, line int) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	c.Write(buf[0], line)
	c.Write(buf[1], line)
}

func (c *Chunk) ReadUint16(offset int) uint16 {
	return binary.BigEndian.Uint16(c.Code[offset : offset+2])
}

// PatchUint16 overwrites the 2-byte operand at offset, used by
// internal/codegen's two-pass jump patching once a forward jump's
// target block address is known.
func (c *Chunk) PatchUint16(offset int, v uint16) {
	binary.BigEndian.PutUint16(c.Code[offset:offset+2], v)
}

func (c *Chunk) AddConstant(v rtvalue.Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

func (c *Chunk) AddName(name string) int {
	for i, n := range c.Names {
		if n == name {
			return i
		}
	}
	c.Names = append(c.Names, name)
	return len(c.Names) - 1
}

func (c *Chunk) Len() int { return len(c.Code) }
