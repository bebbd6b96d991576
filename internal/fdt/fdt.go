// Package fdt decodes the binary layer of a Flattened Device Tree blob: the
// header, the memory reservation block, the structure block token stream and
// big-endian cell values.
package fdt

const (
	Magic = 0xd00dfeed

	// Version is the newest format revision this package understands. Blobs
	// whose last compatible version exceeds it are rejected.
	Version = 17

	HeaderSize = 0x28

	// Cell is the width in bytes of one structure block word.
	Cell = 4
)

// TokenKind identifies a structure block token.
type TokenKind uint32

const (
	TokenBeginNode TokenKind = 0x1
	TokenEndNode   TokenKind = 0x2
	TokenProp      TokenKind = 0x3
	TokenNop       TokenKind = 0x4
	TokenEnd       TokenKind = 0x9
)

func (k TokenKind) String() string {
	switch k {
	case TokenBeginNode:
		return "BEGIN_NODE"
	case TokenEndNode:
		return "END_NODE"
	case TokenProp:
		return "PROP"
	case TokenNop:
		return "NOP"
	case TokenEnd:
		return "END"
	default:
		return "UNKNOWN"
	}
}

// Warner receives non-fatal diagnostics. *slog.Logger satisfies it.
type Warner interface {
	Warn(msg string, args ...any)
}

type discardWarner struct{}

func (discardWarner) Warn(string, ...any) {}

// Discard is a Warner that drops everything.
var Discard Warner = discardWarner{}

func align(n, to int) int {
	return (n + to - 1) &^ (to - 1)
}
