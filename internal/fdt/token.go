package fdt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"iter"
)

// Token is one decoded structure block token.
type Token struct {
	Kind TokenKind
	// Offset of the token word within the structure block.
	Offset int

	// Name is set for TokenBeginNode.
	Name Name

	// Property and Value are set for TokenProp. Value aliases the blob.
	Property string
	Value    []byte
}

// Decoder reads tokens from a structure block.
type Decoder struct {
	buf     []byte
	strings []byte
	off     int
}

// NewDecoder returns a decoder over the structure and strings blocks.
func NewDecoder(structBlock, strings []byte) *Decoder {
	return &Decoder{buf: structBlock, strings: strings}
}

// Offset returns the position of the next token.
func (d *Decoder) Offset() int { return d.off }

// Remaining returns the number of undecoded bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.off }

// Next decodes the next token. It returns io.EOF when the block is exhausted
// at a token boundary.
func (d *Decoder) Next() (Token, error) {
	if d.off == len(d.buf) {
		return Token{}, io.EOF
	}
	start := d.off
	if len(d.buf)-start < Cell {
		return Token{}, &TokenError{Offset: start, Err: ErrTruncated}
	}
	raw := binary.BigEndian.Uint32(d.buf[start:])
	tok := Token{Kind: TokenKind(raw), Offset: start}
	pos := start + Cell

	switch tok.Kind {
	case TokenEndNode, TokenNop, TokenEnd:
	case TokenBeginNode:
		nul := bytes.IndexByte(d.buf[pos:], 0)
		if nul < 0 {
			return Token{}, &TokenError{Offset: start, Token: raw, Err: ErrTruncated}
		}
		name, err := ParseName(string(d.buf[pos : pos+nul]))
		if err != nil {
			return Token{}, &TokenError{Offset: start, Token: raw, Err: err}
		}
		end := align(pos+nul+1, Cell)
		if end > len(d.buf) {
			return Token{}, &TokenError{Offset: start, Token: raw, Err: ErrTruncated}
		}
		if !zero(d.buf[pos+nul+1 : end]) {
			return Token{}, &TokenError{Offset: start, Token: raw, Err: ErrNamePadding}
		}
		tok.Name = name
		pos = end
	case TokenProp:
		if len(d.buf)-pos < 2*Cell {
			return Token{}, &TokenError{Offset: start, Token: raw, Err: ErrTruncated}
		}
		length := binary.BigEndian.Uint32(d.buf[pos:])
		nameOff := binary.BigEndian.Uint32(d.buf[pos+Cell:])
		pos += 2 * Cell
		if uint64(length) > uint64(len(d.buf)-pos) {
			return Token{}, &TokenError{Offset: start, Token: raw, Err: fmt.Errorf("%w: length %d", ErrPropValue, length)}
		}
		valueEnd := pos + int(length)
		end := align(valueEnd, Cell)
		if end > len(d.buf) {
			return Token{}, &TokenError{Offset: start, Token: raw, Err: ErrTruncated}
		}
		if !zero(d.buf[valueEnd:end]) {
			return Token{}, &TokenError{Offset: start, Token: raw, Err: ErrPropPadding}
		}
		name, err := d.propName(nameOff)
		if err != nil {
			return Token{}, &TokenError{Offset: start, Token: raw, Err: err}
		}
		tok.Property = name
		tok.Value = d.buf[pos:valueEnd:valueEnd]
		pos = end
	default:
		return Token{}, &TokenError{Offset: start, Token: raw, Err: ErrInvalidToken}
	}
	d.off = pos
	return tok, nil
}

func (d *Decoder) propName(off uint32) (string, error) {
	if uint64(off) >= uint64(len(d.strings)) {
		return "", fmt.Errorf("%w: %#x past strings block", ErrPropName, off)
	}
	rest := d.strings[off:]
	nul := bytes.IndexByte(rest, 0)
	if nul < 0 {
		return "", fmt.Errorf("%w: %#x is unterminated", ErrPropName, off)
	}
	if nul == 0 {
		return "", fmt.Errorf("%w: %#x is empty", ErrPropName, off)
	}
	return string(rest[:nul]), nil
}

// All yields tokens until the End token, the end of the block, or the first
// error.
func (d *Decoder) All() iter.Seq2[Token, error] {
	return func(yield func(Token, error) bool) {
		for {
			tok, err := d.Next()
			if err == io.EOF {
				return
			}
			if !yield(tok, err) || err != nil || tok.Kind == TokenEnd {
				return
			}
		}
	}
}

func zero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
