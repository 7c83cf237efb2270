package contracts

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

const wordSize = 32

func keccak(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// Arg is one ABI-encoded call argument. Static args occupy a single head
// word; dynamic args put an offset in the head and their payload in the
// tail.
type Arg struct {
	dynamic bool
	head    []byte
	tail    []byte
}

func leftPad(b []byte) []byte {
	word := make([]byte, wordSize)
	copy(word[wordSize-len(b):], b)
	return word
}

func rightPad(b []byte) []byte {
	padded := (len(b) + wordSize - 1) / wordSize * wordSize
	if padded == 0 {
		padded = wordSize
	}
	word := make([]byte, padded)
	copy(word, b)
	return word
}

// Address encodes a 20-byte hex address argument.
func Address(addr string) (Arg, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(addr), "0x")
	b, err := hex.DecodeString(raw)
	if err != nil || len(b) != 20 {
		return Arg{}, fmt.Errorf("invalid address %q", addr)
	}
	return Arg{head: leftPad(b)}, nil
}

// Uint64 encodes an unsigned integer argument as uint256.
func Uint64(v uint64) Arg {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return Arg{head: leftPad(b)}
}

// Bytes32 encodes a fixed 32-byte argument.
func Bytes32(b [32]byte) Arg {
	word := make([]byte, wordSize)
	copy(word, b[:])
	return Arg{head: word}
}

// String encodes a dynamic string argument.
func String(s string) Arg {
	data := []byte(s)
	tail := make([]byte, 0, wordSize+len(data))
	tail = append(tail, leftPad(binary.BigEndian.AppendUint64(nil, uint64(len(data))))...)
	tail = append(tail, rightPad(data)...)
	return Arg{dynamic: true, tail: tail}
}

// Pack builds hex calldata for the given function signature: the 4-byte
// keccak selector followed by the ABI head/tail encoding of args.
func Pack(signature string, args ...Arg) string {
	head := make([]byte, 0, len(args)*wordSize)
	tail := make([]byte, 0)
	tailBase := len(args) * wordSize

	for _, a := range args {
		if a.dynamic {
			head = append(head, leftPad(binary.BigEndian.AppendUint64(nil, uint64(tailBase+len(tail))))...)
			tail = append(tail, a.tail...)
		} else {
			head = append(head, a.head...)
		}
	}

	data := make([]byte, 0, 4+len(head)+len(tail))
	data = append(data, keccak([]byte(signature))[:4]...)
	data = append(data, head...)
	data = append(data, tail...)
	return "0x" + hex.EncodeToString(data)
}

// DecodeAddress extracts an address from the first return word.
func DecodeAddress(result string) (string, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(result), "0x")
	if len(raw) < wordSize*2 {
		return "", fmt.Errorf("short return data %q", result)
	}
	word, err := hex.DecodeString(raw[:wordSize*2])
	if err != nil {
		return "", fmt.Errorf("decode return data: %w", err)
	}
	return "0x" + hex.EncodeToString(word[12:]), nil
}

// DecodeBool extracts a bool from the first return word.
func DecodeBool(result string) (bool, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(result), "0x")
	if len(raw) < wordSize*2 {
		return false, fmt.Errorf("short return data %q", result)
	}
	word, err := hex.DecodeString(raw[:wordSize*2])
	if err != nil {
		return false, fmt.Errorf("decode return data: %w", err)
	}
	return word[wordSize-1] != 0, nil
}

// isEmptyReturn reports whether the call returned no data at all, which
// ledgers without the contract deployed produce instead of a revert.
func isEmptyReturn(result string) bool {
	raw := strings.TrimPrefix(strings.TrimSpace(result), "0x")
	if raw == "" {
		return true
	}
	for _, c := range raw {
		if c != '0' {
			return false
		}
	}
	return true
}
