// Package notify implements the fire-and-forget notification channel that
// announces a finished result transfer to the source application.
//
// Instead of a fixed numeric message ID, endpoints are registered by name:
// both sides derive a unix socket path from the message name, so the channel
// exists only between parties that agree on the string. The message payload
// carries exactly two values, the shared memory handle and the byte size of
// the region.
package notify

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// ResultsToSourceMessage is the registered name of the message announcing
// search results back to the source application.
const ResultsToSourceMessage = "spectral-search:results-to-source.v1"

// frameMagic guards against a stray writer on the socket.
const frameMagic uint32 = 0x53525831 // "SRX1"

// RunDir returns the directory holding sockets and shared memory regions.
// Overridable for tests and sandboxed environments.
func RunDir() string {
	if dir := os.Getenv("SPECTRAL_RUN_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".spectral-search", "run")
}

// SocketPath derives the endpoint for a registered message name. The name is
// hashed so arbitrary message strings yield valid, length-bounded paths.
func SocketPath(runDir, messageName string) string {
	sum := sha256.Sum256([]byte(messageName))
	return filepath.Join(runDir, fmt.Sprintf("msg-%s.sock", hex.EncodeToString(sum[:8])))
}

// Message is the notification payload: where the encoded results live and
// how many bytes of the region are valid.
type Message struct {
	// Handle identifies the shared memory region.
	Handle string
	// Size is the byte size of the encoded buffer inside the region.
	Size uint32
}

// appendFrame serialises a message. Layout: magic, size, handle length,
// handle bytes, all little-endian.
func appendFrame(buf []byte, m Message) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, frameMagic)
	buf = binary.LittleEndian.AppendUint32(buf, m.Size)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(m.Handle)))
	return append(buf, m.Handle...)
}

// parseFrame decodes one message frame.
func parseFrame(buf []byte) (Message, error) {
	if len(buf) < 12 {
		return Message{}, fmt.Errorf("notify: frame too short: %d bytes", len(buf))
	}
	if magic := binary.LittleEndian.Uint32(buf); magic != frameMagic {
		return Message{}, fmt.Errorf("notify: bad frame magic %#x", magic)
	}
	size := binary.LittleEndian.Uint32(buf[4:])
	handleLen := binary.LittleEndian.Uint32(buf[8:])
	if int(handleLen) != len(buf)-12 {
		return Message{}, fmt.Errorf("notify: handle length %d does not match frame payload %d", handleLen, len(buf)-12)
	}
	return Message{
		Handle: string(buf[12:]),
		Size:   size,
	}, nil
}
