// Package helperlauncher implements HelperLauncher (spec.md §4.7): the
// fallback used only when DisplayGateway.create_display returns a
// null token on every ABI variant, typically because the compositor's
// policy rejects the calling process identity. It spawns a privileged
// helper binary under a different identity and receives the resulting
// display-token reference back over a local IPC channel.
//
// The helper's own binary format and runtime are outside this core's
// scope (spec.md §4.7): the transport here is a trimmed, single-
// purpose version of the teacher's internal/ipc.Conn/Envelope framing
// (length-prefixed JSON, HMAC-signed) — one fixed message type, no
// session-key negotiation, because there is exactly one expected peer
// and exactly one message, so the daemon and helper share a one-shot
// random token passed via environment variable instead of a broker
// auth handshake.
package helperlauncher

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"

	"github.com/capturecore/daemon/internal/corerr"
)

// maxFrameSize bounds the single expected token-bearing message;
// generous for a JSON payload carrying a handle and two integers.
const maxFrameSize = 64 * 1024

// tokenEnvelope is the one message type this transport ever carries:
// the display-token reference plus the dimensions the helper observed
// when it created the display under its own identity.
type tokenEnvelope struct {
	Token  []byte `json:"token"`
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
	HMAC   []byte `json:"hmac"`
}

func computeHMAC(secret, token []byte, width, height uint32) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(token)
	var dims [8]byte
	binary.BigEndian.PutUint32(dims[0:4], width)
	binary.BigEndian.PutUint32(dims[4:8], height)
	mac.Write(dims[:])
	return mac.Sum(nil)
}

// writeTokenMessage frames and writes one tokenEnvelope as
// [4-byte BE length][JSON], signing it with secret.
func writeTokenMessage(conn net.Conn, secret, token []byte, width, height uint32) error {
	env := tokenEnvelope{
		Token:  token,
		Width:  width,
		Height: height,
		HMAC:   computeHMAC(secret, token, width, height),
	}

	data, err := json.Marshal(env)
	if err != nil {
		return corerr.Wrap(corerr.KindInternal, "helperlauncher.write_token_message", err)
	}
	if len(data) > maxFrameSize {
		return corerr.New(corerr.KindInternal, "helperlauncher.write_token_message", "token message exceeds frame size bound")
	}

	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(data)))
	if _, err := conn.Write(header); err != nil {
		return corerr.Wrap(corerr.KindInternal, "helperlauncher.write_token_message", err)
	}
	if _, err := conn.Write(data); err != nil {
		return corerr.Wrap(corerr.KindInternal, "helperlauncher.write_token_message", err)
	}
	return nil
}

// readTokenMessage reads one length-prefixed JSON tokenEnvelope and
// verifies its HMAC against secret.
func readTokenMessage(conn net.Conn, secret []byte) (token []byte, width, height uint32, err error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(conn, header); err != nil {
		return nil, 0, 0, corerr.Wrap(corerr.KindInternal, "helperlauncher.read_token_message", err)
	}
	size := binary.BigEndian.Uint32(header)
	if size == 0 || size > maxFrameSize {
		return nil, 0, 0, corerr.New(corerr.KindInvalidArgument, "helperlauncher.read_token_message",
			fmt.Sprintf("frame size %d out of bounds", size))
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(conn, data); err != nil {
		return nil, 0, 0, corerr.Wrap(corerr.KindInternal, "helperlauncher.read_token_message", err)
	}

	var env tokenEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, 0, 0, corerr.Wrap(corerr.KindInvalidArgument, "helperlauncher.read_token_message", err)
	}

	want := computeHMAC(secret, env.Token, env.Width, env.Height)
	if !hmac.Equal(want, env.HMAC) {
		return nil, 0, 0, corerr.New(corerr.KindPermissionDenied, "helperlauncher.read_token_message",
			"token message HMAC mismatch")
	}

	return env.Token, env.Width, env.Height, nil
}
