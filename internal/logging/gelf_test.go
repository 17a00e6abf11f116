package logging

import (
	"bytes"
	"compress/gzip"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGELFHandler_ShipsRecords(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	h, closer, err := NewGELFHandler(pc.LocalAddr().String(), "info")
	require.NoError(t, err)
	defer closer.Close()

	slog.New(h).Info("drift engaged", "speed", 12.5)

	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 65536)
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)

	zr, err := gzip.NewReader(bytes.NewReader(buf[:n]))
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)

	assert.Contains(t, string(body), "drift engaged")
}

func TestNewGELFHandler_BadAddress(t *testing.T) {
	_, _, err := NewGELFHandler("not-an-address", "info")
	assert.Error(t, err)
}
