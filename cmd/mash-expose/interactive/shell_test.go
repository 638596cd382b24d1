package interactive

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/mash-expose/pkg/catalog"
	"github.com/mash-protocol/mash-expose/pkg/devclient/memory"
	"github.com/mash-protocol/mash-expose/pkg/render"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *lockedBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

func newShell(t *testing.T) (*Shell, *memory.Fleet, *lockedBuffer) {
	t.Helper()
	fleet := memory.Demo()
	cat := catalog.MustBuiltin()
	out := &lockedBuffer{}
	sh := New(fleet, cat, render.New(fleet, cat, nil, render.Config{}), out)
	t.Cleanup(sh.stopEvents)
	return sh, fleet, out
}

func TestShellNodes(t *testing.T) {
	sh, _, out := newShell(t)

	assert.False(t, sh.Exec(context.Background(), "nodes"))
	assert.Contains(t, out.String(), "Nodes (2):")
	assert.Contains(t, out.String(), "Node 1 (available)")
	assert.Contains(t, out.String(), "1 - DimmableLight")
}

func TestShellTree(t *testing.T) {
	sh, _, out := newShell(t)

	sh.Exec(context.Background(), "tree 2")
	assert.Contains(t, out.String(), "Endpoint 1 - Thermostat")
	assert.Contains(t, out.String(), "Thermostat ")
	assert.Contains(t, out.String(), "TemperatureMeasurement")

	out.Reset()
	sh.Exec(context.Background(), "tree 42")
	assert.Equal(t, "Node 42 not found\n", out.String())
}

func TestShellReadWrite(t *testing.T) {
	sh, _, out := newShell(t)
	ctx := context.Background()

	sh.Exec(ctx, "write 1/1/OnOff/OnTime 300")
	assert.Equal(t, "OK\n", out.String())

	out.Reset()
	sh.Exec(ctx, "read 1/1/onoff/ontime")
	assert.Equal(t, "OnTime = 300\n", out.String())
}

func TestShellInvoke(t *testing.T) {
	sh, fleet, out := newShell(t)
	ctx := context.Background()

	sh.Exec(ctx, `invoke 1/1/Identify/Identify {"IdentifyTime": 10}`)
	assert.Equal(t, "OK\n", out.String())

	invs := fleet.Invocations()
	require.Len(t, invs, 1)
	assert.Equal(t, "Identify", invs[0].Command)
	assert.Equal(t, float64(10), invs[0].Payload["IdentifyTime"])
}

func TestShellCaps(t *testing.T) {
	sh, _, out := newShell(t)

	sh.Exec(context.Background(), "caps 2/1/Thermostat")
	text := out.String()
	assert.Contains(t, text, "Thermostat on node 2 endpoint 1 (features 0x1)")
	assert.Regexp(t, `attribute OccupiedHeatingSetpoint\s+read/write`, text)
	assert.Regexp(t, `attribute LocalTemperature\s+read\n`, text)
	assert.Regexp(t, `command   SetpointRaiseLower\s+invokable`, text)
}

func TestShellDoc(t *testing.T) {
	sh, _, out := newShell(t)

	sh.Exec(context.Background(), "doc 1")
	assert.True(t, strings.HasPrefix(out.String(), "openapi: 3.0.3"))
}

func TestShellEvents(t *testing.T) {
	sh, fleet, out := newShell(t)
	ctx := context.Background()

	sh.Exec(ctx, "events on")
	fleet.EmitEvent(2, 1, 0x0201, 0x00, 4)

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "node 2: event Thermostat.SystemModeChange 4")
	}, time.Second, 10*time.Millisecond)

	sh.Exec(ctx, "events off")
	assert.Contains(t, out.String(), "Event display off")
}

func TestShellErrors(t *testing.T) {
	sh, _, out := newShell(t)
	ctx := context.Background()

	tests := []struct {
		line string
		want string
	}{
		{"frobnicate", "Unknown command: frobnicate"},
		{"read", "Usage: read"},
		{"read 1/1/OnOff", "Invalid path: expected 4 path segments, got 3"},
		{"read x/1/OnOff/OnOff", `Invalid path: invalid node "x"`},
		{"read 1/1/Nope/OnOff", `Invalid path: unknown cluster "Nope"`},
		{"read 1/1/OnOff/Nope", "Unknown attribute Nope of OnOff"},
		{"invoke 1/1/OnOff/Nope", "Unknown command Nope of OnOff"},
		{"invoke 1/1/OnOff/On {", "Invalid payload"},
		{"events maybe", "Usage: events on|off"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			out.Reset()
			sh.Exec(ctx, tt.line)
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestShellQuit(t *testing.T) {
	sh, _, _ := newShell(t)
	assert.True(t, sh.Exec(context.Background(), "quit"))
	assert.False(t, sh.Exec(context.Background(), "   "))
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, int64(42), parseValue("42"))
	assert.Equal(t, 1.5, parseValue("1.5"))
	assert.Equal(t, true, parseValue("true"))
	assert.Nil(t, parseValue("null"))
	assert.Equal(t, "hello world", parseValue(`"hello world"`))
}
