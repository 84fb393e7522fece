package cli_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poltergeist/callcenter/pkg/cli"
	"github.com/poltergeist/callcenter/pkg/types"
)

// syncBuffer is written by worker goroutines and read by the test
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	dir        string
	configPath string
	storePath  string
}

func newHarness(t *testing.T, extra string) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{
		dir:        dir,
		configPath: filepath.Join(dir, "callcenter.yaml"),
		storePath:  filepath.Join(dir, "calls.dat"),
	}
	content := fmt.Sprintf("agents: 2\ntime_unit: 10ms\nledger:\n  path: %s\n%s", h.storePath, extra)
	require.NoError(t, os.WriteFile(h.configPath, []byte(content), 0o644))
	return h
}

func (h *harness) execute(t *testing.T, input io.Reader, args ...string) (string, string, error) {
	t.Helper()
	return h.executeContext(t, context.Background(), input, args...)
}

func (h *harness) executeContext(t *testing.T, ctx context.Context, input io.Reader, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &syncBuffer{}, &syncBuffer{}
	c := cli.NewCLIWithOutput(cli.NewConfig(), out, errOut)
	if input == nil {
		input = strings.NewReader("")
	}
	c.SetInput(input)

	err := c.ExecuteContext(ctx, append([]string{"--config", h.configPath}, args...))
	return out.String(), errOut.String(), err
}

func script(lines ...string) io.Reader {
	return strings.NewReader(strings.Join(lines, "\n") + "\n")
}

func TestRun_ScriptedSession(t *testing.T) {
	h := newHarness(t, "")

	out, _, err := h.execute(t, script(
		"1", "VIP", "30", "Alice", "5551234",
		"1", "3", "20", "Bob", "5559876",
		"4",
		"5",
		"7",
	), "run")
	require.NoError(t, err)

	assert.Contains(t, out, "No previous data found")
	assert.Contains(t, out, "Call ID 1 added to queue.")
	assert.Contains(t, out, "Call ID 2 added to queue.")
	assert.Contains(t, out, "Current Call Queue:")
	assert.Contains(t, out, "Agent Status:")
	assert.Contains(t, out, "Data saved successfully!")

	queue := out[strings.Index(out, "Current Call Queue:"):]
	assert.Less(t, strings.Index(queue, "Alice"), strings.Index(queue, "Bob"))

	out, _, err = h.execute(t, nil, "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "next call ID 3")
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "Bob")
	assert.Contains(t, out, "Low")
}

func TestRun_LoadsPreviousSession(t *testing.T) {
	h := newHarness(t, "")

	_, _, err := h.execute(t, script("1", "high", "10", "Carol", "5550001", "7"), "run")
	require.NoError(t, err)

	out, _, err := h.execute(t, script("1", "0", "10", "Dave", "5550002", "4", "7"), "run")
	require.NoError(t, err)

	assert.Contains(t, out, "Data loaded successfully!")
	// ids continue from the saved counter
	assert.Contains(t, out, "Call ID 2 added to queue.")
	queue := out[strings.Index(out, "Current Call Queue:"):]
	assert.Less(t, strings.Index(queue, "Dave"), strings.Index(queue, "Carol"))
}

func TestRun_InvalidInputKeepsRunning(t *testing.T) {
	h := newHarness(t, "")

	out, _, err := h.execute(t, script(
		"9",
		"1", "7", "30", "Eve", "5551111",
		"1", "0", "abc", "Eve", "5551111",
		"1", "0", "5000", "Eve", "5551111",
		"1", "0", "30", "Eve", "555-CALL",
		"3", "9",
		"3", "x",
		"4",
	), "run")
	require.NoError(t, err)

	assert.Contains(t, out, "Invalid choice!")
	assert.Contains(t, out, "unknown priority")
	assert.Contains(t, out, `invalid duration "abc"`)
	assert.Contains(t, out, "Invalid Agent ID!")
	assert.Contains(t, out, "Queue is empty.")
	assert.NotContains(t, out, "added to queue")
	// end of input still saves
	assert.Contains(t, out, "Data saved successfully!")
}

func TestRun_AssignAndRelease(t *testing.T) {
	h := newHarness(t, "")

	out, _, err := h.execute(t, script(
		"2",
		"1", "VIP", "150", "Frank", "5552222",
		"2",
		"3", "1",
		"3", "2",
		"7",
	), "run")
	require.NoError(t, err)

	assert.Contains(t, out, "Queue is empty.")
	assert.Contains(t, out, "Assigned 1 call(s)")
	assert.Contains(t, out, "Agent 1 released from Call ID 1")
	assert.Contains(t, out, "Agent 2 is already available")
}

func TestRun_ClampsAgentCount(t *testing.T) {
	h := newHarness(t, "")

	out, _, err := h.execute(t, script("5", "7"), "run", "--agents", "9")
	require.NoError(t, err)

	assert.Contains(t, out, fmt.Sprintf("Requested 9 agents; using the maximum of %d", types.MaxAgentCount))
	table := out[strings.Index(out, "Agent Status:"):]
	assert.Equal(t, types.MaxAgentCount, strings.Count(table, "Available"))
}

func TestRun_RejectsZeroAgents(t *testing.T) {
	h := newHarness(t, "")

	_, _, err := h.execute(t, nil, "run", "--agents", "0")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidConfig))
}

func TestRun_MetricsMenu(t *testing.T) {
	h := newHarness(t, "")

	out, _, err := h.execute(t, script(
		"1", "VIP", "30", "Gina", "5553333",
		"1", "Low", "30", "Hal", "5554444",
		"8",
		"7",
	), "run")
	require.NoError(t, err)

	assert.Contains(t, out, "Metrics:")
	assert.Regexp(t, `Submitted\s+2`, out)
	assert.Regexp(t, `Submitted VIP\s+1`, out)
	assert.Regexp(t, `Queue depth\s+2`, out)
}

func TestRun_ContextCancelSaves(t *testing.T) {
	h := newHarness(t, "")

	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		fmt.Fprintln(pw, "1")
		fmt.Fprintln(pw, "Medium")
		fmt.Fprintln(pw, "15")
		fmt.Fprintln(pw, "Ivy")
		fmt.Fprintln(pw, "5555555")
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	out, _, err := h.executeContext(t, ctx, pr, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "Call ID 1 added to queue.")
	assert.Contains(t, out, "Data saved successfully!")

	out, _, err = h.execute(t, nil, "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "Ivy")
}

func TestRun_SQLiteBackend(t *testing.T) {
	h := newHarness(t, "")
	db := filepath.Join(h.dir, "calls.db")
	require.NoError(t, os.WriteFile(h.configPath,
		[]byte(fmt.Sprintf("agents: 1\ntime_unit: 10ms\nledger:\n  backend: sqlite\n  path: %s\n", db)), 0o644))

	_, _, err := h.execute(t, script("1", "VIP", "30", "Jack", "5556666", "7"), "run")
	require.NoError(t, err)

	out, _, err := h.execute(t, nil, "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "(sqlite)")
	assert.Contains(t, out, "Jack")
}

func TestInspect_NoData(t *testing.T) {
	h := newHarness(t, "")

	out, _, err := h.execute(t, nil, "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "No previous data found")
}

func TestInspect_CorruptLedger(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, os.WriteFile(h.storePath, []byte("not a ledger"), 0o644))

	_, _, err := h.execute(t, nil, "inspect")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrCorruptLedger))

	// run refuses to start over a corrupt ledger rather than overwrite it
	_, _, err = h.execute(t, script("7"), "run")
	require.Error(t, err)
	data, readErr := os.ReadFile(h.storePath)
	require.NoError(t, readErr)
	assert.Equal(t, "not a ledger", string(data))
}

func TestStoreFlagOverridesConfig(t *testing.T) {
	h := newHarness(t, "")
	other := filepath.Join(h.dir, "other.dat")

	_, _, err := h.execute(t, script("1", "VIP", "10", "Kim", "5557777", "7"), "run", "--store", other)
	require.NoError(t, err)

	_, statErr := os.Stat(other)
	assert.NoError(t, statErr)
	_, statErr = os.Stat(h.storePath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestEnvOverridesConfig(t *testing.T) {
	h := newHarness(t, "")
	envPath := filepath.Join(h.dir, "env.dat")
	t.Setenv("CALLCENTER_LEDGER_PATH", envPath)

	_, _, err := h.execute(t, script("1", "VIP", "10", "Lou", "5558888", "7"), "run")
	require.NoError(t, err)

	_, statErr := os.Stat(envPath)
	assert.NoError(t, statErr)
}

func TestUnknownConfigKey(t *testing.T) {
	h := newHarness(t, "agnets: 4\n")

	_, _, err := h.execute(t, nil, "inspect")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidConfig))
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "callcenter.yaml")

	run := func(args ...string) (string, error) {
		out := &syncBuffer{}
		c := cli.NewCLIWithOutput(cli.NewConfig(), out, io.Discard)
		err := c.Execute(append([]string{"--config", path, "init"}, args...))
		return out.String(), err
	}

	out, err := run("--agents", "4", "--backend", "sqlite")
	require.NoError(t, err)
	assert.Contains(t, out, "Created configuration at "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "agents: 4")
	assert.Contains(t, string(data), "backend: sqlite")
	assert.Contains(t, string(data), "time_unit: 1s")

	_, err = run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = run("--force")
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "agents: 3")

	_, err = run("--force", "--backend", "floppy")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidConfig))
}

func TestVersionCommand(t *testing.T) {
	out := &syncBuffer{}
	cfg := cli.NewConfig()
	cfg.Version = "1.2.3"
	c := cli.NewCLIWithOutput(cfg, out, io.Discard)

	require.NoError(t, c.Execute([]string{"version"}))
	assert.Equal(t, "callcenter v1.2.3\n", out.String())
}
