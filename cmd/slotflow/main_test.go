package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/slotflow/internal/config"
	"github.com/aretw0/slotflow/internal/logging"
	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/persistence/middleware"
)

const validGraph = `
groups:
  - name: Greeting
    utterances: ["hello", "good morning"]
    slots:
      - id: city
        question: "Where are you flying to?"
        requires: city
        jump_to: done
      - id: done
        question: "Enjoy {{slots.city}}."
  - name: None
    slots:
      - id: none
        question: "Sorry, I did not get that."
entities:
  - name: city
    kind: enum
    values: [Lisbon, Porto]
`

const invalidGraph = `
groups:
  - name: Greeting
    utterances: ["hello"]
    slots:
      - id: city
        question: "Where?"
      - id: city
        question: "Again?"
`

func writeGraph(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// run executes the root command with args and an env file that does not
// exist, so only the test environment is read.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	out, err := run(t, "validate", "--graph", writeGraph(t, validGraph))
	require.NoError(t, err, out)
	assert.Contains(t, out, "Graph is valid: 2 intent group(s)")

	out, err = run(t, "validate", "--graph", writeGraph(t, invalidGraph))
	assert.Error(t, err)
	assert.Contains(t, out, "duplicate slot id")
}

func TestGraphCommand(t *testing.T) {
	out, err := run(t, "graph", "--graph", writeGraph(t, validGraph))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph TD"))
	assert.Contains(t, out, `intent_Greeting(("Greeting"))`)
	assert.Contains(t, out, "slot_city --> slot_done")
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "slotflow version ")
}

func TestSessionCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SLOTFLOW_STORE", config.StoreFile)
	t.Setenv("SLOTFLOW_SESSION_DIR", dir)

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	st, err := openStorage(context.Background(), cfg)
	require.NoError(t, err)
	c := domain.NewContext()
	c.Set("city", "Porto")
	require.NoError(t, st.store.Save(context.Background(), "s1", c))

	out, err := run(t, "session", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "s1")

	out, err = run(t, "session", "inspect", "s1")
	require.NoError(t, err)
	assert.Contains(t, out, `"city": "Porto"`)

	out, err = run(t, "session", "rm", "s1")
	require.NoError(t, err)
	assert.Contains(t, out, `Removed session "s1"`)

	_, err = run(t, "session", "inspect", "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestOpenStorage_MasksAndEncrypts(t *testing.T) {
	dir := t.TempDir()
	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))
	cfg := config.Config{
		Store:         config.StoreFile,
		SessionDir:    dir,
		PIIKeys:       []string{"password"},
		EncryptionKey: key,
	}
	st, err := openStorage(context.Background(), cfg)
	require.NoError(t, err)

	c := domain.NewContext()
	c.Set("password", "hunter2")
	c.Set("city", "Lisbon")
	require.NoError(t, st.store.Save(context.Background(), "s1", c))

	raw, err := os.ReadFile(filepath.Join(dir, "s1.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "Lisbon", "stored sealed")
	assert.Contains(t, string(raw), middleware.EncryptedKey)

	loaded, err := st.store.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Lisbon", loaded.String("city"))
	assert.Equal(t, middleware.Mask, loaded.String("password"))

	cfg.EncryptionKey = "not-a-key"
	_, err = openStorage(context.Background(), cfg)
	assert.Error(t, err)
}

func TestOpenStorage_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("SLOTFLOW_STORE", config.StoreRedis)
	t.Setenv("SLOTFLOW_REDIS_URL", "redis://"+mr.Addr())

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	st, err := openStorage(context.Background(), cfg)
	require.NoError(t, err)
	defer closeAll(st.closers)

	require.NotNil(t, st.locker)
	require.NoError(t, st.store.Save(context.Background(), "s1", domain.NewContext()))
	ids, err := st.store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)
}

func TestNewApp(t *testing.T) {
	cfg := config.Config{
		Graph:  writeGraph(t, validGraph),
		Source: config.SourceAuto,
		Store:  config.StoreMemory,
	}
	a, err := newApp(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	defer a.Close()

	res, err := a.engine.ProcessTurn(context.Background(), "s1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "Where are you flying to?", res.Answer)

	cfg.Graph = writeGraph(t, invalidGraph)
	_, err = newApp(context.Background(), cfg, logging.NewNop())
	assert.Error(t, err)
}
