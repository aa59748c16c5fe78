package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/banter/core"
	"github.com/hupe1980/banter/history"
	"github.com/hupe1980/banter/model"
	"github.com/hupe1980/banter/model/providers"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// executeCommand is a test helper that executes a cobra command with args.
func executeCommand(root *cobra.Command, args ...string) (stdout, stderr string, err error) {
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetArgs(args)

	err = root.Execute()
	return out.String(), errOut.String(), err
}

const echoPersonas = `
personas:
  PRO:
    name: Optimist
    style: {voice: nova}
    llm: {provider: echo, model: echo-1, display: Echo One}
  CON:
    name: Skeptic
    llm: {provider: echo, model: echo-2}
  MOD:
    name: Moderator
    llm: {display: Mod Label}
`

// writeFixture creates a personas file and a prompt directory.
func writeFixture(t *testing.T) (personas, prompts string) {
	t.Helper()
	dir := t.TempDir()
	personas = filepath.Join(dir, "personas.yaml")
	require.NoError(t, os.WriteFile(personas, []byte(echoPersonas), 0o600))

	prompts = filepath.Join(dir, "prompts")
	require.NoError(t, os.Mkdir(prompts, 0o700))
	files := map[string]string{
		"system.md":    "You are {{persona.name}}.",
		"developer.md": "Rule: {{round_rule}}",
		"user.md":      "say {{topic}} after {{#each history}}{{speaker}};{{/each}}",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(prompts, name), []byte(body), 0o600))
	}
	return personas, prompts
}

func withOfflineRegistry(t *testing.T) {
	t.Helper()
	orig := newRegistry
	newRegistry = func(optFns ...func(o *model.RegistryOptions)) *model.Registry {
		fns := append(optFns, func(o *model.RegistryOptions) {
			o.LookupEnv = func(string) (string, bool) { return "", false }
		})
		return providers.NewRegistry(fns...)
	}
	t.Cleanup(func() { newRegistry = orig })
}

func TestCLI_Defaults(t *testing.T) {
	cmd := newRootCmd()
	f := cmd.Flags()

	topic, _ := f.GetString("topic")
	assert.Equal(t, defaultTopic, topic)
	agents, _ := f.GetStringSlice("agents")
	assert.Equal(t, []string{"PRO", "CON", "CHAOS", "MOD"}, agents)
	provider, _ := f.GetString("default-provider")
	assert.Equal(t, "openai", provider)
	modelName, _ := f.GetString("default-model")
	assert.Equal(t, "gpt-4o-mini", modelName)
	rounds, _ := f.GetInt("rounds")
	assert.Equal(t, 1, rounds)
}

func TestCLI_RunText(t *testing.T) {
	withOfflineRegistry(t)
	personas, prompts := writeFixture(t)

	stdout, _, err := executeCommand(newRootCmd(),
		"--personas", personas, "--prompts", prompts,
		"--agents", "PRO,CON", "--rounds", "2", "--topic", "cats",
		"--playback-url", "none", "--sync")
	require.NoError(t, err)

	assert.Contains(t, stdout, "[1] PRO (Echo One): [echo] say cats after")
	assert.Contains(t, stdout, "[1] CON (echo): [echo] say cats after PRO;")
	assert.Contains(t, stdout, "[2] CON (echo): [echo] say cats after PRO;CON;PRO;")
	assert.Contains(t, stdout, "Conversation complete. Final transcript:")
	assert.Equal(t, 4, strings.Count(stdout, "\n- "))
}

func TestCLI_RunJSONWithHistory(t *testing.T) {
	withOfflineRegistry(t)
	personas, prompts := writeFixture(t)

	histPath := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, history.WriteFile(histPath, []core.Turn{core.NewTurn("MOD", "welcome")}))
	savePath := filepath.Join(t.TempDir(), "out.json")

	stdout, _, err := executeCommand(newRootCmd(),
		"--personas", personas, "--prompts", prompts,
		"--agents", "PRO", "--history", histPath, "--save", savePath,
		"--playback-url", "none", "--json")
	require.NoError(t, err)

	records := []history.Record{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &records))
	require.Len(t, records, 2)
	assert.Equal(t, history.Record{Agent: "MOD", LLM: "Mod Label", Text: "welcome", Parameters: map[string]any{}}, records[0])
	assert.Equal(t, "PRO", records[1].Agent)
	assert.Equal(t, "Echo One", records[1].LLM)
	assert.Equal(t, map[string]any{"style": map[string]any{"voice": "nova"}}, records[1].Parameters)
	assert.Contains(t, records[1].Text, "after MOD;")

	saved, err := history.LoadFile(savePath)
	require.NoError(t, err)
	assert.Len(t, saved, 2)
}

func TestCLI_Playback(t *testing.T) {
	withOfflineRegistry(t)
	personas, prompts := writeFixture(t)

	var (
		mu       sync.Mutex
		speakers []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		speakers = append(speakers, body["agent_id"])
		mu.Unlock()
	}))
	defer srv.Close()

	_, _, err := executeCommand(newRootCmd(),
		"--personas", personas, "--prompts", prompts,
		"--agents", "PRO,CON", "--playback-url", srv.URL)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"PRO", "CON"}, speakers)
}

func TestCLI_Errors(t *testing.T) {
	withOfflineRegistry(t)
	personas, prompts := writeFixture(t)

	t.Run("unknown persona", func(t *testing.T) {
		_, _, err := executeCommand(newRootCmd(), "--personas", personas, "--prompts", prompts, "--agents", "PRO,NOPE")
		assert.ErrorIs(t, err, core.ErrUnknownPersona)
	})
	t.Run("missing prompts", func(t *testing.T) {
		_, _, err := executeCommand(newRootCmd(), "--personas", personas, "--prompts", filepath.Join(t.TempDir(), "none"), "--agents", "PRO")
		assert.ErrorIs(t, err, core.ErrMissingPrompt)
	})
	t.Run("rounds", func(t *testing.T) {
		_, _, err := executeCommand(newRootCmd(), "--personas", personas, "--prompts", prompts, "--rounds", "0")
		assert.Error(t, err)
	})
	t.Run("missing credentials", func(t *testing.T) {
		// MOD falls back to the default provider, which needs a key
		_, _, err := executeCommand(newRootCmd(), "--personas", personas, "--prompts", prompts, "--agents", "MOD", "--playback-url", "none")
		assert.ErrorIs(t, err, model.ErrMissingCredentials)
	})
	t.Run("call budget", func(t *testing.T) {
		_, _, err := executeCommand(newRootCmd(), "--personas", personas, "--prompts", prompts,
			"--agents", "PRO,CON", "--rounds", "2", "--max-calls", "3", "--playback-url", "none")
		assert.ErrorIs(t, err, model.ErrCallBudgetExceeded)
	})
}

func TestCLI_AgentsFlagTakesCommaList(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--agents", "PRO,CON", "--rounds", "2", "--playback-url", "none"}))
	agents, _ := cmd.Flags().GetStringSlice("agents")
	assert.Equal(t, []string{"PRO", "CON"}, agents)
	assert.NoError(t, cmd.ValidateArgs(cmd.Flags().Args()))
	assert.Contains(t, cmd.Long, "--agents PRO,CON")

	spaced := newRootCmd()
	require.NoError(t, spaced.ParseFlags([]string{"--agents", "PRO", "CON"}))
	assert.Error(t, spaced.ValidateArgs(spaced.Flags().Args()), "a space separated list leaves a positional argument")
}
