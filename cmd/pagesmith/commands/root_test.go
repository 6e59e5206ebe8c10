package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hydraBoost = `{
  "name": "HydraBoost Serum",
  "concentration": "10% Niacinamide",
  "skin_type": ["Oily", "Combination"],
  "key_ingredients": ["Niacinamide", "Zinc"],
  "benefits": ["Oil control", "Brightening"],
  "usage": "Apply 2 drops morning",
  "side_effects": "None reported",
  "price": 599
}`

// fastConfig keeps polling short so a pipeline run finishes quickly
const fastConfig = `version: "1.0"
timing:
  agent_poll_timeout: 10ms
  orchestrator_poll_timeout: 20ms
  poll_interval: 1ms
  stop_timeout: 2s
  run_timeout: 10s
logging:
  level: error
`

type testEnv struct {
	dir    string
	config string
	input  string
	output string
}

func newTestEnv(t *testing.T, product string) testEnv {
	dir := t.TempDir()
	env := testEnv{
		dir:    dir,
		config: filepath.Join(dir, "pagesmith.yml"),
		input:  filepath.Join(dir, "product.json"),
		output: filepath.Join(dir, "out"),
	}
	require.NoError(t, os.WriteFile(env.config, []byte(fastConfig), 0644))
	require.NoError(t, os.WriteFile(env.input, []byte(product), 0644))
	return env
}

func (e testEnv) args(extra ...string) []string {
	return append([]string{"--config", e.config, "--input", e.input, "--output-dir", e.output}, extra...)
}

func executeCommand(t *testing.T, args ...string) (string, string, error) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	cmd := NewRootCommand()
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand_GeneratesPages(t *testing.T) {
	env := newTestEnv(t, hydraBoost)

	stdout, stderr, err := executeCommand(t, env.args()...)
	require.NoError(t, err, stderr)

	assert.Contains(t, stdout, "✓ Generated 3 pages for HydraBoost Serum")
	for _, name := range []string{"faq.json", "product_page.json", "comparison_page.json"} {
		assert.FileExists(t, filepath.Join(env.output, name))
		assert.Contains(t, stdout, filepath.Join(env.output, name))
	}
}

func TestRootCommand_RedisBus(t *testing.T) {
	mr := miniredis.RunT(t)
	env := newTestEnv(t, hydraBoost)

	_, stderr, err := executeCommand(t, env.args("--bus", "redis", "--redis-url", "redis://"+mr.Addr())...)
	require.NoError(t, err, stderr)
	assert.FileExists(t, filepath.Join(env.output, "comparison_page.json"))
}

func TestRootCommand_PipelineFailure(t *testing.T) {
	env := newTestEnv(t, `{"name": "HydraBoost Serum", "concentration": "10%", "skin_type": [], "key_ingredients": [], "benefits": [], "usage": "", "side_effects": ""}`)

	_, stderr, err := executeCommand(t, env.args()...)
	require.EqualError(t, err, "Pipeline failed")
	assert.Contains(t, stderr, "state: ERROR")
	assert.Contains(t, stderr, `"price"`)
	assert.NoFileExists(t, filepath.Join(env.output, "product_page.json"))
}

func TestRootCommand_MissingInput(t *testing.T) {
	env := newTestEnv(t, hydraBoost)

	_, stderr, err := executeCommand(t, "--config", env.config, "--input", filepath.Join(env.dir, "nope.json"))
	require.EqualError(t, err, "Failed to read product data")
	assert.Contains(t, stderr, "--input")
}

func TestRootCommand_InvalidOverride(t *testing.T) {
	env := newTestEnv(t, hydraBoost)

	_, stderr, err := executeCommand(t, env.args("--bus", "kafka")...)
	require.EqualError(t, err, "Invalid configuration")
	assert.Contains(t, stderr, "bus.driver")
}

func TestRootCommand_MissingExplicitConfig(t *testing.T) {
	_, _, err := executeCommand(t, "--config", filepath.Join(t.TempDir(), "missing.yml"))
	require.EqualError(t, err, "Invalid configuration")
}

func TestRootCommand_RejectsUnknownFlags(t *testing.T) {
	_, _, err := executeCommand(t, "--goal", "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag: --goal")
}

func TestRootCommand_RejectsArgs(t *testing.T) {
	_, _, err := executeCommand(t, "product.json")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2026-01-01")
	t.Cleanup(func() { SetVersionInfo("dev", "none", "unknown") })

	stdout, _, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "pagesmith 1.2.3 (commit: abc123, built: 2026-01-01)\n", stdout)
}
