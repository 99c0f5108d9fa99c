package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/datumkit/pkg/config"
	"github.com/ssargent/datumkit/pkg/di"
)

// execute runs the root command with args and returns its output. Flag
// values are reset afterwards so tests do not leak into each other.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	SetContainer(di.NewContainer())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	defer resetFlags(rootCmd)

	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// workspace returns a data directory and a config path inside it.
func workspace(t *testing.T) (string, string) {
	dir := t.TempDir()
	return dir, filepath.Join(dir, "datum.yaml")
}

func TestInitCommand(t *testing.T) {
	dir, configPath := workspace(t)

	_, err := execute(t, "verify", "labels", "--config", configPath)
	assert.Error(t, err, "an explicit --config must exist")

	out, err := execute(t, "init", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote configuration")

	out, err = execute(t, "init", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")

	out, err = execute(t, "init", "--config", configPath, "--data-dir", dir, "--force", "--with-api-key")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote configuration")
	assert.Contains(t, out, "API key")

	written, err := config.LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, dir, written.DataDir)
	assert.Len(t, written.Serve.APIKey, 64)
}

func TestPutGetCommands(t *testing.T) {
	dir, configPath := workspace(t)
	require.NoError(t, config.SaveConfig(config.DefaultConfig(), configPath))

	out, err := execute(t, "--config", configPath, "--data-dir", dir, "put", "labels", "00000000", "cat")
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully put key '00000000'")

	out, err = execute(t, "--config", configPath, "--data-dir", dir, "get", "labels", "00000000")
	require.NoError(t, err)
	assert.Equal(t, "cat\n", out)

	_, err = execute(t, "--config", configPath, "--data-dir", dir, "get", "labels", "00000009")
	assert.Error(t, err)
}

func TestDivideCommand_EndToEnd(t *testing.T) {
	dir, configPath := workspace(t)
	require.NoError(t, config.SaveConfig(config.DefaultConfig(), configPath))
	base := []string{"--config", configPath, "--data-dir", dir}

	for _, store := range []string{"images", "labels"} {
		for i, kv := range [][2]string{{"a", "1"}, {"b", "2"}, {"c", "3"}} {
			_, err := execute(t, append(base, "put", store, kv[0], kv[1])...)
			require.NoError(t, err, "seeding %s record %d", store, i)
		}
	}

	textfile := filepath.Join(dir, "datum.prom")
	out, err := execute(t, append(base, "--metrics-textfile", textfile, "divide", "2", "images", "labels")...)
	require.NoError(t, err)
	assert.Contains(t, out, "train:")
	assert.Contains(t, out, "labels_test")

	out, err = execute(t, append(base, "get", "labels_train", "00000001")...)
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	out, err = execute(t, append(base, "get", "images_test", "00000000")...)
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	metrics, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `datum_runs_total{status="success",tool="divide"} 1`)

	_, err = execute(t, append(base, "divide", "2", "images", "labels")...)
	assert.Error(t, err, "outputs already exist")

	_, err = execute(t, append(base, "--overwrite", "divide", "2", "images", "labels")...)
	assert.NoError(t, err)
}

func TestDivideCommand_UsageErrors(t *testing.T) {
	dir, configPath := workspace(t)
	require.NoError(t, config.SaveConfig(config.DefaultConfig(), configPath))

	_, err := execute(t, "--config", configPath, "--data-dir", dir, "divide", "2")
	assert.Error(t, err)

	_, err = execute(t, "--config", configPath, "--data-dir", dir, "divide", "two", "images")
	assert.Error(t, err)
}

func TestShuffleCommand_Seed(t *testing.T) {
	dir, configPath := workspace(t)
	require.NoError(t, config.SaveConfig(config.DefaultConfig(), configPath))
	base := []string{"--config", configPath, "--data-dir", dir}

	for _, kv := range [][2]string{{"a", "1"}, {"b", "2"}, {"c", "3"}, {"d", "4"}} {
		_, err := execute(t, append(base, "put", "labels", kv[0], kv[1])...)
		require.NoError(t, err)
	}

	out, err := execute(t, append(base, "shuffle", "labels", "--seed", "42")...)
	require.NoError(t, err)
	assert.Contains(t, out, "seed:")
	assert.Contains(t, out, "42")
}
