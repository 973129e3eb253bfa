package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/scrollkit/internal/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadIsolated(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	cfg, err := config.Load(t.TempDir(), false)
	require.NoError(t, err)
	return cfg
}

func parsed(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addSourceFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestSourceFromFlags(t *testing.T) {
	t.Run("config values", func(t *testing.T) {
		cfg := loadIsolated(t)
		cfg.Source.Include = []string{"*.md"}
		cfg.Source.MaxDepth = 2
		cfg.Source.DebounceMS = 300

		src, err := sourceFromFlags(parsed(t), cfg, nil)
		require.NoError(t, err)
		assert.Equal(t, cfg.WorkingDir(), src.Root)
		assert.Equal(t, []string{"*.md"}, src.Options.Include)
		assert.Equal(t, 2, src.Options.MaxDepth)
		assert.True(t, src.Watch)
		assert.Equal(t, 300*time.Millisecond, src.Debounce)
		assert.Nil(t, src.Entries)
	})

	t.Run("flags win", func(t *testing.T) {
		cfg := loadIsolated(t)
		cfg.Source.Include = []string{"*.md"}
		cfg.Source.MaxDepth = 2

		cmd := parsed(t, "--glob", "**/*.go", "--glob", "*.mod", "--depth", "0", "--hidden", "--no-watch", "--details")
		src, err := sourceFromFlags(cmd, cfg, []string{"internal"})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(cfg.WorkingDir(), "internal"), src.Root)
		assert.Equal(t, []string{"**/*.go", "*.mod"}, src.Options.Include)
		assert.Equal(t, 0, src.Options.MaxDepth)
		assert.True(t, src.Options.Hidden)
		assert.False(t, src.Watch)
	})

	t.Run("generated", func(t *testing.T) {
		cfg := loadIsolated(t)
		src, err := sourceFromFlags(parsed(t, "-n", "25"), cfg, nil)
		require.NoError(t, err)
		assert.Len(t, src.Entries, 25)
		assert.Empty(t, src.Root)

		_, err = sourceFromFlags(parsed(t, "--generate=-1"), cfg, nil)
		require.Error(t, err)
	})
}

func TestSetField(t *testing.T) {
	cfg := loadIsolated(t)

	require.NoError(t, setField(cfg, "list.spacing", "2"))
	require.NoError(t, setField(cfg, "source.include", `["**/*.go"]`))
	require.NoError(t, setField(cfg, "options.log_level", "debug"))

	reloaded, err := config.Load(cfg.WorkingDir(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.List.Spacing)
	assert.Equal(t, []string{"**/*.go"}, reloaded.Source.Include)
	assert.Equal(t, "debug", reloaded.Options.LogLevel)
}

func TestDirs(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	t.Setenv("XDG_DATA_HOME", "/tmp/data")

	var out bytes.Buffer
	dirsCmd.SetOut(&out)
	t.Cleanup(func() { dirsCmd.SetOut(nil) })

	require.NoError(t, dirsCmd.RunE(dirsCmd, nil))
	assert.Equal(t,
		"Config directory: "+filepath.Dir(config.GlobalConfig())+"\n"+
			"Data directory:   "+filepath.Dir(config.GlobalConfigData())+"\n",
		out.String())
}

func TestListOverrides(t *testing.T) {
	layout := config.ListOptions{ItemHeight: 2}
	listOverrides(parsed(t))(&layout)
	assert.Equal(t, config.ListOptions{ItemHeight: 2}, layout)

	listOverrides(parsed(t, "--details"))(&layout)
	assert.True(t, layout.ShowDetails)

	layout.ShowDetails = true
	listOverrides(parsed(t, "--details=false"))(&layout)
	assert.False(t, layout.ShowDetails)
}

func TestResolveCwdRelative(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	tmp := t.TempDir()
	t.Chdir(tmp)
	proj := filepath.Join(tmp, "proj")
	require.NoError(t, os.Mkdir(proj, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(proj, ".scrollkit.json"), []byte(`{"list":{"item_height":3}}`), 0o644))

	cwd, err := ResolveCwd("proj")
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(cwd))

	want, err := filepath.EvalSymlinks(proj)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(cwd)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	cfg, err := config.Load(cwd, false)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.List.ItemHeight)
}
