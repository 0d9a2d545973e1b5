package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"discord-persona-bot/internal/persona"
)

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	s := &writerSink{w: &buf}

	require.NoError(t, s.Replace(context.Background(), "first"))
	require.NoError(t, s.Append(context.Background(), "second"))
	require.Equal(t, "first\n-----\nsecond\n", buf.String())
}

func TestAskRequest(t *testing.T) {
	require.NoError(t, askCmd.ParseFlags([]string{"--category", "Chef", "--temperature", "0.7", "--username", "sam"}))

	req := askRequest([]string{"how", "do", "I", "poach", "an", "egg"})
	require.Equal(t, "how do I poach an egg", req.Text)
	require.Equal(t, "sam", req.Username)
	require.Equal(t, "Chef", req.Persona.Category)
	require.Equal(t, persona.DefaultHumor, req.Persona.Humor)
	require.InDelta(t, 0.7, req.Persona.Temperature, 1e-6)
}

func TestMigrateCommand_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.db")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", path)

	rootCmd.SetArgs([]string{"migrate"})
	require.NoError(t, rootCmd.Execute())
	require.FileExists(t, path)
	require.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestRunCommand_RequiresTokens(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "bot.db"))
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("OPENAI_API_KEY", "")

	rootCmd.SetArgs([]string{"run"})
	err := rootCmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "OPENAI_API_KEY")
	require.Contains(t, err.Error(), "DISCORD_TOKEN")
}
