package service

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qkfdcom/lcqk/internal/store/lists"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupLists(t *testing.T) *lists.Store {
	t.Helper()
	return lists.New(t.TempDir(), testLogger())
}

func writeListFile(t *testing.T, s *lists.Store, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), name), []byte(content), 0o644))
}

func readListFile(t *testing.T, s *lists.Store, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(s.Dir(), name))
	require.NoError(t, err)
	return string(data)
}
