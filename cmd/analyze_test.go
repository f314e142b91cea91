package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "picks.csv", "Delivery,Material,Act.qty (dest),Queue\nD1,M1,4,PI_PL\nD1,M2,2,PI_PL\n")
	writeFile(t, dir, "categories.csv", "Delivery,Category,Kind\nD1,N,Misch\n")
	writeFile(t, dir, "notes.txt", "ignored")

	in, err := loadDir(dir)
	require.NoError(t, err)
	assert.Len(t, in.Picks, 2)
	assert.Len(t, in.Categories, 1)
	assert.Empty(t, in.Queues)
}

func TestLoadDirRequiresPicks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "queues.csv", "Queue\nPI_PL\n")

	_, err := loadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "picks.csv is required")
}

func TestLoadDirReportsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "picks.csv", "Delivery\nD1\n")

	_, err := loadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "picks.csv")
}

func TestGormLogLevel(t *testing.T) {
	assert.NotEqual(t, gormLogLevel("debug"), gormLogLevel("info"))
	assert.Equal(t, gormLogLevel("warn"), gormLogLevel(""))
}
