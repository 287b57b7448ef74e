package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandStr(t *testing.T) {
	length := 10
	randStr := RandStr(length)
	assert.Equal(t, length, len(randStr))
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	err := EnsureDir(dir)
	assert.Nil(t, err)
	assert.True(t, FileExists(dir))
}

func TestFileExists(t *testing.T) {
	f := filepath.Join(t.TempDir(), "x.txt")
	assert.False(t, FileExists(f))
	os.WriteFile(f, []byte("x"), 0666)
	assert.True(t, FileExists(f))
}
