package endpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckLocalSource(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "src.bin")
	require.NoError(t, os.WriteFile(file, []byte("payload"), 0644))

	info, err := CheckLocalSource(file)
	require.NoError(t, err)
	assert.Equal(t, int64(7), info.Size())

	_, err = CheckLocalSource(filepath.Join(dir, "missing.bin"))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "no such file")

	_, err = CheckLocalSource(dir)
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "directory")
}

func TestCheckLocalTarget(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, CheckLocalTarget(dir))

	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	var verr *ValidationError
	require.ErrorAs(t, CheckLocalTarget(file), &verr)
	assert.Contains(t, verr.Reason, "not a directory")

	require.ErrorAs(t, CheckLocalTarget(filepath.Join(dir, "nope")), &verr)
	assert.Contains(t, verr.Reason, "no such directory")
}

func TestCheckIdentityFile(t *testing.T) {
	dir := t.TempDir()

	// Absent is fine, the transport falls back to the agent.
	assert.NoError(t, CheckIdentityFile(""))

	key := filepath.Join(dir, "id_ed25519")
	require.NoError(t, os.WriteFile(key, []byte("key"), 0600))
	assert.NoError(t, CheckIdentityFile(key))

	var verr *ValidationError
	require.ErrorAs(t, CheckIdentityFile(dir), &verr)
	assert.Contains(t, verr.Reason, "directory")

	require.ErrorAs(t, CheckIdentityFile(filepath.Join(dir, "absent")), &verr)
	assert.Contains(t, verr.Reason, "no such file")
}

func TestCheckPort(t *testing.T) {
	assert.NoError(t, CheckPort(1))
	assert.NoError(t, CheckPort(22))
	assert.NoError(t, CheckPort(65535))

	var verr *ValidationError
	require.ErrorAs(t, CheckPort(0), &verr)
	assert.Equal(t, "port", verr.Field)
	require.ErrorAs(t, CheckPort(65536), &verr)
	assert.Equal(t, "port", verr.Field)
}

func TestCheckStreams(t *testing.T) {
	assert.NoError(t, CheckStreams(1))
	assert.NoError(t, CheckStreams(20))

	var verr *ValidationError
	require.ErrorAs(t, CheckStreams(0), &verr)
	assert.Equal(t, "streams", verr.Field)
}
