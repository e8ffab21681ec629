package portreg_test

import (
	"os"
	"testing"

	"engine-bridge/core/portreg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alwaysAlive(int) bool { return true }
func alwaysDead(int) bool  { return false }

func openTestRegistry(t *testing.T) *portreg.Registry {
	t.Helper()
	reg, err := portreg.Open(":memory:")
	require.NoError(t, err)
	return reg
}

func TestReserveAndRelease(t *testing.T) {
	reg := openTestRegistry(t)

	require.NoError(t, reg.Reserve(1337, 100, alwaysAlive))

	// a live holder blocks a second claimant
	err := reg.Reserve(1337, 200, alwaysAlive)
	assert.ErrorIs(t, err, portreg.ErrPortBusy)

	// same pid may refresh its own reservation
	assert.NoError(t, reg.Reserve(1337, 100, alwaysAlive))

	require.NoError(t, reg.Release(1337))
	assert.NoError(t, reg.Reserve(1337, 200, alwaysAlive))
}

func TestStaleReservationReplaced(t *testing.T) {
	reg := openTestRegistry(t)

	require.NoError(t, reg.Reserve(1337, 100, alwaysAlive))
	// holder died: the next claim takes over
	assert.NoError(t, reg.Reserve(1337, 200, alwaysDead))
}

func TestReleaseUnreservedIsNoop(t *testing.T) {
	reg := openTestRegistry(t)
	assert.NoError(t, reg.Release(9999))
}

func TestPrune(t *testing.T) {
	reg := openTestRegistry(t)

	require.NoError(t, reg.Reserve(1337, 100, nil))
	require.NoError(t, reg.Reserve(1338, 200, nil))

	pruned, err := reg.Prune(func(pid int) bool { return pid == 100 })
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	// the surviving reservation still blocks
	err = reg.Reserve(1337, 300, alwaysAlive)
	assert.ErrorIs(t, err, portreg.ErrPortBusy)
}

func TestProcessAlive(t *testing.T) {
	assert.True(t, portreg.ProcessAlive(os.Getpid()))
	assert.False(t, portreg.ProcessAlive(-1))
}
