package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/wordmask/config"
)

func TestGenerators(t *testing.T) {
	for _, typ := range []string{"snowflake", "sonyflake"} {
		t.Run(typ, func(t *testing.T) {
			g, err := NewGenerator(config.IDGenConfig{Type: typ, MachineID: 7, StartTime: "2024-01-01"})
			require.NoError(t, err)

			seen := make(map[int64]struct{})
			var prev int64
			for range 1000 {
				id := g.Generate()
				assert.Positive(t, id)
				assert.Greater(t, id, prev)
				_, dup := seen[id]
				assert.False(t, dup)
				seen[id] = struct{}{}
				prev = id
			}
		})
	}
}

func TestNewGeneratorErrors(t *testing.T) {
	_, err := NewGenerator(config.IDGenConfig{Type: "uuid"})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = NewGenerator(config.IDGenConfig{Type: "snowflake", StartTime: "yesterday"})
	assert.Error(t, err)

	_, err = NewGenerator(config.IDGenConfig{Type: "snowflake", MachineID: 4096})
	assert.Error(t, err)
}

func TestGenIDString(t *testing.T) {
	require.NoError(t, Init(config.IDGenConfig{Type: "snowflake", MachineID: 3}))
	a, b := GenIDString(), GenIDString()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
