package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meigma/wad/internal/hashing"
)

func TestKey(t *testing.T) {
	t.Parallel()

	content := []byte("cached content")
	key := Key{Checksum: hashing.ContentChecksum(content), Size: uint32(len(content))}

	assert.True(t, key.Matches(content))
	assert.False(t, key.Matches(content[:5]))
	assert.False(t, key.Matches([]byte("cached kontent")))

	assert.Equal(t, "00000000000000ff-00000010", Key{Checksum: 0xff, Size: 16}.String())
}
