package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSniffMimeHTTP(t *testing.T) {
	assert.Equal(t, "image/jpeg", SniffMimeHTTP([]byte{0xFF, 0xD8, 0xFF, 0xE0}))
	assert.Equal(t, "image/png", SniffMimeHTTP([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0}))
	assert.Equal(t, "image/gif", SniffMimeHTTP([]byte("GIF89a......")))
	assert.Equal(t, "application/octet-stream", SniffMimeHTTP([]byte("hello")))
	assert.Equal(t, "application/octet-stream", SniffMimeHTTP(nil))
}

func TestImageExt(t *testing.T) {
	assert.Equal(t, ".png", ImageExt("hand.PNG"))
	assert.Equal(t, ".jpeg", ImageExt("dir/hand.jpeg"))
	assert.Equal(t, ".jpg", ImageExt("hand.heic"))
	assert.Equal(t, ".jpg", ImageExt("hand"))
}

func TestStem(t *testing.T) {
	assert.Equal(t, "temp_abc", Stem("/tmp/uploads/temp_abc.jpg"))
	assert.Equal(t, "temp_abc", Stem("temp_abc"))
}
