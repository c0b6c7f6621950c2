package vitals

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 3, 2))))
	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())

	for _, input := range []string{encoded, "data:image/png;base64," + encoded} {
		frame, err := DecodeFrame(input)
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 3, 2), frame.Bounds())
	}

	_, err := DecodeFrame("")
	assert.ErrorIs(t, err, ErrEmptyFrame)

	_, err = DecodeFrame("%%%")
	assert.Error(t, err)

	_, err = DecodeFrame(base64.StdEncoding.EncodeToString([]byte("not an image")))
	assert.Error(t, err)
}
