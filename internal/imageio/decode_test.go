package imageio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/canescan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_PNG(t *testing.T) {
	data := testutil.EncodePNG(t, testutil.Uniform(30, 20, testutil.LeafGreen))

	buf, err := Decode(data, "image/png")
	require.NoError(t, err)
	assert.Equal(t, 30, buf.Width)
	assert.Equal(t, 20, buf.Height)
	assert.Len(t, buf.Pix, 30*20*4)

	r, g, b, a := buf.At(5, 5)
	assert.Equal(t, []uint8{60, 150, 50, 255}, []uint8{r, g, b, a})
	assert.InDelta(t, (60.0+150+50)/3, buf.Brightness(5, 5), 1e-9)
}

func TestDecode_JPEGAliases(t *testing.T) {
	data := testutil.EncodeJPEG(t, testutil.Uniform(16, 16, testutil.MidGray))

	for _, mt := range []string{"image/jpeg", "image/jpg", "IMAGE/JPEG; charset=binary", ""} {
		t.Run(mt, func(t *testing.T) {
			buf, err := Decode(data, mt)
			require.NoError(t, err)
			assert.Equal(t, 16, buf.Width)
			r, _, _, _ := buf.At(8, 8)
			assert.InDelta(t, 128, int(r), 3)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	png := testutil.EncodePNG(t, testutil.Uniform(4, 4, testutil.MidGray))

	tests := []struct {
		name string
		data []byte
		mime string
	}{
		{"empty input", nil, "image/png"},
		{"unsupported declared type", png, "image/gif"},
		{"corrupt bytes", []byte("definitely not an image"), "image/jpeg"},
		{"truncated png", png[:20], "image/png"},
		{"sniffed text", []byte("hello world, plain text"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := Decode(tt.data, tt.mime)
			require.Error(t, err)
			assert.Nil(t, buf)
			assert.True(t, errors.Is(err, ErrDecode))
			var de *DecodeError
			assert.True(t, errors.As(err, &de))
		})
	}
}

// pngHeader returns a PNG signature plus an IHDR chunk declaring w x h
// 8-bit RGBA. The pixel data is missing, so only DecodeConfig can succeed.
func pngHeader(w, h uint32) []byte {
	var ihdr bytes.Buffer
	ihdr.WriteString("IHDR")
	_ = binary.Write(&ihdr, binary.BigEndian, w)
	_ = binary.Write(&ihdr, binary.BigEndian, h)
	ihdr.Write([]byte{8, 6, 0, 0, 0})

	var out bytes.Buffer
	out.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&out, binary.BigEndian, uint32(ihdr.Len()-4))
	out.Write(ihdr.Bytes())
	_ = binary.Write(&out, binary.BigEndian, crc32.ChecksumIEEE(ihdr.Bytes()))
	return out.Bytes()
}

func TestDecode_RejectsOversizedDimensions(t *testing.T) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(pngHeader(6000, 7000)))
	require.NoError(t, err)
	require.Greater(t, cfg.Width*cfg.Height, MaxPixels)

	buf, err := Decode(pngHeader(6000, 7000), "image/png")
	assert.Nil(t, buf)
	require.ErrorIs(t, err, ErrTooManyPixels)
	require.ErrorIs(t, err, ErrDecode)
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, "image/png", decErr.MimeType)
	assert.Contains(t, err.Error(), "6000x7000")
}

func TestDecode_TruncatedWithinLimit(t *testing.T) {
	_, err := Decode(pngHeader(100, 100), "image/png")
	require.ErrorIs(t, err, ErrDecode)
	assert.NotErrorIs(t, err, ErrTooManyPixels)
}

func TestNormalizeMimeType(t *testing.T) {
	mt, ok := NormalizeMimeType(" image/PJPEG ")
	assert.True(t, ok)
	assert.Equal(t, "image/jpeg", mt)

	_, ok = NormalizeMimeType("application/pdf")
	assert.False(t, ok)
}

func TestFromImage_OffsetBounds(t *testing.T) {
	src := testutil.Uniform(10, 10, testutil.PestBlack)
	sub := src.SubImage(image.Rect(2, 2, 6, 5))

	buf := FromImage(sub)
	assert.Equal(t, 4, buf.Width)
	assert.Equal(t, 3, buf.Height)
	assert.Len(t, buf.Pix, 4*3*4)
	assert.False(t, buf.Empty())
}

func TestToImage(t *testing.T) {
	buf := FromImage(testutil.Uniform(3, 2, testutil.WaxWhite))
	img := buf.ToImage()
	assert.Equal(t, testutil.WaxWhite, img.NRGBAAt(2, 1))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	data := testutil.EncodePNG(t, testutil.Uniform(8, 8, testutil.MidGray))
	path := testutil.WriteFile(t, dir, "lagarta_01.png", data)

	got, mime, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, data, got)

	_, _, err = LoadFile(filepath.Join(dir, "notes.txt"))
	assert.ErrorIs(t, err, ErrDecode)

	_, _, err = LoadFile(filepath.Join(dir, "missing.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadFile_TooLarge(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "huge.jpg", make([]byte, MaxUploadBytes+1))

	_, _, err := LoadFile(path)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestIsSupportedImage(t *testing.T) {
	assert.True(t, IsSupportedImage("a/b/C.JPG"))
	assert.True(t, IsSupportedImage("x.webp"))
	assert.False(t, IsSupportedImage("x.bmp"))
	assert.Equal(t, "image/webp", MimeTypeFromPath("x.WEBP"))
	assert.Equal(t, "", MimeTypeFromPath("x.tiff"))
}

func TestPixelBuffer_Empty(t *testing.T) {
	var nilBuf *PixelBuffer
	assert.True(t, nilBuf.Empty())
	assert.Equal(t, 0, nilBuf.PixelCount())
	assert.True(t, (&PixelBuffer{Width: 2, Height: 2, Pix: make([]uint8, 4)}).Empty())
}
