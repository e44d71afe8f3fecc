package jxl

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"testing"

	"github.com/gen2brain/jpegxl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeJXL(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpegxl.Encode(&buf, img, jpegxl.Options{Quality: 100, Effort: 1}))
	return buf.Bytes()
}

func pattern(w, h int, translucent bool) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := uint8(0xFF)
			if translucent {
				a = uint8(64 + (x*7+y*3)%192)
			}
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 13), G: uint8(y * 29), B: uint8(x ^ y), A: a})
		}
	}
	return img
}

// wrapContainer puts a bare codestream into an ISOBMFF container, split
// over parts jxlp boxes when parts > 1
func wrapContainer(cs []byte, parts int) []byte {
	out := append([]byte(nil), ContainerSignature...)
	out = append(out, box("ftyp", []byte("jxl \x00\x00\x00\x00jxl "))...)
	if parts <= 1 {
		return append(out, box("jxlc", cs)...)
	}
	step := (len(cs) + parts - 1) / parts
	for i := 0; i < parts; i++ {
		start, end := i*step, min((i+1)*step, len(cs))
		idx := uint32(i)
		if i == parts-1 {
			idx |= 0x80000000
		}
		payload := binary.BigEndian.AppendUint32(nil, idx)
		out = append(out, box("jxlp", append(payload, cs[start:end]...))...)
	}
	return out
}

func TestParseBasicInfo_MatchesLibjxl(t *testing.T) {
	sizes := [][2]int{{1, 1}, {8, 16}, {37, 23}, {300, 7}, {256, 256}, {1000, 1}, {64, 48}}
	for _, sz := range sizes {
		for _, translucent := range []bool{false, true} {
			data := encodeJXL(t, pattern(sz[0], sz[1], translucent))
			cfg, err := jpegxl.DecodeConfig(bytes.NewReader(data))
			require.NoError(t, err)

			cs, _, err := codestream(data)
			require.NoError(t, err)
			info, err := parseBasicInfo(cs)
			require.NoError(t, err, "%dx%d", sz[0], sz[1])
			assert.Equal(t, uint32(cfg.Width), info.Width, "%dx%d", sz[0], sz[1])
			assert.Equal(t, uint32(cfg.Height), info.Height, "%dx%d", sz[0], sz[1])
			assert.Equal(t, uint32(8), info.BitsPerSample)
			assert.Equal(t, uint32(1), info.Orientation)
			assert.False(t, info.HaveAnimation)
			if translucent {
				assert.True(t, info.HasAlpha(), "%dx%d translucent", sz[0], sz[1])
			}
		}
	}
}

func TestParseBasicInfo_GrayFromLibjxl(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 19, 5))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 3)
	}
	data := encodeJXL(t, img)
	cs, _, err := codestream(data)
	require.NoError(t, err)
	info, err := parseBasicInfo(cs)
	require.NoError(t, err)
	assert.Equal(t, uint32(19), info.Width)
	assert.Equal(t, uint32(5), info.Height)
}

func TestDecoder_LibjxlContainer(t *testing.T) {
	src := pattern(37, 23, true)
	data := encodeJXL(t, src)
	cs, _, err := codestream(data)
	require.NoError(t, err)

	want, err := jpegxl.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	for _, parts := range []int{1, 3} {
		wrapped := wrapContainer(cs, parts)
		d, err := NewDecoder()
		require.NoError(t, err)
		require.NoError(t, d.SubscribeEvents(EventBasicInfo))

		// uneven slices so box headers straddle chunks
		st := StatusNeedMoreInput
		for off := 0; st == StatusNeedMoreInput; {
			require.Less(t, off, len(wrapped), "parts %d: header never completed", parts)
			end := min(off+29, len(wrapped))
			require.NoError(t, d.SetInput(wrapped[off:end]))
			off = end
			st = d.ProcessInput()
			d.ReleaseInput()
		}
		require.Equal(t, StatusBasicInfo, st, "parts %d: %v", parts, d.Err())
		info, err := d.BasicInfo()
		require.NoError(t, err)
		assert.True(t, info.HaveContainer)
		assert.Equal(t, uint32(37), info.Width)
		assert.Equal(t, uint32(23), info.Height)
		d.Close()
	}

	// pixels through the container path match libjxl on the bare stream
	d, err := NewDecoder()
	require.NoError(t, err)
	defer d.Close()
	require.NoError(t, d.SubscribeEvents(EventFullImage))
	runner := NewResizableRunner()
	runner.SetThreads(4)
	require.NoError(t, d.SetParallelRunner(runner))
	require.NoError(t, d.SetInput(wrapContainer(cs, 3)))
	d.CloseInput()
	require.Equal(t, StatusNeedImageOutBuffer, d.ProcessInput())
	buf := make([]byte, 37*23*4)
	require.NoError(t, d.SetImageOutBuffer(RGBA8, buf))
	require.Equal(t, StatusFullImage, d.ProcessInput(), "%v", d.Err())
	for y := 0; y < 23; y++ {
		for x := 0; x < 37; x++ {
			c := color.NRGBAModel.Convert(want.At(x, y)).(color.NRGBA)
			off := (y*37 + x) * 4
			require.Equal(t, []byte{c.R, c.G, c.B, c.A}, buf[off:off+4], "(%d,%d)", x, y)
		}
	}
}
