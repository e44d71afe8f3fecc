package jxl

import (
	"bytes"
	"fmt"
)

// Extra channel types from the ImageMetadata bundle
const (
	extraChannelAlpha     = 0
	extraChannelSpotColor = 2
	extraChannelCFA       = 5
	extraChannelOptional  = 16
)

// parseBasicInfo reads SizeHeader and the leading part of ImageMetadata
// from a (possibly partial) codestream. errShortInput means more bytes
// are needed.
func parseBasicInfo(cs []byte) (BasicInfo, error) {
	var info BasicInfo
	if len(cs) < len(CodestreamSignature) {
		if !bytes.HasPrefix(CodestreamSignature, cs) {
			return info, ErrInvalidFormat
		}
		return info, errShortInput
	}
	if !bytes.Equal(cs[:2], CodestreamSignature) {
		return info, ErrInvalidFormat
	}

	br := newBitReader(cs[2:])
	w, h, err := readSizeHeader(br)
	if err != nil {
		return info, err
	}
	info.Width, info.Height = w, h
	info.Orientation = 1

	if err := readImageMetadata(br, &info); err != nil {
		return info, err
	}

	// orientations 5..8 transpose the image
	if info.Orientation > 4 {
		info.Width, info.Height = info.Height, info.Width
		info.IntrinsicWidth, info.IntrinsicHeight = info.IntrinsicHeight, info.IntrinsicWidth
	}
	return info, nil
}

func readSizeHeader(br *bitReader) (uint32, uint32, error) {
	div8, err := br.readBool()
	if err != nil {
		return 0, 0, err
	}
	var height uint32
	if div8 {
		v, err := br.readBits(5)
		if err != nil {
			return 0, 0, err
		}
		height = (v + 1) * 8
	} else {
		if height, err = br.readU32(bitsOffset(9, 1), bitsOffset(13, 1), bitsOffset(18, 1), bitsOffset(30, 1)); err != nil {
			return 0, 0, err
		}
	}
	ratio, err := br.readBits(3)
	if err != nil {
		return 0, 0, err
	}
	if ratio != 0 {
		return aspectWidth(ratio, height), height, nil
	}
	var width uint32
	if div8 {
		v, err := br.readBits(5)
		if err != nil {
			return 0, 0, err
		}
		width = (v + 1) * 8
	} else {
		if width, err = br.readU32(bitsOffset(9, 1), bitsOffset(13, 1), bitsOffset(18, 1), bitsOffset(30, 1)); err != nil {
			return 0, 0, err
		}
	}
	return width, height, nil
}

// aspectWidth derives the width from one of the seven fixed ratios
func aspectWidth(ratio, height uint32) uint32 {
	h := uint64(height)
	switch ratio {
	case 1:
		return height
	case 2:
		return uint32(h * 12 / 10)
	case 3:
		return uint32(h * 4 / 3)
	case 4:
		return uint32(h * 3 / 2)
	case 5:
		return uint32(h * 16 / 9)
	case 6:
		return uint32(h * 5 / 4)
	case 7:
		return uint32(h * 2)
	}
	return 0
}

func readPreviewHeader(br *bitReader) (uint32, uint32, error) {
	div8, err := br.readBool()
	if err != nil {
		return 0, 0, err
	}
	readDim := func() (uint32, error) {
		if div8 {
			v, err := br.readU32(val(16), val(32), bitsOffset(5, 1), bitsOffset(9, 33))
			return v * 8, err
		}
		return br.readU32(bitsOffset(6, 1), bitsOffset(8, 65), bitsOffset(10, 321), bitsOffset(12, 1345))
	}
	height, err := readDim()
	if err != nil {
		return 0, 0, err
	}
	ratio, err := br.readBits(3)
	if err != nil {
		return 0, 0, err
	}
	if ratio != 0 {
		return aspectWidth(ratio, height), height, nil
	}
	width, err := readDim()
	return width, height, err
}

func readImageMetadata(br *bitReader, info *BasicInfo) error {
	allDefault, err := br.readBool()
	if err != nil {
		return err
	}
	if allDefault {
		info.BitsPerSample = 8
		return nil
	}

	extraFields, err := br.readBool()
	if err != nil {
		return err
	}
	if extraFields {
		o, err := br.readBits(3)
		if err != nil {
			return err
		}
		info.Orientation = o + 1

		haveIntrinsic, err := br.readBool()
		if err != nil {
			return err
		}
		if haveIntrinsic {
			if info.IntrinsicWidth, info.IntrinsicHeight, err = readSizeHeader(br); err != nil {
				return err
			}
		}

		if info.HavePreview, err = br.readBool(); err != nil {
			return err
		}
		if info.HavePreview {
			if info.PreviewWidth, info.PreviewHeight, err = readPreviewHeader(br); err != nil {
				return err
			}
		}

		if info.HaveAnimation, err = br.readBool(); err != nil {
			return err
		}
		if info.HaveAnimation {
			if err := readAnimationHeader(br, info); err != nil {
				return err
			}
		}
	}

	if info.BitsPerSample, info.ExponentBitsPerSample, err = readBitDepth(br); err != nil {
		return err
	}

	// modular_16_bit_buffers
	if _, err := br.readBool(); err != nil {
		return err
	}

	if info.NumExtraChannels, err = br.readU32(val(0), val(1), bitsOffset(4, 2), bitsOffset(12, 1)); err != nil {
		return err
	}
	for i := uint32(0); i < info.NumExtraChannels; i++ {
		if err := readExtraChannel(br, info); err != nil {
			return fmt.Errorf("extra channel %d: %w", i, err)
		}
	}
	return nil
}

func readAnimationHeader(br *bitReader, info *BasicInfo) error {
	var err error
	if info.AnimTPSNumerator, err = br.readU32(val(100), val(1000), bitsOffset(10, 1), bitsOffset(30, 1)); err != nil {
		return err
	}
	if info.AnimTPSDenominator, err = br.readU32(val(1), val(1001), bitsOffset(8, 1), bitsOffset(10, 1)); err != nil {
		return err
	}
	if info.AnimNumLoops, err = br.readU32(val(0), bits(3), bits(16), bits(32)); err != nil {
		return err
	}
	info.AnimHaveTimecodes, err = br.readBool()
	return err
}

// readBitDepth returns bits per sample and exponent bits (0 for integers)
func readBitDepth(br *bitReader) (uint32, uint32, error) {
	float, err := br.readBool()
	if err != nil {
		return 0, 0, err
	}
	if !float {
		bps, err := br.readU32(val(8), val(10), val(12), bitsOffset(6, 1))
		return bps, 0, err
	}
	bps, err := br.readU32(val(32), val(16), val(24), bitsOffset(6, 1))
	if err != nil {
		return 0, 0, err
	}
	exp, err := br.readBits(4)
	if err != nil {
		return 0, 0, err
	}
	return bps, exp + 1, nil
}

// readExtraChannel consumes one ExtraChannelInfo bundle. The first alpha
// channel found determines the alpha fields of info.
func readExtraChannel(br *bitReader, info *BasicInfo) error {
	allDefault, err := br.readBool()
	if err != nil {
		return err
	}
	if allDefault {
		if info.AlphaBits == 0 {
			info.AlphaBits = 8
		}
		return nil
	}

	typ, err := br.readEnum()
	if err != nil {
		return err
	}
	if typ > extraChannelOptional {
		return fmt.Errorf("%w: extra channel type %d", ErrInvalidFormat, typ)
	}
	bps, exp, err := readBitDepth(br)
	if err != nil {
		return err
	}
	// dim_shift
	if _, err := br.readU32(val(0), val(3), val(4), bitsOffset(3, 1)); err != nil {
		return err
	}
	nameLen, err := br.readU32(val(0), bits(4), bitsOffset(5, 16), bitsOffset(10, 48))
	if err != nil {
		return err
	}
	if err := br.skipBits(int(nameLen) * 8); err != nil {
		return err
	}

	switch typ {
	case extraChannelAlpha:
		premultiplied, err := br.readBool()
		if err != nil {
			return err
		}
		if info.AlphaBits == 0 {
			info.AlphaBits = bps
			info.AlphaExponentBits = exp
			info.AlphaPremultiplied = premultiplied
		}
	case extraChannelSpotColor:
		// four f16 values
		if err := br.skipBits(4 * 16); err != nil {
			return err
		}
	case extraChannelCFA:
		if _, err := br.readU32(val(1), bits(2), bitsOffset(4, 3), bitsOffset(8, 19)); err != nil {
			return err
		}
	}
	return nil
}
