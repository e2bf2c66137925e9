package rendercore

import "github.com/gogpu/gputypes"

// ColorBaseFormat identifies the base layout of a guest color surface,
// independent of gamma encoding.
type ColorBaseFormat uint8

// Base color formats understood by the translation layer.
const (
	// ColorBaseU8U8U8U8 is 8-bit per channel RGBA, the guest default.
	ColorBaseU8U8U8U8 ColorBaseFormat = iota

	// ColorBaseU8U8U8 is 8-bit per channel RGB; expanded to RGBA on the
	// host since explicit APIs have no 24-bit color attachment format.
	ColorBaseU8U8U8

	// ColorBaseU8U8U8U8BGRA is 8-bit per channel BGRA.
	ColorBaseU8U8U8U8BGRA

	// ColorBaseU8 is a single 8-bit channel.
	ColorBaseU8

	// ColorBaseF32F32F32F32 is 32-bit float RGBA.
	ColorBaseF32F32F32F32
)

// String returns the name of the base format.
func (f ColorBaseFormat) String() string {
	switch f {
	case ColorBaseU8U8U8U8:
		return "U8U8U8U8"
	case ColorBaseU8U8U8:
		return "U8U8U8"
	case ColorBaseU8U8U8U8BGRA:
		return "U8U8U8U8_BGRA"
	case ColorBaseU8:
		return "U8"
	case ColorBaseF32F32F32F32:
		return "F32F32F32F32"
	default:
		return "Unknown"
	}
}

// TranslateColorFormat maps a guest base color format to the host texture
// format used for the color attachment. It is a pure function; gamma
// handling is layered on top by resolveColorFormat.
func TranslateColorFormat(base ColorBaseFormat) gputypes.TextureFormat {
	switch base {
	case ColorBaseU8U8U8U8, ColorBaseU8U8U8:
		return gputypes.TextureFormatRGBA8Unorm
	case ColorBaseU8U8U8U8BGRA:
		return gputypes.TextureFormatBGRA8Unorm
	case ColorBaseU8:
		return gputypes.TextureFormatR8Unorm
	case ColorBaseF32F32F32F32:
		return gputypes.TextureFormatRGBA32Float
	default:
		return gputypes.TextureFormatRGBA8Unorm
	}
}

// resolveColorFormat applies the gamma substitution on top of the base
// translation: when the guest requests gamma-corrected output on an 8-bit
// unorm surface, the sRGB variant of the format is used so the hardware
// performs the encoding.
func resolveColorFormat(base ColorBaseFormat, gamma bool) gputypes.TextureFormat {
	format := TranslateColorFormat(base)
	if !gamma {
		return format
	}
	switch format {
	case gputypes.TextureFormatRGBA8Unorm:
		return gputypes.TextureFormatRGBA8UnormSrgb
	case gputypes.TextureFormatBGRA8Unorm:
		return gputypes.TextureFormatBGRA8UnormSrgb
	default:
		return format
	}
}
