package rendercore

import (
	"testing"

	"github.com/gogpu/gputypes"
)

func TestTranslateColorFormat(t *testing.T) {
	tests := []struct {
		base ColorBaseFormat
		want gputypes.TextureFormat
	}{
		{ColorBaseU8U8U8U8, gputypes.TextureFormatRGBA8Unorm},
		{ColorBaseU8U8U8, gputypes.TextureFormatRGBA8Unorm},
		{ColorBaseU8U8U8U8BGRA, gputypes.TextureFormatBGRA8Unorm},
		{ColorBaseU8, gputypes.TextureFormatR8Unorm},
		{ColorBaseF32F32F32F32, gputypes.TextureFormatRGBA32Float},
		{ColorBaseFormat(200), gputypes.TextureFormatRGBA8Unorm},
	}
	for _, tt := range tests {
		if got := TranslateColorFormat(tt.base); got != tt.want {
			t.Errorf("TranslateColorFormat(%v) = %v, want %v", tt.base, got, tt.want)
		}
	}
}

func TestResolveColorFormatGamma(t *testing.T) {
	tests := []struct {
		name  string
		base  ColorBaseFormat
		gamma bool
		want  gputypes.TextureFormat
	}{
		{"rgba8 linear", ColorBaseU8U8U8U8, false, gputypes.TextureFormatRGBA8Unorm},
		{"rgba8 srgb", ColorBaseU8U8U8U8, true, gputypes.TextureFormatRGBA8UnormSrgb},
		{"rgb8 srgb", ColorBaseU8U8U8, true, gputypes.TextureFormatRGBA8UnormSrgb},
		{"bgra8 srgb", ColorBaseU8U8U8U8BGRA, true, gputypes.TextureFormatBGRA8UnormSrgb},
		{"r8 no srgb variant", ColorBaseU8, true, gputypes.TextureFormatR8Unorm},
		{"float passthrough", ColorBaseF32F32F32F32, true, gputypes.TextureFormatRGBA32Float},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveColorFormat(tt.base, tt.gamma); got != tt.want {
				t.Errorf("resolveColorFormat(%v, %v) = %v, want %v", tt.base, tt.gamma, got, tt.want)
			}
		})
	}
}

func TestColorBaseFormatString(t *testing.T) {
	tests := []struct {
		base ColorBaseFormat
		want string
	}{
		{ColorBaseU8U8U8U8, "U8U8U8U8"},
		{ColorBaseU8U8U8, "U8U8U8"},
		{ColorBaseU8U8U8U8BGRA, "U8U8U8U8_BGRA"},
		{ColorBaseU8, "U8"},
		{ColorBaseF32F32F32F32, "F32F32F32F32"},
		{ColorBaseFormat(99), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.base.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestZlsControlOps(t *testing.T) {
	tests := []struct {
		zls       ZlsControl
		wantLoad  gputypes.LoadOp
		wantStore gputypes.StoreOp
	}{
		{ZlsControl{}, gputypes.LoadOpClear, gputypes.StoreOpDiscard},
		{ZlsControl{ForceLoad: true}, gputypes.LoadOpLoad, gputypes.StoreOpDiscard},
		{ZlsControl{ForceStore: true}, gputypes.LoadOpClear, gputypes.StoreOpStore},
		{ZlsControl{ForceLoad: true, ForceStore: true}, gputypes.LoadOpLoad, gputypes.StoreOpStore},
	}
	for _, tt := range tests {
		if got := tt.zls.DepthLoadOp(); got != tt.wantLoad {
			t.Errorf("%+v DepthLoadOp = %v, want %v", tt.zls, got, tt.wantLoad)
		}
		if got := tt.zls.DepthStoreOp(); got != tt.wantStore {
			t.Errorf("%+v DepthStoreOp = %v, want %v", tt.zls, got, tt.wantStore)
		}
	}
}
