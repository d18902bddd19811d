package converter

// RegisterBuiltins registers the codecs shipped with towebp.
func RegisterBuiltins() {
	Register("ffmpeg", func(bin string) Codec { return NewFFmpegCodec(bin) })
	Register("cwebp", func(bin string) Codec { return NewCWebPCodec(bin) })
}

