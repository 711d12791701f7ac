package archive

import "log/slog"

// WriteOption is a functional option for Marshal and WriteFile.
type WriteOption func(*writeConfig)

type writeConfig struct {
	codec  Codec
	logger *slog.Logger
}

func newWriteConfig(opts []WriteOption) *writeConfig {
	cfg := &writeConfig{
		codec:  Default,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithCodec sets the value codec. Ignored for set inputs.
func WithCodec(c Codec) WriteOption {
	return func(cfg *writeConfig) {
		if c != nil {
			cfg.codec = c
		}
	}
}

// WithLogger sets the logger that receives debug events while writing.
func WithLogger(l *slog.Logger) WriteOption {
	return func(cfg *writeConfig) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// OpenOption is a functional option for Open, OpenFile and OpenBytes.
type OpenOption func(*openConfig)

type openConfig struct {
	codecs []Codec
}

func newOpenConfig(opts []OpenOption) *openConfig {
	cfg := &openConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithCodecs makes custom codecs available when resolving the codec name
// stored in the archive. They take precedence over the built-in codecs.
func WithCodecs(cs ...Codec) OpenOption {
	return func(cfg *openConfig) {
		cfg.codecs = append(cfg.codecs, cs...)
	}
}
