package cover

import (
	"encoding/binary"
	"math"

	"github.com/xob0t/GoStego/pkg/media"
)

// tone synthesizes a sine wave at cfg.Tone with optional noise.
func tone(cfg Config) *media.WAV {
	frames := int(cfg.Duration * float64(cfg.SampleRate))
	step := cfg.BitDepth / 8
	data := make([]byte, frames*cfg.Channels*step)
	rng := newNoise(cfg.Seed)

	amp := 0.3
	for i := 0; i < frames; i++ {
		v := amp * math.Sin(2*math.Pi*cfg.Tone*float64(i)/float64(cfg.SampleRate))
		for ch := 0; ch < cfg.Channels; ch++ {
			o := (i*cfg.Channels + ch) * step
			if step == 1 {
				data[o] = uint8(128 + int(v*127))
			} else {
				binary.LittleEndian.PutUint16(data[o:], uint16(int16(v*32767)))
			}
		}
	}
	if cfg.Noise > 0 {
		// 16-bit samples get noise on their low byte only.
		if step == 1 {
			rng.apply(data, cfg.Noise, 0)
		} else {
			rng.apply(data, min(cfg.Noise, 127), 2)
		}
	}
	return media.NewPCM(media.PCMFormat(cfg.Channels, cfg.SampleRate, cfg.BitDepth), data)
}
