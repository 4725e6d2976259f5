package stego

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xob0t/GoStego/pkg/media"
)

// Medium is the kind of carrier a file holds.
type Medium int

const (
	MediumUnknown Medium = iota
	MediumAudio
	MediumImage
	MediumVideo
)

func (m Medium) String() string {
	switch m {
	case MediumAudio:
		return "audio"
	case MediumImage:
		return "image"
	case MediumVideo:
		return "video"
	default:
		return "unknown"
	}
}

// DetectMedium classifies path by its extension.
func DetectMedium(path string) (Medium, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav", ".wave", ".mp3":
		return MediumAudio, nil
	case ".png", ".bmp", ".tif", ".tiff", ".jpg", ".jpeg", ".gif", ".webp":
		return MediumImage, nil
	case ".avi":
		return MediumVideo, nil
	case ".mp4", ".mkv", ".mov":
		return MediumUnknown, fmt.Errorf("%w: %s video (convert to AVI first)", ErrUnsupportedMedium, ext)
	default:
		return MediumUnknown, fmt.Errorf("%w: %q", ErrUnsupportedMedium, ext)
	}
}

// OutputPath forces path onto the lossless container for m. An empty path
// derives one from src.
func OutputPath(m Medium, src, path string) string {
	if path == "" {
		path = strings.TrimSuffix(src, filepath.Ext(src)) + "_stego"
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	switch m {
	case MediumAudio:
		return base + ".wav"
	case MediumVideo:
		return base + ".avi"
	default:
		switch media.LosslessFormat(ext) {
		case "bmp":
			return base + ".bmp"
		case "tiff":
			if strings.EqualFold(ext, ".tif") {
				return base + ".tif"
			}
			return base + ".tiff"
		default:
			return base + ".png"
		}
	}
}
