package storage

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/image/webp"

	"github.com/ironsmile/localmedia/src/models"
	"github.com/ironsmile/localmedia/src/translator"
)

// minImageHeader is the number of bytes needed to tell the image types apart.
const minImageHeader = 8

// ErrUnknownImageType is returned for image data which is not PNG, GIF, JPEG
// or WEBP.
var ErrUnknownImageType = errors.New("unknown image type")

// imageType is also the file extension for the type.
type imageType string

const (
	imagePNG  imageType = "png"
	imageGIF  imageType = "gif"
	imageJPEG imageType = "jpeg"
	imageWEBP imageType = "webp"
)

// sniffImageType returns the type of the image from its first bytes.
func sniffImageType(header []byte) (imageType, error) {
	if len(header) < minImageHeader {
		return "", ErrUnknownImageType
	}

	switch {
	case bytes.HasPrefix(header, []byte("\x89PNG\r\n\x1a\n")):
		return imagePNG, nil
	case bytes.HasPrefix(header, []byte("GIF87a")), bytes.HasPrefix(header, []byte("GIF89a")):
		return imageGIF, nil
	case bytes.HasPrefix(header, []byte("\xff\xd8")):
		return imageJPEG, nil
	case len(header) >= 12 && bytes.HasPrefix(header, []byte("RIFF")) &&
		bytes.Equal(header[8:12], []byte("WEBP")):
		return imageWEBP, nil
	}

	return "", ErrUnknownImageType
}

// imageSize returns the width and height stored in the image header.
func imageSize(typ imageType, data []byte) (int, int, error) {
	switch typ {
	case imagePNG:
		if len(data) < 24 {
			return 0, 0, errShortImage
		}
		width := binary.BigEndian.Uint32(data[16:20])
		height := binary.BigEndian.Uint32(data[20:24])
		return int(width), int(height), nil
	case imageGIF:
		if len(data) < 10 {
			return 0, 0, errShortImage
		}
		width := binary.LittleEndian.Uint16(data[6:8])
		height := binary.LittleEndian.Uint16(data[8:10])
		return int(width), int(height), nil
	case imageJPEG:
		return jpegSize(data)
	case imageWEBP:
		cfg, err := webp.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return 0, 0, err
		}
		return cfg.Width, cfg.Height, nil
	}

	return 0, 0, ErrUnknownImageType
}

var errShortImage = errors.New("image data too short")

// jpegSize walks the JPEG marker segments until it finds a start of frame
// segment which holds the image dimensions.
func jpegSize(data []byte) (int, int, error) {
	index, size := 0, 2
	var marker byte

	for marker < 0xc0 || marker > 0xcf {
		index += size
		if index >= len(data) {
			return 0, 0, errShortImage
		}
		marker = data[index]
		for marker == 0xff {
			index++
			if index >= len(data) {
				return 0, 0, errShortImage
			}
			marker = data[index]
		}
		index++
		if index+2 > len(data) {
			return 0, 0, errShortImage
		}
		size = int(binary.BigEndian.Uint16(data[index:index+2])) - 2
		index += 2
		if size < 0 {
			return 0, 0, fmt.Errorf("invalid jpeg segment size at %d", index)
		}
	}

	// skip the sample precision
	index++
	if index+4 > len(data) {
		return 0, 0, errShortImage
	}
	height := binary.BigEndian.Uint16(data[index : index+2])
	width := binary.BigEndian.Uint16(data[index+2 : index+4])

	return int(width), int(height), nil
}

// extractImages stores the embedded images from tags and the album art files
// found next to the track. It returns the URIs of the stored images. Images
// with the same contents are stored only once.
func (p *Provider) extractImages(uri string, tags *models.Tags) []string {
	var (
		uris []string
		seen = make(map[string]struct{})
	)
	add := func(imageURI string) {
		if _, ok := seen[imageURI]; ok {
			return
		}
		seen[imageURI] = struct{}{}
		uris = append(uris, imageURI)
	}

	if tags != nil {
		for _, data := range tags.Images {
			imageURI, err := p.saveImage(data, "embedded image")
			if err != nil {
				log.Warn().Err(err).Str("uri", uri).Msg("error extracting images")
				continue
			}
			add(imageURI)
		}
	}

	trackPath, err := translator.LocalURIToPath(uri, p.cfg.MediaDir)
	if err != nil {
		log.Warn().Err(err).Str("uri", uri).Msg("error extracting images")
		return uris
	}
	dir := escapeGlob(filepath.Dir(trackPath))

	for _, pattern := range p.cfg.AlbumArtFiles {
		matches, err := afero.Glob(p.fs, filepath.Join(dir, pattern))
		if err != nil {
			log.Warn().Err(err).Str("pattern", pattern).Msg("bad album art pattern")
			continue
		}
		for _, match := range matches {
			imageURI, err := p.imageFromPath(match)
			if err != nil {
				log.Warn().Err(err).Str("path", match).Msg("cannot read image file")
				continue
			}
			add(imageURI)
		}
	}

	return uris
}

// escapeGlob quotes the glob metacharacters in path so that it only matches
// itself. Directories before the first one with a metacharacter are used
// verbatim by the globbing and are left as they are.
func escapeGlob(path string) string {
	i := strings.IndexAny(path, "*?[")
	if i < 0 {
		return path
	}
	start := strings.LastIndexByte(path[:i], filepath.Separator) + 1

	var b strings.Builder
	b.WriteString(path[:start])
	for _, r := range path[start:] {
		switch {
		case r == '*' || r == '?' || r == '[':
			b.WriteByte('[')
			b.WriteRune(r)
			b.WriteByte(']')
		case r == '\\' && filepath.Separator != '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (p *Provider) imageFromPath(path string) (string, error) {
	data, err := afero.ReadFile(p.fs, path)
	if err != nil {
		return "", err
	}
	return p.saveImage(data, path)
}

// saveImage writes data into the image directory unless a file with the same
// contents is already there. The file is named after the digest of its
// contents and its dimensions, if they could be read.
func (p *Provider) saveImage(data []byte, source string) (string, error) {
	typ, err := sniffImageType(data)
	if err != nil {
		return "", err
	}

	digest := md5.Sum(data)
	name := hex.EncodeToString(digest[:])

	width, height, err := imageSize(typ, data)
	if err != nil {
		log.Error().Err(err).Str("source", source).Msg("error getting image size")
	}
	if err == nil && width > 0 && height > 0 {
		name = fmt.Sprintf("%s-%dx%d", name, width, height)
	}
	name += "." + string(typ)

	imagePath := filepath.Join(p.cfg.ImageDir, name)
	exists, err := afero.Exists(p.fs, imagePath)
	if err != nil {
		return "", err
	}
	if !exists {
		log.Info().Str("path", imagePath).Str("source", source).Msg("creating file")
		if err := afero.WriteFile(p.fs, imagePath, data, 0o644); err != nil {
			return "", fmt.Errorf("writing %s: %w", imagePath, err)
		}
	}

	return p.imageURI(name), nil
}
