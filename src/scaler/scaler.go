// Package scaler produces smaller versions of cover art images. The work is
// done by a pool of workers, one for every CPU, so that a burst of requests
// for thumbnails could not take over the machine.
package scaler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"runtime"

	// The following are all image formats supported for converting
	// to other image sizes.
	_ "image/gif"
	_ "image/png"

	// Additional image formats from the x repository.
	_ "golang.org/x/image/webp"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

// ErrCancelled is returned when one is trying to interact with an stopped
// scaler.
var ErrCancelled = errors.New("scale operation on cancelled Scaler")

// ErrInvalidWidth is returned for a target width which is not positive.
var ErrInvalidWidth = errors.New("width must be positive")

// description is a scaling instruction.
type description struct {

	// toWidth instructs the scaling to produce an image with this width.
	toWidth int

	// imgR is the source of the image which will be scaled.
	imgR io.Reader

	// result is the channel on which the result image is returned. It is
	// buffered so that workers never wait for callers which gave up.
	result chan result
}

// result encapsulates the outcome of an image conversion.
type result struct {
	imgData []byte
	err     error
}

// Scaler is a utility type which could be used for scaling images.
type Scaler struct {
	cancel context.CancelFunc
	done   <-chan struct{}
	group  *errgroup.Group

	work chan description
}

// New returns a new scaler, ready for use. It stops when ctx is done or
// Cancel is called.
func New(ctx context.Context) *Scaler {
	ctx, cancel := context.WithCancel(ctx)

	s := &Scaler{
		cancel: cancel,
		done:   ctx.Done(),
		work:   make(chan description),
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < runtime.NumCPU(); i++ {
		g.Go(func() error {
			return s.worker(gctx)
		})
	}
	s.group = g

	return s
}

// Scale converts the image (img) to have width toWidth in pixels while
// preserving its aspect ratio. The result is JPEG encoded.
func (s *Scaler) Scale(
	ctx context.Context,
	img io.Reader,
	toWidth int,
) ([]byte, error) {
	select {
	case <-s.done:
		return nil, ErrCancelled
	default:
	}

	if toWidth <= 0 {
		return nil, ErrInvalidWidth
	}

	desc := description{
		imgR:    img,
		toWidth: toWidth,
		result:  make(chan result, 1),
	}

	select {
	case s.work <- desc:
	case <-s.done:
		return nil, ErrCancelled
	case <-ctx.Done():
		return nil, fmt.Errorf("ctx done while waiting to send scale op: %w", ctx.Err())
	}

	select {
	case res := <-desc.result:
		return res.imgData, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("ctx done while waiting for scale op: %w", ctx.Err())
	}
}

func (s *Scaler) worker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case desc := <-s.work:
			imgData, err := scaleImage(desc.imgR, desc.toWidth)
			desc.result <- result{
				imgData: imgData,
				err:     err,
			}
		}
	}
}

func scaleImage(imgReader io.Reader, toWidth int) ([]byte, error) {
	img, _, err := image.Decode(imgReader)
	if err != nil {
		return nil, fmt.Errorf("error decoding image: %w", err)
	}

	toHeight := toWidth
	imgRect := img.Bounds()
	imgw := imgRect.Dx()
	imgh := imgRect.Dy()
	if imgw != imgh {
		toHeight = max(1, int((float32(imgh)/float32(imgw))*float32(toWidth)))
	}

	dst := image.NewRGBA(image.Rect(0, 0, toWidth, toHeight))

	draw.CatmullRom.Scale(
		dst,
		dst.Bounds(),
		img,
		img.Bounds(),
		draw.Over,
		nil,
	)

	var dstJPEG bytes.Buffer
	if err := jpeg.Encode(&dstJPEG, dst, nil); err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}

	return dstJPEG.Bytes(), nil
}

// Cancel stops the scaler and all of its workers. Users may not use any
// further methods on cancelled scalers.
func (s *Scaler) Cancel() {
	s.cancel()
	_ = s.group.Wait()
}
