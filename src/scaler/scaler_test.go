package scaler_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"testing"
	"time"

	"github.com/ironsmile/localmedia/src/scaler"
)

const testTimeout = 10 * time.Second

func pngImage(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test image: %s", err)
	}
	return buf.Bytes()
}

// TestScalerSimpleImage creates a very simple image and uses the scaler to reduce it
// in size. Then checks whether it is the desired size.
func TestScalerSimpleImage(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	sclr := scaler.New(ctx)
	defer sclr.Cancel()

	tests := []struct {
		width, height int
		toWidth       int
		expectedH     int
	}{
		{width: 100, height: 100, toWidth: 20, expectedH: 20},
		{width: 100, height: 50, toWidth: 40, expectedH: 20},
		{width: 200, height: 1, toWidth: 10, expectedH: 1},
	}

	for _, test := range tests {
		scaled, err := sclr.Scale(ctx, bytes.NewReader(pngImage(t, test.width, test.height)),
			test.toWidth)
		if err != nil {
			t.Fatalf("scaling %dx%d: %s", test.width, test.height, err)
		}

		cfg, err := jpeg.DecodeConfig(bytes.NewReader(scaled))
		if err != nil {
			t.Fatalf("scaled image is not a JPEG: %s", err)
		}

		if cfg.Width != test.toWidth || cfg.Height != test.expectedH {
			t.Errorf("expected %dx%d but got %dx%d",
				test.toWidth, test.expectedH, cfg.Width, cfg.Height)
		}
	}
}

// TestScalerErrors makes sure broken images and widths are reported.
func TestScalerErrors(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	sclr := scaler.New(ctx)
	defer sclr.Cancel()

	if _, err := sclr.Scale(ctx, bytes.NewBufferString("not an image"), 10); err == nil {
		t.Errorf("expected an error for a broken image")
	}

	_, err := sclr.Scale(ctx, bytes.NewReader(pngImage(t, 4, 4)), 0)
	if !errors.Is(err, scaler.ErrInvalidWidth) {
		t.Errorf("expected ErrInvalidWidth but got %v", err)
	}
}

// TestScalerCancel makes sure that the Scaler is not usable after cancel and that
// cancel actually stops its workers.
func TestScalerCancel(t *testing.T) {
	tests := []struct {
		desc            string
		cancelledScaler func() *scaler.Scaler
	}{
		{
			desc: "cancelled after using its own cancel func",
			cancelledScaler: func() *scaler.Scaler {
				ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
				defer cancel()

				sclr := scaler.New(ctx)
				sclr.Cancel()
				return sclr
			},
		},
		{
			desc: "cancelled after its context is cancelled",
			cancelledScaler: func() *scaler.Scaler {
				ctx, cancel := context.WithCancel(context.Background())

				sclr := scaler.New(ctx)
				cancel()
				return sclr
			},
		},
	}

	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			sclr := test.cancelledScaler()
			testImgStr := "not actually an image but OK"
			testImg := bytes.NewBufferString(testImgStr)

			ctx := context.Background()
			_, err := sclr.Scale(ctx, testImg, 200)
			if !errors.Is(err, scaler.ErrCancelled) {
				t.Errorf("using cancelled scaler did not cause scaler.ErrCancelled")
			}

			readTestImg, err := io.ReadAll(testImg)
			if err != nil {
				t.Errorf("error while reading from test image: %s", err)
			}

			if string(readTestImg) != testImgStr {
				t.Errorf("scaler was reading from the test image even though it is cancelled")
			}
		})
	}
}
