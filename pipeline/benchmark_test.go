package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"math/rand"
	"testing"

	"github.com/nvr-ai/go-plantdx/images"
	"github.com/nvr-ai/go-plantdx/models"
	"github.com/nvr-ai/go-plantdx/preprocess"
	"github.com/nvr-ai/go-plantdx/quality"
)

func genJPEG(b *testing.B, w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = uint8(rng.Intn(256))
		img.Pix[i+1] = uint8(rng.Intn(256))
		img.Pix[i+2] = uint8(rng.Intn(256))
		img.Pix[i+3] = 255
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		b.Fatal(err)
	}
	return buf.Bytes()
}

func BenchmarkQualityGate_1080p(b *testing.B) {
	img, _, err := images.Decode(genJPEG(b, 1920, 1080))
	if err != nil {
		b.Fatal(err)
	}
	gray, err := images.NewGrayGrid(img)
	if err != nil {
		b.Fatal(err)
	}
	gate := quality.DefaultGate()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = gate.Evaluate(gray)
	}
}

func BenchmarkPreprocess_1080p(b *testing.B) {
	img, _, err := images.Decode(genJPEG(b, 1920, 1080))
	if err != nil {
		b.Fatal(err)
	}
	grid, err := images.NewColorGrid(img)
	if err != nil {
		b.Fatal(err)
	}
	pre, err := preprocess.NewPreprocessor(preprocess.DefaultConfig())
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = pre.Preprocess(grid)
	}
}

func BenchmarkAnalyze_640(b *testing.B) {
	reg, err := models.DefaultRegistry()
	if err != nil {
		b.Fatal(err)
	}
	pre, err := preprocess.NewPreprocessor(preprocess.DefaultConfig())
	if err != nil {
		b.Fatal(err)
	}
	c := &fakeClassifier{scores: scoresWith(reg.Total(), map[int]float32{30: 1})}
	svc, err := NewService(reg, pre, c)
	if err != nil {
		b.Fatal(err)
	}
	data := genJPEG(b, 640, 640)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Analyze(context.Background(), data, "tomato"); err != nil {
			b.Fatal(err)
		}
	}
}
