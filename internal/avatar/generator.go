// Package avatar renders deterministic identicon avatars for networks.
package avatar

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
)

const (
	gridSize   = 5
	cellPixels = 32
	outputSize = 160

	webpQuality = 85
)

// Generator produces an avatar image for a network. Implementations must be
// deterministic for the same inputs.
type Generator interface {
	Generate(networkID uint, tagName string) (string, error)
}

// IdenticonGenerator renders a symmetric 5x5 block pattern derived from a
// hash of the network identity, encoded as a WebP data URL.
type IdenticonGenerator struct{}

// NewIdenticonGenerator creates an identicon generator.
func NewIdenticonGenerator() *IdenticonGenerator {
	return &IdenticonGenerator{}
}

// Generate renders the identicon and returns it as a data URL suitable for
// storing in the network's avatar field.
func (g *IdenticonGenerator) Generate(networkID uint, tagName string) (string, error) {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%s", networkID, tagName)))

	fg := color.NRGBA{R: sum[0], G: sum[1], B: sum[2], A: 255}
	bg := color.NRGBA{R: 240, G: 240, B: 245, A: 255}

	src := image.NewNRGBA(image.Rect(0, 0, gridSize*cellPixels, gridSize*cellPixels))
	draw.Draw(src, src.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	// Mirror the left three columns onto the right so the pattern is
	// symmetric, like classic identicons.
	for row := 0; row < gridSize; row++ {
		for col := 0; col <= gridSize/2; col++ {
			bit := sum[3+row*3+col]
			if bit%2 == 0 {
				continue
			}
			fillCell(src, row, col, fg)
			fillCell(src, row, gridSize-1-col, fg)
		}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, outputSize, outputSize))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, dst, &webp.Options{Quality: webpQuality}); err != nil {
		return "", fmt.Errorf("encode avatar: %w", err)
	}

	return "data:image/webp;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func fillCell(img *image.NRGBA, row, col int, c color.NRGBA) {
	rect := image.Rect(col*cellPixels, row*cellPixels, (col+1)*cellPixels, (row+1)*cellPixels)
	draw.Draw(img, rect, &image.Uniform{C: c}, image.Point{}, draw.Src)
}
