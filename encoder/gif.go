package encoder

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"os"

	"golang.org/x/image/draw"
)

// GIFAssembler encodes the animation in process with image/gif.
type GIFAssembler struct{}

func (GIFAssembler) Assemble(ctx context.Context, stills []Still, opts Options) error {
	sorted, size, err := prepare(stills, opts)
	if err != nil {
		return err
	}

	anim := &gif.GIF{
		LoopCount: opts.LoopCount,
		Config:    image.Config{Width: size.X, Height: size.Y},
	}
	delay := Centiseconds(opts.Delay)
	for _, s := range sorted {
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := ReadStill(s.Path)
		if err != nil {
			return fmt.Errorf("%w: frame %d: %w", ErrAssemblerInput, s.Index, err)
		}
		anim.Image = append(anim.Image, Quantize(img))
		anim.Delay = append(anim.Delay, delay)
	}
	anim.Config.ColorModel = anim.Image[0].Palette

	return writeGIF(opts.Output, anim)
}

func writeGIF(path string, anim *gif.GIF) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	w := bufio.NewWriter(f)
	if err := gif.EncodeAll(w, anim); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return w.Flush()
}

// Quantize reduces img to a paletted frame. Alpha is discarded. Frames with
// at most 256 distinct colours keep them exactly; anything richer is dithered
// onto the Plan 9 palette.
func Quantize(img image.Image) *image.Paletted {
	b := img.Bounds()
	opaque := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(opaque, opaque.Bounds(), img, b.Min, draw.Src)
	for i := 3; i < len(opaque.Pix); i += 4 {
		opaque.Pix[i] = 0xff
	}

	if pal, ok := exactPalette(opaque, 256); ok {
		dst := image.NewPaletted(opaque.Bounds(), pal)
		index := make(map[color.NRGBA]uint8, len(pal))
		for i, c := range pal {
			index[c.(color.NRGBA)] = uint8(i)
		}
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				dst.SetColorIndex(x, y, index[opaque.NRGBAAt(x, y)])
			}
		}
		return dst
	}

	dst := image.NewPaletted(opaque.Bounds(), palette.Plan9)
	draw.FloydSteinberg.Draw(dst, dst.Bounds(), opaque, image.Point{})
	return dst
}

func exactPalette(img *image.NRGBA, limit int) (color.Palette, bool) {
	seen := make(map[color.NRGBA]struct{})
	var pal color.Palette
	for i := 0; i < len(img.Pix); i += 4 {
		c := color.NRGBA{img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]}
		if _, ok := seen[c]; ok {
			continue
		}
		if len(pal) == limit {
			return nil, false
		}
		seen[c] = struct{}{}
		pal = append(pal, c)
	}
	return pal, true
}
