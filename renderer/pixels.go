package renderer

// FlipRows copies the RGBA8 buffer src into dst with the row order reversed:
// row y of src becomes row height-1-y of dst. Columns and channels are kept.
// dst and src must both hold width*height*4 bytes and must not overlap.
func FlipRows(dst, src []byte, width, height int) {
	stride := width * 4
	for y := 0; y < height; y++ {
		from := src[y*stride : (y+1)*stride]
		to := (height - 1 - y) * stride
		copy(dst[to:to+stride], from)
	}
}
