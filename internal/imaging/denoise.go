package imaging

import (
	"image"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// minWeight drops neighbours whose patch weight would contribute less than this
const minWeight = 0.001

// bandRows is the number of output rows a single worker denoises at a time
const bandRows = 128

// denoiser implements non-local-means filtering. Patch distances for each
// search offset are read from an integral image of squared differences, so
// the cost per pixel does not grow with the template size.
type denoiser struct {
	tr, sr int
	// weights is indexed by the sum of squared differences over a patch;
	// sums past the end have negligible weight.
	weights []float32
}

func newDenoiser(h float64, templateWindow, searchWindow int) *denoiser {
	area := float64(templateWindow * templateWindow)
	limit := -math.Log(minWeight) * h * h * area
	if maxSSD := area * 255 * 255; limit > maxSSD {
		limit = maxSSD
	}

	weights := make([]float32, int(limit)+1)
	for ssd := range weights {
		weights[ssd] = float32(math.Exp(-float64(ssd) / area / (h * h)))
	}

	return &denoiser{
		tr:      templateWindow / 2,
		sr:      searchWindow / 2,
		weights: weights,
	}
}

// apply returns a denoised copy of src. Borders are replicated.
func (d *denoiser) apply(src *image.Gray) *image.Gray {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	p := d.sr + d.tr
	padded, stride := replicatePad(src, p)
	out := image.NewGray(image.Rect(0, 0, w, h))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for y0 := 0; y0 < h; y0 += bandRows {
		y1 := min(y0+bandRows, h)
		g.Go(func() error {
			d.band(padded, stride, w, y0, y1, out)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// band denoises output rows [y0, y1)
func (d *denoiser) band(pad []uint8, stride, w, y0, y1 int, out *image.Gray) {
	p := d.sr + d.tr
	tw := 2*d.tr + 1
	bh := y1 - y0

	// The integral covers every template position of every pixel in the band.
	rw := w + 2*d.tr
	rh := bh + 2*d.tr
	iw := rw + 1
	integral := make([]int64, iw*(rh+1))

	sumW := make([]float32, w*bh)
	sumV := make([]float32, w*bh)

	for dy := -d.sr; dy <= d.sr; dy++ {
		for dx := -d.sr; dx <= d.sr; dx++ {
			for j := 0; j < rh; j++ {
				py := p + y0 - d.tr + j
				base := py * stride
				nbase := (py+dy)*stride + dx
				var rowSum int64
				for i := 0; i < rw; i++ {
					px := p - d.tr + i
					diff := int64(pad[base+px]) - int64(pad[nbase+px])
					rowSum += diff * diff
					integral[(j+1)*iw+i+1] = integral[j*iw+i+1] + rowSum
				}
			}

			for y := 0; y < bh; y++ {
				top := y * iw
				bottom := (y + tw) * iw
				nrow := pad[(p+y0+y+dy)*stride+p+dx:]
				acc := y * w
				for x := 0; x < w; x++ {
					ssd := integral[bottom+x+tw] - integral[top+x+tw] - integral[bottom+x] + integral[top+x]
					if ssd >= int64(len(d.weights)) {
						continue
					}
					wt := d.weights[ssd]
					sumW[acc+x] += wt
					sumV[acc+x] += wt * float32(nrow[x])
				}
			}
		}
	}

	for y := 0; y < bh; y++ {
		dst := out.Pix[(y0+y)*out.Stride:]
		for x := 0; x < w; x++ {
			i := y*w + x
			dst[x] = uint8(math.Min(255, math.Round(float64(sumV[i]/sumW[i]))))
		}
	}
}

// replicatePad copies src into a buffer with p pixels of replicated border on
// every side and returns the buffer with its stride.
func replicatePad(src *image.Gray, p int) ([]uint8, int) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	stride := w + 2*p
	buf := make([]uint8, stride*(h+2*p))

	for y := 0; y < h+2*p; y++ {
		sy := min(max(y-p, 0), h-1)
		srow := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+sy):]
		drow := buf[y*stride : (y+1)*stride]
		for x := 0; x < stride; x++ {
			sx := min(max(x-p, 0), w-1)
			drow[x] = srow[sx]
		}
	}
	return buf, stride
}
