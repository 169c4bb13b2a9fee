package overlay

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"cloud.google.com/go/storage"
	"github.com/arsakhar/NeuroFlow/phasecontrast"
	"github.com/arsakhar/NeuroFlow/roi"
	"github.com/carbocation/pfx"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
)

// ImageFromBytes creates an image from the specified bytes. Must be PNG, GIF,
// BMP, or JPEG formatted (based on the decoders we have imported).
func ImageFromBytes(imgBytes []byte) (image.Image, error) {
	return imaging.Decode(bytes.NewReader(imgBytes))
}

func readAllFromLocalFileOrGoogleStorage(filePath string, storageClient *storage.Client) ([]byte, error) {
	f, _, err := phasecontrast.MaybeOpenFromGoogleStorage(filePath, storageClient)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// The image decoder swallows errors, so we won't see i/o errors if they
	// happen during image decoding. To capture these, we read the full file
	// into memory here.
	return io.ReadAll(f)
}

func OpenImageFromLocalFileOrGoogleStorage(filePath string, storageClient *storage.Client) (image.Image, error) {
	imgBytes, err := readAllFromLocalFileOrGoogleStorage(filePath, storageClient)
	if err != nil {
		return nil, err
	}

	return ImageFromBytes(imgBytes)
}

// OpenImageFromLocalFile decodes an image from a local path.
func OpenImageFromLocalFile(filePath string) (image.Image, error) {
	return OpenImageFromLocalFileOrGoogleStorage(filePath, nil)
}

// OpenMasks loads per-label masks of rows x cols pixels. Paths ending in .rle
// hold EncodeMasksToRLE output. Anything else is an image, either ID-encoded
// or painted in the label colors.
func OpenMasks(filePath string, labels LabelMap, rows, cols int, storageClient *storage.Client) (map[string]roi.Mask, error) {
	raw, err := readAllFromLocalFileOrGoogleStorage(filePath, storageClient)
	if err != nil {
		return nil, err
	}

	if strings.HasSuffix(strings.ToLower(filePath), ".rle") {
		return labels.DecodeMasksFromRLE(raw, rows, cols)
	}

	img, err := ImageFromBytes(raw)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", filePath, err))
	}

	if b := img.Bounds(); b.Dy() != rows || b.Dx() != cols {
		return nil, pfx.Err(fmt.Errorf("%s is %dx%d but the images are %dx%d", filePath, b.Dy(), b.Dx(), rows, cols))
	}

	if masks, err := labels.Masks(img); err == nil {
		return masks, nil
	}

	return labels.MasksFromColors(img)
}
