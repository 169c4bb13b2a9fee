package phasecontrast

import (
	"fmt"
	"io"
	"io/ioutil"

	"github.com/carbocation/pfx"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/dicomtag"
	"github.com/suyashkumar/dicom/element"
)

// LoadImage parses one DICOM file. Every element is kept in the tag map and
// the native pixel data is decoded into a rows x cols grid.
func LoadImage(dicomReader io.Reader) (*Image, error) {
	dcm, err := ioutil.ReadAll(dicomReader)
	if err != nil {
		return nil, pfx.Err(err)
	}

	p, err := dicom.NewParserFromBytes(dcm, nil)
	if err != nil {
		return nil, pfx.Err(err)
	}

	parsedData, err := safelyDicomParse(p, dicom.ParseOptions{
		DropPixelData: false,
	})
	if parsedData == nil || err != nil {
		return nil, fmt.Errorf("Error reading dicom: %v", err)
	}

	tags := make(TagMap)
	var pixelInfo *element.PixelDataInfo

	for _, elem := range parsedData.Elements {
		if elem == nil {
			continue
		}

		if elem.Tag == dicomtag.PixelData {
			if len(elem.Value) > 0 {
				if info, ok := elem.Value[0].(element.PixelDataInfo); ok {
					pixelInfo = &info
				}
			}
			continue
		}

		tags[elem.Tag] = elem.Value
	}

	img := NewImage(tags, nil)
	if pixelInfo == nil {
		return img, nil
	}

	rows, cols, err := imageDimensions(tags)
	if err != nil {
		return nil, err
	}

	img.Pixels, err = decodePixels(*pixelInfo, rows, cols)
	if err != nil {
		return nil, err
	}

	return img, nil
}

// safelyDicomParse consumes panics emitted by the dicom library and turns
// them into errors.
func safelyDicomParse(p dicom.Parser, opts dicom.ParseOptions) (parsedData *element.DataSet, err error) {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			err = fmt.Errorf("%v", panicErr)
		}
	}()

	return p.Parse(opts)
}

func imageDimensions(tags TagMap) (rows, cols int, err error) {
	r, ok := tags[dicomtag.Rows]
	if !ok || len(r) == 0 {
		return 0, 0, fmt.Errorf("Rows not found")
	}
	c, ok := tags[dicomtag.Columns]
	if !ok || len(c) == 0 {
		return 0, 0, fmt.Errorf("Columns not found")
	}

	rv, ok := r[0].(uint16)
	if !ok {
		return 0, 0, fmt.Errorf("Rows has unexpected type %T", r[0])
	}
	cv, ok := c[0].(uint16)
	if !ok {
		return 0, 0, fmt.Errorf("Columns has unexpected type %T", c[0])
	}

	return int(rv), int(cv), nil
}

func decodePixels(data element.PixelDataInfo, rows, cols int) ([][]float64, error) {
	if len(data.Frames) != 1 {
		return nil, fmt.Errorf("expected 1 frame of pixel data, found %d", len(data.Frames))
	}

	frame := data.Frames[0]
	if frame.IsEncapsulated() {
		return nil, fmt.Errorf("Frame is encapsulated, which we did not expect")
	}

	if x, y := len(frame.NativeData.Data), rows*cols; x != y {
		return nil, fmt.Errorf("DICOM data has %d pixels but header declares %d (%d rows and %d cols)", x, y, rows, cols)
	}

	pixels := make([][]float64, rows)
	for i := range pixels {
		pixels[i] = make([]float64, cols)
	}

	// Native data is row-major with one sample per pixel
	for j := 0; j < len(frame.NativeData.Data); j++ {
		pixels[j/cols][j%cols] = float64(frame.NativeData.Data[j][0])
	}

	return pixels, nil
}
