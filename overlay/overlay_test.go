package overlay

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/arsakhar/NeuroFlow/flow"
	"github.com/arsakhar/NeuroFlow/roi"
)

var testLabels = LabelMap{
	"Background": {ID: 0, Color: ""},
	"Left ICA":   {ID: 1, Color: "#ff0000"},
	"Right ICA":  {ID: 2, Color: "#00ff00", SortOrder: 1},
}

func TestParseJSONConfigFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"labels": {"Background": {"id": 0}, "Aqueduct": {"id": 1, "color": "#FF0000"}},
		"preset": "aqueduct",
		"output_dir": "out",
		"file_prefix": "subj01"
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	config, err := ParseJSONConfigFromPath(path)
	if err != nil {
		t.Fatal(err)
	}

	if p, err := config.FlowPreset(); err != nil || p != flow.Aqueduct {
		t.Fatalf("preset %v, %v", p, err)
	}
	if config.Labels["Aqueduct"].Color != "#ff0000" {
		t.Fatalf("color not lower-cased: %q", config.Labels["Aqueduct"].Color)
	}
	if config.OutputDir != "out" || config.FilePrefix != "subj01" {
		t.Fatalf("config %+v", config)
	}
}

func TestParseJSONConfigRejects(t *testing.T) {
	for name, body := range map[string]string{
		"syntax":         `{"labels": `,
		"unknown preset": `{"preset": "capillary"}`,
		"duplicate ids":  `{"labels": {"A": {"id": 1}, "B": {"id": 1}}}`,
		"id above 255":   `{"labels": {"A": {"id": 1}, "B": {"id": 257}}}`,
	} {
		path := filepath.Join(t.TempDir(), "config.json")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := ParseJSONConfigFromPath(path); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestLabelMapValid(t *testing.T) {
	if !testLabels.Valid() {
		t.Fatal("test labels should be valid")
	}

	for name, labels := range map[string]LabelMap{
		"duplicate": {"A": {ID: 1}, "B": {ID: 1}},
		"too large": {"A": {ID: 1}, "B": {ID: 256}},
	} {
		if labels.Valid() {
			t.Errorf("%s: expected invalid", name)
		}
	}

	// 255 is still one channel
	if !(LabelMap{"A": {ID: 0}, "B": {ID: 255}}).Valid() {
		t.Fatal("255 should be valid")
	}
}

func TestLabeledPixelToID(t *testing.T) {
	for _, v := range []struct {
		C        color.Color
		Expected uint32
		OK       bool
	}{
		{color.RGBA{2, 2, 2, 255}, 2, true},
		{color.RGBA{0, 0, 0, 0}, 0, true},
		{color.NRGBA{7, 7, 7, 128}, 7, true},
		{color.RGBA{1, 2, 2, 255}, 0, false},
	} {
		got, err := LabeledPixelToID(v.C)
		if (err == nil) != v.OK || got != v.Expected {
			t.Errorf("%v: got %d, %v", v.C, got, err)
		}
	}
}

// encoded builds a 3x4 ID-encoded image: ID 1 in the left two columns of the
// top row, ID 2 in the bottom-right cell.
func encoded() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{A: 255})
		}
	}
	img.Set(0, 0, color.RGBA{1, 1, 1, 255})
	img.Set(1, 0, color.RGBA{1, 1, 1, 255})
	img.Set(3, 2, color.RGBA{2, 2, 2, 255})
	return img
}

func TestMasks(t *testing.T) {
	masks, err := testLabels.Masks(encoded())
	if err != nil {
		t.Fatal(err)
	}

	if len(masks) != 2 {
		t.Fatalf("%d masks, expected one per non-background label", len(masks))
	}

	left := masks["Left ICA"]
	if left.Rows != 3 || left.Cols != 4 || left.Count() != 2 || !left.At(0, 1) {
		t.Fatalf("left mask %+v", left)
	}
	if right := masks["Right ICA"]; right.Count() != 1 || !right.At(2, 3) {
		t.Fatalf("right mask %+v", right)
	}

	bad := encoded()
	bad.Set(2, 1, color.RGBA{9, 9, 9, 255})
	if _, err := testLabels.Masks(bad); err == nil {
		t.Fatal("expected an error for an unknown ID")
	}
}

func TestMasksFromColors(t *testing.T) {
	drawn := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	drawn.Set(0, 0, color.NRGBA{250, 3, 0, 255}) // antialiased red
	drawn.Set(2, 1, color.NRGBA{0, 255, 0, 255})
	drawn.Set(1, 1, color.NRGBA{0, 0, 0, 255})

	masks, err := testLabels.MasksFromColors(drawn)
	if err != nil {
		t.Fatal(err)
	}

	if m := masks["Left ICA"]; m.Count() != 1 || !m.At(0, 0) {
		t.Fatalf("left mask %v", m.Data)
	}
	if m := masks["Right ICA"]; m.Count() != 1 || !m.At(1, 2) {
		t.Fatalf("right mask %v", m.Data)
	}
}

func TestRLERoundTrip(t *testing.T) {
	masks, err := testLabels.Masks(encoded())
	if err != nil {
		t.Fatal(err)
	}

	rleBytes, err := testLabels.EncodeMasksToRLE(masks, 3, 4)
	if err != nil {
		t.Fatal(err)
	}

	got, err := testLabels.DecodeMasksFromRLE(rleBytes, 3, 4)
	if err != nil {
		t.Fatal(err)
	}

	for name, m := range masks {
		g := got[name]
		for i := range m.Data {
			if g.Data[i] != m.Data[i] {
				t.Fatalf("%s differs at %d", name, i)
			}
		}
	}

	if _, err := testLabels.DecodeMasksFromRLE(rleBytes, 4, 4); err == nil {
		t.Fatal("expected a size mismatch error")
	}
}

func TestOpenMasks(t *testing.T) {
	dir := t.TempDir()

	pngPath := filepath.Join(dir, "mask.png")
	f, err := os.Create(pngPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, encoded()); err != nil {
		t.Fatal(err)
	}
	f.Close()

	masks, err := OpenMasks(pngPath, testLabels, 3, 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	if masks["Left ICA"].Count() != 2 {
		t.Fatalf("left mask %v", masks["Left ICA"].Data)
	}

	if _, err := OpenMasks(pngPath, testLabels, 2, 2, nil); err == nil {
		t.Fatal("expected a shape mismatch error")
	}

	rleBytes, err := testLabels.EncodeMasksToRLE(masks, 3, 4)
	if err != nil {
		t.Fatal(err)
	}
	rlePath := filepath.Join(dir, "mask.rle")
	if err := os.WriteFile(rlePath, rleBytes, 0o644); err != nil {
		t.Fatal(err)
	}

	fromRLE, err := OpenMasks(rlePath, testLabels, 3, 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	if fromRLE["Right ICA"].Count() != 1 {
		t.Fatalf("right mask %v", fromRLE["Right ICA"].Data)
	}
}

func TestRender(t *testing.T) {
	masks, err := testLabels.Masks(encoded())
	if err != nil {
		t.Fatal(err)
	}

	img, err := testLabels.Render(masks, 3, 4)
	if err != nil {
		t.Fatal(err)
	}

	if r, g, b, a := img.At(0, 0).RGBA(); r>>8 != 255 || g != 0 || b != 0 || a>>8 != 255 {
		t.Errorf("left ICA pixel %v", img.At(0, 0))
	}
	if _, _, _, a := img.At(2, 1).RGBA(); a != 0 {
		t.Errorf("background pixel %v is not transparent", img.At(2, 1))
	}
}

func TestComponents(t *testing.T) {
	m := roi.NewMask(4, 5)
	// An L-shaped piece of 4 cells and a lone cell
	m.Set(0, 0, true)
	m.Set(1, 0, true)
	m.Set(2, 0, true)
	m.Set(2, 1, true)
	m.Set(3, 4, true)
	// Diagonal neighbors are not 4-connected
	m.Set(0, 2, true)

	got := Components(m)
	if len(got) != 3 {
		t.Fatalf("%d components, expected 3", len(got))
	}
	if got[0].PixelCount != 4 {
		t.Fatalf("largest component has %d pixels", got[0].PixelCount)
	}
	if got[0].Bounds.TopLeft != (Coord{0, 0}) || got[0].Bounds.BottomRight != (Coord{1, 2}) {
		t.Fatalf("bounds %+v", got[0].Bounds)
	}

	if r := MaskBounds(m); r != image.Rect(0, 0, 5, 4) {
		t.Fatalf("mask bounds %v", r)
	}
	if r := MaskBounds(roi.NewMask(2, 2)); !r.Empty() {
		t.Fatalf("empty mask bounds %v", r)
	}

	counts := testLabels.CountConnectedRegions(map[string]roi.Mask{"Left ICA": m})
	if len(counts) != 1 || counts[testLabels.Sorted()[1]] != 3 {
		t.Fatalf("counts %v", counts)
	}
}

func TestSubsetAndRescaleImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 8))

	out, err := SubsetAndRescaleImage(img, image.Rect(2, 2, 4, 3), 3, 1)
	if err != nil {
		t.Fatal(err)
	}
	// 1..5 wide and 1..4 tall, times 3
	if b := out.Bounds(); b.Dx() != 12 || b.Dy() != 9 {
		t.Fatalf("bounds %v", b)
	}

	if _, err := SubsetAndRescaleImage(img, image.Rectangle{}, 0, 0); err == nil {
		t.Fatal("expected an error for scale 0")
	}
}
