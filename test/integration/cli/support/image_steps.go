package support

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/canescan/internal/testutil"
	"github.com/cucumber/godog"
)

func (testCtx *TestContext) writeImage(name string, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}
	path := testCtx.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}

// aFieldPhoto writes a plain gray field photo.
func (testCtx *TestContext) aFieldPhoto(name string) error {
	return testCtx.writeImage(name, testutil.Uniform(80, 60, testutil.MidGray))
}

// aBeetlePhoto writes a leaf with a dark blob the visual analysis picks up.
func (testCtx *TestContext) aBeetlePhoto(name string) error {
	return testCtx.writeImage(name, testutil.DarkBlobOnLeaf(100, 100))
}

func (testCtx *TestContext) aCorruptImage(name string) error {
	path := testCtx.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, []byte("not an image"), 0o600)
}

func (testCtx *TestContext) aDirectoryWithFieldPhotos(dir string, table *godog.Table) error {
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		if len(row.Cells) == 0 {
			return fmt.Errorf("empty row %d", i)
		}
		if err := testCtx.aFieldPhoto(filepath.Join(dir, row.Cells[0].Value)); err != nil {
			return err
		}
	}
	return nil
}

// RegisterImageSteps registers image fixture steps.
func (testCtx *TestContext) RegisterImageSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a field photo "([^"]*)"$`, testCtx.aFieldPhoto)
	sc.Step(`^a beetle photo "([^"]*)"$`, testCtx.aBeetlePhoto)
	sc.Step(`^a corrupt image "([^"]*)"$`, testCtx.aCorruptImage)
	sc.Step(`^a directory "([^"]*)" with the field photos:$`, testCtx.aDirectoryWithFieldPhotos)
}
