package scene

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// SimulationDir holds derived simulation assets inside a key directory.
	SimulationDir = "simulation"
	// BackgroundFile is the extracted background image name.
	BackgroundFile = "background.jpg"
	// FieldRecon is the payload field holding reconstruction outputs.
	FieldRecon = "recon"
)

// BackgroundPath returns the background image location for a key directory.
func BackgroundPath(keyDir string) string {
	return filepath.Join(keyDir, SimulationDir, BackgroundFile)
}

type reconFields struct {
	Background *Image `cbor:"background"`
}

// ExtractBackground decodes recon.background from a key's payload and writes
// it as simulation/background.jpg. Skip and failure conditions surface as
// sentinel errors for the caller to classify: fs.ErrExist when the image was
// already extracted, fs.ErrNotExist when the payload file is missing, and
// ErrFieldMissing when the payload has no recon.background. With dryRun the
// payload is validated but nothing is written.
func ExtractBackground(keyDir string, dryRun bool) error {
	target := BackgroundPath(keyDir)
	if _, err := os.Stat(target); err == nil {
		return fmt.Errorf("%w: %s", os.ErrExist, target)
	}

	payload, err := Load(PayloadPath(keyDir))
	if err != nil {
		return err
	}

	var recon reconFields
	if err := payload.Decode(FieldRecon, &recon); err != nil {
		return err
	}
	if recon.Background == nil {
		return fmt.Errorf("%w: %s.background", ErrFieldMissing, FieldRecon)
	}
	if err := recon.Background.Validate(); err != nil {
		return err
	}

	if dryRun {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return writeJPEG(*recon.Background, target)
}
