package detector

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"

	"github.com/ayusman/proxiwatch/internal/logging"
)

// Standard model artifact file names.
const (
	WeightsFile   = "yolov3.weights"
	NetConfigFile = "yolov3.cfg"
	LabelsFile    = "coco.names"
)

// ErrMissingArtifact is matched by every MissingArtifactError.
var ErrMissingArtifact = errors.New("missing model artifact")

// Artifact is a file the detector needs at startup.
type Artifact struct {
	Name string
	Hint string
}

// RequiredArtifacts lists the files that must be present before detection
// can start, with the command that fetches each one.
var RequiredArtifacts = []Artifact{
	{
		Name: WeightsFile,
		Hint: "wget https://pjreddie.com/media/files/yolov3.weights",
	},
	{
		Name: NetConfigFile,
		Hint: "wget https://raw.githubusercontent.com/pjreddie/darknet/master/cfg/yolov3.cfg",
	},
	{
		Name: LabelsFile,
		Hint: "wget https://raw.githubusercontent.com/pjreddie/darknet/master/data/coco.names",
	},
}

// MissingArtifactError reports a single absent artifact.
type MissingArtifactError struct {
	Path string
	Hint string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("%s not found (download with: %s)", e.Path, e.Hint)
}

func (e *MissingArtifactError) Unwrap() error {
	return ErrMissingArtifact
}

// CheckArtifacts checks every required artifact in dir, logging each one as
// found or missing. It returns the missing files combined into one error, or
// nil when all are present.
func CheckArtifacts(dir string, logger logging.Logger) error {
	var err error
	for _, a := range RequiredArtifacts {
		path := filepath.Join(dir, a.Name)
		info, statErr := os.Stat(path)
		if statErr == nil && !info.IsDir() {
			logger.Infof("%s found", a.Name)
			continue
		}

		logger.Errorf("%s not found in %s", a.Name, dir)
		logger.Infof("You can download %s using this command: %s", a.Name, a.Hint)
		err = multierr.Append(err, &MissingArtifactError{Path: path, Hint: a.Hint})
	}
	return err
}

// MissingArtifacts unpacks the individual errors produced by CheckArtifacts.
func MissingArtifacts(err error) []*MissingArtifactError {
	var missing []*MissingArtifactError
	for _, e := range multierr.Errors(err) {
		var m *MissingArtifactError
		if errors.As(e, &m) {
			missing = append(missing, m)
		}
	}
	return missing
}
