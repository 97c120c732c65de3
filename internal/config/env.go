package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is read at startup when it exists.
const DefaultEnvFile = ".env"

// LoadEnvFile exports the variables in a dotenv file so PROXIWATCH_* values
// can be kept next to the model files. Variables already set in the
// environment win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}
