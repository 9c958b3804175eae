package init

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
)

const fileName = "changefmt.toml"

// We embed the sample toml file for use with the init flag.
//
//go:embed init.toml
var initBytes []byte

func Run(out io.Writer) error {
	// never overwrite an existing config
	if _, err := os.Stat(fileName); err == nil {
		return fmt.Errorf("%s already exists", fileName)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check for %s: %w", fileName, err)
	}

	if err := os.WriteFile(fileName, initBytes, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("failed to write %s: %w", fileName, err)
	}

	_, _ = fmt.Fprintf(out, "Generated %s. Now it's your turn to edit it.\n", fileName)

	return nil
}
