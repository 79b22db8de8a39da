package artifact

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var ErrVerification = errors.New("artifact verification failed")

func verifyFile(path string, mode VerifyMode) error {
	if mode == VerifyNone {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerification, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: %s is empty", ErrVerification, path)
	}

	if mode == VerifyCSV {
		return verifyCSVHeader(path)
	}
	return nil
}

func verifyCSVHeader(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerification, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return fmt.Errorf("%w: %s has no header row", ErrVerification, path)
		}
		return fmt.Errorf("%w: %s is not valid csv: %w", ErrVerification, path, err)
	}

	for _, col := range header {
		if strings.TrimSpace(col) == "" {
			return fmt.Errorf("%w: %s has an empty column name in its header", ErrVerification, path)
		}
	}
	return nil
}
