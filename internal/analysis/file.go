package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tphakala/voiceid/internal/conf"
	"github.com/tphakala/voiceid/internal/speech"
)

// FileAnalysis classifies a single local audio file and writes the result
// to w as indented JSON, using the same pipeline as the HTTP endpoint.
func FileAnalysis(ctx context.Context, settings *conf.Settings, path string, w io.Writer) error {
	if err := validateAudioFile(path); err != nil {
		return err
	}

	components, err := initializeComponents(settings, nil)
	if err != nil {
		return err
	}
	defer func() { _ = components.Bundle.Close() }()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	result, err := components.Pipeline.Predict(ctx, speech.Upload{
		Filename: filepath.Base(path),
		Content:  f,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// validateAudioFile checks that path is a non-empty regular file.
func validateAudioFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("error accessing file %s: %w", filepath.Base(path), err)
	}
	if info.IsDir() {
		return fmt.Errorf("the path %s is a directory, not a file", filepath.Base(path))
	}
	if info.Size() == 0 {
		return fmt.Errorf("file %s is empty (0 bytes)", filepath.Base(path))
	}
	return nil
}
