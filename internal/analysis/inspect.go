package analysis

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/tphakala/voiceid/internal/bundle"
	"github.com/tphakala/voiceid/internal/errors"
	"github.com/tphakala/voiceid/internal/logger"
)

// BundleReport summarizes a bundle for the inspect command.
type BundleReport struct {
	Path          string              `json:"path"`
	AvailableKeys []string            `json:"available_keys"`
	Slots         []bundle.SlotStatus `json:"slots"`
	Missing       []bundle.Slot       `json:"missing,omitempty"`
	Ready         bool                `json:"ready_for_predictions"`
	LoadError     string              `json:"load_error,omitempty"`
}

// ErrBundleIncomplete is returned by InspectBundle in strict mode when a
// slot did not load.
var ErrBundleIncomplete = errors.NewStd("model bundle is incomplete")

// InspectBundle loads the bundle at path and writes a per-slot report to w,
// as a table or as JSON. With strict set an incomplete bundle is an error.
func InspectBundle(path string, w io.Writer, asJSON, strict bool) error {
	b, err := bundle.Load(path, bundle.WithLogger(logger.NewNop()))
	defer func() { _ = b.Close() }()

	report := BundleReport{
		Path:          path,
		AvailableKeys: b.Keys(),
		Slots:         b.Status(),
		Missing:       b.Missing(),
		Ready:         b.FullyLoaded(),
	}
	if err != nil {
		report.LoadError = err.Error()
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else if err := writeReportTable(w, &report); err != nil {
		return err
	}

	if strict && !report.Ready {
		return fmt.Errorf("%w: missing %s", ErrBundleIncomplete, bundle.SlotNames(report.Missing))
	}
	return nil
}

func writeReportTable(w io.Writer, r *BundleReport) error {
	fmt.Fprintf(w, "Bundle: %s\n", r.Path)
	fmt.Fprintf(w, "Available keys: %s\n\n", strings.Join(r.AvailableKeys, ", "))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SLOT\tKEY\tKIND\tSTATUS\tERROR")
	for _, s := range r.Slots {
		status := "missing"
		if s.Loaded {
			status = "loaded"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Slot, dash(s.Key), dash(s.Kind), status, s.Error)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if r.Ready {
		fmt.Fprintln(w, "\nAll components loaded, ready for predictions.")
	} else {
		fmt.Fprintf(w, "\nMissing components: %s\n", bundle.SlotNames(r.Missing))
	}
	if r.LoadError != "" {
		fmt.Fprintf(w, "Load error: %s\n", r.LoadError)
	}
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
