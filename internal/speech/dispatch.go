package speech

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/tphakala/voiceid/internal/bundle"
	"github.com/tphakala/voiceid/internal/errors"
	"github.com/tphakala/voiceid/internal/observability/metrics"
)

// Dispatcher runs both classifiers on a feature batch and decodes their
// outputs to labels.
type Dispatcher struct {
	bundle  *bundle.Bundle
	metrics *metrics.ClassifierMetrics
}

// NewDispatcher returns a dispatcher over b. m may be nil.
func NewDispatcher(b *bundle.Bundle, m *metrics.ClassifierMetrics) *Dispatcher {
	return &Dispatcher{bundle: b, metrics: m}
}

// Classify returns the gender and region labels for the first row of x.
// It fails with a MissingSlotsError when any bundle slot is empty.
func (d *Dispatcher) Classify(ctx context.Context, x mat.Matrix) (gender, region string, err error) {
	if d.bundle == nil {
		return "", "", d.missing(bundle.AllSlots())
	}
	if missing := d.bundle.Missing(); len(missing) > 0 {
		return "", "", d.missing(missing)
	}

	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	var g errgroup.Group
	g.Go(func() error {
		label, err := d.predict(bundle.SlotGenderModel, d.bundle.GenderModel(), d.bundle.GenderEncoder(), x)
		gender = label
		return err
	})
	g.Go(func() error {
		label, err := d.predict(bundle.SlotRegionModel, d.bundle.RegionModel(), d.bundle.RegionEncoder(), x)
		region = label
		return err
	})
	if err := g.Wait(); err != nil {
		return "", "", err
	}
	return gender, region, nil
}

func (d *Dispatcher) predict(slot bundle.Slot, model bundle.Classifier, decoder bundle.LabelDecoder, x mat.Matrix) (string, error) {
	start := time.Now()
	label, err := classifyOne(model, decoder, x)
	d.metrics.RecordPrediction(string(slot), time.Since(start).Seconds(), err)
	if err != nil {
		return "", errors.New(fmt.Errorf("%s: %w", slot, err)).
			Component(componentName).
			Category(errors.CategoryInference).
			Context("slot", string(slot)).
			Timing("classify", time.Since(start)).
			Build()
	}
	return label, nil
}

// classifyOne normalizes the classifier output to a single id before
// decoding it.
func classifyOne(model bundle.Classifier, decoder bundle.LabelDecoder, x mat.Matrix) (string, error) {
	ids, err := model.Predict(x)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("classifier returned no prediction")
	}

	labels, err := decoder.InverseTransform(ids[:1])
	if err != nil {
		return "", err
	}
	if len(labels) == 0 {
		return "", fmt.Errorf("label decoder returned no label")
	}
	return labels[0], nil
}

func (d *Dispatcher) missing(slots []bundle.Slot) error {
	path := ""
	if d.bundle != nil {
		path = d.bundle.Path()
	}
	return errors.New(&MissingSlotsError{Slots: slots, BundlePath: path}).
		Component(componentName).
		Category(errors.CategoryModelLoad).
		Context("missing", bundle.SlotNames(slots)).
		Build()
}
