// Package bundle loads the pre-trained classifiers and label encoders used
// for speech classification.
//
// A bundle is a YAML (or JSON) mapping with four slots: gender_model,
// region_model, le_gender and le_region. Legacy key names are accepted as
// fallbacks. Loading never panics: a missing or malformed document yields an
// empty bundle, and a slot that fails to build is left empty. Callers check
// FullyLoaded or Missing before serving predictions.
package bundle

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tphakala/voiceid/internal/errors"
	"github.com/tphakala/voiceid/internal/logger"
	"github.com/tphakala/voiceid/internal/observability/metrics"
)

const componentName = "bundle"

// Slot names a bundle entry. The names match the primary keys in the
// bundle document and the names reported for missing slots.
type Slot string

const (
	SlotGenderModel   Slot = "gender_model"
	SlotRegionModel   Slot = "region_model"
	SlotGenderEncoder Slot = "le_gender"
	SlotRegionEncoder Slot = "le_region"
)

// slotAliases lists legacy keys consulted when the primary key is absent
// or null.
var slotAliases = map[Slot]string{
	SlotGenderModel:   "models",
	SlotGenderEncoder: "gender_encoder",
	SlotRegionEncoder: "region_encoder",
}

// AllSlots returns every slot in reporting order.
func AllSlots() []Slot {
	return []Slot{SlotGenderModel, SlotRegionModel, SlotGenderEncoder, SlotRegionEncoder}
}

// SlotStatus describes one slot after loading.
type SlotStatus struct {
	Slot   Slot   `json:"slot"`
	Key    string `json:"key,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Loaded bool   `json:"loaded"`
	Error  string `json:"error,omitempty"`
}

// Bundle holds the loaded artifacts. It is immutable after construction
// and safe for concurrent use.
type Bundle struct {
	genderModel   Classifier
	regionModel   Classifier
	genderEncoder LabelDecoder
	regionEncoder LabelDecoder

	path        string
	keys        []string
	status      map[Slot]SlotStatus
	fullyLoaded bool
}

// New assembles a bundle from already constructed artifacts. Any argument
// may be nil.
func New(genderModel, regionModel Classifier, genderEncoder, regionEncoder LabelDecoder) *Bundle {
	b := &Bundle{
		genderModel:   genderModel,
		regionModel:   regionModel,
		genderEncoder: genderEncoder,
		regionEncoder: regionEncoder,
		status:        make(map[Slot]SlotStatus, 4),
	}
	for _, slot := range AllSlots() {
		b.status[slot] = SlotStatus{Slot: slot, Loaded: b.has(slot)}
	}
	b.fullyLoaded = len(b.Missing()) == 0
	return b
}

// GenderModel returns the gender classifier, or nil.
func (b *Bundle) GenderModel() Classifier { return b.genderModel }

// RegionModel returns the region classifier, or nil.
func (b *Bundle) RegionModel() Classifier { return b.regionModel }

// GenderEncoder returns the gender label decoder, or nil.
func (b *Bundle) GenderEncoder() LabelDecoder { return b.genderEncoder }

// RegionEncoder returns the region label decoder, or nil.
func (b *Bundle) RegionEncoder() LabelDecoder { return b.regionEncoder }

// Path returns the file the bundle was loaded from.
func (b *Bundle) Path() string { return b.path }

// Keys returns the top-level keys found in the bundle document.
func (b *Bundle) Keys() []string { return append([]string(nil), b.keys...) }

// FullyLoaded reports whether all four slots are present.
func (b *Bundle) FullyLoaded() bool { return b.fullyLoaded }

// Missing returns the empty slots in reporting order.
func (b *Bundle) Missing() []Slot {
	var missing []Slot
	for _, slot := range AllSlots() {
		if !b.has(slot) {
			missing = append(missing, slot)
		}
	}
	return missing
}

// Status returns the per-slot status in reporting order.
func (b *Bundle) Status() []SlotStatus {
	out := make([]SlotStatus, 0, 4)
	for _, slot := range AllSlots() {
		out = append(out, b.status[slot])
	}
	return out
}

func (b *Bundle) has(slot Slot) bool {
	switch slot {
	case SlotGenderModel:
		return b.genderModel != nil
	case SlotRegionModel:
		return b.regionModel != nil
	case SlotGenderEncoder:
		return b.genderEncoder != nil
	case SlotRegionEncoder:
		return b.regionEncoder != nil
	default:
		return false
	}
}

// Close releases artifacts that hold native resources.
func (b *Bundle) Close() error {
	var errs []error
	for _, c := range []Classifier{b.genderModel, b.regionModel} {
		if closer, ok := c.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// LoadOption configures Load.
type LoadOption func(*loader)

type loader struct {
	log     logger.Logger
	metrics *metrics.ClassifierMetrics
}

// WithLogger overrides the module logger.
func WithLogger(l logger.Logger) LoadOption {
	return func(ld *loader) { ld.log = l }
}

// WithMetrics records per-slot load outcomes.
func WithMetrics(m *metrics.ClassifierMetrics) LoadOption {
	return func(ld *loader) { ld.metrics = m }
}

// Load reads the bundle at path. It always returns a non-nil bundle; the
// error describes why any slot is empty.
func Load(path string, opts ...LoadOption) (*Bundle, error) {
	ld := &loader{}
	for _, opt := range opts {
		opt(ld)
	}
	if ld.log == nil {
		ld.log = logger.Global().Module(componentName)
	}

	start := time.Now()
	b, err := ld.load(path)
	b.path = path
	b.fullyLoaded = len(b.Missing()) == 0

	for _, st := range b.Status() {
		ld.metrics.RecordModelLoad(string(st.Slot), st.Loaded)
	}
	ld.metrics.SetBundleReady(b.fullyLoaded)

	if b.fullyLoaded {
		ld.log.Info("models loaded successfully",
			logger.String("path", path),
			logger.Duration("duration", time.Since(start)))
		return b, err
	}

	ld.log.Warn("models not properly loaded",
		logger.String("path", path),
		logger.Strings("missing", slotNames(b.Missing())),
		logger.Strings("available_keys", b.keys),
		logger.Error(err))
	return b, err
}

func (ld *loader) load(path string) (*Bundle, error) {
	empty := New(nil, nil, nil, nil)

	data, err := os.ReadFile(path)
	if err != nil {
		var size int64
		if info, statErr := os.Stat(path); statErr == nil {
			size = info.Size()
		}
		return empty, errors.New(fmt.Errorf("read model bundle: %w", err)).
			Component(componentName).
			Category(errors.CategoryModelLoad).
			FileContext(path, size).
			Context("operation", "load_bundle").
			Build()
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return empty, errors.New(fmt.Errorf("parse model bundle: %w", err)).
			Component(componentName).
			Category(errors.CategoryModelLoad).
			FileContext(path, int64(len(data))).
			Context("operation", "load_bundle").
			Build()
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return empty, errors.Newf("expected model bundle to contain a mapping, but got %s", nodeKindName(root)).
			Component(componentName).
			Category(errors.CategoryModelLoad).
			FileContext(path, int64(len(data))).
			Context("operation", "load_bundle").
			Build()
	}

	entries := make(map[string]*yaml.Node, len(root.Content)/2)
	keys := make([]string, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		entries[key] = root.Content[i+1]
		keys = append(keys, key)
	}

	b := New(nil, nil, nil, nil)
	b.keys = keys
	baseDir := filepath.Dir(path)

	var errs []error
	for _, slot := range AllSlots() {
		key, node := lookupSlot(entries, slot)
		status := SlotStatus{Slot: slot, Key: key}
		if node == nil {
			b.status[slot] = status
			continue
		}

		kind, err := b.assign(slot, node, baseDir)
		status.Kind = kind
		if err != nil {
			status.Error = err.Error()
			errs = append(errs, errors.New(fmt.Errorf("slot %s: %w", slot, err)).
				Component(componentName).
				Category(errors.CategoryModelInit).
				ModelContext(path, kind).
				Context("slot", string(slot)).
				Build())
		}
		status.Loaded = b.has(slot)
		b.status[slot] = status
	}

	return b, errors.Join(errs...)
}

// assign builds the artifact under node into slot.
func (b *Bundle) assign(slot Slot, node *yaml.Node, baseDir string) (string, error) {
	switch slot {
	case SlotGenderModel, SlotRegionModel:
		var spec classifierSpec
		if err := node.Decode(&spec); err != nil {
			return "", err
		}
		c, kind, err := buildClassifier(&spec, baseDir)
		if err != nil {
			return kind, err
		}
		if slot == SlotGenderModel {
			b.genderModel = c
		} else {
			b.regionModel = c
		}
		return kind, nil
	default:
		var spec encoderSpec
		if err := node.Decode(&spec); err != nil {
			return KindEncoder, err
		}
		enc, err := buildEncoder(&spec)
		if err != nil {
			return KindEncoder, err
		}
		if slot == SlotGenderEncoder {
			b.genderEncoder = enc
		} else {
			b.regionEncoder = enc
		}
		return KindEncoder, nil
	}
}

// lookupSlot returns the key and node for slot, falling back to its alias
// when the primary key is absent or null.
func lookupSlot(entries map[string]*yaml.Node, slot Slot) (string, *yaml.Node) {
	if node, ok := entries[string(slot)]; ok && !isNull(node) {
		return string(slot), node
	}
	if alias, ok := slotAliases[slot]; ok {
		if node, ok := entries[alias]; ok && !isNull(node) {
			return alias, node
		}
	}
	return "", nil
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.Tag == "!!null"
}

func nodeKindName(node *yaml.Node) string {
	switch node.Kind {
	case yaml.SequenceNode:
		return "a sequence"
	case yaml.ScalarNode:
		if node.Tag != "" {
			return "a scalar (" + strings.TrimPrefix(node.Tag, "!!") + ")"
		}
		return "a scalar"
	case yaml.AliasNode:
		return "an alias"
	case 0:
		return "an empty document"
	default:
		return "an unexpected node"
	}
}

func resolvePath(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// slotNames converts slots to strings for logging and error text.
func slotNames(slots []Slot) []string {
	names := make([]string, len(slots))
	for i, s := range slots {
		names[i] = string(s)
	}
	return names
}

// SlotNames returns the comma separated names of slots.
func SlotNames(slots []Slot) string {
	return strings.Join(slotNames(slots), ", ")
}
