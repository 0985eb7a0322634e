package sweep

import (
	"errors"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/biosweep/internal/configtree"
	"github.com/vk/biosweep/internal/fsutil"
)

// The closed set of supported spatial modulator function names.
const (
	FuncGradientX  = "gradient_x"
	FuncGradientY  = "gradient_y"
	FuncGradientR  = "gradient_r"
	FuncNone       = "None"
	FuncFSweep     = "f_sweep"
	FuncBitmap     = "gradient_bitmap"
	FuncSingleCell = "single_cell"
	FuncPeriodic   = "periodic"
)

// DefaultModulatorFunctions lists every supported function in sweep order.
var DefaultModulatorFunctions = []string{
	FuncGradientX,
	FuncGradientY,
	FuncGradientR,
	FuncNone,
	FuncFSweep,
	FuncBitmap,
	FuncSingleCell,
	FuncPeriodic,
}

// gradientKeys are the per-function parameter leaves scaled by the secondary
// multiplier set. Gradient functions do not all carry the same offset axis,
// so absent keys are skipped.
var gradientKeys = []string{"slope", "x-offset", "y-offset", "exponent"}

// Expander cross-expands a variation of a spatially-modulatable intervention
// against the supported modulator functions and each function's own
// sub-parameter sweep.
type Expander struct {
	// Functions is the modulator set to expand against, a subset of
	// DefaultModulatorFunctions.
	Functions []string
	// SecondaryMultipliers is the sub-parameter sweep applied within the
	// gradient, periodic and frequency-sweep families.
	SecondaryMultipliers []float64
	// AssetDir is the directory enumerated for bitmap-driven gradients.
	AssetDir string
	// AssetExtension selects bitmap assets by file name, ".png" by default.
	AssetExtension string
}

func (e *Expander) assetExtension() string {
	if e.AssetExtension == "" {
		return ".png"
	}
	return e.AssetExtension
}

// Assets enumerates the bitmap assets available for gradient_bitmap
// expansion. Only names and paths are read, never contents.
func (e *Expander) Assets() ([]string, error) {
	if e.AssetDir == "" {
		return nil, nil
	}
	return fsutil.FindFilesByExtension(e.AssetDir, e.assetExtension())
}

// Cardinality computes the exact number of children one parent variation
// expands into, so dispatch capacity can be sized before any expansion runs.
func (e *Expander) Cardinality() (int, error) {
	total := 0
	for _, fn := range e.Functions {
		switch fn {
		case FuncGradientX, FuncGradientY, FuncGradientR, FuncPeriodic, FuncFSweep:
			total += len(e.SecondaryMultipliers)
		case FuncBitmap:
			assets, err := e.Assets()
			if err != nil {
				return 0, err
			}
			total += len(assets)
		case FuncNone, FuncSingleCell:
			total++
		default:
			return 0, &GenerationError{Function: fn, Reason: "unsupported modulator function"}
		}
	}
	return total, nil
}

// Expand produces the child variations of one parent. Each child's
// SpatialFunction and SpatialParams fully record how it differs from its
// siblings so downstream correlation stays unambiguous.
func (e *Expander) Expand(baseline *configtree.Tree, parent Variation) ([]Variation, error) {
	var children []Variation
	for _, fn := range e.Functions {
		expanded, err := e.expandFunction(baseline, parent, fn)
		if err != nil {
			return nil, err
		}
		children = append(children, expanded...)
	}
	return children, nil
}

func (e *Expander) expandFunction(baseline *configtree.Tree, parent Variation, fn string) ([]Variation, error) {
	switch fn {
	case FuncGradientX, FuncGradientY, FuncGradientR:
		return e.expandScaled(baseline, parent, fn, gradientKeys, true)
	case FuncPeriodic:
		return e.expandScaled(baseline, parent, fn, []string{"frequency"}, false)
	case FuncFSweep:
		return e.expandScaled(baseline, parent, fn, []string{"start frequency", "end frequency"}, false)
	case FuncBitmap:
		return e.expandBitmap(parent, fn)
	case FuncNone, FuncSingleCell:
		child := parent.child(fn)
		child.Overrides[configtree.Join(parent.Section, "modulator function")] = cty.StringVal(fn)
		return []Variation{child}, nil
	default:
		return nil, &GenerationError{Section: parent.Section, Function: fn, Reason: "unsupported modulator function"}
	}
}

// expandScaled crosses the parent with the secondary multiplier set applied
// jointly to the function's parameter leaves. When optionalKeys is set,
// leaves missing from the baseline are skipped rather than failing, since
// gradient axes differ per function.
func (e *Expander) expandScaled(baseline *configtree.Tree, parent Variation, fn string, keys []string, optionalKeys bool) ([]Variation, error) {
	type leaf struct {
		path string
		base float64
	}
	var leaves []leaf
	for _, key := range keys {
		path := configtree.Join(ModulatorSection, fn, key)
		base, err := baseline.Number(path)
		if err != nil {
			var notFound *configtree.PathNotFoundError
			if optionalKeys && errors.As(err, &notFound) {
				continue
			}
			return nil, &GenerationError{Section: parent.Section, Function: fn, Reason: "modulator parameter unavailable", Err: err}
		}
		leaves = append(leaves, leaf{path: path, base: base})
	}
	if len(leaves) == 0 {
		return nil, &GenerationError{Section: parent.Section, Function: fn, Reason: "modulator declares no scalable parameters"}
	}

	children := make([]Variation, 0, len(e.SecondaryMultipliers))
	for _, m := range e.SecondaryMultipliers {
		child := parent.child(fn)
		child.Overrides[configtree.Join(parent.Section, "modulator function")] = cty.StringVal(fn)
		for _, l := range leaves {
			child.Overrides[l.path] = cty.NumberFloatVal(l.base * m)
		}
		child.SpatialParams["multiplier"] = cty.NumberFloatVal(m)
		children = append(children, child)
	}
	return children, nil
}

// expandBitmap produces one child per discovered bitmap asset, each pointing
// at a distinct file.
func (e *Expander) expandBitmap(parent Variation, fn string) ([]Variation, error) {
	assets, err := e.Assets()
	if err != nil {
		return nil, &GenerationError{Section: parent.Section, Function: fn, Reason: "asset directory unavailable", Err: err}
	}

	children := make([]Variation, 0, len(assets))
	for _, asset := range assets {
		child := parent.child(fn)
		child.Overrides[configtree.Join(parent.Section, "modulator function")] = cty.StringVal(fn)
		child.Overrides[configtree.Join(ModulatorSection, fn, "file")] = cty.StringVal(asset)
		child.SpatialParams["file"] = cty.StringVal(asset)
		children = append(children, child)
	}
	return children, nil
}
