package providers

import (
	"sync"

	"go.uber.org/zap"

	"github.com/rustlens/rustlens/internal/rusttypes"
	"github.com/rustlens/rustlens/internal/value"
)

// Dispatcher is the single entry point the host calls: it classifies a
// value's type and routes to the matching summary formatter and synthetic
// provider. Shapes are computed once per type identity and cached; the
// lock exists only because one dispatcher may serve several debug
// sessions.
type Dispatcher struct {
	logger *zap.Logger

	mu     sync.RWMutex
	shapes map[*value.Type]rusttypes.Shape
}

// NewDispatcher returns a dispatcher tracing through the given logger.
// A nil logger disables tracing.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		logger: logger,
		shapes: make(map[*value.Type]rusttypes.Shape),
	}
}

// ShapeOf returns the cached classification for the type.
func (d *Dispatcher) ShapeOf(t *value.Type) rusttypes.Shape {
	d.mu.RLock()
	shape, ok := d.shapes[t]
	d.mu.RUnlock()
	if ok {
		return shape
	}

	shape = rusttypes.Classify(t)
	d.mu.Lock()
	d.shapes[t] = shape
	d.mu.Unlock()
	return shape
}

// Summary returns the one-line description for the value, or "" when no
// special summary applies. Decode failures degrade to "" and are traced;
// they never propagate to the host.
func (d *Dispatcher) Summary(v *value.Value) string {
	shape := d.ShapeOf(v.Type())

	var (
		text string
		err  error
	)
	switch shape {
	case rusttypes.StdVec:
		var layout *vecLayout
		if layout, err = decodeVec(v); err == nil {
			text = sizeSummary(int(layout.length))
		}
	case rusttypes.StdVecDeque:
		p := NewVecDequeProvider(v)
		if err = p.err; err == nil {
			text = sizeSummary(p.NumChildren())
		}
	case rusttypes.StdString:
		text, err = stringSummary(v)
	case rusttypes.StdStr:
		text, err = strSummary(v)
	case rusttypes.StdRc:
		text, err = rcSummary(v, false)
	case rusttypes.StdArc:
		text, err = rcSummary(v, true)
	case rusttypes.StdRef, rusttypes.StdRefMut:
		text, err = refSummary(v, false)
	case rusttypes.StdRefCell:
		text, err = refSummary(v, true)
	case rusttypes.StdHashMap:
		var count uint64
		if count, err = hashMapCount(v); err == nil {
			text = sizeSummary(int(count))
		}
	}
	if err != nil {
		d.logger.Debug("summary unavailable",
			zap.String("type", v.Type().Name),
			zap.Stringer("shape", shape),
			zap.Error(err))
		return ""
	}
	return text
}

// ProviderFor returns the synthetic provider for the value. Enum shapes
// re-dispatch: the active variant of a tagged union is itself a
// struct/tuple variant and gets its own provider.
func (d *Dispatcher) ProviderFor(v *value.Value) Provider {
	shape := d.ShapeOf(v.Type())
	d.logger.Debug("dispatch",
		zap.String("value", v.Name()),
		zap.String("type", v.Type().Name),
		zap.Stringer("shape", shape))

	switch shape {
	case rusttypes.Struct:
		return NewStructProvider(v, false)
	case rusttypes.StructVariant:
		return NewStructProvider(v, true)
	case rusttypes.Tuple:
		return NewTupleProvider(v, false)
	case rusttypes.TupleVariant:
		return NewTupleProvider(v, true)
	case rusttypes.Empty:
		return NewEmptyProvider(v)

	case rusttypes.RegularEnum:
		return d.enumProvider(v)
	case rusttypes.SingletonEnum:
		variant, err := v.FieldAt(0)
		if err != nil {
			d.logger.Debug("singleton enum unwrap failed",
				zap.String("type", v.Type().Name), zap.Error(err))
			return NewDefaultProvider(v)
		}
		return d.ProviderFor(variant)

	case rusttypes.StdVec:
		return NewVecProvider(v)
	case rusttypes.StdVecDeque:
		return NewVecDequeProvider(v)
	case rusttypes.StdBTreeMap:
		return NewBTreeMapProvider(v)
	case rusttypes.StdHashMap:
		return NewHashMapProvider(v)
	case rusttypes.StdRc:
		return NewRcProvider(v, false)
	case rusttypes.StdArc:
		return NewRcProvider(v, true)
	case rusttypes.StdCell:
		return NewCellProvider(v)
	case rusttypes.StdRef, rusttypes.StdRefMut:
		return NewRefProvider(v, false)
	case rusttypes.StdRefCell:
		return NewRefProvider(v, true)

	default:
		// CompressedEnum sentinels, plain unions, c-style variants, and
		// anything unclassified defer to generic field enumeration.
		return NewDefaultProvider(v)
	}
}

// enumProvider reads the runtime discriminant of a tagged union (the first
// variant's first field) and dispatches into the active variant.
func (d *Dispatcher) enumProvider(v *value.Value) Provider {
	first, err := v.FieldAt(0)
	if err == nil {
		var disr *value.Value
		if disr, err = first.FieldAt(0); err == nil {
			var discriminant uint64
			if discriminant, err = disr.Uint(); err == nil {
				var variant *value.Value
				if variant, err = v.FieldAt(int(discriminant)); err == nil {
					return d.ProviderFor(variant)
				}
			}
		}
	}
	d.logger.Debug("enum discriminant read failed",
		zap.String("type", v.Type().Name), zap.Error(err))
	return NewDefaultProvider(v)
}
