package dynamodel

import (
	"fmt"
	"io"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"
)

// Models caches one TableModel per Go type. Each model is built at most once,
// even under concurrent first use. The zero value is ready to use.
type Models struct {
	// Logger receives a debug entry for every model built. Defaults to a
	// discarding logger.
	Logger logrus.FieldLogger

	mu      sync.Mutex
	entries map[reflect.Type]*modelEntry
}

type modelEntry struct {
	once  sync.Once
	model any
	err   error
}

// NewModels returns an empty cache logging to logger.
func NewModels(logger logrus.FieldLogger) *Models {
	return &Models{Logger: logger}
}

func (m *Models) entry(t reflect.Type) *modelEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[reflect.Type]*modelEntry)
	}
	e, ok := m.entries[t]
	if !ok {
		e = &modelEntry{}
		m.entries[t] = e
	}
	return e
}

func (m *Models) logger() logrus.FieldLogger {
	if m.Logger != nil {
		return m.Logger
	}
	return discardLogger
}

// Len returns the number of cached types, including failed builds.
func (m *Models) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// ModelFor returns the cached model for T, calling build on first use. A
// failed build is cached and its error returned to every caller. A panic in
// build is recovered and cached as an error.
func ModelFor[T any](m *Models, build func() (*TableModel[T], error)) (*TableModel[T], error) {
	t := reflect.TypeFor[T]()
	e := m.entry(t)
	e.once.Do(func() {
		log := m.logger().WithField("type", t.String())
		defer func() {
			if r := recover(); r != nil {
				e.err = fmt.Errorf("failed to build table model for %v: %v", t, r)
				log.WithError(e.err).Warn("failed to build table model")
			}
		}()
		model, err := build()
		if err != nil {
			log.WithError(err).Warn("failed to build table model")
			e.err = err
			return
		}
		log.WithFields(logrus.Fields{
			"attributes": len(model.fields),
			"gsis":       len(model.gsis),
			"lsis":       len(model.lsis),
		}).Debug("built table model")
		e.model = model
	})
	if e.err != nil {
		return nil, e.err
	}
	return e.model.(*TableModel[T]), nil
}

// StructModel returns the cached FromStruct model for T.
func StructModel[T any](m *Models) (*TableModel[T], error) {
	return ModelFor(m, func() (*TableModel[T], error) { return FromStruct[T]() })
}

var discardLogger = func() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()
