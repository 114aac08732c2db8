package app

import (
	"patternlog/internal/eventbus"
	"patternlog/internal/layout"
	"patternlog/internal/pattern"
)

// busReporter publishes contained converter failures of one layout.
type busReporter struct {
	bus    eventbus.Bus
	layout string
}

func (r busReporter) ConverterFailed(converter string, err error) {
	r.bus.Publish(eventbus.Event{
		Type: eventbus.TopicRenderFailed,
		Data: eventbus.RenderFailed{Layout: r.layout, Converter: converter, Err: err},
	})
}

// reportersFor sends every failure to the shared log reporter and, per
// layout, to the bus.
func reportersFor(log *pattern.LogReporter, bus eventbus.Bus) layout.ReporterFor {
	return func(name string) pattern.Reporter {
		if bus == nil {
			return log
		}
		return pattern.Reporters(log, busReporter{bus: bus, layout: name})
	}
}
