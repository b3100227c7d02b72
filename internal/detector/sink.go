package detector

import "github.com/you/arb-core/internal/types"

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(types.Opportunity)

func (f SinkFunc) Upsert(o types.Opportunity) { f(o) }

// Fanout forwards every candidate to each sink in order.
func Fanout(sinks ...Sink) Sink {
	return SinkFunc(func(o types.Opportunity) {
		for _, s := range sinks {
			s.Upsert(o)
		}
	})
}
