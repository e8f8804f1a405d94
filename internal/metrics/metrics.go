package metrics

import (
	"time"

	"github.com/jaxxstorm/dnsdash/internal/model"
)

// Recorder receives API call timings and resolution verdicts.
type Recorder interface {
	ObserveCall(op string, outcome string, elapsed time.Duration)
	ObserveResolution(mode model.Mode, r model.Resolution)
}

type Nop struct{}

func (Nop) ObserveCall(string, string, time.Duration)      {}
func (Nop) ObserveResolution(model.Mode, model.Resolution) {}
