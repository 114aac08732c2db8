package pattern

import (
	"sync/atomic"

	"golang.org/x/time/rate"

	logx "patternlog/pkg/logx"
)

// Reporter receives converter failures that were contained during a render.
type Reporter interface {
	ConverterFailed(converter string, err error)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(converter string, err error)

func (f ReporterFunc) ConverterFailed(converter string, err error) { f(converter, err) }

// Reporters fans a failure out to every non-nil reporter.
func Reporters(rs ...Reporter) Reporter {
	out := make(multiReporter, 0, len(rs))
	for _, r := range rs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

type multiReporter []Reporter

func (m multiReporter) ConverterFailed(converter string, err error) {
	for _, r := range m {
		r.ConverterFailed(converter, err)
	}
}

// LogReporter writes failures to a logx logger. A broken converter fails on
// every record, so reports are rate limited and the number of suppressed
// reports rides along on the next one that gets through.
type LogReporter struct {
	log     logx.Logger
	limiter *rate.Limiter

	failures   atomic.Uint64
	suppressed atomic.Uint64
}

func NewLogReporter(log logx.Logger, perSec int) *LogReporter {
	if log.IsZero() {
		log = logx.Nop()
	}
	perSec = max(1, perSec)
	return &LogReporter{log: log, limiter: rate.NewLimiter(rate.Limit(perSec), perSec)}
}

func (r *LogReporter) ConverterFailed(converter string, err error) {
	r.failures.Add(1)
	if !r.limiter.Allow() {
		r.suppressed.Add(1)
		return
	}
	r.log.Warn("converter failed",
		logx.String("converter", converter),
		logx.Err(err),
		logx.Uint64("suppressed", r.suppressed.Swap(0)),
	)
}

// Failures returns the total number of reported failures.
func (r *LogReporter) Failures() uint64 { return r.failures.Load() }
