package analysis

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Wikid82/logwarden/internal/logger"
	"github.com/Wikid82/logwarden/internal/metrics"
)

// Analyzer turns a raw log line into a Result. It never fails: any provider
// or parsing problem yields Fallback.
type Analyzer struct {
	registry *Registry
	log      *logrus.Entry
}

func NewAnalyzer(registry *Registry) *Analyzer {
	return &Analyzer{
		registry: registry,
		log:      logger.Component("analysis"),
	}
}

func (a *Analyzer) Analyze(ctx context.Context, rawLine string) Result {
	p, ok := a.registry.Select()
	if !ok {
		a.log.Debug(ErrNoProvider.Error())
		metrics.IncAnalysis("fallback")
		return Fallback()
	}

	reply, err := p.Analyze(ctx, BuildPrompt(rawLine))
	if err != nil {
		a.log.WithError(err).WithField("provider", p.Name()).Error("provider call failed, using fallback analysis")
		metrics.IncAnalysis("fallback")
		return Fallback()
	}

	res, err := ParseResponse(reply, p.Name())
	if err != nil {
		a.log.WithError(err).WithField("provider", p.Name()).Warn("unparseable provider reply, using fallback analysis")
		metrics.IncAnalysis("fallback")
		return Fallback()
	}
	metrics.IncAnalysis("provider")
	return res
}
