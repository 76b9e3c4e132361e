package research

import (
	"context"
	"fmt"
	"math"

	"MarketScout/internal/collector"
	"MarketScout/internal/model"
)

// lazySource fetches analyst data for one symbol on first use only.
type lazySource struct {
	ctx      context.Context
	provider collector.Provider
	symbol   string

	targets    model.QuoteInfo
	targetsErr error
	haveTgt    bool

	recs    *model.Table
	recsErr error
	haveRec bool
}

func (s *lazySource) Targets() (model.QuoteInfo, error) {
	if !s.haveTgt {
		s.targets, s.targetsErr = s.provider.FetchAnalystTargets(s.ctx, s.symbol)
		s.haveTgt = true
	}
	return s.targets, s.targetsErr
}

func (s *lazySource) Recommendations() (*model.Table, error) {
	if !s.haveRec {
		s.recs, s.recsErr = s.provider.FetchRecommendations(s.ctx, s.symbol)
		s.haveRec = true
	}
	return s.recs, s.recsErr
}

func computeColumn(col string, info model.QuoteInfo, src *lazySource) (model.Value, error) {
	switch col {
	case model.ColDebtToEquity:
		f, err := info.Float(col)
		if err != nil {
			return model.Null, err
		}
		return rounded(f / 100), nil
	case model.ColForwardTargetDiff:
		return forwardTargetDiff(info, src)
	case model.ColRecommendation:
		recs, err := src.Recommendations()
		if err != nil {
			return model.Null, err
		}
		label, err := TopRecommendation(recs)
		if err != nil {
			return model.Null, err
		}
		return model.Text(label), nil
	default:
		f, err := info.Float(col)
		if err != nil {
			return model.Null, err
		}
		return rounded(f), nil
	}
}

// forwardTargetDiff is the analyst mean target relative to the previous close.
func forwardTargetDiff(info model.QuoteInfo, src *lazySource) (model.Value, error) {
	targets, err := src.Targets()
	if err != nil {
		return model.Null, err
	}
	mean, err := targets.Float(model.FieldTargetMean)
	if err != nil {
		return model.Null, err
	}
	prev, err := info.Float(model.FieldPreviousClose)
	if err != nil {
		return model.Null, err
	}
	if prev == 0 {
		return model.Null, fmt.Errorf("%w: %s is zero", model.ErrMissingField, model.FieldPreviousClose)
	}
	diff := mean/prev - 1
	if math.IsNaN(diff) || math.IsInf(diff, 0) {
		return model.Null, fmt.Errorf("%w: forward target diff not finite", model.ErrMissingField)
	}
	return rounded(diff), nil
}

func rounded(f float64) model.Value {
	return model.Number(model.Round(f, 2))
}
