package survey

import (
	"context"
	"errors"
	"fmt"

	"github.com/seantiz/surveyd/internal/model"
)

// bestFiveCount is how many states best5 and worst5 report.
const bestFiveCount = 5

var (
	// ErrUnknownQuery is returned for query types the dataset cannot answer.
	ErrUnknownQuery = errors.New("unknown query type")

	// ErrMissingField is returned when the payload lacks a required parameter.
	ErrMissingField = errors.New("missing field")
)

// lowerIsBetter lists the questions for which a smaller percentage is the
// better outcome. Every other question ranks higher values first.
var lowerIsBetter = map[string]bool{
	"Percent of adults aged 18 years and older who have an overweight classification": true,
	"Percent of adults aged 18 years and older who have obesity":                      true,
	"Percent of adults who engage in no leisure-time physical activity":               true,
	"Percent of adults who report consuming fruit less than one time daily":           true,
	"Percent of adults who report consuming vegetables less than one time daily":      true,
}

// Answer computes the result for one query. payload must carry "question";
// the state_* queries also need "state".
func (d *Dataset) Answer(ctx context.Context, queryType string, payload model.Payload) (*model.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	question, err := stringField(payload, "question")
	if err != nil {
		return nil, err
	}
	rows := d.byQuestion[question]

	switch queryType {
	case model.QueryStatesMean:
		return statesMean(rows), nil
	case model.QueryStateMean:
		state, err := stringField(payload, "state")
		if err != nil {
			return nil, err
		}
		return onlyState(statesMean(rows), state), nil
	case model.QueryBest5:
		return topFive(rows, lowerIsBetter[question]), nil
	case model.QueryWorst5:
		return topFive(rows, !lowerIsBetter[question]), nil
	case model.QueryGlobalMean:
		res := model.NewResult()
		if gm, ok := globalMean(rows); ok {
			res.Set("global_mean", gm)
		}
		return res, nil
	case model.QueryDiffFromMean:
		return diffFromMean(rows), nil
	case model.QueryStateDiffFromMean:
		state, err := stringField(payload, "state")
		if err != nil {
			return nil, err
		}
		return onlyState(diffFromMean(rows), state), nil
	case model.QueryMeanByCategory:
		res := model.NewResult()
		for _, cm := range categoryMeans(rows) {
			res.Set(fmt.Sprintf("('%s', '%s', '%s')", cm.location, cm.category, cm.stratification), cm.mean)
		}
		return res, nil
	case model.QueryStateMeanByCategory:
		state, err := stringField(payload, "state")
		if err != nil {
			return nil, err
		}
		inner := model.NewResult()
		for _, cm := range categoryMeans(rows) {
			if cm.location == state {
				inner.Set(fmt.Sprintf("('%s', '%s')", cm.category, cm.stratification), cm.mean)
			}
		}
		return model.NewResult().Set(state, inner), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownQuery, queryType)
	}
}

func statesMean(rows []record) *model.Result {
	res := model.NewResult()
	for _, sm := range stateMeans(rows) {
		res.Set(sm.state, sm.mean)
	}
	return res
}

// topFive returns the first five states by mean in the given direction.
func topFive(rows []record, ascending bool) *model.Result {
	sm := stateMeans(rows)
	sortStateMeans(sm, ascending)

	res := model.NewResult()
	for _, s := range sm[:min(bestFiveCount, len(sm))] {
		res.Set(s.state, s.mean)
	}
	return res
}

// diffFromMean reports global mean minus state mean, ordered by state mean.
func diffFromMean(rows []record) *model.Result {
	res := model.NewResult()
	gm, ok := globalMean(rows)
	if !ok {
		return res
	}
	for _, sm := range stateMeans(rows) {
		res.Set(sm.state, gm-sm.mean)
	}
	return res
}

// onlyState narrows a per-state result to a single state.
func onlyState(all *model.Result, state string) *model.Result {
	res := model.NewResult()
	if v, ok := all.Get(state); ok {
		res.Set(state, v)
	}
	return res
}

func stringField(payload model.Payload, key string) (string, error) {
	v, ok := payload[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: %s must be a non-empty string", ErrMissingField, key)
	}
	return s, nil
}
