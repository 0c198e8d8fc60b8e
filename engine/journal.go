package engine

import (
	"context"
	"encoding/json"

	"github.com/thrasher-corp/twapper/database/repository/execution"
	"github.com/thrasher-corp/twapper/exchanges/strategy/common"
	"github.com/thrasher-corp/twapper/exchanges/strategy/twap"
	"github.com/thrasher-corp/twapper/log"
)

// journalObserver writes the events of one execution to the journal.
// Journal failures are logged and never interrupt the execution.
type journalObserver struct {
	journal *execution.Journal
	request twap.Request
	started bool
}

func newJournalObserver(j *execution.Journal, req twap.Request) *journalObserver {
	return &journalObserver{journal: j, request: req}
}

// Observe implements common.Observer
func (j *journalObserver) Observe(executionID string, sequence int64, e *common.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()

	if !j.started {
		j.started = true
		err := j.journal.Start(ctx, &execution.Execution{
			ID:              executionID,
			Instrument:      j.request.Instrument,
			Percent:         j.request.Percent,
			Slices:          j.request.Slices,
			IntervalSeconds: j.request.Interval.Seconds(),
			StartedAt:       e.Time,
		})
		if err != nil {
			log.Errorf(log.DatabaseMgr, "Execution %s not journaled: %v", executionID, err)
		}
	}

	payload, err := json.Marshal(e)
	if err != nil {
		log.Errorf(log.DatabaseMgr, "Execution %s event %d not encoded: %v", executionID, sequence, err)
		return
	}
	err = j.journal.Append(ctx, &execution.Event{
		ExecutionID: executionID,
		Sequence:    sequence,
		Status:      string(e.Status),
		Payload:     payload,
		CreatedAt:   e.Time,
	})
	if err != nil {
		log.Errorf(log.DatabaseMgr, "Execution %s event %d not journaled: %v", executionID, sequence, err)
	}
	if !e.Status.IsTerminal() {
		return
	}
	if err = j.journal.Finish(ctx, executionID, string(e.Status), e.Time); err != nil {
		log.Errorf(log.DatabaseMgr, "Execution %s not finished in journal: %v", executionID, err)
	}
}
