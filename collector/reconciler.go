package collector

import (
	"github.com/rs/zerolog/log"

	"github.com/railradar/locotrack/fois"
	"github.com/railradar/locotrack/model"
)

// reconcile runs the parser over the cycle's detail results and merges
// in the train assignment from the directory. Failed fetches, payloads
// without position data and invalid positions are logged and excluded;
// they get retried naturally on the next scheduled cycle.
func (c *Collector) reconcile(results []fois.DetailResult, dir []fois.DirectoryEntry) []model.Observation {
	trainByLoco := make(map[int]*int, len(dir))
	for _, entry := range dir {
		if entry.TrainNo != nil {
			trainByLoco[entry.LocoNo] = entry.TrainNo
		}
	}

	ops := make([]model.Observation, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			fetchFailures.Inc()
			log.Debug().Int("loco", r.LocoNo).Err(r.Err).Msg("detail fetch failed, excluded from cycle")
			continue
		}
		obs, err := c.parser.Parse(r.LocoNo, r.Data)
		if err != nil {
			parseRejects.Inc()
			log.Debug().Int("loco", r.LocoNo).Err(err).Msg("detail payload rejected")
			continue
		}
		if obs == nil {
			log.Debug().Int("loco", r.LocoNo).Msg("no position data in payload")
			continue
		}
		if trainNo, ok := trainByLoco[r.LocoNo]; ok {
			obs.TrainNo = trainNo
		}
		ops = append(ops, *obs)
	}
	return ops
}
