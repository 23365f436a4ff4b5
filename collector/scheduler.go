package collector

import (
	"context"
	"sync"
	"time"

	"github.com/railradar/locotrack/fois"
)

// fetchDetails fans out detail fetches for the directory entries in
// chunks of chunkSize. All fetches within a chunk run concurrently;
// chunks run strictly in sequence with chunkDelay between them and no
// delay after the last. Every entry yields exactly one result, tagged
// success or failure; there is no ordering guarantee inside a chunk.
//
// The upstream documents no rate limit, so the chunk size and delay
// self-impose one while also bounding peak concurrent load.
func (c *Collector) fetchDetails(ctx context.Context, dir []fois.DirectoryEntry) []fois.DetailResult {
	results := make([]fois.DetailResult, len(dir))

	for start := 0; start < len(dir); start += c.chunkSize {
		end := min(start+c.chunkSize, len(dir))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				data, err := c.client.FetchDetail(ctx, dir[i].LocoNo)
				results[i] = fois.DetailResult{LocoNo: dir[i].LocoNo, Data: data, Err: err}
			}()
		}
		wg.Wait()

		if end < len(dir) {
			select {
			case <-ctx.Done():
				for i := end; i < len(dir); i++ {
					results[i] = fois.DetailResult{LocoNo: dir[i].LocoNo, Err: ctx.Err()}
				}
				return results
			case <-time.After(c.chunkDelay):
			}
		}
	}
	return results
}
