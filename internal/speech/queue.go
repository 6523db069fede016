package speech

import "sync"

// queue holds captured utterances between the capture and drain tasks.
type queue struct {
	mu    sync.Mutex
	items [][]float32
}

func (q *queue) push(pcm []float32) {
	q.mu.Lock()
	q.items = append(q.items, pcm)
	q.mu.Unlock()
}

// popFlush takes the oldest utterance and discards everything queued behind
// it, returning how many were discarded.
func (q *queue) popFlush() (pcm []float32, dropped int, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, 0, false
	}
	pcm, dropped = q.items[0], len(q.items)-1
	q.items = nil
	return pcm, dropped, true
}

func (q *queue) flush() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	q.items = nil
	return n
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
