package processor

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// WorkerPool verwaltet einen Pool von Worker-Goroutinen für Hintergrundarbeit der Frame-Schleife.
// Die Queue ist begrenzt; ist sie voll, wird ein Job verworfen statt die Schleife zu blockieren.
type WorkerPool struct {
	name            string
	jobs            chan func()
	workerCount     int
	activeJobs      int
	activeJobsMutex sync.Mutex
	dropped         int
	closed          bool
	wg              sync.WaitGroup
}

// NewWorkerPool erstellt einen neuen Worker-Pool mit workerCount Workern
func NewWorkerPool(name string, workerCount, queueSize int) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 1 {
		queueSize = workerCount * 2
	}

	log.Infof("Initializing %s worker pool with %d workers", name, workerCount)

	pool := &WorkerPool{
		name:        name,
		jobs:        make(chan func(), queueSize),
		workerCount: workerCount,
	}

	pool.startWorkers()
	return pool
}

// startWorkers startet die Worker-Goroutinen
func (p *WorkerPool) startWorkers() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go func(workerID int) {
			defer p.wg.Done()
			log.Debugf("%s worker %d started", p.name, workerID)

			for job := range p.jobs {
				p.activeJobsMutex.Lock()
				p.activeJobs++
				p.activeJobsMutex.Unlock()

				start := time.Now()
				job()

				p.activeJobsMutex.Lock()
				p.activeJobs--
				p.activeJobsMutex.Unlock()

				log.Debugf("%s worker %d finished job in %v", p.name, workerID, time.Since(start))
			}

			log.Debugf("%s worker %d shutting down (job channel closed)", p.name, workerID)
		}(i)
	}
}

// Submit stellt einen Job in die Queue. Liefert false, wenn die Queue voll ist.
func (p *WorkerPool) Submit(job func()) bool {
	p.activeJobsMutex.Lock()
	defer p.activeJobsMutex.Unlock()

	if p.closed {
		return false
	}
	select {
	case p.jobs <- job:
		return true
	default:
		p.dropped++
		log.Warnf("%s worker pool queue full, job dropped", p.name)
		return false
	}
}

// ActiveJobCount gibt die Anzahl der aktuell aktiven Jobs zurück
func (p *WorkerPool) ActiveJobCount() int {
	p.activeJobsMutex.Lock()
	defer p.activeJobsMutex.Unlock()
	return p.activeJobs
}

// DroppedJobCount gibt die Anzahl der verworfenen Jobs zurück
func (p *WorkerPool) DroppedJobCount() int {
	p.activeJobsMutex.Lock()
	defer p.activeJobsMutex.Unlock()
	return p.dropped
}

// GetWorkerCount gibt die Anzahl der Worker im Pool zurück
func (p *WorkerPool) GetWorkerCount() int {
	return p.workerCount
}

// GetQueueCapacity gibt die Kapazität der Job-Queue zurück
func (p *WorkerPool) GetQueueCapacity() int {
	return cap(p.jobs)
}

// Shutdown nimmt keine Jobs mehr an und wartet, bis die Queue abgearbeitet ist
func (p *WorkerPool) Shutdown() {
	p.activeJobsMutex.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.activeJobsMutex.Unlock()
	p.wg.Wait()
}
