package processor

import (
	"context"
	"runtime"
	"sync"
	"time"

	"campus-face-id/config"

	log "github.com/sirupsen/logrus"
)

// WorkerPool verwaltet einen Pool von Worker-Goroutinen für Erkennungsanfragen
type WorkerPool struct {
	processor       *ImageProcessor
	jobs            chan *RecognitionJob
	workerCount     int
	timeout         time.Duration
	activeJobs      int
	activeJobsMutex sync.Mutex
	shutdown        chan struct{}
	shutdownOnce    sync.Once
	wg              sync.WaitGroup
}

// RecognitionJob repräsentiert eine Erkennungsanfrage in der Warteschlange
type RecognitionJob struct {
	ctx      context.Context
	req      Request
	resultCh chan *RecognitionResult // Individueller Ergebniskanal pro Job
}

// RecognitionResult enthält das Ergebnis eines Jobs
type RecognitionResult struct {
	Result *Result
	Err    error
}

// NewWorkerPool erstellt einen neuen Worker-Pool
func NewWorkerPool(processor *ImageProcessor, cfg config.RecognitionConfig) *WorkerPool {
	workerCount := cfg.Workers
	if workerCount <= 0 {
		// Container-bewusste Konfiguration: 75% der verfügbaren CPUs, mindestens 2
		workerCount = max(2, (runtime.NumCPU()*3)/4)
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = workerCount * 2
	}

	log.Infof("Initializing recognition worker pool with %d workers (queue %d)", workerCount, queueSize)

	pool := &WorkerPool{
		processor:   processor,
		jobs:        make(chan *RecognitionJob, queueSize),
		workerCount: workerCount,
		timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		shutdown:    make(chan struct{}),
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
			log.Debugf("Worker %d started", workerID)

			for {
				select {
				case job := <-p.jobs:
					p.run(workerID, job)
				case <-p.shutdown:
					log.Debugf("Worker %d received shutdown signal", workerID)
					return
				}
			}
		}(i)
	}
}

func (p *WorkerPool) run(workerID int, job *RecognitionJob) {
	select {
	case <-p.shutdown:
		job.resultCh <- &RecognitionResult{Err: ErrPoolClosed}
		return
	default:
	}

	// Anfrage wurde bereits abgebrochen, während sie wartete
	if err := job.ctx.Err(); err != nil {
		job.resultCh <- &RecognitionResult{Err: err}
		return
	}

	p.activeJobsMutex.Lock()
	p.activeJobs++
	jobCount := p.activeJobs
	p.activeJobsMutex.Unlock()

	log.Debugf("Worker %d processing request %s from %s (active jobs: %d)",
		workerID, job.req.RequestID, job.req.Source, jobCount)

	startTime := time.Now()
	result, err := p.processor.processImageInternal(job.ctx, job.req)

	p.activeJobsMutex.Lock()
	p.activeJobs--
	p.activeJobsMutex.Unlock()

	// resultCh ist gepuffert, der Sender blockiert nie
	job.resultCh <- &RecognitionResult{Result: result, Err: err}

	log.Debugf("Worker %d completed recognition in %v", workerID, time.Since(startTime))
}

// Recognize verarbeitet eine Anfrage über den Worker-Pool
func (p *WorkerPool) Recognize(ctx context.Context, req Request) (*Result, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	job := &RecognitionJob{
		ctx:      ctx,
		req:      req,
		resultCh: make(chan *RecognitionResult, 1),
	}

	select {
	case <-p.shutdown:
		return nil, ErrPoolClosed
	default:
	}

	select {
	case p.jobs <- job:
	case <-p.shutdown:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-job.resultCh:
		return res.Result, res.Err
	case <-p.shutdown:
		// Wartende Jobs nimmt nach dem Shutdown kein Worker mehr an
		select {
		case res := <-job.resultCh:
			return res.Result, res.Err
		default:
			return nil, ErrPoolClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ActiveJobCount gibt die Anzahl der aktuell aktiven Jobs zurück
func (p *WorkerPool) ActiveJobCount() int {
	p.activeJobsMutex.Lock()
	defer p.activeJobsMutex.Unlock()
	return p.activeJobs
}

// QueuedJobCount gibt die Anzahl wartender Jobs zurück
func (p *WorkerPool) QueuedJobCount() int {
	return len(p.jobs)
}

// GetWorkerCount gibt die Anzahl der Worker im Pool zurück
func (p *WorkerPool) GetWorkerCount() int {
	return p.workerCount
}

// GetQueueCapacity gibt die Kapazität der Job-Queue zurück
func (p *WorkerPool) GetQueueCapacity() int {
	return cap(p.jobs)
}

// Shutdown fährt den Worker-Pool herunter und wartet auf laufende Jobs
func (p *WorkerPool) Shutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
	p.wg.Wait()
}
