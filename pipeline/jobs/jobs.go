package jobs

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/spaghettifunk/atlante/pipeline/core"
)

/**
 * @brief Describes a job to be run by the job system workers.
 */
type JobTask struct {
	/** @brief A function to be invoked when the job starts. Required. */
	OnStart func() error
	/** @brief A function to be invoked when the job successfully completes. Optional. */
	OnComplete func()
	/** @brief A function to be invoked when the job fails. Optional. */
	OnFailure func(error)
}

type JobSystem struct {
	numWorkers int
	jobQueue   chan JobTask
	wg         sync.WaitGroup
	pending    sync.WaitGroup
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	jq := make(chan JobTask, channelSize)
	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   jq,
	}

	js.start()

	return js, nil
}

// NewDefaultJobSystem sizes the pool to the machine's logical CPUs.
func NewDefaultJobSystem() *JobSystem {
	js, _ := NewJobSystem(runtime.NumCPU(), runtime.NumCPU()*2)
	return js
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				if err := job.OnStart(); err != nil {
					core.LogError(err.Error())
					if job.OnFailure != nil {
						job.OnFailure(err)
					}
				} else if job.OnComplete != nil {
					job.OnComplete()
				}
				js.pending.Done()
			}
		}()
	}
}

/**
 * @brief Shuts the job system down, waiting for in-flight jobs to finish.
 */
func (js *JobSystem) Shutdown() error {
	close(js.jobQueue)
	js.wg.Wait()
	return nil
}

/**
 * @brief Submits the provided job to be queued for execution.
 */
func (js *JobSystem) Submit(jt JobTask) {
	js.pending.Add(1)
	js.jobQueue <- jt
}

// WaitIdle blocks until every submitted job has completed.
func (js *JobSystem) WaitIdle() {
	js.pending.Wait()
}
