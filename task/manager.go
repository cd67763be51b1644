package task

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"ffbatch/batch"
	"ffbatch/config"

	"github.com/lithammer/shortuuid/v4"
)

// BatchProcessor turns a submitted batch into its result.
type BatchProcessor interface {
	Process(ctx context.Context, b *batch.Batch) (*batch.Result, error)
}

type Manager struct {
	cfg            *config.Config
	tasks          sync.Map
	taskQueue      chan *Task
	concurrencySem chan struct{}
	processor      BatchProcessor
}

func NewManager(cfg *config.Config, processor BatchProcessor) (*Manager, error) {
	m := &Manager{
		cfg:            cfg,
		tasks:          sync.Map{},
		taskQueue:      make(chan *Task, 100),
		concurrencySem: make(chan struct{}, cfg.MaxConcurrency),
		processor:      processor,
	}
	return m, nil
}

func (m *Manager) Start(ctx context.Context) {
	log.Println("Task manager started. Concurrency limit:", m.cfg.MaxConcurrency)
	go m.cleanupLoop(ctx)
	go m.workerLoop(ctx)
}

// workerLoop pulls tasks from the queue and processes them
func (m *Manager) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("Worker loop shutting down.")
			return
		case task := <-m.taskQueue:
			// Wait for a free processing slot
			m.concurrencySem <- struct{}{}
			go func(t *Task) {
				defer func() { <-m.concurrencySem }() // Release slot
				m.processTask(ctx, t)
			}(task)
		}
	}
}

// processTask handles the execution of a single batch task
func (m *Manager) processTask(parentCtx context.Context, t *Task) {
	// Create a new context for this specific task for cancellation and timeout
	taskCtx, cancel := context.WithTimeout(parentCtx, m.cfg.FFTimeout)
	t.cancelFunc = cancel
	defer cancel()

	// Check if task was canceled while in queue
	if t.Status == StatusCanceled {
		log.Printf("Task %s was canceled before processing.", t.ID)
		return
	}

	log.Printf("Processing task %s", t.ID)
	t.Status = StatusProcessing
	t.StartedAt = time.Now()
	m.tasks.Store(t.ID, t)

	result, err := m.processor.Process(taskCtx, t.Request)

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			log.Printf("Task %s canceled or timed out.", t.ID)
			t.Status = StatusCanceled
			t.Error = "Task was canceled or timed out"
		} else {
			log.Printf("Task %s failed: %v", t.ID, err)
			t.Status = StatusFailed
			t.Error = err.Error()
		}
	} else {
		log.Printf("Task %s completed successfully.", t.ID)
		t.Status = StatusCompleted
		t.Result = result
	}
	t.CompletedAt = time.Now()
	m.tasks.Store(t.ID, t)
}

// cleanupLoop periodically evicts finished tasks, releasing the result
// payloads they hold in memory.
func (m *Manager) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.OutputLocalLifetime / 4) // Check 4 times per lifetime
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Cleanup loop shutting down.")
			return
		case <-ticker.C:
			m.tasks.Range(func(key, value interface{}) bool {
				task := value.(*Task)
				switch task.Status {
				case StatusCompleted, StatusFailed, StatusCanceled:
					if time.Since(task.CompletedAt) > m.cfg.OutputLocalLifetime {
						log.Printf("Evicting expired task %s", task.ID)
						m.tasks.Delete(key)
					}
				}
				return true
			})
		}
	}
}

func (m *Manager) Submit(b *batch.Batch) (*Task, error) {
	t := &Task{
		ID:        fmt.Sprintf("%s_%d", shortuuid.New(), time.Now().Unix()),
		Status:    StatusQueued,
		Request:   b,
		CreatedAt: time.Now(),
	}

	m.tasks.Store(t.ID, t)
	m.taskQueue <- t
	log.Printf("Task %s submitted to queue.", t.ID)
	return t, nil
}

func (m *Manager) Get(taskID string) (*Task, bool) {
	if val, ok := m.tasks.Load(taskID); ok {
		return val.(*Task), true
	}
	return nil, false
}

func (m *Manager) List() []*Task {
	var taskList []*Task
	m.tasks.Range(func(key, value interface{}) bool {
		taskList = append(taskList, value.(*Task))
		return true
	})
	return taskList
}

func (m *Manager) Cancel(taskID string) error {
	val, ok := m.tasks.Load(taskID)
	if !ok {
		return fmt.Errorf("task %s not found", taskID)
	}

	task := val.(*Task)
	switch task.Status {
	case StatusCompleted, StatusFailed, StatusCanceled:
		return fmt.Errorf("cannot cancel task in state: %s", task.Status)
	case StatusQueued:
		task.Status = StatusCanceled
		task.Error = "Canceled by user while in queue"
		m.tasks.Store(task.ID, task)
		log.Printf("Task %s marked as canceled in queue.", task.ID)
	case StatusProcessing:
		if task.cancelFunc != nil {
			task.cancelFunc()
			log.Printf("Cancellation signal sent to running task %s.", task.ID)
		} else {
			return fmt.Errorf("task %s is processing but has no cancellation handle", task.ID)
		}
	}
	return nil
}

// ResultPayload looks up the inline binary produced for one result item of a
// completed task.
func (m *Manager) ResultPayload(taskID string, index int) (*batch.Payload, error) {
	t, ok := m.Get(taskID)
	if !ok {
		return nil, fmt.Errorf("task %s not found", taskID)
	}
	if t.Status != StatusCompleted || t.Result == nil {
		return nil, fmt.Errorf("task %s has no result (status: %s)", taskID, t.Status)
	}
	if index < 0 || index >= len(t.Result.Items) {
		return nil, fmt.Errorf("result item %d not found", index)
	}

	key := t.Request.Options.BinaryKey
	if key == "" {
		key = "data"
	}
	item := t.Result.Items[index]
	if item.Binary == nil || item.Binary[key] == nil {
		return nil, fmt.Errorf("result item %d carries no binary output", index)
	}
	return item.Binary[key], nil
}
