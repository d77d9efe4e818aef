package async

import (
	"context"
	"errors"
	"sync"
	"time"

	"kidphoto/pkg/logger"

	"github.com/google/uuid"
)

// ErrWorkerStopped 工作器已停止
var ErrWorkerStopped = errors.New("async worker stopped")

// Task 表示一个异步任务
type Task struct {
	ID       string
	Name     string
	Handler  func(ctx context.Context) error
	Timeout  time.Duration
	RetryMax int

	// KeepResult 为 true 时保留结果供 GetResult 查询，调用方负责取走
	KeepResult bool
}

// Result 表示任务执行结果
type Result struct {
	TaskID    string
	Completed bool
	Error     error
	Attempts  int
	StartTime time.Time
	EndTime   time.Time
}

// Worker 异步任务处理器
type Worker struct {
	taskQueue chan Task
	results   map[string]Result
	mu        sync.RWMutex // 保护 results
	logger    *logger.Logger
	wg        sync.WaitGroup
	stateMu   sync.RWMutex // 保护 stopped，与 mu 分开避免队列满时互相等待
	stopped   bool
	backoff   func(attempt int) time.Duration
}

// NewWorker 创建一个新的工作器
func NewWorker(queueSize int, logger *logger.Logger) *Worker {
	return &Worker{
		taskQueue: make(chan Task, queueSize),
		results:   make(map[string]Result),
		logger:    logger,
		backoff: func(attempt int) time.Duration {
			return time.Second * time.Duration(attempt) // 简单的线性退避
		},
	}
}

// SetBackoff 替换重试退避策略
func (w *Worker) SetBackoff(fn func(attempt int) time.Duration) {
	w.backoff = fn
}

// Start 启动工作器
func (w *Worker) Start(numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		w.wg.Add(1)
		go w.processTask()
	}
}

// Stop 停止接收任务并等待队列中的任务执行完毕
func (w *Worker) Stop() {
	w.stateMu.Lock()
	if w.stopped {
		w.stateMu.Unlock()
		return
	}
	w.stopped = true
	close(w.taskQueue)
	w.stateMu.Unlock()
	w.wg.Wait()
}

// Submit 将任务加入队列，返回任务ID
func (w *Worker) Submit(task Task) (string, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	w.stateMu.RLock()
	defer w.stateMu.RUnlock()
	if w.stopped {
		return "", ErrWorkerStopped
	}
	w.taskQueue <- task
	return task.ID, nil
}

// GetResult 获取任务结果，只有 KeepResult 的任务会被记录
func (w *Worker) GetResult(taskID string) (Result, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	result, exists := w.results[taskID]
	return result, exists
}

// TakeResult 获取并删除任务结果
func (w *Worker) TakeResult(taskID string) (Result, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	result, exists := w.results[taskID]
	delete(w.results, taskID)
	return result, exists
}

// processTask 处理任务的工作循环
func (w *Worker) processTask() {
	defer w.wg.Done()

	for task := range w.taskQueue {
		w.executeTask(task)
	}
}

// executeTask 执行单个任务
func (w *Worker) executeTask(task Task) {
	result := Result{
		TaskID:    task.ID,
		StartTime: time.Now(),
	}

	w.logger.Debug("Starting async task", "task_id", task.ID, "task", task.Name)

	// 执行任务，支持重试；每次尝试单独计时
	var err error
	for attempt := 0; attempt <= task.RetryMax; attempt++ {
		if attempt > 0 {
			w.logger.Info("Retrying task", "task_id", task.ID, "task", task.Name, "attempt", attempt)
			time.Sleep(w.backoff(attempt))
		}
		result.Attempts++

		err = w.runOnce(task)
		if err == nil {
			break
		}

		w.logger.Warn("Task execution failed", "task_id", task.ID, "task", task.Name, "attempt", attempt, "error", err)
	}

	result.EndTime = time.Now()
	result.Error = err
	result.Completed = err == nil

	if task.KeepResult {
		w.mu.Lock()
		w.results[task.ID] = result
		w.mu.Unlock()
	}

	if err != nil {
		w.logger.Error("Async task failed", "task_id", task.ID, "task", task.Name, "error", err)
	} else {
		w.logger.Debug("Async task completed", "task_id", task.ID, "task", task.Name, "duration", result.EndTime.Sub(result.StartTime))
	}
}

func (w *Worker) runOnce(task Task) error {
	ctx := context.Background()
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}
	return task.Handler(ctx)
}
