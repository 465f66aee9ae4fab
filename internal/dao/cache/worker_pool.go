package cache

import (
	"sync"

	"go.uber.org/zap"
)

// workerPool 固定数量的后台 Worker，消费缓存刷新任务
type workerPool struct {
	taskChan chan func()
	wg       sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

// newWorkerPool 启动 workerNum 个 Worker，缓冲区大小为 taskChanSize
func newWorkerPool(workerNum, taskChanSize int) *workerPool {
	if workerNum <= 0 {
		workerNum = 1
	}
	if taskChanSize < 0 {
		taskChanSize = 0
	}
	p := &workerPool{taskChan: make(chan func(), taskChanSize)}
	for i := 0; i < workerNum; i++ {
		p.wg.Add(1)
		go p.startWorker()
	}
	zap.L().Info("cache workers started", zap.Int("workers", workerNum), zap.Int("buffer", taskChanSize))
	return p
}

// startWorker 单个 Worker 消费循环，panic 后记录日志并继续消费
func (p *workerPool) startWorker() {
	defer p.wg.Done()
	for task := range p.taskChan {
		p.run(task)
	}
}

func (p *workerPool) run(task func()) {
	defer func() {
		if rec := recover(); rec != nil {
			zap.L().Error("cache worker panic", zap.Any("recover", rec))
		}
	}()
	if task != nil {
		task()
	}
}

// submit 提交任务，队列满时降级为同步执行
// 同步执行在释放锁之后进行，不会阻塞 close
func (p *workerPool) submit(action func()) {
	queued, closed := p.enqueue(action)
	if closed {
		zap.L().Debug("cache workers closed, task dropped")
		return
	}
	if !queued {
		zap.L().Warn("cache task channel full, executing synchronously")
		p.run(action)
	}
}

// trySubmit 非阻塞提交，队列满或已关闭时丢弃任务并返回 false
func (p *workerPool) trySubmit(action func()) bool {
	queued, _ := p.enqueue(action)
	return queued
}

func (p *workerPool) enqueue(action func()) (queued, closed bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false, true
	}
	select {
	case p.taskChan <- action:
		return true, false
	default:
		return false, false
	}
}

// close 关闭队列并等待已提交的任务执行完毕
func (p *workerPool) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.taskChan)
	p.mu.Unlock()
	p.wg.Wait()
}
