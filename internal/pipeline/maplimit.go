package pipeline

import "sync"

// mapLimit 对一批元素做有上限的并发处理：最多 limit 个在途，结果按
// 原始下标写回，整体输出顺序与输入一致，与响应到达先后无关。
// 任一 fn 返回错误即记录首个错误，之后不再调度新任务（在途的会跑完），
// 最终返回 nil 与该错误。容错型阶段应在 fn 内部消化错误并返回占位值。
func mapLimit[T, R any](items []T, limit int, fn func(i int, item T) (R, error)) ([]R, error) {
	if limit <= 0 {
		limit = 1
	}

	results := make([]R, len(items))

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		sem      = make(chan struct{}, limit)
		firstErr error
	)

	for i, item := range items {
		mu.Lock()
		stop := firstErr != nil
		mu.Unlock()
		if stop {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, item T) {
			defer wg.Done()
			defer func() { <-sem }()

			r, err := fn(i, item)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			results[i] = r
		}(i, item)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}
