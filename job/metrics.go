package job

import "time"

// TypeMetrics is a point-in-time aggregation for one job type.
type TypeMetrics struct {
	Total         int64            `json:"total"`
	ByStatus      map[Status]int64 `json:"by_status"`
	AvgProcessing time.Duration    `json:"avg_processing"`
	AvgQueueWait  time.Duration    `json:"avg_queue_wait"`
	FailureRate   float64          `json:"failure_rate"`
}

// Metrics is a point-in-time aggregation across all status records.
// FailureRate is (failed + dead-lettered) / total.
type Metrics struct {
	Total         int64                   `json:"total"`
	ByStatus      map[Status]int64        `json:"by_status"`
	AvgProcessing time.Duration           `json:"avg_processing"`
	AvgQueueWait  time.Duration           `json:"avg_queue_wait"`
	FailureRate   float64                 `json:"failure_rate"`
	ByType        map[string]*TypeMetrics `json:"by_type"`
}

// ComputeMetrics aggregates status records into Metrics. It is shared by
// store backends that hold records in application memory; SQL backends
// may aggregate in the database instead.
func ComputeMetrics(infos []*StatusInfo) *Metrics {
	m := &Metrics{
		ByStatus: make(map[Status]int64),
		ByType:   make(map[string]*TypeMetrics),
	}

	type acc struct {
		processing      time.Duration
		processingCount int64
		wait            time.Duration
		waitCount       int64
		failed          int64
	}

	var overall acc
	perType := make(map[string]*acc)

	for _, s := range infos {
		m.Total++
		m.ByStatus[s.Status]++

		tm := m.ByType[s.Type]
		if tm == nil {
			tm = &TypeMetrics{ByStatus: make(map[Status]int64)}
			m.ByType[s.Type] = tm
			perType[s.Type] = &acc{}
		}
		tm.Total++
		tm.ByStatus[s.Status]++
		ta := perType[s.Type]

		if d := s.ProcessingDuration(); d > 0 {
			overall.processing += d
			overall.processingCount++
			ta.processing += d
			ta.processingCount++
		}
		if w := s.QueueWait(); w > 0 {
			overall.wait += w
			overall.waitCount++
			ta.wait += w
			ta.waitCount++
		}
		if s.Status == StatusFailed || s.Status == StatusDeadLetter {
			overall.failed++
			ta.failed++
		}
	}

	if overall.processingCount > 0 {
		m.AvgProcessing = overall.processing / time.Duration(overall.processingCount)
	}
	if overall.waitCount > 0 {
		m.AvgQueueWait = overall.wait / time.Duration(overall.waitCount)
	}
	if m.Total > 0 {
		m.FailureRate = float64(overall.failed) / float64(m.Total)
	}

	for jobType, tm := range m.ByType {
		ta := perType[jobType]
		if ta.processingCount > 0 {
			tm.AvgProcessing = ta.processing / time.Duration(ta.processingCount)
		}
		if ta.waitCount > 0 {
			tm.AvgQueueWait = ta.wait / time.Duration(ta.waitCount)
		}
		if tm.Total > 0 {
			tm.FailureRate = float64(ta.failed) / float64(tm.Total)
		}
	}

	return m
}
