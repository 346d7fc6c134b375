package report

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsSink feeds allocator events into prometheus collectors.
type MetricsSink struct {
	blocksAllocated prometheus.Counter
	blocksFreed     prometheus.Counter
	chunksInUse     prometheus.Gauge
	bytesInUse      prometheus.Gauge
	allocRequests   prometheus.Counter
	deallocRequests prometheus.Counter
	refCount        prometheus.Gauge
	leakedChunks    prometheus.Counter
}

// NewMetricsSink registers the allocator collectors with reg.
func NewMetricsSink(reg prometheus.Registerer) *MetricsSink {
	s := &MetricsSink{
		blocksAllocated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mempool_blocks_allocated_total",
			Help: "Backing blocks mapped since process start.",
		}),
		blocksFreed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mempool_blocks_freed_total",
			Help: "Backing blocks unmapped since process start.",
		}),
		chunksInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mempool_chunks_in_use",
			Help: "Chunks currently handed out across all pools.",
		}),
		bytesInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mempool_bytes_in_use",
			Help: "Bytes currently handed out across all pools.",
		}),
		allocRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mempool_alloc_requests_total",
			Help: "Adapter-level allocation requests.",
		}),
		deallocRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mempool_dealloc_requests_total",
			Help: "Adapter-level deallocation requests.",
		}),
		refCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mempool_global_ref_count",
			Help: "Live references to the global allocator.",
		}),
		leakedChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mempool_leaked_chunks_total",
			Help: "Chunks still in use when their block was destroyed.",
		}),
	}
	reg.MustRegister(
		s.blocksAllocated, s.blocksFreed,
		s.chunksInUse, s.bytesInUse,
		s.allocRequests, s.deallocRequests,
		s.refCount, s.leakedChunks,
	)
	return s
}

func (s *MetricsSink) BlockAllocated(BlockInfo) { s.blocksAllocated.Inc() }
func (s *MetricsSink) BlockFreed(BlockInfo)     { s.blocksFreed.Inc() }

func (s *MetricsSink) ChunkAllocated(b BlockInfo, _ uintptr) {
	s.chunksInUse.Inc()
	s.bytesInUse.Add(float64(b.ChunkSize))
}

func (s *MetricsSink) ChunkFreed(b BlockInfo, _ uintptr) {
	s.chunksInUse.Dec()
	s.bytesInUse.Sub(float64(b.ChunkSize))
}

func (s *MetricsSink) AllocRequested(uintptr)            { s.allocRequests.Inc() }
func (s *MetricsSink) DeallocRequested(uintptr, uintptr) { s.deallocRequests.Inc() }

func (s *MetricsSink) GlobalCreated(uintptr)   { s.refCount.Set(0) }
func (s *MetricsSink) GlobalDestroyed(uintptr) { s.refCount.Set(0) }

func (s *MetricsSink) RefCountAdd(count int64) { s.refCount.Set(float64(count)) }
func (s *MetricsSink) RefCountSub(count int64) { s.refCount.Set(float64(count)) }

func (s *MetricsSink) Leak(d LeakDump) {
	s.leakedChunks.Add(float64(d.UsedChunks))
}
