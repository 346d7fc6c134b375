package report

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ZapSink logs every allocator event through a zap logger.
type ZapSink struct {
	log *zap.Logger
}

// NewZapSink wraps an existing logger.
func NewZapSink(log *zap.Logger) *ZapSink {
	return &ZapSink{log: log}
}

// NewFileSink logs to a rotating file. Rotation keeps five 64MB files.
func NewFileSink(path string) *ZapSink {
	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    64,
		MaxBackups: 5,
	})
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		w,
		zapcore.InfoLevel,
	)
	return &ZapSink{log: zap.New(core)}
}

func blockFields(b BlockInfo) []zap.Field {
	return []zap.Field{
		zap.Uintptr("block", b.Block),
		zap.Uintptr("block_size", b.BlockSize),
		zap.Uintptr("chunk_size", b.ChunkSize),
		zap.Uintptr("available_space", b.AvailableSpace),
		zap.Uintptr("used_space", b.UsedSpace),
		zap.Uintptr("available_chunks", b.AvailableChunks),
		zap.Uintptr("used_chunks", b.UsedChunks),
	}
}

func (s *ZapSink) BlockAllocated(b BlockInfo) {
	s.log.Info("block allocated", blockFields(b)...)
}

func (s *ZapSink) BlockFreed(b BlockInfo) {
	s.log.Info("block freed", blockFields(b)...)
}

func (s *ZapSink) ChunkAllocated(b BlockInfo, chunk uintptr) {
	s.log.Debug("chunk allocated", append(blockFields(b), zap.Uintptr("chunk", chunk))...)
}

func (s *ZapSink) ChunkFreed(b BlockInfo, chunk uintptr) {
	s.log.Debug("chunk freed", append(blockFields(b), zap.Uintptr("chunk", chunk))...)
}

func (s *ZapSink) AllocRequested(size uintptr) {
	s.log.Debug("allocation requested", zap.Uintptr("size", size))
}

func (s *ZapSink) DeallocRequested(p uintptr, size uintptr) {
	s.log.Debug("deallocation requested", zap.Uintptr("addr", p), zap.Uintptr("size", size))
}

func (s *ZapSink) GlobalCreated(g uintptr) {
	s.log.Info("global allocator created", zap.Uintptr("addr", g))
}

func (s *ZapSink) GlobalDestroyed(g uintptr) {
	s.log.Info("global allocator destroyed", zap.Uintptr("addr", g))
}

func (s *ZapSink) RefCountAdd(count int64) {
	s.log.Debug("global ref count incremented", zap.Int64("count", count))
}

func (s *ZapSink) RefCountSub(count int64) {
	s.log.Debug("global ref count decremented", zap.Int64("count", count))
}

func (s *ZapSink) Leak(d LeakDump) {
	s.log.Warn("memory leak detected",
		append(blockFields(d.BlockInfo),
			zap.Int("leaked_chunks", len(d.Leaked)),
			zap.String("dump", FormatLeak(d)),
		)...)
}

// FormatLeak renders a leak dump with one hex+ASCII line per leaked chunk.
func FormatLeak(d LeakDump) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "chunks: %d of %d; size: %d of %d\n",
		d.UsedChunks, d.AvailableChunks+d.UsedChunks,
		d.UsedSpace, d.AvailableSpace+d.UsedSpace)
	for _, c := range d.Leaked {
		fmt.Fprintf(&sb, "*0x%X:", c.Addr)
		for _, v := range c.Data {
			fmt.Fprintf(&sb, " %02x", v)
		}
		sb.WriteByte(' ')
		for _, v := range c.Data {
			if v >= 0x21 && v <= 0x7e {
				sb.WriteByte(v)
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
