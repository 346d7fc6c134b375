package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shenjiangwei/mempool/alloc"
	"github.com/shenjiangwei/mempool/config"
	"github.com/shenjiangwei/mempool/report"
)

// TestResult stores test iteration results
type TestResult struct {
	Iteration     int
	TotalAllocs   uint64
	TotalFrees    uint64
	LiveAtEnd     uint64
	TotalDuration time.Duration
}

type region struct {
	buf  []byte
	size int
}

func runTest(iteration int, cfg *config.Bench) (TestResult, error) {
	a, err := alloc.New[byte]()
	if err != nil {
		return TestResult{}, err
	}
	defer a.Close()

	var (
		mutex     sync.Mutex
		wg        sync.WaitGroup
		allocated []region
		allocs    uint64
		frees     uint64
		ops       int
	)

	startTime := time.Now()

	for i := 0; i < cfg.Workers; i++ {
		worker, err := a.Clone()
		if err != nil {
			return TestResult{}, err
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer worker.Close()
			for {
				mutex.Lock()
				if ops >= cfg.Ops {
					mutex.Unlock()
					return
				}
				ops++

				// Randomly decide whether to allocate or free
				if rand.Float64() < 0.7 || len(allocated) == 0 {
					mutex.Unlock()
					size := rand.Intn(cfg.MaxSize) + 1
					buf, err := worker.Allocate(size)
					if err != nil {
						continue
					}
					for j := range buf {
						buf[j] = byte(size + j)
					}
					mutex.Lock()
					allocated = append(allocated, region{buf: buf, size: size})
					allocs++
					mutex.Unlock()
				} else {
					idx := rand.Intn(len(allocated))
					r := allocated[idx]
					allocated[idx] = allocated[len(allocated)-1]
					allocated = allocated[:len(allocated)-1]
					frees++
					mutex.Unlock()

					for j := range r.buf {
						if r.buf[j] != byte(r.size+j) {
							panic(fmt.Sprintf("payload corrupted at offset %d", j))
						}
					}
					worker.Deallocate(&r.buf[0], r.size)
				}
			}
		}()
	}

	wg.Wait()

	live := uint64(len(allocated))
	for _, r := range allocated {
		a.Deallocate(&r.buf[0], r.size)
		frees++
	}

	return TestResult{
		Iteration:     iteration,
		TotalAllocs:   allocs,
		TotalFrees:    frees,
		LiveAtEnd:     live,
		TotalDuration: time.Since(startTime),
	}, nil
}

func newConsoleLogger() *zap.Logger {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if cfg.Log.Enable {
		if cfg.Log.Path != "" {
			report.Set(report.NewFileSink(cfg.Log.Path))
		} else {
			report.Set(report.NewZapSink(newConsoleLogger()))
		}
	}

	fmt.Printf("Starting allocation test with %d iterations\n", cfg.Bench.Iterations)
	fmt.Println("Workers:", cfg.Bench.Workers)
	fmt.Println("Operations per iteration:", cfg.Bench.Ops)
	fmt.Println("Max request size:", cfg.Bench.MaxSize, "bytes")
	fmt.Println()

	var totalDuration float64
	for i := 0; i < cfg.Bench.Iterations; i++ {
		fmt.Printf("Running iteration %d...\n", i+1)
		result, err := runTest(i+1, &cfg.Bench)
		if err != nil {
			fmt.Fprintf(os.Stderr, "iteration %d failed: %v\n", i+1, err)
			os.Exit(1)
		}

		fmt.Printf("Iteration %d results:\n", result.Iteration)
		fmt.Printf("  Total allocations: %d\n", result.TotalAllocs)
		fmt.Printf("  Total frees: %d\n", result.TotalFrees)
		fmt.Printf("  Live at end: %d\n", result.LiveAtEnd)
		fmt.Printf("  Duration: %v\n", result.TotalDuration)
		fmt.Println()

		totalDuration += result.TotalDuration.Seconds()
	}

	fmt.Printf("Average duration: %.2f seconds\n", totalDuration/float64(cfg.Bench.Iterations))
}
