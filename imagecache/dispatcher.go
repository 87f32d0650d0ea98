package imagecache

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/ShoshinNikita/camoview/camoview"
	"github.com/ShoshinNikita/camoview/pkg/metrics"
	"github.com/ShoshinNikita/camoview/pkg/rlog"
	"golang.org/x/sync/errgroup"
)

// FetchError describes why an image wasn't loaded.
type FetchError struct {
	Key camoview.ResourceKey
	// Op is one of "fetch", "decode" or "panic".
	Op  string
	Err error
}

func (err *FetchError) Error() string {
	return fmt.Sprintf("couldn't %s %q: %s", err.Op, err.Key, err.Err)
}

func (err *FetchError) Unwrap() error {
	return err.Err
}

// Result is sent for every key of a round.
type Result struct {
	Key    camoview.ResourceKey
	Pixels camoview.PixelBuffer
	Err    error
}

type Options struct {
	// Workers is the max number of images loaded in parallel. Default is [runtime.NumCPU].
	Workers int
	// FetchTimeout limits loading of a single image. Default is 1 minute.
	FetchTimeout time.Duration
	// KeyFunc is [FilenameKey] by default.
	KeyFunc KeyFunc
	// Wakeup is called by workers every time a result is ready to be consumed by [Dispatcher.Tick].
	// It must not block.
	Wakeup func()
}

// Dispatcher loads images in rounds. Every round takes all queued images and loads them
// with a bounded number of workers, a new round can't start until the previous one is
// finished. Results are consumed by [Dispatcher.Tick] that must be called by a single
// goroutine that owns the UI. Only this goroutine calls render.
type Dispatcher[H any] struct {
	cache   camoview.ByteCache
	fetcher camoview.Fetcher
	decode  camoview.DecodeFunc
	render  func(camoview.ResourceKey, camoview.PixelBuffer) H

	workersCount int
	fetchTimeout time.Duration
	keyFn        KeyFunc
	wakeup       func()

	queue   *Queue
	results *ResultTable[H]
	gate    *Gate

	inFlight   map[camoview.ResourceKey]struct{}
	inFlightMu sync.RWMutex

	// round and roundID are accessed only by the goroutine that calls Tick.
	round   *round
	roundID int

	stopped   bool
	stoppedMu sync.Mutex
	roundsWg  sync.WaitGroup
}

type round struct {
	id        int
	ch        chan Result
	size      int
	startTime time.Time
	//
	resolved int
	failed   int
}

func NewDispatcher[H any](
	cache camoview.ByteCache, fetcher camoview.Fetcher, decode camoview.DecodeFunc,
	render func(camoview.ResourceKey, camoview.PixelBuffer) H, opts Options,
) *Dispatcher[H] {

	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = time.Minute
	}
	if opts.KeyFunc == nil {
		opts.KeyFunc = FilenameKey
	}
	if opts.Wakeup == nil {
		opts.Wakeup = func() {}
	}

	return &Dispatcher[H]{
		cache:   cache,
		fetcher: fetcher,
		decode:  decode,
		render:  render,
		//
		workersCount: opts.Workers,
		fetchTimeout: opts.FetchTimeout,
		keyFn:        opts.KeyFunc,
		wakeup:       opts.Wakeup,
		//
		queue:    NewQueue(),
		results:  NewResultTable[H](),
		gate:     &Gate{},
		inFlight: make(map[camoview.ResourceKey]struct{}),
	}
}

// Key returns the cache key for the url.
func (d *Dispatcher[H]) Key(url string) camoview.ResourceKey {
	return d.keyFn(url)
}

// Enqueue adds images to the queue. Images that are already loaded, queued or being loaded
// are skipped. It returns the number of added images.
func (d *Dispatcher[H]) Enqueue(urls ...string) (added int) {
	for _, url := range urls {
		key := d.keyFn(url)

		if d.results.Has(key) || d.isInFlight(key) {
			continue
		}
		if d.queue.Push(Item{Key: key, URL: url}) {
			added++
		}
	}
	return added
}

// Select replaces the loaded images and the queue with a new set of images. Images that
// are being loaded are not cancelled.
func (d *Dispatcher[H]) Select(urls []string) (added int) {
	d.results.Clear()
	d.queue.Clear()

	return d.Enqueue(urls...)
}

// ClearCache removes all cached image files. Loaded images and the queue are not affected.
func (d *Dispatcher[H]) ClearCache() error {
	if err := d.cache.Clear(); err != nil {
		return fmt.Errorf("couldn't clear cache: %w", err)
	}
	return nil
}

// Results returns the table of loaded images.
func (d *Dispatcher[H]) Results() *ResultTable[H] {
	return d.results
}

// Loading reports whether a round is in progress.
func (d *Dispatcher[H]) Loading() bool {
	return d.gate.IsSet()
}

func (d *Dispatcher[H]) QueueLen() int {
	return d.queue.Len()
}

// Tick consumes ready results of the current round and starts a new round if the previous
// one is finished. It never blocks and must be called on every UI frame by the goroutine
// that owns the UI. It returns true if new images were inserted into the result table.
func (d *Dispatcher[H]) Tick() (redraw bool) {
	if d.round != nil {
		redraw = d.consumeResults()
		if d.round != nil {
			// Still in progress.
			return redraw
		}
	}

	d.startRound()

	return redraw
}

func (d *Dispatcher[H]) consumeResults() (redraw bool) {
	r := d.round
	for {
		select {
		case res, ok := <-r.ch:
			if !ok {
				d.finishRound()
				return redraw
			}

			d.inFlightMu.Lock()
			delete(d.inFlight, res.Key)
			d.inFlightMu.Unlock()

			if res.Err != nil {
				r.failed++
				rlog.Debugf("round #%d: %s", r.id, res.Err)
				continue
			}

			r.resolved++
			d.results.Insert(res.Key, d.render(res.Key, res.Pixels))
			redraw = true

		default:
			return redraw
		}
	}
}

func (d *Dispatcher[H]) finishRound() {
	r := d.round
	d.round = nil

	dur := time.Since(r.startTime)
	metrics.ImageRoundDuration.Observe(dur.Seconds())

	rlog.Debugf(
		"round #%d is finished in %s, images: %d, resolved: %d, failed: %d",
		r.id, dur, r.size, r.resolved, r.failed,
	)

	d.gate.Release()
}

func (d *Dispatcher[H]) startRound() {
	if !d.gate.TryAcquire() {
		return
	}

	d.stoppedMu.Lock()
	defer d.stoppedMu.Unlock()

	if d.stopped {
		d.gate.Release()
		return
	}

	batch := d.queue.Drain()
	if len(batch) == 0 {
		d.gate.Release()
		return
	}

	d.inFlightMu.Lock()
	for _, item := range batch {
		d.inFlight[item.Key] = struct{}{}
	}
	d.inFlightMu.Unlock()

	d.roundID++
	r := &round{
		id:        d.roundID,
		ch:        make(chan Result, len(batch)),
		size:      len(batch),
		startTime: time.Now(),
	}
	d.round = r

	metrics.ImageRoundSize.Observe(float64(len(batch)))
	rlog.Debugf("start round #%d, images: %d", r.id, len(batch))

	d.roundsWg.Add(1)
	go func() {
		defer d.roundsWg.Done()
		defer d.wakeup()
		defer close(r.ch)

		d.runRound(batch, r.ch)
	}()
}

// runRound loads all images of the batch. It sends exactly one result for every item.
func (d *Dispatcher[H]) runRound(batch []Item, resCh chan<- Result) {
	var wg errgroup.Group
	wg.SetLimit(d.workersCount)

	for _, item := range batch {
		wg.Go(func() error {
			res := d.safeResolve(item)
			if res.Err != nil {
				var fetchErr *FetchError
				if errors.As(res.Err, &fetchErr) {
					metrics.ImageErrors.WithLabelValues(fetchErr.Op).Inc()
				}
			} else {
				metrics.ImagesResolved.Inc()
			}

			// Never blocks: the channel has enough capacity for the whole batch.
			resCh <- res
			d.wakeup()

			return nil
		})
	}

	_ = wg.Wait()
}

func (d *Dispatcher[H]) safeResolve(item Item) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			rlog.Errorf("panic during loading of %q: %v\n%s", item.URL, r, debug.Stack())

			res = Result{
				Key: item.Key,
				Err: &FetchError{Key: item.Key, Op: "panic", Err: fmt.Errorf("%v", r)},
			}
		}
	}()

	pixels, err := d.resolve(item)
	return Result{Key: item.Key, Pixels: pixels, Err: err}
}

func (d *Dispatcher[H]) resolve(item Item) (camoview.PixelBuffer, error) {
	data, ok := d.cache.Lookup(item.Key)
	if !ok {
		ctx, cancel := context.WithTimeout(context.Background(), d.fetchTimeout)
		defer cancel()

		var err error
		data, err = d.fetcher.Get(ctx, item.URL)
		if err != nil {
			return camoview.PixelBuffer{}, &FetchError{Key: item.Key, Op: "fetch", Err: err}
		}

		if err := d.cache.Store(item.Key, data); err != nil {
			// Not critical: the image can still be displayed.
			rlog.Warnf("couldn't cache image %q: %s", item.Key, err)
			metrics.CacheErrors.Inc()
		}
	}

	pixels, err := d.decode(data)
	if err != nil {
		return camoview.PixelBuffer{}, &FetchError{Key: item.Key, Op: "decode", Err: err}
	}
	return pixels, nil
}

func (d *Dispatcher[H]) isInFlight(key camoview.ResourceKey) bool {
	d.inFlightMu.RLock()
	defer d.inFlightMu.RUnlock()

	_, ok := d.inFlight[key]
	return ok
}

// Shutdown prevents new rounds from starting and waits for the current round to finish.
func (d *Dispatcher[H]) Shutdown(ctx context.Context) error {
	d.stoppedMu.Lock()
	d.stopped = true
	d.stoppedMu.Unlock()

	done := make(chan struct{})
	go func() {
		d.roundsWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
