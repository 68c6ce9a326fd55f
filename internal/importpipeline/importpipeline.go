// Package importpipeline wires the four queues and four worker roles
// that turn a source-file path into a committed query-database update
// (spec.md §4.4). The stage graph is:
//
//	IndexRequest -> (parse worker) -> DoIdMap -> (id-map worker) -> OnIdMapped -> (merge worker) -> OnIndexed -> (apply worker) -> QueryDatabase
//
// Each queue is a bounded Go channel. Parse and merge workers run as
// pools; the id-map and apply workers are one goroutine each. A cached
// IndexFile is loaded inline by the parse worker rather than through a
// queue of its own. Interactive requests (the editor's current file)
// are given priority at every pop of the first three queues by running
// two channels per stage, interactive and background, and checking the
// interactive one first, non-blocking, before a worker parks on either.
//
// Grounded on the teacher's pipeline package for the overall shape of
// a staged, channel-connected worker pipeline, and specifically on
// pipeline.classifyFiles's golang.org/x/sync/errgroup.SetLimit pattern
// for bounding a worker pool's concurrency.
package importpipeline

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cindexd/cindex/internal/diskcache"
	"github.com/cindexd/cindex/internal/fileconsumer"
	"github.com/cindexd/cindex/internal/frontend"
	"github.com/cindexd/cindex/internal/ids"
	"github.com/cindexd/cindex/internal/indexer"
	"github.com/cindexd/cindex/internal/indexfile"
	"github.com/cindexd/cindex/internal/querydb"
)

// IndexRequest is the pipeline's entry point: spec.md §4.4 item 1,
// "(path, args, is_interactive, contents?)".
type IndexRequest struct {
	Path          string
	Args          []string
	IsInteractive bool
	Contents      []byte // nil means "read path from disk"
	WriteToDisk   bool
}

// doIdMapItem is what a parse worker hands to the id-map stage: the
// freshly parsed IndexFile plus the flags the apply worker eventually
// needs, per spec.md §4.4 item 3.
type doIdMapItem struct {
	curr          *indexfile.IndexFile
	argsHash      string
	isInteractive bool
	writeToDisk   bool
}

// onIdMappedItem is what an id-map worker hands to the merge stage:
// both the current and (if one existed) the previous IndexFile, each
// under its own freshly built IdMap, per spec.md §4.4 item 4.
type onIdMappedItem struct {
	curr    *indexfile.IndexFile
	currMap *querydb.IdMap
	prev    *indexfile.IndexFile
	prevMap *querydb.IdMap

	argsHash    string
	writeToDisk bool
}

// Pipeline owns the four queues and runs the four worker roles until
// its context is canceled.
type Pipeline struct {
	db       *querydb.Database
	cache    *diskcache.Cache
	consumer *fileconsumer.Consumer
	frontend frontend.Frontend

	indexWorkers int
	mergeWorkers int

	indexRequestInteractive chan IndexRequest
	indexRequestBackground  chan IndexRequest

	doIdMapInteractive chan doIdMapItem
	doIdMapBackground  chan doIdMapItem

	onIdMappedInteractive chan onIdMappedItem
	onIdMappedBackground  chan onIdMappedItem

	onIndexed chan *querydb.IndexUpdate

	appliedMu    sync.Mutex
	appliedFiles map[ids.QueryFileId]bool
}

// Config bounds the pipeline's queue depths and worker counts.
type Config struct {
	QueueDepth   int
	IndexWorkers int
	MergeWorkers int
}

// New builds a Pipeline wired to db, cache, and consumer. cache may be
// nil to disable the on-disk artifact cache entirely.
func New(db *querydb.Database, cache *diskcache.Cache, consumer *fileconsumer.Consumer, cfg Config) *Pipeline {
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 256
	}
	if cfg.IndexWorkers <= 0 {
		cfg.IndexWorkers = 1
	}
	if cfg.MergeWorkers <= 0 {
		cfg.MergeWorkers = 1
	}
	return &Pipeline{
		db:                      db,
		cache:                   cache,
		consumer:                consumer,
		frontend:                frontend.NewTreeSitterFrontend(),
		indexWorkers:            cfg.IndexWorkers,
		mergeWorkers:            cfg.MergeWorkers,
		indexRequestInteractive: make(chan IndexRequest, cfg.QueueDepth),
		indexRequestBackground:  make(chan IndexRequest, cfg.QueueDepth),
		doIdMapInteractive:      make(chan doIdMapItem, cfg.QueueDepth),
		doIdMapBackground:       make(chan doIdMapItem, cfg.QueueDepth),
		onIdMappedInteractive:   make(chan onIdMappedItem, cfg.QueueDepth),
		onIdMappedBackground:    make(chan onIdMappedItem, cfg.QueueDepth),
		onIndexed:               make(chan *querydb.IndexUpdate, cfg.QueueDepth),
		appliedFiles:            make(map[ids.QueryFileId]bool),
	}
}

// Submit enqueues an IndexRequest, blocking if the relevant queue is
// full (spec.md §4.4's "each queue is bounded; workers block when
// full").
func (p *Pipeline) Submit(req IndexRequest) {
	if req.IsInteractive {
		p.indexRequestInteractive <- req
	} else {
		p.indexRequestBackground <- req
	}
}

// Run starts every worker and blocks until ctx is canceled. The parse
// and merge pools are each bounded by an errgroup.Group.SetLimit so a
// burst of ready work never spawns more goroutines than the configured
// pool size; the id-map and apply workers are single goroutines.
func (p *Pipeline) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	parseGroup, parseCtx := errgroup.WithContext(ctx)
	parseGroup.SetLimit(p.indexWorkers)
	g.Go(func() error {
		for {
			req, ok := p.popIndexRequest(parseCtx)
			if !ok {
				return parseGroup.Wait()
			}
			parseGroup.Go(func() error {
				p.runParseWorker(parseCtx, req)
				return nil
			})
		}
	})

	g.Go(func() error { p.runIdMapWorker(ctx); return nil })

	mergeGroup, mergeCtx := errgroup.WithContext(ctx)
	mergeGroup.SetLimit(p.mergeWorkers)
	g.Go(func() error {
		for {
			item, ok := p.popOnIdMapped(mergeCtx)
			if !ok {
				return mergeGroup.Wait()
			}
			mergeGroup.Go(func() error {
				p.runMergeWorker(mergeCtx, item)
				return nil
			})
		}
	})

	g.Go(func() error { p.runApplyWorker(ctx); return nil })

	return g.Wait()
}

// popIndexRequest drains the interactive queue first, falling back to
// the background queue, and otherwise blocks on whichever becomes
// ready (spec.md §4.4's interactive-priority pop).
func (p *Pipeline) popIndexRequest(ctx context.Context) (IndexRequest, bool) {
	select {
	case req := <-p.indexRequestInteractive:
		return req, true
	default:
	}
	select {
	case req := <-p.indexRequestInteractive:
		return req, true
	case req := <-p.indexRequestBackground:
		return req, true
	case <-ctx.Done():
		return IndexRequest{}, false
	}
}

func (p *Pipeline) popDoIdMap(ctx context.Context) (doIdMapItem, bool) {
	select {
	case item := <-p.doIdMapInteractive:
		return item, true
	default:
	}
	select {
	case item := <-p.doIdMapInteractive:
		return item, true
	case item := <-p.doIdMapBackground:
		return item, true
	case <-ctx.Done():
		return doIdMapItem{}, false
	}
}

func (p *Pipeline) popOnIdMapped(ctx context.Context) (onIdMappedItem, bool) {
	select {
	case item := <-p.onIdMappedInteractive:
		return item, true
	default:
	}
	select {
	case item := <-p.onIdMappedInteractive:
		return item, true
	case item := <-p.onIdMappedBackground:
		return item, true
	case <-ctx.Done():
		return onIdMappedItem{}, false
	}
}

// runParseWorker handles one IndexRequest: resolve contents, check the
// on-disk cache, parse on a miss, index, and enqueue a DoIdMap item,
// plus a follow-up IndexRequest for every header this translation unit
// newly took ownership of (spec.md §4.2/§4.4).
func (p *Pipeline) runParseWorker(ctx context.Context, req IndexRequest) {
	slog.Info("importpipeline.parse.start", "path", req.Path, "interactive", req.IsInteractive)

	source := req.Contents
	if source == nil {
		data, err := os.ReadFile(req.Path)
		if err != nil {
			slog.Warn("importpipeline.parse.read_failed", "path", req.Path, "err", err)
			return
		}
		source = data
	}

	argsHash := diskcache.ArgsHash(req.Args)

	if p.cache != nil {
		if cached, ok, err := p.cache.Lookup(req.Path, argsHash); err != nil {
			slog.Warn("importpipeline.cache.lookup_error", "path", req.Path, "err", err)
		} else if ok {
			slog.Info("importpipeline.cache.hit", "path", req.Path)
			p.enqueueDoIdMap(ctx, doIdMapItem{curr: cached, argsHash: argsHash, isInteractive: req.IsInteractive, writeToDisk: req.WriteToDisk})
			return
		}
	}

	tu, err := p.frontend.Parse(req.Path, req.Args, source)
	if err != nil {
		slog.Warn("importpipeline.parse.failed", "path", req.Path, "err", err)
		return
	}
	defer tu.Close()

	curr, newlyOwnedHeaders, err := indexer.Index(tu, p.consumer)
	if err != nil {
		slog.Warn("importpipeline.index.failed", "path", req.Path, "err", err)
		return
	}
	curr.Args = req.Args

	for _, header := range newlyOwnedHeaders {
		p.Submit(IndexRequest{Path: header, Args: req.Args, IsInteractive: false, WriteToDisk: req.WriteToDisk})
	}

	p.enqueueDoIdMap(ctx, doIdMapItem{curr: curr, argsHash: argsHash, isInteractive: req.IsInteractive, writeToDisk: req.WriteToDisk})
}

func (p *Pipeline) enqueueDoIdMap(ctx context.Context, item doIdMapItem) {
	ch := p.doIdMapBackground
	if item.isInteractive {
		ch = p.doIdMapInteractive
	}
	select {
	case ch <- item:
	case <-ctx.Done():
	}
}

// runIdMapWorker is the single consumer of both DoIdMap channels. Via
// querydb.BuildIdMap, a USR already known to the database is resolved
// under the USR tables' own lock alone; a USR seen for the first time
// allocates its slot under the database's exclusive lock.
func (p *Pipeline) runIdMapWorker(ctx context.Context) {
	for {
		item, ok := p.popDoIdMap(ctx)
		if !ok {
			return
		}
		currMap := querydb.BuildIdMap(p.db, item.curr)
		fileID := currMap.Files[item.curr.SelfFileID()]

		// The on-disk cache survives a cindexd restart, but the
		// in-memory query database does not: a cache hit that
		// reparses a file this fresh process has never applied must
		// still be merged as if it were a first import (an empty
		// prev), or Merge would diff curr against itself and every
		// relation (uses/callers/parents) would come out unchanged
		// and never get added to the database at all.
		var prev *indexfile.IndexFile
		var prevMap *querydb.IdMap
		if p.cache != nil && p.hasApplied(fileID) {
			if cached, ok, err := p.cache.Lookup(item.curr.Path, item.argsHash); err != nil {
				slog.Warn("importpipeline.idmap.prev_lookup_error", "path", item.curr.Path, "err", err)
			} else if ok {
				prev = cached
				prevMap = querydb.BuildIdMap(p.db, prev)
			}
		}

		out := onIdMappedItem{curr: item.curr, currMap: currMap, prev: prev, prevMap: prevMap, argsHash: item.argsHash, writeToDisk: item.writeToDisk}
		ch := p.onIdMappedBackground
		if item.isInteractive {
			ch = p.onIdMappedInteractive
		}
		select {
		case ch <- out:
		case <-ctx.Done():
			return
		}
	}
}

// runMergeWorker computes the structured delta and, if requested,
// writes the current IndexFile to the on-disk cache, per spec.md §4.4's
// "if write_to_disk, enqueue a cache-write task", done inline here
// since the merge worker already has everything a cache write needs
// and a sixth queue would buy nothing.
func (p *Pipeline) runMergeWorker(ctx context.Context, item onIdMappedItem) {
	update := querydb.Merge(item.prev, item.prevMap, item.curr, item.currMap)

	if item.writeToDisk && p.cache != nil {
		if err := p.cache.Store(item.curr.Path, item.argsHash, item.curr); err != nil {
			slog.Warn("importpipeline.cache.store_failed", "path", item.curr.Path, "err", err)
		}
	}

	select {
	case p.onIndexed <- update:
	case <-ctx.Done():
	}
}

// runApplyWorker is the single writer: it is the only goroutine that
// ever calls (*querydb.Database).Apply, so the database's exclusive
// lock is never contended from more than one place at a time and
// applies naturally serialize in queue order (spec.md §5).
func (p *Pipeline) runApplyWorker(ctx context.Context) {
	for {
		select {
		case update := <-p.onIndexed:
			if err := p.db.Apply(update); err != nil {
				slog.Error("importpipeline.apply.failed", "file", update.FileID, "err", err)
				os.Exit(1)
			}
			p.markApplied(update.FileID)
		case <-ctx.Done():
			return
		}
	}
}

// hasApplied reports whether id has ever been committed to the live
// database by this process, distinguishing "the on-disk cache has a
// blob for this path" from "the in-memory database already has this
// file's baseline," which a fresh cindexd process never does no matter
// how warm the cache is.
func (p *Pipeline) hasApplied(id ids.QueryFileId) bool {
	p.appliedMu.Lock()
	defer p.appliedMu.Unlock()
	return p.appliedFiles[id]
}

func (p *Pipeline) markApplied(id ids.QueryFileId) {
	p.appliedMu.Lock()
	defer p.appliedMu.Unlock()
	p.appliedFiles[id] = true
}
