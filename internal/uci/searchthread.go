// Package uci hosts the engine's control surface: the long-lived search
// thread that multiplexes pondering and committed calculation, and the
// text protocol loop that drives it.
package uci

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/walter298/agentsmith/internal/board"
	"github.com/walter298/agentsmith/internal/search"
)

// GameState is the position under consideration together with its
// committed-move history and the depth for the next calculation.
type GameState struct {
	Pos   *board.Position
	Rep   *board.RepetitionMap
	Depth uint8
}

func (g GameState) clone() GameState {
	return GameState{Pos: g.Pos, Rep: g.Rep.Clone(), Depth: g.Depth}
}

// SearchThread is a single long-lived worker goroutine. Between commands
// it ponders the stored position at maximum depth; a Go call interrupts
// the pondering and runs a committed search whose best move is written to
// the output sink. After answering, it applies its own move and ponders
// the predicted reply position.
type SearchThread struct {
	mu   sync.Mutex
	cond *sync.Cond

	state                GameState
	shouldPonder         bool
	calculationRequested bool
	shutdownRequested    bool

	searcher *search.ParallelSearch
	out      *bufio.Writer
	log      zerolog.Logger
	done     chan struct{}
}

// NewSearchThread starts the worker goroutine. Best moves are written to
// out as "bestmove <uci>" lines, flushed after each emission.
func NewSearchThread(searcher *search.ParallelSearch, out io.Writer, logger zerolog.Logger) *SearchThread {
	t := &SearchThread{
		state: GameState{
			Pos:   board.NewPosition(),
			Rep:   board.NewRepetitionMap(),
			Depth: 1,
		},
		searcher: searcher,
		out:      bufio.NewWriter(out),
		log:      logger,
		done:     make(chan struct{}),
	}
	t.state.Rep.Push(t.state.Pos)
	t.cond = sync.NewCond(&t.mu)
	go t.run()
	return t
}

// SetPosition installs a new game state and starts pondering it. Any
// in-flight search is cancelled.
func (t *SearchThread) SetPosition(state GameState) {
	t.mu.Lock()
	depth := t.state.Depth
	t.state = state
	if state.Depth == 0 {
		t.state.Depth = depth
	}
	t.shouldPonder = true
	t.mu.Unlock()

	t.searcher.Cancel()
	t.cond.Signal()
}

// Go requests a committed calculation at the given depth.
func (t *SearchThread) Go(depth uint8) {
	t.mu.Lock()
	t.calculationRequested = true
	t.shouldPonder = false
	t.state.Depth = depth
	t.mu.Unlock()

	t.searcher.Cancel()
	t.cond.Signal()
}

// Stop cancels whatever the thread is doing and lets it idle.
func (t *SearchThread) Stop() {
	t.searcher.Cancel()
	t.mu.Lock()
	t.shouldPonder = false
	t.mu.Unlock()
	t.cond.Signal()
}

// Shutdown cancels any in-flight search and joins the worker goroutine.
func (t *SearchThread) Shutdown() {
	t.mu.Lock()
	t.shutdownRequested = true
	t.mu.Unlock()

	t.searcher.Cancel()
	t.cond.Broadcast()
	<-t.done
}

// think ponders until a calculation is requested or the thread shuts
// down. Pondering searches the stored position at the maximum depth; it
// only ends early when cancelled or when the position is terminal.
func (t *SearchThread) think() {
	for {
		t.mu.Lock()
		if t.shutdownRequested || t.calculationRequested {
			t.mu.Unlock()
			return
		}

		for !t.shouldPonder && !t.calculationRequested && !t.shutdownRequested {
			t.cond.Wait()
		}
		if t.shutdownRequested || !t.shouldPonder || t.calculationRequested {
			t.mu.Unlock()
			return
		}

		state := t.state.clone()
		t.mu.Unlock()

		t.log.Debug().Msg("pondering")
		_, ok := t.searcher.FindBestMove(state.Pos, search.MaxPonderDepth, state.Rep)
		if !ok {
			t.mu.Lock()
			// a calculation request that arrived mid-search must still be
			// answered from a valid position; only clear the ponder flag
			// when idle
			if !t.calculationRequested {
				t.shouldPonder = false
			}
			t.mu.Unlock()
		}
	}
}

func (t *SearchThread) run() {
	defer close(t.done)

	for {
		t.think()

		t.mu.Lock()
		if t.shutdownRequested {
			t.mu.Unlock()
			return
		}
		state := t.state.clone()
		t.calculationRequested = false
		t.mu.Unlock()

		move, ok := t.searcher.FindBestMove(state.Pos, state.Depth, state.Rep)

		t.mu.Lock()
		if ok {
			if !t.shutdownRequested {
				t.emit(move)

				// Think on the opponent's time: assume they answer our
				// move and start pondering that position right away,
				// unless a fresh calculation request takes precedence.
				if !t.calculationRequested {
					t.state.Pos = t.state.Pos.Apply(move)
					t.shouldPonder = true
				}
			}
		} else {
			t.shouldPonder = false
		}
		shutdown := t.shutdownRequested
		t.mu.Unlock()

		if shutdown {
			return
		}
	}
}

func (t *SearchThread) emit(move board.Move) {
	fmt.Fprintf(t.out, "bestmove %s\n", move)
	if err := t.out.Flush(); err != nil {
		t.log.Error().Err(err).Msg("flushing best move")
	}
}
