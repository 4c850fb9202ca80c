package uci

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/walter298/agentsmith/internal/board"
	"github.com/walter298/agentsmith/internal/logx"
	"github.com/walter298/agentsmith/internal/search"
)

func newTestProtocol(t *testing.T) (*Protocol, *lineSink, io.WriteCloser, chan struct{}) {
	t.Helper()
	logger := logx.New("disabled")
	table := search.NewTable(1)
	searcher := search.NewParallelSearch(table, 2, logger)
	sink := &lineSink{}
	protocol := New(searcher, table, sink, 2, logger)

	in, out := io.Pipe()
	finished := make(chan struct{})
	go func() {
		protocol.Run(in)
		close(finished)
	}()
	return protocol, sink, out, finished
}

func send(t *testing.T, w io.Writer, line string) {
	t.Helper()
	_, err := io.WriteString(w, line+"\n")
	require.NoError(t, err)
}

func waitForLine(t *testing.T, sink *lineSink, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, line := range sink.lines() {
			if line == want {
				return true
			}
		}
		return false
	}, 10*time.Second, 10*time.Millisecond, "expected %q in output", want)
}

func TestProtocolHandshake(t *testing.T) {
	_, sink, in, finished := newTestProtocol(t)

	send(t, in, "uci")
	waitForLine(t, sink, "uciok")

	send(t, in, "isready")
	waitForLine(t, sink, "readyok")

	send(t, in, "quit")
	select {
	case <-finished:
	case <-time.After(10 * time.Second):
		t.Fatal("quit did not terminate the protocol loop")
	}
}

func TestProtocolPositionGoBestMove(t *testing.T) {
	_, sink, in, finished := newTestProtocol(t)

	send(t, in, "position startpos moves e2e4 e7e5")
	time.Sleep(100 * time.Millisecond)
	send(t, in, "go depth 2")

	require.Eventually(t, func() bool {
		return len(sink.bestMoves()) >= 1
	}, 30*time.Second, 20*time.Millisecond)

	move := sink.bestMoves()[0]
	require.Len(t, move, 4, "expected a plain from-to move, got %q", move)

	send(t, in, "quit")
	select {
	case <-finished:
	case <-time.After(10 * time.Second):
		t.Fatal("quit did not terminate the protocol loop")
	}
}

func TestProtocolGoOnTerminalPositionEmitsNothing(t *testing.T) {
	_, sink, in, finished := newTestProtocol(t)

	// Stalemate: the coordinator returns no move, so nothing is emitted.
	send(t, in, "position fen 7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	send(t, in, "go depth 1")

	time.Sleep(1 * time.Second)
	require.Empty(t, sink.bestMoves())

	send(t, in, "quit")
	select {
	case <-finished:
	case <-time.After(10 * time.Second):
		t.Fatal("quit did not terminate the protocol loop")
	}
}

func TestProtocolRejectsInvalidInput(t *testing.T) {
	protocol, sink, in, finished := newTestProtocol(t)

	send(t, in, "position fen not/a/fen w - - 0 1")
	send(t, in, "position startpos moves e2e5")
	send(t, in, "unknowncommand")
	send(t, in, "isready")
	waitForLine(t, sink, "readyok")

	// The committed state is untouched by the bad inputs.
	require.Equal(t, board.StartFEN, protocol.pos.FEN())

	send(t, in, "quit")
	select {
	case <-finished:
	case <-time.After(10 * time.Second):
		t.Fatal("quit did not terminate the protocol loop")
	}
}
