package uci

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/walter298/agentsmith/internal/board"
	"github.com/walter298/agentsmith/internal/search"
)

// Protocol is the universal-chess-interface front end. It parses commands
// from the input stream, maintains the committed game state, and drives
// the search thread. Best moves reach the output through the search
// thread's sink; direct protocol responses are written here.
type Protocol struct {
	thread       *SearchThread
	table        *search.Table
	out          *bufio.Writer
	log          zerolog.Logger
	defaultDepth uint8

	pos *board.Position
	rep *board.RepetitionMap
}

// New builds a protocol handler. defaultDepth applies to go commands that
// carry no depth.
func New(searcher *search.ParallelSearch, table *search.Table, out io.Writer, defaultDepth uint8, logger zerolog.Logger) *Protocol {
	p := &Protocol{
		thread:       NewSearchThread(searcher, out, logger),
		table:        table,
		out:          bufio.NewWriter(out),
		log:          logger,
		defaultDepth: defaultDepth,
	}
	p.resetGame()
	return p
}

func (p *Protocol) resetGame() {
	p.pos = board.NewPosition()
	p.rep = board.NewRepetitionMap()
	p.rep.Push(p.pos)
}

// Run reads commands until quit or EOF. It blocks the calling goroutine;
// the search thread does the actual work.
func (p *Protocol) Run(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "uci":
			p.writeLine("id name agentsmith")
			p.writeLine("id author walter298")
			p.writeLine("uciok")
		case "isready":
			p.writeLine("readyok")
		case "ucinewgame":
			p.table.Clear()
			p.resetGame()
		case "position":
			p.handlePosition(args)
		case "go":
			p.handleGo(args)
		case "stop":
			p.thread.Stop()
		case "d":
			p.writeLine(p.pos.String())
		case "quit":
			p.thread.Shutdown()
			return
		default:
			p.log.Debug().Str("command", cmd).Msg("ignoring-unknown-command")
		}
	}
	p.thread.Shutdown()
}

// handlePosition parses "position startpos|fen <fen> [moves m1 m2 ...]",
// rebuilding the committed game state and its repetition history, then
// hands the state to the search thread.
func (p *Protocol) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	var pos *board.Position
	moveStart := len(args)

	switch args[0] {
	case "startpos":
		pos = board.NewPosition()
		for i, a := range args {
			if a == "moves" {
				moveStart = i + 1
				break
			}
		}
	case "fen":
		fenEnd := len(args)
		for i, a := range args[1:] {
			if a == "moves" {
				fenEnd = i + 1
				moveStart = i + 2
				break
			}
		}
		parsed, err := board.ParseFEN(strings.Join(args[1:fenEnd], " "))
		if err != nil {
			p.log.Error().Err(err).Msg("invalid-fen")
			return
		}
		pos = parsed
	default:
		return
	}

	rep := board.NewRepetitionMap()
	rep.Push(pos)

	for _, moveStr := range args[min(moveStart, len(args)):] {
		move, err := board.ParseMove(moveStr, pos)
		if err != nil {
			p.log.Error().Err(err).Str("move", moveStr).Msg("invalid-move")
			return
		}
		pos = pos.Apply(move)
		rep.Push(pos)
	}

	p.pos = pos
	p.rep = rep
	p.thread.SetPosition(GameState{Pos: pos, Rep: rep, Depth: p.defaultDepth})
}

// handleGo starts a committed calculation. Only depth-limited search is
// supported; other go arguments fall back to the configured depth.
func (p *Protocol) handleGo(args []string) {
	depth := p.defaultDepth
	for i := 0; i < len(args); i++ {
		if args[i] == "depth" && i+1 < len(args) {
			d, err := strconv.ParseUint(args[i+1], 10, 8)
			if err != nil || d < 1 {
				p.log.Error().Str("depth", args[i+1]).Msg("invalid-depth")
				return
			}
			depth = uint8(d)
			i++
		}
	}
	p.thread.Go(depth)
}

func (p *Protocol) writeLine(s string) {
	p.out.WriteString(s)
	p.out.WriteByte('\n')
	if err := p.out.Flush(); err != nil {
		p.log.Error().Err(err).Msg("flushing protocol response")
	}
}
