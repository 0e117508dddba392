package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/brensch/kalah/game"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Width(16).Foreground(lipgloss.Color("8"))
	winStyle   = map[game.Player]lipgloss.Style{
		game.PlayerOne: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		game.PlayerTwo: lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
	}
	drawStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	boxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type model struct {
	gamesPlayed int
	rows        int
	moves       int64
	nodes       int64
	wins        [3]int // draws, player one, player two
	startTime   time.Time
	recentGames []string
	updates     chan GameUpdate
	workersDone <-chan struct{}

	done bool
}

func initialModel(updates chan GameUpdate, workersDone <-chan struct{}) model {
	return model{
		startTime:   time.Now(),
		updates:     updates,
		workersDone: workersDone,
	}
}

type TickMsg time.Time

type doneMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), waitForDone(m.workersDone), tickCmd())
}

func waitForUpdate(updates chan GameUpdate) tea.Cmd {
	return func() tea.Msg {
		return <-updates
	}
}

func waitForDone(done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-done
		return doneMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case TickMsg:
		m.moves = totalMoves.Load()
		m.nodes = totalNodes.Load()
		return m, tickCmd()
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case GameUpdate:
		m.gamesPlayed++
		m.rows += msg.Rows
		m.wins[msg.Result.Winner]++
		m.recentGames = append([]string{formatGame(msg)}, m.recentGames...)
		if len(m.recentGames) > 10 {
			m.recentGames = m.recentGames[:10]
		}
		return m, waitForUpdate(m.updates)
	}
	return m, nil
}

func formatGame(u GameUpdate) string {
	r := u.Result
	line := fmt.Sprintf("Worker %d: %d-%d in %d turns, %d nodes", u.WorkerID, r.StoreOne, r.StoreTwo, r.Turns, r.Nodes)
	if style, ok := winStyle[r.Winner]; ok {
		return style.Render(fmt.Sprintf("P%d ", r.Winner)) + line
	}
	return drawStyle.Render("=  ") + line
}

func (m model) View() string {
	duration := time.Since(m.startTime)
	var gamesPerSec, movesPerSec, nodesPerSec float64
	if duration.Seconds() >= 1 {
		gamesPerSec = float64(m.gamesPlayed) / duration.Seconds()
		movesPerSec = float64(m.moves) / duration.Seconds()
		nodesPerSec = float64(m.nodes) / duration.Seconds()
	}

	stat := func(label string, value any) string {
		return labelStyle.Render(label) + fmt.Sprint(value) + "\n"
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Kalah self-play") + "\n\n")
	sb.WriteString(stat("Games (session)", m.gamesPlayed))
	sb.WriteString(stat("Games (total)", totalGames.Load()))
	sb.WriteString(stat("Rows", m.rows))
	sb.WriteString(stat("Moves", m.moves))
	sb.WriteString(stat("Nodes", m.nodes))
	sb.WriteString(stat("Duration", duration.Round(time.Second)))
	sb.WriteString(stat("Games/Sec", fmt.Sprintf("%.2f", gamesPerSec)))
	sb.WriteString(stat("Moves/Sec", fmt.Sprintf("%.2f", movesPerSec)))
	sb.WriteString(stat("Nodes/Sec", fmt.Sprintf("%.0f", nodesPerSec)))
	sb.WriteString(stat("P1 / P2 / Draw", fmt.Sprintf("%d / %d / %d", m.wins[game.PlayerOne], m.wins[game.PlayerTwo], m.wins[0])))

	recent := "Recent Games:\n" + strings.Join(m.recentGames, "\n")
	return boxStyle.Render(sb.String()) + "\n" + recent + "\n\nPress q to quit.\n"
}
