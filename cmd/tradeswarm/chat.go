package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/tradeswarm/tradeswarm/internal/agent"
	"github.com/tradeswarm/tradeswarm/internal/graph"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	nodeStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	sectionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	verdictStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	hintStyle    = lipgloss.NewStyle().Faint(true)
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start interactive chat mode",
	Long:  "Interactive loop: type a stock question, watch each agent report in as it finishes.",
	RunE: func(cmd *cobra.Command, args []string) error {
		swarm, err := buildSwarm()
		if err != nil {
			return err
		}

		fmt.Println(titleStyle.Render("💬 TradeSwarm Chat"))
		fmt.Println(hintStyle.Render("Ask about any NSE stock. Type \"exit\" to quit."))
		fmt.Println()

		for {
			var query string
			err := survey.AskOne(&survey.Input{Message: "You:"}, &query)
			if err != nil {
				if errors.Is(err, terminal.InterruptErr) {
					fmt.Println(hintStyle.Render("bye"))
					return nil
				}
				return err
			}

			query = strings.TrimSpace(query)
			switch strings.ToLower(query) {
			case "":
				continue
			case "exit", "quit":
				fmt.Println(hintStyle.Render("bye"))
				return nil
			}

			runTurn(cmd, swarm, query)
		}
	},
}

// runTurn streams one swarm run, printing each agent's contribution as
// its node completes. A node error aborts the turn but not the chat.
func runTurn(cmd *cobra.Command, swarm *agent.Swarm, query string) {
	for ev := range swarm.Stream(cmd.Context(), query) {
		if ev.Err != nil {
			fmt.Println(errorStyle.Render("✗ " + ev.Err.Error()))
			return
		}
		printNodeResult(ev)
	}
}

// printNodeResult renders the piece of state the finished node produced.
func printNodeResult(ev graph.Event) {
	switch ev.Node {
	case agent.AgentSupervisor:
		ticker := ev.State.Ticker
		if ticker == "" || ticker == agent.TickerUnknown {
			ticker = "not found"
		}
		fmt.Println(nodeStyle.Render("Supervisor") + sectionStyle.Render("  ticker: "+ticker))
	case agent.AgentTechnical:
		printSection("Technical Analyst", ev.State.TechnicalAnalysis)
	case agent.AgentFundamental:
		printSection("Fundamental Analyst", ev.State.FundamentalAnalysis)
	case agent.AgentSentiment:
		printSection("Sentiment Analyst", ev.State.SentimentAnalysis)
	case agent.AgentRisk:
		printSection("Risk Analyst", ev.State.RiskAnalysis)
	case agent.AgentJudge:
		fmt.Println()
		fmt.Println(nodeStyle.Render("Judge"))
		printVerdict(ev.State.FinalRecommendation)
		fmt.Println()
	}
}

func printSection(label, text string) {
	fmt.Println()
	fmt.Println(nodeStyle.Render(label))
	fmt.Println(sectionStyle.Render(strings.TrimSpace(text)))
}

// printVerdict echoes the judge's synthesis, highlighting the final
// BUY / HOLD / SELL line.
func printVerdict(text string) {
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if strings.HasPrefix(line, "FINAL RECOMMENDATION:") {
			fmt.Println(verdictStyle.Render(line))
		} else {
			fmt.Println(line)
		}
	}
}

// printReport prints a completed run the way the judge saw it, section
// by section, with the verdict last.
func printReport(state graph.TradingState) {
	fmt.Println(titleStyle.Render("--- STOCK: " + state.Ticker + " ---"))

	sections := []struct {
		label string
		text  string
	}{
		{"TECHNICAL ANALYSIS", state.TechnicalAnalysis},
		{"FUNDAMENTAL ANALYSIS", state.FundamentalAnalysis},
		{"SENTIMENT ANALYSIS", state.SentimentAnalysis},
		{"RISK ANALYSIS", state.RiskAnalysis},
	}
	for _, s := range sections {
		fmt.Println()
		fmt.Println(nodeStyle.Render("[" + s.label + "]"))
		fmt.Println(strings.TrimSpace(s.text))
	}

	fmt.Println()
	printVerdict(state.FinalRecommendation)
}
