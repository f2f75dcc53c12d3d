// Command please is the operator CLI: inspect a running mesh node, or issue
// one ad-hoc call against it.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"please/internal/catalog"
	"please/internal/config"
	"please/internal/node"
	"please/pkg/please"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func main() {
	if termenv.EnvNoColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render(err.Error()))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{Use: "please", Short: "inspect or call a please mesh node"}
	root.AddCommand(newStatusCmd(), newCallCmd())
	return root
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <addr>",
		Short: "show the mesh registry as learned through a node (busyness is not shown)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]
			n, cleanup, err := ephemeralNode(target)
			if err != nil {
				return err
			}
			defer cleanup()

			time.Sleep(100 * time.Millisecond) // let one ping/sync cycle resolve the target
			peers := n.Registry.Get()

			fmt.Println(headerStyle.Render(fmt.Sprintf("mesh view via %s", target)))
			for name, meta := range peers {
				fmt.Printf("  %s  %v\n", okStyle.Render(name), meta)
			}
			return nil
		},
	}
}

func newCallCmd() *cobra.Command {
	var timeoutMS int

	cmd := &cobra.Command{
		Use:   "call <addr> <module> <function> [args...]",
		Short: "issue one makeItSo call against a running daemon",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, module, function := args[0], args[1], args[2]
			callArgs := parseArgs(args[3:])

			n, cleanup, err := ephemeralNode(target)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutMS)*time.Millisecond+time.Second)
			defer cancel()

			result, err := please.MakeItSo(ctx, n, module, function, callArgs, please.Options{Timeout: time.Duration(timeoutMS) * time.Millisecond})
			if err != nil {
				return fmt.Errorf("call failed: %w", err)
			}

			fmt.Printf("%s  executingNode=%s  result=%v\n", okStyle.Render("OK"), result.ExecutingNode, result.Value)
			return nil
		},
	}
	cmd.Flags().IntVar(&timeoutMS, "timeout-ms", 5000, "receive timeout in milliseconds")
	return cmd
}

// ephemeralNode starts a throwaway node whose only referral is target, just
// long enough to make one RPC-backed call or status query.
func ephemeralNode(target string) (*node.Node, func(), error) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, nil, fmt.Errorf("allocate local port: %w", err)
	}
	addr := lis.Addr().String()
	lis.Close()

	cfg := config.Default()
	cfg.Referrals = []string{target}
	cfg.PingLatencyMS = 20
	cfg.SyncLatencyMS = 20

	book := &node.RegistryAddressBook{Static: map[string]string{target: target}}
	n, err := node.New("please-cli@"+addr, addr, cfg, catalog.New(), book)
	if err != nil {
		return nil, nil, fmt.Errorf("build cli node: %w", err)
	}
	book.Registry = n.Registry

	ctx, cancel := context.WithCancel(context.Background())
	go n.Run(ctx)

	return n, func() { cancel(); n.Close() }, nil
}

// parseArgs coerces each CLI argument to an int64 when it looks numeric,
// otherwise passes it through as a string — the resolved function decides
// what it actually accepts.
func parseArgs(raw []string) []any {
	out := make([]any, len(raw))
	for i, v := range raw {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			out[i] = n
			continue
		}
		out[i] = v
	}
	return out
}
