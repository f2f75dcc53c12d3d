// Command pleased runs one mesh node as a standalone daemon.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"please/internal/catalog"
	"please/internal/config"
	"please/internal/logging"
	"please/internal/node"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		name       string
		addr       string
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "pleased",
		Short: "run a please mesh node",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Configure(logLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			cat := catalog.New()
			registerBuiltins(cat)

			book := &node.RegistryAddressBook{Static: staticAddresses(cfg.Referrals)}
			n, err := node.New(name, addr, cfg, cat, book)
			if err != nil {
				return fmt.Errorf("build node: %w", err)
			}
			book.Registry = n.Registry

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return n.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "this node's identity (required)")
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7000", "address to listen on and advertise")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a please.yaml config file")
	cmd.Flags().StringVar(&logLevel, "log-level", logging.LevelInfo, "debug, info, warn, or error")
	cmd.MarkFlagRequired("name")

	return cmd
}

// staticAddresses is a placeholder resolving each referral name to itself —
// operators are expected to name nodes by their dial address (see
// internal/node.RegistryAddressBook).
func staticAddresses(referrals []string) map[string]string {
	out := make(map[string]string, len(referrals))
	for _, r := range referrals {
		out[r] = r
	}
	return out
}

// registerBuiltins installs the sample catalog entry every daemon ships
// with, Strings.upcase (analogous to spec.md's S1 scenario function); no
// other function is registered here. Real deployments register their own module.function set at
// embed time; this gives an empty daemon something to do out of the box.
func registerBuiltins(cat *catalog.Catalog) {
	cat.Register("Strings", "upcase", 1, func(args []any) (any, error) {
		s, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("upcase: argument must be a string")
		}
		out := make([]byte, len(s))
		for i := 0; i < len(s); i++ {
			c := s[i]
			if c >= 'a' && c <= 'z' {
				c -= 'a' - 'A'
			}
			out[i] = c
		}
		return string(out), nil
	})
}
