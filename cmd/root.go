package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Shugur-Network/norc/event"
	"github.com/Shugur-Network/norc/filter"
	"github.com/Shugur-Network/norc/internal/config"
	"github.com/Shugur-Network/norc/internal/logger"
	"github.com/Shugur-Network/norc/internal/metrics"
	"github.com/Shugur-Network/norc/keys"
	"github.com/Shugur-Network/norc/nips"
	"github.com/Shugur-Network/norc/relay"
	"go.uber.org/zap"

	"github.com/spf13/cobra"
)

var (
	cfgFile string         // Path to custom config file (optional)
	cfg     *config.Config // Global reference to loaded configuration
)

// rootCmd defines the main CLI command for norc
var rootCmd = &cobra.Command{
	Use:   "norc",
	Short: "norc is a Nostr client for publishing and fetching events",
	Long:  `Command-line Nostr client: generate keys, publish notes (optionally with proof of work), fetch events, and manage profile metadata across multiple relays.`,
	Example: `
  norc keygen
  norc publish --content "hello nostr" --relay wss://relay.example.com
  norc publish --content "mined note" --pow 20
  norc fetch --author <pubkey-hex> --kind 1 --limit 10
  norc metadata --name alice --about "just a client"`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Commands that never touch a relay skip config loading
		switch cmd.Name() {
		case "version", "keygen", "relay-info":
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile, nil)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %v", err)
		}

		// Override config with command line flags if specified
		flags := cmd.Flags()
		if flags.Changed("relay") {
			relays, _ := flags.GetStringSlice("relay")
			cfg.Client.Relays = relays
		}
		if flags.Changed("seckey") {
			cfg.Identity.SecretKey, _ = flags.GetString("seckey")
		}
		if flags.Changed("metrics-port") {
			cfg.Metrics.Port, _ = flags.GetInt("metrics-port")
		}

		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		// Default behavior: show help when no subcommand is provided
		if err := cmd.Help(); err != nil {
			fmt.Fprintf(os.Stderr, "Error displaying help: %v\n", err)
		}
	},
}

// Execute runs the root command with the provided context
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// connect builds a client from the loaded config and dials its relays.
// A partial dial failure is reported but tolerated; no relays at all is
// fatal for every command that reaches here.
func connect(ctx context.Context) (*relay.Client, error) {
	if len(cfg.Client.Relays) == 0 {
		return nil, fmt.Errorf("no relays configured; set client.relays or pass --relay")
	}
	c, err := relay.NewFromConfig(ctx, &cfg.Client)
	if err != nil {
		if len(c.Relays()) == 0 {
			return nil, err
		}
		logger.Warn("some relays failed to connect", zap.Error(err))
	}
	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Port); err != nil {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}
	return c, nil
}

// identity resolves the signing key from config.
func identity() (*keys.Identity, error) {
	if cfg.Identity.SecretKey == "" {
		return nil, fmt.Errorf("no secret key configured; set identity.secret_key or pass --seckey")
	}
	return keys.FromString(cfg.Identity.SecretKey)
}

// init is automatically called before main(), sets up flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to custom config file (optional)")
	rootCmd.PersistentFlags().StringSlice("relay", nil, "Relay URL to connect to (repeatable, overrides config)")
	rootCmd.PersistentFlags().String("seckey", "", "Secret key as 64-char hex or nsec (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "info", "Logging level (debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().Int("metrics-port", 9187, "Port for Prometheus metrics server")

	// A simple version subcommand
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of norc",
		Long:  "Print the version number of norc along with build information",
		Run: func(cmd *cobra.Command, args []string) {
			if detailed, _ := cmd.Flags().GetBool("detailed"); detailed {
				fmt.Println(GetFullVersionInfo())
			} else {
				fmt.Println(GetVersionWithPrefix())
			}
		},
	}
	versionCmd.Flags().BoolP("detailed", "d", false, "Show detailed version information")
	rootCmd.AddCommand(versionCmd)

	// keygen: generate a fresh identity, print hex and bech32 forms
	keygenCmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new identity",
		Long:  "Generate a new secp256k1 identity and print the secret and public keys in hex and bech32 form",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := keys.Generate()
			if err != nil {
				return err
			}
			nsec, err := id.Nsec()
			if err != nil {
				return err
			}
			fmt.Printf("secret key (hex):  %s\n", id.SecretKeyHex)
			fmt.Printf("secret key (nsec): %s\n", nsec)
			fmt.Printf("public key (hex):  %s\n", id.PublicKeyHex)
			fmt.Printf("public key (npub): %s\n", id.Npub)
			return nil
		},
	}
	rootCmd.AddCommand(keygenCmd)

	// publish: sign and publish a text note, optionally mined
	publishCmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a text note",
		Long:  "Sign a kind-1 text note and publish it to every configured relay, optionally mining it to a proof-of-work difficulty first",
		RunE: func(cmd *cobra.Command, args []string) error {
			content, _ := cmd.Flags().GetString("content")
			if content == "" {
				return fmt.Errorf("--content is required")
			}
			difficulty, _ := cmd.Flags().GetInt("pow")

			id, err := identity()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			c, err := connect(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			var tags [][]string
			for _, hashtag := range event.ExtractHashtags(content, event.DefaultHashtagAlphabet) {
				tags = append(tags, event.HashtagTag(hashtag))
			}

			var ev event.Event
			if difficulty > 0 {
				ev, err = nips.PublishPOWTextNote(ctx, c, id, content, tags, difficulty)
			} else {
				ev, err = nips.PublishTextNote(ctx, c, id, content, tags)
			}
			if err != nil {
				return err
			}
			fmt.Printf("published event %s\n", ev.ID)
			return nil
		},
	}
	publishCmd.Flags().String("content", "", "Note content")
	publishCmd.Flags().Int("pow", 0, "Proof-of-work difficulty in leading zero bits (0 disables mining)")
	rootCmd.AddCommand(publishCmd)

	// fetch: one-shot collection across all relays
	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch events matching a filter",
		Long:  "Subscribe with a single filter, collect stored events from every relay until end of stored events, and print them as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := connect(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			f := filter.Filter{}
			if authors, _ := cmd.Flags().GetStringSlice("author"); len(authors) > 0 {
				f.Authors = authors
			}
			if kinds, _ := cmd.Flags().GetIntSlice("kind"); len(kinds) > 0 {
				f.Kinds = kinds
			}
			if ids, _ := cmd.Flags().GetStringSlice("id"); len(ids) > 0 {
				f.IDs = ids
			}
			if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
				f.Limit = filter.Int(limit)
			}

			events, err := c.GetEventsOf(ctx, []filter.Filter{f})
			if err != nil {
				// Partial results are still worth printing; the error
				// names the relays that never settled
				logger.Warn("collection incomplete", zap.Error(err))
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			for i := range events {
				if err := enc.Encode(&events[i]); err != nil {
					return err
				}
			}
			fmt.Fprintf(os.Stderr, "%d events\n", len(events))
			return nil
		},
	}
	fetchCmd.Flags().StringSlice("author", nil, "Author pubkey hex prefix (repeatable)")
	fetchCmd.Flags().IntSlice("kind", nil, "Event kind (repeatable)")
	fetchCmd.Flags().StringSlice("id", nil, "Event id hex prefix (repeatable)")
	fetchCmd.Flags().Int("limit", 0, "Per-relay result limit")
	rootCmd.AddCommand(fetchCmd)

	// metadata: publish a kind-0 profile
	metadataCmd := &cobra.Command{
		Use:   "metadata",
		Short: "Publish profile metadata",
		Long:  "Publish a kind-0 event replacing the identity's profile metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			about, _ := cmd.Flags().GetString("about")
			picture, _ := cmd.Flags().GetString("picture")

			id, err := identity()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			c, err := connect(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			ev, err := nips.SetMetadata(ctx, c, id, nips.Metadata{
				Name:    name,
				About:   about,
				Picture: picture,
			})
			if err != nil {
				return err
			}
			fmt.Printf("published metadata event %s\n", ev.ID)
			return nil
		},
	}
	metadataCmd.Flags().String("name", "", "Display name")
	metadataCmd.Flags().String("about", "", "About text")
	metadataCmd.Flags().String("picture", "", "Picture URL")
	rootCmd.AddCommand(metadataCmd)

	// relay-info: NIP-11 information document
	relayInfoCmd := &cobra.Command{
		Use:   "relay-info <relay-url>",
		Short: "Fetch a relay's information document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := nips.FetchRelayInformation(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}
	rootCmd.AddCommand(relayInfoCmd)
}
