package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"seedpick/cmd/seedpick/tui"
	"seedpick/pkg/config"
	"seedpick/pkg/filetree"
	"seedpick/pkg/logging"
	"seedpick/pkg/output"
	"seedpick/pkg/session"
)

// runFiles is the main command handler.
func runFiles(_ *cobra.Command, args []string) error {
	torrentID := viper.GetInt("torrent")
	if len(args) > 0 {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid torrent id %q", args[0])
		}
		torrentID = id
	}
	if torrentID <= 0 {
		return fmt.Errorf("a torrent id is required (positional or --torrent)")
	}

	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	noInteractive := viper.GetBool("no_interactive")
	if viper.GetBool("json") {
		noInteractive = true
		viper.Set("output", "json")
	}

	level := cfg.Logging.Level
	if viper.GetBool("verbose") {
		level = "debug"
	}
	if err := logging.Init(logging.Config{
		Level:      level,
		Path:       cfg.Logging.Path,
		Components: cfg.Logging.Components,
		// Console output would corrupt the alternate screen.
		Console: noInteractive,
	}); err != nil {
		printError("failed to initialize logging: %v", err)
	}
	defer func() { _ = logging.Close() }()

	client := session.New(session.Options{
		URL:      cfg.URL,
		Username: cfg.Username,
		Password: cfg.Password,
		Timeout:  cfg.RPCTimeout,
	})

	if noInteractive {
		return runNonInteractive(client, torrentID, &cfg)
	}

	return tui.Run(tui.Options{
		Client:          client,
		TorrentID:       torrentID,
		RefreshInterval: cfg.RefreshInterval,
		RPCTimeout:      cfg.RPCTimeout,
	})
}

// runNonInteractive fetches one snapshot and prints it with the selected
// formatter.
func runNonInteractive(client *session.Client, torrentID int, cfg *config.Config) error {
	formatter, err := output.Get(viper.GetString("output"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RPCTimeout)
	defer cancel()

	files, err := client.FetchFiles(ctx, torrentID)
	if err != nil {
		return fmt.Errorf("fetching files: %w", err)
	}

	tree := filetree.New()
	tree.ApplySnapshot(files.Entries, true)
	client.MarkAuthoritative()

	var buf bytes.Buffer
	if err := formatter.Format(&buf, &output.Snapshot{
		TorrentName: files.Name,
		Tree:        tree,
	}); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	fmt.Print(buf.String())
	return nil
}
