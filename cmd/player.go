package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"melody/client"
	"melody/logger"
	"melody/player"
)

var playerCmd = &cobra.Command{
	Use:   "player",
	Short: "Run the interactive player",
	Long: `Scans the local music directory, merges it with the remote catalog
and plays tracks from a simple interactive prompt.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		runPlayer(cfg.MusicDir, cfg.ServerURL, cfg.PrepareTimeout)
	},
}

func init() {
	rootCmd.AddCommand(playerCmd)
}

func runPlayer(musicDir, serverURL string, prepareTimeout time.Duration) {
	if !player.AudioAvailable {
		fmt.Println("note: this build has no audio output; commands still run")
	}

	library, err := player.NewLibrary(musicDir, 2*time.Second)
	if err != nil {
		logger.Fatal("failed to open music library",
			logger.String("dir", musicDir),
			logger.ErrorField(err))
	}
	defer library.Close()

	catalog := client.NewCatalogClient(serverURL)

	queue := player.NewQueueManager()
	resolver := player.NewStreamResolver(library, catalog)
	orch := player.NewOrchestrator(player.NewEngine(), resolver, queue, prepareTimeout)
	orch.SetNotifier(consoleNotifier{})
	session := player.NewSession(orch, queue)

	session.Load(buildQueue(library, catalog))
	defer session.Stop()

	events, cancel := orch.Subscribe()
	defer cancel()
	go func() {
		for snap := range events {
			if snap.State == player.StateError {
				fmt.Printf("playback error: %v\n", snap.Err)
			}
		}
	}()

	fmt.Printf("%d tracks queued. Commands: list, play <id>, pause, resume, next, prev, stop, quit\n",
		len(session.Queue()))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "list":
			for _, t := range session.Queue() {
				fmt.Printf("  %-40s %s — %s\n", t.ID, t.Artist, t.Title)
			}
		case "play":
			if len(fields) < 2 {
				fmt.Println("usage: play <id>")
				continue
			}
			if err := session.PlayTrack(fields[1]); err != nil {
				fmt.Printf("cannot play %s: %v\n", fields[1], err)
			}
		case "pause":
			session.Pause()
		case "resume":
			session.Resume()
		case "next":
			session.Next()
		case "prev":
			session.Previous()
		case "stop":
			session.Stop()
		case "quit", "exit":
			return
		default:
			fmt.Printf("unknown command %q\n", fields[0])
		}
	}
}

// buildQueue merges the local library with the remote catalog, local
// tracks first. The catalog being down just means a local-only queue.
func buildQueue(library *player.Library, catalog *client.CatalogClient) []player.Track {
	tracks := library.Tracks()

	ctx, cancelList := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelList()

	songs, _, err := catalog.ListSongs(ctx, 200, 0)
	if err != nil {
		logger.Warn("catalog unavailable, playing local library only", logger.ErrorField(err))
		return tracks
	}

	for _, song := range songs {
		tracks = append(tracks, player.TrackFromSong(song))
	}
	return tracks
}

// consoleNotifier is the terminal stand-in for a foreground
// now-playing surface.
type consoleNotifier struct{}

func (consoleNotifier) Show(t player.Track) {
	fmt.Printf("now playing: %s — %s\n", t.Artist, t.Title)
}

func (consoleNotifier) Dismiss() {}
