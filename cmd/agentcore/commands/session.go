package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	agentcfg "github.com/agentcore-run/agentcore/internal/config"
	"github.com/agentcore-run/agentcore/internal/sessionlog"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and manage persisted sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every persisted session",
	RunE:  runSessionList,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a session's branch as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionShow,
}

var sessionForkCmd = &cobra.Command{
	Use:   "fork <session-id> <entry-id>",
	Short: "Fork a session from a given entry into a new session",
	Args:  cobra.ExactArgs(2),
	RunE:  runSessionFork,
}

func init() {
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionForkCmd)
}

func runSessionList(cmd *cobra.Command, args []string) error {
	paths := agentcfg.GetPaths()
	sessions, err := sessionlog.List(paths.StoragePath())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tMESSAGES\tFIRST MESSAGE")
	for _, s := range sessions {
		created := time.UnixMilli(s.CreatedAt).Format(time.RFC3339)
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.ID, created, s.MessageCount, truncate(s.FirstUserMsg, 60))
	}
	return w.Flush()
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	paths := agentcfg.GetPaths()
	log, err := openSession(paths.StoragePath(), args[0])
	if err != nil {
		return err
	}
	defer log.Close()

	data, err := json.MarshalIndent(log.Branch(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runSessionFork(cmd *cobra.Command, args []string) error {
	paths := agentcfg.GetPaths()
	log, err := openSession(paths.StoragePath(), args[0])
	if err != nil {
		return err
	}
	defer log.Close()

	fork, err := log.ForkFrom(args[1], paths.StoragePath())
	if err != nil {
		return err
	}
	defer fork.Close()

	fmt.Println(fork.SessionID())
	return nil
}

func openSession(storageDir, sessionID string) (*sessionlog.Log, error) {
	return sessionlog.Open(sessionFilePath(storageDir, sessionID))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
