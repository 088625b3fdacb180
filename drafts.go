package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/deemkeen/nostrodon/domain"
	"github.com/deemkeen/nostrodon/logging"
	"github.com/deemkeen/nostrodon/relay"
	"github.com/deemkeen/nostrodon/util"
	"github.com/deemkeen/nostrodon/web"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func init() {
	draftsCmd.AddCommand(draftsShowCmd, draftsDropCmd)
	rootCmd.AddCommand(draftsCmd, publishCmd)
}

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "List replies waiting in the outbox for a signature",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		conf, err := loadConf()
		if err != nil {
			return err
		}
		store := openStore(conf)
		defer store.Close()

		items, err := store.ReadPendingDrafts(1000, 0)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "outbox is empty")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DRAFT\tEVENT\tQUEUED\tCONTENT")
		for _, item := range items {
			var ev domain.Event
			if err := json.Unmarshal([]byte(item.EventJSON), &ev); err != nil {
				logging.Warn().Err(err).Str("draft", item.Id.String()).Msg("unreadable draft")
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				item.Id, domain.ShortKey(item.EventId), item.CreatedAt.Format(util.DateTimeFormat()),
				util.Truncate(util.NormalizeInput(ev.Content), 40))
		}
		return w.Flush()
	},
}

var draftsShowCmd = &cobra.Command{
	Use:   "show <draft-id>",
	Short: "Print a draft's unsigned event, ready for a signer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid draft id: %w", err)
		}
		conf, err := loadConf()
		if err != nil {
			return err
		}
		store := openStore(conf)
		defer store.Close()

		item, err := store.ReadDraft(id)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), item.EventJSON)
		return nil
	},
}

var draftsDropCmd = &cobra.Command{
	Use:   "drop <draft-id>",
	Short: "Discard a queued draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid draft id: %w", err)
		}
		conf, err := loadConf()
		if err != nil {
			return err
		}
		store := openStore(conf)
		defer store.Close()

		if _, err := store.ReadDraft(id); err != nil {
			return err
		}
		if err := store.DeleteDraft(id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "dropped %s\n", id)
		return nil
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish <draft-id> [signed-event.json]",
	Short: "Publish the signed version of a draft to the configured relays",
	Long: `publish reads the signed event from the given file, or from stdin when no
file is named. Its id must match the queued draft.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid draft id: %w", err)
		}

		var in io.Reader = cmd.InOrStdin()
		if len(args) == 2 {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		body, err := io.ReadAll(in)
		if err != nil {
			return err
		}

		conf, err := loadConf()
		if err != nil {
			return err
		}
		store := openStore(conf)
		defer store.Close()

		pub := relay.Broadcaster{Relays: conf.Conf.Relays}
		ev, err := web.SubmitSigned(cmd.Context(), store, pub, id, body)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "published %s\n", ev.ID)
		return nil
	},
}
