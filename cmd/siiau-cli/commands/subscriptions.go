package commands

import (
	"fmt"
	"siiau-backend/internal/chrono"
	"siiau-backend/internal/config"
	"siiau-backend/services/subscriptions"

	"github.com/spf13/cobra"
)

var threshold int

func init() {
	subscribeCmd.Flags().IntVarP(&threshold, "threshold", "t", 1, "Open seats needed before alerting.")
	rootCmd.AddCommand(subscribeCmd)
	rootCmd.AddCommand(unsubscribeCmd)
	rootCmd.AddCommand(subscriptionsCmd)
}

func openStore(cfg config.Config) (subscriptions.Store, func(), error) {
	store, database, err := cfg.OpenStore(chrono.NewStandardTime())
	if err != nil {
		return subscriptions.Store{}, nil, err
	}
	return store, func() { database.Close() }, nil
}

var subscribeCmd = &cobra.Command{
	Use:   "subscribe <user> <nrc>... [-t <threshold>]",
	Short: "Subscribes a user to seat alerts for the given sections.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		service, _, err := loadCatalog(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		user := args[0]
		snapshot := service.Snapshot()
		var subs []subscriptions.Subscription
		for _, nrc := range args[1:] {
			section, ok := snapshot.Section(nrc)
			if !ok {
				fmt.Fprintf(cmd.ErrOrStderr(), "NRC %s no encontrado\n", nrc)
				continue
			}
			sub, err := store.Subscribe(cmd.Context(), user, section, threshold)
			if err != nil {
				return err
			}
			subs = append(subs, sub)
		}
		renderSubscriptions(cmd.OutOrStdout(), subs)
		return nil
	},
}

var unsubscribeCmd = &cobra.Command{
	Use:   "unsubscribe <user> <nrc | subject code>",
	Short: "Removes a user's subscriptions matching an NRC or subject code.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		removed, err := store.Unsubscribe(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d suscripciones eliminadas\n", removed)
		return nil
	},
}

var subscriptionsCmd = &cobra.Command{
	Use:   "subscriptions [user]",
	Short: "Lists the subscriptions of a user, or of everyone.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		var subs []subscriptions.Subscription
		if len(args) == 1 {
			subs, err = store.List(cmd.Context(), args[0])
		} else {
			subs, err = store.All(cmd.Context())
		}
		if err != nil {
			return err
		}
		renderSubscriptions(cmd.OutOrStdout(), subs)
		return nil
	},
}
