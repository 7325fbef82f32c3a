package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/smallbiznis/chainpay/internal/export"
	paymentdomain "github.com/smallbiznis/chainpay/internal/payment/domain"
)

func newExportCmd() *cobra.Command {
	var (
		eventSlug string
		output    string
		states    []string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export payments and their claims as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			var stateFilter []paymentdomain.State
			for _, raw := range states {
				stateFilter = append(stateFilter, paymentdomain.State(strings.ToLower(strings.TrimSpace(raw))))
			}

			return runOnce(func(exporter *export.Exporter) error {
				path := output
				if path == "" {
					path = export.Filename(eventSlug, time.Now())
				}
				file, err := os.Create(path)
				if err != nil {
					return err
				}
				defer file.Close()

				rows, err := exporter.WriteCSV(context.Background(), file, export.Options{
					EventSlug: eventSlug,
					States:    stateFilter,
				})
				if err != nil {
					return err
				}
				fmt.Printf("wrote %d payments to %s\n", rows, path)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&eventSlug, "event-slug", "", "restrict the export to a single event")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (defaults to <slug>_payments_<date>.csv)")
	cmd.Flags().StringSliceVar(&states, "states", nil, "payment states to include (default confirmed,refunded)")
	return cmd
}
