package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"farm-store/internal/models"
	"farm-store/internal/notify"
	"farm-store/internal/service"
	"farm-store/internal/token"
)

func exportOrdersCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export-orders",
		Short: "Write every order as CSV",
		Long: `Write every order as CSV, newest first, in the same format as the admin
console download.

Examples:
  farmctl export-orders > orders.csv
  farmctl export-orders --out /backups/orders.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			docs, release, err := e.docs()
			if err != nil {
				return err
			}
			defer release()

			admin := service.NewAdminService(e.cfg.Auth.AdminUsername, e.cfg.Auth.AdminPassword,
				e.store, e.store, service.NewCatalogService(docs), service.NewSettingsService(docs, models.Settings{}))

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			return admin.ExportOrdersCSV(ctx, w)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout")
	return cmd
}

func showOrderCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show-order [id]",
		Short: "Print one order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseOrderID(args[0])
			if err != nil {
				return err
			}

			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx, cancel := commandContext(cmd)
			defer cancel()
			order, err := e.store.GetOrderByID(ctx, id)
			if err != nil {
				return err
			}
			return renderOrder(cmd.OutOrStdout(), order, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format (yaml, json)")
	return cmd
}

func trackingLinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tracking-link [id]",
		Short: "Issue a fresh customer tracking link for an order",
		Long: `Issue a fresh customer tracking link for an order, for customers who lost
their confirmation email. The link is valid for TRACKING_LINK_MAX_AGE_HOURS.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseOrderID(args[0])
			if err != nil {
				return err
			}

			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx, cancel := commandContext(cmd)
			defer cancel()
			order, err := e.store.GetOrderByID(ctx, id)
			if err != nil {
				return err
			}

			issuer, err := token.NewIssuer([]byte(e.cfg.Auth.TokenSecret), "tracking")
			if err != nil {
				return err
			}
			link, err := notify.TrackingLinks{Issuer: issuer, BaseURL: e.cfg.Server.BaseURL}.TrackingLink(order)
			if err != nil {
				return err
			}

			validFor := time.Duration(e.cfg.Business.TrackingLinkMaxAgeHours) * time.Hour
			fmt.Fprintln(cmd.OutOrStdout(), link)
			fmt.Fprintf(cmd.ErrOrStderr(), "valid for %s\n", validFor)
			return nil
		},
	}
	return cmd
}

func parseOrderID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid order id %q", raw)
	}
	return id, nil
}

// renderOrder prints the order using its JSON field names in either format.
func renderOrder(w io.Writer, order *models.Order, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(order)
	case "yaml":
		raw, err := json.Marshal(order)
		if err != nil {
			return err
		}
		var fields map[string]interface{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(fields); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
