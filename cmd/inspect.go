package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cdnheaders/internal/report"
	"cdnheaders/pkg/cdnheaders"
	"cdnheaders/pkg/purge"
	"cdnheaders/pkg/telemetry"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the CDN header configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return report.Status(cmd.OutOrStdout(), cdnheaders.New(conf.CDN).Config())
		},
	}
}

func newTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <url>",
		Short: "Show which CDN headers a URL would get",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			u, err := url.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid url %q: %w", args[0], err)
			}
			path := u.Path
			if path == "" {
				path = "/"
			}
			method, _ := cmd.Flags().GetString("method")
			method = strings.ToUpper(method)
			route, _ := cmd.Flags().GetString("route")
			if route == "" {
				route = conf.RouteName(method, path)
			}

			ex := cdnheaders.New(conf.CDN).Explain(cdnheaders.Request{
				Method:    method,
				Path:      path,
				RouteName: route,
			})
			return report.Explain(cmd.OutOrStdout(), args[0], ex)
		},
	}
	cmd.Flags().StringP("method", "m", http.MethodGet, "HTTP method")
	cmd.Flags().StringP("route", "r", "", "Route name (looked up from the endpoints when empty)")
	return cmd
}

func newClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Purge the Cloudflare cache",
		Args:  cobra.NoArgs,
		RunE:  runClear,
	}
	cmd.Flags().String("zone", "", "Cloudflare zone id")
	cmd.Flags().String("token", "", "Cloudflare API token")
	cmd.Flags().StringSlice("url", nil, "URL to purge (repeatable)")
	cmd.Flags().Bool("all", false, "Purge the entire cache")
	return cmd
}

func runClear(cmd *cobra.Command, _ []string) error {
	conf, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	zone, _ := cmd.Flags().GetString("zone")
	if zone == "" {
		zone = conf.Cloudflare.ZoneID
	}
	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = conf.Cloudflare.APIToken
	}
	urls, _ := cmd.Flags().GetStringSlice("url")
	all, _ := cmd.Flags().GetBool("all")

	timeout, _ := time.ParseDuration(conf.Cloudflare.Timeout)
	client, err := purge.New(zone, token, purge.Options{
		BaseURL:    conf.Cloudflare.BaseURL,
		Timeout:    timeout,
		HTTPClient: telemetry.HTTPClient(0),
	})
	if errors.Is(err, purge.ErrMissingCredentials) {
		fmt.Fprintln(errOut, "Cloudflare Zone ID and API Token are required.")
		fmt.Fprintln(errOut, "Set them in the environment:")
		fmt.Fprintln(errOut, "CLOUDFLARE_ZONE_ID=your-zone-id")
		fmt.Fprintln(errOut, "CLOUDFLARE_API_TOKEN=your-api-token")
		return err
	}
	if err != nil {
		return err
	}

	if !all && len(urls) == 0 {
		fmt.Fprintln(errOut, "Please specify URLs to purge with --url or use --all to purge everything.")
		return purge.ErrNothingToPurge
	}

	fmt.Fprintln(out, "Clearing Cloudflare cache...")
	res, err := client.Purge(cmd.Context(), purge.Request{URLs: urls, Everything: all})
	if err != nil {
		var apiErr *purge.APIError
		if errors.As(err, &apiErr) {
			fmt.Fprintln(errOut, "Failed to clear cache.")
			for _, m := range apiErr.Messages {
				fmt.Fprintln(errOut, m)
			}
			return err
		}
		fmt.Fprintf(errOut, "Error communicating with Cloudflare API: %v\n", err)
		return err
	}

	fmt.Fprintln(out, "✓ Cache cleared successfully!")
	if res.Everything {
		fmt.Fprintln(out, "Purged: Entire cache")
		return nil
	}
	fmt.Fprintln(out, "Purged URLs:")
	for _, u := range res.URLs {
		fmt.Fprintln(out, "  - "+u)
	}
	return nil
}
