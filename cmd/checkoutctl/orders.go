package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// adminClient calls the back-office API.
type adminClient struct {
	server string
	token  string
	http   *http.Client
}

func newAdminClient(cmd *cobra.Command) (*adminClient, error) {
	server, _ := cmd.Flags().GetString("server")
	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = os.Getenv("CHECKOUT_ADMIN_TOKEN")
	}
	if token == "" {
		return nil, fmt.Errorf("an admin token is required (--token or CHECKOUT_ADMIN_TOKEN)")
	}

	return &adminClient{
		server: server,
		token:  token,
		http:   &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (c *adminClient) do(ctx context.Context, method, path string, body any, out io.Writer) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.server+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, bytes.TrimSpace(raw))
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, raw, "", "  ") == nil {
		raw = pretty.Bytes()
	}
	_, err = fmt.Fprintln(out, string(raw))

	return err
}

func ordersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Back-office order actions",
	}

	cmd.PersistentFlags().String("server", "http://localhost:8080", "Checkout service base URL")
	cmd.PersistentFlags().String("token", "", "Admin bearer token")

	cmd.AddCommand(ordersListCmd())
	cmd.AddCommand(orderActionCmd("mark-paid", "Record a payment made outside the processor"))
	cmd.AddCommand(orderActionCmd("unpay", "Move a paid order back to awaiting payment"))
	cmd.AddCommand(orderActionCmd("verify", "Mark a paid order's payment as checked"))
	cmd.AddCommand(fulfillmentCmd())
	cmd.AddCommand(failedSideEffectsCmd())

	return cmd
}

func ordersListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAdminClient(cmd)
			if err != nil {
				return err
			}

			q := url.Values{}
			statuses, _ := cmd.Flags().GetStringSlice("status")
			for _, s := range statuses {
				q.Add("status", s)
			}
			fulfillment, _ := cmd.Flags().GetStringSlice("fulfillment")
			for _, s := range fulfillment {
				q.Add("fulfillment", s)
			}
			if email, _ := cmd.Flags().GetString("email"); email != "" {
				q.Set("email", email)
			}
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")
			q.Set("limit", strconv.Itoa(limit))
			q.Set("offset", strconv.Itoa(offset))

			return client.do(cmd.Context(), http.MethodGet, "/api/admin/orders?"+q.Encode(), nil, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringSlice("status", nil, "Payment status filter")
	cmd.Flags().StringSlice("fulfillment", nil, "Fulfillment status filter")
	cmd.Flags().String("email", "", "Customer email")
	cmd.Flags().IntP("limit", "n", 50, "Page size")
	cmd.Flags().Int("offset", 0, "Page offset")

	return cmd
}

func orderActionCmd(action, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   action + " [order-number]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAdminClient(cmd)
			if err != nil {
				return err
			}

			var body any
			if method, _ := cmd.Flags().GetString("method"); method != "" {
				body = map[string]string{"method": method}
			}

			path := "/api/admin/orders/" + url.PathEscape(args[0]) + "/" + action

			return client.do(cmd.Context(), http.MethodPost, path, body, cmd.OutOrStdout())
		},
	}

	if action == "mark-paid" {
		cmd.Flags().String("method", "", "Payment method, e.g. CASH")
	}

	return cmd
}

func fulfillmentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fulfillment [order-number] [status]",
		Short: "Set fulfillment status (waiting, processing, finished, cancelled)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAdminClient(cmd)
			if err != nil {
				return err
			}

			path := "/api/admin/orders/" + url.PathEscape(args[0]) + "/fulfillment"

			return client.do(cmd.Context(), http.MethodPut, path, map[string]string{"status": args[1]}, cmd.OutOrStdout())
		},
	}
}

func failedSideEffectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "failed-side-effects",
		Short: "List confirmations and stock events that exhausted their retries",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAdminClient(cmd)
			if err != nil {
				return err
			}

			limit, _ := cmd.Flags().GetInt("limit")
			path := "/api/admin/side-effects/failed?limit=" + strconv.Itoa(limit)

			return client.do(cmd.Context(), http.MethodGet, path, nil, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntP("limit", "n", 50, "Maximum rows")

	return cmd
}
