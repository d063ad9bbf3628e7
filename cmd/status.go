package cmd

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"gdaserver/internal/config"
	"gdaserver/internal/health"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

type statusOptions struct {
	address string
	timeout time.Duration
	raw     bool
}

func newStatusCmd() *cobra.Command {
	opts := &statusOptions{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query the health of a running server",
		Long: `Connects to the status port of a running server, sends STATUS and prints
the health report. Use --raw to print the JSON reply unchanged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := queryStatus(opts.address, opts.timeout)
			if err != nil {
				return err
			}
			if opts.raw {
				fmt.Fprintln(cmd.OutOrStdout(), reply)
				return nil
			}
			return renderStatus(cmd.OutOrStdout(), reply)
		},
	}

	defaultAddress := net.JoinHostPort("localhost", strconv.Itoa(config.DefaultStatusPort))
	cmd.Flags().StringVar(&opts.address, "address", defaultAddress, "Status port address")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "Timeout for the whole query")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "Print the JSON report as received")

	return cmd
}

// queryStatus sends one STATUS request and returns the reply line.
func queryStatus(address string, timeout time.Duration) (string, error) {
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return "", fmt.Errorf("failed to connect to status port %s: %w", address, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return "", err
	}
	if _, err := fmt.Fprintf(conn, "%s\n", health.Command); err != nil {
		return "", fmt.Errorf("failed to send status request: %w", err)
	}

	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read status reply: %w", err)
	}
	return strings.TrimRight(reply, "\r\n"), nil
}

// renderStatus prints the overall state and a table of component results.
func renderStatus(w io.Writer, reply string) error {
	if !gjson.Valid(reply) {
		return fmt.Errorf("unexpected status reply: %q", reply)
	}

	report := gjson.Parse(reply)
	fmt.Fprintf(w, "State:   %s\n", report.Get("state").String())
	fmt.Fprintf(w, "Message: %s\n", report.Get("message").String())

	details := report.Get("details").Array()
	if len(details) == 0 {
		return nil
	}
	fmt.Fprintln(w)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Component", "State", "Message"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	for _, d := range details {
		table.Append([]string{
			d.Get("name").String(),
			d.Get("state").String(),
			d.Get("message").String(),
		})
	}
	table.Render()
	return nil
}
