package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/forattini-dev/recker/client"
	"github.com/spf13/cobra"
)

var getQueryFlags []string

var getCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Issue a GET request and print the response body",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	getCmd.Flags().StringArrayVar(&getQueryFlags, "query", nil, "query parameter as key=value, repeatable")
}

func runGet(cmd *cobra.Command, args []string) error {
	c, err := buildClient()
	if err != nil {
		return err
	}

	opts, err := queryOptions(getQueryFlags)
	if err != nil {
		return err
	}

	body, err := c.Get(args[0], opts...).Text()
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, body)
	return nil
}

func queryOptions(flags []string) ([]client.RequestOption, error) {
	opts := make([]client.RequestOption, 0, len(flags))
	for _, f := range flags {
		key, value, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --query %q, want key=value", f)
		}
		opts = append(opts, client.WithQuery(key, value))
	}
	return opts, nil
}
