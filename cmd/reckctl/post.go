package main

import (
	"fmt"
	"io"
	"os"

	"github.com/forattini-dev/recker/client"
	"github.com/forattini-dev/recker/internal/recker"
	"github.com/spf13/cobra"
)

var (
	postBody     string
	postBodyFile string
	postJSON     bool
)

var postCmd = &cobra.Command{
	Use:   "post <path>",
	Short: "Issue a POST request and print the response body",
	Args:  cobra.ExactArgs(1),
	RunE:  runPost,
}

func init() {
	postCmd.Flags().StringVar(&postBody, "data", "", "request body literal")
	postCmd.Flags().StringVar(&postBodyFile, "data-file", "", "read the request body from a file (use - for stdin)")
	postCmd.Flags().BoolVar(&postJSON, "json", false, "set Content-Type: application/json instead of text/plain")
}

func runPost(cmd *cobra.Command, args []string) error {
	c, err := buildClient()
	if err != nil {
		return err
	}

	payload, err := postPayload()
	if err != nil {
		return err
	}

	body := recker.BodyFromText(payload)
	if postJSON {
		body = recker.Body{Kind: recker.BodyBytes, Bytes: []byte(payload), ContentType: "application/json"}
	}

	out, err := c.Post(args[0], client.WithStreamBody(body)).Text()
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, out)
	return nil
}

func postPayload() (string, error) {
	switch {
	case postBodyFile == "-":
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	case postBodyFile != "":
		data, err := os.ReadFile(postBodyFile)
		return string(data), err
	default:
		return postBody, nil
	}
}
