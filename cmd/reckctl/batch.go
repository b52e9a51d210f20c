package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/forattini-dev/recker/client"
	"github.com/forattini-dev/recker/internal/recker"
	"github.com/spf13/cobra"
)

var (
	batchFile        string
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Fan a list of requests out through the client's pipeline",
	Long:  `Reads "METHOD path" lines (one per request) from --file or stdin and submits them concurrently via Client.Batch.`,
	RunE:  runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "-", `file of "METHOD path" lines, one per request (use - for stdin)`)
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max requests in flight within this batch (0 = one worker per request)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	c, err := buildClient()
	if err != nil {
		return err
	}

	specs, err := readBatchSpecs(batchFile)
	if err != nil {
		return err
	}

	results, stats := c.Batch(specs, client.BatchOptions{Concurrency: batchConcurrency})
	for i, r := range results {
		spec := specs[i]
		if r.Err != nil {
			fmt.Fprintf(os.Stdout, "%s %s -> error: %v\n", spec.Method, spec.Path, r.Err)
			continue
		}
		fmt.Fprintf(os.Stdout, "%s %s -> %d\n", spec.Method, spec.Path, r.Response.Status)
	}
	fmt.Fprintf(os.Stdout, "\ntotal=%d successful=%d failed=%d duration=%s\n",
		stats.Total, stats.Successful, stats.Failed, stats.Duration)
	return nil
}

func readBatchSpecs(path string) ([]client.RequestSpec, error) {
	f := os.Stdin
	if path != "-" {
		opened, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		defer opened.Close()
		f = opened
	}

	var specs []client.RequestSpec
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("invalid batch line %q, want \"METHOD path\"", line)
		}
		specs = append(specs, client.RequestSpec{
			Method: recker.Method(strings.ToUpper(fields[0])),
			Path:   fields[1],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return specs, nil
}
