package main

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/warp/wage-compliance/factory"
	"github.com/warp/wage-compliance/rag"
)

var checkFlags struct {
	failOnRed bool
}

var checkCmd = &cobra.Command{
	Use:   "check <request.json>",
	Short: "Check one request file and print the response",
	Long: `Reads a calculation request (use "-" for stdin), runs the compliance check
against the configured rates, and prints the result, fix suggestions and
aggregation as JSON. Nothing is stored.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkFlags.failOnRed, "fail-on-red", false, "exit non-zero when the result is RED or failed")
}

func runCheck(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	req, err := factory.NewRequestFactory().ParseRequest(data)
	if err != nil {
		return err
	}
	resp := a.engine.Check(req)

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if checkFlags.failOnRed && (!resp.Result.Success || resp.Result.RAGStatus == rag.StatusRed) {
		return fmt.Errorf("worker %s: %s", req.Worker.ID, resp.Result.Reason)
	}
	return nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
