package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	submitAddr    string
	submitKind    string
	submitPayload string
)

func newSubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a demo task against a running poolctl serve instance",
		RunE:  runSubmit,
	}
	cmd.Flags().StringVar(&submitAddr, "addr", "http://localhost:8090", "base URL of a running poolctl serve")
	cmd.Flags().StringVar(&submitKind, "kind", "echo", "task kind: echo, sleep, compute, fail, flaky, object")
	cmd.Flags().StringVar(&submitPayload, "payload", "{}", "JSON payload for the task")
	return cmd
}

func runSubmit(cmd *cobra.Command, args []string) error {
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(submitPayload), &payload); err != nil {
		return fmt.Errorf("invalid --payload JSON: %w", err)
	}

	body, err := json.Marshal(map[string]interface{}{
		"kind":    submitKind,
		"payload": payload,
	})
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(submitAddr+"/api/v1/tasks", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("submit task: %w", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s\n", resp.Status, out)
	return nil
}
