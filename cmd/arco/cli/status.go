package cli

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check if the Arco server is running",
		Long:  "Check the server process and its readiness check (database and session store).",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}
}

func runStatus() error {
	pid, err := readPID()
	if err != nil {
		fmt.Println("Server is not running (no PID file found).")
		return nil
	}

	if !isProcessRunning(pid) {
		removePID()
		fmt.Println("Server is not running (stale PID file removed).")
		return nil
	}

	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	host := cfg.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	readyAddr := "http://" + net.JoinHostPort(host, strconv.Itoa(cfg.Server.Port)) + "/readyz"

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(readyAddr)
	if err != nil {
		fmt.Printf("Server process is running (PID %d) but not responding to HTTP.\n", pid)
		fmt.Printf("  Logs: %s\n", logFilePath())
		return nil
	}
	defer resp.Body.Close()

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	json.NewDecoder(resp.Body).Decode(&body)

	fmt.Printf("Server is running (PID %d)\n", pid)
	fmt.Printf("  Ready:   %s (%d %s)\n", readyAddr, resp.StatusCode, body.Status)
	for name, state := range body.Checks {
		fmt.Printf("    %-10s %s\n", name+":", state)
	}
	fmt.Printf("  Logs:    %s\n", logFilePath())
	return nil
}
