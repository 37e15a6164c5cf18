package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	rootCmd   = &cobra.Command{
		Use:   "tubequeue",
		Short: "TubeQueue CLI - Media download queue manager",
		Long:  `A command-line interface for managing a queued media download server.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://127.0.0.1:8089", "Server URL")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(qualityCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(moreCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)

	addCmd.Flags().StringP("kind", "k", "", "Target kind (video, audio)")
	addCmd.Flags().StringP("quality", "q", "", "Explicit format selector")
	searchCmd.Flags().BoolP("refine", "r", false, "Filter accumulated results instead of fetching")
	qualityCmd.Flags().StringP("label", "l", "", "Display label for the selection")
	historyCmd.Flags().StringP("status", "s", "", "Filter by status")
	historyCmd.Flags().IntP("limit", "n", 20, "Max entries to show")
}

func getJSON(path string, out interface{}) {
	resp, err := http.Get(serverURL + path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
		os.Exit(1)
	}
	json.Unmarshal(body, out)
}

func postJSON(path string, payload interface{}, out interface{}) int {
	var reader io.Reader
	if payload != nil {
		data, _ := json.Marshal(payload)
		reader = bytes.NewBuffer(data)
	}
	req, _ := http.NewRequest(http.MethodPost, serverURL+path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= http.StatusBadRequest {
		fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
		os.Exit(1)
	}
	if out != nil {
		json.Unmarshal(body, out)
	}
	return resp.StatusCode
}

var addCmd = &cobra.Command{
	Use:   "add [input]",
	Short: "Add URLs or search queries to the queue",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		kind, _ := cmd.Flags().GetString("kind")
		quality, _ := cmd.Flags().GetString("quality")

		payload := map[string]string{"input": args[0]}
		if kind != "" {
			payload["kind"] = kind
		}
		if quality != "" {
			payload["quality"] = quality
		}

		var result struct {
			ItemIDs []int64  `json:"item_ids"`
			Queries []string `json:"queries"`
		}
		postJSON("/api/v1/queue", payload, &result)

		fmt.Printf("Added %d item(s) to the queue\n", len(result.ItemIDs))
		for _, id := range result.ItemIDs {
			fmt.Printf("  ID: %d\n", id)
		}
		for _, q := range result.Queries {
			fmt.Printf("  Treated as search query: %q (use 'tubequeue search')\n", q)
		}
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued items",
	Run: func(cmd *cobra.Command, args []string) {
		var items []map[string]interface{}
		getJSON("/api/v1/queue", &items)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tKIND\tSTATUS\tPROGRESS")
		for _, item := range items {
			title, _ := item["title"].(string)
			if title == "" {
				title, _ = item["url"].(string)
			}
			fmt.Fprintf(w, "%.0f\t%s\t%s\t%s\t%.1f%%\n",
				item["id"],
				truncate(title, 48),
				item["kind"],
				item["status"],
				item["progress"])
		}
		w.Flush()
	},
}

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show item details",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var item map[string]interface{}
		getJSON("/api/v1/queue/"+args[0], &item)

		fmt.Printf("Item Details:\n")
		fmt.Printf("  ID:       %.0f\n", item["id"])
		fmt.Printf("  URL:      %s\n", item["url"])
		if item["title"] != nil {
			fmt.Printf("  Title:    %s\n", item["title"])
		}
		fmt.Printf("  Kind:     %s\n", item["kind"])
		fmt.Printf("  Status:   %s\n", item["status"])
		fmt.Printf("  Progress: %.1f%%\n", item["progress"])
		if item["quality_label"] != nil {
			fmt.Printf("  Quality:  %s\n", item["quality_label"])
		}
		if item["output_path"] != nil {
			fmt.Printf("  File:     %s\n", item["output_path"])
		}
		if item["error_message"] != nil {
			fmt.Printf("  Error:    %s\n", item["error_message"])
		}
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove an item from the queue",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		req, _ := http.NewRequest(http.MethodDelete, serverURL+"/api/v1/queue/"+args[0], nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		fmt.Println("Item removed")
	},
}

var qualityCmd = &cobra.Command{
	Use:   "quality [id] [format]",
	Short: "Pin an explicit format selection on a pending item",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		label, _ := cmd.Flags().GetString("label")

		data, _ := json.Marshal(map[string]string{
			"quality": args[1],
			"label":   label,
		})
		req, _ := http.NewRequest(http.MethodPatch, serverURL+"/api/v1/queue/"+args[0]+"/quality", bytes.NewBuffer(data))
		req.Header.Set("Content-Type", "application/json")

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}
		fmt.Printf("Quality set to %s\n", args[1])
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every item from the queue",
	Run: func(cmd *cobra.Command, args []string) {
		req, _ := http.NewRequest(http.MethodDelete, serverURL+"/api/v1/queue", nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		fmt.Println("Queue cleared")
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start processing the queue",
	Run: func(cmd *cobra.Command, args []string) {
		postJSON("/api/v1/queue/start", nil, nil)
		fmt.Println("Worker started")
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Request the worker to stop after the current item",
	Run: func(cmd *cobra.Command, args []string) {
		postJSON("/api/v1/queue/stop", nil, nil)
		fmt.Println("Stop requested")
	},
}

type searchResponse struct {
	Query   string                   `json:"query"`
	Results []map[string]interface{} `json:"results"`
}

func printResults(results []map[string]interface{}) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TITLE\tUPLOADER\tDURATION\tURL")
	for _, r := range results {
		title, _ := r["title"].(string)
		uploader, _ := r["uploader"].(string)
		duration, _ := r["duration_sec"].(float64)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			truncate(title, 48),
			truncate(uploader, 20),
			formatDuration(int64(duration)),
			r["url"])
	}
	w.Flush()
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search for media",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		refine, _ := cmd.Flags().GetBool("refine")

		path := "/api/v1/search?q=" + urlEscape(args[0])
		if refine {
			path = "/api/v1/search/refine?q=" + urlEscape(args[0])
		}

		var result searchResponse
		getJSON(path, &result)
		printResults(result.Results)
	},
}

var moreCmd = &cobra.Command{
	Use:   "more",
	Short: "Fetch the next page of search results",
	Run: func(cmd *cobra.Command, args []string) {
		var result searchResponse
		postJSON("/api/v1/search/more", nil, &result)
		if len(result.Results) == 0 {
			fmt.Println("No further results")
			return
		}
		printResults(result.Results)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show finished downloads",
	Run: func(cmd *cobra.Command, args []string) {
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		path := fmt.Sprintf("/api/v1/history?limit=%d", limit)
		if status != "" {
			path += "&status=" + urlEscape(status)
		}

		var entries []map[string]interface{}
		getJSON(path, &entries)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TITLE\tKIND\tSTATUS\tFINISHED")
		for _, e := range entries {
			title, _ := e["title"].(string)
			if title == "" {
				title, _ = e["url"].(string)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				truncate(title, 48),
				e["kind"],
				e["status"],
				e["finished_at"])
		}
		w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show download statistics",
	Run: func(cmd *cobra.Command, args []string) {
		var stats struct {
			Total    int64            `json:"total"`
			ByStatus map[string]int64 `json:"by_status"`
			ByKind   map[string]int64 `json:"by_kind"`
		}
		getJSON("/api/v1/history/stats", &stats)

		fmt.Println("Download Statistics:")
		fmt.Printf("  Total: %d\n", stats.Total)
		for status, n := range stats.ByStatus {
			fmt.Printf("  %-10s %d\n", status+":", n)
		}
		for kind, n := range stats.ByKind {
			fmt.Printf("  %-10s %d\n", kind+":", n)
		}
	},
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func formatDuration(sec int64) string {
	if sec <= 0 {
		return "-"
	}
	if sec >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", sec/3600, (sec%3600)/60, sec%60)
	}
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}

func urlEscape(s string) string {
	return url.QueryEscape(s)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
